package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/unit"
)

// named 命名单位定义
type named struct {
	dims      unit.Dimensions
	factor    float64
	offset    float64
	prefixing bool // 是否允许SI前缀
}

var (
	length      = unit.Dimensions{unit.LengthDim: 1}
	mass        = unit.Dimensions{unit.MassDim: 1}
	duration    = unit.Dimensions{unit.TimeDim: 1}
	current     = unit.Dimensions{unit.CurrentDim: 1}
	temperature = unit.Dimensions{unit.TemperatureDim: 1}
	force       = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -2}
	pressure    = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}
	energy      = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}
	power       = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3}
	volume      = unit.Dimensions{unit.LengthDim: 3}
)

// registry 单位表
var registry = map[string]named{
	"1":   {factor: 1},
	"%":   {factor: 0.01},
	"rad": {factor: 1},
	"deg": {factor: math.Pi / 180},
	"m":   {dims: length, factor: 1, prefixing: true},
	"g":   {dims: mass, factor: 1e-3, prefixing: true},
	"s":   {dims: duration, factor: 1, prefixing: true},
	"A":   {dims: current, factor: 1, prefixing: true},
	"K":   {dims: temperature, factor: 1, prefixing: true},
	"mol": {dims: unit.Dimensions{unit.MoleDim: 1}, factor: 1, prefixing: true},
	"cd":  {dims: unit.Dimensions{unit.LuminousIntensityDim: 1}, factor: 1},
	"N":   {dims: force, factor: 1, prefixing: true},
	"Pa":  {dims: pressure, factor: 1, prefixing: true},
	"J":   {dims: energy, factor: 1, prefixing: true},
	"W":   {dims: power, factor: 1, prefixing: true},
	"Hz":  {dims: unit.Dimensions{unit.TimeDim: -1}, factor: 1, prefixing: true},
	"C":   {dims: unit.Dimensions{unit.CurrentDim: 1, unit.TimeDim: 1}, factor: 1, prefixing: true},
	"V":   {dims: unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3, unit.CurrentDim: -1}, factor: 1, prefixing: true},
	"ohm": {dims: unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3, unit.CurrentDim: -2}, factor: 1, prefixing: true},
	"Ω":   {dims: unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3, unit.CurrentDim: -2}, factor: 1, prefixing: true},
	"L":   {dims: volume, factor: 1e-3, prefixing: true},
	"bar": {dims: pressure, factor: 1e5, prefixing: true},
	"atm": {dims: pressure, factor: 101325},
	"psi": {dims: pressure, factor: 6894.757293168361},
	"min": {dims: duration, factor: 60},
	"h":   {dims: duration, factor: 3600},
	"d":   {dims: duration, factor: 86400},
	"ft":  {dims: length, factor: 0.3048},
	"in":  {dims: length, factor: 0.0254},
	"lb":  {dims: mass, factor: 0.45359237},
	"t":   {dims: mass, factor: 1000},

	// 偏移温标
	"degC": {dims: temperature, factor: 1, offset: 273.15},
	"degF": {dims: temperature, factor: 5.0 / 9, offset: 273.15 - 32*5.0/9},
}

// prefixes SI前缀, 按长度优先匹配
var prefixes = []struct {
	symbol string
	factor float64
}{
	{"da", unit.Deca},
	{"T", unit.Tera},
	{"G", unit.Giga},
	{"M", unit.Mega},
	{"k", unit.Kilo},
	{"h", unit.Hecto},
	{"d", unit.Deci},
	{"c", unit.Centi},
	{"m", unit.Milli},
	{"u", unit.Micro},
	{"µ", unit.Micro},
	{"n", unit.Nano},
	{"p", unit.Pico},
}

// lookup 查找单个符号(含前缀)
func lookup(sym string) (Unit, bool) {
	if n, ok := registry[sym]; ok {
		return Unit{dims: n.dims, factor: n.factor, offset: n.offset, symbol: sym}, true
	}
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(sym, p.symbol)
		if !ok || rest == "" {
			continue
		}
		if n, ok := registry[rest]; ok && n.prefixing {
			return Unit{dims: n.dims, factor: n.factor * p.factor, symbol: sym}, true
		}
	}
	return Unit{}, false
}

// Parse 解析单位表达式, 例如 "kg*m^2/s^2", "kJ/(kg*K)", "N m", "degC"
// 偏移单位只在单独出现时保留偏移, 出现在复合表达式中视为温差
func Parse(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Dimensionless, nil
	}
	p := &parser{src: s}
	if err := p.tokenize(); err != nil {
		return Unit{}, err
	}
	u, err := p.expr()
	if err != nil {
		return Unit{}, err
	}
	if p.pos != len(p.toks) {
		return Unit{}, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, p.toks[p.pos].text, s)
	}
	u.symbol = s
	return u, nil
}

// MustParse 解析失败时 panic, 用于常量单位
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokNumber
	tokMul
	tokDiv
	tokPow
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// parser 递归下降解析器
type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) tokenize() error {
	rs := []rune(p.src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			p.toks = append(p.toks, token{tokPow, "**"})
			i += 2
		case r == '*' || r == '·':
			p.toks = append(p.toks, token{tokMul, string(r)})
			i++
		case r == '/':
			p.toks = append(p.toks, token{tokDiv, "/"})
			i++
		case r == '^':
			p.toks = append(p.toks, token{tokPow, "^"})
			i++
		case r == '(':
			p.toks = append(p.toks, token{tokOpen, "("})
			i++
		case r == ')':
			p.toks = append(p.toks, token{tokClose, ")"})
			i++
		case r == '-' || r == '+' || unicode.IsDigit(r):
			j := i + 1
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			p.toks = append(p.toks, token{tokNumber, string(rs[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '%' || r == 'µ' || r == 'Ω':
			j := i + 1
			for j < len(rs) && (unicode.IsLetter(rs[j]) || rs[j] == 'µ' || rs[j] == 'Ω') {
				j++
			}
			p.toks = append(p.toks, token{tokIdent, string(rs[i:j])})
			i = j
		default:
			return fmt.Errorf("%w: invalid character %q in %q", ErrSyntax, r, p.src)
		}
	}
	return nil
}

func (p *parser) peek() (token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return token{}, false
}

// expr := factor { ('*' | '/' | 隐式乘) factor }
func (p *parser) expr() (Unit, error) {
	u, err := p.factor()
	if err != nil {
		return Unit{}, err
	}
	single := true
	for {
		t, ok := p.peek()
		if !ok || t.kind == tokClose {
			break
		}
		div := false
		switch t.kind {
		case tokMul:
			p.pos++
		case tokDiv:
			div = true
			p.pos++
		case tokIdent, tokOpen, tokNumber:
		default:
			return Unit{}, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, t.text, p.src)
		}
		v, err := p.factor()
		if err != nil {
			return Unit{}, err
		}
		if div {
			u = u.Div(v)
		} else {
			u = u.Mul(v)
		}
		single = false
	}
	if !single {
		u.offset = 0
	}
	return u, nil
}

// factor := primary [ '^' int ]
func (p *parser) factor() (Unit, error) {
	u, err := p.primary()
	if err != nil {
		return Unit{}, err
	}
	if t, ok := p.peek(); ok && t.kind == tokPow {
		p.pos++
		n, ok := p.peek()
		if !ok || n.kind != tokNumber {
			return Unit{}, fmt.Errorf("%w: exponent expected in %q", ErrSyntax, p.src)
		}
		p.pos++
		e, err := strconv.Atoi(n.text)
		if err != nil {
			return Unit{}, fmt.Errorf("%w: bad exponent %q in %q", ErrSyntax, n.text, p.src)
		}
		u = u.Pow(e)
	}
	return u, nil
}

// primary := ident | '(' expr ')' | '1'
func (p *parser) primary() (Unit, error) {
	t, ok := p.peek()
	if !ok {
		return Unit{}, fmt.Errorf("%w: unexpected end of %q", ErrSyntax, p.src)
	}
	p.pos++
	switch t.kind {
	case tokIdent:
		u, ok := lookup(t.text)
		if !ok {
			return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, t.text)
		}
		return u, nil
	case tokNumber:
		if t.text != "1" {
			return Unit{}, fmt.Errorf("%w: numeric factor %q in %q", ErrSyntax, t.text, p.src)
		}
		return Dimensionless, nil
	case tokOpen:
		u, err := p.expr()
		if err != nil {
			return Unit{}, err
		}
		if c, ok := p.peek(); !ok || c.kind != tokClose {
			return Unit{}, fmt.Errorf("%w: missing ')' in %q", ErrSyntax, p.src)
		}
		p.pos++
		u.offset = 0
		return u, nil
	}
	return Unit{}, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, t.text, p.src)
}
