package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/unit"
)

// 单位错误
var (
	ErrUnknownUnit = errors.New("units: unknown unit")
	ErrSyntax      = errors.New("units: syntax error")
	ErrFraction    = errors.New("units: non-integral exponent of a dimensional unit")
)

// Unit 物理单位
// SI值 = 显示值*factor + offset, 量纲使用 gonum/unit 的基本量纲指数表示
// 零值等价于无量纲单位
type Unit struct {
	dims   unit.Dimensions // 量纲指数
	factor float64         // 换算系数(零值视为1)
	offset float64         // 偏移(仅温度类单位)
	symbol string          // 显示符号
}

// Dimensionless 无量纲单位
var Dimensionless = Unit{factor: 1}

// baseOrder 格式化时的量纲顺序
var baseOrder = []struct {
	dim    unit.Dimension
	symbol string
}{
	{unit.MassDim, "kg"},
	{unit.LengthDim, "m"},
	{unit.TimeDim, "s"},
	{unit.CurrentDim, "A"},
	{unit.TemperatureDim, "K"},
	{unit.MoleDim, "mol"},
	{unit.LuminousIntensityDim, "cd"},
	{unit.AngleDim, "rad"},
}

// scale 换算系数
func (u Unit) scale() float64 {
	if u.factor == 0 {
		return 1
	}
	return u.factor
}

// gonum 得到 gonum 单位值, 量纲表为副本(gonum 的 Mul/Div 原地修改)
func (u Unit) gonum() *unit.Unit { return unit.New(u.scale(), u.Dimensions()) }

// fromGonum 由 gonum 单位值构建
func fromGonum(g *unit.Unit) Unit {
	return Unit{dims: g.Dimensions(), factor: g.Value()}
}

// Dimensions 量纲指数副本
func (u Unit) Dimensions() unit.Dimensions {
	d := make(unit.Dimensions, len(u.dims))
	for k, v := range u.dims {
		if v != 0 {
			d[k] = v
		}
	}
	return d
}

// Exponent 指定基本量纲的指数
func (u Unit) Exponent(d unit.Dimension) int { return u.dims[d] }

// Scale 到SI的换算系数
func (u Unit) Scale() float64 { return u.scale() }

// Offset 到SI的偏移
func (u Unit) Offset() float64 { return u.offset }

// IsDimensionless 是否无量纲
func (u Unit) IsDimensionless() bool {
	for _, v := range u.dims {
		if v != 0 {
			return false
		}
	}
	return true
}

// isUnity 是否为纯数
func (u Unit) isUnity() bool { return u.IsDimensionless() && u.scale() == 1 && u.offset == 0 }

// SameDimension 量纲是否一致
func (u Unit) SameDimension(o Unit) bool {
	return unit.DimensionsMatch(unit.New(1, u.Dimensions()), unit.New(1, o.Dimensions()))
}

// Equal 量纲、系数、偏移均一致
func (u Unit) Equal(o Unit) bool {
	return u.SameDimension(o) && u.scale() == o.scale() && u.offset == o.offset
}

// SI 同量纲的SI标准单位
func (u Unit) SI() Unit {
	return Unit{dims: u.Dimensions(), factor: 1}
}

// ToSI 显示值转换为SI值
func (u Unit) ToSI(v float64) float64 { return v*u.scale() + u.offset }

// FromSI SI值转换为显示值
func (u Unit) FromSI(v float64) float64 { return (v - u.offset) / u.scale() }

// DeltaToSI 差值(不确定度、偏移量)转换为SI
func (u Unit) DeltaToSI(d float64) float64 { return d * u.scale() }

// DeltaFromSI 差值从SI转换
func (u Unit) DeltaFromSI(d float64) float64 { return d / u.scale() }

// Delta 差值单位: 带偏移的单位(degC, degF)换为同量纲的SI单位, 其余不变
func (u Unit) Delta() Unit {
	if u.offset == 0 {
		return u
	}
	return u.SI()
}

// Mul 单位相乘, 结果为差值单位
// 与纯数(无量纲且系数为1)相乘时保持原单位
func (u Unit) Mul(o Unit) Unit {
	if o.isUnity() {
		return u.Delta()
	}
	if u.isUnity() {
		return o.Delta()
	}
	r := fromGonum(u.gonum().Mul(o.gonum()))
	r.symbol = joinSymbol(u, o, "*")
	return r
}

// Div 单位相除
func (u Unit) Div(o Unit) Unit {
	if o.isUnity() {
		return u.Delta()
	}
	r := fromGonum(u.gonum().Div(o.gonum()))
	r.symbol = joinSymbol(u, o, "/")
	return r
}

// Pow 整数次幂, 结果为差值单位
func (u Unit) Pow(n int) Unit {
	u = u.Delta()
	g := unit.New(1, unit.Dimensions{})
	for i := 0; i < n; i++ {
		g.Mul(u.gonum())
	}
	for i := 0; i > n; i-- {
		g.Div(u.gonum())
	}
	r := fromGonum(g)
	switch {
	case n == 1:
		r.symbol = u.symbol
	case u.symbol != "" && n != 0:
		r.symbol = wrap(u.symbol) + "^" + strconv.Itoa(n)
	}
	return r
}

// PowReal 实数次幂, 有量纲时指数必须为整数
func (u Unit) PowReal(p float64) (Unit, error) {
	if n := math.Round(p); n == p && math.Abs(p) < 1<<20 {
		return u.Pow(int(n)), nil
	}
	if !u.IsDimensionless() {
		return Unit{}, fmt.Errorf("%w: (%s)^%g", ErrFraction, u, p)
	}
	return Unit{factor: math.Pow(u.scale(), p)}, nil
}

// String 单位符号, 无量纲返回空串
func (u Unit) String() string {
	if u.symbol != "" {
		return u.symbol
	}
	return u.canonical()
}

// canonical 由量纲指数生成的SI符号
func (u Unit) canonical() string {
	var num, den []string
	for _, b := range baseOrder {
		e := u.dims[b.dim]
		switch {
		case e == 1:
			num = append(num, b.symbol)
		case e > 1:
			num = append(num, b.symbol+"^"+strconv.Itoa(e))
		case e == -1:
			den = append(den, b.symbol)
		case e < -1:
			den = append(den, b.symbol+"^"+strconv.Itoa(-e))
		}
	}
	s := strings.Join(num, "*")
	if u.scale() != 1 {
		s = strings.TrimSuffix(strconv.FormatFloat(u.scale(), 'g', -1, 64)+"*"+s, "*")
	}
	if len(den) == 0 {
		return s
	}
	if s == "" {
		s = "1"
	}
	if len(den) == 1 {
		return s + "/" + den[0]
	}
	return s + "/(" + strings.Join(den, "*") + ")"
}

// joinSymbol 合成显示符号
func joinSymbol(a, b Unit, op string) string {
	if a.symbol == "" || b.symbol == "" {
		return ""
	}
	if op == "/" {
		return a.symbol + "/" + wrap(b.symbol)
	}
	return a.symbol + op + b.symbol
}

// wrap 复合符号加括号
func wrap(s string) string {
	if strings.ContainsAny(s, "*/^") {
		return "(" + s + ")"
	}
	return s
}
