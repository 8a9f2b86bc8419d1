package quantity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"causal/units"
)

// ID 物理量编号, 创建时分配, 全进程唯一
type ID uint64

// arena 编号分配器
var arena atomic.Uint64

func nextID() ID { return ID(arena.Add(1)) }

// DefaultPrecision 默认显示有效位数
var DefaultPrecision = 6

// Quantity 物理量
// 内部以SI存储数值、不确定度与上下界, 显示单位仅在读取时换算
type Quantity struct {
	id        ID
	name      string
	si        float64    // SI值
	siUnit    units.Unit // SI单位
	unit      units.Unit // 显示单位
	sigma     float64    // 用户给定的SI不确定度
	lower     float64    // SI下界
	upper     float64    // SI上界
	fixed     bool       // 用户已知量
	solved    bool       // 本轮求解已确定
	precision int        // 显示有效位数
	ledger    Ledger     // 依赖账本, nil 表示叶子
	err       error      // 粘滞错误
}

// Group 等值组, 组内各量数值相等
type Group []*Quantity

// Eq 构建等值组
func Eq(qs ...*Quantity) Group { return Group(qs) }

// options 构造选项(显示单位下)
type options struct {
	sigma     float64
	lower     float64
	upper     float64
	name      string
	precision int
	fixed     bool
}

// Option 构造选项
type Option func(*options)

// WithUncertainty 一倍标准差不确定度
func WithUncertainty(sigma float64) Option { return func(o *options) { o.sigma = sigma } }

// WithBounds 上下界
func WithBounds(lower, upper float64) Option {
	return func(o *options) { o.lower, o.upper = lower, upper }
}

// WithLower 下界
func WithLower(lower float64) Option { return func(o *options) { o.lower = lower } }

// WithUpper 上界
func WithUpper(upper float64) Option { return func(o *options) { o.upper = upper } }

// WithName 名称
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithPrecision 显示有效位数
func WithPrecision(n int) Option { return func(o *options) { o.precision = n } }

// Fixed 标记为已知输入
func Fixed() Option { return func(o *options) { o.fixed = true } }

// New 创建物理量, value/不确定度/上下界均以 unit 给出
func New(value float64, unit string, opts ...Option) (*Quantity, error) {
	u, err := units.Parse(unit)
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	o := options{lower: math.Inf(-1), upper: math.Inf(1), precision: DefaultPrecision}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sigma < 0 || math.IsNaN(o.sigma) {
		return nil, fmt.Errorf("%w: %g", ErrUncertainty, o.sigma)
	}
	if o.lower > o.upper {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrBounds, o.lower, o.upper)
	}
	return &Quantity{
		id:        nextID(),
		name:      o.name,
		si:        u.ToSI(value),
		siUnit:    u.SI(),
		unit:      u,
		sigma:     u.DeltaToSI(o.sigma),
		lower:     toSIBound(u, o.lower),
		upper:     toSIBound(u, o.upper),
		fixed:     o.fixed,
		precision: o.precision,
	}, nil
}

// MustNew 创建失败时 panic
func MustNew(value float64, unit string, opts ...Option) *Quantity {
	q, err := New(value, unit, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

// Const 常量, 无不确定度且不进入依赖账本
// 单位解析失败时返回携带错误的量
func Const(value float64, unit string) *Quantity {
	u, err := units.Parse(unit)
	if err != nil {
		return &Quantity{id: nextID(), ledger: Ledger{}, err: fmt.Errorf("quantity: %w", err)}
	}
	return &Quantity{
		id:        nextID(),
		si:        u.ToSI(value),
		siUnit:    u.SI(),
		unit:      u,
		lower:     math.Inf(-1),
		upper:     math.Inf(1),
		fixed:     true,
		precision: DefaultPrecision,
		ledger:    Ledger{},
	}
}

// Scalar 无量纲常量
func Scalar(v float64) *Quantity { return Const(v, "") }

// toSIBound 边界换算, 无穷保持不变
func toSIBound(u units.Unit, b float64) float64 {
	if math.IsInf(b, 0) {
		return b
	}
	return u.ToSI(b)
}

func fromSIBound(u units.Unit, b float64) float64 {
	if math.IsInf(b, 0) {
		return b
	}
	return u.FromSI(b)
}

// ID 编号
func (q *Quantity) ID() ID { return q.id }

// Name 名称
func (q *Quantity) Name() string { return q.name }

// SetName 设置名称
func (q *Quantity) SetName(name string) { q.name = name }

// Err 粘滞错误
func (q *Quantity) Err() error { return q.err }

// Value 显示单位下的值
func (q *Quantity) Value() float64 { return q.unit.FromSI(q.si) }

// SetValue 以显示单位设置值
func (q *Quantity) SetValue(v float64) { q.si = q.unit.ToSI(v) }

// Unit 显示单位
func (q *Quantity) Unit() units.Unit { return q.unit }

// Uncertainty 显示单位下的不确定度
func (q *Quantity) Uncertainty() float64 { return q.unit.DeltaFromSI(q.SIUncertainty()) }

// Bounds 显示单位下的上下界
func (q *Quantity) Bounds() (lower, upper float64) {
	return fromSIBound(q.unit, q.lower), fromSIBound(q.unit, q.upper)
}

// SI SI值
func (q *Quantity) SI() float64 { return q.si }

// SIUnit SI单位
func (q *Quantity) SIUnit() units.Unit { return q.siUnit }

// SIBounds SI上下界
func (q *Quantity) SIBounds() (lower, upper float64) { return q.lower, q.upper }

// SIUncertainty SI不确定度
// 叶子返回用户给定值, 派生量由账本按独立误差公式合成
func (q *Quantity) SIUncertainty() float64 {
	if q.ledger == nil {
		return q.sigma
	}
	var sum float64
	for _, p := range q.ledger.flatten() {
		d := p.D * p.Root.sigma
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Precision 显示有效位数
func (q *Quantity) Precision() int { return q.precision }

// Convert 更换显示单位, SI值不变
func (q *Quantity) Convert(unit string) error {
	u, err := units.Parse(unit)
	if err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if !u.SameDimension(q.siUnit) {
		return &UnitMismatchError{Op: "convert", Left: q.unit, Right: u}
	}
	q.unit = u
	return nil
}

// Fix 标记为已知输入
func (q *Quantity) Fix() { q.fixed = true }

// Unfix 取消已知标记
func (q *Quantity) Unfix() { q.fixed = false }

// IsFixed 是否不参与求解(用户已知或本轮已求解)
func (q *Quantity) IsFixed() bool { return q.fixed || q.solved }

// IsInput 是否为用户已知输入
func (q *Quantity) IsInput() bool { return q.fixed }

// IsSolved 本轮是否已求解
func (q *Quantity) IsSolved() bool { return q.solved }

// MarkSolved 设置本轮求解标记
func (q *Quantity) MarkSolved(solved bool) { q.solved = solved }

// SetSI 写入SI值, 仅供求解器与结构探测使用
func (q *Quantity) SetSI(v float64) { q.si = v }

// IsLeaf 是否为叶子(无依赖账本)
func (q *Quantity) IsLeaf() bool { return q.ledger == nil }

// Ledger 依赖账本副本, 叶子返回自身项
func (q *Quantity) Ledger() Ledger {
	l := make(Ledger, len(q.entries()))
	for k, v := range q.entries() {
		l[k] = v
	}
	return l
}

// Derivative 对根量 root 的偏导数
func (q *Quantity) Derivative(root *Quantity) float64 {
	return q.entries()[root.id].D
}

// ResetLedger 恢复为叶子
func (q *Quantity) ResetLedger() { q.ledger = nil }

// SetSensitivity 以隐函数灵敏度替换依赖账本
func (q *Quantity) SetSensitivity(l Ledger) {
	if l == nil {
		l = Ledger{}
	}
	q.ledger = l
}

// entries 账本视图
func (q *Quantity) entries() Ledger {
	if q.ledger == nil {
		return Ledger{q.id: {Root: q, D: 1}}
	}
	return q.ledger
}

// String 按显示精度格式化
func (q *Quantity) String() string {
	if q.err != nil {
		return "error: " + q.err.Error()
	}
	prec := q.precision
	if prec <= 0 {
		prec = DefaultPrecision
	}
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(q.Value(), 'g', prec, 64))
	if s := q.Uncertainty(); s > 0 {
		b.WriteString(" ± ")
		b.WriteString(strconv.FormatFloat(s, 'g', 2, 64))
	}
	if u := q.unit.String(); u != "" {
		b.WriteString(" ")
		b.WriteString(u)
	}
	return b.String()
}
