package model

import (
	"causal/quantity"
)

// Subsystem 子系统接口
// 实现者必须为指针类型, 收集时以指针去重
type Subsystem interface {
	Name() string          // 名称
	Vars() []Var           // 物理量
	Equations() []Equation // 方程
	Children() []Subsystem // 子系统
}

// Var 命名物理量
type Var struct {
	Name string
	Q    *quantity.Quantity
}

// Equation 方程, Fn 每次调用返回若干等值组
type Equation struct {
	Name string
	Fn   func() []quantity.Group
}

// Base 子系统基础实现, 供具体子系统嵌入
type Base struct {
	name     string
	vars     []Var
	eqs      []Equation
	children []Subsystem
}

// NewBase 创建基础子系统
func NewBase(name string) *Base { return &Base{name: name} }

// Init 设置名称
func (b *Base) Init(name string) { b.name = name }

// Name 名称
func (b *Base) Name() string { return b.name }

// Var 登记物理量, 未命名时使用登记名
func (b *Base) Var(name string, q *quantity.Quantity) *quantity.Quantity {
	if q != nil && q.Name() == "" {
		q.SetName(name)
	}
	b.vars = append(b.vars, Var{Name: name, Q: q})
	return q
}

// Equation 登记方程
func (b *Base) Equation(name string, fn func() []quantity.Group) {
	b.eqs = append(b.eqs, Equation{Name: name, Fn: fn})
}

// Child 登记子系统
func (b *Base) Child(s Subsystem) { b.children = append(b.children, s) }

// Vars 物理量
func (b *Base) Vars() []Var { return b.vars }

// Equations 方程
func (b *Base) Equations() []Equation { return b.eqs }

// Children 子系统
func (b *Base) Children() []Subsystem { return b.children }
