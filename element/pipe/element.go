// Package pipe 管路压损
package pipe

import (
	"causal/model"
	"causal/quantity"
)

// Resistance 默认阻力系数(bar/(m^3/h)^2)
var Resistance = 0.03

func init() {
	model.Register("pipe", func() model.Subsystem {
		p := New("pipe", quantity.MustNew(5, "m^3/h"))
		p.Loss.SetValue(3)
		p.Loss.Fix()
		return p
	})
}

// Pipe 管路, 压损 dp = k·Q·|Q|
type Pipe struct {
	*model.Base
	Flow *quantity.Quantity
	Loss *quantity.Quantity
	K    *quantity.Quantity
}

// New 创建管路
func New(name string, flow *quantity.Quantity) *Pipe {
	p := &Pipe{Base: model.NewBase(name)}
	p.Flow = p.Var("flow", flow)
	p.Loss = p.Var("dp", quantity.MustNew(1, "bar"))
	p.K = p.Var("k", quantity.MustNew(Resistance, "bar/(m^3/h)^2", quantity.Fixed()))
	p.Equation("loss", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(p.Loss, p.K.Mul(p.Flow).Mul(quantity.Abs(p.Flow)))}
	})
	return p
}
