// Package pump 离心泵
package pump

import (
	"causal/model"
	"causal/quantity"
)

// 默认参数
var (
	Shutoff = 4.0  // 零流量压升(bar)
	Coeff   = 0.01 // 曲线系数(bar/(m^3/h)^2)
)

// init 注册单泵工况: 给定流量求压升
func init() {
	model.Register("pump", func() model.Subsystem {
		return New("pump", quantity.MustNew(10, "m^3/h", quantity.Fixed()))
	})
}

// Pump 离心泵, 压升曲线 dp = a - b·Q²
type Pump struct {
	*model.Base
	Flow    *quantity.Quantity // 流量, 可与其它子系统共享
	Head    *quantity.Quantity // 压升
	Shutoff *quantity.Quantity // 零流量压升 a
	Coeff   *quantity.Quantity // 曲线系数 b
}

// New 创建泵
func New(name string, flow *quantity.Quantity) *Pump {
	p := &Pump{Base: model.NewBase(name)}
	p.Flow = p.Var("flow", flow)
	p.Head = p.Var("dp", quantity.MustNew(1, "bar", quantity.WithLower(0)))
	p.Shutoff = p.Var("shutoff", quantity.MustNew(Shutoff, "bar", quantity.WithUncertainty(0.05), quantity.Fixed()))
	p.Coeff = p.Var("coeff", quantity.MustNew(Coeff, "bar/(m^3/h)^2", quantity.Fixed()))
	p.Equation("curve", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(p.Head, p.Shutoff.Sub(p.Coeff.Mul(p.Flow.Mul(p.Flow))))}
	})
	return p
}
