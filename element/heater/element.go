// Package heater 流体加热器
package heater

import (
	"causal/model"
	"causal/quantity"
)

// 默认参数
var (
	Power   = 50.0  // 加热功率(kW)
	Density = 1000. // 密度(kg/m^3)
	Cp      = 4.18  // 比热(kJ/(kg*K))
)

func init() {
	model.Register("heater", func() model.Subsystem {
		return New("heater", quantity.MustNew(10, "m^3/h", quantity.Fixed()))
	})
}

// Heater 加热器, 能量平衡 P = ρ·cp·Q·(Tout - Tin)
type Heater struct {
	*model.Base
	Flow    *quantity.Quantity
	Power   *quantity.Quantity
	Inlet   *quantity.Quantity
	Outlet  *quantity.Quantity
	Density *quantity.Quantity
	Cp      *quantity.Quantity
}

// New 创建加热器
func New(name string, flow *quantity.Quantity) *Heater {
	h := &Heater{Base: model.NewBase(name)}
	h.Flow = h.Var("flow", flow)
	h.Power = h.Var("power", quantity.MustNew(Power, "kW", quantity.WithUncertainty(1), quantity.Fixed()))
	h.Inlet = h.Var("tin", quantity.MustNew(20, "degC", quantity.WithUncertainty(0.1), quantity.Fixed()))
	h.Outlet = h.Var("tout", quantity.MustNew(20, "degC", quantity.WithBounds(0, 100)))
	h.Density = h.Var("rho", quantity.MustNew(Density, "kg/m^3", quantity.Fixed()))
	h.Cp = h.Var("cp", quantity.MustNew(Cp, "kJ/(kg*K)", quantity.Fixed()))
	h.Equation("energy", func() []quantity.Group {
		rise := h.Outlet.Sub(h.Inlet)
		return []quantity.Group{quantity.Eq(h.Power, h.Density.Mul(h.Cp).Mul(h.Flow).Mul(rise))}
	})
	return h
}
