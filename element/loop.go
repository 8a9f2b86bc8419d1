// Package element 示例热流体子系统, 导入即注册到模型表
package element

import (
	"causal/element/heater"
	"causal/element/pipe"
	"causal/element/pump"
	"causal/model"
	"causal/quantity"
)

func init() {
	model.Register("loop", func() model.Subsystem { return NewLoop("loop") })
}

// Loop 泵-管路-加热器闭合回路
// 泵压升与管路压损平衡确定流量, 流量再确定加热器出口温度
type Loop struct {
	*model.Base
	Flow   *quantity.Quantity
	Pump   *pump.Pump
	Pipe   *pipe.Pipe
	Heater *heater.Heater
}

// NewLoop 创建回路
func NewLoop(name string) *Loop {
	l := &Loop{Base: model.NewBase(name)}
	l.Flow = l.Var("flow", quantity.MustNew(5, "m^3/h", quantity.WithLower(0)))
	l.Pump = pump.New("pump", l.Flow)
	l.Pipe = pipe.New("pipe", l.Flow)
	l.Heater = heater.New("heater", l.Flow)
	l.Child(l.Pump)
	l.Child(l.Pipe)
	l.Child(l.Heater)
	l.Equation("balance", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(l.Pump.Head, l.Pipe.Loss)}
	})
	return l
}
