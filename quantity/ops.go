package quantity

import (
	"math"

	"causal/units"
)

// derive 构建派生量
func derive(si float64, siUnit, unit units.Unit, precision int, ledger Ledger) *Quantity {
	return &Quantity{
		id:        nextID(),
		si:        si,
		siUnit:    siUnit,
		unit:      unit,
		lower:     math.Inf(-1),
		upper:     math.Inf(1),
		precision: precision,
		ledger:    ledger,
	}
}

// failed 携带错误的派生量
func failed(err error) *Quantity {
	return &Quantity{id: nextID(), si: math.NaN(), ledger: Ledger{}, err: err}
}

// firstErr 操作数中的第一个错误
func firstErr(qs ...*Quantity) error {
	for _, q := range qs {
		if q.err != nil {
			return q.err
		}
	}
	return nil
}

// Add 加法, 量纲必须一致, 结果使用左操作数的显示单位(带偏移的温度单位换为K)
func (q *Quantity) Add(o *Quantity) *Quantity {
	return q.addScaled(o, 1, "add")
}

// Sub 减法
func (q *Quantity) Sub(o *Quantity) *Quantity {
	return q.addScaled(o, -1, "sub")
}

func (q *Quantity) addScaled(o *Quantity, sign float64, op string) *Quantity {
	if err := firstErr(q, o); err != nil {
		return failed(err)
	}
	if !q.siUnit.SameDimension(o.siUnit) {
		return failed(&UnitMismatchError{Op: op, Left: q.unit, Right: o.unit})
	}
	return derive(q.si+sign*o.si, q.siUnit, q.unit.Delta(), q.precision,
		chain(term{q, 1}, term{o, sign}))
}

// Mul 乘法
func (q *Quantity) Mul(o *Quantity) *Quantity {
	if err := firstErr(q, o); err != nil {
		return failed(err)
	}
	return derive(q.si*o.si, q.siUnit.Mul(o.siUnit), q.unit.Mul(o.unit), q.precision,
		chain(term{q, o.si}, term{o, q.si}))
}

// Div 除法, 除数为零时结果为 ±Inf/NaN, 由求解器处理
func (q *Quantity) Div(o *Quantity) *Quantity {
	if err := firstErr(q, o); err != nil {
		return failed(err)
	}
	v := q.si / o.si
	return derive(v, q.siUnit.Div(o.siUnit), q.unit.Div(o.unit), q.precision,
		chain(term{q, 1 / o.si}, term{o, -v / o.si}))
}

// Pow 乘方, 指数必须无量纲; 底数有量纲时指数须为整数
func (q *Quantity) Pow(o *Quantity) *Quantity {
	if err := firstErr(q, o); err != nil {
		return failed(err)
	}
	if !o.siUnit.IsDimensionless() {
		return failed(&UnitMismatchError{Op: "pow", Left: q.unit, Right: o.unit})
	}
	x, y := q.si, o.si
	siUnit, err := q.siUnit.PowReal(y)
	if err != nil {
		return failed(&DomainError{Op: "pow", Value: y, Err: err})
	}
	unit, err := q.unit.PowReal(y)
	if err != nil {
		unit = siUnit
	}
	v := math.Pow(x, y)
	if math.IsNaN(v) && !math.IsNaN(x) && !math.IsNaN(y) {
		return failed(&DomainError{Op: "pow", Value: x})
	}
	var dx, dy float64
	if y != 0 {
		dx = y * math.Pow(x, y-1)
	}
	if x > 0 {
		dy = v * math.Log(x)
	}
	return derive(v, siUnit, unit, q.precision, chain(term{q, dx}, term{o, dy}))
}

// Neg 取反
func (q *Quantity) Neg() *Quantity {
	if q.err != nil {
		return failed(q.err)
	}
	return derive(-q.si, q.siUnit, q.unit.Delta(), q.precision, chain(term{q, -1}))
}

// AddF 加无量纲常数
func (q *Quantity) AddF(v float64) *Quantity { return q.Add(Scalar(v)) }

// SubF 减无量纲常数
func (q *Quantity) SubF(v float64) *Quantity { return q.Sub(Scalar(v)) }

// MulF 乘常数
func (q *Quantity) MulF(v float64) *Quantity { return q.Mul(Scalar(v)) }

// DivF 除以常数
func (q *Quantity) DivF(v float64) *Quantity { return q.Div(Scalar(v)) }

// PowF 常数次幂
func (q *Quantity) PowF(v float64) *Quantity { return q.Pow(Scalar(v)) }
