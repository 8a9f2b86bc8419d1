package quantity

import (
	"math"

	"causal/units"
)

// Sqrt 平方根, 参数有量纲时返回 DomainError
func Sqrt(q *Quantity) *Quantity { return q.PowF(0.5) }

// Abs 绝对值, 零点处导数取0
func Abs(q *Quantity) *Quantity {
	if q.err != nil {
		return failed(q.err)
	}
	var d float64
	switch {
	case q.si > 0:
		d = 1
	case q.si < 0:
		d = -1
	}
	return derive(math.Abs(q.si), q.siUnit, q.unit, q.precision, chain(term{q, d}))
}

// Exp 指数, 参数须无量纲
func Exp(q *Quantity) *Quantity {
	return transcend(q, "exp", math.Exp, math.Exp, nil)
}

// Log 自然对数, 参数须无量纲且为正
func Log(q *Quantity) *Quantity {
	return transcend(q, "log", math.Log, func(x float64) float64 { return 1 / x },
		func(x float64) bool { return x > 0 })
}

// Sin 正弦, 参数为弧度
func Sin(q *Quantity) *Quantity {
	return transcend(q, "sin", math.Sin, math.Cos, nil)
}

// Cos 余弦, 参数为弧度
func Cos(q *Quantity) *Quantity {
	return transcend(q, "cos", math.Cos, func(x float64) float64 { return -math.Sin(x) }, nil)
}

// transcend 无量纲单参数函数
func transcend(q *Quantity, op string, f, df func(float64) float64, domain func(float64) bool) *Quantity {
	if q.err != nil {
		return failed(q.err)
	}
	if !q.siUnit.IsDimensionless() {
		return failed(&UnitMismatchError{Op: op, Left: q.unit, Right: units.Dimensionless})
	}
	if domain != nil && !domain(q.si) {
		return failed(&DomainError{Op: op, Value: q.si})
	}
	return derive(f(q.si), units.Dimensionless, units.Dimensionless, q.precision,
		chain(term{q, df(q.si)}))
}
