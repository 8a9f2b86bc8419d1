package graph

import (
	"fmt"
	"math"

	"causal/quantity"
)

// Model 结构探测所需的模型视图
type Model interface {
	EvaluateAll() ([]*quantity.Quantity, error) // 全部残差
	UnknownQuantities() []*quantity.Quantity    // 未知量
	RowName(row int) string                     // 残差名称
	UnknownName(col int) string                 // 未知量名称
}

// 默认探测参数
var (
	ProbeStep  = 1e-3 // 相对探测步长
	ProbeShift = 0.1  // 使用统计第二探测点的相对偏移
)

// Options 探测参数
type Options struct {
	Step  float64 // 相对探测步长
	Shift float64 // 第二探测点偏移
}

func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = ProbeStep
	}
	if o.Shift <= 0 {
		o.Shift = ProbeShift
	}
	return o
}

// Analysis 结构探测结果
type Analysis struct {
	Incidence   *Incidence
	Evaluations int // 方程求值次数
}

// Analyze 逐个扰动未知量并比较残差, 得到关联矩阵
// 每次扰动后未知量恢复为原值, 方程出错或 panic 时同样恢复
func Analyze(m Model, opts Options) (*Analysis, error) {
	opts = opts.withDefaults()
	r0, err := evaluate(m)
	if err != nil {
		return nil, err
	}
	xs := m.UnknownQuantities()
	inc := NewIncidence(len(r0), len(xs))
	for i := range inc.Rows {
		inc.RowNames = append(inc.RowNames, m.RowName(i))
	}
	for j := range inc.Cols {
		inc.ColNames = append(inc.ColNames, m.UnknownName(j))
	}
	a := &Analysis{Incidence: inc, Evaluations: 1}
	for j, q := range xs {
		r, err := probe(m, q, opts.Step)
		a.Evaluations++
		if err != nil {
			return nil, fmt.Errorf("graph: probing %s: %w", m.UnknownName(j), err)
		}
		if len(r) != len(r0) {
			return nil, fmt.Errorf("graph: probing %s: residual count %d != %d", m.UnknownName(j), len(r), len(r0))
		}
		for i := range r0 {
			if changed(r0[i], r[i]) {
				inc.Set(i, j, true)
			}
		}
	}
	return a, nil
}

// probe 扰动单个未知量后求值, 返回前恢复原值
func probe(m Model, q *quantity.Quantity, step float64) ([]float64, error) {
	x := q.SI()
	defer q.SetSI(x)
	q.SetSI(perturb(q, step))
	return evaluate(m)
}

// perturb 扰动后的取值
// 偏移量 step*max(1,|x|), 超出上界时反向, 两侧都放不下时取较宽一侧的边界
// 上下界重合时仍向外扰动, 保证结构可见
func perturb(q *quantity.Quantity, step float64) float64 {
	x := q.SI()
	lo, hi := q.SIBounds()
	d := step * math.Max(1, math.Abs(x))
	switch {
	case x+d <= hi:
		return x + d
	case x-d >= lo:
		return x - d
	case hi-x > 0 && hi-x >= x-lo:
		return hi
	case x-lo > 0:
		return lo
	}
	return x + d
}

// changed 残差是否变化, 两个 NaN 视为未变
func changed(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return false
	}
	return a != b
}

func evaluate(m Model) ([]float64, error) {
	res, err := m.EvaluateAll()
	if err != nil {
		return nil, err
	}
	r := make([]float64, len(res))
	for i, q := range res {
		r[i] = q.SI()
	}
	return r, nil
}
