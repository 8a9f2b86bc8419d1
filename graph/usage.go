package graph

import (
	"fmt"
)

// Usage 未知量使用统计: 在两个探测点分别有多少残差依赖它
type Usage struct {
	Unknown string
	Col     int
	Count   int // 当前点
	Shifted int // 偏移点
}

func (u Usage) String() string {
	return fmt.Sprintf("%s: %d/%d", u.Unknown, u.Count, u.Shifted)
}

// UsageReport 变量使用统计
// inc 为当前点的关联矩阵, 为空时重新探测; 第二个探测点由全部未知量偏移 Shift 得到, 结束后恢复
func UsageReport(m Model, inc *Incidence, opts Options) ([]Usage, error) {
	opts = opts.withDefaults()
	if inc == nil {
		a, err := Analyze(m, opts)
		if err != nil {
			return nil, err
		}
		inc = a.Incidence
	}
	shifted, err := analyzeShifted(m, opts)
	if err != nil {
		return nil, err
	}
	usage := make([]Usage, inc.Cols)
	for j := range inc.Cols {
		usage[j] = Usage{
			Unknown: m.UnknownName(j),
			Col:     j,
			Count:   len(inc.Col(j)),
			Shifted: len(shifted.Col(j)),
		}
	}
	return usage, nil
}

// analyzeShifted 在偏移点探测
func analyzeShifted(m Model, opts Options) (*Incidence, error) {
	xs := m.UnknownQuantities()
	saved := make([]float64, len(xs))
	for i, q := range xs {
		saved[i] = q.SI()
	}
	defer func() {
		for i, q := range xs {
			q.SetSI(saved[i])
		}
	}()
	for _, q := range xs {
		q.SetSI(perturb(q, opts.Shift))
	}
	a, err := Analyze(m, opts)
	if err != nil {
		return nil, err
	}
	return a.Incidence, nil
}
