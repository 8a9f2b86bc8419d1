package model

import (
	"fmt"
	"math"

	"causal/quantity"
)

// Row 残差行: 方程 Equation 第 Group 个等值组中 group[0]-group[Member]
type Row struct {
	Equation int
	Group    int
	Member   int
}

// layout 残差布局
type layout struct {
	rows    []Row
	offsets []int // 每个方程的首行
	counts  []int // 每个方程的行数
}

// Layout 残差布局, 首次调用时对全部方程求值一次
func (c *Collection) Layout() ([]Row, error) {
	if c.layout == nil {
		l := &layout{offsets: make([]int, len(c.Equations)), counts: make([]int, len(c.Equations))}
		for i := range c.Equations {
			groups, err := c.call(i)
			if err != nil {
				return nil, err
			}
			l.offsets[i] = len(l.rows)
			for g, group := range groups {
				for m := 1; m < len(group); m++ {
					l.rows = append(l.rows, Row{Equation: i, Group: g, Member: m})
				}
			}
			l.counts[i] = len(l.rows) - l.offsets[i]
		}
		c.layout = l
	}
	return c.layout.rows, nil
}

// NumRows 残差行数
func (c *Collection) NumRows() (int, error) {
	rows, err := c.Layout()
	return len(rows), err
}

// RowName 残差行的可读名称
func (c *Collection) RowName(row int) string {
	if c.layout == nil || row < 0 || row >= len(c.layout.rows) {
		return fmt.Sprintf("row%d", row)
	}
	r := c.layout.rows[row]
	path := c.Equations[r.Equation].Path
	if c.layout.counts[r.Equation] == 1 {
		return path
	}
	return fmt.Sprintf("%s[%d.%d]", path, r.Group, r.Member)
}

// EvaluateAll 计算全部残差
func (c *Collection) EvaluateAll() ([]*quantity.Quantity, error) {
	n, err := c.NumRows()
	if err != nil {
		return nil, err
	}
	out := make([]*quantity.Quantity, 0, n)
	for i := range c.Equations {
		res, _, err := c.residuals(i)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// EvaluateRows 计算指定残差行, 只对涉及的方程求值, 结果按 rows 顺序排列
func (c *Collection) EvaluateRows(rows []int) ([]*quantity.Quantity, error) {
	res, _, err := c.Evaluate(rows)
	return res, err
}

// Scales 当前点的残差尺度
func (c *Collection) Scales(rows []int) ([]float64, error) {
	_, scales, err := c.Evaluate(rows)
	return scales, err
}

// Evaluate 计算指定残差行及其尺度, 尺度为等值组中两侧绝对值的较大者, 用于相对收敛判定
func (c *Collection) Evaluate(rows []int) ([]*quantity.Quantity, []float64, error) {
	if _, err := c.Layout(); err != nil {
		return nil, nil, err
	}
	type evaluated struct {
		res    []*quantity.Quantity
		scales []float64
	}
	cache := map[int]evaluated{}
	out := make([]*quantity.Quantity, len(rows))
	scales := make([]float64, len(rows))
	for k, row := range rows {
		if row < 0 || row >= len(c.layout.rows) {
			return nil, nil, fmt.Errorf("model: residual row %d out of range", row)
		}
		eq := c.layout.rows[row].Equation
		e, ok := cache[eq]
		if !ok {
			var err error
			if e.res, e.scales, err = c.residuals(eq); err != nil {
				return nil, nil, err
			}
			cache[eq] = e
		}
		out[k] = e.res[row-c.layout.offsets[eq]]
		scales[k] = e.scales[row-c.layout.offsets[eq]]
	}
	return out, scales, nil
}

// residuals 单个方程的残差与尺度, 行数必须与布局一致
func (c *Collection) residuals(i int) ([]*quantity.Quantity, []float64, error) {
	groups, err := c.call(i)
	if err != nil {
		return nil, nil, err
	}
	path := c.Equations[i].Path
	res := make([]*quantity.Quantity, 0, c.layout.counts[i])
	scales := make([]float64, 0, c.layout.counts[i])
	for g, group := range groups {
		for m := 1; m < len(group); m++ {
			r := group[0].Sub(group[m])
			if err := r.Err(); err != nil {
				return nil, nil, &EquationError{Path: path, Err: fmt.Errorf("group %d: %w", g, err)}
			}
			res = append(res, r)
			scales = append(scales, math.Max(math.Abs(group[0].SI()), math.Abs(group[m].SI())))
		}
	}
	if len(res) != c.layout.counts[i] {
		return nil, nil, &EquationError{Path: path,
			Err: fmt.Errorf("%w: %d != %d", ErrUnstableResiduals, len(res), c.layout.counts[i])}
	}
	return res, scales, nil
}

// call 调用方程, 捕获 panic 并检查等值组
func (c *Collection) call(i int) (groups []quantity.Group, err error) {
	be := c.Equations[i]
	defer func() {
		if r := recover(); r != nil {
			groups = nil
			err = &EquationError{Path: be.Path, Err: fmt.Errorf("%w: %v", ErrEquationPanic, r)}
		}
	}()
	groups = be.Equation.Fn()
	if len(groups) == 0 {
		return nil, &EquationError{Path: be.Path, Err: ErrNoGroups}
	}
	for g, group := range groups {
		if len(group) < 2 {
			return nil, &EquationError{Path: be.Path, Err: fmt.Errorf("%w: group %d", ErrGroupSize, g)}
		}
		for _, q := range group {
			if q == nil {
				return nil, &EquationError{Path: be.Path, Err: fmt.Errorf("%w: group %d", ErrNilQuantity, g)}
			}
		}
	}
	return groups, nil
}
