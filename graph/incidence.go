package graph

import (
	"strings"
)

// Incidence 关联矩阵, 行为残差, 列为未知量
type Incidence struct {
	Rows, Cols int
	RowNames   []string // 残差名称
	ColNames   []string // 未知量名称
	cells      []bool
}

// NewIncidence 创建关联矩阵
func NewIncidence(rows, cols int) *Incidence {
	return &Incidence{Rows: rows, Cols: cols, cells: make([]bool, rows*cols)}
}

// Set 设置元素
func (m *Incidence) Set(i, j int, v bool) { m.cells[i*m.Cols+j] = v }

// At 读取元素
func (m *Incidence) At(i, j int) bool { return m.cells[i*m.Cols+j] }

// Row 第 i 行用到的未知量(升序)
func (m *Incidence) Row(i int) []int {
	var cols []int
	for j := range m.Cols {
		if m.At(i, j) {
			cols = append(cols, j)
		}
	}
	return cols
}

// Col 用到第 j 个未知量的残差(升序)
func (m *Incidence) Col(j int) []int {
	var rows []int
	for i := range m.Rows {
		if m.At(i, j) {
			rows = append(rows, i)
		}
	}
	return rows
}

// Equal 结构是否一致
func (m *Incidence) Equal(o *Incidence) bool {
	if o == nil || m.Rows != o.Rows || m.Cols != o.Cols {
		return false
	}
	for k, v := range m.cells {
		if o.cells[k] != v {
			return false
		}
	}
	return true
}

// Permute 按行列顺序重排, 匹配后主对角线全为1
func (m *Incidence) Permute(rows, cols []int) *Incidence {
	p := NewIncidence(len(rows), len(cols))
	for a, i := range rows {
		for b, j := range cols {
			p.Set(a, b, m.At(i, j))
		}
	}
	return p
}

// String 矩阵文本, X 表示相关
func (m *Incidence) String() string {
	var b strings.Builder
	for i := range m.Rows {
		for j := range m.Cols {
			if m.At(i, j) {
				b.WriteByte('X')
			} else {
				b.WriteByte('.')
			}
		}
		if i < len(m.RowNames) {
			b.WriteString("  ")
			b.WriteString(m.RowNames[i])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
