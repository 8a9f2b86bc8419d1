// Package debug 求解过程记录与可视化
package debug

import (
	"io"

	"causal/graph"
	"causal/solver"
)

// Debug 调试接口
type Debug interface {
	Init(inc *graph.Incidence, s *graph.Schedule) // 结构确定后调用
	IsDebug() bool
	SetDebug(is bool)
	Update(block int, it solver.Iteration) // 每次迭代调用
	Render(w io.Writer) error
	Error(err error)
}
