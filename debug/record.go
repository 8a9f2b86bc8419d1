package debug

import (
	"encoding/json"
	"io"
	"log/slog"

	"causal/graph"
	"causal/solver"
)

// Step 单次迭代
type Step struct {
	Iter     int     `json:"iter"`
	Norm     float64 `json:"norm"`
	Cost     float64 `json:"cost"`
	Radius   float64 `json:"radius"`
	Accepted bool    `json:"accepted"`
}

// Record 记录结构与迭代历史
type Record struct {
	Equations []string      `json:"equations"` // 残差行
	Unknowns  []string      `json:"unknowns"`  // 未知量
	Incidence [][]int       `json:"incidence"` // 每行使用的未知量
	Match     []int         `json:"match"`     // 行 -> 匹配未知量
	Blocks    []graph.Block `json:"blocks"`
	History   [][]Step      `json:"history"` // 每块迭代记录
	Errors    []string      `json:"errors,omitempty"`

	off bool
}

// Init 初始化
func (list *Record) Init(inc *graph.Incidence, s *graph.Schedule) {
	list.Equations = append([]string(nil), inc.RowNames...)
	list.Unknowns = append([]string(nil), inc.ColNames...)
	list.Incidence = make([][]int, inc.Rows)
	for i := range inc.Rows {
		list.Incidence[i] = inc.Row(i)
	}
	list.Match, list.Blocks, list.History = nil, nil, nil
	if s != nil {
		list.Match = append([]int(nil), s.Match...)
		list.Blocks = append([]graph.Block(nil), s.Blocks...)
		list.History = make([][]Step, len(s.Blocks))
	}
}

func (list *Record) IsDebug() bool    { return !list.off }
func (list *Record) SetDebug(is bool) { list.off = !is }

// Update 记录一次迭代
func (list *Record) Update(block int, it solver.Iteration) {
	for len(list.History) <= block {
		list.History = append(list.History, nil)
	}
	list.History[block] = append(list.History[block], Step{
		Iter:     it.Iter,
		Norm:     it.Norm,
		Cost:     it.Cost,
		Radius:   it.Radius,
		Accepted: it.Accepted,
	})
}

// Render 输出 JSON
func (list *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(list) }

func (list *Record) Error(err error) {
	list.Errors = append(list.Errors, err.Error())
	slog.Warn("debug", slog.String("error", err.Error()))
}
