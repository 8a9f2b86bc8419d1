package debug

import (
	"errors"
	"io"

	"causal/graph"
	"causal/solver"
)

// Multi 同时驱动多个调试记录, Render 依次输出
type Multi []Debug

func (m Multi) Init(inc *graph.Incidence, s *graph.Schedule) {
	for _, d := range m {
		if d.IsDebug() {
			d.Init(inc, s)
		}
	}
}

func (m Multi) IsDebug() bool {
	for _, d := range m {
		if d.IsDebug() {
			return true
		}
	}
	return false
}

func (m Multi) SetDebug(is bool) {
	for _, d := range m {
		d.SetDebug(is)
	}
}

func (m Multi) Update(block int, it solver.Iteration) {
	for _, d := range m {
		if d.IsDebug() {
			d.Update(block, it)
		}
	}
}

func (m Multi) Render(w io.Writer) error {
	var errs []error
	for _, d := range m {
		errs = append(errs, d.Render(w))
	}
	return errors.Join(errs...)
}

func (m Multi) Error(err error) {
	for _, d := range m {
		d.Error(err)
	}
}
