package causal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"causal/solver"
)

// Side 边界方向
type Side string

const (
	Lower Side = "lower"
	Upper Side = "upper"
)

// BoundActiveWarning 求解结果处于(或越过)边界
type BoundActiveWarning struct {
	Quantity string  `json:"quantity"`
	Side     Side    `json:"side"`
	Bound    float64 `json:"bound"` // 显示单位
	Unit     string  `json:"unit"`
}

func (w BoundActiveWarning) String() string {
	b := strconv.FormatFloat(w.Bound, 'g', -1, 64)
	if w.Unit != "" {
		b += " " + w.Unit
	}
	return fmt.Sprintf("%s at %s bound %s", w.Quantity, w.Side, b)
}

// BlockReport 单块求解结果
type BlockReport struct {
	Index       int           `json:"index"`
	Equations   []string      `json:"equations"`
	Unknowns    []string      `json:"unknowns"`
	Status      solver.Status `json:"status"`
	Iterations  int           `json:"iterations"`
	Evaluations int           `json:"evaluations"`
	Residual    float64       `json:"residual"` // 缩放残差无穷范数
	Duration    time.Duration `json:"duration"`
}

// Report 一轮求解的结果
type Report struct {
	Blocks           []BlockReport        `json:"blocks"`
	Warnings         []BoundActiveWarning `json:"warnings"`
	StructureChanged bool                 `json:"structure_changed"` // 不收敛后重新探测发现结构变化
	Duration         time.Duration        `json:"duration"`
}

// Converged 全部块均收敛
func (r *Report) Converged() bool {
	for _, b := range r.Blocks {
		if !b.Status.OK() {
			return false
		}
	}
	return true
}

// Render 文本表格输出
func (r *Report) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BLOCK\tUNKNOWNS\tSTATUS\tITER\tEVAL\tRESIDUAL")
	for _, b := range r.Blocks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.3g\n", b.Index+1, strings.Join(b.Unknowns, ","),
			b.Status, b.Iterations, b.Evaluations, b.Residual)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warn := range r.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	if r.StructureChanged {
		if _, err := fmt.Fprintln(w, "warning: structure changed, schedule will be rebuilt"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "solved %d blocks in %s\n", len(r.Blocks), r.Duration)
	return err
}
