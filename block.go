package causal

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"

	"causal/graph"
	"causal/quantity"
	"causal/solver"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"
)

// solveBlock 求解第 k 块, 写回最优解并附加灵敏度
// 不收敛不是错误; 返回的错误为致命错误
func (s *System) solveBlock(ctx context.Context, k int, b graph.Block) (BlockReport, []BoundActiveWarning, error) {
	start := time.Now()
	xs := make([]*quantity.Quantity, len(b.Cols))
	br := BlockReport{Index: k}
	for i, c := range b.Cols {
		xs[i] = s.col.Unknowns[c].Q
		br.Unknowns = append(br.Unknowns, s.col.UnknownName(c))
	}
	for _, r := range b.Rows {
		br.Equations = append(br.Equations, s.col.RowName(r))
	}
	ctx, span := tracer.Start(ctx, "causal.Block",
		trace.WithAttributes(attribute.Int("causal.block", k), attribute.Int("causal.size", b.Size())))
	defer span.End()
	fail := func(err error) (BlockReport, []BoundActiveWarning, error) {
		err = &BlockError{Block: k, Unknowns: br.Unknowns, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return br, nil, err
	}

	// 尺度取自最近一次求值, x 不同时重新求值
	var lastX, lastScale []float64
	p := solver.Problem{
		X0:    make([]float64, len(xs)),
		Lower: make([]float64, len(xs)),
		Upper: make([]float64, len(xs)),
		Eval: func(x []float64) ([]float64, *mat.Dense, error) {
			for i, q := range xs {
				q.SetSI(x[i])
			}
			res, scale, err := s.col.Evaluate(b.Rows)
			if err != nil {
				return nil, nil, err
			}
			lastX, lastScale = slices.Clone(x), scale
			return residuals(res), jacobian(res, xs), nil
		},
		Scale: func(x []float64) []float64 {
			if slices.Equal(x, lastX) {
				return lastScale
			}
			for i, q := range xs {
				q.SetSI(x[i])
			}
			scale, err := s.col.Scales(b.Rows)
			if err != nil {
				return nil
			}
			lastX, lastScale = slices.Clone(x), scale
			return scale
		},
	}
	for i, q := range xs {
		p.X0[i] = q.SI()
		p.Lower[i], p.Upper[i] = q.SIBounds()
	}

	opts := s.cfg.solverOptions()
	if s.debugging() {
		opts.OnIteration = func(it solver.Iteration) { s.debug.Update(k, it) }
	}
	res, err := solver.Solve(ctx, p, opts)
	if err != nil {
		return fail(err)
	}
	for i, q := range xs {
		q.SetSI(res.X[i])
	}
	br.Status = res.Status
	br.Iterations = res.Iterations
	br.Evaluations = res.Evaluations
	br.Residual = res.Norm
	blocksTotal.WithLabelValues(res.Status.String()).Inc()
	blockIterations.Observe(float64(res.Iterations))

	// 最优点处的残差账本, 用于灵敏度
	final, err := s.col.EvaluateRows(b.Rows)
	if err != nil {
		return fail(err)
	}
	active := make([]bool, len(xs))
	var warns []BoundActiveWarning
	for i, q := range xs {
		if w, ok := s.boundWarning(b.Cols[i], q); ok {
			active[i] = true
			warns = append(warns, w)
		}
	}
	sensitivity(final, xs, active)
	for _, q := range xs {
		q.MarkSolved(true)
	}

	br.Duration = time.Since(start)
	if !res.Status.OK() {
		attrs := []any{
			slog.Int("block", k+1),
			slog.Any("unknowns", br.Unknowns),
			slog.String("status", res.Status.String()),
			slog.Float64("residual", res.Norm),
		}
		if res.LastError != nil {
			attrs = append(attrs, slog.String("last_error", res.LastError.Error()))
		}
		s.logger.Warn("block not converged", attrs...)
	}
	for _, w := range warns {
		s.logger.Warn("bound active", slog.String("quantity", w.Quantity), slog.String("side", string(w.Side)))
	}
	span.SetAttributes(attribute.String("causal.status", res.Status.String()), attribute.Int("causal.iterations", res.Iterations))
	return br, warns, nil
}

// boundWarning 判断是否处于边界, 先查下界, 同一量至多一条警告
func (s *System) boundWarning(col int, q *quantity.Quantity) (BoundActiveWarning, bool) {
	lo, hi := q.SIBounds()
	dlo, dhi := q.Bounds()
	x := q.SI()
	w := BoundActiveWarning{Quantity: s.col.UnknownName(col), Unit: q.Unit().String()}
	switch {
	case !math.IsInf(lo, -1) && x <= lo+s.cfg.BoundTolerance*math.Max(1, math.Abs(lo)):
		w.Side, w.Bound = Lower, dlo
	case !math.IsInf(hi, 1) && x >= hi-s.cfg.BoundTolerance*math.Max(1, math.Abs(hi)):
		w.Side, w.Bound = Upper, dhi
	default:
		return w, false
	}
	return w, true
}

func residuals(res []*quantity.Quantity) []float64 {
	r := make([]float64, len(res))
	for i, q := range res {
		r[i] = q.SI()
	}
	return r
}

// jacobian 由账本得到 ∂r/∂x
func jacobian(res, xs []*quantity.Quantity) *mat.Dense {
	jac := mat.NewDense(len(res), len(xs), nil)
	for i, r := range res {
		for j, x := range xs {
			jac.Set(i, j, r.Derivative(x))
		}
	}
	return jac
}

// sensitivity 隐函数灵敏度 ∂x/∂p = -J_x⁺ J_p, p 为用户输入
// 处于边界的变量由边界确定, 灵敏度为零
func sensitivity(res, xs []*quantity.Quantity, active []bool) {
	roots := map[quantity.ID]*quantity.Quantity{}
	for _, r := range res {
		for id, p := range r.Ledger() {
			if p.Root != nil && p.Root.IsInput() {
				roots[id] = p.Root
			}
		}
	}
	ids := make([]quantity.ID, 0, len(roots))
	for id := range roots {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	ledgers := make([]quantity.Ledger, len(xs))
	for i := range ledgers {
		ledgers[i] = quantity.Ledger{}
	}
	if len(ids) > 0 && len(res) > 0 {
		jx := jacobian(res, xs)
		for j := range xs {
			if active[j] {
				for i := range res {
					jx.Set(i, j, 0)
				}
			}
		}
		jp := mat.NewDense(len(res), len(ids), nil)
		for i, r := range res {
			for c, id := range ids {
				jp.Set(i, c, r.Derivative(roots[id]))
			}
		}
		var svd mat.SVD
		if svd.Factorize(jx, mat.SVDThin) {
			if rank := svd.Rank(1e-12); rank > 0 {
				var sol mat.Dense
				svd.SolveTo(&sol, jp, rank)
				for j := range xs {
					if active[j] {
						continue
					}
					for c, id := range ids {
						if d := -sol.At(j, c); d != 0 {
							ledgers[j][id] = quantity.Partial{Root: roots[id], D: d}
						}
					}
				}
			}
		}
	}
	for i, q := range xs {
		q.SetSensitivity(ledgers[i])
	}
}
