package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// 默认求解参数
var (
	Tolerance         = 1e-9  // 残差容差(相对残差尺度)
	GradientTolerance = 1e-12 // 投影梯度容差
	StepTolerance     = 1e-12 // 相对步长容差
	MaxIterations     = 100   // 最大迭代次数
	MaxRejected       = 20    // 最大连续拒绝步数
	InitialRadius     = 100.0 // 初始信赖域系数
)

// 信赖域参数
const (
	eta      = 1e-4 // 接受步的最小比值
	shrinkAt = 0.25
	growAt   = 0.75
	rcond    = 1e-12 // SVD 截断
)

var (
	ErrDimension = errors.New("solver: dimension mismatch")
	ErrEvaluate  = errors.New("solver: residual evaluation failed")
)

// Func 残差函数, 返回残差向量与雅可比矩阵(行数为残差数, 列数为变量数)
type Func func(x []float64) (r []float64, jac *mat.Dense, err error)

// Problem 有界非线性最小二乘问题
type Problem struct {
	X0    []float64 // 初值
	Lower []float64 // 下界, 可为空
	Upper []float64 // 上界, 可为空
	// Scale 当前点的残差尺度, 在同一 x 的 Eval 之后调用, 可为空
	// 第 i 个残差收敛条件为 |r_i| <= tol*max(1,Scale_i)
	Scale func(x []float64) []float64
	Eval  Func
}

// scaleAt 当前点的残差尺度
func (p Problem) scaleAt(x []float64, m int) ([]float64, error) {
	if p.Scale == nil {
		return nil, nil
	}
	s := p.Scale(x)
	if s != nil && len(s) != m {
		return nil, fmt.Errorf("%w: %d scales for %d residuals", ErrDimension, len(s), m)
	}
	return s, nil
}

// Iteration 迭代记录
type Iteration struct {
	Iter     int
	X        []float64
	Norm     float64 // 缩放后的残差无穷范数
	Cost     float64 // ½‖r‖²
	Radius   float64 // 信赖域半径
	Accepted bool
}

// Options 求解参数, 零值使用默认值
type Options struct {
	MaxIterations     int
	Tolerance         float64
	GradientTolerance float64
	StepTolerance     float64
	InitialRadius     float64
	MaxRejected       int
	OnIteration       func(Iteration)
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MaxIterations:     MaxIterations,
		Tolerance:         Tolerance,
		GradientTolerance: GradientTolerance,
		StepTolerance:     StepTolerance,
		InitialRadius:     InitialRadius,
		MaxRejected:       MaxRejected,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.GradientTolerance <= 0 {
		o.GradientTolerance = d.GradientTolerance
	}
	if o.StepTolerance <= 0 {
		o.StepTolerance = d.StepTolerance
	}
	if o.InitialRadius <= 0 {
		o.InitialRadius = d.InitialRadius
	}
	if o.MaxRejected <= 0 {
		o.MaxRejected = d.MaxRejected
	}
	return o
}

// Result 求解结果, X 始终为找到的最优点
type Result struct {
	X           []float64
	Residual    []float64
	Jacobian    *mat.Dense
	Status      Status
	Iterations  int
	Evaluations int
	Norm        float64 // 缩放后的残差无穷范数
	LastError   error   // 最近一次试探点求值错误
}

// Solve 有界狗腿信赖域法求解 min ½‖r(x)‖², lower <= x <= upper
// 信赖域按雅可比列范数缩放; 高斯牛顿步由 SVD 最小范数解得到, 处于有效边界的变量不参与该步
func Solve(ctx context.Context, p Problem, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	n := len(p.X0)
	lo, hi, err := bounds(p, n)
	if err != nil {
		return nil, err
	}
	x := make([]float64, n)
	copy(x, p.X0)
	project(x, lo, hi)

	r, jac, err := p.Eval(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEvaluate, err)
	}
	if jac == nil {
		return nil, fmt.Errorf("%w: missing jacobian", ErrDimension)
	}
	if jr, jc := jac.Dims(); jr != len(r) || jc != n {
		return nil, fmt.Errorf("%w: jacobian %dx%d for %d residuals, %d variables", ErrDimension, jr, jc, len(r), n)
	}
	scale, err := p.scaleAt(x, len(r))
	if err != nil {
		return nil, err
	}

	res := &Result{Evaluations: 1}
	cost := 0.5 * floats.Dot(r, r)
	diag := make([]float64, n)
	rescale(diag, jac)
	radius := opts.InitialRadius * math.Max(scaledLength(diag, x), 1)
	rejected := 0
	finish := func(status Status) (*Result, error) {
		res.X, res.Residual, res.Jacobian, res.Status = x, r, jac, status
		res.Norm = scaledNorm(r, scale)
		return res, nil
	}

	for iter := 0; ; iter++ {
		res.Iterations = iter
		if err := ctx.Err(); err != nil {
			out, _ := finish(Stalled)
			return out, fmt.Errorf("solver: %w", err)
		}
		if scaledNorm(r, scale) <= opts.Tolerance {
			return finish(Converged)
		}
		g := gradient(jac, r)
		if projectedGradient(x, g, lo, hi) <= opts.GradientTolerance {
			return finish(GradientConverged)
		}
		if iter >= opts.MaxIterations {
			return finish(IterationLimit)
		}

		step := dogleg(jac, r, g, diag, x, lo, hi, radius)
		xn := make([]float64, n)
		floats.AddTo(xn, x, step)
		project(xn, lo, hi)
		floats.SubTo(step, xn, x)
		stepNorm := scaledLength(diag, step)

		accepted := false
		var rn []float64
		var jn *mat.Dense
		var costn float64
		if stepNorm > 0 {
			rn, jn, err = p.Eval(xn)
			res.Evaluations++
			costn = math.Inf(1)
			if err != nil {
				res.LastError = err
			} else if len(rn) == len(r) {
				costn = 0.5 * floats.Dot(rn, rn)
			}
			pred := cost - 0.5*predicted(jac, r, step)
			rho := -1.0
			if pred > 0 && !math.IsNaN(costn) {
				rho = (cost - costn) / pred
			}
			switch {
			case rho < shrinkAt:
				radius = shrinkAt * stepNorm
			case rho > growAt && stepNorm >= 0.99*radius:
				radius *= 2
			}
			accepted = rho > eta
		} else {
			radius *= shrinkAt
		}

		if accepted {
			if scale, err = p.scaleAt(xn, len(rn)); err != nil {
				return nil, err
			}
			x, r, jac, cost = xn, rn, jn, costn
			rescale(diag, jac)
			rejected = 0
		} else {
			rejected++
		}
		if opts.OnIteration != nil {
			opts.OnIteration(Iteration{
				Iter:     iter,
				X:        append([]float64(nil), x...),
				Norm:     scaledNorm(r, scale),
				Cost:     cost,
				Radius:   radius,
				Accepted: accepted,
			})
		}
		if accepted && stepNorm <= opts.StepTolerance*(scaledLength(diag, x)+opts.StepTolerance) {
			res.Iterations = iter + 1
			if scaledNorm(r, scale) <= opts.Tolerance {
				return finish(Converged)
			}
			return finish(StepConverged)
		}
		if rejected >= opts.MaxRejected || radius == 0 {
			res.Iterations = iter + 1
			return finish(Stalled)
		}
	}
}

// bounds 上下界, 缺省为无穷
func bounds(p Problem, n int) (lo, hi []float64, err error) {
	lo, hi = p.Lower, p.Upper
	if lo == nil {
		lo = filled(n, math.Inf(-1))
	}
	if hi == nil {
		hi = filled(n, math.Inf(1))
	}
	if len(lo) != n || len(hi) != n {
		return nil, nil, fmt.Errorf("%w: bounds %d/%d for %d variables", ErrDimension, len(lo), len(hi), n)
	}
	for i := range n {
		if lo[i] > hi[i] {
			return nil, nil, fmt.Errorf("%w: lower %g above upper %g at %d", ErrDimension, lo[i], hi[i], i)
		}
	}
	return lo, hi, nil
}

// dogleg 缩放变量 y = D·x 下的狗腿步, 返回原变量下的步长
func dogleg(jac *mat.Dense, r, g, diag, x, lo, hi []float64, radius float64) []float64 {
	m, n := jac.Dims()
	// 有效边界上且梯度指向外侧的变量固定
	free := make([]bool, n)
	jf := mat.NewDense(m, n, nil)
	gf := make([]float64, n)
	for i := range n {
		free[i] = !(x[i] <= lo[i] && g[i] > 0) && !(x[i] >= hi[i] && g[i] < 0)
		if !free[i] {
			continue
		}
		gf[i] = g[i] / diag[i]
		for k := range m {
			jf.Set(k, i, jac.At(k, i)/diag[i])
		}
	}

	// 高斯牛顿步: 最小范数解 Jf p = -r
	gn := make([]float64, n)
	var svd mat.SVD
	if svd.Factorize(jf, mat.SVDThin) {
		if rank := svd.Rank(rcond); rank > 0 {
			neg := make([]float64, m)
			floats.ScaleTo(neg, -1, r)
			dst := mat.NewVecDense(n, nil)
			svd.SolveVecTo(dst, mat.NewVecDense(m, neg), rank)
			for i := range n {
				if free[i] {
					gn[i] = dst.AtVec(i)
				}
			}
		}
	}
	if floats.Norm(gn, 2) <= radius {
		return unscale(gn, diag)
	}

	// 柯西步
	gnorm := floats.Norm(gf, 2)
	if gnorm == 0 {
		floats.Scale(radius/floats.Norm(gn, 2), gn)
		return unscale(gn, diag)
	}
	var jg mat.VecDense
	jg.MulVec(jf, mat.NewVecDense(n, gf))
	jgg := mat.Dot(&jg, &jg)
	alpha := gnorm * gnorm / jgg
	if jgg == 0 || alpha*gnorm >= radius {
		out := make([]float64, n)
		floats.ScaleTo(out, -radius/gnorm, gf)
		return unscale(out, diag)
	}
	pc := make([]float64, n)
	floats.ScaleTo(pc, -alpha, gf)

	// pc + tau*(gn-pc), ‖·‖ = radius
	d := make([]float64, n)
	floats.SubTo(d, gn, pc)
	a := floats.Dot(d, d)
	b := 2 * floats.Dot(pc, d)
	c := floats.Dot(pc, pc) - radius*radius
	tau := 1.0
	if a > 0 {
		tau = (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
	}
	floats.AddScaled(pc, tau, d)
	return unscale(pc, diag)
}

// rescale 变量缩放取雅可比列范数的历史最大值, 零列取 1
func rescale(diag []float64, jac *mat.Dense) {
	for j := range diag {
		c := mat.Norm(jac.ColView(j), 2)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			c = 0
		}
		diag[j] = math.Max(diag[j], c)
		if diag[j] == 0 {
			diag[j] = 1
		}
	}
}

// scaledLength ‖D·v‖
func scaledLength(diag, v []float64) float64 {
	var sum float64
	for i, d := range diag {
		t := d * v[i]
		sum += t * t
	}
	return math.Sqrt(sum)
}

// unscale y -> x
func unscale(y, diag []float64) []float64 {
	floats.Div(y, diag)
	return y
}

// gradient Jᵀr
func gradient(jac *mat.Dense, r []float64) []float64 {
	_, n := jac.Dims()
	g := mat.NewVecDense(n, nil)
	g.MulVec(jac.T(), mat.NewVecDense(len(r), r))
	return g.RawVector().Data
}

// predicted ‖r + J s‖²
func predicted(jac *mat.Dense, r, s []float64) float64 {
	var js mat.VecDense
	js.MulVec(jac, mat.NewVecDense(len(s), s))
	var sum float64
	for i, v := range r {
		t := v + js.AtVec(i)
		sum += t * t
	}
	return sum
}

// projectedGradient ‖P(x-g)-x‖∞
func projectedGradient(x, g, lo, hi []float64) float64 {
	var m float64
	for i := range x {
		v := math.Min(math.Max(x[i]-g[i], lo[i]), hi[i])
		m = math.Max(m, math.Abs(v-x[i]))
	}
	return m
}

// scaledNorm 缩放残差无穷范数, NaN 视为无穷
func scaledNorm(r, scale []float64) float64 {
	var m float64
	for i, v := range r {
		s := 1.0
		if scale != nil && math.Abs(scale[i]) > 1 && !math.IsInf(scale[i], 0) {
			s = math.Abs(scale[i])
		}
		a := math.Abs(v) / s
		if math.IsNaN(a) {
			return math.Inf(1)
		}
		m = math.Max(m, a)
	}
	return m
}

// project 投影到盒约束内
func project(x, lo, hi []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lo[i]), hi[i])
	}
}

func filled(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
