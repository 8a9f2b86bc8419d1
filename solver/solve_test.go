package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linear x+y=10, x-y=2
func linear(x []float64) ([]float64, *mat.Dense, error) {
	r := []float64{x[0] + x[1] - 10, x[0] - x[1] - 2}
	return r, mat.NewDense(2, 2, []float64{1, 1, 1, -1}), nil
}

func rosenbrock(x []float64) ([]float64, *mat.Dense, error) {
	r := []float64{10 * (x[1] - x[0]*x[0]), 1 - x[0]}
	return r, mat.NewDense(2, 2, []float64{-20 * x[0], 10, -1, 0}), nil
}

func scalar(target float64) Func {
	return func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{x[0] - target}, mat.NewDense(1, 1, []float64{1}), nil
	}
}

func TestLinearBlock(t *testing.T) {
	res, err := Solve(context.Background(), Problem{X0: []float64{0, 0}, Eval: linear}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.InDelta(t, 6, res.X[0], 1e-12)
	assert.InDelta(t, 4, res.X[1], 1e-12)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 2, res.Evaluations)
}

func TestRosenbrock(t *testing.T) {
	var history []Iteration
	opts := Options{OnIteration: func(it Iteration) { history = append(history, it) }}
	res, err := Solve(context.Background(), Problem{X0: []float64{-1.2, 1}, Eval: rosenbrock}, opts)
	require.NoError(t, err)
	assert.True(t, res.Status.OK(), res.Status.String())
	assert.InDelta(t, 1, res.X[0], 1e-8)
	assert.InDelta(t, 1, res.X[1], 1e-8)
	require.NotEmpty(t, history)
	assert.Equal(t, res.Iterations, len(history))
}

func TestUpperBoundActive(t *testing.T) {
	p := Problem{X0: []float64{0}, Upper: []float64{3}, Eval: scalar(5)}
	res, err := Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, GradientConverged, res.Status)
	assert.Equal(t, 3.0, res.X[0])
	assert.InDelta(t, -2, res.Residual[0], 1e-15)
}

func TestPinnedVariable(t *testing.T) {
	p := Problem{X0: []float64{0}, Lower: []float64{2}, Upper: []float64{2}, Eval: scalar(7)}
	res, err := Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, GradientConverged, res.Status)
	assert.Equal(t, 2.0, res.X[0])
	assert.Equal(t, 0, res.Iterations)
}

func TestIterationLimit(t *testing.T) {
	res, err := Solve(context.Background(), Problem{X0: []float64{-1.2, 1}, Eval: rosenbrock}, Options{MaxIterations: 1})
	require.NoError(t, err)
	assert.Equal(t, IterationLimit, res.Status)
	assert.False(t, res.Status.OK())
	assert.Len(t, res.X, 2)
}

func TestStalledOnWrongJacobian(t *testing.T) {
	bad := func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{x[0] - 1}, mat.NewDense(1, 1, []float64{-1}), nil
	}
	res, err := Solve(context.Background(), Problem{X0: []float64{0}, Eval: bad}, Options{MaxRejected: 5})
	require.NoError(t, err)
	assert.Equal(t, Stalled, res.Status)
	// 始终返回最优点
	assert.Equal(t, 0.0, res.X[0])
}

func TestResidualScale(t *testing.T) {
	big := func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{x[0] - 2e5}, mat.NewDense(1, 1, []float64{1}), nil
	}
	p := Problem{X0: []float64{2e5 + 1e-5}, Scale: func([]float64) []float64 { return []float64{2e5} }, Eval: big}
	res, err := Solve(context.Background(), p, Options{Tolerance: 1e-9})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, 0, res.Iterations)
}

// 尺度随迭代点更新, 远离解的初值不会放宽收敛判定
func TestScaleFollowsIterate(t *testing.T) {
	square := func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{x[0]*x[0] - 4}, mat.NewDense(1, 1, []float64{2 * x[0]}), nil
	}
	var seen []float64
	p := Problem{
		X0:    []float64{1e5},
		Lower: []float64{0},
		Eval:  square,
		Scale: func(x []float64) []float64 {
			seen = append(seen, x[0])
			return []float64{math.Max(x[0]*x[0], 4)}
		},
	}
	res, err := Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.InDelta(t, 2, res.X[0], 1e-8)
	assert.InDelta(t, 0, res.Residual[0], 1e-7)
	require.NotEmpty(t, seen)
	assert.Equal(t, 1e5, seen[0])
	assert.Equal(t, res.X[0], seen[len(seen)-1])

	_, err = Solve(context.Background(), Problem{X0: []float64{0}, Eval: scalar(1),
		Scale: func([]float64) []float64 { return []float64{1, 2} }}, Options{})
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestSolveErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Solve(ctx, Problem{X0: []float64{0, 0}, Eval: linear}, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)

	boom := errors.New("boom")
	_, err = Solve(context.Background(), Problem{X0: []float64{0}, Eval: func([]float64) ([]float64, *mat.Dense, error) {
		return nil, nil, boom
	}}, Options{})
	assert.True(t, errors.Is(err, ErrEvaluate))
	assert.True(t, errors.Is(err, boom))

	_, err = Solve(context.Background(), Problem{X0: []float64{0, 0}, Eval: scalar(0)}, Options{})
	assert.True(t, errors.Is(err, ErrDimension))

	_, err = Solve(context.Background(), Problem{X0: []float64{0}, Lower: []float64{1}, Upper: []float64{0}, Eval: scalar(0)}, Options{})
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "stalled", Stalled.String())
	assert.Equal(t, "unknown", Status(42).String())
	b, err := StepConverged.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "step-converged", string(b))
}
