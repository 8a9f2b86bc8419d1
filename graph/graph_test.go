package graph

import (
	"errors"
	"math"
	"testing"

	"causal/model"
	"causal/quantity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, root model.Subsystem) *model.Collection {
	t.Helper()
	c, err := model.Collect(root)
	require.NoError(t, err)
	return c
}

func eq(qs ...*quantity.Quantity) func() []quantity.Group {
	return func() []quantity.Group { return []quantity.Group{quantity.Eq(qs...)} }
}

func TestDiagonalOrder(t *testing.T) {
	root := model.NewBase("diag")
	for _, n := range []string{"a", "b", "c", "d"} {
		x := root.Var(n, quantity.MustNew(0, "m"))
		root.Equation(n, eq(x, quantity.Const(1, "m")))
	}
	_, s, err := Build(collect(t, root), Options{})
	require.NoError(t, err)
	require.Len(t, s.Blocks, 4)
	for i, b := range s.Blocks {
		assert.Equal(t, []int{i}, b.Rows)
		assert.Equal(t, []int{i}, b.Cols)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, s.Match)
}

func TestCoupledBlock(t *testing.T) {
	root := model.NewBase("pair")
	x := root.Var("x", quantity.MustNew(0, ""))
	y := root.Var("y", quantity.MustNew(0, ""))
	root.Equation("sum", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(x.Add(y), quantity.Scalar(10))}
	})
	root.Equation("diff", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(x.Sub(y), quantity.Scalar(2))}
	})
	a, s, err := Build(collect(t, root), Options{})
	require.NoError(t, err)
	require.Len(t, s.Blocks, 1)
	assert.Equal(t, []int{0, 1}, s.Blocks[0].Rows)
	assert.ElementsMatch(t, []int{0, 1}, s.Blocks[0].Cols)
	assert.Equal(t, "XX  pair.sum\nXX  pair.diff\n", a.Incidence.String())
}

func TestTopologicalOrder(t *testing.T) {
	root := model.NewBase("chain")
	a := root.Var("a", quantity.MustNew(3, "m", quantity.Fixed()))
	x := root.Var("x", quantity.MustNew(0, "m"))
	y := root.Var("y", quantity.MustNew(0, "m"))
	z := root.Var("z", quantity.MustNew(0, "m"))
	root.Equation("z", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(z, y.Add(x))}
	})
	root.Equation("y", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(y, x.MulF(2))}
	})
	root.Equation("x", eq(x, a))

	c := collect(t, root)
	an, s, err := Build(c, Options{})
	require.NoError(t, err)
	require.Len(t, s.Blocks, 3)
	assert.Equal(t, []int{2}, s.Blocks[0].Rows)
	assert.Equal(t, []int{1}, s.Blocks[1].Rows)
	assert.Equal(t, []int{0}, s.Blocks[2].Rows)
	// x, y, z 依次确定
	assert.Equal(t, "chain.x", c.UnknownName(s.Blocks[0].Cols[0]))
	assert.Equal(t, "chain.y", c.UnknownName(s.Blocks[1].Cols[0]))
	assert.Equal(t, "chain.z", c.UnknownName(s.Blocks[2].Cols[0]))
	assert.Equal(t, 4, an.Evaluations)

	// 按匹配重排后主对角线全为1
	p := an.Incidence.Permute([]int{0, 1, 2}, s.Match)
	for i := range p.Rows {
		assert.True(t, p.At(i, i))
	}
}

func TestCountMismatch(t *testing.T) {
	root := model.NewBase("under")
	x := root.Var("x", quantity.MustNew(0, "m"))
	root.Var("y", quantity.MustNew(0, "m"))
	root.Equation("x", eq(x, quantity.Const(1, "m")))

	_, _, err := Build(collect(t, root), Options{})
	var e *UnderOrOverDeterminedError
	require.True(t, errors.As(err, &e))
	assert.True(t, errors.Is(err, ErrUnderOrOverDetermined))
	assert.Equal(t, 1, e.Rows)
	assert.Equal(t, 2, e.Cols)
	require.Len(t, e.Usage, 2)
	assert.Equal(t, Usage{Unknown: "under.y", Col: 1, Count: 0, Shifted: 0}, e.Usage[1])
	assert.Contains(t, err.Error(), "under.y(0/0)")
}

func TestAmbiguousMatching(t *testing.T) {
	root := model.NewBase("amb")
	x := root.Var("x", quantity.MustNew(0, "m"))
	root.Var("y", quantity.MustNew(0, "m"))
	root.Equation("first", eq(x, quantity.Const(1, "m")))
	root.Equation("second", eq(x, quantity.Const(2, "m")))

	_, _, err := Build(collect(t, root), Options{})
	var e *AmbiguousMatchingError
	require.True(t, errors.As(err, &e))
	assert.True(t, errors.Is(err, ErrAmbiguousMatching))
	assert.Equal(t, []string{"amb.second"}, e.UnmatchedRows)
	assert.Equal(t, []string{"amb.y"}, e.UnmatchedCols)
	require.Len(t, e.Usage, 2)
	assert.Equal(t, 2, e.Usage[0].Count)
}

func TestRestoreOnError(t *testing.T) {
	root := model.NewBase("r")
	x := root.Var("x", quantity.MustNew(5, "m"))
	root.Equation("e", func() []quantity.Group {
		if x.SI() != 5 {
			panic("moved")
		}
		return []quantity.Group{quantity.Eq(x, quantity.Const(1, "m"))}
	})
	_, err := Analyze(collect(t, root), Options{})
	assert.True(t, errors.Is(err, model.ErrEquationPanic))
	assert.Equal(t, 5.0, x.SI())
}

// panicModel 直接 panic 的模型视图
type panicModel struct {
	x     *quantity.Quantity
	calls int
}

func (m *panicModel) EvaluateAll() ([]*quantity.Quantity, error) {
	m.calls++
	if m.calls > 1 {
		panic("boom")
	}
	return []*quantity.Quantity{m.x.SubF(1)}, nil
}
func (m *panicModel) UnknownQuantities() []*quantity.Quantity { return []*quantity.Quantity{m.x} }
func (m *panicModel) RowName(int) string                     { return "r" }
func (m *panicModel) UnknownName(int) string                 { return "x" }

func TestRestoreOnPanic(t *testing.T) {
	m := &panicModel{x: quantity.MustNew(0.25, "")}
	assert.Panics(t, func() { _, _ = Analyze(m, Options{}) })
	assert.Equal(t, 0.25, m.x.SI())
}

func TestPerturb(t *testing.T) {
	free := quantity.MustNew(1000, "")
	assert.Equal(t, 1001.0, perturb(free, 1e-3))

	nearUpper := quantity.MustNew(1, "", quantity.WithBounds(0, 1))
	assert.InDelta(t, 0.999, perturb(nearUpper, 1e-3), 1e-15)

	narrow := quantity.MustNew(0.5, "", quantity.WithBounds(0.4995, 0.5002))
	assert.Equal(t, 0.4995, perturb(narrow, 1e-3))

	pinned := quantity.MustNew(2, "", quantity.WithBounds(2, 2))
	assert.InDelta(t, 2.002, perturb(pinned, 1e-3), 1e-15)
}

func TestUsageTwoPoints(t *testing.T) {
	root := model.NewBase("u")
	x := root.Var("x", quantity.MustNew(0, ""))
	y := root.Var("y", quantity.MustNew(0, ""))
	root.Equation("x", eq(x, quantity.Scalar(1)))
	root.Equation("branch", func() []quantity.Group {
		if x.SI() > 0.05 {
			return []quantity.Group{quantity.Eq(y, x)}
		}
		return []quantity.Group{quantity.Eq(y, quantity.Scalar(1))}
	})
	c := collect(t, root)
	usage, err := UsageReport(c, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, usage[0].Count)
	assert.Equal(t, 2, usage[0].Shifted)
	assert.Equal(t, "u.x: 1/2", usage[0].String())
	assert.Equal(t, 0.0, x.SI())
	assert.Equal(t, 0.0, y.SI())
}

func TestNaNResidualUnchanged(t *testing.T) {
	root := model.NewBase("n")
	x := root.Var("x", quantity.MustNew(0, ""))
	root.Equation("nan", func() []quantity.Group {
		return []quantity.Group{quantity.Eq(x.MulF(0).AddF(math.NaN()), quantity.Scalar(0))}
	})
	root.Equation("x", eq(x, quantity.Scalar(1)))
	a, err := Analyze(collect(t, root), Options{})
	require.NoError(t, err)
	assert.Empty(t, a.Incidence.Row(0))
	assert.Equal(t, []int{0}, a.Incidence.Row(1))
}
