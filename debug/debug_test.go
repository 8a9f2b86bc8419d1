package debug

import (
	"bytes"
	"encoding/json"
	"testing"

	"causal/graph"
	"causal/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structure(t *testing.T) (*graph.Incidence, *graph.Schedule) {
	t.Helper()
	inc := graph.NewIncidence(2, 2)
	inc.RowNames = []string{"p.sum", "p.x"}
	inc.ColNames = []string{"p.x", "p.y"}
	inc.Set(0, 0, true)
	inc.Set(0, 1, true)
	inc.Set(1, 0, true)
	s, err := graph.Causalize(inc)
	require.NoError(t, err)
	return inc, s
}

func history(d Debug) {
	d.Update(0, solver.Iteration{Iter: 0, Norm: 1, Cost: 0.5, Radius: 100, Accepted: true})
	d.Update(1, solver.Iteration{Iter: 0, Norm: 1e-3, Radius: 100, Accepted: true})
	d.Update(1, solver.Iteration{Iter: 1, Norm: 0, Radius: 200, Accepted: true})
}

func TestRecord(t *testing.T) {
	var r Record
	assert.True(t, r.IsDebug())
	r.SetDebug(false)
	assert.False(t, r.IsDebug())

	r.Init(structure(t))
	history(&r)
	assert.Equal(t, [][]int{{0, 1}, {0}}, r.Incidence)
	require.Len(t, r.History, 2)
	assert.Len(t, r.History[1], 2)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	var out Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, r.Unknowns, out.Unknowns)
	assert.Equal(t, r.Match, out.Match)
	assert.Equal(t, 200.0, out.History[1][1].Radius)
}

func TestRecordGrowsHistory(t *testing.T) {
	var r Record
	r.Update(3, solver.Iteration{Iter: 0, Norm: 2})
	assert.Len(t, r.History, 4)
	r.Error(assert.AnError)
	assert.Equal(t, []string{assert.AnError.Error()}, r.Errors)
}

func TestCharts(t *testing.T) {
	var c Charts
	c.Init(structure(t))
	history(&c)
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "eq p.sum")
	assert.Contains(t, html, "Block(2)")
}

func TestPlot(t *testing.T) {
	p := Plot{Format: "svg"}
	p.Init(structure(t))
	history(&p)
	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf))
	assert.Contains(t, buf.String(), "<svg")

	// 无正残差时不使用对数坐标
	empty := Plot{Format: "svg"}
	buf.Reset()
	require.NoError(t, empty.Render(&buf))
	assert.Contains(t, buf.String(), "<svg")
}

func TestMulti(t *testing.T) {
	a, b := &Record{}, &Record{}
	b.SetDebug(false)
	m := Multi{a, b}
	assert.True(t, m.IsDebug())
	m.Init(structure(t))
	history(m)
	assert.Len(t, a.History[1], 2)
	assert.Empty(t, b.History)
	m.SetDebug(false)
	assert.False(t, m.IsDebug())
}
