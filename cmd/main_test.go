package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"causal/debug"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestModels(t *testing.T) {
	out, err := run(t, "models")
	require.NoError(t, err)
	for _, n := range []string{"heater", "loop", "pipe", "pump"} {
		assert.Contains(t, out, n+"\n")
	}
}

func TestSolveReport(t *testing.T) {
	out, err := run(t, "solve", "loop")
	require.NoError(t, err)
	assert.Contains(t, out, "BLOCK")
	assert.Contains(t, out, "loop.heater.tout")
	assert.Contains(t, out, "solved 2 blocks")
}

func TestSolveOutputs(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "values.txt")
	chart := filepath.Join(dir, "chart.html")
	plot := filepath.Join(dir, "plot.svg")
	record := filepath.Join(dir, "record.json")
	out, err := run(t, "solve", "pump", "--json",
		"--set", "pump.flow=5 m^3/h",
		"--export", export, "--chart", chart, "--plot", plot, "--record", record)
	require.NoError(t, err)

	var rep struct {
		Blocks []struct {
			Status   string   `json:"status"`
			Unknowns []string `json:"unknowns"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Blocks, 1)
	assert.Equal(t, "converged", rep.Blocks[0].Status)
	assert.Equal(t, []string{"pump.dp"}, rep.Blocks[0].Unknowns)

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	lines := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if path, _, ok := strings.Cut(line, " "); ok {
			lines[path] = line
		}
	}
	assert.True(t, strings.HasPrefix(lines["pump.dp"], "pump.dp 3.7"), lines["pump.dp"])
	assert.True(t, strings.HasSuffix(lines["pump.flow"], " m^3/h !"), lines["pump.flow"])

	for _, path := range []string{chart, plot, record} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), path)
	}
}

func TestDebugOutputOrder(t *testing.T) {
	for range 5 {
		outputs := debugOutputs(solveFlags{record: "r.json", plot: "p.png", chart: "c.html"})
		require.Len(t, outputs, 3)
		assert.Equal(t, "c.html", outputs[0].path)
		assert.IsType(t, &debug.Charts{}, outputs[0].d)
		assert.Equal(t, "p.png", outputs[1].path)
		assert.Equal(t, "png", outputs[1].d.(*debug.Plot).Format)
		assert.Equal(t, "r.json", outputs[2].path)
		assert.IsType(t, &debug.Record{}, outputs[2].d)
	}
	assert.Empty(t, debugOutputs(solveFlags{}))
}

func TestSolveErrors(t *testing.T) {
	_, err := run(t, "solve", "nope")
	assert.Error(t, err)

	_, err = run(t, "solve", "pump", "--set", "pump.flow")
	assert.ErrorContains(t, err, "invalid --set")

	_, err = run(t, "solve", "pump", "--set", "pump.flow=3 s")
	assert.Error(t, err)
}

func TestUsage(t *testing.T) {
	out, err := run(t, "usage", "pump")
	require.NoError(t, err)
	assert.Equal(t, "pump.dp: 1/1\n", out)
}

func TestParseSet(t *testing.T) {
	path, value, unit, err := parseSet("a.b = 3 bar")
	require.NoError(t, err)
	assert.Equal(t, "a.b", path)
	assert.Equal(t, "3", value)
	assert.Equal(t, "bar", unit)

	_, _, unit, err = parseSet("x=1")
	require.NoError(t, err)
	assert.Empty(t, unit)

	_, _, _, err = parseSet("=1")
	assert.Error(t, err)
}
