package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"causal"
	"causal/debug"
	"causal/model"

	"github.com/spf13/cobra"
)

type solveFlags struct {
	config string
	values string
	sets   []string
	chart  string
	plot   string
	record string
	export string
	json   bool
}

func newSolveCmd() *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve [model]",
		Short: "Solve a registered model and print the block report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "solver config file (YAML or JSON)")
	cmd.Flags().StringVar(&f.values, "values", "", "values file applied before solving")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "override a quantity, path=value[ unit]")
	cmd.Flags().StringVar(&f.chart, "chart", "", "write an HTML incidence and convergence chart")
	cmd.Flags().StringVar(&f.plot, "plot", "", "write a convergence plot (.png, .svg, .pdf)")
	cmd.Flags().StringVar(&f.record, "record", "", "write the JSON debug record")
	cmd.Flags().StringVar(&f.export, "export", "", "write solved values in values-file format")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the report as JSON")
	return cmd
}

func runSolve(cmd *cobra.Command, name string, f solveFlags) error {
	root, err := model.New(name)
	if err != nil {
		return err
	}
	cfg, err := causal.LoadConfig(f.config)
	if err != nil {
		return err
	}

	outputs := debugOutputs(f)
	var multi debug.Multi
	for _, o := range outputs {
		multi = append(multi, o.d)
	}
	opts := []causal.Option{causal.WithConfig(cfg)}
	if len(multi) > 0 {
		opts = append(opts, causal.WithDebug(multi))
	}
	s := causal.New(root, opts...)

	if f.values != "" {
		file, err := os.Open(f.values)
		if err != nil {
			return err
		}
		err = s.Load(file)
		file.Close()
		if err != nil {
			return err
		}
	}
	for _, set := range f.sets {
		path, value, unit, err := parseSet(set)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid --set %q: %w", set, err)
		}
		if err := s.Set(path, v, unit); err != nil {
			return err
		}
	}

	rep, solveErr := s.Solve(cmd.Context())
	for _, o := range outputs {
		if err := writeFile(o.path, o.d.Render); err != nil {
			return err
		}
	}
	if solveErr != nil {
		return solveErr
	}
	if f.export != "" {
		if err := writeFile(f.export, s.Export); err != nil {
			return err
		}
	}
	if f.json {
		return outputJSON(cmd.OutOrStdout(), rep)
	}
	return rep.Render(cmd.OutOrStdout())
}

// debugOutput 调试输出文件
type debugOutput struct {
	path string
	d    debug.Debug
}

// debugOutputs 按 chart, plot, record 顺序构建调试输出
func debugOutputs(f solveFlags) []debugOutput {
	var outputs []debugOutput
	if f.chart != "" {
		outputs = append(outputs, debugOutput{f.chart, &debug.Charts{}})
	}
	if f.plot != "" {
		outputs = append(outputs, debugOutput{f.plot, &debug.Plot{Format: strings.TrimPrefix(filepath.Ext(f.plot), ".")}})
	}
	if f.record != "" {
		outputs = append(outputs, debugOutput{f.record, &debug.Record{}})
	}
	return outputs
}

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage [model]",
		Short: "Report how many equations depend on each unknown at two probe points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := model.New(args[0])
			if err != nil {
				return err
			}
			usage, err := causal.New(root).Usage(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range usage {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
}

func writeFile(path string, render func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
