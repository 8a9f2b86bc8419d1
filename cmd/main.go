package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"causal/model"

	"github.com/spf13/cobra"

	_ "causal/element"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "causal",
		Short:         "Structural causalization solver for equation-oriented models",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "models",
			Short: "List registered models",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				for _, n := range model.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
			},
		},
		newSolveCmd(),
		newUsageCmd(),
	)
	return rootCmd
}

// outputJSON 缩进 JSON 输出
func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// parseSet 解析 path=value[ unit]
func parseSet(s string) (path, value, unit string, err error) {
	path, rest, ok := strings.Cut(s, "=")
	fields := strings.Fields(rest)
	if !ok || path == "" || len(fields) == 0 || len(fields) > 2 {
		return "", "", "", fmt.Errorf("invalid --set %q, want path=value[ unit]", s)
	}
	value = fields[0]
	if len(fields) == 2 {
		unit = fields[1]
	}
	return strings.TrimSpace(path), value, unit, nil
}
