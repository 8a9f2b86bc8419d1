package causal

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"causal/graph"
	"causal/solver"

	"gopkg.in/yaml.v3"
)

// 默认参数
var (
	BoundTolerance       = 1e-9 // 判定处于边界的相对容差
	Timeout              = time.Duration(0)
	RestructureOnFailure = true // 块不收敛时重新探测结构
)

// Config 求解配置
type Config struct {
	Solver SolverConfig `json:"solver" yaml:"solver"`
	Probe  ProbeConfig  `json:"probe" yaml:"probe"`

	// BoundTolerance 相对容差, |x-bound| <= tol*max(1,|bound|) 视为处于边界
	BoundTolerance float64 `json:"bound_tolerance" yaml:"bound_tolerance"`

	// Timeout 单次求解的时限, 0 不限
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RestructureOnFailure 块不收敛时重新探测结构, 结构变化则作废缓存
	RestructureOnFailure bool `json:"restructure_on_failure" yaml:"restructure_on_failure"`
}

// SolverConfig 块求解参数
type SolverConfig struct {
	MaxIterations     int     `json:"max_iterations" yaml:"max_iterations"`
	Tolerance         float64 `json:"tolerance" yaml:"tolerance"`
	GradientTolerance float64 `json:"gradient_tolerance" yaml:"gradient_tolerance"`
	StepTolerance     float64 `json:"step_tolerance" yaml:"step_tolerance"`
	InitialRadius     float64 `json:"initial_radius" yaml:"initial_radius"`
	MaxRejected       int     `json:"max_rejected" yaml:"max_rejected"`
}

// ProbeConfig 结构探测参数
type ProbeConfig struct {
	Step  float64 `json:"step" yaml:"step"`
	Shift float64 `json:"shift" yaml:"shift"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Solver: SolverConfig{
			MaxIterations:     solver.MaxIterations,
			Tolerance:         solver.Tolerance,
			GradientTolerance: solver.GradientTolerance,
			StepTolerance:     solver.StepTolerance,
			InitialRadius:     solver.InitialRadius,
			MaxRejected:       solver.MaxRejected,
		},
		Probe: ProbeConfig{
			Step:  graph.ProbeStep,
			Shift: graph.ProbeShift,
		},
		BoundTolerance:       BoundTolerance,
		Timeout:              Timeout,
		RestructureOnFailure: RestructureOnFailure,
	}
}

// LoadConfig 在默认配置上叠加配置文件(YAML 或 JSON)与环境变量
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("causal: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
				return cfg, fmt.Errorf("causal: parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
			}
		}
	}
	loadConfigFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadConfigFromEnv(cfg *Config) {
	if v := os.Getenv("CAUSAL_MAX_ITERATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Solver.MaxIterations = i
		}
	}
	if v := os.Getenv("CAUSAL_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Solver.Tolerance = f
		}
	}
	if v := os.Getenv("CAUSAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
}

// Validate 检查配置
func (c Config) Validate() error {
	switch {
	case c.Solver.MaxIterations < 1:
		return fmt.Errorf("%w: max_iterations must be >= 1", ErrInvalidConfig)
	case c.Solver.MaxRejected < 1:
		return fmt.Errorf("%w: max_rejected must be >= 1", ErrInvalidConfig)
	case !(c.Solver.Tolerance > 0):
		return fmt.Errorf("%w: tolerance must be > 0", ErrInvalidConfig)
	case !(c.Solver.GradientTolerance > 0), !(c.Solver.StepTolerance > 0):
		return fmt.Errorf("%w: gradient_tolerance and step_tolerance must be > 0", ErrInvalidConfig)
	case !(c.Solver.InitialRadius > 0):
		return fmt.Errorf("%w: initial_radius must be > 0", ErrInvalidConfig)
	case !(c.Probe.Step > 0), !(c.Probe.Shift > 0):
		return fmt.Errorf("%w: probe step and shift must be > 0", ErrInvalidConfig)
	case c.BoundTolerance < 0:
		return fmt.Errorf("%w: bound_tolerance must be >= 0", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func (c Config) solverOptions() solver.Options {
	return solver.Options{
		MaxIterations:     c.Solver.MaxIterations,
		Tolerance:         c.Solver.Tolerance,
		GradientTolerance: c.Solver.GradientTolerance,
		StepTolerance:     c.Solver.StepTolerance,
		InitialRadius:     c.Solver.InitialRadius,
		MaxRejected:       c.Solver.MaxRejected,
	}
}

func (c Config) probeOptions() graph.Options {
	return graph.Options{Step: c.Probe.Step, Shift: c.Probe.Shift}
}
