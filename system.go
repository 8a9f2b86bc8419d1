// Package causal 方程求解系统: 收集模型, 探测结构, 因果化分块并逐块求解
package causal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"causal/debug"
	"causal/graph"
	"causal/model"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// System 求解系统, 不支持并发调用
type System struct {
	root   model.Subsystem
	cfg    Config
	logger *slog.Logger
	debug  debug.Debug

	state    State
	col      *model.Collection
	analysis *graph.Analysis
	schedule *graph.Schedule
	solving  bool
}

// Option 系统选项
type Option func(*System)

// WithConfig 求解配置
func WithConfig(cfg Config) Option { return func(s *System) { s.cfg = cfg } }

// WithLogger 日志
func WithLogger(l *slog.Logger) Option { return func(s *System) { s.logger = l } }

// WithDebug 调试记录
func WithDebug(d debug.Debug) Option { return func(s *System) { s.debug = d } }

// New 创建系统
func New(root model.Subsystem, opts ...Option) *System {
	s := &System{root: root, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// State 当前状态
func (s *System) State() State { return s.state }

// Config 当前配置
func (s *System) Config() Config { return s.cfg }

// Collection 已收集的模型, 未收集时为 nil
func (s *System) Collection() *model.Collection { return s.col }

// Analysis 缓存的结构探测结果
func (s *System) Analysis() *graph.Analysis { return s.analysis }

// Schedule 缓存的块调度
func (s *System) Schedule() *graph.Schedule { return s.schedule }

// Invalidate 作废全部缓存, 下次求解从头开始
func (s *System) Invalidate() {
	s.col, s.analysis, s.schedule = nil, nil, nil
	s.setState(Uninitialized)
}

func (s *System) setState(st State) {
	if s.state != st {
		s.logger.Debug("state", slog.String("from", s.state.String()), slog.String("to", st.String()))
	}
	s.state = st
}

// Solve 求解一轮
// 致命错误时全部未知量恢复为求解前状态; 不收敛与边界警告记录在报告中
func (s *System) Solve(ctx context.Context) (rep *Report, err error) {
	if s.root == nil {
		return nil, ErrNilModel
	}
	if s.solving {
		return nil, ErrReentrantSolve
	}
	s.solving = true
	defer func() { s.solving = false }()
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "causal.Solve",
		trace.WithAttributes(attribute.String("causal.model", s.root.Name())))
	defer span.End()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		solveDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			solvesTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("solve failed", slog.String("model", s.root.Name()), slog.String("error", err.Error()))
			if s.debugging() {
				s.debug.Error(err)
			}
		case !rep.Converged():
			solvesTotal.WithLabelValues("not_converged").Inc()
			span.SetStatus(codes.Ok, "not converged")
		default:
			solvesTotal.WithLabelValues("converged").Inc()
			span.SetStatus(codes.Ok, "")
		}
	}()

	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	unknowns := s.col.UnknownQuantities()
	snap := takeSnapshot(unknowns)
	snap.reset()
	s.setState(Solving)

	rep = &Report{}
	restructured := false
	for k, b := range s.schedule.Blocks {
		br, warns, err := s.solveBlock(ctx, k, b)
		if err != nil {
			snap.Rollback()
			s.setState(Scheduled)
			return nil, err
		}
		rep.Blocks = append(rep.Blocks, br)
		rep.Warnings = append(rep.Warnings, warns...)
		if !br.Status.OK() && s.cfg.RestructureOnFailure && !restructured {
			restructured = true
			rep.StructureChanged = s.restructure(ctx)
		}
	}
	rep.Duration = time.Since(start)
	s.setState(Solved)
	if rep.StructureChanged {
		// 结构缓存作废, 下次求解重新探测
		s.analysis, s.schedule = nil, nil
		s.setState(Collected)
	}
	span.SetAttributes(
		attribute.Int("causal.blocks", len(rep.Blocks)),
		attribute.Int("causal.warnings", len(rep.Warnings)),
	)
	s.logger.Info("solved",
		slog.String("model", s.root.Name()),
		slog.Int("blocks", len(rep.Blocks)),
		slog.Int("warnings", len(rep.Warnings)),
		slog.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// prepare 推进到 Scheduled, 模型结构指纹变化时从头开始
func (s *System) prepare(ctx context.Context) error {
	if s.col != nil {
		fp, err := model.Fingerprint(s.root)
		if err != nil {
			return err
		}
		if fp != s.col.Fingerprint {
			s.logger.Debug("model changed, restarting", slog.String("model", s.root.Name()))
			s.Invalidate()
		}
	}
	if s.state == Solved || s.state == Solving {
		s.setState(Scheduled)
	}
	if s.state < Collected {
		_, span := tracer.Start(ctx, "causal.Collect")
		col, err := model.Collect(s.root)
		span.End()
		if err != nil {
			return err
		}
		s.col = col
		s.setState(Collected)
		s.logger.Debug("collected",
			slog.Int("quantities", len(col.Quantities)),
			slog.Int("unknowns", len(col.Unknowns)),
			slog.Int("equations", len(col.Equations)),
		)
	}
	if s.state < Scheduled {
		_, span := tracer.Start(ctx, "causal.Structure")
		a, sch, err := graph.Build(s.col, s.cfg.probeOptions())
		if a != nil {
			probeEvaluations.Add(float64(a.Evaluations))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return err
		}
		span.End()
		s.analysis = a
		s.setState(Structured)
		s.schedule = sch
		s.setState(Scheduled)
		s.logger.Debug("scheduled", slog.Int("blocks", len(sch.Blocks)))
		if s.debugging() {
			s.debug.Init(a.Incidence, sch)
		}
	}
	return ctx.Err()
}

// restructure 在当前工作点重新探测结构, 返回结构是否变化
func (s *System) restructure(ctx context.Context) bool {
	_, span := tracer.Start(ctx, "causal.Restructure")
	defer span.End()
	a, err := graph.Analyze(s.col, s.cfg.probeOptions())
	if err != nil {
		s.logger.Warn("restructure probe failed", slog.String("error", err.Error()))
		return false
	}
	probeEvaluations.Add(float64(a.Evaluations))
	if a.Incidence.Equal(s.analysis.Incidence) {
		return false
	}
	s.logger.Warn("structure changed at current operating point", slog.String("model", s.root.Name()))
	return true
}

// Usage 变量使用统计, 用于诊断建模错误
func (s *System) Usage(ctx context.Context) ([]graph.Usage, error) {
	if s.solving {
		return nil, ErrReentrantSolve
	}
	_, span := tracer.Start(ctx, "causal.Usage")
	defer span.End()
	col := s.col
	if col == nil {
		c, err := model.Collect(s.root)
		if err != nil && !errors.Is(err, model.ErrEmptyModel) {
			return nil, err
		}
		if c == nil {
			return nil, err
		}
		col = c
	}
	var inc *graph.Incidence
	if s.analysis != nil && col == s.col {
		inc = s.analysis.Incidence
	}
	usage, err := graph.UsageReport(col, inc, s.cfg.probeOptions())
	if err != nil {
		return nil, fmt.Errorf("causal: usage: %w", err)
	}
	return usage, nil
}

func (s *System) debugging() bool { return s.debug != nil && s.debug.IsDebug() }
