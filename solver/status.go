package solver

// Status 终止状态
type Status int

const (
	// Converged 残差满足容差
	Converged Status = iota
	// GradientConverged 投影梯度为零, 常见于解落在边界上
	GradientConverged
	// StepConverged 步长小于容差
	StepConverged
	// IterationLimit 达到最大迭代次数
	IterationLimit
	// Stalled 连续拒绝步数过多
	Stalled
)

var statusNames = [...]string{
	Converged:         "converged",
	GradientConverged: "gradient-converged",
	StepConverged:     "step-converged",
	IterationLimit:    "max-iterations",
	Stalled:           "stalled",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// OK 是否为收敛类状态
func (s Status) OK() bool { return s <= StepConverged }

// MarshalText 文本编码, 用于调试记录
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
