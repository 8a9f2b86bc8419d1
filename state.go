package causal

// State 系统状态
type State int

const (
	Uninitialized State = iota
	Collected           // 已收集物理量与方程
	Structured          // 已探测关联矩阵
	Scheduled           // 已得到块调度
	Solving             // 正在逐块求解
	Solved              // 本轮求解完成
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Collected:     "collected",
	Structured:    "structured",
	Scheduled:     "scheduled",
	Solving:       "solving",
	Solved:        "solved",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
