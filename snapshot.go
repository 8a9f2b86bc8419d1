package causal

import "causal/quantity"

// saved 未知量求解前的状态
type saved struct {
	q      *quantity.Quantity
	si     float64
	leaf   bool
	ledger quantity.Ledger
	solved bool
}

// snapshot 暂存未知量, 致命错误时回溯
type snapshot []saved

func takeSnapshot(qs []*quantity.Quantity) snapshot {
	s := make(snapshot, len(qs))
	for i, q := range qs {
		s[i] = saved{q: q, si: q.SI(), leaf: q.IsLeaf(), solved: q.IsSolved()}
		if !s[i].leaf {
			s[i].ledger = q.Ledger()
		}
	}
	return s
}

// Rollback 恢复值、账本与求解标记
func (s snapshot) Rollback() {
	for _, v := range s {
		v.q.SetSI(v.si)
		v.q.MarkSolved(v.solved)
		if v.leaf {
			v.q.ResetLedger()
		} else {
			v.q.SetSensitivity(v.ledger)
		}
	}
}

// reset 开始新一轮求解: 清除求解标记并恢复为叶子
func (s snapshot) reset() {
	for _, v := range s {
		v.q.MarkSolved(false)
		v.q.ResetLedger()
	}
}
