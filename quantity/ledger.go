package quantity

import "slices"

// Partial 对根量的偏导数
type Partial struct {
	Root *Quantity
	D    float64
}

// Ledger 依赖账本: 根量编号 -> 偏导数
// 以编号为键, 数值相同的不同量互不混淆
type Ledger map[ID]Partial

// term 链式法则中的一项: 结果对操作数 q 的偏导数 d
type term struct {
	q *Quantity
	d float64
}

// chain 链式法则合并账本, 重复键累加
func chain(terms ...term) Ledger {
	l := make(Ledger)
	for _, t := range terms {
		for id, p := range t.q.entries() {
			cur := l[id]
			cur.Root = p.Root
			cur.D += t.d * p.D
			l[id] = cur
		}
	}
	return l
}

// IDs 升序排列的根量编号
func (l Ledger) IDs() []ID {
	ids := make([]ID, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// flatten 展开账本中已求解(自身带账本)的根量, 得到只含叶子的账本
func (l Ledger) flatten() Ledger {
	if !l.nested() {
		return l
	}
	out := make(Ledger, len(l))
	l.expand(out, 1, map[ID]bool{})
	return out
}

func (l Ledger) nested() bool {
	for _, p := range l {
		if p.Root.ledger != nil {
			return true
		}
	}
	return false
}

func (l Ledger) expand(out Ledger, scale float64, path map[ID]bool) {
	for id, p := range l {
		if p.Root.ledger == nil || path[id] {
			cur := out[id]
			cur.Root = p.Root
			cur.D += scale * p.D
			out[id] = cur
			continue
		}
		path[id] = true
		p.Root.ledger.expand(out, scale*p.D, path)
		delete(path, id)
	}
}
