package model

import (
	"encoding/binary"
	"fmt"

	"causal/quantity"

	"github.com/cespare/xxhash/v2"
)

// Entry 带路径的物理量
type Entry struct {
	Path string
	Q    *quantity.Quantity
}

// BoundEquation 绑定到子系统的方程
type BoundEquation struct {
	Path     string
	Sub      Subsystem
	Equation Equation
}

// Collection 模型收集结果
type Collection struct {
	Root        Subsystem
	Quantities  []Entry         // 全部物理量(去重, 按遍历顺序)
	Unknowns    []Entry         // 未知量
	Equations   []BoundEquation // 方程
	Fingerprint uint64          // 模型结构指纹

	byPath map[string]*quantity.Quantity
	layout *layout
}

// Collect 深度优先遍历子系统树, 收集物理量与方程
func Collect(root Subsystem) (*Collection, error) {
	c := &Collection{Root: root, byPath: map[string]*quantity.Quantity{}}
	h := xxhash.New()
	seen := map[Subsystem]bool{}
	known := map[quantity.ID]bool{}
	var buf [8]byte

	var walk func(s Subsystem, path string) error
	walk = func(s Subsystem, path string) error {
		if s == nil || seen[s] {
			return nil
		}
		seen[s] = true
		_, _ = h.WriteString("sub:" + path + "\n")
		for _, v := range s.Vars() {
			p := join(path, v.Name)
			if v.Q == nil {
				return fmt.Errorf("%w: %s", ErrNilQuantity, p)
			}
			binary.LittleEndian.PutUint64(buf[:], uint64(v.Q.ID()))
			_, _ = h.WriteString("var:" + p)
			_, _ = h.Write(buf[:])
			if v.Q.IsInput() {
				_, _ = h.WriteString("!")
			}
			if _, ok := c.byPath[p]; !ok {
				c.byPath[p] = v.Q
			}
			if known[v.Q.ID()] {
				continue
			}
			known[v.Q.ID()] = true
			c.Quantities = append(c.Quantities, Entry{Path: p, Q: v.Q})
			if !v.Q.IsInput() {
				c.Unknowns = append(c.Unknowns, Entry{Path: p, Q: v.Q})
			}
		}
		for _, eq := range s.Equations() {
			p := join(path, eq.Name)
			_, _ = h.WriteString("eq:" + p + "\n")
			c.Equations = append(c.Equations, BoundEquation{Path: p, Sub: s, Equation: eq})
		}
		for _, ch := range s.Children() {
			if ch == nil {
				continue
			}
			if err := walk(ch, join(path, ch.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	if root == nil {
		return nil, ErrEmptyModel
	}
	if err := walk(root, root.Name()); err != nil {
		return nil, err
	}
	c.Fingerprint = h.Sum64()
	if len(c.Unknowns) == 0 || len(c.Equations) == 0 {
		return c, fmt.Errorf("%w: %d unknowns, %d equations", ErrEmptyModel, len(c.Unknowns), len(c.Equations))
	}
	return c, nil
}

// Fingerprint 计算模型结构指纹, 子系统、物理量或已知标记变化时改变
func Fingerprint(root Subsystem) (uint64, error) {
	c, err := Collect(root)
	if c == nil {
		return 0, err
	}
	return c.Fingerprint, nil
}

// Lookup 按路径查找物理量
func (c *Collection) Lookup(path string) (*quantity.Quantity, error) {
	if q, ok := c.byPath[path]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
}

// UnknownQuantities 未知量列表
func (c *Collection) UnknownQuantities() []*quantity.Quantity {
	qs := make([]*quantity.Quantity, len(c.Unknowns))
	for i, e := range c.Unknowns {
		qs[i] = e.Q
	}
	return qs
}

// UnknownName 未知量路径
func (c *Collection) UnknownName(col int) string {
	if col < 0 || col >= len(c.Unknowns) {
		return fmt.Sprintf("x%d", col)
	}
	return c.Unknowns[col].Path
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
