package causal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"causal/model"
	"causal/quantity"
	"causal/units"
)

// Set 按路径设置物理量的值, unit 为空时使用显示单位
func (s *System) Set(path string, value float64, unit string) error {
	if s.solving {
		return ErrReentrantSolve
	}
	q, err := s.lookup(path)
	if err != nil {
		return err
	}
	if unit == "" {
		q.SetValue(value)
		return nil
	}
	u, err := units.Parse(unit)
	if err != nil {
		return fmt.Errorf("causal: %s: %w", path, err)
	}
	if !u.SameDimension(q.SIUnit()) {
		return fmt.Errorf("causal: %s: %w", path, &quantity.UnitMismatchError{Op: "set", Left: q.Unit(), Right: u})
	}
	q.SetSI(u.ToSI(value))
	return nil
}

// Load 读取取值文件
// 每行 "路径 数值 [单位] [!|?]", ! 标记为已知输入, ? 标记为未知, # 开头为注释
func (s *System) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, "#"); i > 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("%w: line %d: %q", ErrValueSyntax, n, line)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrValueSyntax, n, err)
		}
		var unit, mark string
		for _, f := range fields[2:] {
			switch {
			case f == "!" || f == "?":
				mark = f
			case unit == "":
				unit = f
			default:
				return fmt.Errorf("%w: line %d: unexpected %q", ErrValueSyntax, n, f)
			}
		}
		if err := s.Set(fields[0], v, unit); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		q, _ := s.lookup(fields[0])
		switch mark {
		case "!":
			q.Fix()
		case "?":
			q.Unfix()
		}
	}
	return scanner.Err()
}

// Export 按 Load 格式导出全部物理量, 不确定度写在注释中
func (s *System) Export(w io.Writer) error {
	col, err := s.collection()
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(w)
	for _, e := range col.Quantities {
		q := e.Q
		writer.WriteString(e.Path)
		writer.WriteRune(' ')
		writer.WriteString(strconv.FormatFloat(q.Value(), 'g', -1, 64))
		if u := q.Unit().String(); u != "" {
			writer.WriteRune(' ')
			writer.WriteString(u)
		}
		if q.IsInput() {
			writer.WriteString(" !")
		}
		if sigma := q.Uncertainty(); sigma > 0 {
			fmt.Fprintf(writer, " # ± %g", sigma)
		}
		writer.WriteRune('\n')
	}
	return writer.Flush()
}

func (s *System) lookup(path string) (*quantity.Quantity, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}
	return col.Lookup(path)
}

// collection 缓存的收集结果, 未收集时临时收集
func (s *System) collection() (*model.Collection, error) {
	if s.col != nil {
		return s.col, nil
	}
	if s.root == nil {
		return nil, ErrNilModel
	}
	col, err := model.Collect(s.root)
	if col == nil || (err != nil && !errors.Is(err, model.ErrEmptyModel)) {
		return nil, err
	}
	return col, nil
}
