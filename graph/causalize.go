package graph

import (
	"slices"
	"strconv"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Block 同时求解的最小方程块
type Block struct {
	Rows []int // 残差行(升序)
	Cols []int // 与 Rows 一一匹配的未知量
}

// Size 块大小
func (b Block) Size() int { return len(b.Rows) }

// Schedule 求解顺序
type Schedule struct {
	Match  []int   // 残差行 -> 匹配的未知量
	Blocks []Block // 拓扑序排列的块
}

// Match 最大二部匹配, 按行顺序增广, 结果确定
// 返回行到列与列到行的匹配, 未匹配为 -1
func Match(inc *Incidence) (rowToCol, colToRow []int) {
	rowToCol = filled(inc.Rows, -1)
	colToRow = filled(inc.Cols, -1)
	adj := make([][]int, inc.Rows)
	for i := range inc.Rows {
		adj[i] = inc.Row(i)
	}
	var visited []bool
	var augment func(i int) bool
	augment = func(i int) bool {
		for _, j := range adj[i] {
			if visited[j] {
				continue
			}
			visited[j] = true
			if colToRow[j] < 0 || augment(colToRow[j]) {
				colToRow[j] = i
				rowToCol[i] = j
				return true
			}
		}
		return false
	}
	for i := range inc.Rows {
		visited = make([]bool, inc.Cols)
		augment(i)
	}
	return rowToCol, colToRow
}

// Causalize 匹配方程与未知量并分解为强连通块
// 行 i 匹配的未知量被行 j 使用时存在边 i->j, 强连通分量即同时求解的块
func Causalize(inc *Incidence) (*Schedule, error) {
	if inc.Rows != inc.Cols {
		return nil, &UnderOrOverDeterminedError{Rows: inc.Rows, Cols: inc.Cols}
	}
	rowToCol, colToRow := Match(inc)
	var badRows, badCols []string
	for i, j := range rowToCol {
		if j < 0 {
			badRows = append(badRows, name(inc.RowNames, i, "row"))
		}
	}
	for j, i := range colToRow {
		if i < 0 {
			badCols = append(badCols, name(inc.ColNames, j, "col"))
		}
	}
	if len(badRows) > 0 || len(badCols) > 0 {
		return nil, &AmbiguousMatchingError{UnmatchedRows: badRows, UnmatchedCols: badCols}
	}

	// 列按匹配重排, 第 i 列为第 i 行确定的未知量
	order := make([]int, inc.Rows)
	for i := range order {
		order[i] = i
	}
	matched := inc.Permute(order, rowToCol)

	g := simple.NewDirectedGraph()
	for i := range inc.Rows {
		g.AddNode(simple.Node(i))
	}
	for i := range inc.Rows {
		for _, j := range matched.Col(i) {
			if j != i {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	// 强连通分量, 块内行升序
	var comps [][]int
	for _, c := range topo.TarjanSCC(g) {
		rows := make([]int, len(c))
		for k, n := range c {
			rows[k] = int(n.ID())
		}
		slices.Sort(rows)
		comps = append(comps, rows)
	}
	comp := make([]int, inc.Rows)
	for k, rows := range comps {
		for _, i := range rows {
			comp[i] = k
		}
	}

	// 缩点图 Kahn 排序, 就绪块中首行最小者优先
	indeg := make([]int, len(comps))
	succ := make([][]int, len(comps))
	for k, rows := range comps {
		seen := map[int]bool{}
		for _, i := range rows {
			for _, j := range matched.Col(i) {
				if t := comp[j]; t != k && !seen[t] {
					seen[t] = true
					succ[k] = append(succ[k], t)
					indeg[t]++
				}
			}
		}
	}
	done := make([]bool, len(comps))
	s := &Schedule{Match: rowToCol}
	for range comps {
		next := -1
		for k := range comps {
			if done[k] || indeg[k] > 0 {
				continue
			}
			if next < 0 || comps[k][0] < comps[next][0] {
				next = k
			}
		}
		done[next] = true
		for _, t := range succ[next] {
			indeg[t]--
		}
		b := Block{Rows: comps[next]}
		for _, i := range b.Rows {
			b.Cols = append(b.Cols, rowToCol[i])
		}
		s.Blocks = append(s.Blocks, b)
	}
	return s, nil
}

// Build 结构探测与因果化, 失败时附带两点使用统计
func Build(m Model, opts Options) (*Analysis, *Schedule, error) {
	a, err := Analyze(m, opts)
	if err != nil {
		return nil, nil, err
	}
	s, err := Causalize(a.Incidence)
	if err != nil {
		if usage, uerr := UsageReport(m, a.Incidence, opts); uerr == nil {
			attachUsage(err, usage)
		}
		return a, nil, err
	}
	return a, s, nil
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func name(names []string, i int, prefix string) string {
	if i < len(names) {
		return names[i]
	}
	return prefix + strconv.Itoa(i)
}
