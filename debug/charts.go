package debug

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts 网页图表
type Charts struct {
	Record
}

var legend = opts.Legend{
	Type:   "scroll",
	Orient: "vertical",
	Right:  "10",
	Top:    "20",
	Bottom: "20",
}

// Render 输出关联图与收敛曲线
func (c *Charts) Render(w io.Writer) error {
	network := charts.NewGraph()
	network.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "方程关联",
			Subtitle: "方程与未知量的关联图, 匹配边标记为1",
		}),
		charts.WithLegendOpts(legend),
	)
	network.SetSeriesOptions(
		charts.WithEmphasisOpts(opts.Emphasis{
			Label: &opts.Label{
				Show:     opts.Bool(true),
				Color:    "black",
				Position: "left",
			},
		}),
		charts.WithLineStyleOpts(opts.LineStyle{
			Curveness: 0.3,
		}),
	)
	residual := charts.NewLine()
	residual.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "收敛曲线",
			Subtitle: "各块缩放残差范数随迭代变化",
		}),
		charts.WithLegendOpts(legend),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "iter",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "log",
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	// 关联图
	{
		nodes := make([]opts.GraphNode, 0, len(c.Equations)+len(c.Unknowns))
		for _, n := range c.Equations {
			nodes = append(nodes, opts.GraphNode{
				Name:     "eq " + n,
				Category: 0,
				Tooltip:  &opts.Tooltip{Show: opts.Bool(true)},
			})
		}
		for _, n := range c.Unknowns {
			nodes = append(nodes, opts.GraphNode{
				Name:     n,
				Category: 1,
				Tooltip:  &opts.Tooltip{Show: opts.Bool(true)},
			})
		}
		links := make([]opts.GraphLink, 0)
		for i, cols := range c.Incidence {
			for _, j := range cols {
				link := opts.GraphLink{
					Source: nodes[i].Name,
					Target: nodes[len(c.Equations)+j].Name,
				}
				if i < len(c.Match) && c.Match[i] == j {
					link.Value = 1
				}
				links = append(links, link)
			}
		}
		network.AddSeries("关联", nodes, links,
			charts.WithGraphChartOpts(opts.GraphChart{
				Categories: []*opts.GraphCategory{
					{Name: "方程"},
					{Name: "未知量"},
				},
				Roam:               opts.Bool(true),
				Force:              &opts.GraphForce{Repulsion: 80},
				EdgeLabel:          &opts.EdgeLabel{Show: opts.Bool(true)},
				FocusNodeAdjacency: opts.Bool(true),
			}))
	}
	// 收敛曲线
	{
		n := 0
		for _, h := range c.History {
			n = max(n, len(h))
		}
		axis := make([]int, n)
		for i := range axis {
			axis[i] = i + 1
		}
		residual.SetXAxis(axis)
		for b, h := range c.History {
			items := make([]opts.LineData, len(h))
			for i, s := range h {
				items[i] = opts.LineData{Value: s.Norm}
			}
			residual.AddSeries(fmt.Sprintf("Block(%d)", b+1), items)
		}
	}
	page := components.NewPage()
	page.AddCharts(network, residual)
	return page.Render(w)
}

// Handler 发布到网页
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		c.Error(err)
	}
}
