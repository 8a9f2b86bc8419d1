package debug

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot 收敛曲线图片
type Plot struct {
	Record
	Format string    // png, svg, pdf; 默认 png
	Width  vg.Length // 默认 16cm
	Height vg.Length // 默认 10cm
}

// Render 输出对数坐标的残差范数曲线
func (p *Plot) Render(w io.Writer) error {
	pl := plot.New()
	pl.Title.Text = "residual norm"
	pl.X.Label.Text = "iteration"
	pl.Y.Label.Text = "‖r‖∞ (scaled)"
	positive := false
	for b, h := range p.History {
		xys := make(plotter.XYs, 0, len(h))
		for _, s := range h {
			// 对数坐标跳过零残差
			if s.Norm > 0 {
				xys = append(xys, plotter.XY{X: float64(s.Iter + 1), Y: s.Norm})
			}
		}
		if len(xys) == 0 {
			continue
		}
		positive = true
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("debug: block %d: %w", b+1, err)
		}
		line.Color = plotutil.Color(b)
		line.Dashes = plotutil.Dashes(b)
		pl.Add(line)
		pl.Legend.Add(fmt.Sprintf("Block(%d)", b+1), line)
	}
	if positive {
		pl.Y.Scale = plot.LogScale{}
		pl.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	pl.Add(plotter.NewGrid())

	format, width, height := p.Format, p.Width, p.Height
	if format == "" {
		format = "png"
	}
	if width <= 0 {
		width = 16 * vg.Centimeter
	}
	if height <= 0 {
		height = 10 * vg.Centimeter
	}
	wt, err := pl.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("debug: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
