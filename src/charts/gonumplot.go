package charts

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const gonumName = "gonum"

// gonumRenderer lays the panels out with plot.Align on a single vgimg canvas.
type gonumRenderer struct{}

func (gonumRenderer) Name() string { return gonumName }

// unixSeconds is the x coordinate used on gonum axes.
func unixSeconds(t time.Time) float64 { return float64(t.UnixMilli()) / 1000 }

func textStyle(points float64) text.Style {
	return text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, vg.Points(points)),
		XAlign:  text.XCenter,
		YAlign:  text.YTop,
		Handler: plot.DefaultTextHandler,
	}
}

func (gonumRenderer) Render(fig *Figure, opts Options) (image.Image, error) {
	if len(fig.Times) == 0 {
		return nil, fmt.Errorf("no rows to plot")
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.WidthIn)*vg.Inch, vg.Length(opts.HeightIn)*vg.Inch),
		vgimg.UseDPI(opts.DPI),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(c)

	ts, ss := textStyle(16), textStyle(12)
	top := dc.Max.Y - vg.Points(10)
	dc.FillText(ts, vg.Point{X: dc.Center().X, Y: top}, fig.Title)
	top -= ts.Height(fig.Title) + vg.Points(4)
	dc.FillText(ss, vg.Point{X: dc.Center().X, Y: top}, fig.Subtitle)
	top -= ss.Height(fig.Subtitle) + vg.Points(10)
	body := draw.Crop(dc, 0, 0, 0, top-dc.Max.Y)

	lo, hi := fig.TimeRange()
	var xTicks []plot.Tick
	for _, t := range timeTicks(lo, hi) {
		xTicks = append(xTicks, plot.Tick{Value: unixSeconds(t), Label: t.Format(ClockFormat)})
	}

	plots := make([][]*plot.Plot, len(fig.Panels))
	for i := range fig.Panels {
		p, err := gonumPanel(fig, i, xTicks, i == len(fig.Panels)-1)
		if err != nil {
			return nil, fmt.Errorf("panel %q: %w", fig.Panels[i].Title, err)
		}
		plots[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(fig.Panels),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 6,
	}
	canvases := plot.Align(plots, tiles, body)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	return c.Image(), nil
}

func dashedGrid() *plotter.Grid {
	g := plotter.NewGrid()
	for _, ls := range []*draw.LineStyle{&g.Vertical, &g.Horizontal} {
		ls.Color = colorGrid
		ls.Width = vg.Points(0.5)
		ls.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
	}
	return g
}

func gonumPanel(fig *Figure, i int, xTicks []plot.Tick, last bool) (*plot.Plot, error) {
	panel := &fig.Panels[i]
	p := plot.New()
	p.Title.Text = panel.Title
	p.Y.Label.Text = panel.YLabel
	p.Add(dashedGrid())

	xys := make(plotter.XYs, len(fig.Times))
	for j, t := range fig.Times {
		xys[j].X = unixSeconds(t)
		xys[j].Y = panel.Values[j]
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = panel.Color
	line.LineStyle.Width = vg.Points(1.2)
	p.Add(line)
	if len(xys) == 1 {
		dot, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		dot.GlyphStyle.Color = panel.Color
		p.Add(dot)
	}

	for _, o := range panel.Overlays {
		for k, run := range o.Runs() {
			oxys := make(plotter.XYs, 0, run[1]-run[0])
			for j := run[0]; j < run[1]; j++ {
				oxys = append(oxys, plotter.XY{X: unixSeconds(fig.Times[j]), Y: o.Values[j]})
			}
			ol, err := plotter.NewLine(oxys)
			if err != nil {
				return nil, err
			}
			ol.LineStyle.Color = o.Color
			ol.LineStyle.Width = vg.Points(1)
			ol.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			p.Add(ol)
			if k == 0 {
				p.Legend.Add(o.Name, ol)
			}
		}
	}
	if len(panel.Overlays) > 0 {
		p.Legend.Add(panel.YLabel, line)
		p.Legend.Top = true
		p.Legend.Left = true
	}
	if len(panel.Annotations) > 0 {
		p.Add(annotationPlotter{anns: panel.Annotations})
	}

	// Ranges are fixed after Add so every panel shares the same x extent.
	p.X.Min, p.X.Max = xTicks[0].Value, xTicks[len(xTicks)-1].Value
	p.Y.Min, p.Y.Max = panel.YBounds()

	if last {
		p.X.Tick.Marker = plot.ConstantTicks(xTicks)
		p.X.Label.Text = fig.XLabel
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = text.XRight
		p.X.Tick.Label.YAlign = text.YCenter
	} else {
		unlabelled := make([]plot.Tick, len(xTicks))
		for j, t := range xTicks {
			unlabelled[j] = plot.Tick{Value: t.Value}
		}
		p.X.Tick.Marker = plot.ConstantTicks(unlabelled)
	}
	var yTicks []plot.Tick
	for _, v := range niceTicks(p.Y.Min, p.Y.Max, 6) {
		yTicks = append(yTicks, plot.Tick{Value: v, Label: formatTick(v)})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	if n := len(yTicks); n > 0 {
		p.Y.Min, p.Y.Max = yTicks[0].Value, yTicks[n-1].Value
	}
	return p, nil
}

// annotationPlotter draws algorithm labels 15pt above their points with an
// arrow pointing down at the sample.
type annotationPlotter struct {
	anns []Annotation
}

func (a annotationPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	sty := textStyle(9)
	sty.YAlign = text.YBottom
	arrow := draw.LineStyle{Color: color.Black, Width: vg.Points(0.8)}
	head := vg.Points(4)
	offset := vg.Points(15)
	for _, ann := range a.anns {
		x, y := trX(unixSeconds(ann.Time)), trY(ann.Value)
		c.StrokeLine2(arrow, x, y+offset-vg.Points(2), x, y+head)
		c.FillPolygon(color.Black, []vg.Point{
			{X: x - head/2, Y: y + head},
			{X: x + head/2, Y: y + head},
			{X: x, Y: y},
		})
		c.FillText(sty, vg.Point{X: x, Y: y + offset}, ann.Label)
	}
}
