package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const goChartName = "gochart"

// goChartRenderer draws each panel as its own go-chart and stacks them on one
// canvas under a shared header.
type goChartRenderer struct{}

func (goChartRenderer) Name() string { return goChartName }

// toDrawing converts to go-chart's non-premultiplied colour.
func toDrawing(c color.Color) drawing.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return drawing.Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// lineStyle returns a solid line style scaled for dpi.
func lineStyle(col color.RGBA, scale float64) chart.Style {
	return chart.Style{
		StrokeColor: toDrawing(col),
		StrokeWidth: 1.5 * scale,
	}
}

func gridStyle(scale float64) chart.Style {
	return chart.Style{
		StrokeColor:     toDrawing(colorGrid),
		StrokeWidth:     0.8 * scale,
		StrokeDashArray: []float64{4 * scale, 3 * scale},
	}
}

// panelLayout holds the pixel geometry shared by all panels.
type panelLayout struct {
	dpi        int
	scale      float64
	width      int
	plotHeight int
	padTop     int
	padLeft    int
	padRight   int
	padBottom  int
	// extraBottom is added to the last panel for the rotated time labels.
	extraBottom int
	xTicks      []chart.Tick
	yTicks      [][]chart.Tick
	// yTickWidth holds, per panel, the extra right padding that makes its
	// axis as wide as the widest one.
	yTickWidth []int
	yAxisWidth int
}

func (goChartRenderer) Render(fig *Figure, opts Options) (image.Image, error) {
	if len(fig.Times) == 0 {
		return nil, fmt.Errorf("no rows to plot")
	}
	w, h := opts.pixelSize()
	lay, err := newPanelLayout(fig, opts.DPI, w)
	if err != nil {
		return nil, err
	}
	headH, err := headerHeight(opts.DPI)
	if err != nil {
		return nil, err
	}
	xLabelH := opts.DPI / 3
	lay.plotHeight = (h - headH - xLabelH - lay.extraBottom) / len(fig.Panels)
	if lay.plotHeight < lay.padTop+lay.padBottom+opts.DPI/2 {
		return nil, fmt.Errorf("figure height %dpx too small for %d panels", h, len(fig.Panels))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	y, err := drawHeader(canvas, fig.Title, fig.Subtitle, opts.DPI)
	if err != nil {
		return nil, err
	}

	for i := range fig.Panels {
		last := i == len(fig.Panels)-1
		ch := lay.panelChart(fig, i, last)
		var buf bytes.Buffer
		if err := ch.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("panel %q: %w", fig.Panels[i].Title, err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			return nil, fmt.Errorf("panel %q decode: %w", fig.Panels[i].Title, err)
		}
		r := image.Rect(0, y, img.Bounds().Dx(), y+img.Bounds().Dy())
		draw.Draw(canvas, r, img, img.Bounds().Min, draw.Src)
		y = r.Max.Y
	}

	xf, err := regularFace(11, opts.DPI)
	if err != nil {
		return nil, err
	}
	defer xf.Close()
	plotCenter := (lay.padLeft + w - lay.padRight - lay.yAxisWidth) / 2
	drawCentered(canvas, xf, fig.XLabel, plotCenter, y+xf.Metrics().Ascent.Ceil(), color.Black)
	return canvas, nil
}

// newPanelLayout measures tick labels with go-chart's own font so every panel
// ends up with the same plot-area width and the x positions line up.
func newPanelLayout(fig *Figure, dpi, width int) (*panelLayout, error) {
	fnt, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r, err := chart.PNG(16, 16)
	if err != nil {
		return nil, err
	}
	r.SetDPI(float64(dpi))
	r.SetFont(fnt)
	r.SetFontSize(chart.DefaultAxisFontSize)

	scale := float64(dpi) / chart.DefaultDPI
	lay := &panelLayout{
		dpi:       dpi,
		scale:     scale,
		width:     width,
		padTop:    int(44 * scale),
		padBottom: int(12 * scale),
	}

	lo, hi := fig.TimeRange()
	for _, t := range timeTicks(lo, hi) {
		lay.xTicks = append(lay.xTicks, chart.Tick{Value: chart.TimeToFloat64(t), Label: t.Format(ClockFormat)})
	}
	labelBox := r.MeasureText("00:00:00")
	lay.padLeft = labelBox.Width()/2 + int(24*scale)
	lay.extraBottom = int(float64(labelBox.Width())*math.Sin(math.Pi/4)) + labelBox.Height() + 2*chart.DefaultXAxisMargin

	maxW := 0
	for i := range fig.Panels {
		ymin, ymax := fig.Panels[i].YBounds()
		var ticks []chart.Tick
		tw := 0
		for _, v := range niceTicks(ymin, ymax, 6) {
			label := formatTick(v)
			ticks = append(ticks, chart.Tick{Value: v, Label: label})
			if bw := r.MeasureText(label).Width(); bw > tw {
				tw = bw
			}
		}
		lay.yTicks = append(lay.yTicks, ticks)
		lay.yTickWidth = append(lay.yTickWidth, tw)
		if tw > maxW {
			maxW = tw
		}
	}
	lay.padRight = int(16 * scale)
	lay.yAxisWidth = 2*chart.DefaultYAxisMargin + maxW + labelBox.Height()
	for i := range lay.yTickWidth {
		lay.yTickWidth[i] = maxW - lay.yTickWidth[i]
	}
	return lay, nil
}

// xTickStyle keeps the time labels on every panel so go-chart lays the axes out
// identically, but only the last panel shows them.
func xTickStyle(last bool) chart.Style {
	st := chart.Style{TextRotationDegrees: 45}
	if !last {
		st.FontColor = drawing.ColorTransparent
	}
	return st
}

func (l *panelLayout) panelChart(fig *Figure, i int, last bool) chart.Chart {
	p := &fig.Panels[i]
	series := []chart.Series{}
	main := chart.TimeSeries{Name: p.YLabel, Style: lineStyle(p.Color, l.scale), XValues: fig.Times, YValues: p.Values}
	if len(fig.Times) == 1 {
		main.Style.DotWidth = 3 * l.scale
		main.Style.DotColor = toDrawing(p.Color)
	}
	series = append(series, main)
	legend := []chart.Series{main}
	for _, o := range p.Overlays {
		st := lineStyle(o.Color, l.scale)
		st.StrokeWidth = 1.2 * l.scale
		st.StrokeDashArray = []float64{6 * l.scale, 4 * l.scale}
		for k, run := range o.Runs() {
			ts := chart.TimeSeries{Name: o.Name, Style: st, XValues: fig.Times[run[0]:run[1]], YValues: o.Values[run[0]:run[1]]}
			series = append(series, ts)
			if k == 0 {
				legend = append(legend, ts)
			}
		}
	}

	height := l.plotHeight
	padBottom := l.padBottom
	if last {
		height += l.extraBottom
		padBottom += l.extraBottom
	}
	grid := gridStyle(l.scale)
	ch := chart.Chart{
		Title:      p.Title,
		TitleStyle: chart.Style{FontSize: 12},
		Width:      l.width,
		Height:     height,
		DPI:        float64(l.dpi),
		Background: chart.Style{Padding: chart.Box{
			Top:    l.padTop,
			Left:   l.padLeft,
			Right:  l.padRight + l.yTickWidth[i],
			Bottom: padBottom,
		}},
		XAxis: chart.XAxis{
			Ticks:          l.xTicks,
			TickStyle:      xTickStyle(last),
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           p.YLabel,
			Ticks:          l.yTicks[i],
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		Series: series,
	}
	if len(p.Overlays) > 0 {
		// The legend lists each overlay once even when gaps split it.
		ch.Elements = append(ch.Elements, chart.Legend(&chart.Chart{Series: legend}))
	}
	if len(p.Annotations) > 0 {
		xr := [2]float64{l.xTicks[0].Value, l.xTicks[len(l.xTicks)-1].Value}
		yt := l.yTicks[i]
		yr := [2]float64{yt[0].Value, yt[len(yt)-1].Value}
		ch.Elements = append(ch.Elements, annotationArrows(p.Annotations, xr, yr, l.dpi))
	}
	return ch
}

// annotationArrows draws each label above its point with an arrow down to it.
// xr and yr are the axis ranges, which equal the first and last tick because
// the axes are given explicit ticks.
func annotationArrows(anns []Annotation, xr, yr [2]float64, dpi int) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		scale := float64(dpi) / chart.DefaultDPI
		offset := int(15 * float64(dpi) / 72)
		head := int(6 * scale)
		black := drawing.ColorBlack

		r.SetFont(defaults.Font)
		r.SetFontSize(chart.DefaultFontSize)
		r.SetFontColor(black)
		r.SetStrokeDashArray(nil)
		r.ClearTextRotation()
		for _, a := range anns {
			lx := box.Left + translate(chart.TimeToFloat64(a.Time), xr, box.Width())
			ly := box.Bottom - translate(a.Value, yr, box.Height())
			baseline := ly - offset

			r.SetStrokeColor(black)
			r.SetStrokeWidth(scale)
			r.MoveTo(lx, baseline+int(3*scale))
			r.LineTo(lx, ly-head)
			r.Stroke()

			r.SetFillColor(black)
			r.MoveTo(lx-head/2, ly-head)
			r.LineTo(lx+head/2, ly-head)
			r.LineTo(lx, ly)
			r.Close()
			r.Fill()

			tb := r.MeasureText(a.Label)
			r.Text(a.Label, lx-tb.Width()/2, baseline)
		}
	}
}

// translate mirrors chart.ContinuousRange.Translate for a [min,max] range.
func translate(v float64, rng [2]float64, domain int) int {
	delta := rng[1] - rng[0]
	if delta == 0 {
		return 0
	}
	return int(math.Ceil((v - rng[0]) / delta * float64(domain)))
}
