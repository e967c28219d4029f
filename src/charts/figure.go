package charts

import (
	"image/color"
	"math"
	"time"

	"github.com/MathDEV-0/ProxyTCPRedes/src/tcplog"
)

// Series palette, matching the classic tab10 colours.
var (
	colorRed    = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorBlue   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorGreen  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	colorPurple = color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}
	colorOrange = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	colorGray   = color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}
	colorGrid   = color.NRGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0x99}
)

// Overlay is an optional secondary line drawn on a panel.
type Overlay struct {
	Name   string
	Color  color.RGBA
	Values []float64
}

// Runs returns [start,end) index ranges of consecutive finite values. Rows
// with an empty cell split the overlay into separate segments.
func (o Overlay) Runs() [][2]int {
	var out [][2]int
	start := -1
	for i, v := range o.Values {
		finite := !math.IsNaN(v) && !math.IsInf(v, 0)
		switch {
		case finite && start < 0:
			start = i
		case !finite && start >= 0:
			out = append(out, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, [2]int{start, len(o.Values)})
	}
	return out
}

// Annotation marks an algorithm change at one row of a panel.
type Annotation struct {
	Row   int
	Time  time.Time
	Value float64
	Label string
}

// Panel is one stacked subplot.
type Panel struct {
	Title       string
	YLabel      string
	Column      string
	Color       color.RGBA
	Values      []float64
	Overlays    []Overlay
	Annotations []Annotation
}

// YBounds returns nice bounds over the main series and overlays. Panels with
// annotations get extra headroom for the label text.
func (p *Panel) YBounds() (float64, float64) {
	all := [][]float64{p.Values}
	for _, o := range p.Overlays {
		all = append(all, o.Values)
	}
	lo, hi, ok := valueBounds(all...)
	if !ok {
		return 0, 1
	}
	if len(p.Annotations) > 0 {
		span := hi - lo
		if span == 0 {
			span = math.Max(math.Abs(hi), 1)
		}
		hi += span * 0.15
	}
	return niceAxisBounds(lo, hi)
}

// Figure is the renderer-independent description of the four-panel chart.
type Figure struct {
	Title        string
	Subtitle     string
	XLabel       string
	Times        []time.Time
	Panels       []Panel
	ChangePoints []int
}

// Panel indices in Figure.Panels.
const (
	PanelRTT = iota
	PanelThroughput
	PanelCwnd
	PanelBuffer
)

// NewFigure derives the chart description from a parsed log. Overlays for the
// optional ssthresh and rttvar columns are added when withOverlays is set.
func NewFigure(lg *tcplog.Log, withOverlays bool) *Figure {
	fig := &Figure{
		Title:        "TCP Connection Analysis",
		Subtitle:     "File: " + lg.Path,
		XLabel:       "Time",
		Times:        lg.Times(),
		ChangePoints: lg.ChangePoints(),
	}
	fig.Panels = []Panel{
		{Title: "RTT (Round Trip Time) over time", YLabel: "RTT (us)", Column: tcplog.ColRTT, Color: colorRed},
		{Title: "Throughput", YLabel: "Throughput (Bytes/s)", Column: tcplog.ColThroughput, Color: colorBlue},
		{Title: "Congestion Window (CWND)", YLabel: "CWND (packets)", Column: tcplog.ColCwnd, Color: colorGreen},
		{Title: "TCP Buffer Size", YLabel: "Buffer (Bytes)", Column: tcplog.ColBufferSize, Color: colorPurple},
	}
	for i := range fig.Panels {
		fig.Panels[i].Values = lg.Column(fig.Panels[i].Column)
	}
	if withOverlays {
		if v := lg.Column(tcplog.ColRTTVar); v != nil {
			fig.Panels[PanelRTT].Overlays = append(fig.Panels[PanelRTT].Overlays, Overlay{Name: "rttvar", Color: colorOrange, Values: v})
		}
		if v := lg.Column(tcplog.ColSSThresh); v != nil {
			fig.Panels[PanelCwnd].Overlays = append(fig.Panels[PanelCwnd].Overlays, Overlay{Name: "ssthresh", Color: colorGray, Values: v})
		}
	}
	for _, pi := range []int{PanelCwnd, PanelBuffer} {
		p := &fig.Panels[pi]
		for _, row := range fig.ChangePoints {
			p.Annotations = append(p.Annotations, Annotation{
				Row:   row,
				Time:  fig.Times[row],
				Value: p.Values[row],
				Label: lg.Records[row].Algorithm,
			})
		}
	}
	return fig
}

// TimeRange returns the first and last instants on the shared axis.
func (f *Figure) TimeRange() (time.Time, time.Time) {
	if len(f.Times) == 0 {
		return time.Time{}, time.Time{}
	}
	lo, hi := f.Times[0], f.Times[0]
	for _, t := range f.Times[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	return lo, hi
}
