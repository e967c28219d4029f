// Package charts renders a parsed TCP metrics log as a four-panel time-series
// figure (RTT, throughput, congestion window, buffer size) and writes it as PNG.
package charts

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/multierr"

	"github.com/MathDEV-0/ProxyTCPRedes/src/tcplog"
)

// Renderer draws a Figure into a raster image.
type Renderer interface {
	Name() string
	Render(fig *Figure, opts Options) (image.Image, error)
}

var renderers = map[string]Renderer{
	goChartName: goChartRenderer{},
	gonumName:   gonumRenderer{},
}

// ErrUnknownRenderer is returned for a renderer name that is not registered.
var ErrUnknownRenderer = errors.New("unknown renderer")

// RendererNames lists the registered renderers in sorted order.
func RendererNames() []string {
	out := make([]string, 0, len(renderers))
	for n := range renderers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RendererFor looks up a renderer; an empty name selects the default.
func RendererFor(name string) (Renderer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = goChartName
	}
	r, ok := renderers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownRenderer, name, strings.Join(RendererNames(), ", "))
	}
	return r, nil
}

// Options controls figure size and output.
type Options struct {
	Renderer string
	// DPI is the output resolution. The figure is WidthIn x HeightIn inches.
	DPI      int
	WidthIn  float64
	HeightIn float64
	// Output overrides the PNG path derived from the input name.
	Output string
	// Overlays enables the optional ssthresh/rttvar lines.
	Overlays bool
}

const (
	defaultDPI = 300
	maxDPI     = 600
)

// DefaultOptions returns a 12x16 inch figure at 300 DPI using go-chart.
func DefaultOptions() Options {
	return Options{
		Renderer: goChartName,
		DPI:      defaultDPI,
		WidthIn:  12,
		HeightIn: 16,
		Overlays: true,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	if o.DPI > maxDPI {
		o.DPI = maxDPI
	}
	if o.WidthIn <= 0 {
		o.WidthIn = d.WidthIn
	}
	if o.HeightIn <= 0 {
		o.HeightIn = d.HeightIn
	}
	return o
}

// pixelSize returns the canvas size in pixels.
func (o Options) pixelSize() (int, int) {
	return int(o.WidthIn * float64(o.DPI)), int(o.HeightIn * float64(o.DPI))
}

// Result describes a completed plot.
type Result struct {
	Log        *tcplog.Log
	Figure     *Figure
	OutputPath string
	Image      image.Image
}

// OutputPath derives the PNG path: a trailing .csv (any case) becomes .png,
// anything else gets .png appended. The directory is unchanged.
func OutputPath(in string) string {
	ext := filepath.Ext(in)
	if strings.EqualFold(ext, ".csv") {
		return strings.TrimSuffix(in, ext) + ".png"
	}
	return in + ".png"
}

// PlotFile loads the CSV at path, renders the figure and writes the PNG.
// A missing input yields an error matching tcplog.ErrNotFound and no output.
func PlotFile(path string, opts Options) (*Result, error) {
	if _, err := RendererFor(opts.Renderer); err != nil {
		return nil, err
	}
	lg, err := tcplog.Load(path)
	if err != nil {
		return nil, err
	}
	return Plot(lg, opts)
}

// Plot renders an already loaded log and writes the PNG.
func Plot(lg *tcplog.Log, opts Options) (*Result, error) {
	opts = opts.normalized()
	r, err := RendererFor(opts.Renderer)
	if err != nil {
		return nil, err
	}
	fig := NewFigure(lg, opts.Overlays)
	tcplog.Debugf("figure: rows=%d change_points=%v renderer=%s dpi=%d", len(fig.Times), fig.ChangePoints, r.Name(), opts.DPI)

	start := time.Now()
	img, err := r.Render(fig, opts)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", r.Name(), err)
	}
	tcplog.TimeTrack(start, "render "+r.Name())
	img = trimToContent(img, color.White, opts.DPI/10)

	out := opts.Output
	if out == "" {
		out = OutputPath(lg.Path)
	}
	if err := SavePNG(out, img); err != nil {
		return nil, err
	}
	return &Result{Log: lg, Figure: fig, OutputPath: out, Image: img}, nil
}

// SavePNG encodes img to path via a temporary file in the same directory, so
// a failed encode never leaves a partial PNG behind.
func SavePNG(path string, img image.Image) (err error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand %s: %w", path, err)
	}
	dir := filepath.Dir(expanded)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(expanded)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if err := png.Encode(tmp, img); err != nil {
		return multierr.Append(fmt.Errorf("png encode %s: %w", path, err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), expanded); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// trimToContent crops uniform bg borders, keeping pad pixels of margin.
func trimToContent(img image.Image, bg color.Color, pad int) image.Image {
	b := img.Bounds()
	br, bgc, bb, ba := bg.RGBA()
	isBg := func(x, y int) bool {
		r, g, bl, a := img.At(x, y).RGBA()
		return r == br && g == bgc && bl == bb && a == ba
	}
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if isBg(x, y) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return img
	}
	crop := image.Rect(minX-pad, minY-pad, maxX+1+pad, maxY+1+pad).Intersect(b)
	if crop == b {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
	return out
}
