// Command tcpplot renders a TCP connection metrics CSV as a four-panel chart
// (RTT, throughput, CWND, buffer size), saves it as PNG next to the input and
// shows it in a window.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MathDEV-0/ProxyTCPRedes/src/charts"
	"github.com/MathDEV-0/ProxyTCPRedes/src/tcplog"
)

type cliOptions struct {
	out        string
	renderer   string
	dpi        int
	noShow     bool
	summary    bool
	noOverlays bool
	logLevel   string
}

// showChart is replaced in tests so no window is opened.
var showChart = showInWindow

func newRootCmd(stdout io.Writer) *cobra.Command {
	var o cliOptions
	cmd := &cobra.Command{
		Use:   "tcpplot <metrics.csv>",
		Short: "Plot RTT, throughput, CWND and buffer size from a TCP metrics CSV",
		Long: "tcpplot reads a CSV written by the proxy metrics logger (epoch_ms, rtt_us,\n" +
			"throughput_Bps, cwnd, buffer_size and optionally algorithm) and saves a\n" +
			"four-panel chart as <name>.png next to the input. Algorithm changes are\n" +
			"annotated on the CWND and buffer panels.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.SetOut(stdout)
				return cmd.Usage()
			}
			if len(args) > 1 {
				tcplog.Warnf("ignoring extra arguments: %s", strings.Join(args[1:], " "))
			}
			tcplog.SetLogLevel(o.logLevel)
			return run(stdout, args[0], o)
		},
	}
	cmd.SetOut(stdout)
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "", "PNG output path (default: input with .csv replaced by .png)")
	f.StringVar(&o.renderer, "renderer", "gochart", "chart renderer: "+strings.Join(charts.RendererNames(), "|"))
	f.IntVar(&o.dpi, "dpi", charts.DefaultOptions().DPI, "output resolution in dots per inch")
	f.BoolVar(&o.noShow, "no-show", false, "save the PNG without opening a window")
	f.BoolVar(&o.summary, "summary", false, "print per-algorithm segment statistics")
	f.BoolVar(&o.noOverlays, "no-overlays", false, "do not draw ssthresh/rttvar overlays")
	f.StringVar(&o.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	return cmd
}

func run(stdout io.Writer, path string, o cliOptions) error {
	opts := charts.DefaultOptions()
	opts.Renderer = o.renderer
	opts.DPI = o.dpi
	opts.Output = o.out
	opts.Overlays = !o.noOverlays

	res, err := charts.PlotFile(path, opts)
	if errors.Is(err, tcplog.ErrNotFound) {
		fmt.Fprintf(stdout, "Error: file '%s' not found.\n", path)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "[OK] Chart saved as: %s\n", res.OutputPath)

	if o.summary {
		if err := tcplog.WriteSummary(stdout, tcplog.Summarize(res.Log)); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if o.noShow {
		return nil
	}
	if !displayAvailable() {
		tcplog.Infof("no display available, skipping chart window")
		return nil
	}
	return showChart(res)
}

// displayAvailable reports whether a window can be opened. Only X11/Wayland
// platforms need an explicit check.
func displayAvailable() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
	return true
}

func main() {
	defer tcplog.SyncLogs()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		tcplog.SyncLogs()
		os.Exit(1)
	}
}
