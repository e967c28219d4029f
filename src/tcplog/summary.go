package tcplog

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoAlgorithm labels the single segment of a log without an algorithm column.
const NoAlgorithm = "(none)"

// SeriesStats captures aggregate values of one metric over a segment.
type SeriesStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Segment is a run of consecutive rows sharing one congestion-control algorithm.
type Segment struct {
	Algorithm  string
	FirstRow   int
	LastRow    int
	Start      time.Time
	End        time.Time
	Samples    int
	RTT        SeriesStats
	Throughput SeriesStats
	Cwnd       SeriesStats
	Buffer     SeriesStats
}

// Duration is the wall-clock span covered by the segment.
func (s Segment) Duration() time.Duration { return s.End.Sub(s.Start) }

func statsOf(xs []float64) SeriesStats {
	if len(xs) == 0 {
		return SeriesStats{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return SeriesStats{Mean: mean, StdDev: std, Min: floats.Min(xs), Max: floats.Max(xs)}
}

// Summarize splits the log at its change points and aggregates each segment.
func Summarize(l *Log) []Segment {
	if l == nil || len(l.Records) == 0 {
		return nil
	}
	bounds := l.ChangePoints()
	if len(bounds) == 0 {
		bounds = []int{0}
	}
	segs := make([]Segment, 0, len(bounds))
	for i, first := range bounds {
		last := len(l.Records) - 1
		if i+1 < len(bounds) {
			last = bounds[i+1] - 1
		}
		rows := l.Records[first : last+1]
		n := len(rows)
		rtt := make([]float64, n)
		thr := make([]float64, n)
		cwnd := make([]float64, n)
		buf := make([]float64, n)
		for j, r := range rows {
			rtt[j] = r.RTTMicros
			thr[j] = r.ThroughputBps
			cwnd[j] = r.Cwnd
			buf[j] = r.BufferSize
		}
		name := NoAlgorithm
		if l.HasAlgorithm {
			name = rows[0].Algorithm
		}
		segs = append(segs, Segment{
			Algorithm:  name,
			FirstRow:   first,
			LastRow:    last,
			Start:      rows[0].Timestamp,
			End:        rows[n-1].Timestamp,
			Samples:    n,
			RTT:        statsOf(rtt),
			Throughput: statsOf(thr),
			Cwnd:       statsOf(cwnd),
			Buffer:     statsOf(buf),
		})
	}
	return segs
}

// WriteSummary prints one line per segment as an aligned table.
func WriteSummary(w io.Writer, segs []Segment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALGORITHM\tSTART\tEND\tSAMPLES\tRTT_US(mean±sd)\tTHROUGHPUT_BPS(mean)\tCWND(min/max)\tBUFFER(mean)")
	for _, s := range segs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.0f±%.0f\t%.0f\t%.0f/%.0f\t%.0f\n",
			s.Algorithm,
			s.Start.Format("15:04:05"),
			s.End.Format("15:04:05"),
			s.Samples,
			s.RTT.Mean, s.RTT.StdDev,
			s.Throughput.Mean,
			s.Cwnd.Min, s.Cwnd.Max,
			s.Buffer.Mean)
	}
	return tw.Flush()
}
