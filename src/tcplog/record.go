// Package tcplog loads the per-connection CSV metrics written by the proxy's
// background logger and derives the series the charts are drawn from.
package tcplog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Column names as written in the CSV header.
const (
	ColEpochMs    = "epoch_ms"
	ColRTT        = "rtt_us"
	ColThroughput = "throughput_Bps"
	ColCwnd       = "cwnd"
	ColBufferSize = "buffer_size"
	ColAlgorithm  = "algorithm"
	ColSSThresh   = "ssthresh"
	ColRTTVar     = "rttvar_us"
)

var (
	// ErrNotFound is returned by Load when the input file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrMissingColumn is wrapped by *ColumnError.
	ErrMissingColumn = errors.New("missing column")
	// ErrBadValue is wrapped by *ValueError.
	ErrBadValue = errors.New("unparseable value")
	// ErrNoRecords means the header was read but no data rows followed.
	ErrNoRecords = errors.New("no data rows")
)

// ColumnError reports a required column absent from the header.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string { return fmt.Sprintf("missing column %q", e.Column) }
func (e *ColumnError) Unwrap() error { return ErrMissingColumn }

// ValueError reports a cell that could not be parsed. Row is the 1-based data
// row (the header is not counted).
type ValueError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("row %d column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}
func (e *ValueError) Unwrap() error { return ErrBadValue }

// Record is one sampled row.
type Record struct {
	EpochMs       int64
	Timestamp     time.Time
	RTTMicros     float64
	ThroughputBps float64
	Cwnd          float64
	BufferSize    float64
	Algorithm     string
	// Optional columns, NaN when the log does not carry them.
	SSThresh     float64
	RTTVarMicros float64
}

// Log is a parsed metrics file in file order.
type Log struct {
	Path         string
	Records      []Record
	HasAlgorithm bool
	HasSSThresh  bool
	HasRTTVar    bool
}

// TimestampOf converts epoch milliseconds to local wall-clock time.
func TimestampOf(epochMs int64) time.Time {
	return time.UnixMilli(epochMs).Local()
}

// header maps column names to their index, like a tiny table.
type header struct {
	names map[string]int
}

func newHeader(cols []string) *header {
	h := &header{names: make(map[string]int, len(cols))}
	for i, c := range cols {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if _, dup := h.names[c]; !dup {
			h.names[c] = i
		}
	}
	return h
}

func (h *header) has(col string) bool {
	_, ok := h.names[col]
	return ok
}

func (h *header) index(col string) (int, error) {
	if i, ok := h.names[col]; ok {
		return i, nil
	}
	return -1, &ColumnError{Column: col}
}

// Load reads and parses the CSV at path. A leading ~ is expanded to the
// user's home directory.
func Load(path string) (*Log, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: '%s'", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	start := time.Now()
	lg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	lg.Path = path
	TimeTrack(start, "parse "+path)
	Debugf("loaded %d records from %s (algorithm=%t ssthresh=%t rttvar=%t)", len(lg.Records), path, lg.HasAlgorithm, lg.HasSSThresh, lg.HasRTTVar)
	return lg, nil
}

// Parse reads a CSV with a header row. Rows keep their order; nothing is sorted.
func Parse(r io.Reader) (*Log, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = -1
	in.ReuseRecord = true
	cols, err := in.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty input: header row required")
		}
		return nil, err
	}
	h := newHeader(cols)

	required := make(map[string]int, 5)
	for _, col := range []string{ColEpochMs, ColRTT, ColThroughput, ColCwnd, ColBufferSize} {
		idx, err := h.index(col)
		if err != nil {
			return nil, err
		}
		required[col] = idx
	}
	lg := &Log{
		HasAlgorithm: h.has(ColAlgorithm),
		HasSSThresh:  h.has(ColSSThresh),
		HasRTTVar:    h.has(ColRTTVar),
	}

	for rowNum := 1; ; rowNum++ {
		row, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cell := func(col string) (string, error) {
			idx := required[col]
			if idx >= len(row) {
				return "", &ValueError{Row: rowNum, Column: col, Err: errors.New("row too short")}
			}
			return strings.TrimSpace(row[idx]), nil
		}
		num := func(col string) (float64, error) {
			raw, err := cell(col)
			if err != nil {
				return 0, err
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
				err = errors.New("not a finite number")
			}
			if err != nil {
				return 0, &ValueError{Row: rowNum, Column: col, Value: raw, Err: err}
			}
			return v, nil
		}
		optional := func(col string) (float64, error) {
			idx, ok := h.names[col]
			if !ok || idx >= len(row) {
				return math.NaN(), nil
			}
			raw := strings.TrimSpace(row[idx])
			if raw == "" {
				return math.NaN(), nil
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, &ValueError{Row: rowNum, Column: col, Value: raw, Err: err}
			}
			return v, nil
		}

		var rec Record
		rawEpoch, err := cell(ColEpochMs)
		if err != nil {
			return nil, err
		}
		if rec.EpochMs, err = parseEpochMs(rawEpoch); err != nil {
			return nil, &ValueError{Row: rowNum, Column: ColEpochMs, Value: rawEpoch, Err: err}
		}
		rec.Timestamp = TimestampOf(rec.EpochMs)
		if rec.RTTMicros, err = num(ColRTT); err != nil {
			return nil, err
		}
		if rec.ThroughputBps, err = num(ColThroughput); err != nil {
			return nil, err
		}
		if rec.Cwnd, err = num(ColCwnd); err != nil {
			return nil, err
		}
		if rec.BufferSize, err = num(ColBufferSize); err != nil {
			return nil, err
		}
		if rec.SSThresh, err = optional(ColSSThresh); err != nil {
			return nil, err
		}
		if rec.RTTVarMicros, err = optional(ColRTTVar); err != nil {
			return nil, err
		}
		if idx, ok := h.names[ColAlgorithm]; ok && idx < len(row) {
			rec.Algorithm = strings.TrimSpace(row[idx])
		}
		lg.Records = append(lg.Records, rec)
	}
	if len(lg.Records) == 0 {
		return nil, ErrNoRecords
	}
	return lg, nil
}

// parseEpochMs accepts an integer and falls back to a decimal form, truncating
// fractional milliseconds.
func parseEpochMs(raw string) (int64, error) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return int64(f), nil
}

// Times returns the derived timestamps in row order.
func (l *Log) Times() []time.Time {
	out := make([]time.Time, len(l.Records))
	for i, r := range l.Records {
		out[i] = r.Timestamp
	}
	return out
}

// Column returns the numeric series for a column name. Unknown names and
// optional columns the log does not carry yield nil.
func (l *Log) Column(name string) []float64 {
	var get func(Record) float64
	switch name {
	case ColRTT:
		get = func(r Record) float64 { return r.RTTMicros }
	case ColThroughput:
		get = func(r Record) float64 { return r.ThroughputBps }
	case ColCwnd:
		get = func(r Record) float64 { return r.Cwnd }
	case ColBufferSize:
		get = func(r Record) float64 { return r.BufferSize }
	case ColSSThresh:
		if !l.HasSSThresh {
			return nil
		}
		get = func(r Record) float64 { return r.SSThresh }
	case ColRTTVar:
		if !l.HasRTTVar {
			return nil
		}
		get = func(r Record) float64 { return r.RTTVarMicros }
	default:
		return nil
	}
	out := make([]float64, len(l.Records))
	for i, r := range l.Records {
		out[i] = get(r)
	}
	return out
}
