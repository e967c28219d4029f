package tcplog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleHeader = "epoch_ms,c2s_bytes,s2c_bytes,rtt_us,rttvar_us,throughput_Bps,status,algorithm,buffer_size,cwnd,ssthresh\n"

func TestParse_FullHeader(t *testing.T) {
	in := sampleHeader +
		"1700000000000,100,200,1500,10,64000,OK,CUBIC,65536,10,300\n" +
		"1700000000500,300,400,1700,55,72000,OK,CUBIC,65536,20,300\n" +
		"1700000001000,600,800,2100,120,81000,OK,BBR,131072,40,300\n"
	lg, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lg.Records) != 3 {
		t.Fatalf("expected 3 records got %d", len(lg.Records))
	}
	if !lg.HasAlgorithm || !lg.HasSSThresh || !lg.HasRTTVar {
		t.Fatalf("optional columns not detected: %+v", lg)
	}
	r := lg.Records[2]
	if r.EpochMs != 1700000001000 || r.RTTMicros != 2100 || r.ThroughputBps != 81000 || r.Cwnd != 40 || r.BufferSize != 131072 || r.Algorithm != "BBR" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.SSThresh != 300 || r.RTTVarMicros != 120 {
		t.Fatalf("optional values not parsed: %+v", r)
	}
	// row order is file order
	for i := 1; i < len(lg.Records); i++ {
		if lg.Records[i].EpochMs < lg.Records[i-1].EpochMs {
			t.Fatalf("rows reordered at %d", i)
		}
	}
}

func TestTimestampOf_LocalEpochSeconds(t *testing.T) {
	got := TimestampOf(1700000000000)
	want := time.Unix(1700000000, 0).Local()
	if !got.Equal(want) {
		t.Fatalf("timestamp mismatch: got %v want %v", got, want)
	}
	if got.Location() != time.Local {
		t.Fatalf("expected local location got %v", got.Location())
	}
	if got.UnixMilli() != 1700000000000 {
		t.Fatalf("lost millisecond precision: %d", got.UnixMilli())
	}
}

func TestParse_DerivesTimestamps(t *testing.T) {
	in := "epoch_ms,rtt_us,throughput_Bps,cwnd,buffer_size\n1700000000000,1,2,3,4\n1700000000250.0,1,2,3,4\n"
	lg, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ts := lg.Times()
	if !ts[0].Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("row 0 timestamp %v", ts[0])
	}
	if d := ts[1].Sub(ts[0]); d != 250*time.Millisecond {
		t.Fatalf("row 1 offset %v", d)
	}
	if lg.HasAlgorithm || lg.HasSSThresh || lg.HasRTTVar {
		t.Fatalf("optional columns wrongly detected")
	}
	if lg.Column(ColSSThresh) != nil || lg.ChangePoints() != nil {
		t.Fatalf("absent optional columns should yield nil")
	}
	if !math.IsNaN(lg.Records[0].SSThresh) {
		t.Fatalf("absent ssthresh should be NaN got %v", lg.Records[0].SSThresh)
	}
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	in := "epoch_ms,rtt_us,throughput_Bps,buffer_size,algorithm\n1700000000000,1,2,4,CUBIC\n"
	_, err := Parse(strings.NewReader(in))
	if err == nil {
		t.Fatalf("expected error for missing cwnd")
	}
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn got %v", err)
	}
	var ce *ColumnError
	if !errors.As(err, &ce) || ce.Column != ColCwnd {
		t.Fatalf("error does not name the column: %v", err)
	}
	if !strings.Contains(err.Error(), "cwnd") {
		t.Fatalf("message should name field: %s", err)
	}
}

func TestParse_BadValue(t *testing.T) {
	in := "epoch_ms,rtt_us,throughput_Bps,cwnd,buffer_size\n1700000000000,1,2,3,4\n1700000000500,abc,2,3,4\n"
	_, err := Parse(strings.NewReader(in))
	var ve *ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError got %v", err)
	}
	if ve.Row != 2 || ve.Column != ColRTT || ve.Value != "abc" {
		t.Fatalf("unexpected value error: %+v", ve)
	}
	if !errors.Is(err, ErrBadValue) {
		t.Fatalf("expected ErrBadValue in chain")
	}
}

func TestParse_EmptyAndHeaderOnly(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
	_, err := Parse(strings.NewReader("epoch_ms,rtt_us,throughput_Bps,cwnd,buffer_size\n"))
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords got %v", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.csv")
	_, err := Load(missing)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if !strings.Contains(err.Error(), "nope.csv") {
		t.Fatalf("message should name the file: %s", err)
	}
}

func TestLoad_SetsPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.csv")
	if err := os.WriteFile(p, []byte("epoch_ms,rtt_us,throughput_Bps,cwnd,buffer_size\n1700000000000,1,2,3,4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lg.Path != p || len(lg.Records) != 1 {
		t.Fatalf("unexpected log: %+v", lg)
	}
	if got := lg.Column(ColBufferSize); len(got) != 1 || got[0] != 4 {
		t.Fatalf("buffer column: %v", got)
	}
}
