package charts

import (
	"math"
	"testing"
	"time"
)

func TestTimeTicks_CoverRangeAndAlign(t *testing.T) {
	start := time.UnixMilli(1700000000250).Local()
	cases := []time.Duration{0, 900 * time.Millisecond, 7 * time.Second, 95 * time.Second, 40 * time.Minute, 5 * time.Hour, 3 * 24 * time.Hour}
	for _, span := range cases {
		end := start.Add(span)
		ticks := timeTicks(start, end)
		if len(ticks) < 2 {
			t.Fatalf("span %v: expected at least 2 ticks got %d", span, len(ticks))
		}
		if ticks[0].After(start) {
			t.Fatalf("span %v: first tick %v after start %v", span, ticks[0], start)
		}
		if ticks[len(ticks)-1].Before(end) {
			t.Fatalf("span %v: last tick %v before end %v", span, ticks[len(ticks)-1], end)
		}
		if len(ticks) > maxTimeTicks+1 {
			t.Fatalf("span %v: too many ticks %d", span, len(ticks))
		}
		step := ticks[1].Sub(ticks[0])
		for i := 1; i < len(ticks); i++ {
			if ticks[i].Sub(ticks[i-1]) != step {
				t.Fatalf("span %v: uneven step at %d", span, i)
			}
		}
		if ticks[0].Nanosecond() != 0 {
			t.Fatalf("span %v: tick not on a whole second: %v", span, ticks[0])
		}
	}
}

func TestPickTimeStep_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for _, span := range []time.Duration{time.Second, 30 * time.Second, 10 * time.Minute, 6 * time.Hour, 10 * 24 * time.Hour} {
		s := pickTimeStep(span)
		if s < prev {
			t.Fatalf("step shrank for span %v: %v < %v", span, s, prev)
		}
		if s < time.Second {
			t.Fatalf("step below one second: %v", s)
		}
		prev = s
	}
}

func TestNiceAxisBounds_ConstantAndNonNegative(t *testing.T) {
	lo, hi := niceAxisBounds(65536, 65536)
	if !(lo < 65536 && hi > 65536) {
		t.Fatalf("constant series not padded: [%v,%v]", lo, hi)
	}
	lo, hi = niceAxisBounds(0, 0)
	if lo != 0 || hi <= 0 {
		t.Fatalf("zero series: expected [0,>0] got [%v,%v]", lo, hi)
	}
	lo, hi = niceAxisBounds(3, 97)
	if lo < 0 || lo > 3 || hi < 97 {
		t.Fatalf("bounds do not cover data or went negative: [%v,%v]", lo, hi)
	}
}

func TestNiceTicks_CoverBounds(t *testing.T) {
	for _, c := range [][2]float64{{0, 1}, {0, 97}, {1500, 2100}, {0, 131072}, {-5, 5}} {
		ticks := niceTicks(c[0], c[1], 6)
		if len(ticks) < 2 {
			t.Fatalf("%v: expected >=2 ticks got %v", c, ticks)
		}
		if ticks[0] > c[0] || ticks[len(ticks)-1] < c[1] {
			t.Fatalf("%v: ticks %v do not cover range", c, ticks)
		}
		if len(ticks) > 12 {
			t.Fatalf("%v: too many ticks %d", c, len(ticks))
		}
	}
	if got := niceTicks(math.NaN(), 1, 6); got != nil {
		t.Fatalf("NaN bounds should yield nil, got %v", got)
	}
}

func TestFormatTick(t *testing.T) {
	cases := map[float64]string{
		0:       "0",
		2.5:     "2.5",
		40:      "40",
		1500:    "1500",
		65536:   "65.5k",
		1250000: "1.25M",
		3e9:     "3G",
	}
	for v, want := range cases {
		if got := formatTick(v); got != want {
			t.Fatalf("formatTick(%v)=%q want %q", v, got, want)
		}
	}
}

func TestOverlayRuns_SplitsOnGaps(t *testing.T) {
	nan := math.NaN()
	o := Overlay{Values: []float64{nan, 1, 2, nan, nan, 3, 4, 5}}
	got := o.Runs()
	want := [][2]int{{1, 3}, {5, 8}}
	if len(got) != len(want) {
		t.Fatalf("runs %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("runs %v want %v", got, want)
		}
	}
	if r := (Overlay{Values: []float64{nan}}).Runs(); len(r) != 0 {
		t.Fatalf("all-NaN overlay should have no runs: %v", r)
	}
}

func TestNiceAxisBounds_AllZeroHasZeroFloor(t *testing.T) {
	for _, c := range [][2]float64{{0, 0}, {0, 0.15}, {5, 5}} {
		lo, hi := niceAxisBounds(c[0], c[1])
		if lo < 0 {
			t.Fatalf("%v: non-negative data got negative floor %v", c, lo)
		}
		if hi <= lo || hi < c[1] {
			t.Fatalf("%v: bad upper bound [%v,%v]", c, lo, hi)
		}
	}
}
