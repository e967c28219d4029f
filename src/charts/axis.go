package charts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ClockFormat labels the shared time axis.
const ClockFormat = "15:04:05"

// maxTimeTicks bounds the number of labelled ticks on the time axis.
const maxTimeTicks = 12

var timeSteps = []time.Duration{
	time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 15 * time.Second, 30 * time.Second,
	time.Minute, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute, 15 * time.Minute, 30 * time.Minute,
	time.Hour, 2 * time.Hour, 3 * time.Hour, 6 * time.Hour, 12 * time.Hour, 24 * time.Hour,
}

// pickTimeStep selects a readable step for a given time span. Labels always use
// ClockFormat, so the step never drops below one second.
func pickTimeStep(span time.Duration) time.Duration {
	for _, s := range timeSteps {
		if span/s <= maxTimeTicks-2 {
			return s
		}
	}
	days := int64(span/(24*time.Hour))/int64(maxTimeTicks-2) + 1
	return time.Duration(days) * 24 * time.Hour
}

// timeTicks returns tick instants aligned to step boundaries that cover [minT, maxT].
// A single instant still yields two ticks so the axis has a non-zero range.
func timeTicks(minT, maxT time.Time) []time.Time {
	if maxT.Before(minT) {
		minT, maxT = maxT, minT
	}
	step := pickTimeStep(maxT.Sub(minT))
	// Align on the local clock so labels land on round wall-clock values.
	_, offset := minT.Zone()
	st := int64(step / time.Second)
	local := minT.Unix() + int64(offset)
	aligned := time.Unix((floorDiv(local, st)*st)-int64(offset), 0).In(minT.Location())
	ticks := []time.Time{}
	for t := aligned; ; t = t.Add(step) {
		ticks = append(ticks, t)
		if !t.Before(maxT) {
			break
		}
	}
	if len(ticks) < 2 {
		ticks = append(ticks, ticks[0].Add(step))
	}
	return ticks
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// valueBounds returns min/max over xs ignoring NaNs. ok is false when nothing was finite.
func valueBounds(xs ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, s := range xs {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			ok = true
		}
	}
	return lo, hi, ok
}

// niceAxisBounds expands [min,max] by a small margin and rounds to "nice" numbers for readability.
func niceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	nonNegative := min >= 0
	if max <= min {
		pad := math.Abs(min) * 0.1
		if pad == 0 {
			pad = 1
		}
		min, max = min-pad, max+pad
	}
	span := max - min
	// 5% margin on both sides
	pad := span * 0.05
	a := min - pad
	b := max + pad
	// non-negative metrics keep a zero floor
	if nonNegative && a < 0 {
		a = 0
	}
	mag := math.Pow(10, math.Floor(math.Log10(span)))
	if !math.IsInf(mag, 0) && mag > 0 {
		a = math.Floor(a/mag) * mag
		b = math.Ceil(b/mag) * mag
	}
	return a, b
}

// niceTicks generates about n tick values covering [min, max] using 1/2/2.5/5 increments.
func niceTicks(min, max float64, n int) []float64 {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	candidates := []float64{1, 2, 2.5, 5, 10}
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range candidates {
		step := c * mag
		count := math.Ceil(span / step)
		if count < 2 {
			count = 2
		}
		score := math.Abs(count - float64(n))
		if score < bestScore {
			bestScore = score
			bestStep = step
		}
	}
	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	ticks := []float64{}
	for i := 0; ; i++ {
		v := start + float64(i)*bestStep
		ticks = append(ticks, v)
		if v >= end-bestStep/2 {
			break
		}
	}
	return ticks
}

// formatTick renders a y tick; large values get k/M/G suffixes so panels
// with byte counts keep narrow labels.
func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 1e9:
		return trimZeros(fmt.Sprintf("%.2f", v/1e9)) + "G"
	case av >= 1e6:
		return trimZeros(fmt.Sprintf("%.2f", v/1e6)) + "M"
	case av >= 1e4:
		return trimZeros(fmt.Sprintf("%.1f", v/1e3)) + "k"
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return trimZeros(fmt.Sprintf("%.1f", v))
	default:
		return trimZeros(fmt.Sprintf("%.2f", v))
	}
}

func trimZeros(s string) string {
	for len(s) > 1 && s[len(s)-1] == '0' && strings.Contains(s, ".") {
		s = s[:len(s)-1]
	}
	if n := len(s); n > 0 && s[n-1] == '.' {
		s = s[:n-1]
	}
	return s
}
