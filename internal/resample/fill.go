package resample

import (
	"math"
	"time"
)

// Gap filling runs as three fixed passes: interpolate interior gaps using
// only originally-aggregated neighbors, then forward-fill, then back-fill.
// Fusing the passes would change results where a gap touches both an interior
// neighbor and a sequence edge.

// interpolate replaces each maximal run of NaN bins bounded by data on both
// sides with the linear interpolation between the bounding values, weighted
// by elapsed absolute time. Runs touching either edge are left alone.
func interpolate(vals []float64, start time.Time, width time.Duration) {
	i := 0
	for i < len(vals) {
		if !math.IsNaN(vals[i]) {
			i++
			continue
		}
		j := i
		for j < len(vals) && math.IsNaN(vals[j]) {
			j++
		}
		if i > 0 && j < len(vals) {
			left, right := i-1, j
			t0 := start.Add(time.Duration(left) * width)
			t1 := start.Add(time.Duration(right) * width)
			v0, v1 := vals[left], vals[right]
			span := t1.Sub(t0).Seconds()
			for k := i; k < j; k++ {
				elapsed := start.Add(time.Duration(k) * width).Sub(t0).Seconds()
				vals[k] = v0 + (v1-v0)*(elapsed/span)
			}
		}
		i = j
	}
}

// forwardFill replaces remaining NaN bins with the most recent preceding
// value, resolving trailing-edge gaps.
func forwardFill(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
		} else {
			last = v
		}
	}
}

// backFill replaces remaining NaN bins with the nearest following value,
// resolving leading-edge gaps.
func backFill(vals []float64) {
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
		} else {
			next = vals[i]
		}
	}
}
