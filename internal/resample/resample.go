// Package resample turns irregular, sparsely-sampled sensor readings into a
// complete fixed-interval time series. It normalizes mixed timestamp
// representations, aligns bins to wall-clock boundaries in a configured
// timezone, averages the readings that land in each bin, and fills gaps by
// time-weighted linear interpolation with forward/back-fill at the edges.
//
// Series is a pure function: it performs no I/O, holds no state between
// invocations, and is safe to call concurrently.
package resample

import (
	"math"
	"sort"
	"time"
)

// Sample is one raw input row. Time accepts a time.Time, an epoch-millisecond
// number, or a string (with an explicit UTC offset it is parsed as an absolute
// instant; without one it is interpreted as wall-clock time in the configured
// timezone). Value accepts anything; only real numbers and numeric strings
// count as data, everything else is treated as "no data".
type Sample struct {
	Time  any
	Value any
}

// Options configures a resampling run. The zero value gives 15-minute bins in
// UTC with no lookback cutoff, zeros kept, output rendered in the configured
// zone, and no extension to the current time.
type Options struct {
	// IntervalMinutes is the bin width. 0 means the default of 15; a
	// negative value yields an empty series.
	IntervalMinutes int

	// TimeZone is an IANA zone name ("Europe/Berlin") or "UTC". It governs
	// both the interpretation of naive timestamps and bin alignment.
	// Empty or unknown names fall back to UTC.
	TimeZone string

	// LookbackDays drops samples strictly older than the end bound minus
	// this many 24-hour days. 0 means unbounded. Fractional days work.
	LookbackDays float64

	// SkipZeros treats a numeric zero as "no data". A zero reading from a
	// radiation counter usually signals a dropped sample, not zero
	// radiation.
	SkipZeros bool

	// OutputUTC renders output timestamps in UTC instead of the
	// configured zone.
	OutputUTC bool

	// ExtendToNow extends the bin range forward to the current time's bin
	// even if no sample reaches it.
	ExtendToNow bool

	// Start and End optionally bound the bin range. They accept the same
	// forms as Sample.Time. An explicit Start wins over both the lookback
	// cutoff and the earliest sample.
	Start any
	End   any

	// Now overrides the current time for ExtendToNow and the lookback
	// cutoff. Zero means time.Now().
	Now time.Time
}

// Point is one output bin: the bin-start timestamp in RFC 3339 form and the
// aggregated, gap-filled value.
type Point struct {
	Time  string  `json:"timestamp"`
	Value float64 `json:"counts_per_minute"`
}

// interval returns the effective bin width in minutes, or false when the
// configuration is degenerate.
func (o Options) interval() (int, bool) {
	if o.IntervalMinutes == 0 {
		return 15, true
	}
	if o.IntervalMinutes < 0 {
		return 0, false
	}
	return o.IntervalMinutes, true
}

// Series resamples the given samples into a gap-free, fixed-interval series.
// Malformed rows are dropped, non-numeric values become gaps, and degenerate
// configurations or empty ranges yield an empty series. It never returns an
// error and never panics on dirty input.
func Series(samples []Sample, opts Options) []Point {
	interval, ok := opts.interval()
	if !ok {
		return nil
	}
	loc := loadLocation(opts.TimeZone)

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	pts := normalize(samples, loc)
	if len(pts) == 0 {
		return nil
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].t.Before(pts[j].t) })

	startOpt, hasStart := parseTime(opts.Start, loc)
	endOpt, hasEnd := parseTime(opts.End, loc)

	// Lookback is measured from the explicit end bound when given,
	// otherwise from the current time. It is applied before the default
	// start bound is derived from the data.
	if opts.LookbackDays > 0 {
		ref := now
		if hasEnd {
			ref = endOpt
		}
		cutoff := ref.Add(-time.Duration(opts.LookbackDays * 24 * float64(time.Hour)))
		kept := pts[:0]
		for _, p := range pts {
			if !p.t.Before(cutoff) {
				kept = append(kept, p)
			}
		}
		pts = kept
	}
	if len(pts) == 0 {
		return nil
	}

	width := time.Duration(interval) * time.Minute

	start := binStart(pts[0].t, interval, loc)
	if hasStart {
		start = binStart(startOpt, interval, loc)
	}

	// The range end is measured on the same grid bins are assigned on: start
	// plus a whole number of widths. A wall-clock floor here can land between
	// grid points once a DST shift is not a multiple of the interval, and the
	// truncated bin count would drop the newest samples.
	bound := pts[len(pts)-1].t
	if hasEnd {
		bound = endOpt
	} else if opts.ExtendToNow && now.After(bound) {
		bound = now
	}
	if bound.Before(start) {
		return nil
	}

	vals := aggregate(pts, start, width, int(bound.Sub(start)/width)+1, opts.SkipZeros)
	if vals == nil {
		return nil
	}

	interpolate(vals, start, width)
	forwardFill(vals)
	backFill(vals)

	out := make([]Point, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		out = append(out, Point{
			Time:  formatBinTime(start.Add(time.Duration(i)*width), loc, opts.OutputUTC),
			Value: v,
		})
	}
	return out
}

// aggregate assigns each point to its bin and reduces every bin to the mean
// of its finite values. Bins with no contributing points are NaN. A result
// with no data at all is reported as nil, not as a slice of NaN.
func aggregate(pts []point, start time.Time, width time.Duration, binCount int, skipZeros bool) []float64 {
	sums := make([]float64, binCount)
	counts := make([]int, binCount)

	for _, p := range pts {
		if math.IsNaN(p.val) {
			continue
		}
		if skipZeros && p.val == 0 {
			continue
		}
		if p.t.Before(start) {
			continue
		}
		idx := int(p.t.Sub(start) / width)
		if idx >= binCount {
			continue
		}
		sums[idx] += p.val
		counts[idx]++
	}

	vals := make([]float64, binCount)
	populated := false
	for i := range vals {
		if counts[i] > 0 {
			vals[i] = sums[i] / float64(counts[i])
			populated = true
		} else {
			vals[i] = math.NaN()
		}
	}
	if !populated {
		return nil
	}
	return vals
}
