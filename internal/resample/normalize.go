package resample

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// point is a normalized input row: an absolute instant plus the coerced
// value, NaN when the raw value was not numeric.
type point struct {
	t   time.Time
	val float64
}

// normalize converts raw samples into points. Rows whose timestamp cannot be
// resolved are dropped; rows with a bad value are kept with a NaN value so
// their timestamps still contribute to the bin range.
func normalize(samples []Sample, loc *time.Location) []point {
	pts := make([]point, 0, len(samples))
	for _, s := range samples {
		t, ok := parseTime(s.Time, loc)
		if !ok {
			continue
		}
		v, ok := coerceValue(s.Value)
		if !ok {
			v = math.NaN()
		}
		pts = append(pts, point{t: t, val: v})
	}
	return pts
}

// loadLocation resolves an IANA zone name, falling back to UTC for empty or
// unknown names.
func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Layouts carrying an explicit UTC offset or Z suffix; these parse as
// absolute instants regardless of the configured zone.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
}

// Layouts with no offset; these are wall-clock times in the configured zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime resolves a timestamp input to an absolute instant. The second
// return is false for inputs that cannot be resolved.
func parseTime(v any, loc *time.Location) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x, true
	case float64:
		return epochMillis(x)
	case float32:
		return epochMillis(float64(x))
	case int:
		return time.UnixMilli(int64(x)), true
	case int64:
		return time.UnixMilli(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return epochMillis(f)
	case string:
		return parseTimeString(x, loc)
	default:
		return time.Time{}, false
	}
}

func epochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func parseTimeString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coerceValue reduces a raw value input to a finite float64. Non-numeric
// strings, nil, booleans and non-finite numbers are "no data".
func coerceValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
