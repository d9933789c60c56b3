package resample

import (
	"testing"
	"time"
)

func utcOpts() Options {
	return Options{TimeZone: "UTC"}
}

func values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func TestSeries_EmptyInput(t *testing.T) {
	if got := Series(nil, utcOpts()); len(got) != 0 {
		t.Errorf("Expected empty series, got %v", got)
	}
	if got := Series([]Sample{}, utcOpts()); len(got) != 0 {
		t.Errorf("Expected empty series, got %v", got)
	}
}

func TestSeries_AllInvalidInput(t *testing.T) {
	samples := []Sample{
		{Time: "bad", Value: 10.0},
		{Time: "", Value: 20.0},
		{Time: nil, Value: 30.0},
	}
	if got := Series(samples, utcOpts()); len(got) != 0 {
		t.Errorf("Expected empty series for all-invalid timestamps, got %v", got)
	}
}

func TestSeries_AllNullValues(t *testing.T) {
	// Valid timestamps but no numeric value anywhere: absence of signal is
	// reported as no series, not a series of holes.
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: "n/a"},
		{Time: "2025-06-10T10:17:00Z", Value: nil},
	}
	if got := Series(samples, utcOpts()); len(got) != 0 {
		t.Errorf("Expected empty series for all-null values, got %v", got)
	}
}

func TestSeries_MeanPerBin(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: 10.0},
		{Time: "2025-06-10T10:13:00Z", Value: 20.0},
	}
	got := Series(samples, utcOpts())
	if len(got) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(got))
	}
	if got[0].Value != 15 {
		t.Errorf("Expected mean 15, got %v", got[0].Value)
	}
	if got[0].Time != "2025-06-10T10:00:00Z" {
		t.Errorf("Expected bin start 10:00Z, got %s", got[0].Time)
	}
}

func TestSeries_Interpolation(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:07:00Z", Value: 10.0},
		{Time: "2025-06-10T10:37:00Z", Value: 40.0},
	}
	got := Series(samples, utcOpts())
	if len(got) != 3 {
		t.Fatalf("Expected 3 bins, got %d: %v", len(got), got)
	}
	want := []float64{10, 25, 40}
	for i, w := range want {
		if got[i].Value != w {
			t.Errorf("Bin %d: expected %v, got %v", i, w, got[i].Value)
		}
	}
	wantTimes := []string{"2025-06-10T10:00:00Z", "2025-06-10T10:15:00Z", "2025-06-10T10:30:00Z"}
	for i, w := range wantTimes {
		if got[i].Time != w {
			t.Errorf("Bin %d: expected time %s, got %s", i, w, got[i].Time)
		}
	}
}

func TestSeries_BackFillAtStart(t *testing.T) {
	// The malformed value at 10:01 still anchors the bin range; its bin
	// and the following gap are back-filled from the first observation.
	samples := []Sample{
		{Time: "2025-06-10T10:01:00Z", Value: "garbage"},
		{Time: "2025-06-10T10:31:00Z", Value: 50.0},
	}
	got := Series(samples, utcOpts())
	if len(got) != 3 {
		t.Fatalf("Expected 3 bins, got %d: %v", len(got), got)
	}
	for i, p := range got {
		if p.Value != 50 {
			t.Errorf("Bin %d: expected 50, got %v", i, p.Value)
		}
	}
}

func TestSeries_ForwardFillAtEnd(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:01:00Z", Value: 30.0},
		{Time: "2025-06-10T10:31:00Z", Value: nil},
	}
	got := Series(samples, utcOpts())
	if len(got) != 3 {
		t.Fatalf("Expected 3 bins, got %d: %v", len(got), got)
	}
	for i, p := range got {
		if p.Value != 30 {
			t.Errorf("Bin %d: expected 30, got %v", i, p.Value)
		}
	}
}

func TestSeries_SkipZeros(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: 0.0},
		{Time: "2025-06-10T10:32:00Z", Value: 40.0},
	}

	opts := utcOpts()
	opts.SkipZeros = true
	got := values(Series(samples, opts))
	want := []float64{40, 40, 40}
	if len(got) != len(want) {
		t.Fatalf("skipZeros=true: expected %d bins, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("skipZeros=true bin %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	opts.SkipZeros = false
	got = values(Series(samples, opts))
	want = []float64{0, 20, 40}
	if len(got) != len(want) {
		t.Fatalf("skipZeros=false: expected %d bins, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("skipZeros=false bin %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSeries_BinFlooring(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:14:59Z", Value: 1.0},
		{Time: "2025-06-10T10:15:01Z", Value: 2.0},
	}
	got := Series(samples, utcOpts())
	if len(got) != 2 {
		t.Fatalf("Expected 2 bins, got %d: %v", len(got), got)
	}
	if got[0].Time != "2025-06-10T10:00:00Z" || got[0].Value != 1 {
		t.Errorf("First bin: expected 10:00Z=1, got %s=%v", got[0].Time, got[0].Value)
	}
	if got[1].Time != "2025-06-10T10:15:00Z" || got[1].Value != 2 {
		t.Errorf("Second bin: expected 10:15Z=2, got %s=%v", got[1].Time, got[1].Value)
	}
}

func TestSeries_DroppedRowDoesNotAffectOthers(t *testing.T) {
	samples := []Sample{
		{Time: "bad", Value: 99.0},
		{Time: "2025-06-10T10:02:00Z", Value: 10.0},
	}
	got := Series(samples, utcOpts())
	if len(got) != 1 {
		t.Fatalf("Expected 1 bin, got %d: %v", len(got), got)
	}
	if got[0].Value != 10 {
		t.Errorf("Expected 10, got %v", got[0].Value)
	}
}

func TestSeries_Monotonicity(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T08:03:00Z", Value: 5.0},
		{Time: "2025-06-10T09:48:00Z", Value: 7.0},
		{Time: "2025-06-10T11:22:00Z", Value: 9.0},
	}
	got := Series(samples, utcOpts())
	if len(got) < 2 {
		t.Fatalf("Expected multiple bins, got %d", len(got))
	}
	var prev time.Time
	for i, p := range got {
		ts, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			t.Fatalf("Bin %d: unparseable timestamp %q: %v", i, p.Time, err)
		}
		if i > 0 {
			if d := ts.Sub(prev); d != 15*time.Minute {
				t.Errorf("Bin %d: expected 15m spacing, got %v", i, d)
			}
		}
		prev = ts
	}
}

func TestSeries_TotalityWithinRange(t *testing.T) {
	// Every bin between the first and last observation carries a value.
	samples := []Sample{
		{Time: "2025-06-10T06:00:00Z", Value: 3.0},
		{Time: "2025-06-10T12:00:00Z", Value: 6.0},
	}
	got := Series(samples, utcOpts())
	wantBins := 6*4 + 1
	if len(got) != wantBins {
		t.Fatalf("Expected %d bins, got %d", wantBins, len(got))
	}
}

func TestSeries_FormattingIdempotence(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: 10.0},
		{Time: "2025-06-10T11:47:00Z", Value: 20.0},
	}
	opts := Options{TimeZone: "Europe/Berlin"}
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	for _, p := range Series(samples, opts) {
		ts, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			t.Fatalf("Unparseable output %q: %v", p.Time, err)
		}
		if again := formatBinTime(ts, loc, false); again != p.Time {
			t.Errorf("Reformatting changed %q to %q", p.Time, again)
		}
	}
}

func TestSeries_NegativeInterval(t *testing.T) {
	samples := []Sample{{Time: "2025-06-10T10:02:00Z", Value: 10.0}}
	opts := utcOpts()
	opts.IntervalMinutes = -5
	if got := Series(samples, opts); len(got) != 0 {
		t.Errorf("Expected empty series for negative interval, got %v", got)
	}
}

func TestSeries_StartAfterEnd(t *testing.T) {
	samples := []Sample{{Time: "2025-06-10T10:02:00Z", Value: 10.0}}
	opts := utcOpts()
	opts.Start = "2025-06-11T00:00:00Z"
	opts.End = "2025-06-10T00:00:00Z"
	if got := Series(samples, opts); len(got) != 0 {
		t.Errorf("Expected empty series for start after end, got %v", got)
	}
}

func TestSeries_LookbackCutoff(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	samples := []Sample{
		{Time: "2025-06-07T10:00:00Z", Value: 1.0}, // older than 2 days
		{Time: "2025-06-10T10:02:00Z", Value: 10.0},
	}
	opts := utcOpts()
	opts.LookbackDays = 2
	opts.Now = now
	got := Series(samples, opts)
	if len(got) != 1 {
		t.Fatalf("Expected 1 bin after cutoff, got %d: %v", len(got), got)
	}
	if got[0].Time != "2025-06-10T10:00:00Z" {
		t.Errorf("Expected range to start at the surviving sample, got %s", got[0].Time)
	}
}

func TestSeries_ExplicitStartWinsOverLookback(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: 10.0},
	}
	opts := utcOpts()
	opts.LookbackDays = 2
	opts.Now = now
	opts.Start = "2025-06-10T09:00:00Z"
	got := Series(samples, opts)
	if len(got) == 0 {
		t.Fatal("Expected non-empty series")
	}
	if got[0].Time != "2025-06-10T09:00:00Z" {
		t.Errorf("Expected explicit start bin 09:00Z, got %s", got[0].Time)
	}
	// Leading bins back-filled from the one observation.
	if got[0].Value != 10 {
		t.Errorf("Expected back-filled 10, got %v", got[0].Value)
	}
}

func TestSeries_ExtendToNow(t *testing.T) {
	now := time.Date(2025, 6, 10, 11, 7, 0, 0, time.UTC)
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: 10.0},
	}
	opts := utcOpts()
	opts.ExtendToNow = true
	opts.Now = now
	got := Series(samples, opts)
	if len(got) != 5 {
		t.Fatalf("Expected 5 bins through 11:00Z, got %d: %v", len(got), got)
	}
	if got[len(got)-1].Time != "2025-06-10T11:00:00Z" {
		t.Errorf("Expected last bin 11:00Z, got %s", got[len(got)-1].Time)
	}
	// Forward-filled to the current bin.
	if got[len(got)-1].Value != 10 {
		t.Errorf("Expected forward-filled 10, got %v", got[len(got)-1].Value)
	}
}

func TestSeries_NaiveTimestampsUseConfiguredZone(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Berlin"); err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	samples := []Sample{{Time: "2025-06-10 10:02:00", Value: 10.0}}

	opts := Options{TimeZone: "Europe/Berlin"}
	got := Series(samples, opts)
	if len(got) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(got))
	}
	// 10:00 Berlin summer time is 08:00 UTC.
	if got[0].Time != "2025-06-10T10:00:00+02:00" {
		t.Errorf("Expected 10:00+02:00, got %s", got[0].Time)
	}

	opts.OutputUTC = true
	got = Series(samples, opts)
	if got[0].Time != "2025-06-10T08:00:00Z" {
		t.Errorf("Expected 08:00Z, got %s", got[0].Time)
	}
}

func TestSeries_EpochMillisInput(t *testing.T) {
	base := time.Date(2025, 6, 10, 10, 2, 0, 0, time.UTC)
	samples := []Sample{
		{Time: float64(base.UnixMilli()), Value: 10.0},
		{Time: base.Add(11 * time.Minute).UnixMilli(), Value: 20.0},
	}
	got := Series(samples, utcOpts())
	if len(got) != 1 {
		t.Fatalf("Expected 1 bin, got %d: %v", len(got), got)
	}
	if got[0].Value != 15 {
		t.Errorf("Expected mean 15, got %v", got[0].Value)
	}
}

func TestSeries_StringValuesCoerced(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T10:02:00Z", Value: "12.5"},
		{Time: "2025-06-10T10:08:00Z", Value: "17.5"},
	}
	got := Series(samples, utcOpts())
	if len(got) != 1 || got[0].Value != 15 {
		t.Fatalf("Expected single bin with mean 15, got %v", got)
	}
}

func TestSeries_SixHourBinsAlignToMidnight(t *testing.T) {
	samples := []Sample{
		{Time: "2025-06-10T07:30:00Z", Value: 4.0},
		{Time: "2025-06-10T20:15:00Z", Value: 8.0},
	}
	opts := utcOpts()
	opts.IntervalMinutes = 360
	got := Series(samples, opts)
	if len(got) != 3 {
		t.Fatalf("Expected 3 bins, got %d: %v", len(got), got)
	}
	wantTimes := []string{"2025-06-10T06:00:00Z", "2025-06-10T12:00:00Z", "2025-06-10T18:00:00Z"}
	for i, w := range wantTimes {
		if got[i].Time != w {
			t.Errorf("Bin %d: expected %s, got %s", i, w, got[i].Time)
		}
	}
	if got[1].Value != 6 {
		t.Errorf("Expected interpolated 6, got %v", got[1].Value)
	}
}

func TestSeries_SpringForwardTransition(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Berlin"); err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	// Berlin springs forward 2025-03-30 02:00 CET -> 03:00 CEST. Bins keep
	// 15 minutes of UTC width; the wall-clock label jumps by the DST delta.
	samples := []Sample{
		{Time: "2025-03-30T01:45:00+01:00", Value: 10.0},
		{Time: "2025-03-30T03:15:00+02:00", Value: 40.0},
	}
	opts := Options{TimeZone: "Europe/Berlin"}
	got := Series(samples, opts)
	if len(got) != 3 {
		t.Fatalf("Expected 3 bins across the transition, got %d: %v", len(got), got)
	}
	wantTimes := []string{
		"2025-03-30T01:45:00+01:00",
		"2025-03-30T03:00:00+02:00",
		"2025-03-30T03:15:00+02:00",
	}
	wantVals := []float64{10, 25, 40}
	for i := range wantTimes {
		if got[i].Time != wantTimes[i] {
			t.Errorf("Bin %d: expected %s, got %s", i, wantTimes[i], got[i].Time)
		}
		if got[i].Value != wantVals[i] {
			t.Errorf("Bin %d: expected %v, got %v", i, wantVals[i], got[i].Value)
		}
	}
	// Absolute spacing stays fixed even though wall-clock labels jump.
	t0, _ := time.Parse(time.RFC3339, got[0].Time)
	t1, _ := time.Parse(time.RFC3339, got[1].Time)
	if t1.Sub(t0) != 15*time.Minute {
		t.Errorf("Expected 15m absolute spacing across DST, got %v", t1.Sub(t0))
	}
}

func TestSeries_SixHourBinsAcrossSpringForward(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Berlin"); err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	// A 6-hour interval does not divide the one-hour DST shift, so after the
	// transition the wall-clock floor of a sample sits off the bin grid. The
	// range must still reach the newest sample.
	samples := []Sample{
		{Time: "2025-03-29T01:00:00+01:00", Value: 10.0},
		{Time: "2025-03-30T13:00:00+02:00", Value: 99.0},
	}
	opts := Options{TimeZone: "Europe/Berlin", IntervalMinutes: 360}
	got := Series(samples, opts)
	if len(got) != 7 {
		t.Fatalf("Expected 7 bins, got %d: %v", len(got), got)
	}
	if got[0].Time != "2025-03-29T00:00:00+01:00" || got[0].Value != 10 {
		t.Errorf("First bin: expected 00:00+01:00=10, got %s=%v", got[0].Time, got[0].Value)
	}
	last := got[len(got)-1]
	if last.Value != 99 {
		t.Errorf("Last bin: expected the newest sample's 99, got %v", last.Value)
	}
	// 36 hours of UTC width after the start; the label lands at 13:00 local
	// because one of those hours vanished in the transition.
	if last.Time != "2025-03-30T13:00:00+02:00" {
		t.Errorf("Last bin: expected 13:00+02:00, got %s", last.Time)
	}
}

func TestSeries_UnknownZoneFallsBackToUTC(t *testing.T) {
	samples := []Sample{{Time: "2025-06-10T10:02:00Z", Value: 10.0}}
	opts := Options{TimeZone: "Not/AZone"}
	got := Series(samples, opts)
	if len(got) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(got))
	}
	if got[0].Time != "2025-06-10T10:00:00Z" {
		t.Errorf("Expected UTC fallback, got %s", got[0].Time)
	}
}

func TestSeries_InputOrderIrrelevant(t *testing.T) {
	forward := []Sample{
		{Time: "2025-06-10T10:07:00Z", Value: 10.0},
		{Time: "2025-06-10T10:37:00Z", Value: 40.0},
	}
	reversed := []Sample{forward[1], forward[0]}

	a := Series(forward, utcOpts())
	b := Series(reversed, utcOpts())
	if len(a) != len(b) {
		t.Fatalf("Length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Bin %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}
