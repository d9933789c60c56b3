package resample

import "time"

// binStart returns the absolute instant marking the start of the bin
// enclosing t. The instant is projected into the wall-clock calendar fields
// of loc, the minute-of-day is floored to a multiple of the interval, and the
// floored wall-clock time is converted back to an absolute instant. Flooring
// epoch values directly would align bins to UTC boundaries rather than the
// configured zone's midnight and hour marks.
//
// Flooring the minute-of-day rather than the bare minute field keeps widths
// above an hour (such as 6-hour bins) anchored at local midnight.
//
// Around a DST transition the floored wall-clock time may not exist or may
// exist twice; time.Date resolves either case to one instant and never
// panics, which is the behavior binning relies on.
func binStart(t time.Time, intervalMinutes int, loc *time.Location) time.Time {
	lt := t.In(loc)
	year, month, day := lt.Date()
	minuteOfDay := lt.Hour()*60 + lt.Minute()
	minuteOfDay = minuteOfDay / intervalMinutes * intervalMinutes
	return time.Date(year, month, day, minuteOfDay/60, minuteOfDay%60, 0, 0, loc)
}

// formatBinTime renders a bin-start instant as RFC 3339, carrying the
// configured zone's offset unless UTC output was requested.
func formatBinTime(t time.Time, loc *time.Location, utc bool) string {
	if utc {
		return t.UTC().Format(time.RFC3339)
	}
	return t.In(loc).Format(time.RFC3339)
}
