// Package dateutil normalizes calendar dates to UTC day intervals. Every
// day-scoped query in the system goes through DayBounds so a record written
// near midnight lands in the same day regardless of server timezone.
package dateutil

import "time"

// DayFormat is the wire format for calendar dates.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string as a UTC calendar date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}

// DayBounds returns the closed-open interval [startOfDay, endOfDay) for the
// UTC day containing t. The boundary is computed from the YYYY-MM-DD
// rendering of t in UTC, never from a local zone.
func DayBounds(t time.Time) (start, end time.Time) {
	day := t.UTC().Format(DayFormat)
	start, _ = time.Parse(DayFormat, day)
	return start, start.AddDate(0, 0, 1)
}
