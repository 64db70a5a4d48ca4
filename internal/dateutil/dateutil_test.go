package dateutil

import (
	"testing"
	"time"
)

func TestDayBounds(t *testing.T) {
	day, err := ParseDay("2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start, end := DayBounds(day)
	wantStart := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

func TestDayBoundsIgnoresLocalZone(t *testing.T) {
	// 23:30 on March 15 in UTC+6 is 17:30 UTC the same day; the boundary
	// must follow the UTC rendering, not the local one.
	dhaka := time.FixedZone("UTC+6", 6*3600)
	in := time.Date(2024, 3, 15, 23, 30, 0, 0, dhaka)

	start, _ := DayBounds(in)
	if got := start.Format(DayFormat); got != "2024-03-15" {
		t.Errorf("start day = %s, want 2024-03-15", got)
	}

	// 03:00 on March 16 in UTC+6 is still March 15 in UTC.
	in = time.Date(2024, 3, 16, 3, 0, 0, 0, dhaka)
	start, end := DayBounds(in)
	if got := start.Format(DayFormat); got != "2024-03-15" {
		t.Errorf("start day = %s, want 2024-03-15", got)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("interval length = %v, want 24h", end.Sub(start))
	}
}

func TestParseDayRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "15-03-2024", "2024/03/15", "tomorrow"} {
		if _, err := ParseDay(s); err == nil {
			t.Errorf("ParseDay(%q) should fail", s)
		}
	}
}
