package pagination

import "testing"

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, want int
	}{
		{0, 0},
		{1, 1},
		{20, 1},
		{21, 2},
		{45, 3},
		{60, 3},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total); got != tc.want {
			t.Errorf("TotalPages(%d) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(1); got != 0 {
		t.Errorf("Offset(1) = %d, want 0", got)
	}
	if got := Offset(3); got != 40 {
		t.Errorf("Offset(3) = %d, want 40", got)
	}
	// 45 records: page 3 starts at 40, leaving exactly 5 records.
	if remaining := 45 - Offset(3); remaining != 5 {
		t.Errorf("page 3 of 45 should hold 5 records, got %d", remaining)
	}
}

func TestPageClampsToFirst(t *testing.T) {
	for _, requested := range []int{0, -1, -20} {
		if got := Page(requested); got != 1 {
			t.Errorf("Page(%d) = %d, want 1", requested, got)
		}
	}
}
