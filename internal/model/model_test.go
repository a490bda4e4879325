package model

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTerm_Overlaps(t *testing.T) {
	term := &Term{StartDate: date(2025, 3, 1), EndDate: date(2025, 4, 1)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"包含", date(2025, 1, 1), date(2025, 6, 1), true},
		{"边界相接", date(2025, 4, 1), date(2025, 5, 1), true},
		{"之前", date(2025, 1, 1), date(2025, 2, 28), false},
		{"之后", date(2025, 4, 2), date(2025, 9, 1), false},
		{"被包含", date(2025, 3, 10), date(2025, 3, 20), true},
	}
	for _, tc := range cases {
		if got := term.Overlaps(tc.start, tc.end); got != tc.want {
			t.Errorf("%s: 期望 %v，实际 %v", tc.name, tc.want, got)
		}
	}
}
