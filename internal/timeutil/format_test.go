package timeutil

import (
	"testing"
	"time"
)

func TestAgo(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"future clamps", now.Add(time.Minute), "just now"},
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute), "a minute ago"},
		{"minutes", now.Add(-20 * time.Minute), "20 minutes ago"},
		{"one hour", now.Add(-time.Hour), "an hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"yesterday", now.Add(-30 * time.Hour), "yesterday"},
		{"days", now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{"old", now.Add(-30 * 24 * time.Hour), "May 16, 2025"},
	}
	for _, tc := range cases {
		if got := Ago(tc.t, now); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
