package services

import (
	"testing"
	"time"
)

func TestWindowState(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		last       *time.Time
		hours      int
		wantActive bool
		wantLeft   time.Duration
	}{
		{
			name:  "never attacked",
			last:  nil,
			hours: 4,
		},
		{
			name:       "inside window",
			last:       timePtr(now.Add(-1 * time.Hour)),
			hours:      4,
			wantActive: true,
			wantLeft:   3 * time.Hour,
		},
		{
			name:  "exactly at window edge",
			last:  timePtr(now.Add(-4 * time.Hour)),
			hours: 4,
		},
		{
			name:  "long past",
			last:  timePtr(now.Add(-24 * time.Hour)),
			hours: 4,
		},
		{
			name:  "zero-hour window disabled",
			last:  timePtr(now.Add(-time.Minute)),
			hours: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, left, until := windowState(tt.last, tt.hours, now)
			if active != tt.wantActive {
				t.Fatalf("active = %v, want %v", active, tt.wantActive)
			}
			if left != tt.wantLeft {
				t.Errorf("remaining = %v, want %v", left, tt.wantLeft)
			}
			if active && !until.Equal(tt.last.Add(time.Duration(tt.hours)*time.Hour)) {
				t.Errorf("until = %v, want last+%dh", until, tt.hours)
			}
		})
	}
}

func TestLocalMidnight(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	now := time.Date(2026, 9, 1, 23, 45, 1, 0, loc)

	got := localMidnight(now)
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("localMidnight = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("midnight computed in %v, want %v", got.Location(), loc)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
