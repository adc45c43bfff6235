package collect

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateRangeSingleDay(t *testing.T) {
	r, err := NewDateRange(date(2024, 6, 1), date(2024, 6, 1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dates := r.Dates()
	if len(dates) != 1 {
		t.Fatalf("Expected 1 date, got %d", len(dates))
	}
	if !dates[0].Equal(date(2024, 6, 1)) {
		t.Errorf("Expected 2024-06-01, got %s", dates[0])
	}
}

func TestDateRangeInclusive(t *testing.T) {
	r, err := NewDateRange(date(2024, 6, 28), date(2024, 7, 2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dates := r.Dates()
	if len(dates) != 5 {
		t.Fatalf("Expected 5 dates crossing the month boundary, got %d", len(dates))
	}
	if !dates[4].Equal(date(2024, 7, 2)) {
		t.Errorf("Expected last date 2024-07-02, got %s", dates[4])
	}
	if r.Days() != 5 {
		t.Errorf("Expected Days() == 5, got %d", r.Days())
	}

	// restartable: a second call yields the same sequence
	again := r.Dates()
	if len(again) != 5 || !again[0].Equal(dates[0]) {
		t.Error("Expected Dates() to be restartable")
	}
}

func TestDateRangeRejectsReversed(t *testing.T) {
	if _, err := NewDateRange(date(2024, 6, 2), date(2024, 6, 1)); err == nil {
		t.Error("Expected error for start > end")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-06-01", date(2024, 6, 1), false},
		{"20240601", date(2024, 6, 1), false},
		{"01/06/2024", time.Time{}, true},
		{"yesterday", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
