package appointments

import (
	"errors"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want time.Time
	}{
		{"seconds", "2024-05-01T10:00:00", time.UTC, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"datetime-local minutes", "2024-05-01T10:00", time.UTC, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional seconds", "2024-05-01T10:00:00.250", time.UTC, time.Date(2024, 5, 1, 10, 0, 0, 250000000, time.UTC)},
		{"space separator", "2024-05-01 10:00:00", time.UTC, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"naive in clinic zone", "2024-05-01T10:00:00", ny, time.Date(2024, 5, 1, 10, 0, 0, 0, ny)},
		{"offset wins over zone", "2024-05-01T10:00:00Z", ny, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"nil location means utc", "2024-05-01T10:00", nil, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.raw, tt.loc)
			if err != nil {
				t.Fatalf("ParseTime(%q) error: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseTime(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "tomorrow", "05/01/2024 10:00", "2024-13-01T10:00:00"} {
		if _, err := ParseTime(raw, time.UTC); !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("ParseTime(%q) expected ErrInvalidTime, got %v", raw, err)
		}
	}
}

func TestFormatters(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if got := FormatDisplay(ts); got != "2024-05-01 10:00:00" {
		t.Fatalf("FormatDisplay = %q", got)
	}
	if got := FormatReminder(ts); got != "2024-05-01 10:00" {
		t.Fatalf("FormatReminder = %q", got)
	}
}
