package appointments

import (
	"strings"
	"time"
)

// naiveLayouts are the ISO-8601 local forms accepted without an offset. The
// minute-precision layout is what a datetime-local input posts.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime parses an ISO-8601 appointment time. Values without an offset are
// interpreted in loc (UTC when nil).
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidTime
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTime
}

// FormatDisplay renders a time the way confirmation messages show it.
func FormatDisplay(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatReminder renders a time at minute precision for reminder texts.
func FormatReminder(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
