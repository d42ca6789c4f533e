package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// wallClockLayouts are zone-less forms read in the caller's location.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"20060102T150405",
}

// ParseInstant converts a submitted date string into an absolute instant.
// Supports unix seconds ("1709323200"), RFC 3339 ("2024-03-01T14:00:00-06:00"),
// and the zone-less layouts above, which are interpreted in loc.
func ParseInstant(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}

	// Unix seconds, which is what the widget form posts
	if isInteger(text) {
		secs, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing unix seconds: %w", err)
		}
		return time.Unix(secs, 0).In(loc), nil
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}

	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", text)
}

func isInteger(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
