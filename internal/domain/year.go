package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when start_time matches none of the known layouts.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// startTimeLayouts lists the start_time encodings seen across Climate TRACE
// exports, most specific first.
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DeriveYear parses a start_time value and returns its calendar year in the
// zone the timestamp states, along with the parsed time.
func DeriveYear(startTime string) (int, time.Time, error) {
	s := strings.TrimSpace(startTime)
	if s == "" {
		return 0, time.Time{}, fmt.Errorf("%w: empty start_time", ErrInvalidTimestamp)
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), t, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}
