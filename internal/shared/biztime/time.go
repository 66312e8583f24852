// Package biztime centralises time handling. Everything is stored and
// transported in UTC with millisecond precision.
package biztime

import (
	"fmt"
	"strings"
	"time"
)

// Clock abstracts the wall clock so state machines can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return NowUTC() }

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}

// FixedClock is a settable clock for tests.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// NowUTC returns the current time in UTC truncated to milliseconds.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ToUTC truncates t to milliseconds and converts it to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing Z or explicit offset
// is honoured; a naive timestamp is interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ToUTC(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// MillisBetween returns the whole milliseconds from a to b, never negative.
func MillisBetween(a, b time.Time) int64 {
	ms := b.Sub(a).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
