package valueobjects

import (
	"fmt"
	"strconv"
	"strings"
)

const maxInitialMS = 24 * 60 * 60 * 1000

type TimeControl struct {
	InitialMS   int64 `json:"initial_ms"`
	IncrementMS int64 `json:"increment_ms"`
}

func NewTimeControl(initialMS, incrementMS int64) (TimeControl, error) {
	if initialMS < 1000 {
		return TimeControl{}, fmt.Errorf("initial time must be at least 1 second")
	}
	if initialMS > maxInitialMS {
		return TimeControl{}, fmt.Errorf("initial time cannot exceed 24 hours")
	}
	if incrementMS < 0 {
		return TimeControl{}, fmt.Errorf("increment cannot be negative")
	}
	return TimeControl{InitialMS: initialMS, IncrementMS: incrementMS}, nil
}

// ParseTimeControl reads the "minutes+seconds" notation, e.g. "5+0" or "0.5+1".
func ParseTimeControl(s string) (TimeControl, error) {
	base, inc, ok := strings.Cut(strings.TrimSpace(s), "+")
	if !ok {
		return TimeControl{}, fmt.Errorf("invalid time control: %q", s)
	}
	minutes, err := strconv.ParseFloat(base, 64)
	if err != nil {
		return TimeControl{}, fmt.Errorf("invalid time control minutes: %q", base)
	}
	seconds, err := strconv.ParseFloat(inc, 64)
	if err != nil {
		return TimeControl{}, fmt.Errorf("invalid time control increment: %q", inc)
	}
	return NewTimeControl(int64(minutes*60_000), int64(seconds*1000))
}

// String renders the "minutes+seconds" notation used in pool keys.
func (tc TimeControl) String() string {
	minutes := strconv.FormatFloat(float64(tc.InitialMS)/60_000, 'f', -1, 64)
	seconds := strconv.FormatFloat(float64(tc.IncrementMS)/1000, 'f', -1, 64)
	return minutes + "+" + seconds
}

func (tc TimeControl) InitialMinutes() float64 {
	return float64(tc.InitialMS) / 60_000
}
