package refresh

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultInterval is used when no valid interval is selected.
const DefaultInterval = 30 * time.Second

// Interval is one documented refresh choice.
type Interval struct {
	Duration time.Duration
	Label    string
}

// Millis returns the interval in milliseconds, the unit the page uses.
func (i Interval) Millis() int64 {
	return i.Duration.Milliseconds()
}

// Default reports whether this is the preselected interval.
func (i Interval) Default() bool {
	return i.Duration == DefaultInterval
}

// Intervals are the documented refresh choices, in display order.
var Intervals = []Interval{
	{Duration: 5 * time.Second, Label: "Every 5 seconds"},
	{Duration: 15 * time.Second, Label: "Every 15 seconds"},
	{Duration: 30 * time.Second, Label: "Every 30 seconds"},
	{Duration: time.Minute, Label: "Every 1 minute"},
	{Duration: 5 * time.Minute, Label: "Every 5 minutes"},
}

// Sanitize maps non-positive intervals to DefaultInterval. Other values are
// accepted even when they are not one of Intervals.
func Sanitize(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInterval
	}
	return d
}

// ParseInterval accepts a Go duration ("15s") or a bare number of
// milliseconds ("15000").
func ParseInterval(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty refresh interval")
	}
	if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("refresh interval must be positive: %s", value)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid refresh interval %q: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("refresh interval must be positive: %s", value)
	}
	return d, nil
}
