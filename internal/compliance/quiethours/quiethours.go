// Package quiethours decides whether "now" falls inside a recipient's local
// quiet-hours window and computes the next instant the window ends.
package quiethours

import (
	"fmt"
	"time"
)

// Window is a daily [start, end) local-time window, in minutes since
// midnight. When start > end the window wraps midnight.
type Window struct {
	StartMinutes int
	EndMinutes   int
}

// Parse builds a Window from "HH:MM" strings.
func Parse(start, end string) (Window, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("quiethours: parse start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("quiethours: parse end: %w", err)
	}
	return Window{StartMinutes: startMin, EndMinutes: endMin}, nil
}

func parseClock(v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("empty clock")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Clock evaluates a Window against recipient-supplied timezones.
type Clock struct {
	window Window
}

// NewClock builds a Clock for the given window.
func NewClock(w Window) Clock {
	return Clock{window: w}
}

// IsInWindow reports whether now, interpreted in tz, falls inside the
// configured window.
func (c Clock) IsInWindow(tz *time.Location, now time.Time) bool {
	if tz == nil {
		tz = time.UTC
	}
	if c.window.StartMinutes == c.window.EndMinutes {
		return false
	}
	minutes := minutesOfDay(now.In(tz))
	if c.window.StartMinutes < c.window.EndMinutes {
		return minutes >= c.window.StartMinutes && minutes < c.window.EndMinutes
	}
	return minutes >= c.window.StartMinutes || minutes < c.window.EndMinutes
}

// WindowEndAfter returns the soonest future UTC instant, strictly after now,
// at which the window's "end" boundary next occurs in tz. Handles DST
// transitions by constructing the candidate from local-time fields rather
// than adding a fixed duration.
func (c Clock) WindowEndAfter(tz *time.Location, now time.Time) time.Time {
	if tz == nil {
		tz = time.UTC
	}
	local := now.In(tz)
	endHour := c.window.EndMinutes / 60
	endMinute := c.window.EndMinutes % 60

	candidate := time.Date(local.Year(), local.Month(), local.Day(), endHour, endMinute, 0, 0, tz)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.UTC()
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
