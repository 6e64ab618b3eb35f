// Package ratelimit enforces per-user action quotas over sliding and
// calendar windows.
package ratelimit

import "time"

type Action string

const (
	ActionComment  Action = "comment"
	ActionReaction Action = "reaction"
	ActionReport   Action = "report"
)

type Window uint8

const (
	// TrailingMinute ends at the current instant.
	TrailingMinute Window = iota
	// TrailingHour ends at the current instant.
	TrailingHour
	// CalendarDay starts at local midnight of the current day.
	CalendarDay
)

// retention bounds how long a recorded action can matter to any window.
const retention = 26 * time.Hour

func (w Window) String() string {
	switch w {
	case TrailingMinute:
		return "minute"
	case TrailingHour:
		return "hour"
	case CalendarDay:
		return "day"
	}
	return "unknown"
}

// Start returns the inclusive lower bound of the window containing now.
func (w Window) Start(now time.Time, loc *time.Location) time.Time {
	switch w {
	case TrailingHour:
		return now.Add(-time.Hour)
	case CalendarDay:
		if loc == nil {
			loc = time.UTC
		}
		l := now.In(loc)
		return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
	default:
		return now.Add(-time.Minute)
	}
}
