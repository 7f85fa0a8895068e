package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidWindow = errors.New("schedule: invalid business hours")
	ErrInvalidTime   = errors.New("schedule: invalid desired call time")
)

// Window is a daily local-time range [Start, End) in whole hours.
type Window struct {
	Start int
	End   int
}

// DefaultWindow is used when the caller does not send business_hours.
var DefaultWindow = Window{Start: 10, End: 16}

// ParseWindow parses "10-16".
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(from))
	end, err2 := strconv.Atoi(strings.TrimSpace(to))
	if err1 != nil || err2 != nil || start < 0 || end > 24 || start >= end {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return Window{Start: start, End: end}, nil
}

func (w Window) String() string { return fmt.Sprintf("%d-%d", w.Start, w.End) }

// contains reports whether t's local wall clock falls inside the window.
func (w Window) contains(t time.Time) bool {
	return t.Hour() >= w.Start && t.Hour() < w.End
}

// ClockTime is a local wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "15" or "15:30".
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	hh, mm, hasMinutes := strings.Cut(s, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m := 0
	if hasMinutes {
		m, err = strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// within reports whether c falls inside w.
func (c ClockTime) within(w Window) bool {
	return c.Hour >= w.Start && c.Hour < w.End
}

// next returns the first instant at or after local whose wall clock reads c.
func (c ClockTime) next(local time.Time) time.Time {
	y, mo, d := local.Date()
	t := time.Date(y, mo, d, c.Hour, c.Minute, 0, 0, local.Location())
	if t.Before(local) {
		t = time.Date(y, mo, d+1, c.Hour, c.Minute, 0, 0, local.Location())
	}
	return t
}
