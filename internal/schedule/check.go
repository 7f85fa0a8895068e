package schedule

import (
	"errors"
	"fmt"
	"math"
	"time"

	"callbridge/internal/phone"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrInvalidPhone    = errors.New("schedule: invalid phone number")
	ErrUnknownTimezone = errors.New("schedule: could not resolve timezone")
)

const unknownTimezone = "Etc/Unknown"

// Availability answers "can we call this number now, and if not, how long until we should".
type Availability struct {
	IsNow       bool     `json:"is_now"`
	WaitSeconds int      `json:"wait_seconds"`
	Timezones   []string `json:"timezones"`
}

// Timezones resolves the IANA timezones a phone number may ring in.
func Timezones(raw string) ([]string, error) {
	normalized, ok := phone.Normalize(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	num, err := phonenumbers.Parse(normalized, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPhone, err)
	}
	zones, err := phonenumbers.GetTimezonesForNumber(num)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownTimezone, err)
	}

	out := make([]string, 0, len(zones))
	for _, z := range zones {
		if z != "" && z != unknownTimezone {
			out = append(out, z)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimezone, normalized)
	}
	return out, nil
}

// Check evaluates the window across zones at now.
//
// IsNow holds only when every zone is inside the window. Otherwise WaitSeconds is the
// longest wait, over all zones, until the next local desired time; a desired time
// outside the window is replaced by the window start.
func Check(now time.Time, zones []string, w Window, desired ClockTime) (Availability, error) {
	if len(zones) == 0 {
		return Availability{}, ErrUnknownTimezone
	}
	target := desired
	if !target.within(w) {
		target = ClockTime{Hour: w.Start}
	}

	av := Availability{IsNow: true, Timezones: zones}
	var wait time.Duration
	for _, z := range zones {
		loc, err := time.LoadLocation(z)
		if err != nil {
			return Availability{}, fmt.Errorf("%w: %s: %w", ErrUnknownTimezone, z, err)
		}
		local := now.In(loc)
		if !w.contains(local) {
			av.IsNow = false
		}
		if d := target.next(local).Sub(local); d > wait {
			wait = d
		}
	}
	if !av.IsNow {
		av.WaitSeconds = int(math.Ceil(wait.Seconds()))
	}
	return av, nil
}

// CheckPhone resolves the phone's timezones and runs Check.
func CheckPhone(now time.Time, raw string, w Window, desired ClockTime) (Availability, error) {
	zones, err := Timezones(raw)
	if err != nil {
		return Availability{}, err
	}
	return Check(now, zones, w, desired)
}
