package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow(" 9 - 17 ")
	require.NoError(t, err)
	assert.Equal(t, Window{Start: 9, End: 17}, w)

	for _, bad := range []string{"", "10", "16-10", "10-25", "a-b", "-1-5"} {
		_, err := ParseWindow(bad)
		assert.ErrorIs(t, err, ErrInvalidWindow, bad)
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("15")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 15}, c)

	c, err = ParseClock("09:45")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 9, Minute: 45}, c)

	for _, bad := range []string{"", "24", "12:60", "noon"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestCheck_InsideWindow(t *testing.T) {
	// 12:00 in London (BST, UTC+1).
	now := time.Date(2026, 6, 10, 11, 0, 0, 0, time.UTC)

	av, err := Check(now, []string{"Europe/London"}, Window{Start: 10, End: 16}, ClockTime{Hour: 15})
	require.NoError(t, err)
	assert.True(t, av.IsNow)
	assert.Zero(t, av.WaitSeconds)
}

func TestCheck_BeforeWindowWaitsForDesiredTime(t *testing.T) {
	// 08:00 in London.
	now := time.Date(2026, 6, 10, 7, 0, 0, 0, time.UTC)

	av, err := Check(now, []string{"Europe/London"}, Window{Start: 10, End: 16}, ClockTime{Hour: 15})
	require.NoError(t, err)
	assert.False(t, av.IsNow)
	assert.Equal(t, 7*3600, av.WaitSeconds)
}

func TestCheck_AfterWindowWaitsUntilTomorrow(t *testing.T) {
	// 17:30 in London.
	now := time.Date(2026, 6, 10, 16, 30, 0, 0, time.UTC)

	av, err := Check(now, []string{"Europe/London"}, Window{Start: 10, End: 16}, ClockTime{Hour: 15})
	require.NoError(t, err)
	assert.False(t, av.IsNow)
	assert.Equal(t, 21*3600+30*60, av.WaitSeconds)
}

func TestCheck_DesiredOutsideWindowClampsToStart(t *testing.T) {
	// 08:00 in London; desired 20:00 is outside 10-16.
	now := time.Date(2026, 6, 10, 7, 0, 0, 0, time.UTC)

	av, err := Check(now, []string{"Europe/London"}, Window{Start: 10, End: 16}, ClockTime{Hour: 20})
	require.NoError(t, err)
	assert.Equal(t, 2*3600, av.WaitSeconds)
}

func TestCheck_EveryZoneMustBeOpen(t *testing.T) {
	// 15:00 in New York, 12:00 in Los Angeles (EDT/PDT).
	now := time.Date(2026, 6, 10, 19, 0, 0, 0, time.UTC)
	zones := []string{"America/New_York", "America/Los_Angeles"}

	av, err := Check(now, zones, Window{Start: 10, End: 16}, ClockTime{Hour: 15})
	require.NoError(t, err)
	assert.True(t, av.IsNow)

	// 17:00 in New York, 14:00 in Los Angeles.
	now = now.Add(2 * time.Hour)
	av, err = Check(now, zones, Window{Start: 10, End: 16}, ClockTime{Hour: 15})
	require.NoError(t, err)
	assert.False(t, av.IsNow)
	// New York waits until 15:00 tomorrow (22h), Los Angeles until 15:00 today (1h).
	assert.Equal(t, 22*3600, av.WaitSeconds)
	assert.Equal(t, zones, av.Timezones)
}

func TestCheck_BadZone(t *testing.T) {
	_, err := Check(time.Now(), []string{"Mars/Olympus"}, DefaultWindow, ClockTime{Hour: 15})
	assert.ErrorIs(t, err, ErrUnknownTimezone)

	_, err = Check(time.Now(), nil, DefaultWindow, ClockTime{Hour: 15})
	assert.ErrorIs(t, err, ErrUnknownTimezone)
}

func TestTimezones(t *testing.T) {
	zones, err := Timezones("+44 20 7183 8750")
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe/London"}, zones)

	zones, err = Timezones("33142685300")
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe/Paris"}, zones)

	_, err = Timezones("abc")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestCheckPhone(t *testing.T) {
	now := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
	av, err := CheckPhone(now, "+442071838750", DefaultWindow, ClockTime{Hour: 15})
	require.NoError(t, err)
	assert.True(t, av.IsNow)
	assert.Equal(t, []string{"Europe/London"}, av.Timezones)
}
