package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range NewRootCmd("").Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"normalize-phone", "format-metric", "business-hours", "lookup-email", "lookup-phone", "tag"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	out, err := run(t, "normalize-phone", "066 013 2486")
	require.NoError(t, err)
	assert.Equal(t, "+0660132486\n", out)

	_, err = run(t, "normalize-phone", "abc")
	assert.Error(t, err)
}

func TestFormatMetric(t *testing.T) {
	out, err := run(t, "format-metric", "5k")
	require.NoError(t, err)
	assert.Equal(t, "5,000\n", out)

	out, err = run(t, "format-metric", "n/a")
	require.NoError(t, err)
	assert.Equal(t, "n/a\n", out)
}

func TestBusinessHours(t *testing.T) {
	out, err := run(t, "business-hours", "--phone", "+442071838750", "--hours", "10-16", "--at", "15", "--now", "2026-06-10T07:00:00Z")
	require.NoError(t, err)

	var got struct {
		IsNow       bool     `json:"is_now"`
		WaitSeconds int      `json:"wait_seconds"`
		Timezones   []string `json:"timezones"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.IsNow)
	assert.Equal(t, 7*3600, got.WaitSeconds)
	assert.Equal(t, []string{"Europe/London"}, got.Timezones)
}

func TestTag_RequiresSomethingToWrite(t *testing.T) {
	_, err := run(t, "tag", "--email", "a@b.c")
	assert.Error(t, err)
}
