package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"0660132486", "+0660132486", true},
		{"+380 (66) 013-24-86", "+380660132486", true},
		{"+380660132486", "+380660132486", true},
		{"abc", "", false},
		{"", "", false},
		{"12+34", "", false},
		{"++123", "", false},
		{123, "", false},
		{nil, "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		assert.Equal(t, tc.wantOK, ok, "input %#v", tc.in)
		assert.Equal(t, tc.want, got, "input %#v", tc.in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"0660132486", " +44 20 7946 0958 ", "tel:+1-555-0100", "abc", "+", "1+"}
	for _, in := range inputs {
		first, ok := Normalize(in)
		if !ok {
			continue
		}
		second, ok2 := Normalize(first)
		assert.True(t, ok2, "re-normalizing %q", first)
		assert.Equal(t, first, second)
	}
}

func TestNormalizeOr_FallsBackToRaw(t *testing.T) {
	assert.Equal(t, "+4420", NormalizeOr("44-20"))
	assert.Equal(t, "not a phone", NormalizeOr("not a phone"))
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"53856960", "+53856960"}, Candidates("53856960"))
	assert.Equal(t, []string{"+48 600", "+48600", "48600"}, Candidates("+48 600"))
	assert.Equal(t, []string{"abc"}, Candidates("abc"))
	assert.Empty(t, Candidates("  "))
}
