package phone

import (
	"regexp"
	"strings"
)

// canonical is the only shape Normalize ever returns: a leading '+' followed by digits.
var canonical = regexp.MustCompile(`^\+\d+$`)

// Normalize repairs a phone value into "+<digits>".
//
// Every character other than ASCII digits and '+' is dropped, and a '+' is prepended
// when missing. The boolean is false when the input is not a string or the repaired
// value still is not canonical (e.g. empty, or a '+' in the middle).
//
// Normalization is purely syntactic. No country or locale rules are applied.
func Normalize(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if !strings.HasPrefix(out, "+") {
		out = "+" + out
	}
	if !canonical.MatchString(out) {
		return "", false
	}
	return out, true
}

// NormalizeOr returns the normalized phone, or raw unchanged when it cannot be repaired.
func NormalizeOr(raw string) string {
	if p, ok := Normalize(raw); ok {
		return p
	}
	return raw
}

// Candidates lists the spellings a stored phone may have been saved under:
// the raw value, its normalized form, and the normalized digits without '+'.
// Duplicates and empty values are skipped; order is stable.
func Candidates(raw string) []string {
	out := make([]string, 0, 3)
	add := func(s string) {
		if s == "" {
			return
		}
		for _, x := range out {
			if x == s {
				return
			}
		}
		out = append(out, s)
	}

	add(strings.TrimSpace(raw))
	if p, ok := Normalize(raw); ok {
		add(p)
		add(strings.TrimPrefix(p, "+"))
	}
	return out
}
