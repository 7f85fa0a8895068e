// Package metricfmt normalizes CRM magnitude values ("5k", "200+", "1500") for display.
package metricfmt

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxExact bounds values converted to int64; anything larger is passed through.
const maxExact = 1 << 53

// Format normalizes a magnitude value.
//
//	"5k"    -> "5,000"     (x1000, truncated, grouped)
//	"200+"  -> "200+"      (grouped, open-ended marker kept)
//	"1.5+"  -> "1.5+"
//	1500    -> "2,000"     (> 1000: nearest thousand, half away from zero)
//	800     -> int64(800)  (<= 1000: returned as a number)
//	"n/a"   -> "n/a"       (anything unparsable is returned unchanged)
//
// Format never panics.
func Format(v any) any {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return v
	}

	str := strings.ToLower(strings.TrimSpace(s))

	if num, ok := strings.CutSuffix(str, "k"); ok {
		n, ok := parse(num)
		if !ok || math.Abs(n*1000) >= maxExact {
			return v
		}
		return humanize.Comma(int64(n * 1000))
	}

	if num, ok := strings.CutSuffix(str, "+"); ok {
		n, ok := parse(num)
		if !ok {
			return v
		}
		if n == math.Trunc(n) {
			return humanize.Comma(int64(n)) + "+"
		}
		return humanize.Commaf(n) + "+"
	}

	n, ok := parse(str)
	if !ok {
		return v
	}
	if n > 1000 {
		return humanize.Comma(int64(math.Round(n/1000) * 1000))
	}
	if n == math.Trunc(n) {
		return int64(n)
	}
	return n
}

// parse accepts plain decimal notation only; hex floats are not metrics.
func parse(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	digits := strings.ToLower(strings.TrimLeft(s, "+-"))
	if strings.HasPrefix(digits, "0x") {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) >= maxExact {
		return 0, false
	}
	return n, true
}
