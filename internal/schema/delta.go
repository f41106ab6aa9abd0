package schema

import (
	"strconv"
	"strings"
)

// ParseDeltaPercent implements the delta-parse grammar: numeric strings
// like "+5.2%" and "-3.1%", the literals "N/A", "-", empty, and the
// infinity spellings map to either a float64 or the null sentinel (ok ==
// false). No adapter is allowed to parse these identifiers itself; they
// all funnel through here.
func ParseDeltaPercent(raw string) (value float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	switch strings.ToLower(s) {
	case "n/a", "-", "na", "null", "none":
		return 0, false
	case "inf", "+inf", "infinity", "∞", "+∞":
		return 0, false
	case "-inf", "-infinity", "-∞":
		return 0, false
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CoerceNumber defensively coerces a value that may arrive as a JSON
// number or a numeric string into a float64; anything else, booleans
// included, reports ok == false. Every
// adapter that reads impressions/revenue from an arbitrary JSON payload
// goes through this single helper rather than repeating type-switches
// in-line (open question (ii) in the design notes).
func CoerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case nil:
		return 0, false
	default:
		return 0, false
	}
}

// ComputeECPM returns 1000*revenue/impressions, or 0 when impressions is
// not positive, per the ComparisonRow invariant in spec.md §3.
func ComputeECPM(revenue float64, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return 1000 * revenue / float64(impressions)
}

// DeltaPct returns (network-mediator)/mediator*100, or the null sentinel
// when mediator <= 0.
func DeltaPct(mediatorValue, networkValue float64) (float64, bool) {
	if mediatorValue <= 0 {
		return 0, false
	}
	return (networkValue - mediatorValue) / mediatorValue * 100, true
}
