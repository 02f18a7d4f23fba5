package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// present reports whether a field was supplied at all, null included.
func present(raw json.RawMessage) bool {
	return raw != nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseFloat reads a JSON number or a numeric string.
func parseFloat(raw json.RawMessage) (float64, bool) {
	if !present(raw) || isNull(raw) {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseInt reads an integer the same way, truncating fractional input.
func parseInt(raw json.RawMessage) (int, bool) {
	f, ok := parseFloat(raw)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// parseWholeInt is parseInt without truncation: fractional input fails.
func parseWholeInt(raw json.RawMessage) (int, bool) {
	f, ok := parseFloat(raw)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return parseInt(raw)
}

// floatOr and intOr are the safe-parse policy for optional numbers:
// anything unparsable becomes the default.
func floatOr(raw json.RawMessage, def float64) float64 {
	if f, ok := parseFloat(raw); ok {
		return f
	}
	return def
}

func intOr(raw json.RawMessage, def int) int {
	if n, ok := parseInt(raw); ok {
		return n
	}
	return def
}

// parseString reads a JSON string, trimmed.
func parseString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func parseStrings(raw json.RawMessage) ([]string, bool) {
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out, true
}
