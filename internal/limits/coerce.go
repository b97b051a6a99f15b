package limits

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coerce converts a raw body or header value into a finite number. Numbers
// and numeric strings are accepted; everything else is rejected.
func Coerce(raw any) (float64, bool) {
	var value float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case json.Number:
		return parseNumeric(v.String())
	case string:
		return parseNumeric(v)
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case int32:
		value = float64(v)
	case uint:
		value = float64(v)
	case uint64:
		value = float64(v)
	case uint32:
		value = float64(v)
	default:
		return 0, false
	}
	return value, isFinite(value)
}

func parseNumeric(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return value, isFinite(value)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
