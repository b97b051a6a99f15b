package limits

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	accepted := []struct {
		raw  any
		want float64
	}{
		{json.Number("42"), 42},
		{json.Number("-1.5"), -1.5},
		{"17", 17},
		{" 8 ", 8},
		{"3.25", 3.25},
		{"1e3", 1000},
		{float64(7), 7},
		{int(9), 9},
		{int64(11), 11},
	}
	for _, tc := range accepted {
		got, ok := Coerce(tc.raw)
		assert.True(t, ok, "expected %#v to be accepted", tc.raw)
		assert.Equal(t, tc.want, got)
	}

	rejected := []any{
		nil,
		"",
		"   ",
		"unlimited",
		"NaN",
		"Infinity",
		"-Inf",
		"12abc",
		json.Number("1e400"),
		math.NaN(),
		math.Inf(1),
		math.Inf(-1),
		true,
		map[string]any{"n": 1},
		[]any{1},
	}
	for _, raw := range rejected {
		_, ok := Coerce(raw)
		assert.False(t, ok, "expected %#v to be rejected", raw)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "żó", Truncate("żółw", 2))
}
