package refresh

import (
	"math"
	"strconv"
	"strings"
)

// Placeholder is shown for values that have never loaded.
const Placeholder = "—"

// FormatDuration renders seconds compactly: hours only when non-zero,
// minutes when non-zero or hours are shown, seconds always.
// 3661 renders as "1h 1m 1s", 45 as "45s".
func FormatDuration(seconds float64) string {
	total := seconds
	if math.IsNaN(total) || total < 0 {
		total = 0
	}

	h := math.Floor(total / 3600)
	m := math.Floor(math.Mod(total, 3600) / 60)
	s := math.Mod(total, 60)

	parts := make([]string, 0, 3)
	if h != 0 {
		parts = append(parts, FormatNumber(h)+"h")
	}
	if m != 0 || h != 0 {
		parts = append(parts, FormatNumber(m)+"m")
	}
	parts = append(parts, FormatNumber(s)+"s")
	return strings.Join(parts, " ")
}

// FormatNumber renders a snapshot value with no trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
