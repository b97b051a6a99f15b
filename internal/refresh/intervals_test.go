package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalsDocumentedSet(t *testing.T) {
	var millis []int64
	defaults := 0
	for _, i := range Intervals {
		millis = append(millis, i.Millis())
		if i.Default() {
			defaults++
		}
	}
	assert.Equal(t, []int64{5000, 15000, 30000, 60000, 300000}, millis)
	assert.Equal(t, 1, defaults)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, DefaultInterval, Sanitize(0))
	assert.Equal(t, DefaultInterval, Sanitize(-time.Second))
	assert.Equal(t, 7*time.Second, Sanitize(7*time.Second))
}

func TestParseInterval(t *testing.T) {
	d, err := ParseInterval("15000")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	d, err = ParseInterval(" 1m ")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	for _, bad := range []string{"", "0", "-5s", "soon"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, "value %q", bad)
	}
}
