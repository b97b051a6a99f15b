package limits

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustPayload(t *testing.T, body string) *Payload {
	t.Helper()
	p, _, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	return p
}

func headers(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestNormalizeShapeOneWinsOverHeaders(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Snapshot
	}{
		{"integers", `{"rateLimit":{"measurements":{"create":{"limit":250,"remaining":249,"reset":3600}}}}`, Snapshot{250, 249, 3600}},
		{"zeros", `{"rateLimit":{"measurements":{"create":{"limit":0,"remaining":0,"reset":0}}}}`, Snapshot{0, 0, 0}},
		{"fractions", `{"rateLimit":{"measurements":{"create":{"limit":1.5,"remaining":-2,"reset":0.25}}}}`, Snapshot{1.5, -2, 0.25}},
		{"remaining above limit", `{"rateLimit":{"measurements":{"create":{"limit":10,"remaining":50,"reset":1}}}}`, Snapshot{10, 50, 1}},
	}

	h := headers(HeaderLimit, "1", HeaderRemaining, "2", HeaderReset, "3")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(mustPayload(t, tc.body), h)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeShapePriorityOrder(t *testing.T) {
	body := `{
		"measurements": {"limit": 100, "remaining": 90, "reset": 60},
		"limits": {"measurements": {"create": {"limit": 5, "remaining": 4, "reset": 3}}}
	}`

	got, err := Normalize(mustPayload(t, body), nil)
	require.NoError(t, err)
	require.Equal(t, Snapshot{Limit: 100, Remaining: 90, Reset: 60}, got)
}

func TestNormalizeUsesShapeThreeWhenAlone(t *testing.T) {
	body := `{"limits":{"measurements":{"create":{"limit":"5","remaining":"4","reset":"3"}}}}`

	got, err := Normalize(mustPayload(t, body), nil)
	require.NoError(t, err)
	require.Equal(t, Snapshot{Limit: 5, Remaining: 4, Reset: 3}, got)
}

func TestNormalizeFallsBackToHeaderPerField(t *testing.T) {
	body := `{"measurements":{"limit":100,"remaining":42}}`

	got, err := Normalize(mustPayload(t, body), headers(HeaderReset, "17"))
	require.NoError(t, err)
	require.Equal(t, Snapshot{Limit: 100, Remaining: 42, Reset: 17}, got)
}

func TestNormalizeNeverFallsBackToLowerShape(t *testing.T) {
	// Shape 1 is present but lacks reset; shape 2 has it but must not be used.
	body := `{
		"rateLimit": {"measurements": {"create": {"limit": 100, "remaining": 42}}},
		"measurements": {"limit": 1, "remaining": 1, "reset": 99}
	}`

	_, err := Normalize(mustPayload(t, body), nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeEmptyShapeStillSelected(t *testing.T) {
	body := `{
		"rateLimit": {"measurements": {"create": {}}},
		"measurements": {"limit": 1, "remaining": 1, "reset": 1}
	}`

	got, err := Normalize(mustPayload(t, body),
		headers(HeaderLimit, "60", HeaderRemaining, "59", HeaderReset, "30"))
	require.NoError(t, err)
	require.Equal(t, Snapshot{Limit: 60, Remaining: 59, Reset: 30}, got)
}

func TestNormalizeNullFieldFallsBackToHeader(t *testing.T) {
	body := `{"measurements":{"limit":100,"remaining":null,"reset":5}}`

	got, err := Normalize(mustPayload(t, body), headers(HeaderRemaining, "7"))
	require.NoError(t, err)
	require.Equal(t, Snapshot{Limit: 100, Remaining: 7, Reset: 5}, got)
}

func TestNormalizeMissingFieldIsNotFound(t *testing.T) {
	_, err := Normalize(mustPayload(t, `{"measurements":{"limit":100}}`), nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeNonNumericFieldIsNotFound(t *testing.T) {
	body := `{"measurements":{"limit":100,"remaining":"unlimited","reset":5}}`

	got, err := Normalize(mustPayload(t, body), headers(HeaderRemaining, "3"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, Snapshot{}, got)
}

func TestNormalizeHeadersOnly(t *testing.T) {
	h := headers(HeaderLimit, "500", HeaderRemaining, " 12 ", HeaderReset, "1e2")

	got, err := Normalize(nil, h)
	require.NoError(t, err)
	require.Equal(t, Snapshot{Limit: 500, Remaining: 12, Reset: 100}, got)
}

func TestNormalizeEmptyHeaderValueIsRejected(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderLimit, "5")
	h.Set(HeaderRemaining, "5")
	h[HeaderReset] = []string{""}

	_, err := Normalize(nil, h)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveReportsSources(t *testing.T) {
	body := `{"rateLimit":{"measurements":{"create":{"limit":10,"remaining":9}}}}`

	res := Resolve(mustPayload(t, body), headers(HeaderReset, "4"))
	require.Empty(t, res.Invalid)
	require.Equal(t, ShapeMeasurements, res.Shape)
	require.Equal(t, Source("shape-1"), res.Sources[FieldLimit])
	require.Equal(t, Source("shape-1"), res.Sources[FieldRemaining])
	require.Equal(t, SourceHeader, res.Sources[FieldReset])

	res = Resolve(nil, nil)
	require.Equal(t, ShapeNone, res.Shape)
	require.ElementsMatch(t, Fields, res.Invalid)
	require.Equal(t, SourceUnresolved, res.Sources[FieldLimit])
}
