package limits

// Header names consulted when a field is missing from the selected body shape.
const (
	HeaderLimit     = "X-Ratelimit-Limit"
	HeaderRemaining = "X-Ratelimit-Remaining"
	HeaderReset     = "X-Ratelimit-Reset"
)

// Snapshot is the normalized rate-limit triple returned by /api/limits.
//
// Remaining is passed through as received; it is not clamped to Limit.
type Snapshot struct {
	Limit     float64 `json:"limit" yaml:"limit"`
	Remaining float64 `json:"remaining" yaml:"remaining"`
	// Reset is the number of seconds until the window resets.
	Reset float64 `json:"reset" yaml:"reset"`
}

// Field names a Snapshot field.
type Field string

const (
	FieldLimit     Field = "limit"
	FieldRemaining Field = "remaining"
	FieldReset     Field = "reset"
)

// Fields lists the snapshot fields in output order.
var Fields = []Field{FieldLimit, FieldRemaining, FieldReset}

func (f Field) header() string {
	switch f {
	case FieldLimit:
		return HeaderLimit
	case FieldRemaining:
		return HeaderRemaining
	case FieldReset:
		return HeaderReset
	default:
		return ""
	}
}
