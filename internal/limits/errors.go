package limits

import (
	"errors"
	"fmt"
	"strings"
)

// MaxExcerpt bounds the upstream body excerpts and samples carried by errors.
const MaxExcerpt = 300

// ErrMissingCredential reports that no upstream API key is configured.
var ErrMissingCredential = errors.New("missing apiKey secret")

// UpstreamError reports a non-2xx upstream response.
type UpstreamError struct {
	Status int
	// Details is at most MaxExcerpt characters of the upstream body.
	Details string
}

func (e *UpstreamError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, Truncate(e.Details, MaxExcerpt))
}

// TransportError reports that the upstream could not be reached.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "upstream request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NormalizationError reports a successful upstream response that did not
// yield a complete triple.
type NormalizationError struct {
	// Sample is at most MaxExcerpt characters of the serialized payload.
	Sample  string
	Shape   Shape
	Invalid []Field
}

func (e *NormalizationError) Error() string {
	names := make([]string, 0, len(e.Invalid))
	for _, f := range e.Invalid {
		names = append(names, string(f))
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, strings.Join(names, ", "))
}

func (e *NormalizationError) Unwrap() error {
	return ErrNotFound
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
