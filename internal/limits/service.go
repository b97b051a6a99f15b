package limits

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/metrics"
	"github.com/limitlens/limitlens/internal/observability"
)

// Fetcher retrieves raw upstream responses.
type Fetcher interface {
	Fetch(ctx context.Context) (*Response, error)
}

// Service ties the upstream call to normalization. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	Upstream Fetcher
}

// NewService returns a Service backed by the given upstream.
func NewService(upstream Fetcher) *Service {
	return &Service{Upstream: upstream}
}

// Limits performs one upstream call and returns the normalized snapshot. The
// returned error is ErrMissingCredential, *TransportError, *UpstreamError or
// *NormalizationError.
func (s *Service) Limits(ctx context.Context) (Snapshot, error) {
	if s == nil || s.Upstream == nil {
		return Snapshot{}, ErrMissingCredential
	}

	start := time.Now()
	resp, err := s.Upstream.Fetch(ctx)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, ErrMissingCredential) {
			metrics.RecordUpstreamRequest("config_error", 0)
			return Snapshot{}, ErrMissingCredential
		}
		metrics.RecordUpstreamRequest("transport_error", elapsed)
		var te *TransportError
		if errors.As(err, &te) {
			return Snapshot{}, te
		}
		return Snapshot{}, &TransportError{Err: err}
	}

	if !resp.OK() {
		metrics.RecordUpstreamRequest("http_error", elapsed)
		return Snapshot{}, &UpstreamError{
			Status:  resp.StatusCode,
			Details: Truncate(string(resp.Body), MaxExcerpt),
		}
	}
	metrics.RecordUpstreamRequest("ok", elapsed)

	// A body that is not JSON is normalized from headers alone.
	payload, doc, parseErr := ParsePayload(resp.Body)
	res := Resolve(payload, resp.Header)
	for field, source := range res.Sources {
		metrics.RecordFieldSource(string(field), string(source))
	}

	if len(res.Invalid) > 0 {
		metrics.RecordNormalization(false)
		sample := sampleOf(doc, resp.Body, parseErr)
		if observability.ServerLogger != nil {
			observability.ServerLogger.Debug("Upstream payload did not normalize",
				zap.String("shape", res.Shape.String()),
				zap.Int("invalid_fields", len(res.Invalid)),
				zap.Bool("body_parsed", parseErr == nil))
		}
		return Snapshot{}, &NormalizationError{
			Sample:  sample,
			Shape:   res.Shape,
			Invalid: res.Invalid,
		}
	}

	metrics.RecordNormalization(true)
	return res.Snapshot, nil
}

// sampleOf serializes the decoded payload compactly, or falls back to the raw
// body text when it was not JSON.
func sampleOf(doc any, raw []byte, parseErr error) string {
	if parseErr != nil {
		return Truncate(string(raw), MaxExcerpt)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return Truncate(string(raw), MaxExcerpt)
	}
	return Truncate(strings.TrimSuffix(buf.String(), "\n"), MaxExcerpt)
}
