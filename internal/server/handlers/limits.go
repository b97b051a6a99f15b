package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/limitlens/limitlens/internal/errors"
	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/server/middleware"
)

// Messages returned on /api/limits failures.
const (
	MessageMissingCredential = "Missing apiKey secret"
	MessageUpstreamFailed    = "Globalping API request failed"
	MessageUpstreamMalformed = "Globalping response did not include expected rate-limit fields"
	MessageUpstreamDown      = "Globalping API unreachable"
)

// LimitsService produces a normalized snapshot per call.
type LimitsService interface {
	Limits(ctx context.Context) (limits.Snapshot, error)
}

// LimitsHandler serves GET /api/limits. Every request triggers exactly one
// upstream call; nothing is cached.
type LimitsHandler struct {
	Service LimitsService
}

// NewLimitsHandler returns a handler backed by svc.
func NewLimitsHandler(svc LimitsService) *LimitsHandler {
	return &LimitsHandler{Service: svc}
}

func (h *LimitsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		respondWithError(w, r, LimitsErrorEnvelope(r.Context(), limits.ErrMissingCredential))
		return
	}

	snapshot, err := h.Service.Limits(r.Context())
	if err != nil {
		logLimitsFailure(r, err)
		respondWithError(w, r, LimitsErrorEnvelope(r.Context(), err))
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// LimitsErrorEnvelope maps the limits error taxonomy onto error envelopes.
func LimitsErrorEnvelope(ctx context.Context, err error) *errors.ErrorEnvelope {
	var (
		upstreamErr  *limits.UpstreamError
		normalizeErr *limits.NormalizationError
		transportErr *limits.TransportError
		env          *errors.ErrorEnvelope
	)

	switch {
	case stderrors.Is(err, limits.ErrMissingCredential):
		env = apperrors.NewConfigInvalidError(MessageMissingCredential)
		env, _ = env.WithSeverity(errors.SeverityHigh)
	case stderrors.As(err, &upstreamErr):
		env = apperrors.NewExternalServiceError(MessageUpstreamFailed)
		env, _ = env.WithContext(map[string]interface{}{
			"status":  upstreamErr.Status,
			"details": upstreamErr.Details,
		})
		env, _ = env.WithSeverity(errors.SeverityMedium)
	case stderrors.As(err, &normalizeErr):
		env = apperrors.NewUpstreamPayloadError(MessageUpstreamMalformed)
		env, _ = env.WithContext(map[string]interface{}{
			"sample": normalizeErr.Sample,
		})
		env, _ = env.WithSeverity(errors.SeverityMedium)
	case stderrors.As(err, &transportErr):
		env = apperrors.NewExternalServiceError(MessageUpstreamDown)
		env, _ = env.WithContext(map[string]interface{}{
			"details": limits.Truncate(transportErr.Err.Error(), limits.MaxExcerpt),
		})
		env, _ = env.WithSeverity(errors.SeverityMedium)
	default:
		env = apperrors.WrapInternal(ctx, err, "unexpected error while loading limits")
	}

	return apperrors.EnsureCorrelationID(env, ctx)
}

func logLimitsFailure(r *http.Request, err error) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Error(err),
	}

	var normalizeErr *limits.NormalizationError
	if stderrors.As(err, &normalizeErr) {
		fields = append(fields,
			zap.String("shape", normalizeErr.Shape.String()),
			zap.String("sample", normalizeErr.Sample))
	}

	logger.Debug("Limits request failed", fields...)
}
