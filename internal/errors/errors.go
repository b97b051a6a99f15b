// Package errors builds the gofulmen error envelopes limitlens returns and
// renders them as the flat JSON error body of the HTTP API.
package errors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/metrics"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/server/middleware"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeMethodNotAllowed       = "METHOD_NOT_ALLOWED"
	CodeInternal               = "INTERNAL_ERROR"
	CodeConfigInvalid          = "CONFIG_INVALID"
	CodeExternalService        = "EXTERNAL_SERVICE_ERROR"
	CodeUpstreamPayloadInvalid = "UPSTREAM_PAYLOAD_INVALID"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[string]int{
	CodeNotFound:               http.StatusNotFound,
	CodeMethodNotAllowed:       http.StatusMethodNotAllowed,
	CodeInternal:               http.StatusInternalServerError,
	CodeConfigInvalid:          http.StatusInternalServerError,
	CodeExternalService:        http.StatusBadGateway,
	CodeUpstreamPayloadInvalid: http.StatusBadGateway,
	CodeServiceUnavailable:     http.StatusServiceUnavailable,
}

// HTTPStatusFromCode maps an error code onto its response status. Unknown
// codes are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

// NewConfigInvalidError is also used for a missing upstream credential.
func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

func NewExternalServiceError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeExternalService, message)
}

// NewUpstreamPayloadError reports an upstream 2xx response that could not be used.
func NewUpstreamPayloadError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUpstreamPayloadInvalid, message)
}

// Wrap builds an envelope for err, taking the correlation ID from the
// request in ctx.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	id := correlationID(ctx)
	envelope = envelope.WithCorrelationID(id)
	envelope = envelope.WithTraceID(id)
	if err != nil {
		if updated, updateErr := envelope.WithContext(map[string]interface{}{
			"wrapped_error": err.Error(),
		}); updateErr == nil {
			envelope = updated
		}
	}
	return envelope
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInternal, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeConfigInvalid, err, message)
}

// correlationID is the request ID from ctx, or a fresh UUID.
func correlationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// EnsureCorrelationID sets the request ID from ctx when the envelope has none.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	return envelope.WithCorrelationID(correlationID(ctx))
}

// ensureEnvelope passes envelopes through and hides anything else behind a
// generic internal error.
func ensureEnvelope(err error) *errors.ErrorEnvelope {
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	if err != nil {
		env, _ = env.WithContext(map[string]interface{}{"wrapped_error": err.Error()})
	}
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// Reserved keys of the flat error body; envelope context never overrides them.
const (
	ResponseKeyError     = "error"
	ResponseKeyCode      = "code"
	ResponseKeyRequestID = "request_id"
)

// HTTPErrorResponse is the flat error body: {"error": message, ...context}.
type HTTPErrorResponse map[string]interface{}

// NewHTTPErrorResponse merges details and context at the top level next to
// the reserved keys.
func NewHTTPErrorResponse(envelope *errors.ErrorEnvelope) HTTPErrorResponse {
	response := HTTPErrorResponse{}
	if envelope == nil {
		response[ResponseKeyError] = "unexpected error"
		return response
	}

	for key, value := range envelope.Context {
		response[key] = value
	}
	for key, value := range envelope.Details {
		response[key] = value
	}
	response[ResponseKeyError] = envelope.Message
	response[ResponseKeyCode] = envelope.Code
	if envelope.CorrelationID != "" {
		response[ResponseKeyRequestID] = envelope.CorrelationID
	}
	return response
}

// RespondWithError writes err as a flat JSON error body, logging it and
// counting it in the error metrics.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}

	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	envelope := EnsureCorrelationID(ensureEnvelope(err), ctx)
	status := HTTPStatusFromCode(envelope.Code)

	logHTTPError(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewHTTPErrorResponse(envelope))
}

func logHTTPError(envelope *errors.ErrorEnvelope, status int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
		zap.String("request_id", envelope.CorrelationID),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch {
	case envelope.Severity == errors.SeverityCritical, envelope.Severity == errors.SeverityHigh:
		logger.Error(envelope.Message, fields...)
	case envelope.Severity == errors.SeverityMedium, status >= http.StatusInternalServerError:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Info(envelope.Message, fields...)
	}
}
