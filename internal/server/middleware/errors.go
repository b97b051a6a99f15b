package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/metrics"
	"github.com/limitlens/limitlens/internal/observability"
)

// Recovery turns a handler panic into a 500 with the flat error body. The
// stack trace goes to the server log only.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			requestID := GetRequestID(r.Context())
			panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", "Internal server error").
				WithCorrelationID(requestID)
			panicErr, _ = panicErr.WithSeverity(errors.SeverityCritical)

			metrics.RecordPanic()
			if observability.ServerLogger != nil {
				observability.ServerLogger.Error("Recovered from handler panic",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(recovered)),
					zap.ByteString("stack_trace", debug.Stack()))
			}

			writeErrorResponse(w, panicErr, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// writeErrorResponse writes the flat error body directly; the errors package
// cannot be imported here without a cycle.
func writeErrorResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope, statusCode int) {
	response := map[string]interface{}{}
	for key, value := range envelope.Context {
		response[key] = value
	}
	response["error"] = envelope.Message
	response["code"] = envelope.Code
	if envelope.CorrelationID != "" {
		response["request_id"] = envelope.CorrelationID
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
