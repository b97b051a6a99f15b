package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitlens/limitlens/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode(CodeConfigInvalid))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromCode(CodeExternalService))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromCode(CodeUpstreamPayloadInvalid))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeServiceUnavailable))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromCode(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
}

func TestWrapKeepsCauseInContext(t *testing.T) {
	env := WrapInternal(context.Background(), stderrors.New("disk full"), "write failed")

	assert.Equal(t, CodeInternal, env.Code)
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, "disk full", env.Context["wrapped_error"])
}

func TestRespondWithErrorFlatBody(t *testing.T) {
	env := NewExternalServiceError("Globalping API request failed")
	env, err := env.WithContext(map[string]interface{}{
		"status":  401,
		"details": "bad token",
		"error":   "must not override",
	})
	require.NoError(t, err)

	var seen string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
		RespondWithError(w, r, env)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Globalping API request failed", body["error"])
	assert.Equal(t, CodeExternalService, body["code"])
	assert.Equal(t, float64(401), body["status"])
	assert.Equal(t, "bad token", body["details"])
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", body["request_id"])
}

func TestRespondWithErrorHidesPlainErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, stderrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unexpected error", body["error"])
	assert.Equal(t, CodeInternal, body["code"])
	assert.NotEmpty(t, body["request_id"])
}
