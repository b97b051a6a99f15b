package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"

	"github.com/limitlens/limitlens/internal/limits"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"missing credential", limits.ErrMissingCredential, foundry.ExitConfigInvalid},
		{"wrapped credential", fmt.Errorf("limits: %w", limits.ErrMissingCredential), foundry.ExitConfigInvalid},
		{"upstream status", &limits.UpstreamError{Status: 500}, foundry.ExitExternalServiceUnavailable},
		{"bad payload", &limits.NormalizationError{Sample: "{}"}, foundry.ExitExternalServiceUnavailable},
		{"unreachable", &limits.TransportError{Err: context.DeadlineExceeded}, foundry.ExitExternalServiceUnavailable},
		{"other", errors.New("boom"), foundry.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestWriteFatal(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		writeFatal(&buf, foundry.ExitExternalServiceUnavailable, "Command execution failed", &limits.UpstreamError{Status: 401, Details: "bad token"})

		out := buf.String()
		assert.Contains(t, out, "FATAL: Command execution failed: ")
		assert.Contains(t, out, "bad token")
		assert.Contains(t, out, "Exit Code: ")
	})

	t.Run("envelope", func(t *testing.T) {
		var buf bytes.Buffer
		writeFatal(&buf, foundry.ExitConfigInvalid, "Invalid configuration", gferrors.NewErrorEnvelope("CONFIG_INVALID", "bad interval"))

		assert.Contains(t, buf.String(), "FATAL: Invalid configuration [CONFIG_INVALID]: bad interval")
	})

	t.Run("envelope with cause", func(t *testing.T) {
		var buf bytes.Buffer
		envelope := gferrors.NewErrorEnvelope("EXTERNAL_SERVICE_ERROR", "Globalping API request failed").
			WithOriginal(&limits.UpstreamError{Status: 401, Details: "bad token"})
		writeFatal(&buf, foundry.ExitExternalServiceUnavailable, "Command execution failed", envelope)

		assert.Contains(t, buf.String(), "Cause: upstream returned status 401: bad token\n")
	})

	t.Run("no error", func(t *testing.T) {
		var buf bytes.Buffer
		writeFatal(&buf, foundry.ExitFailure, "stopped", nil)

		assert.Contains(t, buf.String(), "FATAL: stopped\n")
	})
}

func TestExitWithCodeUsesSemanticCode(t *testing.T) {
	var got []int
	original := osExit
	osExit = func(code int) { got = append(got, code) }
	t.Cleanup(func() { osExit = original })

	ExitWithCode(nil, foundry.ExitConfigInvalid, "Missing apiKey secret", limits.ErrMissingCredential)

	assert.Equal(t, []int{int(foundry.ExitConfigInvalid)}, got)
}

func TestExitFieldsCarryEnvelopeCause(t *testing.T) {
	envelope := gferrors.NewErrorEnvelope("CONFIG_INVALID", "Invalid configuration").
		WithOriginal(errors.New("refresh.interval: invalid duration"))

	var cause string
	for _, field := range exitFields(int(foundry.ExitConfigInvalid), "EXIT_CONFIG_INVALID", "configuration", envelope) {
		if field.Key == "cause" {
			cause = field.String
		}
	}

	assert.Equal(t, "refresh.interval: invalid duration", cause)
}
