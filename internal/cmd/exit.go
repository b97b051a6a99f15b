package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/limits"
)

// osExit is swapped in tests.
var osExit = os.Exit

// ExitCodeFor maps a non-nil command error onto a semantic exit code.
func ExitCodeFor(err error) foundry.ExitCode {
	var (
		upstreamErr  *limits.UpstreamError
		normalizeErr *limits.NormalizationError
		transportErr *limits.TransportError
	)
	switch {
	case stderrors.Is(err, limits.ErrMissingCredential):
		return foundry.ExitConfigInvalid
	case stderrors.As(err, &upstreamErr), stderrors.As(err, &normalizeErr), stderrors.As(err, &transportErr):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

// ExitWithCode logs err with the foundry exit code metadata and exits.
// With a nil logger it writes the same report to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		writeFatal(os.Stderr, exitCode, msg, err)
		osExit(int(exitCode))
		return
	}

	logger.Error(msg, exitFields(info.Code, info.Name, info.Category, err)...)
	osExit(info.Code)
}

// ExitWithCodeStderr is for failures before the logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	writeFatal(os.Stderr, exitCode, msg, err)

	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		osExit(info.Code)
		return
	}
	osExit(int(exitCode))
}

func exitFields(code int, name, category string, err error) []zap.Field {
	fields := []zap.Field{
		zap.Int("exit_code", code),
		zap.String("exit_name", name),
		zap.String("exit_category", category),
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if cause := envelopeCause(envelope); cause != "" {
			fields = append(fields, zap.String("cause", cause))
		}
	}

	return append(fields, zap.Error(err))
}

// envelopeCause is the wrapped error text. WithOriginal stores it as a string.
func envelopeCause(envelope *errors.ErrorEnvelope) string {
	switch original := envelope.Original.(type) {
	case string:
		return original
	case error:
		return original.Error()
	default:
		return ""
	}
}

// writeFatal prints the human report: the message, the error (envelope code
// and cause when present) and the exit code line.
func writeFatal(w io.Writer, exitCode foundry.ExitCode, msg string, err error) {
	switch envelope, isEnvelope := err.(*errors.ErrorEnvelope); {
	case err == nil:
		_, _ = fmt.Fprintf(w, "FATAL: %s\n", msg)
	case isEnvelope:
		_, _ = fmt.Fprintf(w, "FATAL: %s [%s]: %s\n", msg, envelope.Code, envelope.Message)
		if cause := envelopeCause(envelope); cause != "" {
			_, _ = fmt.Fprintf(w, "Cause: %s\n", cause)
		}
	default:
		_, _ = fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	}

	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		_, _ = fmt.Fprintf(w, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		return
	}
	_, _ = fmt.Fprintf(w, "Exit Code: %d\n", exitCode)
}
