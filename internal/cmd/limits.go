package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/output"
	"github.com/limitlens/limitlens/internal/server/handlers"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Fetch the current Globalping rate limits once",
	Long: `Call the Globalping limits endpoint directly with the configured credential
and print the normalized limit, remaining count and reset time.

The same normalization backs /api/limits on the server.`,
	Example: `  limitlens limits
  limitlens limits --output-format json
  limitlens limits --output-format markdown --out limits.md
  limitlens limits --out-dir reports/`,
	RunE: runLimits,
}

func init() {
	rootCmd.AddCommand(limitsCmd)

	limitsCmd.Flags().String("output-format", "table", "Output format: table, json, yaml, markdown")
	limitsCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	limitsCmd.Flags().String("out-dir", "", "Write output to a timestamped file in a directory")
	limitsCmd.Flags().Duration("timeout", 0, "Abort the upstream call after this duration (0 = no limit)")
}

func runLimits(cmd *cobra.Command, args []string) error {
	target, err := reportTargetFlags(cmd)
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	cfg := loadConfig(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	snapshot, err := fetchSnapshot(ctx, newLimitsService(cfg))
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(target.format).FormatSnapshot(snapshot)
	if err != nil {
		return err
	}

	name := "limits-" + time.Now().UTC().Format("20060102T150405Z")
	path, err := target.write(cmd.OutOrStdout(), name, rendered)
	if err != nil {
		return err
	}
	if path != "-" && observability.CLILogger != nil {
		observability.CLILogger.Info("Wrote limits", zap.String("path", path))
	}
	return nil
}

// fetchSnapshot runs one normalization and maps failures to the messages
// the HTTP surface uses.
func fetchSnapshot(ctx context.Context, svc handlers.LimitsService) (limits.Snapshot, error) {
	snapshot, err := svc.Limits(ctx)
	if err == nil {
		return snapshot, nil
	}

	env := handlers.LimitsErrorEnvelope(ctx, err)
	var detail []string
	for _, key := range []string{"status", "details", "sample"} {
		if value, ok := env.Context[key]; ok {
			detail = append(detail, fmt.Sprintf("%s=%v", key, value))
		}
	}
	if len(detail) == 0 {
		return limits.Snapshot{}, fmt.Errorf("%s: %w", env.Message, err)
	}
	return limits.Snapshot{}, fmt.Errorf("%s (%s): %w", env.Message, strings.Join(detail, ", "), err)
}
