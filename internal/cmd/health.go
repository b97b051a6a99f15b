package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/config"
	errwrap "github.com/limitlens/limitlens/internal/errors"
	"github.com/limitlens/limitlens/internal/observability"
)

type selfCheckLevel int

const (
	selfCheckPass selfCheckLevel = iota
	selfCheckWarn
	selfCheckFail
)

type selfCheckResult struct {
	Name   string
	Level  selfCheckLevel
	Detail string
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify the binary can serve: version metadata, configuration, the
refresh interval, the upstream URL and the credential. A missing credential
is a warning since only /api/limits and the limits command need it.`,
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		log := observability.CLILogger
		log.Info("Running health check...")

		cfg, err := config.Load(cmd.Context(), viper.GetViper())
		if err != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}

		var failed *selfCheckResult
		for _, res := range runSelfChecks(versionInfo.Version, cfg) {
			switch res.Level {
			case selfCheckPass:
				log.Info("✅ "+res.Name, zap.String("detail", res.Detail))
			case selfCheckWarn:
				log.Warn("⚠️  "+res.Name, zap.String("detail", res.Detail))
			default:
				log.Error("❌ FAIL: "+res.Name, zap.String("detail", res.Detail))
				if failed == nil {
					res := res
					failed = &res
				}
			}
		}

		if failed != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, failed.Name+" check failed", errwrap.NewConfigInvalidError(failed.Detail))
			return
		}
		log.Info("")
		log.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runSelfChecks evaluates a loaded config without touching the network.
func runSelfChecks(version string, cfg *config.Config) []selfCheckResult {
	results := make([]selfCheckResult, 0, 4)

	if version == "" {
		results = append(results, selfCheckResult{"version", selfCheckFail, "version information missing"})
	} else {
		results = append(results, selfCheckResult{"version", selfCheckPass, version})
	}

	if cfg.Refresh.Interval <= 0 {
		results = append(results, selfCheckResult{"refresh interval", selfCheckWarn, "not positive; the 30s default applies"})
	} else {
		results = append(results, selfCheckResult{"refresh interval", selfCheckPass, cfg.Refresh.Interval.String()})
	}

	if err := validateUpstreamURL(cfg.Upstream.URL); err != nil {
		results = append(results, selfCheckResult{"upstream url", selfCheckFail, err.Error()})
	} else {
		results = append(results, selfCheckResult{"upstream url", selfCheckPass, cfg.Upstream.URL})
	}

	if cfg.Upstream.APIKey == "" {
		results = append(results, selfCheckResult{"credential", selfCheckWarn, "upstream.api_key is not set; /api/limits will fail"})
	} else {
		results = append(results, selfCheckResult{"credential", selfCheckPass, "configured"})
	}

	return results
}
