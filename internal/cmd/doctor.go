package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/limitlens/limitlens/internal/appid"
	"github.com/limitlens/limitlens/internal/config"
	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/observability"
)

type doctorStatus int

const (
	doctorOK doctorStatus = iota
	doctorWarn
	doctorFail
)

type doctorCheck struct {
	name string
	run  func(ctx context.Context) (doctorStatus, string)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Check the toolchain, config directory and upstream credential, then call
the Globalping limits endpoint once when a credential is configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		identity := GetAppIdentity()
		name := appid.BinaryNameOf(identity)

		cfg, cfgErr := config.Load(cmd.Context(), viper.GetViper())
		checks := doctorChecks(cfg, cfgErr, appid.EnvPrefixOf(identity), name)

		log.Info("=== " + name + " doctor ===")
		healthy := true
		for i, check := range checks {
			status, detail := check.run(cmd.Context())
			line := fmt.Sprintf("[%d/%d] %s... ", i+1, len(checks), check.name)
			switch status {
			case doctorOK:
				log.Info(line + "✅ " + detail)
			case doctorWarn:
				healthy = false
				log.Warn(line + "⚠️  " + detail)
			default:
				healthy = false
				log.Error(line + "❌ " + detail)
			}
		}

		log.Info("")
		if healthy {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", name))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
	},
}

// doctorChecks lists the diagnostics in run order. cfg is nil when cfgErr
// is set.
func doctorChecks(cfg *config.Config, cfgErr error, envPrefix, binaryName string) []doctorCheck {
	return []doctorCheck{
		{"Checking Go version", func(context.Context) (doctorStatus, string) {
			if v := runtime.Version(); v < "go1.23" {
				return doctorWarn, v + " (recommended: go1.23+)"
			}
			return doctorOK, runtime.Version()
		}},
		{"Checking Fulmen libraries", func(context.Context) (doctorStatus, string) {
			v := crucible.GetVersion()
			if v.Crucible == "" || v.Gofulmen == "" {
				return doctorFail, "crucible or gofulmen version unavailable"
			}
			return doctorOK, "gofulmen v" + v.Gofulmen + ", crucible v" + v.Crucible
		}},
		{"Checking config directory", func(context.Context) (doctorStatus, string) {
			path := config.DefaultConfigPath()
			if path == "" {
				return doctorFail, "cannot resolve config directory"
			}
			return doctorOK, filepath.Dir(path)
		}},
		{"Checking configuration", func(context.Context) (doctorStatus, string) {
			if cfgErr != nil {
				return doctorFail, cfgErr.Error()
			}
			return doctorOK, "upstream " + cfg.Upstream.URL + ", refresh " + cfg.Refresh.Interval.String()
		}},
		{"Checking upstream credential", func(context.Context) (doctorStatus, string) {
			switch {
			case cfgErr != nil:
				return doctorWarn, "config not loaded"
			case cfg.Upstream.APIKey == "":
				return doctorWarn, fmt.Sprintf("not set; /api/limits answers 500 (set %sAPI_KEY or run '%s doctor init --api-key prompt')", envPrefix, binaryName)
			}
			return doctorOK, "configured"
		}},
		{"Checking upstream", func(ctx context.Context) (doctorStatus, string) {
			if cfgErr != nil || cfg.Upstream.APIKey == "" {
				return doctorWarn, "skipped (no credential)"
			}
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			snapshot, err := fetchSnapshot(checkCtx, newLimitsService(cfg))
			if err != nil {
				return doctorFail, err.Error()
			}
			return doctorOK, fmt.Sprintf("%v of %v remaining, reset in %vs", snapshot.Remaining, snapshot.Limit, snapshot.Reset)
		}},
	}
}

var (
	doctorInitForce  bool
	doctorInitAPIKey string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			key, err := promptForValue(cmd.InOrStdin(), cmd.OutOrStdout(), "Enter Globalping API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			apiKey = key
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if apiKey != "" {
			mode = 0600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(apiKey, appid.EnvPrefixOf(GetAppIdentity()))), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		configExists := fileExists(configPath)

		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(configExists)))
		if used := viper.ConfigFileUsed(); used != "" && used != configPath {
			observability.CLILogger.Info(fmt.Sprintf("  Active file:   %s", used))
		}
		if envFile != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Env file:      %s (%s)", envFile, existenceStatus(fileExists(envFile))))
		}

		cfg, err := config.Load(cmd.Context(), viper.GetViper())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return nil
		}

		prefix := appid.EnvPrefixOf(GetAppIdentity())
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Environment:")
		observability.CLILogger.Info("  " + prefix + "API_KEY: " + envStatus(prefix+"API_KEY"))
		observability.CLILogger.Info("  " + prefix + "UPSTREAM_API_KEY: " + envStatus(prefix+"UPSTREAM_API_KEY"))

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Effective Settings:")
		observability.CLILogger.Info("  upstream.url: " + cfg.Upstream.URL)
		observability.CLILogger.Info(fmt.Sprintf("  upstream.api_key: %s", setStatus(cfg.Upstream.APIKey != "")))
		observability.CLILogger.Info("  refresh.interval: " + cfg.Refresh.Interval.String())
		observability.CLILogger.Info(fmt.Sprintf("  refresh.discard_stale: %t", cfg.Refresh.DiscardStale))
		observability.CLILogger.Info(fmt.Sprintf("  server: %s:%d", cfg.Server.Host, cfg.Server.Port))

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the user configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			return nil
		}
		if err := os.Remove(configPath); err == nil {
			observability.CLILogger.Info("Config removed", zap.String("path", configPath))
		} else if os.IsNotExist(err) {
			observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
		} else {
			return fmt.Errorf("remove config file: %w", err)
		}
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		v := viper.New()
		config.SetDefaults(v)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if _, err := config.Decode(v.AllSettings()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set the Globalping API key or use 'prompt' to enter")
}

func buildInitConfig(apiKey, envPrefix string) string {
	lines := []string{
		"# limitlens config - created by 'limitlens doctor init'",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"upstream:",
		"  url: " + limits.DefaultURL,
	}

	if strings.TrimSpace(apiKey) != "" {
		lines = append(lines, fmt.Sprintf("  api_key: %q", apiKey))
	} else {
		lines = append(lines, "  # api_key: \"\"  # Set via "+envPrefix+"API_KEY or uncomment")
	}

	lines = append(lines,
		"refresh:",
		"  interval: 30s",
	)

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(in io.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(in)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	return setStatus(strings.TrimSpace(os.Getenv(name)) != "")
}

func setStatus(set bool) string {
	if set {
		return "(set)"
	}
	return "(not set)"
}
