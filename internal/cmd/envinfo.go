package cmd

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/appid"
	"github.com/limitlens/limitlens/internal/config"
	"github.com/limitlens/limitlens/internal/observability"
)

type envInfoSection struct {
	title string
	rows  [][2]string
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime and effective configuration. The API key is reported as set or not set, never printed.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cmd.Context(), viper.GetViper())
		if err != nil && observability.CLILogger != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderEnvInfo(envInfoSections(cfg)))
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

// envInfoSections collects what envinfo reports. cfg may be nil when the
// configuration failed to load.
func envInfoSections(cfg *config.Config) []envInfoSection {
	ssot := crucible.GetVersion()
	sections := []envInfoSection{
		{"Application", [][2]string{
			{"Name", appid.BinaryNameOf(GetAppIdentity())},
			{"Version", versionInfo.Version},
			{"Commit", versionInfo.Commit},
			{"Built", versionInfo.BuildDate},
			{"Gofulmen", ssot.Gofulmen},
			{"Crucible", ssot.Crucible},
		}},
		{"Runtime", [][2]string{
			{"Go", runtime.Version()},
			{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
			{"CPUs", strconv.Itoa(runtime.NumCPU())},
		}},
	}
	if cfg == nil {
		return sections
	}

	apiKey := "(not set)"
	if cfg.Upstream.APIKey != "" {
		apiKey = "(set)"
	}
	origins := "(same origin only)"
	if len(cfg.CORS.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.CORS.AllowedOrigins, ", ")
	}

	return append(sections,
		envInfoSection{"Server", [][2]string{
			{"Listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
			{"Config File", config.DefaultConfigPath()},
			{"Log", cfg.Logging.Level + " / " + cfg.Logging.Profile},
			{"Metrics", fmt.Sprintf("%t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port)},
			{"CORS Origins", origins},
		}},
		envInfoSection{"Upstream", [][2]string{
			{"URL", cfg.Upstream.URL},
			{"API Key", apiKey},
			{"User Agent", cfg.Upstream.UserAgent},
		}},
		envInfoSection{"Refresh", [][2]string{
			{"Interval", cfg.Refresh.Interval.String()},
			{"Discard Stale", strconv.FormatBool(cfg.Refresh.DiscardStale)},
		}},
	)
}

func renderEnvInfo(sections []envInfoSection) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Environment")
	for i, section := range sections {
		if i > 0 {
			t.AppendSeparator()
		}
		t.AppendRow(table.Row{strings.ToUpper(section.title), ""})
		for _, row := range section.rows {
			value := row[1]
			if value == "" {
				value = "-"
			}
			t.AppendRow(table.Row{"  " + row[0], value})
		}
	}
	return t.Render()
}
