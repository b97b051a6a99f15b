package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/appid"
	"github.com/limitlens/limitlens/internal/config"
	"github.com/limitlens/limitlens/internal/observability"
)

var (
	cfgFile string
	envFile string
	verbose bool

	// App identity loaded from .fulmen/app.yaml
	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	// NOTE: initConfig() overwrites these from app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Globalping API rate-limit status page and proxy",
	Long: `Serve a self-refreshing status page for the Globalping API rate limits,
or query and watch them from the terminal.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Load app identity early for help text (before cobra processes --help)
	ctx := context.Background()
	if identity, err := appid.Get(ctx); err == nil && identity != nil {
		appIdentity = identity
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig runs before every command: identity, CLI logger, .env, then
// the config file and environment on the global viper.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	appIdentity = identity
	applyIdentity(identity)

	observability.InitCLILogger(appid.BinaryNameOf(identity), verbose)
	log := observability.CLILogger

	if err := config.LoadDotEnv(envFile); err != nil {
		ExitWithCode(log, foundry.ExitConfigInvalid, "Failed to load env file", err)
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	used, err := configureViper(v, identity, cfgFile)
	switch {
	case err != nil:
		ExitWithCode(log, foundry.ExitConfigInvalid, "Failed to read config file", err)
	case used != "":
		log.Debug("Using config file", zap.String("path", used))
	default:
		log.Debug("No config file found, using defaults and environment variables")
	}
}

// configureViper points v at the config file and the prefixed environment,
// then reads the file. explicit overrides the search path and must exist;
// otherwise the XDG config dir, the home dot-file and ./config are searched
// and a miss is not an error. It returns the file used, if any.
func configureViper(v *viper.Viper, identity *appidentity.Identity, explicit string) (string, error) {
	configName := appid.ConfigNameOf(identity)

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if dir := gfconfig.GetAppConfigDir(configName); dir != "" {
			v.AddConfigPath(dir)
			v.SetConfigName("config")
		} else if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
			v.SetConfigName("." + configName)
		}
		v.AddConfigPath("./config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(strings.TrimSuffix(appid.EnvPrefixOf(identity), "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && stderrors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

// applyIdentity updates the CLI help surfaces from the app identity.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf(`%s - %s

Serve the status page with "serve", print the limits once with "limits",
or keep them on screen with "watch".`, identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// loadConfig decodes the merged viper settings into a typed Config.
func loadConfig(ctx context.Context) *config.Config {
	cfg, err := config.Load(ctx, viper.GetViper())
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	return cfg
}
