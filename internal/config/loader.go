// Package config provides centralized configuration management for limitlens.
// It layers built-in defaults, the XDG user config file and environment
// variables on a viper instance, then decodes the result into a typed Config.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/limitlens/limitlens/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig    *Config
	configMu     sync.RWMutex
	identityOnce sync.Once
	appIdentity  *appidentity.Identity
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Variables already set win. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load applies the environment aliases to v and decodes every setting into a
// Config. v must already carry defaults (SetDefaults) and any config file.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs(envPrefix(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	for key, value := range flatten("", envOverrides) {
		v.Set(key, value)
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts a nested settings map into a Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Upstream.APIKey = strings.TrimSpace(cfg.Upstream.APIKey)
	cfg.CORS.AllowedOrigins = compact(cfg.CORS.AllowedOrigins)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// identity loads the app identity once; nil when none can be resolved.
func identity(ctx context.Context) *appidentity.Identity {
	identityOnce.Do(func() {
		if loaded, err := appid.Get(ctx); err == nil {
			appIdentity = loaded
		}
	})
	return appIdentity
}

func envPrefix(ctx context.Context) string {
	return appid.EnvPrefixOf(identity(ctx))
}

// getEnvSpecs returns the short environment aliases. Full paths such as
// LIMITLENS_UPSTREAM_API_KEY are handled by viper's AutomaticEnv.
func getEnvSpecs(prefix string) []EnvVarSpec {
	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Upstream credential, named after the secret binding of the hosted deployment
		{Name: prefix + "API_KEY", Path: []string{"upstream", "api_key"}, Type: EnvString},
		{Name: prefix + "UPSTREAM_URL", Path: []string{"upstream", "url"}, Type: EnvString},

		{Name: prefix + "REFRESH_INTERVAL", Path: []string{"refresh", "interval"}, Type: EnvString},
		{Name: prefix + "CORS_ORIGINS", Path: []string{"cors", "allowed_origins"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
	}
}

func flatten(prefix string, in map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range in {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(path, nested) {
				out[k] = v
			}
			continue
		}
		out[path] = value
	}
	return out
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.ConfigNameOf(identity(context.Background())))
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}
