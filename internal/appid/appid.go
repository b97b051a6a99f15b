// Package appid resolves the limitlens app identity. An explicit identity file
// (FULMEN_APP_IDENTITY_PATH or .fulmen/app.yaml) wins; otherwise the copy
// embedded in the binary is used.
package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/limitlens/limitlens/internal/assets/appidentity"
)

// Fallbacks when no identity can be loaded or a field is blank.
const (
	DefaultBinaryName = "limitlens"
	DefaultConfigName = "limitlens"
	DefaultEnvPrefix  = "LIMITLENS_"
)

func init() {
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvPrefix returns the identity's environment prefix, always ending in "_".
func EnvPrefix(ctx context.Context) string {
	identity, _ := Get(ctx)
	return EnvPrefixOf(identity)
}

// EnvPrefixOf is EnvPrefix for an already loaded identity (which may be nil).
func EnvPrefixOf(identity *appidentity.Identity) string {
	prefix := DefaultEnvPrefix
	if identity != nil && strings.TrimSpace(identity.EnvPrefix) != "" {
		prefix = strings.TrimSpace(identity.EnvPrefix)
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// BinaryNameOf returns the identity's binary name or DefaultBinaryName.
func BinaryNameOf(identity *appidentity.Identity) string {
	if identity == nil || strings.TrimSpace(identity.BinaryName) == "" {
		return DefaultBinaryName
	}
	return identity.BinaryName
}

// ConfigNameOf returns the identity's config name or DefaultConfigName.
func ConfigNameOf(identity *appidentity.Identity) string {
	if identity == nil || strings.TrimSpace(identity.ConfigName) == "" {
		return DefaultConfigName
	}
	return identity.ConfigName
}
