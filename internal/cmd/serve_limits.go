package cmd

import (
	"context"
	"net/url"
	"sync/atomic"

	"github.com/limitlens/limitlens/internal/config"
	errwrap "github.com/limitlens/limitlens/internal/errors"
	"github.com/limitlens/limitlens/internal/limits"
)

// newLimitsService builds the service backing /api/limits and `limits`.
func newLimitsService(cfg *config.Config) *limits.Service {
	userAgent := cfg.Upstream.UserAgent
	if userAgent == "" {
		name := "limitlens"
		if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
			name = identity.BinaryName
		}
		userAgent = name + "/" + versionInfo.Version
	}
	return limits.NewService(&limits.Client{
		URL:       cfg.Upstream.URL,
		APIKey:    cfg.Upstream.APIKey,
		UserAgent: userAgent,
	})
}

// liveLimits serves /api/limits from the most recently applied config so a
// SIGHUP reload can change the upstream or credential without a restart.
// The settings and the service built from them are swapped as one value.
type liveLimits struct {
	current atomic.Pointer[upstreamBinding]
}

type upstreamBinding struct {
	upstream config.UpstreamConfig
	svc      *limits.Service
}

func newLiveLimits(cfg *config.Config) *liveLimits {
	l := &liveLimits{}
	l.apply(cfg)
	return l
}

// apply swaps in cfg's upstream settings. It reports whether they changed.
func (l *liveLimits) apply(cfg *config.Config) bool {
	next := &upstreamBinding{upstream: cfg.Upstream, svc: newLimitsService(cfg)}
	prev := l.current.Swap(next)
	return prev == nil || prev.upstream != next.upstream
}

func (l *liveLimits) Limits(ctx context.Context) (limits.Snapshot, error) {
	return l.current.Load().svc.Limits(ctx)
}

func (l *liveLimits) credentialPresent() bool {
	return l.current.Load().upstream.APIKey != ""
}

// checkUpstreamURL is the upstream_config health check.
func (l *liveLimits) checkUpstreamURL(ctx context.Context) error {
	return validateUpstreamURL(l.current.Load().upstream.URL)
}

func validateUpstreamURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errwrap.NewConfigInvalidError("upstream url is not an absolute http(s) URL")
	}
	return nil
}
