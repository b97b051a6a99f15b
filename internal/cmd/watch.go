package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/limitlens/limitlens/internal/config"
	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/output"
	"github.com/limitlens/limitlens/internal/refresh"
)

var errWatchQuit = errors.New("watch: quit requested")

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the rate limits on screen, refreshing on an interval",
	Long: `Poll /api/limits of a running limitlens server and redraw the limits table
on every tick. Failed refreshes keep the last values and show the error.

While running, type an interval and press Enter to switch immediately:
  5s, 15s, 30s, 1m, 5m   or a number of milliseconds (e.g. 15000)
Type q to quit.

With --direct the Globalping API is called directly using the local
credential instead of going through a server.`,
	Example: `  limitlens watch
  limitlens watch --server http://limits.internal:8080 --interval 15s
  limitlens watch --direct --interval 1m`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("server", "", "Base URL of a limitlens server (default from server.host/server.port)")
	watchCmd.Flags().Bool("direct", false, "Call the Globalping API directly instead of a server")
	watchCmd.Flags().String("interval", "", "Refresh interval, e.g. 15s or 15000 (default refresh.interval)")
	watchCmd.Flags().Bool("no-clear", false, "Append each refresh instead of redrawing in place")
	watchCmd.Flags().Bool("discard-stale", false, "Drop results of refreshes that finish after a newer one")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd.Context())

	interval := cfg.Refresh.Interval
	if raw, _ := cmd.Flags().GetString("interval"); strings.TrimSpace(raw) != "" {
		parsed, err := refresh.ParseInterval(raw)
		if err != nil {
			return err
		}
		interval = parsed
	}

	fetcher, source, err := watchFetcher(cmd, cfg)
	if err != nil {
		return err
	}

	noClear, _ := cmd.Flags().GetBool("no-clear")
	discardStale, _ := cmd.Flags().GetBool("discard-stale")

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := &output.WatchRenderer{Writer: cmd.OutOrStdout(), Clear: !noClear}
	ctl := refresh.New(fetcher, renderer, refresh.Options{
		Context:      ctx,
		DiscardStale: discardStale || cfg.Refresh.DiscardStale,
	})
	renderer.Interval = func() time.Duration { return ctl.State().Interval }

	if observability.CLILogger != nil {
		observability.CLILogger.Debug("Starting watch",
			zap.String("source", source),
			zap.Duration("interval", refresh.Sanitize(interval)))
	}

	return watchLoop(ctx, ctl, interval, cmd.InOrStdin(), cmd.ErrOrStderr())
}

// watchFetcher picks the snapshot source for watch.
func watchFetcher(cmd *cobra.Command, cfg *config.Config) (refresh.Fetcher, string, error) {
	direct, _ := cmd.Flags().GetBool("direct")
	if direct {
		svc := newLimitsService(cfg)
		return refresh.FetcherFunc(func(ctx context.Context) (limits.Snapshot, error) {
			return fetchSnapshot(ctx, svc)
		}), cfg.Upstream.URL, nil
	}

	base, _ := cmd.Flags().GetString("server")
	base = strings.TrimSpace(base)
	if base == "" {
		host := cfg.Server.Host
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "localhost"
		}
		base = "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
	}
	return &refresh.HTTPFetcher{BaseURL: base}, base, nil
}

// watchLoop loads once, starts the timer, then applies interval changes read
// from in until ctx ends or "q" is entered. The timer is stopped on return.
func watchLoop(ctx context.Context, ctl *refresh.Controller, interval time.Duration, in io.Reader, errOut io.Writer) error {
	_ = ctl.Refresh(ctx)
	ctl.Start(interval)
	defer ctl.Stop()

	g, gctx := errgroup.WithContext(ctx)

	lines := make(chan string)
	// The scanner may stay blocked on a terminal read after return; it is
	// not part of the group so Wait never depends on it.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-gctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		<-gctx.Done()
		ctl.Stop()
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// Input closed; keep refreshing until cancelled.
					<-gctx.Done()
					return nil
				}
				if err := applyWatchCommand(ctl, line, errOut); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errWatchQuit) {
		return err
	}
	return nil
}

func applyWatchCommand(ctl *refresh.Controller, line string, errOut io.Writer) error {
	value := strings.TrimSpace(line)
	switch strings.ToLower(value) {
	case "":
		return nil
	case "q", "quit", "exit":
		return errWatchQuit
	}

	d, err := refresh.ParseInterval(value)
	if err != nil {
		_, _ = fmt.Fprintln(errOut, err)
		return nil
	}
	ctl.OnIntervalChanged(d)
	return nil
}
