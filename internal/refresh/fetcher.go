package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/limitlens/limitlens/internal/limits"
)

// LimitsPath is the normalized endpoint served by the edge handler.
const LimitsPath = "/api/limits"

var errNoFetcher = errors.New("no fetcher configured")

// HTTPFetcher reads snapshots from a running limitlens server.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

type limitsBody struct {
	Limit     *float64 `json:"limit"`
	Remaining *float64 `json:"remaining"`
	Reset     *float64 `json:"reset"`
	Error     string   `json:"error"`
}

// Fetch issues an uncached GET against the limits endpoint. Non-2xx statuses
// and bodies without all three fields are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context) (limits.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := strings.TrimRight(strings.TrimSpace(f.BaseURL), "/") + LimitsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return limits.Snapshot{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return limits.Snapshot{}, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return limits.Snapshot{}, err
	}

	var body limitsBody
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && strings.TrimSpace(body.Error) != "" {
			return limits.Snapshot{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body.Error)
		}
		return limits.Snapshot{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if decodeErr != nil {
		return limits.Snapshot{}, fmt.Errorf("malformed response: %w", decodeErr)
	}
	if body.Limit == nil || body.Remaining == nil || body.Reset == nil {
		return limits.Snapshot{}, errors.New("malformed response: missing rate-limit fields")
	}

	return limits.Snapshot{
		Limit:     *body.Limit,
		Remaining: *body.Remaining,
		Reset:     *body.Reset,
	}, nil
}
