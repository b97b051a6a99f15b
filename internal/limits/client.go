package limits

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// DefaultURL is the Globalping limits endpoint.
const DefaultURL = "https://api.globalping.io/v1/limits"

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode <= 299
}

// Client performs the single outbound call to the upstream limits endpoint.
// No client-level timeout is applied; the caller's context bounds the call.
type Client struct {
	URL        string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
}

// Fetch issues one authenticated GET and reads the whole body.
func (c *Client) Fetch(ctx context.Context) (*Response, error) {
	if c == nil || strings.TrimSpace(c.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.APIKey))
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) url() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	return DefaultURL
}
