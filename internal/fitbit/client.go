// ABOUTME: Authenticated HTTP client for the Fitbit Web API.
// ABOUTME: Retries once on 401; a 429 or other non-200 skips the request rather than failing the sync.
package fitbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/harperreed/pulse/internal/coerce"
	"github.com/harperreed/pulse/internal/config"
	"github.com/harperreed/pulse/internal/storage"
)

const defaultAPIBase = "https://api.fitbit.com"

// ErrNotAuthenticated means no OAuth token is stored yet.
var ErrNotAuthenticated = errors.New("not authenticated with fitbit")

// Client talks to the Fitbit Web API with a stored, self-refreshing token.
type Client struct {
	store *storage.DB
	http  *http.Client
	base  string
	log   *log.Logger
}

// NewClient builds a client around the token in the store. Fails with
// ErrNotAuthenticated when no authorization has been performed.
func NewClient(ctx context.Context, cfg *config.Config, store *storage.DB, logger *log.Logger) (*Client, error) {
	stored, err := store.GetToken()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	tok := toOAuth2(stored)
	src := &persistingTokenSource{
		src:   OAuthConfig(cfg).TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}

	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		store: store,
		http:  oauth2.NewClient(ctx, src),
		base:  defaultAPIBase,
		log:   logger,
	}, nil
}

// newTestClient wires an arbitrary transport and base URL, for tests.
func newTestClient(store *storage.DB, httpClient *http.Client, base string, logger *log.Logger) *Client {
	return &Client{store: store, http: httpClient, base: base, log: logger}
}

// apiGet performs one authenticated GET. A nil, nil return means the
// endpoint had nothing usable (rate limit or error status); the caller
// skips that day and the sync continues.
func (c *Client) apiGet(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		// Token may have been revoked or rotated externally; one retry
		// after the transport refreshes.
		resp, err = c.do(ctx, path)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn("rate limited", "path", path, "retry_after", resp.Header.Get("Retry-After"))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		c.log.Warn("unexpected status", "path", path, "status", resp.StatusCode, "body", string(body))
		return nil, nil
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fitbit api get %s: %w", path, err)
	}
	return resp, nil
}

// parseAPITime parses the ISO-ish timestamps the Web API returns,
// dropping a trailing Z if present.
func parseAPITime(raw string) (time.Time, error) {
	return coerce.Timestamp(strings.TrimSuffix(raw, "Z"))
}

// dayClock combines a sync day with an HH:MM:SS clock string from an
// intraday dataset.
func dayClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
}
