// Package transport is the shared outbound HTTP session every provider
// adapter issues upstream calls through: JSON decoding, a per-provider
// concurrency gate, structured logging, and bounded exponential retry.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/metrics"
)

// Gate bounds how many outbound calls a single provider may have in
// flight at once. A nil *Gate, or one built with weight <= 0, is
// unbounded, matching the
// Tezos/BitGo providers' "unbounded (low-traffic)" gate in spec.md §5.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate builds a Gate with the given permit count. weight <= 0 means
// unbounded.
func NewGate(weight int) *Gate {
	if weight <= 0 {
		return &Gate{}
	}
	return &Gate{sem: semaphore.NewWeighted(int64(weight))}
}

func (g *Gate) acquire(ctx context.Context) error {
	if g == nil || g.sem == nil {
		return nil
	}
	return g.sem.Acquire(ctx, 1)
}

func (g *Gate) release() {
	if g == nil || g.sem == nil {
		return
	}
	g.sem.Release(1)
}

// Client performs gated, retried, metered GET requests against upstream
// explorer APIs and decodes their JSON bodies.
type Client struct {
	http    *http.Client
	log     zerolog.Logger
	metrics metrics.Metrics
}

// NewClient builds a Client. httpClient may be nil to use a sane default
// with a 30s timeout.
func NewClient(httpClient *http.Client, log zerolog.Logger, m metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if m == nil {
		m = metrics.NoOpMetrics{}
	}
	return &Client{http: httpClient, log: log, metrics: m}
}

// GetJSON issues a gated, retried GET to url and decodes the JSON body
// into out. provider and chainID are used only for logging and metrics
// labels.
func (c *Client) GetJSON(ctx context.Context, gate *Gate, provider, chainID, url string, out any) error {
	start := time.Now()
	if err := gate.acquire(ctx); err != nil {
		return chainerr.Cancelled(err)
	}
	c.metrics.GateWait(provider, time.Since(start))
	defer gate.release()

	return backoff.Retry(func() error {
		err := c.doGetJSON(ctx, provider, chainID, url, out)
		if err == nil {
			return nil
		}
		if chainerr.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, retryPolicy(ctx))
}

func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.Multiplier = 2
	b.InitialInterval = 200 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx) // 3 total attempts
}

func (c *Client) doGetJSON(ctx context.Context, provider, chainID, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return chainerr.InvalidArgument(fmt.Sprintf("%s: malformed request: %v", provider, err))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.UpstreamCall(provider, chainID, 0, time.Since(start))
		if ctx.Err() != nil {
			return chainerr.Cancelled(err)
		}
		c.log.Warn().Str("provider", provider).Str("chain_id", chainID).Err(err).Msg("upstream call failed")
		return chainerr.UpstreamHTTP(provider, 0)
	}
	defer resp.Body.Close()

	c.metrics.UpstreamCall(provider, chainID, resp.StatusCode, time.Since(start))
	c.log.Debug().
		Str("provider", provider).
		Str("chain_id", chainID).
		Int("upstream_status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return chainerr.UpstreamHTTP(provider, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chainerr.UpstreamDecode(provider, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return chainerr.UpstreamDecode(provider, err)
	}
	return nil
}
