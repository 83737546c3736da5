// Package metrics defines the Metrics capability every transport and
// provider call reports through, plus a no-op implementation for tests
// and for callers that don't want a Prometheus registry wired up.
package metrics

import "time"

// Metrics is the narrow surface the rest of the gateway depends on.
// Concrete implementations decide where the numbers go.
type Metrics interface {
	// UpstreamCall records one outbound call to provider for chainID,
	// its resulting HTTP status (0 for a network-level failure), and
	// how long it took.
	UpstreamCall(provider, chainID string, status int, duration time.Duration)
	// GateWait records how long a caller waited to acquire a provider's
	// concurrency gate.
	GateWait(provider string, duration time.Duration)
	// CacheResult records a hit or miss against a named cache (tip, fee,
	// blockchair_tx).
	CacheResult(cache string, hit bool)
}

// NoOpMetrics discards every observation. Used where no metrics backend
// is configured (tests, local runs).
type NoOpMetrics struct{}

var _ Metrics = (*NoOpMetrics)(nil)

func (NoOpMetrics) UpstreamCall(string, string, int, time.Duration) {}
func (NoOpMetrics) GateWait(string, time.Duration)                  {}
func (NoOpMetrics) CacheResult(string, bool)                        {}
