package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/logging"
	"github.com/blocksetgw/gateway/internal/metrics"
)

type decoded struct {
	OK bool `json:"ok"`
}

func TestGetJSONRetriesOnRetryableStatusThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), logging.NewDefault(), metrics.NoOpMetrics{})
	var out decoded
	err := c.GetJSON(context.Background(), NewGate(0), "test", "chain", srv.URL, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 3, calls)
}

func TestGetJSONGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), logging.NewDefault(), metrics.NoOpMetrics{})
	var out decoded
	err := c.GetJSON(context.Background(), NewGate(0), "test", "chain", srv.URL, &out)
	require.Error(t, err)
	var ce *chainerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chainerr.KindUpstreamHTTP, ce.Kind)
	assert.Equal(t, 3, calls)
}

func TestGetJSONNeverRetriesNonRetryableStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), logging.NewDefault(), metrics.NoOpMetrics{})
	var out decoded
	err := c.GetJSON(context.Background(), NewGate(0), "test", "chain", srv.URL, &out)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetJSONDecodeErrorIsNonRetryable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), logging.NewDefault(), metrics.NoOpMetrics{})
	var out decoded
	err := c.GetJSON(context.Background(), NewGate(0), "test", "chain", srv.URL, &out)
	require.Error(t, err)
	var ce *chainerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chainerr.KindUpstreamDecode, ce.Kind)
	assert.Equal(t, 1, calls)
}

// flakyTransport fails the first n RoundTrips with a network error before
// delegating to the underlying transport.
type flakyTransport struct {
	http.RoundTripper
	failures int
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.failures > 0 {
		f.failures--
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection reset by peer")}
	}
	return f.RoundTripper.RoundTrip(req)
}

func TestGetJSONRetriesOnNetworkErrorThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	httpClient := &http.Client{Transport: &flakyTransport{RoundTripper: http.DefaultTransport, failures: 2}}
	c := NewClient(httpClient, logging.NewDefault(), metrics.NoOpMetrics{})
	var out decoded
	err := c.GetJSON(context.Background(), NewGate(0), "test", "chain", srv.URL, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 1, calls, "the server should only see the one RoundTrip that got past the flaky transport")
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := NewGate(1)
	require.NoError(t, g.acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		_ = g.acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the first holds the permit")
	case <-time.After(50 * time.Millisecond):
	}

	g.release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should proceed once the permit is released")
	}
}

func TestZeroWeightGateIsUnbounded(t *testing.T) {
	g := NewGate(0)
	require.NoError(t, g.acquire(context.Background()))
	require.NoError(t, g.acquire(context.Background()))
	g.release()
	g.release()
}
