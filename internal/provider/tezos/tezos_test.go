package tezos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/logging"
	"github.com/blocksetgw/gateway/internal/metrics"
	"github.com/blocksetgw/gateway/internal/transport"
)

func withServers(t *testing.T, chainHandler, statsHandler http.HandlerFunc) *Adapter {
	t.Helper()
	chainSrv := httptest.NewServer(chainHandler)
	t.Cleanup(chainSrv.Close)
	statsSrv := httptest.NewServer(statsHandler)
	t.Cleanup(statsSrv.Close)

	originalGiganode, originalTzstats := giganodeURL, tzstatsURL
	giganodeURL, tzstatsURL = chainSrv.URL, statsSrv.URL
	t.Cleanup(func() { giganodeURL, tzstatsURL = originalGiganode, originalTzstats })

	client := transport.NewClient(nil, logging.NewDefault(), metrics.NoOpMetrics{})
	return New(client)
}

func TestGetBlockchainDataReadsHeadLevel(t *testing.T) {
	a := withServers(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"level": 1500000, "hash": "BLhead"}`))
	}, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("tzstats should not be called for blockchain data")
	})

	bc, err := a.GetBlockchainData(context.Background(), chainID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500000), bc.BlockHeight)
	assert.Equal(t, "BLhead", bc.VerifiedBlockHash)
}

// TestGroupedOperationsCombineIntoOneTransaction is concrete scenario 5:
// a transaction-plus-reveal pair sharing one hash collapses into a
// single Transaction whose fee sums both operations' fees.
func TestGroupedOperationsCombineIntoOneTransaction(t *testing.T) {
	a := withServers(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("giganode should not be called for address history")
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.True(t, strings.Contains(r.URL.Path, "/explorer/account/"))
		_, _ = w.Write([]byte(`[
			{"hash": "op1", "type": "reveal", "status": "applied", "sender": "tz1A", "receiver": "", "volume": 0, "fee": 0.0005, "burned": 0, "height": 1000, "time": "2020-01-01T00:00:00Z"},
			{"hash": "op1", "type": "transaction", "status": "applied", "sender": "tz1A", "receiver": "tz1B", "volume": 10.5, "fee": 0.0012, "burned": 0, "height": 1000, "time": "2020-01-01T00:00:00Z"}
		]`))
	})

	page, err := a.GetAddressTransactions(context.Background(), chainID, "tz1A", 0, 2000)
	require.NoError(t, err)
	require.Len(t, page.Contents, 1)
	tx := page.Contents[0]
	assert.Equal(t, chain.NativeAmount(chainID, "1700").Amount, tx.Fee.Amount)
}

func TestFailedTransactionZeroesVolumeButKeepsFee(t *testing.T) {
	a := withServers(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("giganode should not be called")
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"hash": "op2", "type": "transaction", "status": "failed", "sender": "tz1A", "receiver": "tz1B", "volume": 10.5, "fee": 0.001, "burned": 0, "height": 1000, "time": "2020-01-01T00:00:00Z"}
		]`))
	})

	page, err := a.GetAddressTransactions(context.Background(), chainID, "tz1A", 0, 2000)
	require.NoError(t, err)
	require.Len(t, page.Contents, 1)
	assert.Equal(t, chain.StatusFailed, page.Contents[0].Status)
	require.Len(t, page.Contents[0].Embedded.Transfers, 2)
	assert.Equal(t, "0", page.Contents[0].Embedded.Transfers[1].Amount.Amount)
}
