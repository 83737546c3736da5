package blockbook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/logging"
	"github.com/blocksetgw/gateway/internal/metrics"
	"github.com/blocksetgw/gateway/internal/transport"
)

type fakeFees struct{}

func (fakeFees) GetFees(ctx context.Context, chainID string) ([]chain.FeeEstimate, error) {
	return []chain.FeeEstimate{{Fee: chain.NativeAmount(chainID, "500"), Tier: "6h"}}, nil
}

func withServer(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	original := hostFor["bitcoincash-mainnet"]
	hostFor["bitcoincash-mainnet"] = srv.URL
	t.Cleanup(func() { hostFor["bitcoincash-mainnet"] = original })

	client := transport.NewClient(srv.Client(), logging.NewDefault(), metrics.NoOpMetrics{})
	return New(client, fakeFees{})
}

func TestGetBlockchainDataReadsBestHeight(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"blockbook": {"bestHeight": 800000}, "backend": {"bestBlockHash": "abc"}}`))
	})

	bc, err := a.GetBlockchainData(context.Background(), "bitcoincash-mainnet")
	require.NoError(t, err)
	assert.Equal(t, int64(800000), bc.BlockHeight)
	assert.Equal(t, "abc", bc.VerifiedBlockHash)
}

// TestOutputsFieldDecodesUnderUpstreamSpelling covers DESIGN.md open
// question 1: this upstream spells the output array "outputs", not the
// "vout" most other Blockbook clients expect.
func TestOutputsFieldDecodesUnderUpstreamSpelling(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"txs": 1,
			"itemsOnPage": 50,
			"transactions": [{
				"txid": "h1",
				"blockHeight": 700000,
				"blockTime": 1600000000,
				"fees": "1000",
				"vin": [{"addresses": ["addrA"], "value": "50000"}],
				"outputs": [{"addresses": ["addrB"], "value": "49000"}]
			}]
		}`))
	})

	page, err := a.GetAddressTransactions(context.Background(), "bitcoincash-mainnet", "addrA", 0, 800000)
	require.NoError(t, err)
	require.Len(t, page.Contents, 1)
	require.Len(t, page.Contents[0].Embedded.Transfers, 2)
	assert.Equal(t, "addrB", page.Contents[0].Embedded.Transfers[1].ToAddress)
	assert.False(t, page.HasMore)
}

func TestHasMoreWhenTxsExceedPageSize(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"txs": 120,
			"itemsOnPage": 50,
			"transactions": [{"txid": "h1", "blockHeight": 699000, "fees": "0", "vin": [], "outputs": []}]
		}`))
	})

	page, err := a.GetAddressTransactions(context.Background(), "bitcoincash-mainnet", "addrA", 0, 800000)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextEndHeight)
	assert.Equal(t, int64(699000), *page.NextEndHeight)
}
