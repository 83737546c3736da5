package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/client"
	"github.com/blocksetgw/gateway/internal/provider"
)

// fakeProvider lets tests script per-address responses and per-chain
// tip snapshots without any network I/O.
type fakeProvider struct {
	blockchain    chain.Blockchain
	blockchainErr error
	byAddress     map[string]chain.HeightPaginatedResponse[chain.Transaction]
	errByAddress  map[string]error
}

var _ provider.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) GetBlockchainData(ctx context.Context, chainID string) (chain.Blockchain, error) {
	return f.blockchain, f.blockchainErr
}

func (f *fakeProvider) GetAddressTransactions(ctx context.Context, chainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	if err, ok := f.errByAddress[address]; ok {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}
	return f.byAddress[address], nil
}

func int64p(n int64) *int64 { return &n }

func TestUnsupportedChainReturnsUnsupportedChainError(t *testing.T) {
	c := client.New(nil)
	_, err := c.GetBlockchain(context.Background(), "not-a-chain")
	require.Error(t, err)
	var ce *chainerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chainerr.KindUnsupportedChain, ce.Kind)
}

// TestGetTransactionsMergesPerAddressResponses covers the merge policy
// of spec.md §4.1: contents concatenate, has_more is true if any
// per-address response had more, next_start_height is the minimum and
// next_end_height the maximum across responses with has_more.
func TestGetTransactionsMergesPerAddressResponses(t *testing.T) {
	fp := &fakeProvider{
		byAddress: map[string]chain.HeightPaginatedResponse[chain.Transaction]{
			"A": {
				Contents:        []chain.Transaction{{TransactionID: "bitcoin-mainnet:a1"}},
				HasMore:         true,
				NextStartHeight: int64p(100),
				NextEndHeight:   int64p(699995),
			},
			"B": {
				Contents:        []chain.Transaction{{TransactionID: "bitcoin-mainnet:b1"}, {TransactionID: "bitcoin-mainnet:b2"}},
				HasMore:         true,
				NextStartHeight: int64p(50),
				NextEndHeight:   int64p(699990),
			},
		},
	}
	c := client.New(map[string]provider.Provider{"bitcoin-mainnet": fp})

	page, err := c.GetTransactions(context.Background(), []string{"A", "B"}, "bitcoin-mainnet", 0, 700000, 0, false)
	require.NoError(t, err)

	assert.Len(t, page.Contents, 3)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextStartHeight)
	assert.Equal(t, int64(50), *page.NextStartHeight)
	require.NotNil(t, page.NextEndHeight)
	assert.Equal(t, int64(699995), *page.NextEndHeight)
}

// TestGetTransactionsIgnoresHasMoreWithoutBothCursors guards the
// invariant that has_more is never emitted without both next_* cursors:
// a response claiming has_more but missing one pointer is treated as
// having no more.
func TestGetTransactionsIgnoresHasMoreWithoutBothCursors(t *testing.T) {
	fp := &fakeProvider{
		byAddress: map[string]chain.HeightPaginatedResponse[chain.Transaction]{
			"A": {
				Contents:        []chain.Transaction{{TransactionID: "bitcoin-mainnet:a1"}},
				HasMore:         true,
				NextStartHeight: int64p(100),
				NextEndHeight:   nil,
			},
		},
	}
	c := client.New(map[string]provider.Provider{"bitcoin-mainnet": fp})

	page, err := c.GetTransactions(context.Background(), []string{"A"}, "bitcoin-mainnet", 0, 700000, 0, false)
	require.NoError(t, err)

	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextStartHeight)
	assert.Nil(t, page.NextEndHeight)
}

// TestGetTransactionsFailsWholeCallOnAnyAddressError is concrete
// scenario 6 from spec.md §8: one address's upstream failure fails the
// whole call with no partial result.
func TestGetTransactionsFailsWholeCallOnAnyAddressError(t *testing.T) {
	fp := &fakeProvider{
		byAddress: map[string]chain.HeightPaginatedResponse[chain.Transaction]{
			"A": {Contents: []chain.Transaction{{TransactionID: "bitcoin-mainnet:a1"}}},
			"C": {Contents: []chain.Transaction{{TransactionID: "bitcoin-mainnet:c1"}}},
		},
		errByAddress: map[string]error{
			"B": chainerr.UpstreamHTTP("blockcypher", 503),
		},
	}
	c := client.New(map[string]provider.Provider{"bitcoin-mainnet": fp})

	page, err := c.GetTransactions(context.Background(), []string{"A", "B", "C"}, "bitcoin-mainnet", 0, 700000, 0, false)
	require.Error(t, err)
	assert.Empty(t, page.Contents)

	var ce *chainerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chainerr.KindUpstreamHTTP, ce.Kind)
	assert.Equal(t, 503, ce.Status)
}

func TestGetBlockchainsUnknownChainFailsWholeCall(t *testing.T) {
	c := client.New(map[string]provider.Provider{})
	_, err := c.GetBlockchains(context.Background(), true)
	require.Error(t, err)
}
