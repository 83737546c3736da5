// Package provider defines the capability every upstream explorer
// adapter implements: fetching a chain's tip/fee snapshot and an
// address's transaction history. The routing table in internal/client
// selects one of these per chain id; there is no shared base
// implementation, only the interface.
package provider

import (
	"context"

	"github.com/blocksetgw/gateway/internal/chain"
)

// Provider is the capability every upstream explorer adapter satisfies.
//
// Contract:
//   - GetBlockchainData returns the chain's current tip and fee schedule.
//     The tip-sourcing algorithm is adapter-specific; fee estimates come
//     from the adapter's fee provider and may be served from its cache.
//   - GetAddressTransactions returns address's confirmed transaction
//     history within [startHeight, endHeight]. Adapters that cannot
//     natively paginate return HasMore=false and rely on the upstream's
//     per-call cap.
//
// Errors: *chainerr.Error with Kind one of KindUnsupportedChain (chainID
// is not served by this adapter), KindUpstreamHTTP, KindUpstreamDecode, KindUpstreamRateLimit (mapped to KindUpstreamHTTP
// with Status 429), or KindCancelled.
type Provider interface {
	GetBlockchainData(ctx context.Context, chainID string) (chain.Blockchain, error)
	GetAddressTransactions(ctx context.Context, chainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error)
}
