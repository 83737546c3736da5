// Package client implements the Client: the single surface the HTTP
// front end depends on. It owns the static chain-id-to-provider routing
// table, the blockchain-tip memoization, and the per-call address
// fan-out for transaction queries.
package client

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/blocksetgw/gateway/internal/cache"
	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/registry"
)

// tipMemoTTL and tipMemoCapacity implement the ~10s, capacity-1000 tip
// memo specified in spec.md §5.
const tipMemoTTL = 10 * time.Second
const tipMemoCapacity = 1000

// addressFanOutLimit bounds the number of concurrent per-address
// upstream calls within a single GetTransactions call, per spec.md §5.
const addressFanOutLimit = 12

// Client is the only surface the HTTP front end sees.
type Client struct {
	routing map[string]provider.Provider
	tipMemo *cache.Memo
}

// New builds a Client from a fixed chain-id-to-provider routing table.
func New(routing map[string]provider.Provider) *Client {
	return &Client{
		routing: routing,
		tipMemo: cache.NewMemo(tipMemoTTL, tipMemoCapacity),
	}
}

func (c *Client) providerFor(chainID string) (provider.Provider, error) {
	p, ok := c.routing[chainID]
	if !ok {
		return nil, chainerr.UnsupportedChain(chainID)
	}
	return p, nil
}

// GetBlockchain returns the tip/fee snapshot for chainID, memoized under
// a ~10s TTL: concurrent calls within the window share both the cached
// value and any fetch already in flight.
func (c *Client) GetBlockchain(ctx context.Context, chainID string) (chain.Blockchain, error) {
	p, err := c.providerFor(chainID)
	if err != nil {
		return chain.Blockchain{}, err
	}

	key := "blockchain:" + chainID
	v, err := c.tipMemo.Get(ctx, key, func(ctx context.Context) (any, error) {
		return p.GetBlockchainData(ctx, chainID)
	})
	if err != nil {
		return chain.Blockchain{}, err
	}
	return v.(chain.Blockchain), nil
}

// GetBlockchains enumerates the chains on testnet's side of the
// mainnet/testnet partition and fetches each in parallel, sharing the
// same tip memo as GetBlockchain. A provider error for any single chain
// fails the whole call.
func (c *Client) GetBlockchains(ctx context.Context, testnet bool) ([]chain.Blockchain, error) {
	entries := registry.All(testnet)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	results := make([]chain.Blockchain, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			b, err := c.GetBlockchain(ctx, e.ID)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetTransactions fans out one upstream call per address, bounded by a
// 12-slot concurrency gate, and merges the per-address responses.
//
// maxPageSize and includeRaw are threaded through but unused by current
// adapters; reserved per spec.md §9.
func (c *Client) GetTransactions(ctx context.Context, addresses []string, chainID string, startHeight, endHeight int64, maxPageSize int, includeRaw bool) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	p, err := c.providerFor(chainID)
	if err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	sem := semaphore.NewWeighted(addressFanOutLimit)
	results := make([]chain.HeightPaginatedResponse[chain.Transaction], len(addresses))
	g, ctx := errgroup.WithContext(ctx)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return chainerr.Cancelled(err)
			}
			defer sem.Release(1)
			r, err := p.GetAddressTransactions(ctx, chainID, addr, startHeight, endHeight)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	return merge(results), nil
}

// merge concatenates per-address transaction lists preserving per-address
// order, per the policy in spec.md §4.1: has_more is true if any
// per-address response had more AND carried both next_* pointers;
// next_start_height is the minimum across such responses (the narrowest
// unfinished window determines the safe resume point); next_end_height
// is the maximum. A response that claims has_more without both pointers
// is treated as if it had none, matching the original's "next_* is not
// None" guard.
func merge(results []chain.HeightPaginatedResponse[chain.Transaction]) chain.HeightPaginatedResponse[chain.Transaction] {
	var merged chain.HeightPaginatedResponse[chain.Transaction]
	var minStart, maxEnd *int64

	for _, r := range results {
		merged.Contents = append(merged.Contents, r.Contents...)
		if !r.HasMore || r.NextStartHeight == nil || r.NextEndHeight == nil {
			continue
		}
		merged.HasMore = true
		if minStart == nil || *r.NextStartHeight < *minStart {
			minStart = r.NextStartHeight
		}
		if maxEnd == nil || *r.NextEndHeight > *maxEnd {
			maxEnd = r.NextEndHeight
		}
	}
	merged.NextStartHeight = minStart
	merged.NextEndHeight = maxEnd
	return merged
}
