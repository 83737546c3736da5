// Package feeprovider implements the fee-estimate capability: fee
// sources are orthogonal to the chain-data sources in internal/provider
// (Blockbook supplies no fees at all; BitGo serves every UTXO chain's
// fees regardless of which adapter serves that chain's transactions).
package feeprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/blocksetgw/gateway/internal/cache"
	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/transport"
)

// FeeProvider returns a chain's current fee schedule.
type FeeProvider interface {
	GetFees(ctx context.Context, chainID string) ([]chain.FeeEstimate, error)
}

const feeCacheTTL = 60 * time.Second

var bitgoBaseURL = "https://www.bitgo.com/api/v2"

var etherscanBaseURL = "https://api.etherscan.io/api"

// blockTimeMs is the approximate block interval used to convert a
// confirmation target in blocks to an estimated wait in milliseconds.
var blockTimeMs = map[string]int64{
	"bitcoin-mainnet":     600_000,
	"bitcoin-testnet":     600_000,
	"bitcoincash-mainnet": 600_000,
	"litecoin-mainnet":    150_000,
}

// bitgoCoin maps a chain id to BitGo's coin code.
var bitgoCoin = map[string]string{
	"bitcoin-mainnet":     "btc",
	"bitcoincash-mainnet": "bch",
	"litecoin-mainnet":    "ltc",
}

// staticFees covers chains spec.md marks as bypassing the dynamic fee
// cache entirely: Dogecoin mainnet and Bitcoin testnet.
func staticFees(chainID string) ([]chain.FeeEstimate, bool) {
	switch chainID {
	case "dogecoin-mainnet":
		return []chain.FeeEstimate{
			{Fee: chain.NativeAmount(chainID, "1000000"), Tier: "1m", EstimatedConfirmationInMs: 60_000},
		}, true
	case "bitcoin-testnet":
		return []chain.FeeEstimate{
			{Fee: chain.NativeAmount(chainID, "1"), Tier: "60m", EstimatedConfirmationInMs: 3_600_000},
		}, true
	default:
		return nil, false
	}
}

// bitGoFeeResponse models both fee shapes BitGo can return: tiered
// (feeByBlockTarget) or single (feePerKb/numBlocks).
type bitGoFeeResponse struct {
	FeeByBlockTarget map[string]int64 `json:"feeByBlockTarget"`
	FeePerKb         int64            `json:"feePerKb"`
	NumBlocks        int64            `json:"numBlocks"`
}

// BitGoFeeProvider serves fee estimates for UTXO chains via the BitGo
// fee-estimate endpoint, with a 60s TTL cache gating every non-static
// fetch.
type BitGoFeeProvider struct {
	http  *transport.Client
	gate  *transport.Gate
	cache *cache.TTLCache
}

// NewBitGoFeeProvider builds a BitGoFeeProvider. BitGo fee lookups are
// unbounded concurrency per spec.md §5.
func NewBitGoFeeProvider(httpClient *transport.Client) *BitGoFeeProvider {
	return &BitGoFeeProvider{
		http:  httpClient,
		gate:  transport.NewGate(0),
		cache: cache.NewTTLCache(feeCacheTTL, 2*time.Minute),
	}
}

func (p *BitGoFeeProvider) GetFees(ctx context.Context, chainID string) ([]chain.FeeEstimate, error) {
	if fees, ok := staticFees(chainID); ok {
		return fees, nil
	}
	coin, ok := bitgoCoin[chainID]
	if !ok {
		return nil, chainerr.UnsupportedChain(chainID)
	}
	if v, hit := p.cache.Get(chainID); hit {
		return v.([]chain.FeeEstimate), nil
	}

	url := fmt.Sprintf("%s/%s/tx/fee", bitgoBaseURL, coin)
	var resp bitGoFeeResponse
	if err := p.http.GetJSON(ctx, p.gate, "bitgo", chainID, url, &resp); err != nil {
		return nil, err
	}

	fees := fromBitGoResponse(chainID, resp)
	p.cache.Set(chainID, fees)
	return fees, nil
}

func fromBitGoResponse(chainID string, resp bitGoFeeResponse) []chain.FeeEstimate {
	bt := blockTimeMs[chainID]
	if len(resp.FeeByBlockTarget) > 0 {
		fees := make([]chain.FeeEstimate, 0, len(resp.FeeByBlockTarget))
		for blocksStr, satsPerKb := range resp.FeeByBlockTarget {
			var blocks int64
			_, _ = fmt.Sscanf(blocksStr, "%d", &blocks)
			fees = append(fees, feeEstimate(chainID, satsPerKb, blocks, bt))
		}
		return sortFeeEstimates(fees)
	}
	return []chain.FeeEstimate{feeEstimate(chainID, resp.FeePerKb, resp.NumBlocks, bt)}
}

func feeEstimate(chainID string, satsPerKb, numBlocks, blockTime int64) chain.FeeEstimate {
	satsPerByte := (satsPerKb + 1023) / 1024 // ceil(sats_per_kb / 1024)
	return chain.FeeEstimate{
		Fee:                       chain.NativeAmount(chainID, fmt.Sprintf("%d", satsPerByte)),
		Tier:                      fmt.Sprintf("%dm", (numBlocks*blockTime)/60_000),
		EstimatedConfirmationInMs: numBlocks * blockTime,
	}
}

func sortFeeEstimates(fees []chain.FeeEstimate) []chain.FeeEstimate {
	// Cheapest-slowest to most-expensive-fastest: descending confirmation time.
	for i := 1; i < len(fees); i++ {
		for j := i; j > 0 && fees[j].EstimatedConfirmationInMs > fees[j-1].EstimatedConfirmationInMs; j-- {
			fees[j], fees[j-1] = fees[j-1], fees[j]
		}
	}
	return fees
}

// gasOracleResponse models Etherscan's gasoracle module result.
type gasOracleResponse struct {
	Result struct {
		SafeGasPrice    string `json:"SafeGasPrice"`
		ProposeGasPrice string `json:"ProposeGasPrice"`
		FastGasPrice    string `json:"FastGasPrice"`
	} `json:"result"`
}

type gasEstimateResponse struct {
	Result string `json:"result"` // seconds, as a decimal string
}

// EtherscanFeeProvider derives Ethereum fee estimates from Etherscan's
// gas oracle, pairing each tier with a concurrently-fetched confirmation
// time estimate.
type EtherscanFeeProvider struct {
	http  *transport.Client
	gate  *transport.Gate
	cache *cache.TTLCache
	token string
}

// NewEtherscanFeeProvider builds an EtherscanFeeProvider sharing gate
// with the rest of the Etherscan adapter's calls.
func NewEtherscanFeeProvider(httpClient *transport.Client, gate *transport.Gate, token string) *EtherscanFeeProvider {
	return &EtherscanFeeProvider{
		http:  httpClient,
		gate:  gate,
		cache: cache.NewTTLCache(feeCacheTTL, 2*time.Minute),
		token: token,
	}
}

const etherscanChainID = "ethereum-mainnet"

func (p *EtherscanFeeProvider) GetFees(ctx context.Context, chainID string) ([]chain.FeeEstimate, error) {
	if chainID != etherscanChainID {
		return nil, chainerr.UnsupportedChain(chainID)
	}
	if v, hit := p.cache.Get(chainID); hit {
		return v.([]chain.FeeEstimate), nil
	}

	url := fmt.Sprintf("%s?module=gastracker&action=gasoracle&apikey=%s", etherscanBaseURL, p.token)
	var oracle gasOracleResponse
	if err := p.http.GetJSON(ctx, p.gate, "etherscan", chainID, url, &oracle); err != nil {
		return nil, err
	}

	tiers := []struct {
		label    string
		gasPrice string
	}{
		{"safe", oracle.Result.SafeGasPrice},
		{"propose", oracle.Result.ProposeGasPrice},
		{"fast", oracle.Result.FastGasPrice},
	}

	type durationResult struct {
		index int
		ms    int64
		err   error
	}
	results := make(chan durationResult, len(tiers))
	for i, t := range tiers {
		go func(i int, gasPrice string) {
			ms, err := p.estimateConfirmationMs(ctx, gasPrice)
			results <- durationResult{index: i, ms: ms, err: err}
		}(i, t.gasPrice)
	}
	durations := make([]int64, len(tiers))
	for range tiers {
		r := <-results
		if r.err != nil {
			return nil, r.err
		}
		durations[r.index] = r.ms
	}

	fees := make([]chain.FeeEstimate, len(tiers))
	for i, t := range tiers {
		weiPerGas := gweiToWei(t.gasPrice)
		fees[i] = chain.FeeEstimate{
			Fee:                       chain.NativeAmount(chainID, weiPerGas),
			Tier:                      t.label,
			EstimatedConfirmationInMs: durations[i],
		}
	}

	p.cache.Set(chainID, fees)
	return fees, nil
}

func (p *EtherscanFeeProvider) estimateConfirmationMs(ctx context.Context, gasPriceGwei string) (int64, error) {
	weiPerGas := gweiToWei(gasPriceGwei)
	url := fmt.Sprintf("%s?module=gastracker&action=gasestimate&gasprice=%s&apikey=%s", etherscanBaseURL, weiPerGas, p.token)
	var resp gasEstimateResponse
	if err := p.http.GetJSON(ctx, p.gate, "etherscan", etherscanChainID, url, &resp); err != nil {
		return 0, err
	}
	var seconds int64
	if _, err := fmt.Sscanf(resp.Result, "%d", &seconds); err != nil {
		return 0, chainerr.UpstreamDecode("etherscan", err)
	}
	return seconds * 1000, nil
}

// gweiToWei converts a decimal gwei string to a decimal wei string (×1e9).
func gweiToWei(gwei string) string {
	var g int64
	if _, err := fmt.Sscanf(gwei, "%d", &g); err != nil {
		return "0"
	}
	return fmt.Sprintf("%d", g*1_000_000_000)
}

