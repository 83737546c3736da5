// Package tezos adapts the Giganode RPC (for the chain tip) and
// TzStats explorer (for address history) to the canonical provider
// capability for the Tezos mainnet.
package tezos

import (
	"context"
	"fmt"
	"math"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/registry"
	"github.com/blocksetgw/gateway/internal/transport"
)

const chainID = "tezos-mainnet"

var giganodeURL = "https://mainnet.tezos.giganode.io"
var tzstatsURL = "https://api.tzstats.com"

// mutezPerTez converts tez to mutez (×1,000,000).
const mutezPerTez = 1_000_000.0

// staticFee is a placeholder single estimate pending a real Tezos fee
// oracle; Tezos fee estimation is notoriously operation-shape-dependent
// and out of scope for this gateway (no fee capability is specified for
// Tezos in spec.md §4.7).
var staticFee = chain.FeeEstimate{
	Fee:                       chain.NativeAmount(chainID, "1420"),
	Tier:                      "1m",
	EstimatedConfirmationInMs: 60_000,
}

// Adapter implements provider.Provider against Giganode + TzStats. Low
// traffic; no concurrency gate per spec.md §5.
type Adapter struct {
	http *transport.Client
	gate *transport.Gate
}

var _ provider.Provider = (*Adapter)(nil)

// New builds a Tezos adapter.
func New(httpClient *transport.Client) *Adapter {
	return &Adapter{http: httpClient, gate: transport.NewGate(0)}
}

type headerResponse struct {
	Level int64  `json:"level"`
	Hash  string `json:"hash"`
}

func (a *Adapter) GetBlockchainData(ctx context.Context, reqChainID string) (chain.Blockchain, error) {
	if reqChainID != chainID {
		return chain.Blockchain{}, chainerr.UnsupportedChain(reqChainID)
	}
	entry := registry.MustLookup(chainID)

	var header headerResponse
	url := giganodeURL + "/chains/main/blocks/head/header"
	if err := a.http.GetJSON(ctx, a.gate, "tezos", chainID, url, &header); err != nil {
		return chain.Blockchain{}, err
	}

	return chain.Blockchain{
		Name:                    entry.Name,
		ID:                      entry.ID,
		IsMainnet:               entry.IsMainnet,
		Network:                 entry.Network,
		ConfirmationsUntilFinal: entry.ConfirmationsUntilFinal,
		NativeCurrencyID:        entry.NativeCurrencyID,
		FeeEstimates:            []chain.FeeEstimate{staticFee},
		FeeEstimatesTimestamp:   provider.NowISO(),
		BlockHeight:             header.Level,
		VerifiedHeight:          header.Level,
		VerifiedBlockHash:       header.Hash,
	}, nil
}

type opRecord struct {
	Hash      string  `json:"hash"`
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Volume    float64 `json:"volume"`
	Fee       float64 `json:"fee"`
	Burned    float64 `json:"burned"`
	Height    int64   `json:"height"`
	Time      string  `json:"time"`
}

func (a *Adapter) GetAddressTransactions(ctx context.Context, reqChainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	if reqChainID != chainID {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, chainerr.UnsupportedChain(reqChainID)
	}

	url := fmt.Sprintf("%s/explorer/account/%s/op?order=asc&limit=10000&types=transaction,delegation,reveal,bake,airdrop,", tzstatsURL, address)
	var ops []opRecord
	if err := a.http.GetJSON(ctx, a.gate, "tezos", chainID, url, &ops); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	groups := groupByHash(ops)
	txs := make([]chain.Transaction, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		if g[0].Height < startHeight || (endHeight > 0 && g[0].Height > endHeight) {
			continue
		}
		txs = append(txs, toTransaction(g))
	}

	return chain.HeightPaginatedResponse[chain.Transaction]{Contents: txs, HasMore: false}, nil
}

// groupByHash groups records sharing a hash, preserving first-seen order.
func groupByHash(ops []opRecord) [][]opRecord {
	order := make([]string, 0)
	byHash := make(map[string][]opRecord)
	for _, op := range ops {
		if _, ok := byHash[op.Hash]; !ok {
			order = append(order, op.Hash)
		}
		byHash[op.Hash] = append(byHash[op.Hash], op)
	}
	groups := make([][]opRecord, 0, len(order))
	for _, h := range order {
		groups = append(groups, byHash[h])
	}
	return groups
}

func toMutez(tez float64) int64 {
	return int64(math.Round(tez * mutezPerTez))
}

func toTransaction(ops []opRecord) chain.Transaction {
	first := ops[0]

	var totalFeeTez, totalBurned float64
	for _, op := range ops {
		totalFeeTez += op.Fee
		totalBurned += op.Burned
	}
	feeMutez := toMutez(totalFeeTez)

	txID := chain.TransactionID(chainID, first.Hash)
	transfers := []chain.Transfer{
		{
			TransferID:    chain.TransferID(chainID, first.Hash, 0),
			BlockchainID:  chainID,
			FromAddress:   first.Sender,
			ToAddress:     chain.FeeSink,
			Index:         0,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, fmt.Sprintf("%d", feeMutez)),
			Meta:          map[string]string{},
		},
	}
	index := 1

	status := chain.StatusFailed
	if first.Status == "applied" {
		status = chain.StatusConfirmed
	}

	if first.Type == "transaction" {
		volume := toMutez(first.Volume)
		if first.Status == "failed" || first.Status == "backtracked" {
			volume = 0
		}
		transfers = append(transfers, chain.Transfer{
			TransferID:    chain.TransferID(chainID, first.Hash, index),
			BlockchainID:  chainID,
			FromAddress:   first.Sender,
			ToAddress:     first.Receiver,
			Index:         index,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, fmt.Sprintf("%d", volume)),
			Meta:          map[string]string{},
		})
		index++
	}

	if totalBurned > 0 {
		transfers = append(transfers, chain.Transfer{
			TransferID:    chain.TransferID(chainID, first.Hash, index),
			BlockchainID:  chainID,
			FromAddress:   first.Sender,
			ToAddress:     chain.FeeSink,
			Index:         index,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, fmt.Sprintf("%d", toMutez(totalBurned))),
			Meta:          map[string]string{},
		})
		index++
	}

	return chain.Transaction{
		TransactionID: txID,
		Identifier:    first.Hash,
		Hash:          first.Hash,
		BlockchainID:  chainID,
		Timestamp:     first.Time,
		Embedded:      chain.Embedded{Transfers: transfers},
		Fee:           chain.NativeAmount(chainID, fmt.Sprintf("%d", feeMutez)),
		BlockHeight:   first.Height,
		Status:        status,
		Meta:          map[string]string{},
	}
}
