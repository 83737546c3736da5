// Package blockbook adapts the Trezor Blockbook v2 API to the canonical
// provider capability for Bitcoin Cash.
package blockbook

import (
	"context"
	"fmt"
	"time"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/feeprovider"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/provider/utxo"
	"github.com/blocksetgw/gateway/internal/registry"
	"github.com/blocksetgw/gateway/internal/transport"
)

// hostFor maps a gateway chain id to its Trezor-hosted Blockbook instance.
var hostFor = map[string]string{
	"bitcoincash-mainnet": "https://bch1.trezor.io",
}

// Adapter implements provider.Provider against Blockbook.
//
// The public Trezor hosts reject burst traffic, so the gate is a single
// global permit across the whole provider regardless of chain, per
// spec.md §5.
type Adapter struct {
	http *transport.Client
	gate *transport.Gate
	fees feeprovider.FeeProvider
}

var _ provider.Provider = (*Adapter)(nil)

// New builds a Blockbook adapter with its fixed single-permit gate.
func New(httpClient *transport.Client, fees feeprovider.FeeProvider) *Adapter {
	return &Adapter{http: httpClient, gate: transport.NewGate(1), fees: fees}
}

type indexResponse struct {
	Blockbook struct {
		BestHeight int64 `json:"bestHeight"`
	} `json:"blockbook"`
	Backend struct {
		BestBlockHash string `json:"bestBlockHash"`
	} `json:"backend"`
}

func (a *Adapter) GetBlockchainData(ctx context.Context, chainID string) (chain.Blockchain, error) {
	host, ok := hostFor[chainID]
	if !ok {
		return chain.Blockchain{}, chainerr.UnsupportedChain(chainID)
	}
	entry := registry.MustLookup(chainID)

	var idx indexResponse
	if err := a.http.GetJSON(ctx, a.gate, "blockbook", chainID, host+"/api/v2", &idx); err != nil {
		return chain.Blockchain{}, err
	}

	fees, err := a.fees.GetFees(ctx, chainID)
	if err != nil {
		return chain.Blockchain{}, err
	}

	return chain.Blockchain{
		Name:                    entry.Name,
		ID:                      entry.ID,
		IsMainnet:               entry.IsMainnet,
		Network:                 entry.Network,
		ConfirmationsUntilFinal: entry.ConfirmationsUntilFinal,
		NativeCurrencyID:        entry.NativeCurrencyID,
		FeeEstimates:            fees,
		FeeEstimatesTimestamp:   provider.NowISO(),
		BlockHeight:             idx.Blockbook.BestHeight,
		VerifiedHeight:          idx.Blockbook.BestHeight,
		VerifiedBlockHash:       idx.Backend.BestBlockHash,
	}, nil
}

type addressResponse struct {
	Txs         int64         `json:"txs"`
	ItemsOnPage int64         `json:"itemsOnPage"`
	Transactions []upstreamTx `json:"transactions"`
}

type upstreamTx struct {
	Txid          string         `json:"txid"`
	BlockHash     string         `json:"blockHash"`
	BlockHeight   int64          `json:"blockHeight"`
	Confirmations int64          `json:"confirmations"`
	BlockTime     int64          `json:"blockTime"`
	Size          int64          `json:"size"`
	Fees          string         `json:"fees"`
	Vin           []upstreamVin  `json:"vin"`
	// The upstream spells this field "outputs", not the "vout" used by
	// most other Blockbook clients. See DESIGN.md open question 1.
	Outputs []upstreamOutput `json:"outputs"`
}

type upstreamVin struct {
	Addresses []string `json:"addresses"`
	Value     string   `json:"value"`
}

type upstreamOutput struct {
	Addresses []string `json:"addresses"`
	Value     string   `json:"value"`
}

func firstAddress(addrs []string) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

func (a *Adapter) GetAddressTransactions(ctx context.Context, chainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	host, ok := hostFor[chainID]
	if !ok {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, chainerr.UnsupportedChain(chainID)
	}

	url := fmt.Sprintf("%s/api/v2/address/%s?details=txs&pageSize=50&from=%d&to=%d", host, address, startHeight, endHeight)
	var resp addressResponse
	if err := a.http.GetJSON(ctx, a.gate, "blockbook", chainID, url, &resp); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	txs := make([]chain.Transaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		txs = append(txs, toTransaction(chainID, t))
	}

	hasMore := resp.Txs > resp.ItemsOnPage
	out := chain.HeightPaginatedResponse[chain.Transaction]{Contents: txs, HasMore: hasMore}
	if hasMore {
		start := startHeight
		end := endHeight
		if len(resp.Transactions) > 0 {
			end = resp.Transactions[len(resp.Transactions)-1].BlockHeight
		}
		out.NextStartHeight = &start
		out.NextEndHeight = &end
	}
	return out, nil
}

func toTransaction(chainID string, t upstreamTx) chain.Transaction {
	inputs := make([]utxo.Leg, 0, len(t.Vin))
	for _, in := range t.Vin {
		inputs = append(inputs, utxo.Leg{Address: firstAddress(in.Addresses), Amount: in.Value})
	}
	outputs := make([]utxo.Leg, 0, len(t.Outputs))
	for _, out := range t.Outputs {
		outputs = append(outputs, utxo.Leg{Address: firstAddress(out.Addresses), Amount: out.Value})
	}
	transfers := utxo.AssembleTransfers(chainID, t.Txid, inputs, outputs)

	return chain.Transaction{
		TransactionID: chain.TransactionID(chainID, t.Txid),
		Identifier:    t.Txid,
		Hash:          t.Txid,
		BlockchainID:  chainID,
		Timestamp:     provider.FormatISO(unixToTime(t.BlockTime)),
		Embedded:      chain.Embedded{Transfers: transfers},
		Fee:           chain.NativeAmount(chainID, t.Fees),
		Confirmations: t.Confirmations,
		Size:          t.Size,
		BlockHash:     t.BlockHash,
		BlockHeight:   t.BlockHeight,
		Status:        chain.StatusConfirmed,
		Meta:          map[string]string{},
	}
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}
