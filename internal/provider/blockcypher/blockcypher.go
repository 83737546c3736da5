// Package blockcypher adapts the BlockCypher v1 API to the canonical
// provider capability for Bitcoin mainnet, Litecoin, and Dogecoin.
package blockcypher

import (
	"context"
	"fmt"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/feeprovider"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/provider/utxo"
	"github.com/blocksetgw/gateway/internal/registry"
	"github.com/blocksetgw/gateway/internal/transport"
)

// chainSegment maps a gateway chain id to BlockCypher's "{coin}/{network}"
// URL segment.
var chainSegment = map[string]string{
	"bitcoin-mainnet":  "btc/main",
	"bitcoin-testnet":  "btc/test3",
	"litecoin-mainnet": "ltc/main",
	"dogecoin-mainnet": "doge/main",
}

var baseURL = "https://api.blockcypher.com/v1"

// Adapter implements provider.Provider against BlockCypher.
type Adapter struct {
	http  *transport.Client
	gate  *transport.Gate
	fees  feeprovider.FeeProvider
	token string
}

var _ provider.Provider = (*Adapter)(nil)

// New builds a BlockCypher adapter. gateSize is the per-process
// concurrency cap (default 5, overridable per spec.md §5/§6).
func New(httpClient *transport.Client, fees feeprovider.FeeProvider, token string, gateSize int) *Adapter {
	return &Adapter{
		http:  httpClient,
		gate:  transport.NewGate(gateSize),
		fees:  fees,
		token: token,
	}
}

type tipResponse struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash"`
}

func (a *Adapter) GetBlockchainData(ctx context.Context, chainID string) (chain.Blockchain, error) {
	segment, ok := chainSegment[chainID]
	if !ok {
		return chain.Blockchain{}, chainerr.UnsupportedChain(chainID)
	}
	entry := registry.MustLookup(chainID)

	url := fmt.Sprintf("%s/%s?token=%s", baseURL, segment, a.token)
	var tip tipResponse
	if err := a.http.GetJSON(ctx, a.gate, "blockcypher", chainID, url, &tip); err != nil {
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
		BlockHeight:             tip.Height,
		VerifiedHeight:          tip.Height,
		VerifiedBlockHash:       tip.Hash,
	}, nil
}

type addressFullResponse struct {
	Txs     []upstreamTx `json:"txs"`
	HasMore bool         `json:"hasMore"`
}

type upstreamTx struct {
	Hash          string        `json:"hash"`
	BlockHash     string        `json:"block_hash"`
	BlockHeight   int64         `json:"block_height"`
	Confirmations int64         `json:"confirmations"`
	Received      string        `json:"received"`
	Size          int64         `json:"size"`
	Fees          int64         `json:"fees"`
	Inputs        []upstreamVin `json:"inputs"`
	Outputs       []upstreamOut `json:"outputs"`
}

type upstreamVin struct {
	Addresses   []string `json:"addresses"`
	OutputValue int64    `json:"output_value"`
}

type upstreamOut struct {
	Addresses []string `json:"addresses"`
	Value     int64    `json:"value"`
}

func firstAddress(addrs []string) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

func (a *Adapter) GetAddressTransactions(ctx context.Context, chainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	segment, ok := chainSegment[chainID]
	if !ok {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, chainerr.UnsupportedChain(chainID)
	}

	url := fmt.Sprintf("%s/%s/addrs/%s/full?includeHex=true&limit=50&before=%d&after=%d&token=%s",
		baseURL, segment, address, endHeight, startHeight, a.token)

	var resp addressFullResponse
	if err := a.http.GetJSON(ctx, a.gate, "blockcypher", chainID, url, &resp); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	txs := make([]chain.Transaction, 0, len(resp.Txs))
	for _, t := range resp.Txs {
		txs = append(txs, toTransaction(chainID, t))
	}

	out := chain.HeightPaginatedResponse[chain.Transaction]{Contents: txs, HasMore: resp.HasMore}
	if resp.HasMore {
		// BlockCypher's cursor is "before", so iteration proceeds by
		// lowering end_height while start_height stays fixed.
		// TODO: confirm the upstream never returns hasMore=true with an
		// empty page; if it can, next_end_height has no source here.
		start := startHeight
		end := endHeight
		if len(resp.Txs) > 0 {
			end = resp.Txs[len(resp.Txs)-1].BlockHeight
		}
		out.NextStartHeight = &start
		out.NextEndHeight = &end
	}
	return out, nil
}

func toTransaction(chainID string, t upstreamTx) chain.Transaction {
	inputs := make([]utxo.Leg, 0, len(t.Inputs))
	for _, in := range t.Inputs {
		inputs = append(inputs, utxo.Leg{Address: firstAddress(in.Addresses), Amount: fmt.Sprintf("%d", in.OutputValue)})
	}
	outputs := make([]utxo.Leg, 0, len(t.Outputs))
	for _, out := range t.Outputs {
		outputs = append(outputs, utxo.Leg{Address: firstAddress(out.Addresses), Amount: fmt.Sprintf("%d", out.Value)})
	}
	transfers := utxo.AssembleTransfers(chainID, t.Hash, inputs, outputs)

	return chain.Transaction{
		TransactionID: chain.TransactionID(chainID, t.Hash),
		Identifier:    t.Hash,
		Hash:          t.Hash,
		BlockchainID:  chainID,
		Timestamp:     t.Received,
		Embedded:      chain.Embedded{Transfers: transfers},
		Fee:           chain.NativeAmount(chainID, fmt.Sprintf("%d", t.Fees)),
		Confirmations: t.Confirmations,
		Size:          t.Size,
		BlockHash:     t.BlockHash,
		BlockHeight:   t.BlockHeight,
		Status:        chain.StatusConfirmed,
		Meta:          map[string]string{},
	}
}

