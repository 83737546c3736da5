// Package blockchair adapts the BlockChair API to the canonical provider
// capability. It serves bitcoin-testnet, giving the gateway's third UTXO
// upstream a concrete home.
package blockchair

import (
	"context"
	"fmt"
	"time"

	"github.com/blocksetgw/gateway/internal/cache"
	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/feeprovider"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/provider/utxo"
	"github.com/blocksetgw/gateway/internal/registry"
	"github.com/blocksetgw/gateway/internal/transport"
)

// chainSlug maps a gateway chain id to BlockChair's URL slug.
var chainSlug = map[string]string{
	"bitcoin-testnet": "bitcoin/testnet",
}

var baseURL = "https://api.blockchair.com"

// txMemoTTL is ~1 year: confirmed transactions are immutable, so the
// per-hash raw fetch never needs to be repeated.
const txMemoTTL = 365 * 24 * time.Hour

// Adapter implements provider.Provider against BlockChair.
type Adapter struct {
	http  *transport.Client
	gate  *transport.Gate
	fees  feeprovider.FeeProvider
	token string
	txMemo *cache.TTLCache
}

var _ provider.Provider = (*Adapter)(nil)

// New builds a BlockChair adapter with its fixed 12-permit gate and a
// long-TTL memo over per-transaction raw fetches.
func New(httpClient *transport.Client, fees feeprovider.FeeProvider, token string) *Adapter {
	return &Adapter{
		http:   httpClient,
		gate:   transport.NewGate(12),
		fees:   fees,
		token:  token,
		txMemo: cache.NewTTLCache(txMemoTTL, 6*time.Hour),
	}
}

type dashboardResponse struct {
	Data map[string]struct {
		Transactions []string `json:"transactions"`
	} `json:"data"`
	Context struct {
		State int64 `json:"state"`
	} `json:"context"`
}

func (a *Adapter) GetBlockchainData(ctx context.Context, chainID string) (chain.Blockchain, error) {
	slug, ok := chainSlug[chainID]
	if !ok {
		return chain.Blockchain{}, chainerr.UnsupportedChain(chainID)
	}
	entry := registry.MustLookup(chainID)

	url := fmt.Sprintf("%s/%s/stats?key=%s", baseURL, slug, a.token)
	var stats struct {
		Data struct {
			Blocks       int64  `json:"blocks"`
			BestBlockHash string `json:"best_block_hash"`
		} `json:"data"`
	}
	if err := a.http.GetJSON(ctx, a.gate, "blockchair", chainID, url, &stats); err != nil {
		return chain.Blockchain{}, err
	}

	fees, err := a.fees.GetFees(ctx, chainID)
	if err != nil {
		return chain.Blockchain{}, err
	}

	tip := stats.Data.Blocks - 1
	return chain.Blockchain{
		Name:                    entry.Name,
		ID:                      entry.ID,
		IsMainnet:               entry.IsMainnet,
		Network:                 entry.Network,
		ConfirmationsUntilFinal: entry.ConfirmationsUntilFinal,
		NativeCurrencyID:        entry.NativeCurrencyID,
		FeeEstimates:            fees,
		FeeEstimatesTimestamp:   provider.NowISO(),
		BlockHeight:             tip,
		VerifiedHeight:          tip,
		VerifiedBlockHash:       stats.Data.BestBlockHash,
	}, nil
}

type rawTransactionResponse struct {
	Data map[string]struct {
		Decoded struct {
			Txid        string        `json:"txid"`
			BlockHeight int64         `json:"block_height"`
			Vin         []rawVin      `json:"vin"`
			Vout        []rawVout     `json:"vout"`
			Size        int64         `json:"size"`
			Time        int64         `json:"time"`
		} `json:"decoded"`
	} `json:"data"`
}

type rawVin struct {
	PrevOut struct {
		Recipient string `json:"recipient"`
		Value     int64  `json:"value"`
	} `json:"prev_out"`
}

type rawVout struct {
	ScriptPubKey struct {
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
	Value int64 `json:"value"`
}

func (a *Adapter) GetAddressTransactions(ctx context.Context, chainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	slug, ok := chainSlug[chainID]
	if !ok {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, chainerr.UnsupportedChain(chainID)
	}

	url := fmt.Sprintf("%s/%s/dashboards/address/%s?limit=10000&transaction_details=true&key=%s", baseURL, slug, address, a.token)
	var dash dashboardResponse
	if err := a.http.GetJSON(ctx, a.gate, "blockchair", chainID, url, &dash); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	addrData, ok := dash.Data[address]
	if !ok {
		return chain.HeightPaginatedResponse[chain.Transaction]{Contents: nil, HasMore: false}, nil
	}

	txs := make([]chain.Transaction, 0, len(addrData.Transactions))
	for _, hash := range addrData.Transactions {
		tx, inRange, err := a.fetchTransaction(ctx, chainID, slug, hash, startHeight, endHeight)
		if err != nil {
			return chain.HeightPaginatedResponse[chain.Transaction]{}, err
		}
		if inRange {
			txs = append(txs, tx)
		}
	}

	// BlockChair's dashboard call returns everything in one page; the
	// adapter relies on the upstream's own per-call cap rather than
	// paginating itself, per spec.md §4.2.
	return chain.HeightPaginatedResponse[chain.Transaction]{Contents: txs, HasMore: false}, nil
}

func (a *Adapter) fetchTransaction(ctx context.Context, chainID, slug, hash string, startHeight, endHeight int64) (chain.Transaction, bool, error) {
	cacheKey := chainID + ":" + hash
	if v, hit := a.txMemo.Get(cacheKey); hit {
		tx := v.(chain.Transaction)
		return tx, tx.BlockHeight >= startHeight && (endHeight <= 0 || tx.BlockHeight <= endHeight), nil
	}

	url := fmt.Sprintf("%s/%s/raw/transaction/%s?key=%s", baseURL, slug, hash, a.token)
	var raw rawTransactionResponse
	if err := a.http.GetJSON(ctx, a.gate, "blockchair", chainID, url, &raw); err != nil {
		return chain.Transaction{}, false, err
	}
	entry, ok := raw.Data[hash]
	if !ok {
		return chain.Transaction{}, false, chainerr.UpstreamDecode("blockchair", fmt.Errorf("no raw data for %s", hash))
	}

	d := entry.Decoded
	inputs := make([]utxo.Leg, 0, len(d.Vin))
	for _, in := range d.Vin {
		inputs = append(inputs, utxo.Leg{Address: in.PrevOut.Recipient, Amount: fmt.Sprintf("%d", in.PrevOut.Value)})
	}
	outputs := make([]utxo.Leg, 0, len(d.Vout))
	for _, out := range d.Vout {
		addr := ""
		if len(out.ScriptPubKey.Addresses) > 0 {
			addr = out.ScriptPubKey.Addresses[0]
		}
		outputs = append(outputs, utxo.Leg{Address: addr, Amount: fmt.Sprintf("%d", out.Value)})
	}
	transfers := utxo.AssembleTransfers(chainID, d.Txid, inputs, outputs)

	fee := sumInputs(inputs) - sumOutputs(outputs)
	if fee < 0 {
		fee = 0
	}

	tx := chain.Transaction{
		TransactionID: chain.TransactionID(chainID, d.Txid),
		Identifier:    d.Txid,
		Hash:          d.Txid,
		BlockchainID:  chainID,
		Timestamp:     provider.FormatISO(time.Unix(d.Time, 0)),
		Embedded:      chain.Embedded{Transfers: transfers},
		Fee:           chain.NativeAmount(chainID, fmt.Sprintf("%d", fee)),
		Size:          d.Size,
		BlockHash:     "",
		BlockHeight:   d.BlockHeight,
		Status:        chain.StatusConfirmed,
		Meta:          map[string]string{},
	}
	a.txMemo.SetTTL(cacheKey, tx, txMemoTTL)
	return tx, tx.BlockHeight >= startHeight && (endHeight <= 0 || tx.BlockHeight <= endHeight), nil
}

func sumInputs(legs []utxo.Leg) int64  { return sumLegs(legs) }
func sumOutputs(legs []utxo.Leg) int64 { return sumLegs(legs) }

func sumLegs(legs []utxo.Leg) int64 {
	var total int64
	for _, l := range legs {
		var v int64
		_, _ = fmt.Sscanf(l.Amount, "%d", &v)
		total += v
	}
	return total
}
