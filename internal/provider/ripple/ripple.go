// Package ripple adapts the data.ripple.com Data API to the canonical
// provider capability for the Ripple ledger.
package ripple

import (
	"context"
	"fmt"
	"sync"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/registry"
	"github.com/blocksetgw/gateway/internal/transport"
)

const chainID = "ripple-mainnet"

var baseURL = "https://data.ripple.com/v2"

// staticFee is Ripple's single hard-coded fee estimate: the network's
// fee model is not tiered, per spec.md §4.6.
var staticFee = chain.FeeEstimate{
	Fee:                       chain.NativeAmount(chainID, "10"),
	Tier:                      "0m",
	EstimatedConfirmationInMs: 4000,
}

// Adapter implements provider.Provider against data.ripple.com.
//
// lastLedgerIndex is read-through state updated only on a successful
// GetBlockchainData call, used to compute confirmations for subsequent
// address-history responses. This replaces the module-global sentinel
// the upstream source keeps, scoping it to the adapter instance instead.
type Adapter struct {
	http *transport.Client
	gate *transport.Gate

	mu              sync.RWMutex
	lastLedgerIndex int64
}

var _ provider.Provider = (*Adapter)(nil)

// New builds a Ripple adapter with its fixed 10-permit gate.
func New(httpClient *transport.Client) *Adapter {
	return &Adapter{http: httpClient, gate: transport.NewGate(10)}
}

type ledgersResponse struct {
	Ledger struct {
		LedgerIndex int64  `json:"ledger_index"`
		LedgerHash  string `json:"ledger_hash"`
	} `json:"ledger"`
}

func (a *Adapter) GetBlockchainData(ctx context.Context, reqChainID string) (chain.Blockchain, error) {
	if reqChainID != chainID {
		return chain.Blockchain{}, chainerr.UnsupportedChain(reqChainID)
	}
	entry := registry.MustLookup(chainID)

	var resp ledgersResponse
	if err := a.http.GetJSON(ctx, a.gate, "ripple", chainID, baseURL+"/ledgers", &resp); err != nil {
		return chain.Blockchain{}, err
	}

	a.mu.Lock()
	a.lastLedgerIndex = resp.Ledger.LedgerIndex
	a.mu.Unlock()

	return chain.Blockchain{
		Name:                    entry.Name,
		ID:                      entry.ID,
		IsMainnet:               entry.IsMainnet,
		Network:                 entry.Network,
		ConfirmationsUntilFinal: entry.ConfirmationsUntilFinal,
		NativeCurrencyID:        entry.NativeCurrencyID,
		FeeEstimates:            []chain.FeeEstimate{staticFee},
		FeeEstimatesTimestamp:   provider.NowISO(),
		BlockHeight:             resp.Ledger.LedgerIndex,
		VerifiedHeight:          resp.Ledger.LedgerIndex,
		VerifiedBlockHash:       resp.Ledger.LedgerHash,
	}, nil
}

type transactionsResponse struct {
	Transactions []upstreamEntry `json:"transactions"`
}

type upstreamEntry struct {
	Hash string `json:"hash"`
	Tx   struct {
		Account     string `json:"Account"`
		Destination string `json:"Destination"`
		Amount      string `json:"Amount"`
		Fee         string `json:"Fee"`
		LedgerIndex int64  `json:"ledger_index"`
		Date        string `json:"date"`
	} `json:"tx"`
}

func (a *Adapter) GetAddressTransactions(ctx context.Context, reqChainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	if reqChainID != chainID {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, chainerr.UnsupportedChain(reqChainID)
	}

	url := fmt.Sprintf("%s/accounts/%s/transactions?type=Payment&descending=false&limit=10000", baseURL, address)
	var resp transactionsResponse
	if err := a.http.GetJSON(ctx, a.gate, "ripple", chainID, url, &resp); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	a.mu.RLock()
	lastLedger := a.lastLedgerIndex
	a.mu.RUnlock()

	txs := make([]chain.Transaction, 0, len(resp.Transactions))
	for _, e := range resp.Transactions {
		if e.Tx.LedgerIndex < startHeight || (endHeight > 0 && e.Tx.LedgerIndex > endHeight) {
			continue
		}
		txs = append(txs, toTransaction(e, lastLedger))
	}

	return chain.HeightPaginatedResponse[chain.Transaction]{Contents: txs, HasMore: false}, nil
}

func toTransaction(e upstreamEntry, lastLedgerIndex int64) chain.Transaction {
	txID := chain.TransactionID(chainID, e.Hash)
	transfers := []chain.Transfer{
		{
			TransferID:    chain.TransferID(chainID, e.Hash, 0),
			BlockchainID:  chainID,
			FromAddress:   e.Tx.Account,
			ToAddress:     chain.FeeSink,
			Index:         0,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, e.Tx.Fee),
			Meta:          map[string]string{},
		},
		{
			TransferID:    chain.TransferID(chainID, e.Hash, 1),
			BlockchainID:  chainID,
			FromAddress:   e.Tx.Account,
			ToAddress:     e.Tx.Destination,
			Index:         1,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, e.Tx.Amount),
			Meta:          map[string]string{},
		},
	}

	return chain.Transaction{
		TransactionID: txID,
		Identifier:    e.Hash,
		Hash:          e.Hash,
		BlockchainID:  chainID,
		Timestamp:     e.Tx.Date,
		Embedded:      chain.Embedded{Transfers: transfers},
		Fee:           chain.NativeAmount(chainID, e.Tx.Fee),
		Confirmations: chain.Confirmations(lastLedgerIndex, e.Tx.LedgerIndex),
		BlockHeight:   e.Tx.LedgerIndex,
		Status:        chain.StatusConfirmed,
		Meta:          map[string]string{},
	}
}
