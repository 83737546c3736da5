// Package etherscan adapts the Etherscan API to the canonical provider
// capability for Ethereum mainnet, merging three account-model feeds
// (normal, ERC-20, internal transactions) into one Transaction per hash.
package etherscan

import (
	"context"
	"fmt"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
	"github.com/blocksetgw/gateway/internal/feeprovider"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/registry"
	"github.com/blocksetgw/gateway/internal/transport"
)

const chainID = "ethereum-mainnet"

var baseURL = "https://api.etherscan.io/api"

// Adapter implements provider.Provider against Etherscan.
type Adapter struct {
	http  *transport.Client
	gate  *transport.Gate
	fees  feeprovider.FeeProvider
	token string
}

var _ provider.Provider = (*Adapter)(nil)

// New builds an Etherscan adapter sharing gate with its fee provider
// (constructed separately by the caller via NewEtherscanFeeProvider, so
// both count against the same rate-limit budget).
func New(httpClient *transport.Client, fees feeprovider.FeeProvider, token string, gate *transport.Gate) *Adapter {
	return &Adapter{
		http:  httpClient,
		gate:  gate,
		fees:  fees,
		token: token,
	}
}

type blockResponse struct {
	Result struct {
		Number string `json:"number"`
		Hash   string `json:"hash"`
	} `json:"result"`
}

func (a *Adapter) GetBlockchainData(ctx context.Context, reqChainID string) (chain.Blockchain, error) {
	if reqChainID != chainID {
		return chain.Blockchain{}, chainerr.UnsupportedChain(reqChainID)
	}
	entry := registry.MustLookup(chainID)

	url := fmt.Sprintf("%s?module=proxy&action=eth_getBlockByNumber&tag=latest&boolean=false&apikey=%s", baseURL, a.token)
	var block blockResponse
	if err := a.http.GetJSON(ctx, a.gate, "etherscan", chainID, url, &block); err != nil {
		return chain.Blockchain{}, err
	}
	height := hexToInt64(block.Result.Number)

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
		BlockHeight:             height,
		VerifiedHeight:          height,
		VerifiedBlockHash:       block.Result.Hash,
	}, nil
}

type normalTx struct {
	Hash             string `json:"hash"`
	BlockHash        string `json:"blockHash"`
	BlockNumber      string `json:"blockNumber"`
	TimeStamp        string `json:"timeStamp"`
	From             string `json:"from"`
	To               string `json:"to"`
	Value            string `json:"value"`
	GasUsed          string `json:"gasUsed"`
	GasPrice         string `json:"gasPrice"`
	GasLimit         string `json:"gas"`
	Nonce            string `json:"nonce"`
	IsError          string `json:"isError"`
	Confirmations    string `json:"confirmations"`
}

type tokenTx struct {
	Hash            string `json:"hash"`
	BlockHash       string `json:"blockHash"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	Confirmations   string `json:"confirmations"`
}

type internalTx struct {
	Hash        string `json:"hash"`
	BlockHash   string `json:"blockHash"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
}

type listResponse[T any] struct {
	Result []T `json:"result"`
}

func (a *Adapter) GetAddressTransactions(ctx context.Context, reqChainID, address string, startHeight, endHeight int64) (chain.HeightPaginatedResponse[chain.Transaction], error) {
	if reqChainID != chainID {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, chainerr.UnsupportedChain(reqChainID)
	}

	var normal listResponse[normalTx]
	if err := a.http.GetJSON(ctx, a.gate, "etherscan", chainID, a.listURL("txlist", address, startHeight, endHeight), &normal); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}
	var tokens listResponse[tokenTx]
	if err := a.http.GetJSON(ctx, a.gate, "etherscan", chainID, a.listURL("tokentx", address, startHeight, endHeight), &tokens); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}
	var internals listResponse[internalTx]
	if err := a.http.GetJSON(ctx, a.gate, "etherscan", chainID, a.listURL("txlistinternal", address, startHeight, endHeight), &internals); err != nil {
		return chain.HeightPaginatedResponse[chain.Transaction]{}, err
	}

	merger := newMerger()
	merger.addNormal(normal.Result)
	merger.addTokens(tokens.Result)
	merger.addInternal(internals.Result)

	return chain.HeightPaginatedResponse[chain.Transaction]{Contents: merger.finish(), HasMore: false}, nil
}

func (a *Adapter) listURL(action, address string, startHeight, endHeight int64) string {
	return fmt.Sprintf("%s?module=account&action=%s&address=%s&startblock=%d&endblock=%d&sort=asc&apikey=%s",
		baseURL, action, address, startHeight, endHeight, a.token)
}

func hexToInt64(hex string) int64 {
	var n int64
	_, _ = fmt.Sscanf(hex, "0x%x", &n)
	return n
}
