package etherscan

import (
	"fmt"
	"math/big"
	"time"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/provider"
)

// merger collapses Etherscan's three per-address feeds (normal, token,
// internal) into one canonical Transaction per hash, in the order
// spec.md §4.5 prescribes: fee transfer first (from whichever feed
// supplies it first), then the normal value transfer, then token
// transfers, then internal transfers.
type merger struct {
	order      []string
	byHash     map[string]*txBuilder
	blockIndex map[string]int // block_hash -> next block-local index
}

func newMerger() *merger {
	return &merger{byHash: make(map[string]*txBuilder), blockIndex: make(map[string]int)}
}

type txBuilder struct {
	hash          string
	blockHash     string
	blockHeight   int64
	timestamp     string
	feeEmitted    bool
	transfers     []chain.Transfer
	isError       bool
	confirmations int64
	gasUsed       string
	gasPrice      string
	gasLimit      string
	nonce         string
}

func (m *merger) builder(hash string) *txBuilder {
	if b, ok := m.byHash[hash]; ok {
		return b
	}
	b := &txBuilder{hash: hash}
	m.byHash[hash] = b
	m.order = append(m.order, hash)
	return b
}

func (m *merger) nextIndex(b *txBuilder) int {
	return len(b.transfers)
}

func gasFee(gasUsed, gasPrice string) string {
	used, _ := new(big.Int).SetString(gasUsed, 10)
	price, _ := new(big.Int).SetString(gasPrice, 10)
	if used == nil || price == nil {
		return "0"
	}
	return new(big.Int).Mul(used, price).String()
}

func (m *merger) addNormal(rows []normalTx) {
	for _, t := range rows {
		b := m.builder(t.Hash)
		b.blockHash = t.BlockHash
		b.blockHeight = hexOrDecimal(t.BlockNumber)
		b.timestamp = unixSecondsToISO(t.TimeStamp)
		b.isError = t.IsError == "1"
		b.confirmations = hexOrDecimal(t.Confirmations)
		b.gasUsed, b.gasPrice, b.gasLimit, b.nonce = t.GasUsed, t.GasPrice, t.GasLimit, t.Nonce

		b.transfers = append(b.transfers, m.transfer(b, t.From, chain.FeeSink, gasFee(t.GasUsed, t.GasPrice)))
		b.feeEmitted = true

		if t.Value != "0" {
			b.transfers = append(b.transfers, m.transfer(b, t.From, t.To, t.Value))
		}
	}
}

func (m *merger) addTokens(rows []tokenTx) {
	for _, t := range rows {
		b := m.builder(t.Hash)
		if b.blockHash == "" {
			b.blockHash = t.BlockHash
			b.blockHeight = hexOrDecimal(t.BlockNumber)
			b.timestamp = unixSecondsToISO(t.TimeStamp)
			b.confirmations = hexOrDecimal(t.Confirmations)
		}
		if !b.feeEmitted {
			b.transfers = append(b.transfers, m.transfer(b, t.From, chain.FeeSink, gasFee(t.GasUsed, t.GasPrice)))
			b.feeEmitted = true
		}
		tr := m.transfer(b, t.From, t.To, t.Value)
		tr.Amount.CurrencyID = chain.CurrencyID(chainID, t.ContractAddress)
		b.transfers = append(b.transfers, tr)
	}
}

func (m *merger) addInternal(rows []internalTx) {
	for _, t := range rows {
		b := m.builder(t.Hash)
		if b.blockHash == "" {
			b.blockHash = t.BlockHash
			b.blockHeight = hexOrDecimal(t.BlockNumber)
			b.timestamp = unixSecondsToISO(t.TimeStamp)
		}
		b.transfers = append(b.transfers, m.transfer(b, t.From, t.To, t.Value))
	}
}

func (m *merger) transfer(b *txBuilder, from, to, amount string) chain.Transfer {
	index := m.nextIndex(b)
	return chain.Transfer{
		TransferID:    chain.TransferID(chainID, b.hash, index),
		BlockchainID:  chainID,
		FromAddress:   from,
		ToAddress:     to,
		Index:         index,
		TransactionID: chain.TransactionID(chainID, b.hash),
		Amount:        chain.NativeAmount(chainID, amount),
		Meta:          map[string]string{},
	}
}

// finish assembles the final Transaction list in first-seen hash order
// and assigns the block-local index: within a given block_hash,
// successive transactions take indices 1, 2, 3… as they are
// materialized here.
func (m *merger) finish() []chain.Transaction {
	txs := make([]chain.Transaction, 0, len(m.order))
	for _, hash := range m.order {
		b := m.byHash[hash]
		m.blockIndex[b.blockHash]++
		status := chain.StatusConfirmed
		if b.isError {
			status = chain.StatusFailed
		}
		var totalGasUsed int64
		_, _ = fmt.Sscanf(b.gasUsed, "%d", &totalGasUsed)

		fee := chain.NativeAmount(chainID, "0")
		if b.feeEmitted && len(b.transfers) > 0 {
			fee = b.transfers[0].Amount
		}

		txs = append(txs, chain.Transaction{
			TransactionID: chain.TransactionID(chainID, b.hash),
			Identifier:    b.hash,
			Hash:          b.hash,
			BlockchainID:  chainID,
			Timestamp:     b.timestamp,
			Embedded:      chain.Embedded{Transfers: b.transfers},
			Fee:           fee,
			Confirmations: b.confirmations,
			Size:          totalGasUsed,
			Index:         m.blockIndex[b.blockHash],
			BlockHash:     b.blockHash,
			BlockHeight:   b.blockHeight,
			Status:        status,
			Meta: map[string]string{
				"gasLimit": toHex(b.gasLimit),
				"gasUsed":  toHex(b.gasUsed),
				"gasPrice": toHex(b.gasPrice),
				"nonce":    toHex(b.nonce),
				"input":    "0x",
			},
		})
	}
	return txs
}

func toHex(decimal string) string {
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", n)
}

func hexOrDecimal(s string) int64 {
	var n int64
	if len(s) > 1 && s[0:2] == "0x" {
		_, _ = fmt.Sscanf(s, "0x%x", &n)
		return n
	}
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}

func unixSecondsToISO(s string) string {
	var sec int64
	_, _ = fmt.Sscanf(s, "%d", &sec)
	return provider.FormatISO(time.Unix(sec, 0))
}
