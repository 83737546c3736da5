package etherscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksetgw/gateway/internal/chain"
)

func TestMergerEmitsFeeOnceAcrossNormalAndTokenFeeds(t *testing.T) {
	m := newMerger()
	m.addNormal([]normalTx{{
		Hash: "0x1", BlockHash: "0xb1", BlockNumber: "0x64", TimeStamp: "1600000000",
		From: "0xfrom", To: "0xto", Value: "1000", GasUsed: "21000", GasPrice: "1000000000",
	}})
	m.addTokens([]tokenTx{{
		Hash: "0x1", BlockHash: "0xb1", BlockNumber: "0x64", TimeStamp: "1600000000",
		From: "0xfrom", To: "0xcontractdest", Value: "500", ContractAddress: "0xtoken", GasUsed: "1", GasPrice: "1",
	}})

	txs := m.finish()
	require.Len(t, txs, 1)
	tx := txs[0]
	require.Len(t, tx.Embedded.Transfers, 3)
	assert.Equal(t, chain.FeeSink, tx.Embedded.Transfers[0].ToAddress)
	assert.Equal(t, chainID+":0xtoken", tx.Embedded.Transfers[2].Amount.CurrencyID)
	assert.Equal(t, tx.Embedded.Transfers[0].Amount.Amount, tx.Fee.Amount)
}

// TestMergerHandlesInternalOnlyHash covers a hash that only ever appears
// in the internal-transactions feed: no fee transfer is ever emitted, so
// Fee must default to zero instead of indexing into an empty/fee-less
// transfer slice.
func TestMergerHandlesInternalOnlyHash(t *testing.T) {
	m := newMerger()
	m.addInternal([]internalTx{{
		Hash: "0x2", BlockHash: "0xb2", BlockNumber: "0x65", TimeStamp: "1600000001",
		From: "0xcontract", To: "0xrecipient", Value: "42",
	}})

	txs := m.finish()
	require.Len(t, txs, 1)
	tx := txs[0]
	require.Len(t, tx.Embedded.Transfers, 1)
	assert.Equal(t, "0", tx.Fee.Amount)
	assert.Equal(t, "0xrecipient", tx.Embedded.Transfers[0].ToAddress)
}

func TestMergerSkipsZeroValueTransferButKeepsFee(t *testing.T) {
	m := newMerger()
	m.addNormal([]normalTx{{
		Hash: "0x3", BlockHash: "0xb3", BlockNumber: "0x66", TimeStamp: "1600000002",
		From: "0xfrom", To: "0xto", Value: "0", GasUsed: "21000", GasPrice: "1000000000",
	}})

	txs := m.finish()
	require.Len(t, txs, 1)
	require.Len(t, txs[0].Embedded.Transfers, 1)
	assert.Equal(t, chain.FeeSink, txs[0].Embedded.Transfers[0].ToAddress)
}

func TestMergerAssignsBlockLocalIndexAcrossHashesInSameBlock(t *testing.T) {
	m := newMerger()
	m.addNormal([]normalTx{
		{Hash: "0x1", BlockHash: "0xb1", BlockNumber: "0x64", TimeStamp: "1600000000", From: "0xfrom", To: "0xto", Value: "1", GasUsed: "1", GasPrice: "1"},
		{Hash: "0x2", BlockHash: "0xb1", BlockNumber: "0x64", TimeStamp: "1600000000", From: "0xfrom", To: "0xto2", Value: "1", GasUsed: "1", GasPrice: "1"},
	})

	txs := m.finish()
	require.Len(t, txs, 2)
	assert.Equal(t, 1, txs[0].Index)
	assert.Equal(t, 2, txs[1].Index)
}

// TestMergerMatchesNormalPlusTokenScenario is spec.md §8 concrete
// scenario 3: one normal transfer plus one matching token transfer,
// no internal rows.
func TestMergerMatchesNormalPlusTokenScenario(t *testing.T) {
	m := newMerger()
	m.addNormal([]normalTx{{
		Hash: "0xH", BlockHash: "0xb1", BlockNumber: "0x1", TimeStamp: "1600000000",
		From: "X", To: "Y", Value: "1000000000000000000", GasUsed: "21000", GasPrice: "20000000000", IsError: "0",
	}})
	m.addTokens([]tokenTx{{
		Hash: "0xH", BlockHash: "0xb1", BlockNumber: "0x1", TimeStamp: "1600000000",
		From: "X", To: "Z", Value: "500", ContractAddress: "0xCCC",
	}})

	txs := m.finish()
	require.Len(t, txs, 1)
	tx := txs[0]
	require.Len(t, tx.Embedded.Transfers, 3)

	fee, value, token := tx.Embedded.Transfers[0], tx.Embedded.Transfers[1], tx.Embedded.Transfers[2]
	assert.Equal(t, chain.FeeSink, fee.ToAddress)
	assert.Equal(t, "420000000000000", fee.Amount.Amount)
	assert.Equal(t, "Y", value.ToAddress)
	assert.Equal(t, "1000000000000000000", value.Amount.Amount)
	assert.Equal(t, "Z", token.ToAddress)
	assert.Equal(t, "500", token.Amount.Amount)
	assert.Equal(t, chainID+":0xCCC", token.Amount.CurrencyID)
	assert.Equal(t, chain.StatusConfirmed, tx.Status)
}

func TestMergerMarksErrorStatus(t *testing.T) {
	m := newMerger()
	m.addNormal([]normalTx{{
		Hash: "0x1", BlockHash: "0xb1", BlockNumber: "0x64", TimeStamp: "1600000000",
		From: "0xfrom", To: "0xto", Value: "1", GasUsed: "1", GasPrice: "1", IsError: "1",
	}})

	txs := m.finish()
	require.Len(t, txs, 1)
	assert.Equal(t, chain.StatusFailed, txs[0].Status)
}
