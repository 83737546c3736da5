// Package utxo holds the transfer-assembly logic shared by every
// UTXO-chain adapter (BlockCypher, Blockbook, BlockChair): inputs and
// outputs collapse into one Transfer list with a dense, ascending index
// and the "unknown" sentinel on the side the upstream can't resolve.
package utxo

import "github.com/blocksetgw/gateway/internal/chain"

// Leg is one input or output of a UTXO transaction, already reduced to
// the address (empty if the upstream couldn't attribute one, e.g.
// coinbase or a non-standard script) and the native-currency amount.
type Leg struct {
	Address string
	Amount  string
}

// AssembleTransfers builds the canonical Transfer list for one
// transaction: inputs first (to_address="unknown"), then outputs
// continuing the same index counter (from_address="unknown").
func AssembleTransfers(chainID, hash string, inputs, outputs []Leg) []chain.Transfer {
	transfers := make([]chain.Transfer, 0, len(inputs)+len(outputs))
	index := 0
	txID := chain.TransactionID(chainID, hash)

	for _, in := range inputs {
		transfers = append(transfers, chain.Transfer{
			TransferID:    chain.TransferID(chainID, hash, index),
			BlockchainID:  chainID,
			FromAddress:   in.Address,
			ToAddress:     chain.UnknownAddress,
			Index:         index,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, in.Amount),
			Meta:          map[string]string{},
		})
		index++
	}
	for _, out := range outputs {
		transfers = append(transfers, chain.Transfer{
			TransferID:    chain.TransferID(chainID, hash, index),
			BlockchainID:  chainID,
			FromAddress:   chain.UnknownAddress,
			ToAddress:     out.Address,
			Index:         index,
			TransactionID: txID,
			Amount:        chain.NativeAmount(chainID, out.Amount),
			Meta:          map[string]string{},
		})
		index++
	}
	return transfers
}
