// Package registry holds the static chain metadata table: the set of
// chain ids the gateway knows about and the fixed facts about each one
// (display name, network, finality depth, native currency).
package registry

import (
	"fmt"
	"sync"

	"github.com/blocksetgw/gateway/internal/chain"
)

// Entry is one row of the chain registry.
type Entry struct {
	ID                      string
	Name                    string
	IsMainnet               bool
	Network                 string
	ConfirmationsUntilFinal int
	NativeCurrencyID        string
}

var (
	once sync.Once
	rows map[string]Entry
)

func build() map[string]Entry {
	entries := []Entry{
		{ID: "bitcoin-mainnet", Name: "Bitcoin", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 6},
		{ID: "bitcoin-testnet", Name: "Bitcoin Testnet", IsMainnet: false, Network: "testnet", ConfirmationsUntilFinal: 6},
		{ID: "bitcoincash-mainnet", Name: "Bitcoin Cash", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 6},
		{ID: "litecoin-mainnet", Name: "Litecoin", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 6},
		{ID: "dogecoin-mainnet", Name: "Dogecoin", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 20},
		{ID: "ethereum-mainnet", Name: "Ethereum", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 20},
		{ID: "ripple-mainnet", Name: "Ripple", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 1},
		{ID: "tezos-mainnet", Name: "Tezos", IsMainnet: true, Network: "mainnet", ConfirmationsUntilFinal: 2},
	}
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		e.NativeCurrencyID = chain.CurrencyID(e.ID, chain.NativeToken)
		m[e.ID] = e
	}
	return m
}

func table() map[string]Entry {
	once.Do(func() { rows = build() })
	return rows
}

// Lookup returns the registry row for chainID, or false if unregistered.
func Lookup(chainID string) (Entry, bool) {
	e, ok := table()[chainID]
	return e, ok
}

// MustLookup is Lookup for call sites that have already validated chainID
// via the routing table and would treat absence as a programming error.
func MustLookup(chainID string) Entry {
	e, ok := Lookup(chainID)
	if !ok {
		panic(fmt.Sprintf("registry: unregistered chain %q", chainID))
	}
	return e
}

// All returns the rows matching testnet: true selects only non-mainnet
// chains, false selects only mainnet chains. This mirrors
// blockchains.py's get_blockchains partition, which never returns a
// mixed set. The returned slice is a fresh copy; callers may not mutate
// the registry through it.
func All(testnet bool) []Entry {
	t := table()
	out := make([]Entry, 0, len(t))
	for _, e := range t {
		if testnet == e.IsMainnet {
			continue
		}
		out = append(out, e)
	}
	return out
}
