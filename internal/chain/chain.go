// Package chain describes the blockchains the bot can watch: their
// identifiers, native symbols, explorer links and price fallbacks.
package chain

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedChain is returned when a chain identifier is not registered.
var ErrUnsupportedChain = errors.New("unsupported chain")

// ID is a lowercase chain identifier such as "eth" or "bnb".
type ID string

// Chain holds the static description of one supported network.
type Chain struct {
	ID              ID
	Symbol          string          // native coin ticker, e.g. "ETH"
	Decimals        int32           // base-unit exponent, 18 for every EVM chain
	ExplorerName    string          // label of the explorer link, e.g. "Etherscan"
	ExplorerTxURL   string          // transaction URL template containing "{hash}"
	FallbackUSDRate decimal.Decimal // used whenever a live quote cannot be obtained
}

// TxURL returns the explorer page for the transaction hash.
func (c Chain) TxURL(hash string) string {
	return strings.ReplaceAll(c.ExplorerTxURL, "{hash}", hash)
}

// Amount converts a raw base-unit value into whole coins without rounding.
func (c Chain) Amount(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(raw, -c.Decimals)
}

var (
	// Ethereum mainnet.
	Ethereum = Chain{
		ID:              "eth",
		Symbol:          "ETH",
		Decimals:        18,
		ExplorerName:    "Etherscan",
		ExplorerTxURL:   "https://etherscan.io/tx/{hash}",
		FallbackUSDRate: decimal.NewFromInt(3000),
	}

	// BNBSmartChain is BNB Smart Chain mainnet.
	BNBSmartChain = Chain{
		ID:              "bnb",
		Symbol:          "BNB",
		Decimals:        18,
		ExplorerName:    "BscScan",
		ExplorerTxURL:   "https://bscscan.com/tx/{hash}",
		FallbackUSDRate: decimal.NewFromInt(500),
	}
)

// Known returns the built-in chain definitions.
func Known() []Chain {
	return []Chain{Ethereum, BNBSmartChain}
}

// Registry is an immutable set of supported chains.
type Registry struct {
	chains map[ID]Chain
}

// NewRegistry builds a Registry. Later entries with a duplicate ID replace earlier ones.
func NewRegistry(chains ...Chain) *Registry {
	r := &Registry{chains: make(map[ID]Chain, len(chains))}
	for _, c := range chains {
		r.chains[c.ID] = c
	}
	return r
}

// Lookup returns the chain registered under id.
func (r *Registry) Lookup(id ID) (Chain, error) {
	c, ok := r.chains[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s", ErrUnsupportedChain, id)
	}
	return c, nil
}

// Parse normalizes user input ("ETH", " bnb ") into a registered ID.
func (r *Registry) Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, err := r.Lookup(id); err != nil {
		return "", err
	}
	return id, nil
}

// IDs returns the registered identifiers in ascending order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Symbols returns the upper-case tickers of the registered chains, ordered by ID.
func (r *Registry) Symbols() []string {
	ids := r.IDs()
	symbols := make([]string, len(ids))
	for i, id := range ids {
		symbols[i] = r.chains[id].Symbol
	}
	return symbols
}
