package scanloop

import (
	"context"
	"math/big"

	"github.com/gabapcia/walletbot/internal/chain"
)

// Transaction is a native-coin transfer as reported by a chain reader.
type Transaction struct {
	Hash        string
	From        string
	To          string   // empty for contract creations
	Value       *big.Int // base units (wei)
	BlockNumber uint64   // zero when the reader does not report it
}

// Blockchain reads one chain.
type Blockchain interface {
	// LatestBlockNumber returns the current head height.
	LatestBlockNumber(ctx context.Context) (uint64, error)

	// FetchWalletTransactions returns the transactions in [from, to] that
	// involve address. Readers backed by an address-indexed API may return
	// more than that; the scan loop filters by address and range again.
	// When from > to it must return nothing without touching the network.
	FetchWalletTransactions(ctx context.Context, address string, from, to uint64) ([]Transaction, error)
}

// Network binds a chain definition to the reader used to scan it.
type Network struct {
	Chain      chain.Chain
	Blockchain Blockchain

	// Confirmations is how many blocks behind the head a cycle stops. Readers
	// backed by an indexer that trails the node need a few, otherwise
	// transactions in the newest blocks are missing when the watermark
	// passes them.
	Confirmations uint64
}

// scanHead returns the highest height a cycle may scan for the given head.
func (n Network) scanHead(head uint64) uint64 {
	if head <= n.Confirmations {
		return 0
	}
	return head - n.Confirmations
}
