package walletregistry

import (
	"context"
	"sync"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/logger"
)

// Service owns the set of watched wallets. Every mutation is persisted
// through WalletStorage before it returns.
//
// Wallets are identified by chain and address, ignoring the address case.
// The first entered form of the address is kept for display and storage.
type Service interface {
	// Load replaces the in-memory set with the stored one. Entries for
	// chains that are not enabled are kept but logged.
	//
	// Parameters:
	//   - ctx: context for cancellation and timeout.
	//
	// Returns:
	//   - An error if the storage cannot be read.
	Load(ctx context.Context) error

	// StartWatching registers a wallet for monitoring.
	//
	// Parameters:
	//   - ctx: context for cancellation and timeout.
	//   - chainID: chain identifier as typed by the user (e.g., "ETH", "bnb").
	//   - address: wallet address, kept as entered.
	//
	// Returns:
	//   - The watched wallet. When it was already watched, the stored entry.
	//   - chain.ErrUnsupportedChain, a validation error or a storage error.
	StartWatching(ctx context.Context, chainID, address string) (WalletIdentifier, error)

	// StopWatching unregisters a wallet.
	//
	// Parameters:
	//   - ctx: context for cancellation and timeout.
	//   - chainID: chain identifier as typed by the user.
	//   - address: wallet address, matched ignoring case.
	//
	// Returns:
	//   - The removed entry, in its stored form.
	//   - ErrWalletNotWatched if the wallet was absent, otherwise a
	//     validation or storage error.
	StopWatching(ctx context.Context, chainID, address string) (WalletIdentifier, error)

	// ListWallets returns the watched wallets, filtered by chain when chainID is not empty.
	ListWallets(ctx context.Context, chainID string) ([]WalletIdentifier, error)

	// WatchedWallets returns a sorted snapshot of the whole set.
	WatchedWallets() []WalletIdentifier
}

type service struct {
	chains        *chain.Registry
	walletStorage WalletStorage

	mu      sync.Mutex
	wallets walletSet
}

var _ Service = (*service)(nil)

// New creates an empty wallet registry. Call Load to restore the persisted set.
//
// Parameters:
//   - chains: the enabled chains, used to parse and validate user input.
//   - ws: storage backend for the watched set.
//
// Returns:
//   - A registry ready to be loaded.
func New(chains *chain.Registry, ws WalletStorage) *service {
	return &service{
		chains:        chains,
		walletStorage: ws,
		wallets:       newWalletSet(),
	}
}

func (s *service) Load(ctx context.Context) error {
	s.mu.Lock()
	wallets, err := s.reload(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, w := range wallets {
		if _, err := s.chains.Lookup(w.Chain); err != nil {
			logger.Warn(ctx, "watched wallet belongs to a disabled chain", "chain.id", w.Chain, "wallet.address", w.Address)
		}
	}

	logger.Debug(ctx, "watched wallets loaded", "wallets.count", len(wallets))
	return nil
}

// reload replaces the in-memory set with the stored one and returns the
// deduplicated entries. Must be called with mu held.
func (s *service) reload(ctx context.Context) ([]WalletIdentifier, error) {
	stored, err := s.walletStorage.LoadWallets(ctx)
	if err != nil {
		return nil, err
	}

	s.wallets = newWalletSet(stored...)
	return s.wallets.sorted(), nil
}

func (s *service) WatchedWallets() []WalletIdentifier {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wallets.sorted()
}

// save must be called with mu held.
func (s *service) save(ctx context.Context) error {
	return s.walletStorage.SaveWallets(ctx, s.wallets.sorted())
}
