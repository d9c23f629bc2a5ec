package walletregistry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/validator"
)

var (
	// ErrWalletNotWatched is returned by StopWatching when the wallet is not in the set.
	ErrWalletNotWatched = errors.New("wallet is not being monitored")

	// ErrMalformedIdentifier is returned by ParseIdentifier for entries that are not "chain:address".
	ErrMalformedIdentifier = errors.New("malformed wallet identifier")
)

// WalletIdentifier uniquely identifies a watched wallet by chain and address.
// The address is kept exactly as entered.
type WalletIdentifier struct {
	Chain   chain.ID `validate:"required"`
	Address string   `validate:"walletaddr"`
}

// String renders the identifier in its persisted "chain:address" form.
func (w WalletIdentifier) String() string {
	return string(w.Chain) + ":" + w.Address
}

// ParseIdentifier reads the persisted "chain:address" form. The chain is
// lowercased and the address kept as is. It does not check that the chain is enabled.
func ParseIdentifier(entry string) (WalletIdentifier, error) {
	chainID, address, ok := strings.Cut(strings.TrimSpace(entry), ":")
	chainID, address = strings.TrimSpace(chainID), strings.TrimSpace(address)
	if !ok || chainID == "" || address == "" {
		return WalletIdentifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, entry)
	}

	return WalletIdentifier{
		Chain:   chain.ID(strings.ToLower(chainID)),
		Address: address,
	}, nil
}

// Matches reports whether addr refers to this wallet, ignoring case.
func (w WalletIdentifier) Matches(addr string) bool {
	return addr != "" && strings.EqualFold(w.Address, addr)
}

// walletKey identifies a wallet regardless of the address case. Two entries
// with the same key are the same wallet.
type walletKey struct {
	chain   chain.ID
	address string
}

func (w WalletIdentifier) key() walletKey {
	return walletKey{chain: w.Chain, address: strings.ToLower(w.Address)}
}

// walletSet holds the watched wallets keyed by walletKey. The stored value
// keeps the address as first entered.
type walletSet map[walletKey]WalletIdentifier

func newWalletSet(wallets ...WalletIdentifier) walletSet {
	set := make(walletSet, len(wallets))
	set.add(wallets...)
	return set
}

// add inserts wallets that are not present yet. Existing entries keep their form.
func (s walletSet) add(wallets ...WalletIdentifier) {
	for _, w := range wallets {
		if _, ok := s[w.key()]; !ok {
			s[w.key()] = w
		}
	}
}

func (s walletSet) sorted() []WalletIdentifier {
	return slices.SortedFunc(maps.Values(s), compare)
}

// compare orders identifiers by chain, then address.
func compare(a, b WalletIdentifier) int {
	if c := strings.Compare(string(a.Chain), string(b.Chain)); c != 0 {
		return c
	}
	return strings.Compare(a.Address, b.Address)
}

// WalletStorage persists the whole watched-wallet set.
//
// SaveWallets always receives the complete set and replaces whatever was
// stored before.
type WalletStorage interface {
	LoadWallets(ctx context.Context) ([]WalletIdentifier, error)
	SaveWallets(ctx context.Context, wallets []WalletIdentifier) error
}

// buildWalletIdentifier normalizes the chain and validates both fields.
func (s *service) buildWalletIdentifier(chainID, address string) (WalletIdentifier, error) {
	id, err := s.chains.Parse(chainID)
	if err != nil {
		return WalletIdentifier{}, err
	}

	wallet := WalletIdentifier{
		Chain:   id,
		Address: strings.TrimSpace(address),
	}

	return wallet, validator.Validate(wallet)
}

// StartWatching adds the wallet and persists the set. Adding a wallet that
// is already watched, under any address case, returns the stored entry
// without saving.
//
// The set is reloaded from storage first, so entries written by another
// process since the last load are kept.
func (s *service) StartWatching(ctx context.Context, chainID, address string) (WalletIdentifier, error) {
	wallet, err := s.buildWalletIdentifier(chainID, address)
	if err != nil {
		return WalletIdentifier{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.reload(ctx); err != nil {
		return WalletIdentifier{}, err
	}

	if existing, ok := s.wallets[wallet.key()]; ok {
		return existing, nil
	}

	s.wallets.add(wallet)
	if err := s.save(ctx); err != nil {
		delete(s.wallets, wallet.key())
		return WalletIdentifier{}, err
	}

	return wallet, nil
}

// StopWatching removes the wallet, matching its address case-insensitively,
// and persists the set. It returns ErrWalletNotWatched, without touching
// storage, when the wallet is absent. Like StartWatching it reloads the set
// from storage first.
func (s *service) StopWatching(ctx context.Context, chainID, address string) (WalletIdentifier, error) {
	wallet, err := s.buildWalletIdentifier(chainID, address)
	if err != nil {
		return WalletIdentifier{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.reload(ctx); err != nil {
		return WalletIdentifier{}, err
	}

	existing, ok := s.wallets[wallet.key()]
	if !ok {
		return wallet, ErrWalletNotWatched
	}

	delete(s.wallets, wallet.key())
	if err := s.save(ctx); err != nil {
		s.wallets.add(existing)
		return WalletIdentifier{}, err
	}

	return existing, nil
}

// ListWallets returns the watched wallets in order, optionally restricted to one chain.
func (s *service) ListWallets(_ context.Context, chainID string) ([]WalletIdentifier, error) {
	var filter chain.ID
	if chainID != "" {
		id, err := s.chains.Parse(chainID)
		if err != nil {
			return nil, err
		}
		filter = id
	}

	wallets := s.WatchedWallets()
	if filter == "" {
		return wallets, nil
	}

	filtered := wallets[:0]
	for _, w := range wallets {
		if w.Chain == filter {
			filtered = append(filtered, w)
		}
	}
	return filtered, nil
}
