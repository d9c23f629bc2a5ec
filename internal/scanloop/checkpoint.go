package scanloop

import (
	"context"
	"errors"

	"github.com/gabapcia/walletbot/internal/chain"
)

// defaultWatermark is the last scanned height assumed for a chain that has
// never been scanned.
const defaultWatermark uint64 = 1

// ErrNoCheckpointFound is returned by LoadLatestCheckpoint when nothing was
// saved yet for the chain.
var ErrNoCheckpointFound = errors.New("no checkpoint found for chain")

// CheckpointStorage persists the last fully scanned block height per chain.
type CheckpointStorage interface {
	// SaveCheckpoint overwrites the watermark of the chain.
	SaveCheckpoint(ctx context.Context, chainID chain.ID, height uint64) error

	// LoadLatestCheckpoint returns the watermark of the chain or ErrNoCheckpointFound.
	LoadLatestCheckpoint(ctx context.Context, chainID chain.ID) (uint64, error)
}

// nopCheckpoint stores nothing, so every cycle starts from the default watermark.
type nopCheckpoint struct{}

func (nopCheckpoint) SaveCheckpoint(context.Context, chain.ID, uint64) error {
	return nil
}

func (nopCheckpoint) LoadLatestCheckpoint(context.Context, chain.ID) (uint64, error) {
	return 0, ErrNoCheckpointFound
}
