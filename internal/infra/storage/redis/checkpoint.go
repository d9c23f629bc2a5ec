package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/scanloop"

	"github.com/redis/go-redis/v9"
)

// checkpointKey returns "walletbot:checkpoint:<chain>".
func checkpointKey(id chain.ID) string {
	return fmt.Sprintf("%s:checkpoint:%s", keyPrefix, id)
}

// SaveCheckpoint stores the height with no expiration.
func (c *client) SaveCheckpoint(ctx context.Context, chainID chain.ID, height uint64) error {
	return c.conn.Set(ctx, checkpointKey(chainID), strconv.FormatUint(height, 10), 0).Err()
}

// LoadLatestCheckpoint returns scanloop.ErrNoCheckpointFound when the key is missing.
func (c *client) LoadLatestCheckpoint(ctx context.Context, chainID chain.ID) (uint64, error) {
	height, err := c.conn.Get(ctx, checkpointKey(chainID)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = scanloop.ErrNoCheckpointFound
		}

		return 0, err
	}

	return height, nil
}

var _ scanloop.CheckpointStorage = (*client)(nil)
