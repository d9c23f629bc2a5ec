package redis

import (
	"context"

	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/walletregistry"
)

// walletsKey holds the watched wallets as a set of "chain:address" members.
const walletsKey = keyPrefix + ":wallets"

// LoadWallets implements walletregistry.WalletStorage. Members that do not
// parse are logged and skipped.
func (c *client) LoadWallets(ctx context.Context) ([]walletregistry.WalletIdentifier, error) {
	members, err := c.conn.SMembers(ctx, walletsKey).Result()
	if err != nil {
		return nil, err
	}

	return decodeWallets(ctx, members), nil
}

// SaveWallets replaces the whole set in a single MULTI/EXEC transaction.
func (c *client) SaveWallets(ctx context.Context, wallets []walletregistry.WalletIdentifier) error {
	members := encodeWallets(wallets)

	pipe := c.conn.TxPipeline()
	pipe.Del(ctx, walletsKey)
	if len(members) > 0 {
		pipe.SAdd(ctx, walletsKey, members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func encodeWallets(wallets []walletregistry.WalletIdentifier) []any {
	members := make([]any, len(wallets))
	for i, w := range wallets {
		members[i] = w.String()
	}
	return members
}

func decodeWallets(ctx context.Context, members []string) []walletregistry.WalletIdentifier {
	wallets := make([]walletregistry.WalletIdentifier, 0, len(members))
	for _, m := range members {
		w, err := walletregistry.ParseIdentifier(m)
		if err != nil {
			logger.Warn(ctx, "skipping malformed wallet entry", "redis.key", walletsKey, "error", err)
			continue
		}
		wallets = append(wallets, w)
	}
	return wallets
}

var _ walletregistry.WalletStorage = (*client)(nil)
