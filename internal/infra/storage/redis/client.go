// Package redis stores watched wallets and scan watermarks in Redis, so
// several bot replicas can share state.
package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key written by the bot.
const keyPrefix = "walletbot"

type client struct {
	conn *redis.Client
}

func (c *client) Close() error {
	return c.conn.Close()
}

// NewClient connects to Redis and pings it before returning.
func NewClient(ctx context.Context, addr, username, password string, db int) (*client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &client{
		conn: conn,
	}, nil
}
