// Package evm reads EVM-compatible chains block by block over JSON-RPC.
package evm

import (
	"strings"
	"sync"

	"github.com/gabapcia/walletbot/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/walletbot/internal/scanloop"
)

const defaultBlockCacheSize = 256

type client struct {
	conn  jsonrpc.Client
	cache *blockCache
}

var _ scanloop.Blockchain = (*client)(nil)

type config struct {
	blockCacheSize int
}

// Option configures the client.
type Option func(*config)

// WithBlockCacheSize sets how many recent blocks are kept so that scanning
// several wallets over the same range fetches each block once. Zero
// disables caching.
func WithBlockCacheSize(n int) Option {
	return func(c *config) {
		c.blockCacheSize = n
	}
}

// NewClient creates a reader on top of a JSON-RPC connection.
func NewClient(conn jsonrpc.Client, opts ...Option) *client {
	cfg := config{blockCacheSize: defaultBlockCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &client{
		conn:  conn,
		cache: newBlockCache(cfg.blockCacheSize),
	}
}

func involves(tx TransactionResponse, address string) bool {
	return strings.EqualFold(tx.From, address) || (tx.To != "" && strings.EqualFold(tx.To, address))
}

// blockCache keeps the most recently inserted blocks, evicting the oldest.
type blockCache struct {
	mu    sync.Mutex
	size  int
	order []uint64
	byNum map[uint64]BlockResponse
}

func newBlockCache(size int) *blockCache {
	return &blockCache{size: size, byNum: make(map[uint64]BlockResponse)}
}

func (c *blockCache) get(height uint64) (BlockResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.byNum[height]
	return b, ok
}

func (c *blockCache) put(height uint64, b BlockResponse) {
	if c.size <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byNum[height]; ok {
		return
	}

	if len(c.order) >= c.size {
		delete(c.byNum, c.order[0])
		c.order = c.order[1:]
	}

	c.order = append(c.order, height)
	c.byNum[height] = b
}
