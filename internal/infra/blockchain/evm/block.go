package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/gabapcia/walletbot/internal/scanloop"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	// TransactionResponse holds the fields of an eth_getBlockByNumber
	// transaction object that the scanner uses.
	TransactionResponse struct {
		Hash        string          `json:"hash"`
		From        string          `json:"from"`
		To          string          `json:"to"` // null for contract creations
		Value       *hexutil.Big    `json:"value"`
		BlockNumber *hexutil.Uint64 `json:"blockNumber"`
	}

	// BlockResponse is a block returned with full transaction objects.
	BlockResponse struct {
		Hash         string                `json:"hash"`
		Number       hexutil.Uint64        `json:"number"`
		Transactions []TransactionResponse `json:"transactions"`
	}
)

func (t TransactionResponse) toTransaction(height uint64) scanloop.Transaction {
	value := new(big.Int)
	if t.Value != nil {
		value = t.Value.ToInt()
	}

	if t.BlockNumber != nil {
		height = uint64(*t.BlockNumber)
	}

	return scanloop.Transaction{
		Hash:        t.Hash,
		From:        t.From,
		To:          t.To,
		Value:       value,
		BlockNumber: height,
	}
}

// LatestBlockNumber implements scanloop.Blockchain using eth_blockNumber.
func (c *client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	data, err := c.conn.Fetch(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}

	var height hexutil.Uint64
	if err := json.Unmarshal(data, &height); err != nil {
		return 0, fmt.Errorf("decode block number: %w", err)
	}

	return uint64(height), nil
}

func (c *client) getBlockByNumber(ctx context.Context, height uint64) (BlockResponse, error) {
	if block, ok := c.cache.get(height); ok {
		return block, nil
	}

	data, err := c.conn.Fetch(ctx, "eth_getBlockByNumber", hexutil.EncodeUint64(height), true)
	if err != nil {
		return BlockResponse{}, err
	}

	var block BlockResponse
	if err := json.Unmarshal(data, &block); err != nil {
		return BlockResponse{}, fmt.Errorf("decode block %d: %w", height, err)
	}

	c.cache.put(height, block)
	return block, nil
}

// FetchWalletTransactions implements scanloop.Blockchain by walking every
// block in [from, to] and keeping the transactions sent from or to address.
// The first failing block aborts the walk.
func (c *client) FetchWalletTransactions(ctx context.Context, address string, from, to uint64) ([]scanloop.Transaction, error) {
	var txs []scanloop.Transaction
	for height := from; height <= to; height++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := c.getBlockByNumber(ctx, height)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", height, err)
		}

		for _, tx := range block.Transactions {
			if !involves(tx, address) {
				continue
			}
			txs = append(txs, tx.toTransaction(height))
		}

		// Guards against wrap-around when to is the max height.
		if height == to {
			break
		}
	}

	return txs, nil
}
