package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/pkg/types"
	"github.com/gabapcia/walletbot/internal/scanloop"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LatestBlockNumber implements scanloop.Blockchain through the explorer's
// eth_blockNumber proxy.
func (c *client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_blockNumber")

	var res proxyResponse
	if err := c.get(ctx, params, &res); err != nil {
		return 0, err
	}

	if res.Error != nil {
		return 0, fmt.Errorf("%w: [%d] %s", ErrExplorerError, res.Error.Code, res.Error.Message)
	}

	var height hexutil.Uint64
	if err := json.Unmarshal(res.Result, &height); err != nil {
		// Rate limit and key errors come back as a plain string result.
		return 0, fmt.Errorf("%w: %s", ErrExplorerError, string(res.Result))
	}

	return uint64(height), nil
}

// FetchWalletTransactions implements scanloop.Blockchain with action=txlist
// requests bounded by startblock and endblock. Failed transactions are
// dropped.
//
// A full page means the range may hold more entries, so the next page starts
// again at the block of the last entry and already returned hashes are
// skipped. ErrResultTruncated is returned when one block fills a whole page.
func (c *client) FetchWalletTransactions(ctx context.Context, address string, from, to uint64) ([]scanloop.Transaction, error) {
	if from > to {
		return nil, nil
	}

	var (
		txs  []scanloop.Transaction
		seen = types.NewSet[string]()
	)
	for start := from; ; {
		entries, err := c.txlist(ctx, address, start, to)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if seen.Has(entry.Hash) {
				continue
			}
			seen.Add(entry.Hash)

			if entry.IsError == "1" {
				continue
			}

			tx, err := entry.toTransaction()
			if err != nil {
				logger.Warn(ctx, "skipping malformed explorer transaction", "wallet.address", address, "error", err)
				continue
			}

			txs = append(txs, tx)
		}

		if len(entries) < c.pageSize {
			return txs, nil
		}

		first, last := entries[0].BlockNumber, entries[len(entries)-1].BlockNumber
		if first == last {
			return nil, fmt.Errorf("%w: wallet %s has more than %d transactions in block %s", ErrResultTruncated, address, c.pageSize, last)
		}

		next, err := strconv.ParseUint(last, 10, 64)
		if err != nil || next <= start {
			return nil, fmt.Errorf("%w: cannot page past block %q", ErrResultTruncated, last)
		}
		start = next
	}
}

// txlist requests a single page of the wallet's transactions in ascending
// order.
func (c *client) txlist(ctx context.Context, address string, from, to uint64) ([]TransactionResponse, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", strconv.FormatUint(from, 10))
	params.Set("endblock", strconv.FormatUint(to, 10))
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(c.pageSize))
	params.Set("sort", "asc")

	var res accountResponse
	if err := c.get(ctx, params, &res); err != nil {
		return nil, err
	}

	if res.Status != "1" {
		if res.Message == noTransactionsMessage {
			return nil, nil
		}

		var detail string
		_ = json.Unmarshal(res.Result, &detail)
		return nil, fmt.Errorf("%w: %s: %s", ErrExplorerError, res.Message, detail)
	}

	var entries []TransactionResponse
	if err := json.Unmarshal(res.Result, &entries); err != nil {
		return nil, fmt.Errorf("decode txlist: %w", err)
	}
	return entries, nil
}
