package scanloop

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/pkg/types"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ScanOnce scans every chain that has at least one watched wallet. A failing
// chain is logged and does not affect the others.
func (s *service) ScanOnce(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "scanloop.cycle")
	defer span.End()

	if err := s.wallets.Load(ctx); err != nil {
		logger.Warn(ctx, "failed to reload watched wallets, scanning the known set", "error", err)
	}

	byChain := types.NewDefaultMap[chain.ID](func() []walletregistry.WalletIdentifier { return nil })
	for _, w := range s.wallets.WatchedWallets() {
		byChain.Set(w.Chain, append(byChain.Get(w.Chain), w))
	}

	groups := byChain.ToMap()
	for _, id := range slices.Sorted(maps.Keys(groups)) {
		if ctx.Err() != nil {
			return
		}

		network, ok := s.networks[id]
		if !ok {
			logger.Warn(ctx, "skipping wallets of a chain without reader", "chain.id", id, "wallets.count", len(groups[id]))
			continue
		}

		if err := s.scanChain(ctx, network, groups[id]); err != nil {
			span.RecordError(err, trace.WithAttributes(attribute.String("chain.id", string(id))))
			span.SetStatus(codes.Error, "chain scan failed")
			s.metrics.scanFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("chain.id", string(id))))
			logger.Error(ctx, "chain scan failed", "chain.id", id, "error", err)
		}
	}
}

// loadWatermark returns the stored watermark of the chain. found is false
// when nothing was stored yet.
func (s *service) loadWatermark(ctx context.Context, id chain.ID) (height uint64, found bool, err error) {
	height, err = s.checkpointStorage.LoadLatestCheckpoint(ctx, id)
	if errors.Is(err, ErrNoCheckpointFound) {
		return defaultWatermark, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return height, true, nil
}

func (s *service) latestBlockNumber(ctx context.Context, b Blockchain) (uint64, error) {
	if s.retry == nil {
		return b.LatestBlockNumber(ctx)
	}

	var head uint64
	err := s.retry.Execute(ctx, func() error {
		var err error
		head, err = b.LatestBlockNumber(ctx)
		return err
	})
	return head, err
}

// scanChain runs one cycle for a single chain, up to the head minus the
// network's confirmations. The watermark advances only after every wallet was
// scanned or given up on and every notification was attempted.
func (s *service) scanChain(ctx context.Context, network Network, wallets []walletregistry.WalletIdentifier) error {
	id := network.Chain.ID
	ctx = logger.Derive(ctx, "chain.id", id)

	ctx, span := s.tracer.Start(ctx, "scanloop.chain", trace.WithAttributes(attribute.String("chain.id", string(id))))
	defer span.End()

	last, found, err := s.loadWatermark(ctx, id)
	if err != nil {
		return err
	}

	head, err := s.latestBlockNumber(ctx, network.Blockchain)
	if err != nil {
		return err
	}
	head = network.scanHead(head)

	if !found && s.startAtHead {
		logger.Info(ctx, "no watermark stored, starting from chain head", "block.height", head)
		return s.saveWatermark(ctx, id, head)
	}

	if head <= last {
		logger.Debug(ctx, "no new blocks", "block.head", head, "block.watermark", last)
		return nil
	}

	from, to := last+1, head
	span.SetAttributes(
		attribute.Int64("block.from", int64(from)),
		attribute.Int64("block.to", int64(to)),
	)

	rate := s.lazyRate(ctx, network.Chain)
	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		txs, err := network.Blockchain.FetchWalletTransactions(ctx, wallet.Address, from, to)
		if err != nil {
			s.metrics.scanFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("chain.id", string(id))))
			logger.Error(ctx, "failed to fetch wallet transactions",
				"wallet.address", wallet.Address,
				"block.from", from,
				"block.to", to,
				"error", err,
			)
			continue
		}

		for _, tx := range txs {
			event, ok := s.qualify(network.Chain, wallet, tx, from, to)
			if !ok {
				continue
			}

			event.USDValue = event.Amount.Mul(rate())
			s.metrics.transactionsMatched.Add(ctx, 1, metric.WithAttributes(
				attribute.String("chain.id", string(id)),
				attribute.String("transaction.direction", string(event.Direction)),
			))

			s.dispatch(ctx, network.Chain, event)
		}
	}

	return s.saveWatermark(ctx, id, head)
}

func (s *service) saveWatermark(ctx context.Context, id chain.ID, height uint64) error {
	if err := s.checkpointStorage.SaveCheckpoint(ctx, id, height); err != nil {
		return err
	}

	s.metrics.watermark.Record(ctx, int64(height), metric.WithAttributes(attribute.String("chain.id", string(id))))
	logger.Debug(ctx, "watermark advanced", "block.height", height)
	return nil
}

// lazyRate returns a function that fetches the chain's USD rate on first use
// and reuses it for the rest of the cycle.
func (s *service) lazyRate(ctx context.Context, c chain.Chain) func() decimal.Decimal {
	var (
		once sync.Once
		rate decimal.Decimal
	)

	return func() decimal.Decimal {
		once.Do(func() {
			rate = s.prices.USDRate(ctx, c)
		})
		return rate
	}
}

// qualify applies the wallet, range, direction and threshold filters and
// builds the event without its USD value.
func (s *service) qualify(c chain.Chain, wallet walletregistry.WalletIdentifier, tx Transaction, from, to uint64) (TransactionEvent, bool) {
	if tx.BlockNumber != 0 && (tx.BlockNumber < from || tx.BlockNumber > to) {
		return TransactionEvent{}, false
	}

	direction, ok := directionOf(wallet, tx)
	if !ok || !s.directions.Has(direction) {
		return TransactionEvent{}, false
	}

	amount := c.Amount(tx.Value)
	if amount.LessThan(s.threshold) {
		return TransactionEvent{}, false
	}

	return TransactionEvent{
		Chain:       c.ID,
		Symbol:      c.Symbol,
		Wallet:      wallet.Address,
		Direction:   direction,
		Hash:        tx.Hash,
		From:        tx.From,
		To:          tx.To,
		RawValue:    tx.Value,
		Amount:      amount,
		BlockNumber: tx.BlockNumber,
		ExplorerURL: c.TxURL(tx.Hash),
	}, true
}

// dispatch sends the event to every subscriber concurrently and waits for
// all deliveries. Failures are logged and counted per subscriber.
func (s *service) dispatch(ctx context.Context, c chain.Chain, event TransactionEvent) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			logger.Error(ctx, "failed to publish transaction event", "transaction.hash", event.Hash, "error", err)
		}
	}

	text := formatMessage(c, event)
	attrs := metric.WithAttributes(attribute.String("chain.id", string(c.ID)))

	var wg sync.WaitGroup
	for _, sub := range s.subscribers.List() {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := s.sender.SendMessage(ctx, sub.ChatID, text); err != nil {
				s.metrics.notificationsFailed.Add(ctx, 1, attrs)
				logger.Error(ctx, "failed to deliver notification",
					"subscriber.user_id", sub.UserID,
					"subscriber.chat_id", sub.ChatID,
					"transaction.hash", event.Hash,
					"error", err,
				)
				return
			}

			s.metrics.notificationsSent.Add(ctx, 1, attrs)
		}()
	}
	wg.Wait()

	logger.Info(ctx, "transaction notified",
		"transaction.hash", event.Hash,
		"transaction.direction", event.Direction,
		"transaction.amount", event.Amount.String(),
		"wallet.address", event.Wallet,
	)
}
