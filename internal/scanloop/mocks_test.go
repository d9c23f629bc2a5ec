package scanloop

import (
	"context"
	"sync"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/subscribers"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

type BlockchainMock struct {
	mock.Mock
}

func NewBlockchainMock(t testingT) *BlockchainMock {
	m := &BlockchainMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BlockchainMock) LatestBlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *BlockchainMock) FetchWalletTransactions(ctx context.Context, address string, from, to uint64) ([]Transaction, error) {
	args := m.Called(ctx, address, from, to)

	var txs []Transaction
	if v := args.Get(0); v != nil {
		txs = v.([]Transaction)
	}
	return txs, args.Error(1)
}

type CheckpointStorageMock struct {
	mock.Mock
}

func NewCheckpointStorageMock(t testingT) *CheckpointStorageMock {
	m := &CheckpointStorageMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *CheckpointStorageMock) SaveCheckpoint(ctx context.Context, chainID chain.ID, height uint64) error {
	return m.Called(ctx, chainID, height).Error(0)
}

func (m *CheckpointStorageMock) LoadLatestCheckpoint(ctx context.Context, chainID chain.ID) (uint64, error) {
	args := m.Called(ctx, chainID)
	return args.Get(0).(uint64), args.Error(1)
}

type EventPublisherMock struct {
	mock.Mock
}

func NewEventPublisherMock(t testingT) *EventPublisherMock {
	m := &EventPublisherMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *EventPublisherMock) Publish(ctx context.Context, event TransactionEvent) error {
	return m.Called(ctx, event).Error(0)
}

// recordingSender collects deliveries and fails for the chats in failFor.
type recordingSender struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[int64][]string), failFor: make(map[int64]error)}
}

func (r *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failFor[chatID]; err != nil {
		return err
	}
	r.sent[chatID] = append(r.sent[chatID], text)
	return nil
}

func (r *recordingSender) messages(chatID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[chatID]
}

func (r *recordingSender) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, msgs := range r.sent {
		n += len(msgs)
	}
	return n
}

type walletList []walletregistry.WalletIdentifier

func (w walletList) Load(context.Context) error {
	return nil
}

func (w walletList) WatchedWallets() []walletregistry.WalletIdentifier {
	return w
}

// reloadingWallets serves whatever stored holds at the time of the last Load.
type reloadingWallets struct {
	mu      sync.Mutex
	stored  []walletregistry.WalletIdentifier
	loaded  []walletregistry.WalletIdentifier
	loadErr error
}

func (r *reloadingWallets) store(w ...walletregistry.WalletIdentifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = w
}

func (r *reloadingWallets) Load(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return r.loadErr
	}
	r.loaded = r.stored
	return nil
}

func (r *reloadingWallets) WatchedWallets() []walletregistry.WalletIdentifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// countingPrices returns a fixed rate and counts lookups.
type countingPrices struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	calls int
}

func (p *countingPrices) USDRate(context.Context, chain.Chain) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.rate
}

// failingQuotes is a pricing.QuoteProvider that always fails.
type failingQuotes struct{}

func (failingQuotes) Quote(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, context.DeadlineExceeded
}

func newSubscribers(chatIDs ...int64) *subscribers.Registry {
	r := subscribers.New()
	for i, chatID := range chatIDs {
		r.Register(int64(i+1), chatID)
	}
	return r
}
