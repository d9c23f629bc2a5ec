// Package scanloop periodically scans every chain with watched wallets,
// turns qualifying transactions into notifications and fans them out to all
// subscribers.
package scanloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/resilience/retry"
	"github.com/gabapcia/walletbot/internal/pkg/types"
	"github.com/gabapcia/walletbot/internal/pricing"
	"github.com/gabapcia/walletbot/internal/subscribers"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrServiceAlreadyStarted is returned if Start is called twice without Close.
var ErrServiceAlreadyStarted = errors.New("service already started")

const defaultInterval = 60 * time.Second

// WalletSource provides the watched wallets.
type WalletSource interface {
	// Load refreshes the set from its storage. It runs at the start of
	// every cycle so wallets registered by another process are scanned.
	Load(ctx context.Context) error

	// WatchedWallets returns a snapshot of the set.
	WatchedWallets() []walletregistry.WalletIdentifier
}

// SubscriberSource provides the notification recipients.
type SubscriberSource interface {
	List() []subscribers.Subscriber
}

// Service runs the scan loop.
type Service interface {
	// Start runs a first cycle immediately and then one per interval until
	// Close is called or ctx is done.
	//
	// Parameters:
	//   - ctx: context bounding the lifetime of the loop.
	//
	// Returns:
	//   - ErrServiceAlreadyStarted if the loop is already running.
	Start(ctx context.Context) error

	// ScanOnce runs a single cycle synchronously. Chain failures are logged
	// and recorded, never returned.
	//
	// Parameters:
	//   - ctx: context for cancellation; a cancelled cycle leaves the
	//     watermark of the interrupted chain untouched.
	ScanOnce(ctx context.Context)

	// Close stops the loop and waits for the running cycle to return.
	Close()
}

type closeFunc func()

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc

	networks    map[chain.ID]Network
	wallets     WalletSource
	subscribers SubscriberSource
	sender      MessageSender

	prices            pricing.Service
	checkpointStorage CheckpointStorage
	retry             retry.Retry
	publisher         EventPublisher
	interval          time.Duration
	threshold         decimal.Decimal
	directions        types.Set[Direction]
	startAtHead       bool

	tracer  trace.Tracer
	metrics instruments
}

var _ Service = (*service)(nil)

func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.run(ctx)
	}()

	s.closeFunc = func() {
		cancel()
		<-done
	}
	s.isStarted = true
	return nil
}

func (s *service) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.ScanOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.isStarted = false
	s.closeFunc = nil
}

type config struct {
	prices            pricing.Service
	checkpointStorage CheckpointStorage
	retry             retry.Retry
	publisher         EventPublisher
	interval          time.Duration
	threshold         decimal.Decimal
	directions        []Direction
	startAtHead       bool
	meterProvider     metric.MeterProvider
	tracerProvider    trace.TracerProvider
}

// Option configures the scan loop.
type Option func(*config)

// New creates the scan loop. Defaults: 60s interval, 0.01 threshold, every
// direction, static fallback prices, no checkpoint persistence, no retry and
// the global OpenTelemetry providers.
//
// Parameters:
//   - networks: the chains that can be scanned, each with its reader.
//   - wallets: source of the watched wallets, reloaded every cycle.
//   - subs: source of the notification recipients.
//   - sender: delivers the rendered messages.
//   - opts: optional settings.
//
// Returns:
//   - The scan loop, not yet started.
//   - An error if the metric instruments cannot be created.
func New(networks []Network, wallets WalletSource, subs SubscriberSource, sender MessageSender, opts ...Option) (*service, error) {
	cfg := config{
		prices:            pricing.New(nil),
		checkpointStorage: nopCheckpoint{},
		interval:          defaultInterval,
		threshold:         decimal.RequireFromString("0.01"),
		directions:        AllDirections,
		meterProvider:     otel.GetMeterProvider(),
		tracerProvider:    otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics, err := newInstruments(cfg.meterProvider)
	if err != nil {
		return nil, err
	}

	byID := make(map[chain.ID]Network, len(networks))
	for _, n := range networks {
		byID[n.Chain.ID] = n
	}

	return &service{
		networks:          byID,
		wallets:           wallets,
		subscribers:       subs,
		sender:            sender,
		prices:            cfg.prices,
		checkpointStorage: cfg.checkpointStorage,
		retry:             cfg.retry,
		publisher:         cfg.publisher,
		interval:          cfg.interval,
		threshold:         cfg.threshold,
		directions:        types.NewSet(cfg.directions...),
		startAtHead:       cfg.startAtHead,
		tracer:            cfg.tracerProvider.Tracer(instrumentationName),
		metrics:           metrics,
	}, nil
}

// WithPricing sets the USD rate source.
func WithPricing(p pricing.Service) Option {
	return func(c *config) {
		c.prices = p
	}
}

// WithCheckpointStorage sets where watermarks are persisted.
func WithCheckpointStorage(cs CheckpointStorage) Option {
	return func(c *config) {
		c.checkpointStorage = cs
	}
}

// WithRetry retries chain head lookups.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// WithEventPublisher publishes every qualifying event.
func WithEventPublisher(p EventPublisher) Option {
	return func(c *config) {
		c.publisher = p
	}
}

// WithInterval sets the time between cycle starts. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithThreshold sets the minimum amount, in whole coins, a transaction must reach.
func WithThreshold(minAmount decimal.Decimal) Option {
	return func(c *config) {
		c.threshold = minAmount
	}
}

// WithDirections restricts notifications to the given directions.
func WithDirections(d ...Direction) Option {
	return func(c *config) {
		c.directions = d
	}
}

// WithStartAtHead makes a chain without a stored watermark start from its
// current head instead of scanning from the default watermark.
func WithStartAtHead(b bool) Option {
	return func(c *config) {
		c.startAtHead = b
	}
}

// WithMeterProvider sets the provider of the cycle, notification and failure
// counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// WithTracerProvider sets the provider of the cycle and per-chain spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}
