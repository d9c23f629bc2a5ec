package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/commands"
	"github.com/gabapcia/walletbot/internal/config"
	"github.com/gabapcia/walletbot/internal/handlers/cli"
	"github.com/gabapcia/walletbot/internal/infra/blockchain/evm"
	"github.com/gabapcia/walletbot/internal/infra/blockchain/explorer"
	"github.com/gabapcia/walletbot/internal/infra/events/kafka"
	"github.com/gabapcia/walletbot/internal/infra/price/coinmarketcap"
	"github.com/gabapcia/walletbot/internal/infra/storage/file"
	"github.com/gabapcia/walletbot/internal/infra/storage/redis"
	"github.com/gabapcia/walletbot/internal/infra/telegram"
	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/pkg/resilience/retry"
	"github.com/gabapcia/walletbot/internal/pkg/telemetry"
	transporthttp "github.com/gabapcia/walletbot/internal/pkg/transport/http"
	"github.com/gabapcia/walletbot/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/walletbot/internal/pricing"
	"github.com/gabapcia/walletbot/internal/relay"
	"github.com/gabapcia/walletbot/internal/scanloop"
	"github.com/gabapcia/walletbot/internal/subscribers"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/hashicorp/go-retryablehttp"
)

const telegramPollTimeout = time.Minute

// store persists both the watched wallets and the scan watermarks.
type store interface {
	walletregistry.WalletStorage
	scanloop.CheckpointStorage
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "walletbot: invalid configuration:", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "walletbot: init logger:", err)
		os.Exit(1)
	}

	err = run(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "walletbot stopped with an error", "error", err)
	}

	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTelemetry := telemetry.Noop
	if cfg.Telemetry.Enabled {
		opts := []telemetry.Option{telemetry.WithEndpoint(cfg.Telemetry.Endpoint)}
		if cfg.Telemetry.Insecure {
			opts = append(opts, telemetry.WithInsecure())
		}

		shutdown, err := telemetry.Init(ctx, cfg.Telemetry.ServiceName, opts...)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		shutdownTelemetry = shutdown
	}
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "telemetry shutdown failed", "error", err)
		}
	}()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	chains, err := cfg.Chains()
	if err != nil {
		return err
	}
	registry := chain.NewRegistry(chains...)

	wallets := walletregistry.New(registry, st)
	if err := wallets.Load(ctx); err != nil {
		return fmt.Errorf("load watched wallets: %w", err)
	}

	httpClient := transporthttp.NewClient(
		transporthttp.WithTimeout(cfg.HTTP.Timeout),
		transporthttp.WithRetryMax(cfg.HTTP.RetryMax),
	)

	bot := &lazyRelay{build: func() (relay.Service, func(), error) {
		return newRelay(ctx, cfg, chains, registry, wallets, st, httpClient)
	}}

	return cli.Run(ctx, wallets, bot)
}

func openStore(ctx context.Context, cfg config.Config) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		c, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}

		return c, func() { _ = c.Close() }, nil
	default:
		s, err := file.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}

		return s, func() {}, nil
	}
}

// newRelay builds everything the start command needs. The returned func
// releases resources that outlive the relay.
func newRelay(
	ctx context.Context,
	cfg config.Config,
	chains []chain.Chain,
	registry *chain.Registry,
	wallets walletregistry.Service,
	st store,
	httpClient *retryablehttp.Client,
) (relay.Service, func(), error) {
	if err := cfg.RequireBot(); err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireReaders(); err != nil {
		return nil, nil, err
	}

	networks, err := newNetworks(cfg, chains, httpClient)
	if err != nil {
		return nil, nil, err
	}

	var quotes pricing.QuoteProvider
	if cfg.CoinMarketCap.APIKey != "" {
		quotes = coinmarketcap.NewClient(httpClient, cfg.CoinMarketCap.BaseURL, cfg.CoinMarketCap.APIKey)
	} else {
		logger.Info(ctx, "COINMARKETCAP_API_KEY not set, using fallback USD rates")
	}

	subs := subscribers.New()
	handler := commands.New(wallets, subs, registry)

	pollClient := transporthttp.NewClient(
		transporthttp.WithTimeout(telegramPollTimeout+cfg.HTTP.Timeout),
		transporthttp.WithRetryMax(cfg.HTTP.RetryMax),
	)
	tg, err := telegram.New(cfg.TelegramBotToken, handler,
		telegram.WithPollTimeout(telegramPollTimeout),
		telegram.WithHTTPClient(pollClient.StandardClient()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init telegram bot: %w", err)
	}

	directions := make([]scanloop.Direction, len(cfg.NotifyDirections))
	for i, d := range cfg.NotifyDirections {
		directions[i] = scanloop.Direction(d)
	}

	opts := []scanloop.Option{
		scanloop.WithPricing(pricing.New(quotes)),
		scanloop.WithCheckpointStorage(st),
		scanloop.WithRetry(retry.New(retry.WithAttempts(cfg.ScanHeadRetryAttempts), retry.WithName("latest_block"))),
		scanloop.WithInterval(cfg.ScanInterval),
		scanloop.WithThreshold(cfg.MinTransactionValue),
		scanloop.WithDirections(directions...),
		scanloop.WithStartAtHead(cfg.ScanStartAtHead),
	}

	release := func() {}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts = append(opts, scanloop.WithEventPublisher(publisher))
		release = func() {
			if err := publisher.Close(); err != nil {
				logger.Warn(ctx, "kafka publisher close failed", "error", err)
			}
		}
	}

	scanner, err := scanloop.New(networks, wallets, subs, tg, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}

	return relay.New(scanner, tg), release, nil
}

func newNetworks(cfg config.Config, chains []chain.Chain, httpClient *retryablehttp.Client) ([]scanloop.Network, error) {
	networks := make([]scanloop.Network, 0, len(chains))
	for _, c := range chains {
		cc, err := cfg.Chain(c.ID)
		if err != nil {
			return nil, err
		}

		var reader scanloop.Blockchain
		switch cc.Reader {
		case config.ReaderExplorer:
			reader = explorer.NewClient(httpClient, cc.ExplorerAPIURL, cc.ExplorerAPIKey)
		default:
			reader = evm.NewClient(jsonrpc.NewClient(httpClient, cc.RPCURL))
		}

		networks = append(networks, scanloop.Network{
			Chain:         c,
			Blockchain:    reader,
			Confirmations: uint64(cc.Confirmations),
		})
	}
	return networks, nil
}
