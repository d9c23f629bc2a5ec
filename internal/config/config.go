// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/validator"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Reader kinds.
const (
	ReaderRPC      = "rpc"
	ReaderExplorer = "explorer"
)

// Store backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

var (
	// ErrMissingBotToken is returned by RequireBot when TELEGRAM_BOT_TOKEN is unset.
	ErrMissingBotToken = errors.New("TELEGRAM_BOT_TOKEN is required")

	// ErrMissingRPCURL is returned by RequireReaders when an enabled chain
	// uses the rpc reader without an endpoint.
	ErrMissingRPCURL = errors.New("rpc reader requires an endpoint")
)

// defaultExplorerConfirmations is how far behind the head explorer readers
// stop when <CHAIN>_CONFIRMATIONS is unset. Explorer indexers trail the node.
const defaultExplorerConfirmations = 5

type (
	// ChainConfig configures how one chain is read and priced.
	ChainConfig struct {
		Reader          string          `envconfig:"READER" validate:"omitempty,oneof=rpc explorer"`
		RPCURL          string          `envconfig:"RPC_URL"`
		ExplorerAPIURL  string          `envconfig:"EXPLORER_API_URL"`
		ExplorerAPIKey  string          `envconfig:"EXPLORER_API_KEY"`
		FallbackUSDRate decimal.Decimal `envconfig:"FALLBACK_USD_RATE"`

		// Confirmations is how many blocks behind the head each cycle stops.
		// -1 picks the reader default.
		Confirmations int `envconfig:"CONFIRMATIONS" default:"-1" validate:"gte=-1"`
	}

	RedisConfig struct {
		Addr     string `envconfig:"ADDR" default:"localhost:6379"`
		Username string `envconfig:"USERNAME"`
		Password string `envconfig:"PASSWORD"`
		DB       int    `envconfig:"DB" default:"0"`
	}

	CoinMarketCapConfig struct {
		APIKey  string `envconfig:"API_KEY"`
		BaseURL string `envconfig:"BASE_URL" default:"https://pro-api.coinmarketcap.com"`
	}

	HTTPConfig struct {
		Timeout  time.Duration `envconfig:"TIMEOUT" default:"10s"`
		RetryMax int           `envconfig:"RETRY_MAX" default:"2" validate:"gte=0"`
	}

	KafkaConfig struct {
		Brokers []string `envconfig:"BROKERS"`
		Topic   string   `envconfig:"TOPIC" default:"walletbot.transactions"`
	}

	TelemetryConfig struct {
		Enabled     bool   `envconfig:"ENABLED" default:"false"`
		Endpoint    string `envconfig:"ENDPOINT" default:"localhost:4317"`
		Insecure    bool   `envconfig:"INSECURE" default:"true"`
		ServiceName string `envconfig:"SERVICE_NAME" default:"walletbot"`
	}

	// Config is the full service configuration.
	Config struct {
		LogLevel              string          `envconfig:"LOG_LEVEL" default:"info"`
		TelegramBotToken      string          `envconfig:"TELEGRAM_BOT_TOKEN"`
		ScanInterval          time.Duration   `envconfig:"SCAN_INTERVAL" default:"60s" validate:"gt=0"`
		MinTransactionValue   decimal.Decimal `envconfig:"MIN_TRANSACTION_VALUE" default:"0.01"`
		NotifyDirections      []string        `envconfig:"NOTIFY_DIRECTIONS" default:"incoming,outgoing,self" validate:"min=1,dive,oneof=incoming outgoing self"`
		SupportedChains       []string        `envconfig:"SUPPORTED_CHAINS" default:"eth,bnb" validate:"min=1"`
		StoreBackend          string          `envconfig:"STORE_BACKEND" default:"file" validate:"oneof=file redis"`
		DataDir               string          `envconfig:"DATA_DIR" default:"."`
		ScanHeadRetryAttempts uint            `envconfig:"SCAN_HEAD_RETRY_ATTEMPTS" default:"3" validate:"gte=1"`
		ScanStartAtHead       bool            `envconfig:"SCAN_START_AT_HEAD" default:"false"`

		Redis         RedisConfig         `envconfig:"REDIS"`
		CoinMarketCap CoinMarketCapConfig `envconfig:"COINMARKETCAP"`
		HTTP          HTTPConfig          `envconfig:"HTTP"`
		Kafka         KafkaConfig         `envconfig:"KAFKA"`
		Telemetry     TelemetryConfig     `envconfig:"TELEMETRY"`

		ETH ChainConfig `envconfig:"ETH"`
		BNB ChainConfig `envconfig:"BNB"`
	}
)

// chainDefaults fills per-chain settings left empty in the environment.
var chainDefaults = map[chain.ID]ChainConfig{
	chain.Ethereum.ID: {
		Reader:          ReaderRPC,
		ExplorerAPIURL:  "https://api.etherscan.io/api",
		FallbackUSDRate: chain.Ethereum.FallbackUSDRate,
	},
	chain.BNBSmartChain.ID: {
		Reader:          ReaderExplorer,
		RPCURL:          "https://bsc-dataseed.binance.org/",
		ExplorerAPIURL:  "https://api.bscscan.com/api",
		FallbackUSDRate: chain.BNBSmartChain.FallbackUSDRate,
	},
}

func (c ChainConfig) withDefaults(d ChainConfig) ChainConfig {
	if c.Reader == "" {
		c.Reader = d.Reader
	}
	if c.RPCURL == "" {
		c.RPCURL = d.RPCURL
	}
	if c.ExplorerAPIURL == "" {
		c.ExplorerAPIURL = d.ExplorerAPIURL
	}
	if c.FallbackUSDRate.IsZero() {
		c.FallbackUSDRate = d.FallbackUSDRate
	}
	if c.Confirmations == -1 {
		c.Confirmations = 0
		if c.Reader == ReaderExplorer {
			c.Confirmations = defaultExplorerConfirmations
		}
	}
	return c
}

// Load reads an optional .env file from the working directory and then the
// process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	cfg.ETH = cfg.ETH.withDefaults(chainDefaults[chain.Ethereum.ID])
	cfg.BNB = cfg.BNB.withDefaults(chainDefaults[chain.BNBSmartChain.ID])

	for i, id := range cfg.SupportedChains {
		cfg.SupportedChains[i] = strings.ToLower(strings.TrimSpace(id))
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	if _, err := cfg.Chains(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Chain returns the settings of a built-in chain.
func (c Config) Chain(id chain.ID) (ChainConfig, error) {
	switch id {
	case chain.Ethereum.ID:
		return c.ETH, nil
	case chain.BNBSmartChain.ID:
		return c.BNB, nil
	}

	return ChainConfig{}, fmt.Errorf("%w: %s", chain.ErrUnsupportedChain, id)
}

// Chains returns the enabled chain definitions with configured fallback
// rates applied.
func (c Config) Chains() ([]chain.Chain, error) {
	known := chain.NewRegistry(chain.Known()...)

	chains := make([]chain.Chain, 0, len(c.SupportedChains))
	for _, raw := range c.SupportedChains {
		def, err := known.Lookup(chain.ID(raw))
		if err != nil {
			return nil, err
		}

		cc, err := c.Chain(def.ID)
		if err != nil {
			return nil, err
		}

		if !cc.FallbackUSDRate.IsZero() {
			def.FallbackUSDRate = cc.FallbackUSDRate
		}

		chains = append(chains, def)
	}

	return chains, nil
}

// RequireReaders reports whether every enabled chain can be read. Only the
// scan loop needs this, so offline wallet commands work without endpoints.
func (c Config) RequireReaders() error {
	for _, raw := range c.SupportedChains {
		id := chain.ID(raw)

		cc, err := c.Chain(id)
		if err != nil {
			return err
		}

		if cc.Reader == ReaderRPC && cc.RPCURL == "" {
			return fmt.Errorf("%w: chain %s needs %s_RPC_URL", ErrMissingRPCURL, id, strings.ToUpper(raw))
		}
	}
	return nil
}

// RequireBot reports whether the settings needed to run the chat bot are present.
func (c Config) RequireBot() error {
	if c.TelegramBotToken == "" {
		return ErrMissingBotToken
	}
	return nil
}
