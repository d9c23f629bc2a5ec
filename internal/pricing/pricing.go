// Package pricing converts native coin amounts into USD.
package pricing

import (
	"context"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/logger"

	"github.com/shopspring/decimal"
)

// QuoteProvider returns the current USD price of one unit of symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Service resolves the USD rate of a chain's native coin. It never fails:
// when no live quote is available the chain's fallback rate is returned.
type Service interface {
	USDRate(ctx context.Context, c chain.Chain) decimal.Decimal
}

type service struct {
	provider QuoteProvider
}

var _ Service = (*service)(nil)

// New returns a Service backed by provider. A nil provider turns the
// service into a static multiplier using each chain's fallback rate.
func New(provider QuoteProvider) *service {
	return &service{provider: provider}
}

func (s *service) USDRate(ctx context.Context, c chain.Chain) decimal.Decimal {
	if s.provider == nil {
		return c.FallbackUSDRate
	}

	rate, err := s.provider.Quote(ctx, c.Symbol)
	if err != nil {
		logger.Warn(ctx, "price quote failed, using fallback rate",
			"chain.id", c.ID,
			"price.fallback", c.FallbackUSDRate.String(),
			"error", err,
		)
		return c.FallbackUSDRate
	}

	if !rate.IsPositive() {
		logger.Warn(ctx, "price quote is not positive, using fallback rate",
			"chain.id", c.ID,
			"price.quote", rate.String(),
		)
		return c.FallbackUSDRate
	}

	return rate
}
