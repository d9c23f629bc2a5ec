// Package coinmarketcap fetches USD quotes from the CoinMarketCap Pro API.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabapcia/walletbot/internal/pricing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

const (
	quotesPath   = "/v1/cryptocurrency/quotes/latest"
	apiKeyHeader = "X-CMC_PRO_API_KEY"
)

var (
	// ErrUnexpectedStatus indicates a non-2xx HTTP answer.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrQuoteNotFound indicates the response carries no USD price for the symbol.
	ErrQuoteNotFound = errors.New("quote not found")
)

type quotesResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string]struct {
		Quote map[string]struct {
			Price decimal.Decimal `json:"price"`
		} `json:"quote"`
	} `json:"data"`
}

type client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	apiKey     string
}

var _ pricing.QuoteProvider = (*client)(nil)

// NewClient creates a quote provider. baseURL defaults to the public Pro API host.
func NewClient(httpClient *retryablehttp.Client, baseURL, apiKey string) *client {
	return &client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Quote implements pricing.QuoteProvider.
func (c *client) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(symbol)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("convert", "USD")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+quotesPath+"?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer res.Body.Close()

	var body quotesResponse
	decodeErr := json.NewDecoder(res.Body).Decode(&body)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		if decodeErr == nil && body.Status.ErrorMessage != "" {
			return decimal.Zero, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, res.Status, body.Status.ErrorMessage)
		}
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status)
	}

	if decodeErr != nil {
		return decimal.Zero, fmt.Errorf("decode quote: %w", decodeErr)
	}

	usd, ok := body.Data[symbol].Quote["USD"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrQuoteNotFound, symbol)
	}

	return usd.Price, nil
}
