// Package explorer reads chains through an Etherscan-compatible explorer
// API (Etherscan, BscScan) using its address-indexed transaction list.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gabapcia/walletbot/internal/scanloop"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrUnexpectedStatus indicates a non-2xx HTTP answer.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrExplorerError indicates the API answered with status "0" and an error message.
	ErrExplorerError = errors.New("explorer error")

	// ErrResultTruncated indicates a single block holds more transactions
	// of the wallet than one page can return.
	ErrResultTruncated = errors.New("txlist result truncated")
)

// defaultPageSize is the largest txlist result the Etherscan-compatible
// APIs return for one request.
const defaultPageSize = 10000

// noTransactionsMessage is the message sent with status "0" for an empty history.
const noTransactionsMessage = "No transactions found"

type client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	apiKey     string
	pageSize   int
}

var _ scanloop.Blockchain = (*client)(nil)

// Option configures the explorer client.
type Option func(*client)

// WithPageSize sets how many txlist entries are requested per page.
// Values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a reader for the explorer API at baseURL
// (e.g. https://api.bscscan.com/api).
//
// Parameters:
//   - httpClient: the retrying HTTP client used for every request.
//   - baseURL: the API endpoint, query parameters are appended to it.
//   - apiKey: sent as apikey when not empty.
//   - opts: optional settings.
//
// Returns:
//   - A scanloop.Blockchain backed by the explorer.
func NewClient(httpClient *retryablehttp.Client, baseURL, apiKey string, opts ...Option) *client {
	c := &client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) get(ctx context.Context, params url.Values, out any) error {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status)
	}

	return json.NewDecoder(res.Body).Decode(out)
}

type (
	// accountResponse is the envelope of module=account calls. Result is a
	// list on success and a message string on failure.
	accountResponse struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}

	// TransactionResponse is one entry of action=txlist. Numbers are decimal strings.
	TransactionResponse struct {
		BlockNumber string `json:"blockNumber"`
		Hash        string `json:"hash"`
		From        string `json:"from"`
		To          string `json:"to"`
		Value       string `json:"value"`
		IsError     string `json:"isError"`
	}

	proxyResponse struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (t TransactionResponse) toTransaction() (scanloop.Transaction, error) {
	value, ok := new(big.Int).SetString(t.Value, 10)
	if !ok {
		return scanloop.Transaction{}, fmt.Errorf("transaction %s: invalid value %q", t.Hash, t.Value)
	}

	height, err := strconv.ParseUint(t.BlockNumber, 10, 64)
	if err != nil {
		return scanloop.Transaction{}, fmt.Errorf("transaction %s: invalid block number %q", t.Hash, t.BlockNumber)
	}

	return scanloop.Transaction{
		Hash:        t.Hash,
		From:        t.From,
		To:          t.To,
		Value:       value,
		BlockNumber: height,
	}, nil
}
