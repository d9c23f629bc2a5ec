// Package jsonrpc provides a JSON-RPC 2.0 client over HTTP, used to talk to
// EVM-compatible nodes. Transport retries and timeouts come from the
// retryablehttp client it is built with.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrProviderReturnedError indicates that the remote JSON-RPC server returned an error object.
	ErrProviderReturnedError = errors.New("provider error")

	// ErrUnexpectedStatus indicates that the node answered with a non-2xx HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrEmptyResult indicates that the node answered with a null result.
	ErrEmptyResult = errors.New("empty result")
)

// response represents a standard JSON-RPC 2.0 response.
type response struct {
	JsonRPC string `json:"jsonrpc"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Err returns an error if the response includes a JSON-RPC error object.
// It wraps ErrProviderReturnedError with the provided error code and message.
func (r response) Err() error {
	if r.Error == nil {
		return nil
	}

	return fmt.Errorf("%w: [%d] - %s", ErrProviderReturnedError, r.Error.Code, r.Error.Message)
}

// Client sends JSON-RPC calls and returns the raw result payload.
type Client interface {
	// Fetch sends a JSON-RPC request with the given method name and parameters.
	// A null result is reported as ErrEmptyResult.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

type client struct {
	providerEndpoint string
	httpClient       *retryablehttp.Client
}

var _ Client = (*client)(nil)

// Fetch implements Client. The request id is a random UUID.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.providerEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnexpectedStatus, res.Status, method)
	}

	var data response
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}

	if err := data.Err(); err != nil {
		return nil, err
	}

	if len(data.Result) == 0 || bytes.Equal(data.Result, []byte("null")) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResult, method)
	}

	return data.Result, nil
}

// NewClient returns a Client that posts to providerEndpoint through httpClient.
func NewClient(httpClient *retryablehttp.Client, providerEndpoint string) *client {
	return &client{
		providerEndpoint: providerEndpoint,
		httpClient:       httpClient,
	}
}
