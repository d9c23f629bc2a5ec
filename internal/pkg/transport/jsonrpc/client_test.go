package jsonrpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	transporthttp "github.com/gabapcia/walletbot/internal/pkg/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *client {
	return NewClient(transporthttp.NewClient(
		transporthttp.WithRetryMax(0),
		transporthttp.WithTimeout(time.Second),
	), url)
}

func TestResponse_Err(t *testing.T) {
	t.Run("returns nil when Error field is nil", func(t *testing.T) {
		resp := response{JsonRPC: "2.0"}
		assert.NoError(t, resp.Err())
	})

	t.Run("returns formatted error when Error field is present", func(t *testing.T) {
		resp := response{
			JsonRPC: "2.0",
			Error: &struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}{
				Code:    -32601,
				Message: "method not found",
			},
		}

		err := resp.Err()
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Contains(t, err.Error(), fmt.Sprintf("[%d]", -32601))
		assert.Contains(t, err.Error(), "method not found")
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("sends a JSON-RPC 2.0 envelope and returns the result", func(t *testing.T) {
		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "result": "0x10"})
		}))
		defer srv.Close()

		result, err := newTestClient(srv.URL).Fetch(t.Context(), "eth_getBlockByNumber", "0x1", true)
		require.NoError(t, err)
		assert.JSONEq(t, `"0x10"`, string(result))

		assert.Equal(t, "2.0", received["jsonrpc"])
		assert.Equal(t, "eth_getBlockByNumber", received["method"])
		assert.Equal(t, []any{"0x1", true}, received["params"])
		assert.NotEmpty(t, received["id"])
	})

	t.Run("sends an empty params array when no params are given", func(t *testing.T) {
		var received map[string]json.RawMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "result": "0x1"})
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Fetch(t.Context(), "eth_blockNumber")
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(received["params"]))
	})

	t.Run("response with JSON-RPC error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      "1",
				"error":   map[string]any{"code": -32000, "message": "header not found"},
			})
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Fetch(t.Context(), "eth_getBlockByNumber")
		assert.ErrorIs(t, err, ErrProviderReturnedError)
	})

	t.Run("null result is reported as empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":null}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Fetch(t.Context(), "eth_getBlockByNumber")
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Fetch(t.Context(), "eth_blockNumber")
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not-json`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Fetch(t.Context(), "eth_blockNumber")
		assert.Error(t, err)
	})
}
