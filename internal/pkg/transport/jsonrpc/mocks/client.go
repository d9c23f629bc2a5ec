// Package jsonrpctest provides a testify mock of jsonrpc.Client.
package jsonrpctest

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// Client is a mock of jsonrpc.Client.
type Client struct {
	mock.Mock
}

// Fetch records the call. Expectations must list method and every param.
func (m *Client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	args := m.Called(append([]any{ctx, method}, params...)...)

	var raw json.RawMessage
	if v := args.Get(0); v != nil {
		raw = v.(json.RawMessage)
	}

	return raw, args.Error(1)
}

// NewClient creates a mock and registers expectation assertion on cleanup.
func NewClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *Client {
	m := &Client{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
