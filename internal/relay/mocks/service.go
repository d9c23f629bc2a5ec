// Package relaytest provides a testify mock of relay.Service.
package relaytest

import (
	"context"

	"github.com/gabapcia/walletbot/internal/relay"

	"github.com/stretchr/testify/mock"
)

// Service is a mock of relay.Service.
type Service struct {
	mock.Mock
}

var _ relay.Service = (*Service)(nil)

// NewService creates a mock and asserts its expectations on cleanup.
func NewService(t interface {
	mock.TestingT
	Cleanup(func())
}) *Service {
	m := &Service{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Service) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Service) Close() {
	m.Called()
}
