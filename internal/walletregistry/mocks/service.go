// Package walletregistrytest provides a testify mock of walletregistry.Service.
package walletregistrytest

import (
	"context"

	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/stretchr/testify/mock"
)

// Service is a mock of walletregistry.Service.
type Service struct {
	mock.Mock
}

var _ walletregistry.Service = (*Service)(nil)

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

func (m *Service) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Service) StartWatching(ctx context.Context, chainID, address string) (walletregistry.WalletIdentifier, error) {
	args := m.Called(ctx, chainID, address)
	return args.Get(0).(walletregistry.WalletIdentifier), args.Error(1)
}

func (m *Service) StopWatching(ctx context.Context, chainID, address string) (walletregistry.WalletIdentifier, error) {
	args := m.Called(ctx, chainID, address)
	return args.Get(0).(walletregistry.WalletIdentifier), args.Error(1)
}

func (m *Service) ListWallets(ctx context.Context, chainID string) ([]walletregistry.WalletIdentifier, error) {
	args := m.Called(ctx, chainID)

	var wallets []walletregistry.WalletIdentifier
	if v := args.Get(0); v != nil {
		wallets = v.([]walletregistry.WalletIdentifier)
	}
	return wallets, args.Error(1)
}

func (m *Service) WatchedWallets() []walletregistry.WalletIdentifier {
	args := m.Called()

	var wallets []walletregistry.WalletIdentifier
	if v := args.Get(0); v != nil {
		wallets = v.([]walletregistry.WalletIdentifier)
	}
	return wallets
}
