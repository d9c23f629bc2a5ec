package walletregistry

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type WalletStorageMock struct {
	mock.Mock
}

func NewWalletStorageMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *WalletStorageMock {
	m := &WalletStorageMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *WalletStorageMock) LoadWallets(ctx context.Context) ([]WalletIdentifier, error) {
	args := m.Called(ctx)

	var wallets []WalletIdentifier
	if v := args.Get(0); v != nil {
		wallets = v.([]WalletIdentifier)
	}
	return wallets, args.Error(1)
}

func (m *WalletStorageMock) SaveWallets(ctx context.Context, wallets []WalletIdentifier) error {
	return m.Called(ctx, wallets).Error(0)
}
