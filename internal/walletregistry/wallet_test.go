package walletregistry

import (
	"testing"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*service, *WalletStorageMock) {
	storage := NewWalletStorageMock(t)
	return New(chain.NewRegistry(chain.Known()...), storage), storage
}

func TestWalletIdentifier(t *testing.T) {
	w := WalletIdentifier{Chain: "eth", Address: "0xABC"}

	assert.Equal(t, "eth:0xABC", w.String())
	assert.True(t, w.Matches("0xabc"))
	assert.True(t, w.Matches("0xABC"))
	assert.False(t, w.Matches("0xabd"))
	assert.False(t, w.Matches(""))
}

func TestParseIdentifier(t *testing.T) {
	t.Run("valid entries", func(t *testing.T) {
		id, err := ParseIdentifier(" ETH:0xAbC ")
		require.NoError(t, err)
		assert.Equal(t, WalletIdentifier{Chain: "eth", Address: "0xAbC"}, id)
	})

	t.Run("malformed entries", func(t *testing.T) {
		for _, entry := range []string{"", "eth", "eth:", ":0xabc", "  :  "} {
			_, err := ParseIdentifier(entry)
			assert.ErrorIs(t, err, ErrMalformedIdentifier, entry)
		}
	})
}

func TestService_buildWalletIdentifier(t *testing.T) {
	s, _ := newTestService(t)

	t.Run("should normalize the chain and keep the address", func(t *testing.T) {
		id, err := s.buildWalletIdentifier("ETH", " 0xAbC ")
		require.NoError(t, err)
		assert.Equal(t, WalletIdentifier{Chain: "eth", Address: "0xAbC"}, id)
	})

	t.Run("should reject unsupported chains", func(t *testing.T) {
		_, err := s.buildWalletIdentifier("sol", "0x123")
		assert.ErrorIs(t, err, chain.ErrUnsupportedChain)
	})

	t.Run("should reject an empty address", func(t *testing.T) {
		_, err := s.buildWalletIdentifier("eth", "")
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})

	t.Run("should reject an address that breaks the storage format", func(t *testing.T) {
		_, err := s.buildWalletIdentifier("eth", "bnb:0x1")
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})
}

func TestWalletSet(t *testing.T) {
	set := newWalletSet(
		WalletIdentifier{Chain: "eth", Address: "0xABC"},
		WalletIdentifier{Chain: "eth", Address: "0xabc"},
		WalletIdentifier{Chain: "bnb", Address: "0xabc"},
	)

	assert.Equal(t, []WalletIdentifier{
		{Chain: "bnb", Address: "0xabc"},
		{Chain: "eth", Address: "0xABC"},
	}, set.sorted(), "the first form of an address wins")
}

func TestService_StartWatching(t *testing.T) {
	t.Run("should add and persist the wallet", func(t *testing.T) {
		s, storage := newTestService(t)
		want := WalletIdentifier{Chain: "eth", Address: "0xABC"}

		storage.On("LoadWallets", mock.Anything).Return(nil, nil).Once()
		storage.On("SaveWallets", mock.Anything, []WalletIdentifier{want}).Return(nil).Once()

		got, err := s.StartWatching(t.Context(), "eth", "0xABC")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, []WalletIdentifier{want}, s.WatchedWallets())
	})

	t.Run("should be idempotent regardless of address case", func(t *testing.T) {
		s, storage := newTestService(t)
		want := WalletIdentifier{Chain: "eth", Address: "0xABC"}

		storage.On("LoadWallets", mock.Anything).Return(nil, nil).Once()
		storage.On("SaveWallets", mock.Anything, []WalletIdentifier{want}).Return(nil).Once()
		storage.On("LoadWallets", mock.Anything).Return([]WalletIdentifier{want}, nil).Twice()

		_, err := s.StartWatching(t.Context(), "eth", "0xABC")
		require.NoError(t, err)

		got, err := s.StartWatching(t.Context(), "ETH", "0xABC")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = s.StartWatching(t.Context(), "eth", "0xabc")
		require.NoError(t, err)
		assert.Equal(t, want, got, "the stored form is returned")

		assert.Equal(t, []WalletIdentifier{want}, s.WatchedWallets())
	})

	t.Run("should keep wallets stored by someone else", func(t *testing.T) {
		s, storage := newTestService(t)
		external := WalletIdentifier{Chain: "eth", Address: "0xCLI"}
		added := WalletIdentifier{Chain: "bnb", Address: "0xCHAT"}

		storage.On("LoadWallets", mock.Anything).Return([]WalletIdentifier{external}, nil).Once()
		storage.On("SaveWallets", mock.Anything, []WalletIdentifier{added, external}).Return(nil).Once()

		_, err := s.StartWatching(t.Context(), "bnb", "0xCHAT")
		require.NoError(t, err)
		assert.Equal(t, []WalletIdentifier{added, external}, s.WatchedWallets())
	})

	t.Run("should persist the full sorted set", func(t *testing.T) {
		s, storage := newTestService(t)
		eth := WalletIdentifier{Chain: "eth", Address: "0xA"}
		bnb := WalletIdentifier{Chain: "bnb", Address: "0xB"}

		storage.On("LoadWallets", mock.Anything).Return(nil, nil).Once()
		storage.On("SaveWallets", mock.Anything, []WalletIdentifier{eth}).Return(nil).Once()
		storage.On("LoadWallets", mock.Anything).Return([]WalletIdentifier{eth}, nil).Once()
		storage.On("SaveWallets", mock.Anything, []WalletIdentifier{bnb, eth}).Return(nil).Once()

		_, err := s.StartWatching(t.Context(), "eth", "0xA")
		require.NoError(t, err)
		_, err = s.StartWatching(t.Context(), "bnb", "0xB")
		require.NoError(t, err)
	})

	t.Run("should roll back when persistence fails", func(t *testing.T) {
		s, storage := newTestService(t)

		storage.On("LoadWallets", mock.Anything).Return(nil, nil).Once()
		storage.On("SaveWallets", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		_, err := s.StartWatching(t.Context(), "eth", "0xABC")
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, s.WatchedWallets())
	})

	t.Run("should not save when the stored set cannot be read", func(t *testing.T) {
		s, storage := newTestService(t)

		storage.On("LoadWallets", mock.Anything).Return(nil, assert.AnError).Once()

		_, err := s.StartWatching(t.Context(), "eth", "0xABC")
		assert.ErrorIs(t, err, assert.AnError)
		storage.AssertNotCalled(t, "SaveWallets", mock.Anything, mock.Anything)
	})

	t.Run("should not persist invalid input", func(t *testing.T) {
		s, _ := newTestService(t)

		_, err := s.StartWatching(t.Context(), "doge", "0xABC")
		assert.ErrorIs(t, err, chain.ErrUnsupportedChain)
		assert.Empty(t, s.WatchedWallets())
	})
}

func TestService_StopWatching(t *testing.T) {
	t.Run("should remove and persist the wallet", func(t *testing.T) {
		s, storage := newTestService(t)
		stored := []WalletIdentifier{{Chain: "eth", Address: "0xA"}, {Chain: "bnb", Address: "0xB"}}

		storage.On("LoadWallets", mock.Anything).Return(stored, nil).Once()
		storage.On("SaveWallets", mock.Anything, []WalletIdentifier{{Chain: "bnb", Address: "0xB"}}).Return(nil).Once()

		got, err := s.StopWatching(t.Context(), "eth", "0xA")
		require.NoError(t, err)
		assert.Equal(t, WalletIdentifier{Chain: "eth", Address: "0xA"}, got)
		assert.Equal(t, []WalletIdentifier{{Chain: "bnb", Address: "0xB"}}, s.WatchedWallets())
	})

	t.Run("should match the address ignoring case", func(t *testing.T) {
		s, storage := newTestService(t)
		existing := WalletIdentifier{Chain: "eth", Address: "0xABC"}

		storage.On("LoadWallets", mock.Anything).Return([]WalletIdentifier{existing}, nil).Once()
		storage.On("SaveWallets", mock.Anything, mock.MatchedBy(func(w []WalletIdentifier) bool { return len(w) == 0 })).Return(nil).Once()

		got, err := s.StopWatching(t.Context(), "eth", "0xAbc")
		require.NoError(t, err)
		assert.Equal(t, existing, got)
		assert.Empty(t, s.WatchedWallets())
	})

	t.Run("should report wallets that are not monitored without persisting", func(t *testing.T) {
		s, storage := newTestService(t)
		existing := WalletIdentifier{Chain: "eth", Address: "0xA"}

		storage.On("LoadWallets", mock.Anything).Return([]WalletIdentifier{existing}, nil).Once()

		_, err := s.StopWatching(t.Context(), "eth", "0xZZZ")
		assert.ErrorIs(t, err, ErrWalletNotWatched)
		assert.Equal(t, []WalletIdentifier{existing}, s.WatchedWallets())
		storage.AssertNotCalled(t, "SaveWallets", mock.Anything, mock.Anything)
	})

	t.Run("should restore the wallet when persistence fails", func(t *testing.T) {
		s, storage := newTestService(t)
		existing := WalletIdentifier{Chain: "eth", Address: "0xA"}

		storage.On("LoadWallets", mock.Anything).Return([]WalletIdentifier{existing}, nil).Once()
		storage.On("SaveWallets", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		_, err := s.StopWatching(t.Context(), "eth", "0xA")
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []WalletIdentifier{existing}, s.WatchedWallets())
	})
}

func TestService_ListWallets(t *testing.T) {
	s, _ := newTestService(t)
	s.wallets.add(
		WalletIdentifier{Chain: "eth", Address: "0xB"},
		WalletIdentifier{Chain: "bnb", Address: "0xC"},
		WalletIdentifier{Chain: "eth", Address: "0xA"},
	)

	t.Run("all chains", func(t *testing.T) {
		got, err := s.ListWallets(t.Context(), "")
		require.NoError(t, err)
		assert.Equal(t, []WalletIdentifier{
			{Chain: "bnb", Address: "0xC"},
			{Chain: "eth", Address: "0xA"},
			{Chain: "eth", Address: "0xB"},
		}, got)
	})

	t.Run("filtered by chain", func(t *testing.T) {
		got, err := s.ListWallets(t.Context(), "ETH")
		require.NoError(t, err)
		assert.Equal(t, []WalletIdentifier{
			{Chain: "eth", Address: "0xA"},
			{Chain: "eth", Address: "0xB"},
		}, got)
	})

	t.Run("unsupported chain filter", func(t *testing.T) {
		_, err := s.ListWallets(t.Context(), "sol")
		assert.ErrorIs(t, err, chain.ErrUnsupportedChain)
	})
}
