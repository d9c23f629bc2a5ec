package relay

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type scannerMock struct {
	mock.Mock
}

func (m *scannerMock) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *scannerMock) Close() {
	m.Called()
}

func newScannerMock(t *testing.T) *scannerMock {
	m := &scannerMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// blockingPoller runs until its context is canceled.
type blockingPoller struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (p *blockingPoller) Run(ctx context.Context) {
	p.started.Store(true)
	<-ctx.Done()
	p.stopped.Store(true)
}

func TestService_Start(t *testing.T) {
	t.Run("starts the scanner and the poller", func(t *testing.T) {
		scanner := newScannerMock(t)
		poller := &blockingPoller{}
		s := New(scanner, poller)

		scanner.On("Start", mock.Anything).Return(nil).Once()
		scanner.On("Close").Return().Once()

		require.NoError(t, s.Start(t.Context()))
		assert.Eventually(t, poller.started.Load, time.Second, 5*time.Millisecond)

		s.Close()
		assert.True(t, poller.stopped.Load())
	})

	t.Run("returns the scanner error without polling", func(t *testing.T) {
		scanner := newScannerMock(t)
		poller := &blockingPoller{}
		s := New(scanner, poller)

		startErr := errors.New("boom")
		scanner.On("Start", mock.Anything).Return(startErr).Once()

		assert.ErrorIs(t, s.Start(t.Context()), startErr)
		assert.False(t, poller.started.Load())
		assert.False(t, s.isStarted)
	})

	t.Run("rejects a second start", func(t *testing.T) {
		scanner := newScannerMock(t)
		s := New(scanner, &blockingPoller{})

		scanner.On("Start", mock.Anything).Return(nil).Once()
		scanner.On("Close").Return().Once()

		require.NoError(t, s.Start(t.Context()))
		assert.ErrorIs(t, s.Start(t.Context()), ErrServiceAlreadyStarted)

		s.Close()
	})

	t.Run("can be restarted after close", func(t *testing.T) {
		scanner := newScannerMock(t)
		s := New(scanner, &blockingPoller{})

		scanner.On("Start", mock.Anything).Return(nil).Twice()
		scanner.On("Close").Return().Twice()

		require.NoError(t, s.Start(t.Context()))
		s.Close()
		require.NoError(t, s.Start(t.Context()))
		s.Close()
	})
}

func TestService_Close(t *testing.T) {
	t.Run("safe without start", func(t *testing.T) {
		s := New(newScannerMock(t), &blockingPoller{})

		assert.NotPanics(t, s.Close)
	})
}
