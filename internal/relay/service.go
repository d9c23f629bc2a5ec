// Package relay runs the bot as a whole: the periodic scan loop and the
// chat command poller share one lifecycle.
package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/gabapcia/walletbot/internal/pkg/logger"
)

// ErrServiceAlreadyStarted is returned if Start is called more than once.
var ErrServiceAlreadyStarted = errors.New("service already started")

// Scanner is the periodic wallet scan.
type Scanner interface {
	Start(ctx context.Context) error
	Close()
}

// Poller receives chat commands until ctx is done.
type Poller interface {
	Run(ctx context.Context)
}

// Service starts and stops every background routine of the bot.
type Service interface {
	// Start launches the scan loop and the command poller.
	//
	// Parameters:
	//   - ctx: context bounding both routines.
	//
	// Returns:
	//   - ErrServiceAlreadyStarted if the service is running.
	//   - The scan loop start error, in which case nothing keeps running.
	Start(ctx context.Context) error

	// Close stops both routines and waits for them. Safe to call on a
	// service that was never started.
	Close()
}

type closeFunc func()

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc

	scanner Scanner
	poller  Poller
}

var _ Service = (*service)(nil)

func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	if err := s.scanner.Start(ctx); err != nil {
		cancel()
		return err
	}

	polling := make(chan struct{})
	go func() {
		defer close(polling)
		s.poller.Run(ctx)
	}()

	logger.Info(ctx, "wallet bot started")

	s.closeFunc = func() {
		cancel()
		<-polling
		s.scanner.Close()
		logger.Info(ctx, "wallet bot stopped")
	}
	s.isStarted = true
	return nil
}

func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}

	s.closeFunc = nil
	s.isStarted = false
}

// New wires the scan loop with the command poller.
//
// Parameters:
//   - scanner: the periodic wallet scan.
//   - poller: the chat command receiver.
//
// Returns:
//   - A service ready to be started.
func New(scanner Scanner, poller Poller) *service {
	return &service{
		scanner: scanner,
		poller:  poller,
	}
}
