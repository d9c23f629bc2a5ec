package main

import (
	"context"
	"sync"

	"github.com/gabapcia/walletbot/internal/relay"
)

// lazyRelay defers building the Telegram bot and the scan loop until the
// start command runs, so wallet management commands work without a token.
type lazyRelay struct {
	build func() (relay.Service, func(), error)

	mu      sync.Mutex
	svc     relay.Service
	release func()
}

var _ relay.Service = (*lazyRelay)(nil)

func (r *lazyRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.svc == nil {
		svc, release, err := r.build()
		if err != nil {
			return err
		}
		r.svc, r.release = svc, release
	}

	return r.svc.Start(ctx)
}

func (r *lazyRelay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.svc == nil {
		return
	}

	r.svc.Close()
	r.release()
	r.svc, r.release = nil, nil
}
