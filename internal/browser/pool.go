// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/stylescout/internal/logging"
	"github.com/tomtom215/stylescout/internal/metrics"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("browser pool closed")

// Pool bounds concurrent browser work to browsers x contextsPerBrowser
// slots. Callers acquire a lease, open at most one session through it,
// and release it on every exit path. Acquisition blocks until a slot
// frees or ctx is done; there is no unbounded fallback.
type Pool struct {
	driver Driver
	slots  chan int // carries the browser index each free slot belongs to
	closed chan struct{}
}

// NewPool creates a pool over driver with the given shape. Slots are
// dealt round-robin across browser instances so load spreads evenly.
func NewPool(driver Driver, browsers, contextsPerBrowser int) (*Pool, error) {
	if browsers < 1 || contextsPerBrowser < 1 {
		return nil, fmt.Errorf("invalid pool shape: %d browsers x %d contexts", browsers, contextsPerBrowser)
	}

	total := browsers * contextsPerBrowser
	slots := make(chan int, total)
	for i := 0; i < total; i++ {
		slots <- i % browsers
	}

	poolLogger := logging.WithComponent("browser")
	poolLogger.Info().
		Int("browsers", browsers).
		Int("contexts_per_browser", contextsPerBrowser).
		Msg("Browser pool initialized")

	return &Pool{
		driver: driver,
		slots:  slots,
		closed: make(chan struct{}),
	}, nil
}

// Lease is a held context slot. Release returns the slot to the pool and
// closes the session if one was opened; it is safe to call once only,
// which defer naturally guarantees.
type Lease struct {
	pool    *Pool
	browser int
	session Session
}

// Acquire blocks until a context slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	default:
	}

	start := time.Now()
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case idx := <-p.slots:
		metrics.BrowserAcquireWait.Observe(time.Since(start).Seconds())
		metrics.BrowserContextsInUse.Inc()
		return &Lease{pool: p, browser: idx}, nil
	}
}

// Open navigates a fresh context of the leased browser to url.
func (l *Lease) Open(ctx context.Context, url string) (Session, error) {
	s, err := l.pool.driver.Open(ctx, l.browser, url)
	if err != nil {
		return nil, err
	}
	l.session = s
	return s, nil
}

// Release returns the slot. Must run on every exit path after a
// successful Acquire.
func (l *Lease) Release() {
	if l.session != nil {
		if err := l.session.Close(); err != nil {
			poolLogger := logging.WithComponent("browser")
			poolLogger.Warn().Err(err).Msg("Session close failed")
		}
		l.session = nil
	}
	metrics.BrowserContextsInUse.Dec()
	select {
	case l.pool.slots <- l.browser:
	case <-l.pool.closed:
	}
}

// InUse reports how many slots are currently held.
func (p *Pool) InUse() int {
	return cap(p.slots) - len(p.slots)
}

// Close shuts the pool and its driver down. Outstanding leases may still
// release without blocking.
func (p *Pool) Close() error {
	select {
	case <-p.closed:
		return nil
	default:
		close(p.closed)
	}
	return p.driver.Close()
}
