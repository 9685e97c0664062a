// Package lock provides the run guards that keep ingestion runs from overlapping.
package lock

import (
	"context"
	"sync/atomic"

	"PriceNewsScanner/internal/ports"
)

// Local is an in-process run guard.
type Local struct {
	held atomic.Bool
}

var _ ports.RunLock = (*Local)(nil)

func NewLocal() *Local {
	return &Local{}
}

// Acquire never blocks; ok is false while another run holds the guard.
func (l *Local) Acquire(context.Context) (func(), bool, error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, false, nil
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			l.held.Store(false)
		}
	}, true, nil
}

// Chain acquires every lock in order and releases them in reverse.
type Chain []ports.RunLock

var _ ports.RunLock = Chain(nil)

func (c Chain) Acquire(ctx context.Context) (func(), bool, error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, l := range c {
		release, ok, err := l.Acquire(ctx)
		if err != nil || !ok {
			releaseAll()
			return nil, false, err
		}
		releases = append(releases, release)
	}
	return releaseAll, true, nil
}
