// ABOUTME: Bounded handle pool with lease/return semantics
// ABOUTME: Evicts idle handles after a TTL so stale backend clients get rebuilt
package eventstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Pool hands out backend handles with a bounded number outstanding.
// Returned handles are kept for reuse until they sit idle past the TTL.
type Pool[T any] struct {
	factory func(context.Context) (T, error)
	sem     chan struct{}
	idleTTL time.Duration

	mu   sync.Mutex
	idle []poolEntry[T]

	// now is swappable for tests.
	now func() time.Time
}

type poolEntry[T any] struct {
	handle   T
	returned time.Time
}

// NewPool creates a pool of at most size handles built by factory.
func NewPool[T any](size int, idleTTL time.Duration, factory func(context.Context) (T, error)) *Pool[T] {
	if size < 1 {
		size = 1
	}
	return &Pool[T]{
		factory: factory,
		sem:     make(chan struct{}, size),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Lease acquires a handle, reusing an idle one when available. Blocks
// until capacity frees up or ctx is done.
func (p *Pool[T]) Lease(ctx context.Context) (T, error) {
	var zero T

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	p.mu.Lock()
	p.evictIdleLocked()
	if n := len(p.idle); n > 0 {
		entry := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return entry.handle, nil
	}
	p.mu.Unlock()

	handle, err := p.factory(ctx)
	if err != nil {
		<-p.sem
		return zero, fmt.Errorf("failed to build backend handle: %w", err)
	}
	return handle, nil
}

// Return releases a handle back into the pool for reuse.
func (p *Pool[T]) Return(handle T) {
	p.mu.Lock()
	p.idle = append(p.idle, poolEntry[T]{handle: handle, returned: p.now()})
	p.mu.Unlock()
	<-p.sem
}

// Discard releases capacity without keeping the handle, used after a
// call that left the handle in a doubtful state.
func (p *Pool[T]) Discard() {
	<-p.sem
}

func (p *Pool[T]) evictIdleLocked() {
	if p.idleTTL <= 0 {
		return
	}
	cutoff := p.now().Add(-p.idleTTL)
	kept := p.idle[:0]
	for _, e := range p.idle {
		if e.returned.After(cutoff) {
			kept = append(kept, e)
		}
	}
	p.idle = kept
}
