package service

import (
	"context"
	"sync"
)

// ExportedBusyGuard is an exported alias so _test packages can test the guard.
type ExportedBusyGuard = busyGuard

// ─────────────────────────────────────────────────────────────
// busyGuard — one save or export per design at a time
// ─────────────────────────────────────────────────────────────

// busyGuard tracks in-flight work by key. Background uploads started by
// an operation are counted too, so shutdown can wait for them.
type busyGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
	wg   sync.WaitGroup
}

// TryLock marks key as busy. It returns false if key is already busy.
func (g *busyGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = make(map[string]struct{})
	}
	if _, ok := g.busy[key]; ok {
		return false
	}
	g.busy[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must follow a successful TryLock.
func (g *busyGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
	g.wg.Done()
}

// Go runs fn in the background and tracks it for WaitAll.
func (g *busyGuard) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// WaitAll blocks until all tracked work completes or ctx is cancelled.
func (g *busyGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
