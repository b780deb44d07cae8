package processor

import "sync"

// pathGuard serializes processing per source path without blocking.
// TryAcquire fails fast when the path is already in flight, so a caller
// never queues up behind its own reprocess request.
type pathGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newPathGuard() *pathGuard {
	return &pathGuard{active: make(map[string]struct{})}
}

// TryAcquire attempts to claim the path. Returns false if another
// processing run already holds it.
func (g *pathGuard) TryAcquire(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[path]; held {
		return false
	}
	g.active[path] = struct{}{}
	return true
}

// Release frees the path. Must only be called after a successful
// TryAcquire for the same path.
func (g *pathGuard) Release(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, path)
}
