// Package registry parks in-flight scan state between consumer
// teardown and reconnection, keyed by the logical root path. Entries
// are TTL-bounded; nothing here is durable.
package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mediacarousel/internal/core/queue"
	"mediacarousel/internal/core/scan"
)

const defaultTTL = 30 * time.Minute

type entry struct {
	scanner  *scan.Scanner
	queue    *queue.Queue
	storedAt time.Time
}

type Registry struct {
	mu     sync.Mutex
	ttl    time.Duration
	m      map[string]*entry
	logger *zap.Logger
}

func New(ttl time.Duration, logger *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{ttl: ttl, m: map[string]*entry{}, logger: logger}
}

// Park stores the scan and queue for a root, pausing the scan so the
// background task unwinds at its next checkpoint. An existing entry
// for the same root is replaced.
func (r *Registry) Park(rootPath string, sc *scan.Scanner, q *queue.Queue) {
	if r == nil || sc == nil || q == nil {
		return
	}
	sc.Control().Pause()

	r.mu.Lock()
	r.m[rootPath] = &entry{scanner: sc, queue: q, storedAt: time.Now()}
	r.mu.Unlock()
	r.logger.Debug("parked scan state", zap.String("root", rootPath))
}

// Detach removes and returns the parked state for a root. Entries past
// the TTL are discarded on lookup.
func (r *Registry) Detach(rootPath string) (*scan.Scanner, *queue.Queue, bool) {
	if r == nil {
		return nil, nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.m[rootPath]
	if e == nil {
		return nil, nil, false
	}
	delete(r.m, rootPath)
	if time.Since(e.storedAt) > r.ttl {
		return nil, nil, false
	}
	return e.scanner, e.queue, true
}

// Sweep drops every expired entry, returning how many were removed.
func (r *Registry) Sweep() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	now := time.Now()
	for k, e := range r.m {
		if now.Sub(e.storedAt) > r.ttl {
			delete(r.m, k)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("swept expired scan state", zap.Int("removed", removed))
	}
	return removed
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
