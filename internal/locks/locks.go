// Package locks provides per-norm exclusive locks. Consolidation
// replay and event review-state transitions for the same norm must
// serialize; different norms proceed fully in parallel.
package locks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry hands out one mutex per norm identifier. The zero value is
// not usable; construct with New.
type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// New creates an empty lock registry.
func New() *Registry {
	return &Registry{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *Registry) lock(id uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[id]
	if !ok {
		m = &sync.Mutex{}
		r.locks[id] = m
	}
	return m
}

// WithLock runs fn while holding the exclusive lock for the given
// norm. The context is checked before acquisition so cancelled batch
// work does not queue behind a long replay.
func (r *Registry) WithLock(ctx context.Context, normID uuid.UUID, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := r.lock(normID)
	m.Lock()
	defer m.Unlock()

	return fn()
}
