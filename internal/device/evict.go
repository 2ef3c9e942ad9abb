package device

import (
	"context"
	"fmt"
)

// EvictNetwork removes a resident network and frees its memory. In-flight
// runs are drained before any buffer is freed; new runs are rejected as
// soon as the drain begins. evictCB fires exactly once.
func (m *Manager) EvictNetwork(name string, evictCB EvictCallback) {
	if evictCB == nil {
		panic("device: EvictNetwork requires an evict callback")
	}

	m.mu.Lock()
	entry, ok := m.networks[name]
	if !ok || entry.draining {
		m.mu.Unlock()
		evictCB(name, notFoundError{name: name})
		return
	}
	entry.draining = true
	m.mu.Unlock()

	// Drain outside the lock so in-flight runs can release their slots.
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DrainTimeout)
	defer cancel()
	if err := entry.pool.Close(ctx); err != nil {
		// The network stays resident rather than freeing memory under an
		// active execution.
		m.mu.Lock()
		entry.draining = false
		m.mu.Unlock()
		evictCB(name, fmt.Errorf("evict %s: %w", name, err))
		return
	}

	m.mu.Lock()
	delete(m.networks, name)
	m.accountant.Release(entry.cost)
	m.exportMemoryCounters()
	m.mu.Unlock()

	m.log.Debug().Str("network", name).Msg("network evicted")
	evictCB(name, nil)
}
