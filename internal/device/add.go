package device

import (
	"errors"

	"deviced/internal/bufferpool"
)

// AddNetworks makes a batch of compiled networks resident. The batch is
// atomic: validation or admission failure registers nothing, and a buffer
// allocation failure mid-batch rolls back every entry registered by this
// call before reporting out-of-device-memory. readyCB fires exactly once.
func (m *Manager) AddNetworks(functions map[string]CompiledFunction, readyCB ReadyCallback) {
	if readyCB == nil {
		panic("device: AddNetworks requires a ready callback")
	}
	if len(functions) == 0 {
		readyCB(nil)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		readyCB(errors.New("device manager is closed"))
		return
	}

	// Validate the whole batch before touching any state.
	for name, fn := range functions {
		if _, exists := m.networks[name]; exists {
			readyCB(duplicateNetworkError{name: name})
			return
		}
		if backend := fn.BackendName(); backend != m.cfg.BackendName {
			readyCB(backendMismatchError{name: name, backend: backend, want: m.cfg.BackendName})
			return
		}
	}

	// Admission: the whole batch fits or none of it does.
	var batchCost uint64
	for _, fn := range functions {
		batchCost += m.networkCost(fn)
	}
	if !m.accountant.IsAvailable(batchCost) {
		readyCB(outOfMemoryError{cause: "batch admission check failed"})
		return
	}

	added := make([]*networkEntry, 0, len(functions))
	rollback := func() {
		for _, e := range added {
			// No runs can be in flight yet; nothing to drain.
			delete(m.networks, e.name)
			m.accountant.Release(e.cost)
		}
	}

	for name, fn := range functions {
		bundle := fn.Bundle()
		bundle.EnsureConstants()

		pool, err := bufferpool.New(name, bufferpool.Config{
			Slots:           m.cfg.SlotsPerNetwork,
			ActivationsSize: bundle.ActivationsSize,
			WeightsSize:     bundle.WeightsSize,
			Alignment:       m.cfg.Alignment,
			AcquireWait:     m.cfg.AcquireWait,
			Alloc:           m.cfg.Alloc,
		})
		if err != nil {
			rollback()
			m.exportMemoryCounters()
			readyCB(outOfMemoryError{cause: err.Error()})
			return
		}
		entry := &networkEntry{name: name, fn: fn, pool: pool, cost: m.networkCost(fn)}
		m.networks[name] = entry
		m.accountant.Reserve(entry.cost)
		added = append(added, entry)
		m.log.Debug().Str("network", name).Uint64("cost", entry.cost).Msg("network added")
	}

	m.exportMemoryCounters()
	readyCB(nil)
}
