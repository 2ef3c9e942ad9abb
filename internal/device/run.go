package device

import (
	"context"

	"deviced/internal/bufferpool"
)

// Run executes one request against a resident network. A buffer pair is
// acquired under runID, bound into the context for the duration of the
// execution, and released before the result callback fires. The execution
// engine's own error, if any, passes through unchanged. resultCB fires
// exactly once and always returns ec to the caller.
func (m *Manager) Run(ctx context.Context, runID uint64, name string, ec *ExecContext, resultCB ResultCallback) {
	if resultCB == nil {
		panic("device: Run requires a result callback")
	}

	m.mu.RLock()
	entry, ok := m.networks[name]
	if ok && entry.draining {
		entry, ok = nil, false
	}
	m.mu.RUnlock()
	if !ok {
		resultCB(runID, notFoundError{name: name}, ec)
		return
	}

	slot, err := entry.pool.Acquire(ctx, runID)
	if err != nil {
		if bufferpool.IsExhausted(err) {
			err = exhaustedError{network: name, runID: runID}
		}
		runsTotal.WithLabelValues("rejected").Inc()
		resultCB(runID, err, ec)
		return
	}

	ec.setDeviceBindings(slot.Activations(), slot.Weights())
	execErr := entry.fn.Execute(ctx, ec)
	ec.clearDeviceBindings()

	if relErr := entry.pool.Release(runID); relErr != nil {
		m.log.Error().Err(relErr).Str("network", name).Uint64("run", runID).Msg("buffer release failed")
	}

	if execErr != nil {
		runsTotal.WithLabelValues("error").Inc()
	} else {
		runsTotal.WithLabelValues("ok").Inc()
	}
	resultCB(runID, execErr, ec)
}
