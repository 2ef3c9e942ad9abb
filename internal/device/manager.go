// Package device implements the device-level resource manager: memory
// accounting and admission control, per-network buffer pools, and the
// add/evict/run lifecycle for compiled networks.
package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deviced/internal/accounting"
	"deviced/internal/bufferpool"
	"deviced/pkg/types"
)

// Exactly-once completion callbacks. Every entry point invokes its callback
// once, on success or failure, returning any caller-supplied ownership.
type (
	ReadyCallback  func(err error)
	EvictCallback  func(name string, err error)
	ResultCallback func(runID uint64, err error, ec *ExecContext)
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultBackendName  = "CPU"
	defaultDeviceMemory = 16 * 1024 * 1024 * 1024
	defaultDrainTimeout = 30 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// BackendName is the backend kind this device accepts handles for.
	BackendName string
	// DeviceMemory is the capacity in bytes.
	DeviceMemory uint64
	// DeviceMemoryKB, when nonzero, overrides DeviceMemory. It mirrors the
	// kilobyte-denominated startup override and is converted to bytes here.
	DeviceMemoryKB uint64
	// SlotsPerNetwork bounds concurrent runs per resident network.
	SlotsPerNetwork int
	// AcquireWait bounds how long a run may wait for a buffer slot.
	// Zero rejects immediately with a resource-exhaustion error.
	AcquireWait time.Duration
	// DrainTimeout bounds how long an evict waits for in-flight runs.
	DrainTimeout time.Duration
	// Alignment is the tensor alignment boundary for scratch buffers.
	Alignment int
	// Alloc overrides the buffer allocator; tests inject failures.
	Alloc bufferpool.AllocFunc

	Logger zerolog.Logger
}

// networkEntry is one resident network. Owned exclusively by the Manager.
type networkEntry struct {
	name     string
	fn       CompiledFunction
	pool     *bufferpool.Pool
	cost     uint64
	draining bool
}

// Manager orchestrates add/evict/run for one device. Add and evict are
// serialized under mu; runs take only a read lock to resolve the entry and
// then synchronize on the network's own buffer pool, so runs against
// different networks never contend.
type Manager struct {
	mu         sync.RWMutex
	networks   map[string]*networkEntry
	accountant *accounting.Accountant
	cfg        Config
	log        zerolog.Logger
	closed     bool
}

// New constructs a Manager and exports its initial memory counters.
func New(cfg Config) *Manager {
	if cfg.BackendName == "" {
		cfg.BackendName = defaultBackendName
	}
	if cfg.DeviceMemoryKB > 0 {
		cfg.DeviceMemory = cfg.DeviceMemoryKB * 1024
	}
	if cfg.DeviceMemory == 0 {
		cfg.DeviceMemory = defaultDeviceMemory
	}
	if cfg.SlotsPerNetwork <= 0 {
		cfg.SlotsPerNetwork = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	m := &Manager{
		networks:   make(map[string]*networkEntry),
		accountant: accounting.New(cfg.DeviceMemory),
		cfg:        cfg,
		log:        cfg.Logger,
	}
	devicesInUse.Inc()
	m.mu.Lock()
	m.exportMemoryCounters()
	m.mu.Unlock()
	return m
}

// Close evicts every resident network and releases the device. The manager
// is unusable afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	entries := make([]*networkEntry, 0, len(m.networks))
	for _, e := range m.networks {
		e.draining = true
		entries = append(entries, e)
	}
	m.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		if err := e.pool.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.mu.Lock()
		delete(m.networks, e.name)
		m.accountant.Release(e.cost)
		m.mu.Unlock()
	}
	m.zeroMemoryCounters()
	devicesInUse.Dec()
	return firstErr
}

// MaximumMemory returns the device capacity in bytes.
func (m *Manager) MaximumMemory() uint64 { return m.accountant.MaximumMemory() }

// AvailableMemory returns the bytes currently unreserved.
func (m *Manager) AvailableMemory() uint64 { return m.accountant.AvailableMemory() }

// IsMemoryAvailable reports whether a network requiring estimate bytes
// would fit. Not a promise: actual cost can vary with alignment.
func (m *Manager) IsMemoryAvailable(estimate uint64) bool {
	return m.accountant.IsAvailable(estimate)
}

// IsResident reports whether name currently holds device memory.
func (m *Manager) IsResident(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.networks[name]
	return ok
}

// Status returns a read-only projection of the manager state.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nets := make([]types.NetworkStatus, 0, len(m.networks))
	for _, e := range m.networks {
		nets = append(nets, types.NetworkStatus{
			Name:      e.name,
			CostBytes: e.cost,
			InFlight:  e.pool.InFlight(),
			Draining:  e.draining,
		})
	}
	sort.Slice(nets, func(i, j int) bool { return nets[i].Name < nets[j].Name })
	return types.StatusResponse{
		MaximumMemory:   m.accountant.MaximumMemory(),
		UsedMemory:      m.accountant.UsedMemory(),
		AvailableMemory: m.accountant.AvailableMemory(),
		Networks:        nets,
	}
}

// networkCost is the budget charge for one handle: per-slot bundle cost
// times the configured concurrency, all buffers being allocated eagerly.
func (m *Manager) networkCost(fn CompiledFunction) uint64 {
	return fn.Bundle().MemoryCost() * uint64(m.cfg.SlotsPerNetwork)
}
