// Package bufferpool hands out fixed-size scratch buffer pairs to in-flight
// executions of one resident network. A slot is owned by exactly one run
// identifier between Acquire and Release.
package bufferpool

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sync/semaphore"
)

// DefaultAlignment is the tensor alignment boundary of compiled bundles.
const DefaultAlignment = 64

// AllocFunc allocates a raw byte region. The default allocator is the heap;
// tests inject failing allocators to exercise construction rollback.
type AllocFunc func(n uint64) ([]byte, error)

func heapAlloc(n uint64) ([]byte, error) { return make([]byte, n), nil }

// Slot is one (activations, weights) buffer pair. The slices are aligned
// views; they stay valid until the pool is closed.
type Slot struct {
	index       int
	activations []byte
	weights     []byte
}

func (s *Slot) Activations() []byte { return s.activations }
func (s *Slot) Weights() []byte     { return s.weights }

// Config carries the pool tunables. Zero values fall back to a single slot,
// DefaultAlignment, heap allocation, and immediate rejection when all slots
// are busy.
type Config struct {
	Slots           int
	ActivationsSize uint64
	WeightsSize     uint64
	Alignment       int
	// AcquireWait bounds how long Acquire may wait for a free slot.
	// Zero means reject immediately.
	AcquireWait time.Duration
	Alloc       AllocFunc
}

// Pool owns n slots for one network. The semaphore bounds concurrency and
// orders waiters; the mutex guards the slot table.
type Pool struct {
	network string
	n       int
	sem     *semaphore.Weighted
	wait    time.Duration

	mu     sync.Mutex
	slots  []*Slot
	free   []int
	busy   map[uint64]int // run identifier -> slot index
	closed bool
}

// New allocates all slots eagerly. On any allocation failure the buffers
// allocated so far are released and no pool is returned.
func New(network string, cfg Config) (*Pool, error) {
	n := cfg.Slots
	if n <= 0 {
		n = 1
	}
	align := cfg.Alignment
	if align <= 0 {
		align = DefaultAlignment
	}
	alloc := cfg.Alloc
	if alloc == nil {
		alloc = heapAlloc
	}
	p := &Pool{
		network: network,
		n:       n,
		sem:     semaphore.NewWeighted(int64(n)),
		wait:    cfg.AcquireWait,
		busy:    make(map[uint64]int),
	}
	for i := 0; i < n; i++ {
		act, err := allocAligned(alloc, cfg.ActivationsSize, align)
		if err != nil {
			p.dropBuffers()
			return nil, fmt.Errorf("allocate activations buffer for %s: %w", network, err)
		}
		wts, err := allocAligned(alloc, cfg.WeightsSize, align)
		if err != nil {
			p.dropBuffers()
			return nil, fmt.Errorf("allocate weights buffer for %s: %w", network, err)
		}
		p.slots = append(p.slots, &Slot{index: i, activations: act, weights: wts})
		p.free = append(p.free, i)
	}
	return p, nil
}

// allocAligned over-allocates by align bytes and returns a view whose base
// address sits on the alignment boundary. The view keeps the backing array
// alive, so dropping it releases the allocation.
func allocAligned(alloc AllocFunc, size uint64, align int) ([]byte, error) {
	raw, err := alloc(size + uint64(align))
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) < size+uint64(align) {
		return nil, fmt.Errorf("allocator returned %d bytes, need %d", len(raw), size+uint64(align))
	}
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) % uintptr(align)); rem != 0 {
		off = align - rem
	}
	return raw[off : off+int(size) : off+int(size)], nil
}

// Acquire reserves a free slot for runID. When every slot is busy it waits
// up to the configured AcquireWait (not at all by default) and then fails
// with an exhaustion error; it never aliases a busy slot.
func (p *Pool) Acquire(ctx context.Context, runID uint64) (*Slot, error) {
	if p.wait <= 0 {
		if !p.sem.TryAcquire(1) {
			return nil, exhaustedError{network: p.network}
		}
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, p.wait)
		err := p.sem.Acquire(waitCtx, 1)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, exhaustedError{network: p.network}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.sem.Release(1)
		return nil, fmt.Errorf("buffer pool for %s is closed", p.network)
	}
	if _, held := p.busy[runID]; held {
		p.sem.Release(1)
		return nil, fmt.Errorf("run %d already holds a slot for %s", runID, p.network)
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.busy[runID] = idx
	return p.slots[idx], nil
}

// Release returns runID's slot to the free set. Releasing an unknown run
// identifier is a contract violation and fails loudly.
func (p *Pool) Release(runID uint64) error {
	p.mu.Lock()
	idx, ok := p.busy[runID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("release of unknown run %d on %s", runID, p.network)
	}
	delete(p.busy, runID)
	p.free = append(p.free, idx)
	p.mu.Unlock()
	p.sem.Release(1)
	return nil
}

// Close drains the pool (waits until every slot has been released) and then
// frees the buffers. The wait is bounded only by ctx.
func (p *Pool) Close(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, int64(p.n)); err != nil {
		return fmt.Errorf("drain buffer pool for %s: %w", p.network, err)
	}
	p.mu.Lock()
	p.closed = true
	p.dropBuffers()
	p.mu.Unlock()
	p.sem.Release(int64(p.n))
	return nil
}

func (p *Pool) dropBuffers() {
	p.slots = nil
	p.free = nil
}

// WeightsBase returns the network's canonical weights region: slot zero's
// buffer. Peer-to-peer reads target this region; with the default
// single-slot pool it is the only weights buffer.
func (p *Pool) WeightsBase() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.slots) == 0 {
		return nil, fmt.Errorf("buffer pool for %s is closed", p.network)
	}
	return p.slots[0].weights, nil
}

// InFlight returns the number of busy slots.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.busy)
}

// Slots returns the configured concurrency limit.
func (p *Pool) Slots() int { return p.n }
