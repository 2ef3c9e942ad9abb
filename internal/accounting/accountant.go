package accounting

import "sync"

// Accountant tracks the device memory budget. Admission is a caller
// responsibility: Reserve must only be called after IsAvailable reported
// true for the same cost, serialized by the caller's add/evict lock.
type Accountant struct {
	mu      sync.Mutex
	maximum uint64
	used    uint64
}

func New(maximum uint64) *Accountant {
	return &Accountant{maximum: maximum}
}

// MaximumMemory returns the device capacity in bytes when no networks are
// resident. Constant after construction.
func (a *Accountant) MaximumMemory() uint64 { return a.maximum }

// AvailableMemory returns the bytes currently unreserved on the device.
func (a *Accountant) AvailableMemory() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maximum - a.used
}

// UsedMemory returns the bytes currently reserved by resident networks.
func (a *Accountant) UsedMemory() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// IsAvailable reports whether an allocation of estimate bytes would fit.
// No fuzz factor is applied; callers account for alignment overhead.
func (a *Accountant) IsAvailable(estimate uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used+estimate <= a.maximum
}

// Reserve charges cost bytes against the budget.
func (a *Accountant) Reserve(cost uint64) {
	a.mu.Lock()
	a.used += cost
	a.mu.Unlock()
}

// Release returns cost bytes to the budget. Clamps at zero so an
// unbalanced release cannot wrap the counter.
func (a *Accountant) Release(cost uint64) {
	a.mu.Lock()
	if cost > a.used {
		a.used = 0
	} else {
		a.used -= cost
	}
	a.mu.Unlock()
}
