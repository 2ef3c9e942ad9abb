package device

import "context"

// Symbol locates one placeholder inside a network's mutable-weights region.
type Symbol struct {
	Offset uint64
	Size   uint64
}

// RuntimeBundle is the compile-time metadata a handle carries: required
// scratch sizes, the placeholder symbol table, and lazily collected
// constant data.
type RuntimeBundle struct {
	ActivationsSize uint64
	WeightsSize     uint64
	Symbols         map[string]Symbol

	// CollectConstants materializes the bundle's constant data on first
	// add; may be nil when the bundle carries none.
	CollectConstants func() []byte

	constants []byte
	collected bool
}

// EnsureConstants resolves the constant data exactly once.
func (b *RuntimeBundle) EnsureConstants() {
	if b.collected || b.CollectConstants == nil {
		return
	}
	b.constants = b.CollectConstants()
	b.collected = true
}

// Constants returns the collected constant data, nil before the first add.
func (b *RuntimeBundle) Constants() []byte { return b.constants }

// MemoryCost is the per-slot memory this bundle needs on the device.
func (b *RuntimeBundle) MemoryCost() uint64 {
	return b.ActivationsSize + b.WeightsSize
}

// CompiledFunction is a precompiled network ready to execute on a backend.
// The manager treats Execute as opaque: it binds scratch buffers into the
// context, invokes it, and passes any error through unchanged.
type CompiledFunction interface {
	BackendName() string
	Bundle() *RuntimeBundle
	Execute(ctx context.Context, ec *ExecContext) error
}

// DeviceBindings are the scratch buffers assigned to one in-flight run.
// Valid only between buffer acquisition and release.
type DeviceBindings struct {
	Activations []byte
	Weights     []byte
}

// ExecContext carries placeholder bindings for one execution request.
// Ownership transfers to the manager for the duration of a run and returns
// to the caller through the result callback.
type ExecContext struct {
	bindings map[string][]byte
	device   *DeviceBindings
}

func NewExecContext() *ExecContext {
	return &ExecContext{bindings: make(map[string][]byte)}
}

// Bind associates raw tensor bytes with a placeholder name.
func (c *ExecContext) Bind(name string, data []byte) { c.bindings[name] = data }

// Binding returns the bytes bound to name, nil when absent.
func (c *ExecContext) Binding(name string) []byte { return c.bindings[name] }

// Bindings exposes the full placeholder map for the executing function.
func (c *ExecContext) Bindings() map[string][]byte { return c.bindings }

// DeviceBindings returns the per-run scratch buffers, nil outside a run.
func (c *ExecContext) DeviceBindings() *DeviceBindings { return c.device }

func (c *ExecContext) setDeviceBindings(activations, weights []byte) {
	c.device = &DeviceBindings{Activations: activations, Weights: weights}
}

func (c *ExecContext) clearDeviceBindings() { c.device = nil }
