package registry

import (
	"context"
	"encoding/base64"
	"fmt"

	"deviced/internal/device"
	"deviced/pkg/types"
)

// Network is a manifest-backed compiled function. Its reference engine
// stores bound placeholders into the per-run weights region at their symbol
// offsets and reads every symbol back out, so the daemon is exercisable end
// to end without a real JIT. The device manager treats it as opaque.
type Network struct {
	name    string
	backend string
	bundle  *device.RuntimeBundle
}

func newNetwork(man Manifest) *Network {
	symbols := make(map[string]device.Symbol, len(man.Symbols))
	for name, s := range man.Symbols {
		symbols[name] = device.Symbol{Offset: s.Offset, Size: s.Size}
	}
	bundle := &device.RuntimeBundle{
		ActivationsSize: man.ActivationsSize,
		WeightsSize:     man.WeightsSize,
		Symbols:         symbols,
	}
	if man.Constants != "" {
		encoded := man.Constants
		bundle.CollectConstants = func() []byte {
			// Validated at load time.
			data, _ := base64.StdEncoding.DecodeString(encoded)
			return data
		}
	}
	return &Network{name: man.Name, backend: man.Backend, bundle: bundle}
}

func (n *Network) BackendName() string           { return n.backend }
func (n *Network) Bundle() *device.RuntimeBundle { return n.bundle }

// Spec returns the placement-facing view of this network.
func (n *Network) Spec() types.NetworkSpec {
	return types.NetworkSpec{
		Name:            n.name,
		Backend:         n.backend,
		ActivationsSize: n.bundle.ActivationsSize,
		WeightsSize:     n.bundle.WeightsSize,
		CostBytes:       n.bundle.MemoryCost(),
	}
}

// Execute runs the reference engine against the bound scratch buffers.
func (n *Network) Execute(ctx context.Context, ec *device.ExecContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db := ec.DeviceBindings()
	if db == nil {
		return fmt.Errorf("network %s: no device bindings", n.name)
	}
	for name, data := range ec.Bindings() {
		sym, ok := n.bundle.Symbols[name]
		if !ok {
			return fmt.Errorf("network %s: unknown placeholder %s", n.name, name)
		}
		if uint64(len(data)) > sym.Size {
			return fmt.Errorf("network %s: placeholder %s carries %d bytes, symbol holds %d",
				n.name, name, len(data), sym.Size)
		}
		copy(db.Weights[sym.Offset:sym.Offset+sym.Size], data)
	}
	// Read every placeholder back so callers observe post-execution state.
	for name, sym := range n.bundle.Symbols {
		out := make([]byte, sym.Size)
		copy(out, db.Weights[sym.Offset:sym.Offset+sym.Size])
		ec.Bind(name, out)
	}
	return nil
}
