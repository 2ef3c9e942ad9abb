package device

import "deviced/pkg/types"

// Capacity constants for this device class. Used by upstream placement
// logic; not enforced by the manager.
const (
	sramCapacityBytes = 256 * 1024 * 1024
	peakComputeFlops  = 2.2 * 1024 * 1024 * 1024 * 1024
	peakDramBwBytes   = 110.0 * 1024 * 1024 * 1024
	peakSramBwBytes   = 1024.0 * 1024 * 1024 * 1024
	peakPCIeBwBytes   = 16.0 * 1024 * 1024 * 1024
)

// Info returns the static capability numbers for this device kind.
func (m *Manager) Info() types.DeviceCaps {
	return types.DeviceCaps{
		SRAMCapacity: sramCapacityBytes,
		PeakCompute:  peakComputeFlops,
		PeakDRAMBw:   peakDramBwBytes,
		PeakSRAMBw:   peakSramBwBytes,
		PeakPCIeBw:   peakPCIeBwBytes,
	}
}
