package types

// NetworkSpec describes a compiled network known to the device, as loaded
// from a manifest or reported by the status endpoint.
type NetworkSpec struct {
	// Stable name of the compiled network.
	// example: resnet50_part0
	Name string `json:"name" example:"resnet50_part0"`
	// Backend kind the network was compiled for.
	// example: CPU
	Backend string `json:"backend" example:"CPU"`
	// Required activations scratch size in bytes.
	ActivationsSize uint64 `json:"activations_size"`
	// Required mutable-weights size in bytes.
	WeightsSize uint64 `json:"weights_size"`
	// Memory cost charged against the device budget per concurrency slot.
	CostBytes uint64 `json:"cost_bytes"`
}

// NetworkStatus is the live view of one resident network.
type NetworkStatus struct {
	Name      string `json:"name"`
	CostBytes uint64 `json:"cost_bytes"`
	InFlight  int    `json:"in_flight"`
	Draining  bool   `json:"draining,omitempty"`
}

// DeviceCaps reports fixed capacity numbers for upstream placement
// decisions. All values are constant per device class.
type DeviceCaps struct {
	// On-chip memory in bytes.
	SRAMCapacity uint64 `json:"sram_capacity"`
	// Peak compute in flops/sec.
	PeakCompute float64 `json:"peak_compute"`
	// Peak DRAM bandwidth in bytes/sec.
	PeakDRAMBw float64 `json:"peak_dram_bw"`
	// Peak SRAM bandwidth in bytes/sec.
	PeakSRAMBw float64 `json:"peak_sram_bw"`
	// Peak interconnect (PCIe) bandwidth in bytes/sec.
	PeakPCIeBw float64 `json:"peak_pcie_bw"`
}
