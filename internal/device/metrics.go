package device

import "github.com/prometheus/client_golang/prometheus"

var (
	memoryUsedBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "deviced",
			Subsystem: "device",
			Name:      "memory_used_bytes",
			Help:      "Bytes currently reserved by resident networks",
		},
	)

	residentNetworks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "deviced",
			Subsystem: "device",
			Name:      "resident_networks",
			Help:      "Number of networks currently resident on the device",
		},
	)

	devicesInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "deviced",
			Subsystem: "device",
			Name:      "devices_in_use",
			Help:      "Device managers currently constructed",
		},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deviced",
			Subsystem: "device",
			Name:      "runs_total",
			Help:      "Total executions dispatched, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(memoryUsedBytes, residentNetworks, devicesInUse, runsTotal)
}

// exportMemoryCounters publishes the memory state after every add/evict.
// Callers hold the manager lock.
func (m *Manager) exportMemoryCounters() {
	memoryUsedBytes.Set(float64(m.accountant.UsedMemory()))
	residentNetworks.Set(float64(len(m.networks)))
}

func (m *Manager) zeroMemoryCounters() {
	memoryUsedBytes.Set(0)
	residentNetworks.Set(0)
}
