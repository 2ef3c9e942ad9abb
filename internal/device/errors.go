package device

import "fmt"

// duplicateNetworkError signals an add referencing an already resident name.
type duplicateNetworkError struct{ name string }

func (e duplicateNetworkError) Error() string {
	return "failed to add network: already have a network called " + e.name
}

// IsDuplicateNetwork reports whether err indicates a duplicate network name.
func IsDuplicateNetwork(err error) bool {
	_, ok := err.(duplicateNetworkError)
	return ok
}

// backendMismatchError signals an add of a handle compiled for another
// backend kind.
type backendMismatchError struct{ name, backend, want string }

func (e backendMismatchError) Error() string {
	return fmt.Sprintf("failed to add network: %s is compiled for %s, not %s", e.name, e.backend, e.want)
}

// IsBackendMismatch reports whether err indicates a wrong backend kind.
func IsBackendMismatch(err error) bool {
	_, ok := err.(backendMismatchError)
	return ok
}

// outOfMemoryError signals a failed admission check or a failed buffer
// allocation after admission passed.
type outOfMemoryError struct{ cause string }

func (e outOfMemoryError) Error() string {
	return "failed to add network: not enough device memory: " + e.cause
}

// IsOutOfDeviceMemory reports whether err indicates the device budget was
// exceeded.
func IsOutOfDeviceMemory(err error) bool {
	_, ok := err.(outOfMemoryError)
	return ok
}

// notFoundError signals an evict or run against an absent network name.
type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "network not found: " + e.name }

// IsNetworkNotFound reports whether err indicates an absent network.
func IsNetworkNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// exhaustedError signals that a run could not obtain a buffer slot within
// policy.
type exhaustedError struct {
	network string
	runID   uint64
}

func (e exhaustedError) Error() string {
	return fmt.Sprintf("run %d: no buffer slot available for network %s", e.runID, e.network)
}

// IsResourceExhausted reports whether err indicates buffer-slot exhaustion.
func IsResourceExhausted(err error) bool {
	_, ok := err.(exhaustedError)
	return ok
}

// remoteAddressError signals a failed peer-to-peer address resolution.
type remoteAddressError struct{ cause string }

func (e remoteAddressError) Error() string {
	return "failed to resolve remote address: " + e.cause
}

// IsRemoteAddressUnavailable reports whether err indicates peer address
// resolution failure.
func IsRemoteAddressUnavailable(err error) bool {
	_, ok := err.(remoteAddressError)
	return ok
}
