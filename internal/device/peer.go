package device

import "unsafe"

// Peer-to-peer transfers land in a well-known resident network: the
// receiver binds its input placeholder inside that network's weights
// region, and the sender writes to the resolved address directly.
const (
	peerNetworkName = "recv_func"
	peerInputName   = "recv_input"
)

// IsPeerToPeerSupported reports whether this device kind can expose local
// buffer addresses to remote readers.
func (m *Manager) IsPeerToPeerSupported() bool { return true }

// RemotePeerAddress resolves the absolute memory address of the well-known
// receive placeholder for a remote device to write into: the base of the
// receive network's weights buffer plus the placeholder's symbol offset.
//
// channelID is accepted for future multi-channel routing and is otherwise
// unused. bindings may carry the receiver's placeholder set; resolution
// relies only on the conventional names. A missing network or missing
// symbol fails explicitly rather than returning an unresolved offset.
func (m *Manager) RemotePeerAddress(channelID int64, bindings *ExecContext) (int64, error) {
	_ = channelID

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.networks[peerNetworkName]
	if !ok || entry.draining {
		return 0, remoteAddressError{cause: "network " + peerNetworkName + " is not resident"}
	}
	sym, ok := entry.fn.Bundle().Symbols[peerInputName]
	if !ok {
		return 0, remoteAddressError{cause: "symbol " + peerInputName + " not found in " + peerNetworkName}
	}
	base, err := entry.pool.WeightsBase()
	if err != nil {
		return 0, remoteAddressError{cause: err.Error()}
	}
	if len(base) == 0 || sym.Offset+sym.Size > uint64(len(base)) {
		return 0, remoteAddressError{cause: "symbol " + peerInputName + " exceeds the weights region"}
	}
	return int64(uintptr(unsafe.Pointer(&base[0])) + uintptr(sym.Offset)), nil
}
