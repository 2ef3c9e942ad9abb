package types

// AddNetworksRequest asks the device to make a batch of networks resident.
// Names must refer to networks present in the manifest catalog.
type AddNetworksRequest struct {
	Networks []string `json:"networks"`
}

// RunRequest carries placeholder bindings for one execution. Values are
// base64-encoded raw tensor bytes keyed by placeholder name.
type RunRequest struct {
	Inputs map[string]string `json:"inputs,omitempty"`
}

// RunResponse returns the correlating identifiers and the placeholder
// contents after execution, base64-encoded.
type RunResponse struct {
	RequestID string            `json:"request_id"`
	RunID     uint64            `json:"run_id"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// PeerAddressResponse carries a resolved peer-to-peer memory address.
type PeerAddressResponse struct {
	ChannelID int64 `json:"channel_id"`
	Address   int64 `json:"address"`
}

// StatusResponse is a read-only projection of the device manager state.
type StatusResponse struct {
	MaximumMemory   uint64          `json:"maximum_memory"`
	UsedMemory      uint64          `json:"used_memory"`
	AvailableMemory uint64          `json:"available_memory"`
	Networks        []NetworkStatus `json:"networks"`
}

// ErrorResponse is the JSON error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
