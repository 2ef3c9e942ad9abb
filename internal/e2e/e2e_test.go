package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"deviced/internal/device"
	"deviced/pkg/types"
)

func TestE2E_Networks_Add_Run_Evict(t *testing.T) {
	dir := createTempManifestsDir(t,
		manifestSpec{Name: "alpha", ActivationsSize: 64, WeightsSize: 64,
			Symbols: map[string]map[string]uint64{"in0": {"offset": 0, "size": 8}}},
		manifestSpec{Name: "beta", ActivationsSize: 32, WeightsSize: 32},
	)
	srv, _ := newServerForDir(t, dir, device.Config{DeviceMemory: 1 << 20})

	// 1) GET /networks returns the catalog
	resp, body := httpGet(t, srv.URL+"/networks")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/networks status=%d body=%s", resp.StatusCode, string(body))
	}
	var listResp struct {
		Networks []types.NetworkSpec `json:"networks"`
	}
	if err := json.Unmarshal(body, &listResp); err != nil {
		t.Fatalf("/networks json: %v body=%s", err, string(body))
	}
	if len(listResp.Networks) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(listResp.Networks))
	}

	// 2) Add both as one batch
	resp, body = httpPostJSON(t, srv.URL+"/networks", []byte(`{"networks":["alpha","beta"]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status=%d body=%s", resp.StatusCode, string(body))
	}

	// 3) Run alpha; the bound placeholder round-trips through the weights region
	input := base64.StdEncoding.EncodeToString([]byte("12345678"))
	resp, body = httpPostJSON(t, srv.URL+"/networks/alpha/run", []byte(`{"inputs":{"in0":"`+input+`"}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status=%d body=%s", resp.StatusCode, string(body))
	}
	var runResp types.RunResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		t.Fatalf("run json: %v body=%s", err, string(body))
	}
	if runResp.Outputs["in0"] != input {
		t.Fatalf("expected in0 echoed, got %q", runResp.Outputs["in0"])
	}

	// 4) Status reflects both residents and their cost
	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d body=%s", resp.StatusCode, string(body))
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, string(body))
	}
	if len(st.Networks) != 2 || st.UsedMemory == 0 {
		t.Fatalf("/status unexpected: %+v", st)
	}

	// 5) Evict alpha; running it afterwards is a 404
	resp, body = httpDelete(t, srv.URL+"/networks/alpha")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evict status=%d body=%s", resp.StatusCode, string(body))
	}
	resp, body = httpPostJSON(t, srv.URL+"/networks/alpha/run", []byte(`{"inputs":{}}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("run after evict: expected 404, got %d body=%s", resp.StatusCode, string(body))
	}
}

func TestE2E_PeerAddressFlow(t *testing.T) {
	dir := createTempManifestsDir(t,
		manifestSpec{Name: "recv_func", ActivationsSize: 16, WeightsSize: 64,
			Symbols: map[string]map[string]uint64{"recv_input": {"offset": 16, "size": 8}}},
	)
	srv, _ := newServerForDir(t, dir, device.Config{DeviceMemory: 1 << 20})

	// Not resident yet: resolution must fail loudly, not return a stale address.
	resp, body := httpGet(t, srv.URL+"/peer-address?channel=1")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("peer-address before add: expected 404, got %d body=%s", resp.StatusCode, string(body))
	}

	resp, body = httpPostJSON(t, srv.URL+"/networks", []byte(`{"networks":["recv_func"]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status=%d body=%s", resp.StatusCode, string(body))
	}

	resp, body = httpGet(t, srv.URL+"/peer-address?channel=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("peer-address status=%d body=%s", resp.StatusCode, string(body))
	}
	var peer types.PeerAddressResponse
	if err := json.Unmarshal(body, &peer); err != nil {
		t.Fatalf("peer-address json: %v body=%s", err, string(body))
	}
	if peer.Address == 0 {
		t.Fatalf("expected non-zero device address, body=%s", string(body))
	}
}

func TestE2E_OverBudget507(t *testing.T) {
	dir := createTempManifestsDir(t,
		manifestSpec{Name: "huge", ActivationsSize: 1 << 20, WeightsSize: 1 << 20},
	)
	srv, _ := newServerForDir(t, dir, device.Config{DeviceMemory: 1024})

	resp, body := httpPostJSON(t, srv.URL+"/networks", []byte(`{"networks":["huge"]}`))
	if resp.StatusCode != http.StatusInsufficientStorage {
		t.Fatalf("expected 507, got %d body=%s", resp.StatusCode, string(body))
	}

	// Nothing was committed.
	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, string(body))
	}
	if st.UsedMemory != 0 || len(st.Networks) != 0 {
		t.Fatalf("expected clean state after rejection, got %+v", st)
	}
}

func TestE2E_MetricsExposed(t *testing.T) {
	dir := createTempManifestsDir(t,
		manifestSpec{Name: "alpha", ActivationsSize: 64, WeightsSize: 64},
	)
	srv, _ := newServerForDir(t, dir, device.Config{DeviceMemory: 1 << 20})

	resp, body := httpPostJSON(t, srv.URL+"/networks", []byte(`{"networks":["alpha"]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status=%d body=%s", resp.StatusCode, string(body))
	}

	resp, body = httpGet(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status=%d", resp.StatusCode)
	}
	for _, metric := range [][]byte{
		[]byte("deviced_device_memory_used_bytes"),
		[]byte("deviced_device_resident_networks"),
		[]byte("deviced_http_requests_total"),
	} {
		if !bytes.Contains(body, metric) {
			t.Fatalf("/metrics missing %s", metric)
		}
	}
}
