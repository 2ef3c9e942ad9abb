package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"deviced/internal/device"
	"deviced/internal/httpapi"
	"deviced/internal/registry"
)

// manifestSpec is the shape written to temp manifest files.
type manifestSpec struct {
	Name            string                       `json:"name"`
	ActivationsSize uint64                       `json:"activations_size"`
	WeightsSize     uint64                       `json:"weights_size"`
	Symbols         map[string]map[string]uint64 `json:"symbols,omitempty"`
}

// createTempManifestsDir writes JSON manifests into a temp dir and returns it.
func createTempManifestsDir(t *testing.T, manifests ...manifestSpec) string {
	t.Helper()
	dir := t.TempDir()
	for _, m := range manifests {
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal manifest %s: %v", m.Name, err)
		}
		p := filepath.Join(dir, m.Name+".json")
		if err := os.WriteFile(p, b, 0o644); err != nil {
			t.Fatalf("write temp manifest %s: %v", p, err)
		}
	}
	return dir
}

// newServerForDir loads the manifest catalog and starts an in-process server.
func newServerForDir(t *testing.T, manifestsDir string, cfg device.Config) (*httptest.Server, *device.Manager) {
	t.Helper()
	cat, err := registry.LoadDir(manifestsDir)
	if err != nil {
		t.Fatalf("load manifests: %v", err)
	}
	mgr := device.New(cfg)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	mux := httpapi.NewMux(mgr, cat)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpDelete(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
