package devicectl

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deviced/pkg/types"
)

func TestParseInputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.bin")
	if err := os.WriteFile(path, []byte{9, 8, 7}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := parseInputs([]string{
		"a=" + base64.StdEncoding.EncodeToString([]byte{1, 2}),
		"b=@" + path,
	})
	if err != nil {
		t.Fatalf("parseInputs: %v", err)
	}
	if !bytes.Equal(got["a"], []byte{1, 2}) {
		t.Fatalf("a = %v", got["a"])
	}
	if !bytes.Equal(got["b"], []byte{9, 8, 7}) {
		t.Fatalf("b = %v", got["b"])
	}

	if _, err := parseInputs([]string{"no-separator"}); err == nil {
		t.Fatal("expected error for missing =")
	}
	if _, err := parseInputs([]string{"a=!!!"}); err == nil {
		t.Fatal("expected error for bad base64")
	}
	if _, err := parseInputs([]string{"a=@" + filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClientStatusAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			json.NewEncoder(w).Encode(types.StatusResponse{MaximumMemory: 100, UsedMemory: 40, AvailableMemory: 60})
		case "/networks":
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(types.ErrorResponse{Error: "network already added: n1", Code: http.StatusConflict})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	st, err := c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.UsedMemory != 40 || st.MaximumMemory != 100 {
		t.Fatalf("status = %+v", st)
	}

	err = c.AddNetworks([]string{"n1"})
	if err == nil || !strings.Contains(err.Error(), "already added") {
		t.Fatalf("add error = %v", err)
	}
}

func TestClientRunRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/networks/n1/run" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req types.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Echo the inputs back as outputs.
		json.NewEncoder(w).Encode(types.RunResponse{RequestID: "r1", RunID: 7, Outputs: req.Inputs})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, outputs, err := c.Run("n1", map[string][]byte{"x": {1, 2, 3}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if resp.RunID != 7 {
		t.Fatalf("run id = %d", resp.RunID)
	}
	if !bytes.Equal(outputs["x"], []byte{1, 2, 3}) {
		t.Fatalf("outputs = %v", outputs)
	}
}

func TestClientAddrNormalization(t *testing.T) {
	c := NewClient(":9090")
	if c.base != "http://127.0.0.1:9090" {
		t.Fatalf("base = %q", c.base)
	}
}

func TestRootCommandHelp(t *testing.T) {
	root := buildRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, want := range []string{"status", "networks", "run", "peer-address"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("help output missing %q", want)
		}
	}
}

func TestMainWithArgsUnknownCommand(t *testing.T) {
	if code := MainWithArgs([]string{"bogus"}); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}
