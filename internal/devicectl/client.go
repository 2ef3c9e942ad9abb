package devicectl

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"deviced/pkg/types"
)

// Client is a thin HTTP client for a running deviced instance.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(addr string) *Client {
	base := addr
	if base == "" {
		base = envStr("DEVICED_ADDR", "http://127.0.0.1:8080")
	}
	if base[0] == ':' {
		base = "http://127.0.0.1" + base
	}
	return &Client{base: base, hc: &http.Client{Timeout: 60 * time.Second}}
}

func (c *Client) Status() (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.get("/status", &out)
	return out, err
}

func (c *Client) ListNetworks() ([]types.NetworkSpec, error) {
	var out struct {
		Networks []types.NetworkSpec `json:"networks"`
	}
	err := c.get("/networks", &out)
	return out.Networks, err
}

func (c *Client) AddNetworks(names []string) error {
	return c.post("/networks", types.AddNetworksRequest{Networks: names}, nil)
}

func (c *Client) EvictNetwork(name string) error {
	req, err := http.NewRequest(http.MethodDelete, c.base+"/networks/"+name, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Run executes a network with raw input bytes; outputs come back decoded.
func (c *Client) Run(name string, inputs map[string][]byte) (types.RunResponse, map[string][]byte, error) {
	req := types.RunRequest{Inputs: make(map[string]string, len(inputs))}
	for ph, data := range inputs {
		req.Inputs[ph] = base64.StdEncoding.EncodeToString(data)
	}
	var resp types.RunResponse
	if err := c.post("/networks/"+name+"/run", req, &resp); err != nil {
		return resp, nil, err
	}
	outputs := make(map[string][]byte, len(resp.Outputs))
	for ph, b64 := range resp.Outputs {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return resp, nil, fmt.Errorf("output %s is not valid base64: %w", ph, err)
		}
		outputs[ph] = data
	}
	return resp, outputs, nil
}

func (c *Client) PeerAddress(channelID int64) (types.PeerAddressResponse, error) {
	var out types.PeerAddressResponse
	err := c.get("/peer-address?channel="+strconv.FormatInt(channelID, 10), &out)
	return out, err
}

func (c *Client) Device() (map[string]any, error) {
	var out map[string]any
	err := c.get("/device", &out)
	return out, err
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(path string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var er types.ErrorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			return fmt.Errorf("deviced: %s (status %d)", er.Error, resp.StatusCode)
		}
		return fmt.Errorf("deviced: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
