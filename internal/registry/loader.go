// Package registry loads compiled-network manifests from disk and exposes
// them as executable handles. It stands in for the compiler pipeline, which
// produces bundles upstream of this daemon.
package registry

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"deviced/internal/common/fsutil"
	"deviced/internal/device"
	"deviced/pkg/types"
)

// manifestSymbol locates one placeholder inside the weights region.
type manifestSymbol struct {
	Offset uint64 `json:"offset" yaml:"offset" toml:"offset"`
	Size   uint64 `json:"size" yaml:"size" toml:"size"`
}

// Manifest describes one compiled network. One manifest file per network;
// the format is chosen by file extension (.toml, .yaml/.yml, .json).
type Manifest struct {
	Name            string                    `json:"name" yaml:"name" toml:"name"`
	Backend         string                    `json:"backend" yaml:"backend" toml:"backend"`
	ActivationsSize uint64                    `json:"activations_size" yaml:"activations_size" toml:"activations_size"`
	WeightsSize     uint64                    `json:"weights_size" yaml:"weights_size" toml:"weights_size"`
	Symbols         map[string]manifestSymbol `json:"symbols" yaml:"symbols" toml:"symbols"`
	// Constants holds base64-encoded constant data, resolved lazily on
	// first add.
	Constants string `json:"constants,omitempty" yaml:"constants,omitempty" toml:"constants,omitempty"`
}

// Catalog holds the loaded manifests keyed by network name.
type Catalog struct {
	networks map[string]*Network
}

// LoadDir scans a directory for manifest files and builds a catalog.
// Unknown extensions are skipped; a malformed or duplicate manifest fails
// the whole load.
func LoadDir(dir string) (*Catalog, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	cat := &Catalog{networks: make(map[string]*Network)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		p := filepath.Join(abs, e.Name())
		man, err := loadManifest(p)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", e.Name(), err)
		}
		if _, dup := cat.networks[man.Name]; dup {
			return nil, fmt.Errorf("manifest %s: duplicate network name %s", e.Name(), man.Name)
		}
		cat.networks[man.Name] = newNetwork(man)
	}
	return cat, nil
}

func loadManifest(path string) (Manifest, error) {
	var man Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return man, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &man)
	case ".json":
		err = json.Unmarshal(b, &man)
	case ".toml":
		err = toml.Unmarshal(b, &man)
	default:
		err = fmt.Errorf("unsupported manifest extension: %s", ext)
	}
	if err != nil {
		return man, err
	}
	if man.Name == "" {
		return man, fmt.Errorf("missing network name")
	}
	if man.Backend == "" {
		man.Backend = "CPU"
	}
	for name, sym := range man.Symbols {
		if sym.Offset+sym.Size > man.WeightsSize {
			return man, fmt.Errorf("symbol %s exceeds the weights region", name)
		}
	}
	if man.Constants != "" {
		if _, err := base64.StdEncoding.DecodeString(man.Constants); err != nil {
			return man, fmt.Errorf("constants: %w", err)
		}
	}
	return man, nil
}

// Lookup returns the handle for a network name.
func (c *Catalog) Lookup(name string) (device.CompiledFunction, bool) {
	n, ok := c.networks[name]
	return n, ok
}

// List returns the catalog's specs sorted by name.
func (c *Catalog) List() []types.NetworkSpec {
	out := make([]types.NetworkSpec, 0, len(c.networks))
	for _, n := range c.networks {
		out = append(out, n.Spec())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of loaded manifests.
func (c *Catalog) Len() int { return len(c.networks) }
