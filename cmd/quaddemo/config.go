package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad"
)

// demoConfig is the demo's TOML file. Command-line flags override it.
type demoConfig struct {
	Width   uint32 `toml:"width"`
	Height  uint32 `toml:"height"`
	Frames  int    `toml:"frames"`
	Grid    int    `toml:"grid"`
	Output  string `toml:"output"`
	Backend string `toml:"backend"`
	HUD     bool   `toml:"hud"`
	Debug   bool   `toml:"debug"`

	Renderer quad.Config `toml:"renderer"`
}

func defaultConfig() demoConfig {
	return demoConfig{
		Width:  800,
		Height: 600,
		Frames: 60,
		Grid:   40,
		Output: "quaddemo.png",
		HUD:    true,
	}
}

// Load decodes data over c. Unknown keys are rejected.
func (c *demoConfig) Load(data string) error {
	md, err := toml.Decode(data, c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return c.validate()
}

func (c *demoConfig) validate() error {
	var errs []error
	if c.Width == 0 || c.Height == 0 {
		errs = append(errs, fmt.Errorf("size %dx%d has zero area", c.Width, c.Height))
	}
	if c.Frames < 1 {
		errs = append(errs, fmt.Errorf("frames must be positive, got %d", c.Frames))
	}
	if c.Grid < 0 {
		errs = append(errs, fmt.Errorf("grid must not be negative, got %d", c.Grid))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	if _, err := parseBackends(c.Backend); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// loadConfigFile returns the defaults overlaid with the file at path. An
// empty path yields the defaults.
func loadConfigFile(path string) (demoConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Load(string(data)); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// parseBackends maps a backend name to the order OpenDevice tries. An
// empty name or "auto" tries every backend.
func parseBackends(name string) ([]gputypes.Backend, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return nil, nil
	case "vulkan":
		return []gputypes.Backend{gputypes.BackendVulkan}, nil
	case "metal":
		return []gputypes.Backend{gputypes.BackendMetal}, nil
	case "dx12":
		return []gputypes.Backend{gputypes.BackendDX12}, nil
	case "gl", "gles":
		return []gputypes.Backend{gputypes.BackendGL}, nil
	case "software", "noop", "empty":
		return []gputypes.Backend{gputypes.BackendEmpty}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// options converts the renderer section, raising the quad capacity to fit
// the grid.
func (c *demoConfig) options() ([]quad.Option, error) {
	opts, err := c.Renderer.Options()
	if err != nil {
		return nil, err
	}
	if n := c.Grid * c.Grid; n > max(c.Renderer.QuadCapacity, 0) {
		opts = append(opts, quad.WithQuadCapacity(max(n, 1)))
	}
	return opts, nil
}
