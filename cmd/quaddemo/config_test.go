package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	require.NoError(t, cfg.validate())
}

func TestLoad_OverridesAndRenderer(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Load(`
width = 320
height = 240
frames = 3
grid = 8
backend = "software"
hud = false

[renderer]
frames_in_flight = 3
clear_color = "#102030"
present_mode = "mailbox"
fence_timeout = "500ms"
quad_blend = "alpha"
`)
	require.NoError(t, err)
	assert.Equal(t, uint32(320), cfg.Width)
	assert.Equal(t, uint32(240), cfg.Height)
	assert.Equal(t, 3, cfg.Frames)
	assert.Equal(t, 8, cfg.Grid)
	assert.False(t, cfg.HUD)
	assert.Equal(t, "quaddemo.png", cfg.Output)
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.Equal(t, "#102030", cfg.Renderer.ClearColor)
	assert.Equal(t, 500*time.Millisecond, cfg.Renderer.FenceTimeout)

	opts, err := cfg.options()
	require.NoError(t, err)
	// Five renderer options plus the grid capacity.
	assert.Len(t, opts, 6)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Load(`widht = 10`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widht")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"zero width", `width = 0`, "zero area"},
		{"frames", `frames = 0`, "frames"},
		{"grid", `grid = -2`, "grid"},
		{"backend", `backend = "directx9"`, "directx9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			err := cfg.Load(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BadRendererSection(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Load(`
[renderer]
quad_blend = "screen"
`))
	_, err := cfg.options()
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	require.NoError(t, os.WriteFile(path, []byte("output = \"out.png\"\n"), 0o600))
	cfg, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "out.png", cfg.Output)
	assert.Equal(t, uint32(800), cfg.Width)

	_, err = loadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestParseBackends(t *testing.T) {
	got, err := parseBackends("auto")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseBackends("Vulkan")
	require.NoError(t, err)
	assert.Equal(t, []gputypes.Backend{gputypes.BackendVulkan}, got)

	_, err = parseBackends("glide")
	assert.Error(t, err)
}

func TestOptionsGridCapacity(t *testing.T) {
	cfg := defaultConfig()
	cfg.Grid = 60
	opts, err := cfg.options()
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	cfg.Grid = 10
	opts, err = cfg.options()
	require.NoError(t, err)
	assert.Len(t, opts, 1, "capacity is always pinned to the grid when unset")

	cfg.Renderer.QuadCapacity = 5000
	opts, err = cfg.options()
	require.NoError(t, err)
	assert.Len(t, opts, 1, "explicit capacity above the grid needs no override")
}
