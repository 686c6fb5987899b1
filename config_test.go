package bimview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4_000_000, cfg.MaxLayerVertices)
	assert.Equal(t, 4_000_000, cfg.MaxLayerIndices)
	assert.Equal(t, 200.0, cfg.RTCCellSize)
	assert.Equal(t, 8, cfg.ProgramCacheSize)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
max_layer_vertices: 1000
program_cache_size: 2
debug: true
emphasis:
  highlight:
    fill_color: red
`))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.MaxLayerVertices)
	assert.Equal(t, 4_000_000, cfg.MaxLayerIndices)
	assert.Equal(t, 2, cfg.ProgramCacheSize)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "red", cfg.Emphasis.Highlight.FillColor)
	assert.Equal(t, float32(0.6), cfg.Emphasis.Highlight.FillAlpha)
	assert.Equal(t, "lightgray", cfg.Emphasis.XRay.FillColor)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown color", "emphasis:\n  selected:\n    edge_color: notacolor\n", "emphasis.selected"},
		{"alpha range", "emphasis:\n  xray:\n    fill_alpha: 2\n", "emphasis.xray"},
		{"capacity", "max_layer_indices: 0\n", "max_layer_indices"},
		{"cache", "program_cache_size: 0\n", "program_cache_size"},
		{"cell", "rtc_cell_size: -1\n", "rtc_cell_size"},
		{"syntax", "max_layer_vertices: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rtc_cell_size: 50\nlog_prefix: test\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.RTCCellSize)
	assert.Equal(t, "test", cfg.LogPrefix)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestViewsTakeConfiguredEmphasis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Emphasis.Highlight.FillColor = "red"
	cfg.Emphasis.Selected.GlowThrough = false
	v, err := NewViewer(gputest.NewDevice(), cfg, core.NewNopLogger())
	require.NoError(t, err)

	view, err := v.CreateView("main")
	require.NoError(t, err)
	red, _ := core.NamedColor("red")
	assert.Equal(t, red, view.Highlight.FillColor)
	assert.False(t, view.GlowThrough().Selected)
	assert.True(t, view.GlowThrough().Highlighted)
}

func TestNewViewerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProgramCacheSize = 0
	_, err := NewViewer(gputest.NewDevice(), cfg, nil)
	assert.Error(t, err)

	_, err = NewViewer(nil, DefaultConfig(), nil)
	assert.Error(t, err)
}
