package bimview

import (
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/layer"
	"gopkg.in/yaml.v3"
)

// EmphasisConfig styles one emphasis state. Colors are CSS color names.
type EmphasisConfig struct {
	Fill        bool    `yaml:"fill"`
	FillColor   string  `yaml:"fill_color"`
	FillAlpha   float32 `yaml:"fill_alpha"`
	Edges       bool    `yaml:"edges"`
	EdgeColor   string  `yaml:"edge_color"`
	EdgeAlpha   float32 `yaml:"edge_alpha"`
	GlowThrough bool    `yaml:"glow_through"`
}

type EmphasisSet struct {
	XRay      EmphasisConfig `yaml:"xray"`
	Highlight EmphasisConfig `yaml:"highlight"`
	Selected  EmphasisConfig `yaml:"selected"`
}

type Config struct {
	MaxLayerVertices int `yaml:"max_layer_vertices"`
	MaxLayerIndices  int `yaml:"max_layer_indices"`
	// RTCCellSize is the grid that far-away geometry snaps its origin to.
	// Zero disables relative-to-center storage.
	RTCCellSize      float64     `yaml:"rtc_cell_size"`
	ProgramCacheSize int         `yaml:"program_cache_size"`
	LogPrefix        string      `yaml:"log_prefix"`
	Debug            bool        `yaml:"debug"`
	Emphasis         EmphasisSet `yaml:"emphasis"`
}

func DefaultConfig() Config {
	return Config{
		MaxLayerVertices: layer.DefaultMaxVertices,
		MaxLayerIndices:  layer.DefaultMaxIndices,
		RTCCellSize:      200,
		ProgramCacheSize: 8,
		LogPrefix:        "bimview",
		Emphasis: EmphasisSet{
			XRay: EmphasisConfig{
				Fill: true, FillColor: "lightgray", FillAlpha: 0.1,
				Edges: true, EdgeColor: "darkgray", EdgeAlpha: 0.3,
			},
			Highlight: EmphasisConfig{
				Fill: true, FillColor: "gold", FillAlpha: 0.6,
				Edges: true, EdgeColor: "orange", EdgeAlpha: 1,
				GlowThrough: true,
			},
			Selected: EmphasisConfig{
				Fill: true, FillColor: "limegreen", FillAlpha: 0.6,
				Edges: true, EdgeColor: "green", EdgeAlpha: 1,
				GlowThrough: true,
			},
		},
	}
}

// ParseConfig reads YAML over the defaults; keys left out keep their default.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	var errs []error
	if c.MaxLayerVertices <= 0 {
		errs = append(errs, fmt.Errorf("max_layer_vertices must be positive, got %d", c.MaxLayerVertices))
	}
	if c.MaxLayerIndices <= 0 {
		errs = append(errs, fmt.Errorf("max_layer_indices must be positive, got %d", c.MaxLayerIndices))
	}
	if c.RTCCellSize < 0 {
		errs = append(errs, fmt.Errorf("rtc_cell_size must not be negative, got %g", c.RTCCellSize))
	}
	if c.ProgramCacheSize < 1 {
		errs = append(errs, fmt.Errorf("program_cache_size must be at least 1, got %d", c.ProgramCacheSize))
	}
	for name, e := range map[string]EmphasisConfig{
		"xray":      c.Emphasis.XRay,
		"highlight": c.Emphasis.Highlight,
		"selected":  c.Emphasis.Selected,
	} {
		if _, err := e.Material(); err != nil {
			errs = append(errs, fmt.Errorf("emphasis.%s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Material resolves the color names into an emphasis material.
func (e EmphasisConfig) Material() (core.EmphasisMaterial, error) {
	fill, ok := core.NamedColor(e.FillColor)
	if !ok {
		return core.EmphasisMaterial{}, fmt.Errorf("unknown fill color %q", e.FillColor)
	}
	edge, ok := core.NamedColor(e.EdgeColor)
	if !ok {
		return core.EmphasisMaterial{}, fmt.Errorf("unknown edge color %q", e.EdgeColor)
	}
	if e.FillAlpha < 0 || e.FillAlpha > 1 || e.EdgeAlpha < 0 || e.EdgeAlpha > 1 {
		return core.EmphasisMaterial{}, fmt.Errorf("alpha out of [0,1]: fill %g, edge %g", e.FillAlpha, e.EdgeAlpha)
	}
	return core.EmphasisMaterial{
		Fill:        e.Fill,
		FillColor:   fill,
		FillAlpha:   e.FillAlpha,
		Edges:       e.Edges,
		EdgeColor:   edge,
		EdgeAlpha:   e.EdgeAlpha,
		GlowThrough: e.GlowThrough,
	}, nil
}

// applyEmphasis sets a view's materials. The config is validated beforehand.
func (c Config) applyEmphasis(v *core.View) {
	v.XRay, _ = c.Emphasis.XRay.Material()
	v.Highlight, _ = c.Emphasis.Highlight.Material()
	v.Selected, _ = c.Emphasis.Selected.Material()
}
