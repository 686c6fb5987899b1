package shaders

import (
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
)

// SetConfig is shared by every renderer a set creates.
type SetConfig struct {
	Device           gpu.Device
	Logger           core.Logger
	Profiler         *core.Profiler
	ProgramCacheSize int
}

// RendererSet holds the renderers of one primitive type for one viewer.
// Renderers are created on first use and destroyed together.
type RendererSet struct {
	primitive core.Primitive
	cfg       SetConfig
	renderers [numKinds]*Renderer
	destroyed bool
}

func NewRendererSet(primitive core.Primitive, cfg SetConfig) *RendererSet {
	return &RendererSet{primitive: primitive, cfg: cfg}
}

func (s *RendererSet) Primitive() core.Primitive { return s.primitive }

// Renderer returns the renderer for the kind, creating it on first use.
// It returns nil once the set is destroyed.
func (s *RendererSet) Renderer(k Kind) *Renderer {
	if s.destroyed || k >= numKinds {
		return nil
	}
	if s.renderers[k] == nil {
		s.renderers[k] = newRenderer(k, s.primitive, &s.cfg)
	}
	return s.renderers[k]
}

// Built returns the kinds whose renderer exists.
func (s *RendererSet) Built() []Kind {
	var out []Kind
	for k, r := range s.renderers {
		if r != nil {
			out = append(out, Kind(k))
		}
	}
	return out
}

// MarkStale invalidates every built renderer.
func (s *RendererSet) MarkStale() {
	for _, r := range s.renderers {
		if r != nil {
			r.MarkStale()
		}
	}
}

// Compiles sums compiles over all renderers.
func (s *RendererSet) Compiles() int {
	n := 0
	for _, r := range s.renderers {
		if r != nil {
			n += r.Compiles()
		}
	}
	return n
}

// Destroy releases every renderer. The set cannot be used afterwards.
func (s *RendererSet) Destroy() {
	for i, r := range s.renderers {
		if r != nil {
			r.Destroy()
			s.renderers[i] = nil
		}
	}
	s.destroyed = true
}

func (s *RendererSet) Destroyed() bool { return s.destroyed }
