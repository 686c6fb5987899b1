package bimview

import (
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
)

// Module extends a viewer when it is built.
type Module interface {
	Install(v *Viewer)
}

type ViewerBuilder struct {
	device  gpu.Device
	cfg     Config
	logger  core.Logger
	modules []Module
}

func NewViewerBuilder(device gpu.Device) *ViewerBuilder {
	return &ViewerBuilder{device: device, cfg: DefaultConfig()}
}

func (b *ViewerBuilder) UseConfig(cfg Config) *ViewerBuilder {
	b.cfg = cfg
	return b
}

func (b *ViewerBuilder) UseLogger(l core.Logger) *ViewerBuilder {
	b.logger = l
	return b
}

func (b *ViewerBuilder) UseModule(modules ...Module) *ViewerBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

func (b *ViewerBuilder) Build() (*Viewer, error) {
	v, err := NewViewer(b.device, b.cfg, b.logger)
	if err != nil {
		return nil, err
	}
	for _, m := range b.modules {
		m.Install(v)
	}
	return v, nil
}

// FrustumCullingModule culls entities against the view frustum before
// every frame.
type FrustumCullingModule struct{}

func (FrustumCullingModule) Install(v *Viewer) {
	v.cullOnFrame = true
}

// StatsModule logs the profiler every Every frames and then resets it.
type StatsModule struct {
	Every int

	frames int
}

func (m *StatsModule) Install(v *Viewer) {
	if m.Every <= 0 {
		m.Every = 120
	}
	v.afterFrame = append(v.afterFrame, func(*core.View) {
		m.frames++
		if m.frames%m.Every != 0 {
			return
		}
		v.logger.Infof("stats over %d frames: %s", m.Every, v.profiler.GetStatsString())
		v.profiler.Reset()
	})
}
