// Package bimview is the GPU batching and render-state core of a BIM viewer.
// A Viewer owns views and scene models; models merge mesh geometry into
// layers, and entities drive the per-view render state of their meshes.
package bimview

import (
	"errors"
	"fmt"

	"github.com/gekko3d/bimview/rt/compress"
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
	"github.com/gekko3d/bimview/rt/layer"
	"github.com/gekko3d/bimview/rt/shaders"
	"github.com/google/uuid"
)

var (
	ErrDestroyed     = errors.New("viewer destroyed")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrUnknownID     = errors.New("unknown id")
	ErrFinalized     = errors.New("model already finalized")
	ErrNotFinalized  = errors.New("model not finalized")
	ErrEmptyGeometry = errors.New("mesh has no geometry")
	ErrMeshTooLarge  = errors.New("mesh exceeds layer capacity")
)

// PickMode selects what the pick pass writes.
type PickMode uint8

const (
	PickMesh PickMode = iota
	PickDepth
)

type Viewer struct {
	device   gpu.Device
	cfg      Config
	logger   core.Logger
	profiler *core.Profiler
	scratch  *layer.ScratchArena

	// views is indexed by view index; removed views leave a nil slot.
	views     []*core.View
	viewsByID map[string]*core.View

	models     map[string]*SceneModel
	modelOrder []*SceneModel

	sets [3]*shaders.RendererSet

	picks      map[uint32]*Mesh
	nextPickID uint32
	nextLayer  int

	pickZNear, pickZFar float32
	cullOnFrame         bool
	afterFrame          []func(*core.View)

	destroyed bool
}

func NewViewer(device gpu.Device, cfg Config, logger core.Logger) (*Viewer, error) {
	if device == nil {
		return nil, errors.New("new viewer: nil device")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NewDefaultLogger(cfg.LogPrefix, cfg.Debug)
	}
	v := &Viewer{
		device:    device,
		cfg:       cfg,
		logger:    logger,
		profiler:  core.NewProfiler(),
		scratch:   layer.NewScratchArena(),
		viewsByID: make(map[string]*core.View),
		models:    make(map[string]*SceneModel),
		picks:     make(map[uint32]*Mesh),
		pickZNear: 0.1,
		pickZFar:  10000,
	}
	v.createSets()
	v.logger.Infof("viewer created: layer cap %d vertices / %d indices, rtc cell %g",
		cfg.MaxLayerVertices, cfg.MaxLayerIndices, cfg.RTCCellSize)
	return v, nil
}

func (v *Viewer) createSets() {
	sc := shaders.SetConfig{
		Device:           v.device,
		Logger:           v.logger,
		Profiler:         v.profiler,
		ProgramCacheSize: v.cfg.ProgramCacheSize,
	}
	for _, p := range []core.Primitive{core.PrimitiveTriangles, core.PrimitiveLines, core.PrimitivePoints} {
		v.sets[p] = shaders.NewRendererSet(p, sc)
	}
}

func (v *Viewer) Config() Config { return v.cfg }

func (v *Viewer) Logger() core.Logger { return v.logger }

// Stats returns the profiler holding draw, compile and patch counters.
func (v *Viewer) Stats() *core.Profiler { return v.profiler }

// RendererSet returns the renderers of a primitive type.
func (v *Viewer) RendererSet(p core.Primitive) *shaders.RendererSet { return v.sets[p] }

// CreateView adds a view. An empty id gets a generated one. Views may be
// created at any time; existing models grow their per-view state.
func (v *Viewer) CreateView(id string) (*core.View, error) {
	if v.destroyed {
		return nil, ErrDestroyed
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := v.viewsByID[id]; ok {
		return nil, fmt.Errorf("create view %q: %w", id, ErrDuplicateID)
	}
	view := core.NewView(id, len(v.views))
	v.cfg.applyEmphasis(view)
	view.OnChange(v.onViewChange)
	v.views = append(v.views, view)
	v.viewsByID[id] = view

	for _, m := range v.modelOrder {
		m.addView(view)
	}
	v.logger.Infof("view %s created at index %d", id, view.Index)
	return view, nil
}

// RemoveView releases the view's per-view buffers. Its index is not reused.
func (v *Viewer) RemoveView(id string) error {
	view, ok := v.viewsByID[id]
	if !ok {
		return fmt.Errorf("remove view %q: %w", id, ErrUnknownID)
	}
	for _, m := range v.modelOrder {
		m.removeView(view.Index)
	}
	v.views[view.Index] = nil
	delete(v.viewsByID, id)
	v.logger.Infof("view %s removed", id)
	return nil
}

func (v *Viewer) View(id string) *core.View { return v.viewsByID[id] }

// Views returns the live views in index order.
func (v *Viewer) Views() []*core.View {
	out := make([]*core.View, 0, len(v.viewsByID))
	for _, view := range v.views {
		if view != nil {
			out = append(out, view)
		}
	}
	return out
}

func (v *Viewer) numViewSlots() int { return len(v.views) }

// live reports whether view is one of this viewer's current views.
func (v *Viewer) live(view *core.View) bool {
	return view != nil && view.Index >= 0 && view.Index < len(v.views) && v.views[view.Index] == view
}

func (v *Viewer) onViewChange(view *core.View, c core.ViewChange) {
	switch c {
	case core.ChangeFeatures:
		for _, s := range v.sets {
			s.MarkStale()
		}
	case core.ChangeEmphasis:
		if !v.live(view) {
			return
		}
		for _, m := range v.modelOrder {
			m.refreshFlags(view)
		}
	}
}

// CreateModel adds an empty scene model. An empty id gets a generated one.
func (v *Viewer) CreateModel(id string) (*SceneModel, error) {
	if v.destroyed {
		return nil, ErrDestroyed
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := v.models[id]; ok {
		return nil, fmt.Errorf("create model %q: %w", id, ErrDuplicateID)
	}
	m := newSceneModel(v, id)
	v.models[id] = m
	v.modelOrder = append(v.modelOrder, m)
	return m, nil
}

func (v *Viewer) Model(id string) *SceneModel { return v.models[id] }

func (v *Viewer) removeModel(m *SceneModel) {
	delete(v.models, m.id)
	for i, o := range v.modelOrder {
		if o == m {
			v.modelOrder = append(v.modelOrder[:i], v.modelOrder[i+1:]...)
			break
		}
	}
}

func (v *Viewer) registerPick(m *Mesh) [4]uint8 {
	v.nextPickID++
	m.pickID = v.nextPickID
	v.picks[m.pickID] = m
	return compress.EncodePickColor(m.pickID)
}

// PickEntity resolves a color read back from the pick-by-mesh pass.
func (v *Viewer) PickEntity(pickColor [4]uint8) *Entity {
	m, ok := v.picks[compress.DecodePickColor(pickColor)]
	if !ok {
		return nil
	}
	return m.entity
}

// SetPickDepthRange sets the depth range the pick-depth pass maps to [0,1].
func (v *Viewer) SetPickDepthRange(near, far float32) {
	v.pickZNear, v.pickZFar = near, far
}

type drawFunc func(*layer.Layer, *shaders.FrameContext)

// framePasses is the fixed draw order of a color frame.
var framePasses = []drawFunc{
	(*layer.Layer).DrawColorOpaque,
	(*layer.Layer).DrawColorTransparent,
	(*layer.Layer).DrawSilhouetteXRayed,
	(*layer.Layer).DrawSilhouetteHighlighted,
	(*layer.Layer).DrawSilhouetteSelected,
	(*layer.Layer).DrawEdgesColorOpaque,
	(*layer.Layer).DrawEdgesColorTransparent,
	(*layer.Layer).DrawEdgesXRayed,
	(*layer.Layer).DrawEdgesHighlighted,
	(*layer.Layer).DrawEdgesSelected,
}

// RenderFrame draws every finalized model into the view, pass by pass.
func (v *Viewer) RenderFrame(view *core.View) {
	if !v.ready(view, "render frame") {
		return
	}
	v.profiler.BeginScope("frame")
	if v.cullOnFrame {
		v.CullFrustum(view)
	}
	v.run(view, framePasses...)
	v.profiler.EndScope("frame")
	for _, fn := range v.afterFrame {
		fn(view)
	}
}

func (v *Viewer) RenderPick(view *core.View, mode PickMode) {
	if !v.ready(view, "render pick") {
		return
	}
	if mode == PickDepth {
		v.run(view, (*layer.Layer).DrawPickDepth)
		return
	}
	v.run(view, (*layer.Layer).DrawPickMesh)
}

func (v *Viewer) RenderOcclusion(view *core.View) {
	if v.ready(view, "render occlusion") {
		v.run(view, (*layer.Layer).DrawOcclusion)
	}
}

// RenderSnap draws the snap-init pass when init is set, else the vertex snap pass.
func (v *Viewer) RenderSnap(view *core.View, init bool) {
	if !v.ready(view, "render snap") {
		return
	}
	if init {
		v.run(view, (*layer.Layer).DrawSnapInit)
		return
	}
	v.run(view, (*layer.Layer).DrawSnap)
}

func (v *Viewer) ready(view *core.View, op string) bool {
	if v.destroyed {
		return false
	}
	if !v.live(view) {
		v.logger.Warnf("%s: unknown view", op)
		return false
	}
	return true
}

func (v *Viewer) run(view *core.View, passes ...drawFunc) {
	var frames [3]shaders.FrameContext
	for p := range frames {
		frames[p] = shaders.FrameContext{
			View:      view,
			Renderers: v.sets[p],
			PickZNear: v.pickZNear,
			PickZFar:  v.pickZFar,
		}
	}
	for _, pass := range passes {
		for _, m := range v.modelOrder {
			if !m.finalized {
				continue
			}
			for _, l := range m.layers {
				pass(l, &frames[l.Primitive()])
			}
		}
	}
}

// CullFrustum marks entities outside the view frustum as culled and
// returns how many are culled. Only changed entities touch the GPU.
func (v *Viewer) CullFrustum(view *core.View) int {
	if !v.ready(view, "cull") {
		return 0
	}
	planes := view.FrustumPlanes()
	culled := 0
	for _, m := range v.modelOrder {
		if !m.finalized {
			continue
		}
		m.cull.Frustum(planes, func(i int, inside bool) {
			m.entityOrder[i].SetCulled(view, !inside)
			if !inside {
				culled++
			}
		})
	}
	return culled
}

// Recompile drops every compiled program; renderers rebuild on next use.
func (v *Viewer) Recompile() {
	if v.destroyed {
		return
	}
	for _, s := range v.sets {
		s.Destroy()
	}
	v.createSets()
	v.logger.Infof("renderers reset")
}

// Destroy releases every model and renderer.
func (v *Viewer) Destroy() {
	if v.destroyed {
		return
	}
	for len(v.modelOrder) > 0 {
		v.modelOrder[0].Destroy()
	}
	for _, s := range v.sets {
		s.Destroy()
	}
	v.destroyed = true
	v.logger.Infof("viewer destroyed")
}
