package bimview

import (
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/layer"
)

type EntityParams struct {
	ID      string
	MeshIDs []string

	Visible     bool
	Pickable    bool
	Clippable   bool
	Edges       bool
	XRayed      bool
	Highlighted bool
	Selected    bool
}

// NewEntityParams returns params for a visible, pickable, clippable entity.
func NewEntityParams(id string, meshIDs ...string) EntityParams {
	return EntityParams{ID: id, MeshIDs: meshIDs, Visible: true, Pickable: true, Clippable: true}
}

func (p EntityParams) state() core.MeshState {
	var s core.MeshState
	s = s.With(core.StateVisible, p.Visible)
	s = s.With(core.StatePickable, p.Pickable)
	s = s.With(core.StateClippable, p.Clippable)
	s = s.With(core.StateEdges, p.Edges)
	s = s.With(core.StateXRayed, p.XRayed)
	s = s.With(core.StateHighlighted, p.Highlighted)
	s = s.With(core.StateSelected, p.Selected)
	return s
}

type layerSetter func(*layer.Layer, *core.View, layer.MeshHandle, bool)

var setters = map[core.MeshState]layerSetter{
	core.StateVisible:     (*layer.Layer).SetVisible,
	core.StateHighlighted: (*layer.Layer).SetHighlighted,
	core.StateXRayed:      (*layer.Layer).SetXRayed,
	core.StateSelected:    (*layer.Layer).SetSelected,
	core.StateClippable:   (*layer.Layer).SetClippable,
	core.StatePickable:    (*layer.Layer).SetPickable,
	core.StateCulled:      (*layer.Layer).SetCulled,
	core.StateEdges:       (*layer.Layer).SetEdges,
}

// Entity is one object of a model. Its per-view state applies to all of its
// meshes; transparency follows the meshes' authored or assigned alpha.
type Entity struct {
	id      string
	model   *SceneModel
	meshes  []*Mesh
	initial core.MeshState
	aabb    core.AABB

	// Per view index.
	states []core.MeshState
	colors []*[4]uint8
}

func newEntity(m *SceneModel, p EntityParams, meshes []*Mesh) *Entity {
	e := &Entity{
		id:      p.ID,
		model:   m,
		meshes:  meshes,
		initial: p.state(),
		aabb:    core.EmptyAABB(),
	}
	for _, mesh := range meshes {
		e.aabb.ExpandAABB(mesh.aabb)
	}
	e.ensureViews(m.viewer.numViewSlots())
	return e
}

func (e *Entity) ID() string { return e.id }

func (e *Entity) Model() *SceneModel { return e.model }

func (e *Entity) Meshes() []*Mesh { return e.meshes }

// AABB returns the world bounds of the entity's meshes.
func (e *Entity) AABB() core.AABB { return e.aabb }

// State returns the entity's state in a view; zero for unknown views.
func (e *Entity) State(v *core.View) core.MeshState {
	if v == nil || v.Index < 0 || v.Index >= len(e.states) {
		return 0
	}
	return e.states[v.Index]
}

func (e *Entity) SetVisible(v *core.View, on bool)     { e.set(v, core.StateVisible, on) }
func (e *Entity) SetHighlighted(v *core.View, on bool) { e.set(v, core.StateHighlighted, on) }
func (e *Entity) SetXRayed(v *core.View, on bool)      { e.set(v, core.StateXRayed, on) }
func (e *Entity) SetSelected(v *core.View, on bool)    { e.set(v, core.StateSelected, on) }
func (e *Entity) SetClippable(v *core.View, on bool)   { e.set(v, core.StateClippable, on) }
func (e *Entity) SetPickable(v *core.View, on bool)    { e.set(v, core.StatePickable, on) }
func (e *Entity) SetCulled(v *core.View, on bool)      { e.set(v, core.StateCulled, on) }
func (e *Entity) SetEdges(v *core.View, on bool)       { e.set(v, core.StateEdges, on) }

func (e *Entity) set(v *core.View, bit core.MeshState, on bool) {
	vi, ok := e.view(v, "set "+bit.String())
	if !ok {
		return
	}
	s := e.states[vi]
	if s.Has(bit) == on {
		return
	}
	e.states[vi] = s.With(bit, on)
	if !e.model.finalized {
		return
	}
	set := setters[bit]
	for _, m := range e.meshes {
		set(m.layer, v, m.handle, on)
	}
}

// SetColor recolors the entity in one view. An alpha below 255 makes its
// meshes transparent in that view.
func (e *Entity) SetColor(v *core.View, rgba [4]uint8) {
	vi, ok := e.view(v, "set color")
	if !ok {
		return
	}
	if c := e.colors[vi]; c != nil && *c == rgba {
		return
	}
	e.colors[vi] = &rgba
	if !e.model.finalized {
		return
	}
	transparent := rgba[3] < 255
	for _, m := range e.meshes {
		m.layer.SetColor(v, m.handle, rgba)
		if m.layer.MeshState(v, m.handle).Has(core.StateTransparent) != transparent {
			m.layer.SetTransparent(v, m.handle, transparent)
		}
	}
}

// Color returns the color assigned in a view, if any.
func (e *Entity) Color(v *core.View) ([4]uint8, bool) {
	if v == nil || v.Index < 0 || v.Index >= len(e.colors) || e.colors[v.Index] == nil {
		return [4]uint8{}, false
	}
	return *e.colors[v.Index], true
}

func (e *Entity) view(v *core.View, op string) (int, bool) {
	if e.model.destroyed || !e.model.viewer.live(v) {
		e.model.viewer.logger.Warnf("entity %s: %s on unknown view", e.id, op)
		return -1, false
	}
	return v.Index, true
}

func (e *Entity) transparentIn(m *Mesh, vi int) bool {
	if c := e.colors[vi]; c != nil {
		return c[3] < 255
	}
	return m.transparent
}

// push writes the entity's whole state for one view into its layers.
func (e *Entity) push(view *core.View) {
	vi := view.Index
	for _, m := range e.meshes {
		s := e.states[vi].With(core.StateTransparent, e.transparentIn(m, vi))
		m.layer.SetState(view, m.handle, s)
		if c := e.colors[vi]; c != nil {
			m.layer.SetColor(view, m.handle, *c)
		}
	}
}

func (e *Entity) ensureViews(n int) {
	for len(e.states) < n {
		e.states = append(e.states, e.initial)
		e.colors = append(e.colors, nil)
	}
}

func (e *Entity) clearView(i int) {
	if i < len(e.states) {
		e.states[i] = 0
		e.colors[i] = nil
	}
}
