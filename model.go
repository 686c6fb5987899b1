package bimview

import (
	"fmt"

	"github.com/gekko3d/bimview/rt/bvh"
	"github.com/gekko3d/bimview/rt/compress"
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/layer"
	"github.com/go-gl/mathgl/mgl64"
)

// MeshParams describes one mesh of a model. Positions are world space
// unless Matrix is set; quantized positions decode against
// PositionsDecodeAABB.
type MeshParams struct {
	ID        string
	Primitive core.Primitive

	Positions           []float64
	PositionsQuantized  []uint16
	PositionsDecodeAABB core.AABB
	Matrix              *mgl64.Mat4

	// Color is the flat RGBA color; Colors, when set, gives float RGBA per vertex.
	Color       [4]uint8
	Colors      []float32
	Indices     []uint32
	EdgeIndices []uint32
	UVs         []float32
}

func (p *MeshParams) worldPositions() []float64 {
	positions := p.Positions
	if len(p.PositionsQuantized) > 0 {
		positions = compress.DecompressPositions(p.PositionsQuantized, p.PositionsDecodeAABB)
	}
	if p.Matrix != nil {
		positions = compress.TransformPositions(positions, *p.Matrix)
	}
	return positions
}

// translucent reports whether any authored alpha is below one.
func (p *MeshParams) translucent() bool {
	if len(p.Colors) == 0 {
		return p.Color[3] < 255
	}
	for i := 3; i < len(p.Colors); i += 4 {
		if p.Colors[i] < 1 {
			return true
		}
	}
	return false
}

func (p *MeshParams) validate() error {
	n := len(p.Positions)
	if len(p.PositionsQuantized) > 0 {
		n = len(p.PositionsQuantized)
	}
	if n < 3 || n%3 != 0 {
		return fmt.Errorf("mesh %q: %d position components: %w", p.ID, n, ErrEmptyGeometry)
	}
	switch p.Primitive {
	case core.PrimitiveTriangles:
		if len(p.Indices) == 0 || len(p.Indices)%3 != 0 {
			return fmt.Errorf("mesh %q: %d triangle indices: %w", p.ID, len(p.Indices), ErrEmptyGeometry)
		}
	case core.PrimitiveLines:
		if len(p.Indices) == 0 || len(p.Indices)%2 != 0 {
			return fmt.Errorf("mesh %q: %d line indices: %w", p.ID, len(p.Indices), ErrEmptyGeometry)
		}
	}
	nv := uint32(n / 3)
	for _, idx := range [][]uint32{p.Indices, p.EdgeIndices} {
		for _, i := range idx {
			if i >= nv {
				return fmt.Errorf("mesh %q: index %d out of %d vertices", p.ID, i, nv)
			}
		}
	}
	return nil
}

// Mesh is one appended portion of a layer.
type Mesh struct {
	id          string
	layer       *layer.Layer
	handle      layer.MeshHandle
	pickID      uint32
	aabb        core.AABB
	transparent bool
	entity      *Entity
}

func (m *Mesh) ID() string         { return m.id }
func (m *Mesh) Layer() *layer.Layer { return m.layer }
func (m *Mesh) AABB() core.AABB    { return m.aabb }
func (m *Mesh) Entity() *Entity    { return m.entity }

// bucket keys the layer currently filling for a primitive and RTC origin.
type bucket struct {
	primitive core.Primitive
	origin    mgl64.Vec3
}

// SceneModel collects meshes into layers and owns the entities that drive
// them. Meshes and entities are created first; Finalize builds every layer.
type SceneModel struct {
	viewer *Viewer
	id     string

	layers  []*layer.Layer
	filling map[bucket]*layer.Layer

	meshes      map[string]*Mesh
	entities    map[string]*Entity
	entityOrder []*Entity

	counts    core.ViewCounts
	aabb      core.AABB
	cull      *bvh.Tree
	finalized bool
	destroyed bool
}

func newSceneModel(v *Viewer, id string) *SceneModel {
	m := &SceneModel{
		viewer:   v,
		id:       id,
		filling:  make(map[bucket]*layer.Layer),
		meshes:   make(map[string]*Mesh),
		entities: make(map[string]*Entity),
		aabb:     core.EmptyAABB(),
	}
	m.counts.Ensure(v.numViewSlots(), 0)
	return m
}

func (m *SceneModel) ID() string { return m.id }

func (m *SceneModel) Finalized() bool { return m.finalized }

func (m *SceneModel) Layers() []*layer.Layer { return m.layers }

// Counts returns the model-wide counters of a view, or nil.
func (m *SceneModel) Counts(view *core.View) *core.MeshCounts {
	if view == nil {
		return nil
	}
	return m.counts.At(view.Index)
}

// AABB returns the world bounds of every mesh.
func (m *SceneModel) AABB() core.AABB { return m.aabb }

func (m *SceneModel) Mesh(id string) *Mesh { return m.meshes[id] }

func (m *SceneModel) Entity(id string) *Entity { return m.entities[id] }

func (m *SceneModel) Entities() []*Entity { return m.entityOrder }

func (m *SceneModel) checkOpen(op string) error {
	switch {
	case m.destroyed:
		return fmt.Errorf("%s: model %s: %w", op, m.id, ErrDestroyed)
	case m.finalized:
		return fmt.Errorf("%s: model %s: %w", op, m.id, ErrFinalized)
	}
	return nil
}

// CreateMesh appends a mesh to the layer for its primitive and RTC origin,
// starting a new layer when the current one is full.
func (m *SceneModel) CreateMesh(p MeshParams) (*Mesh, error) {
	if err := m.checkOpen("create mesh"); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("create mesh: empty id")
	}
	if _, ok := m.meshes[p.ID]; ok {
		return nil, fmt.Errorf("create mesh %q: %w", p.ID, ErrDuplicateID)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	cfg := m.viewer.cfg
	world := p.worldPositions()
	nv := len(world) / 3
	if nv >= cfg.MaxLayerVertices || len(p.Indices) >= cfg.MaxLayerIndices {
		return nil, fmt.Errorf("create mesh %q: %d vertices, %d indices: %w", p.ID, nv, len(p.Indices), ErrMeshTooLarge)
	}

	key := bucket{primitive: p.Primitive}
	if _, origin, ok := compress.WorldToRTCPositions(world, cfg.RTCCellSize); ok {
		key.origin = origin
	}
	l := m.filling[key]
	if l == nil || !l.CanAppend(nv, len(p.Indices)) {
		l = m.newLayer(key)
	}

	mesh := &Mesh{id: p.ID, layer: l, transparent: p.translucent()}
	pick := m.viewer.registerPick(mesh)
	var colors []uint8
	if len(p.Colors) > 0 {
		colors = compress.CompressColors(p.Colors)
	}
	mesh.handle = l.AppendMesh(layer.MeshParams{
		Positions:   world,
		Color:       p.Color,
		Colors:      colors,
		PickColor:   pick,
		Indices:     p.Indices,
		EdgeIndices: p.EdgeIndices,
		UVs:         p.UVs,
	})
	mesh.aabb = l.MeshAABB(mesh.handle)
	m.aabb.ExpandAABB(mesh.aabb)
	m.meshes[p.ID] = mesh
	return mesh, nil
}

func (m *SceneModel) newLayer(key bucket) *layer.Layer {
	v := m.viewer
	l := layer.New(layer.Config{
		ID:          fmt.Sprintf("%s.%s.%d", m.id, key.primitive, len(m.layers)),
		Number:      v.nextLayer,
		Primitive:   key.primitive,
		Origin:      key.origin,
		MaxVertices: v.cfg.MaxLayerVertices,
		MaxIndices:  v.cfg.MaxLayerIndices,
		NumViews:    v.numViewSlots(),
		Device:      v.device,
		Logger:      v.logger,
		Profiler:    v.profiler,
		Scratch:     v.scratch,
		ModelCounts: &m.counts,
	})
	v.nextLayer++
	m.layers = append(m.layers, l)
	m.filling[key] = l
	return l
}

// CreateEntity groups existing meshes under one object. Each mesh belongs
// to at most one entity.
func (m *SceneModel) CreateEntity(p EntityParams) (*Entity, error) {
	if err := m.checkOpen("create entity"); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("create entity: empty id")
	}
	if _, ok := m.entities[p.ID]; ok {
		return nil, fmt.Errorf("create entity %q: %w", p.ID, ErrDuplicateID)
	}
	meshes := make([]*Mesh, 0, len(p.MeshIDs))
	for _, id := range p.MeshIDs {
		mesh, ok := m.meshes[id]
		if !ok {
			return nil, fmt.Errorf("create entity %q: mesh %q: %w", p.ID, id, ErrUnknownID)
		}
		if mesh.entity != nil {
			return nil, fmt.Errorf("create entity %q: mesh %q already belongs to %q", p.ID, id, mesh.entity.id)
		}
		meshes = append(meshes, mesh)
	}
	e := newEntity(m, p, meshes)
	for _, mesh := range meshes {
		mesh.entity = e
	}
	m.entities[p.ID] = e
	m.entityOrder = append(m.entityOrder, e)
	return e, nil
}

// Finalize builds every layer and pushes each entity's state into every view.
func (m *SceneModel) Finalize() error {
	if err := m.checkOpen("finalize"); err != nil {
		return err
	}
	v := m.viewer
	for _, l := range m.layers {
		// Layers built by an earlier failed attempt keep their buffers.
		if l.Built() {
			continue
		}
		if err := l.Build(); err != nil {
			return fmt.Errorf("finalize model %s: %w", m.id, err)
		}
		for i, view := range v.views {
			if view == nil {
				l.RemoveView(i)
			}
		}
	}
	m.filling = nil
	m.finalized = true

	boxes := make([]core.AABB, len(m.entityOrder))
	for i, e := range m.entityOrder {
		boxes[i] = e.aabb
	}
	m.cull = bvh.Build(boxes)

	for _, view := range v.views {
		if view != nil {
			m.pushView(view)
		}
	}
	v.logger.Infof("model %s finalized: %d layers, %d meshes, %d entities",
		m.id, len(m.layers), len(m.meshes), len(m.entities))
	return nil
}

func (m *SceneModel) pushView(view *core.View) {
	for _, e := range m.entityOrder {
		e.push(view)
	}
}

func (m *SceneModel) addView(view *core.View) {
	n := view.Index + 1
	m.counts.Ensure(n, len(m.meshes))
	for _, l := range m.layers {
		l.EnsureViews(n)
	}
	for _, e := range m.entityOrder {
		e.ensureViews(n)
	}
	if m.finalized {
		m.pushView(view)
	}
}

func (m *SceneModel) removeView(index int) {
	for _, l := range m.layers {
		l.RemoveView(index)
	}
	m.counts.Reset(index)
	for _, e := range m.entityOrder {
		e.clearView(index)
	}
}

func (m *SceneModel) refreshFlags(view *core.View) {
	if !m.finalized {
		return
	}
	for _, l := range m.layers {
		l.RefreshFlags(view)
	}
}

// Destroy releases the model's layers and removes it from the viewer.
func (m *SceneModel) Destroy() {
	if m.destroyed {
		return
	}
	for _, l := range m.layers {
		l.Destroy()
	}
	for _, mesh := range m.meshes {
		delete(m.viewer.picks, mesh.pickID)
	}
	m.viewer.removeModel(m)
	m.layers = nil
	m.destroyed = true
}
