// Package layer merges the geometry of many meshes that share a primitive
// type and coordinate origin into one set of GPU buffers, and keeps the
// per-view render state of every mesh in those buffers.
//
// A layer is filled with AppendMesh until full, built exactly once, then only
// patched through the state setters. None of this is safe for concurrent use.
package layer

import (
	"errors"
	"fmt"

	"github.com/gekko3d/bimview/rt/compress"
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var (
	ErrAlreadyBuilt     = errors.New("layer already built")
	ErrNotBuilt         = errors.New("layer not built")
	ErrCapacityExceeded = errors.New("layer capacity exceeded")
	ErrUnknownView      = errors.New("unknown view")
	ErrUnknownMesh      = errors.New("unknown mesh")
)

// DefaultMaxVertices and DefaultMaxIndices cap a layer when the config leaves
// them unset.
const (
	DefaultMaxVertices = 4_000_000
	DefaultMaxIndices  = 4_000_000
)

// Per-vertex strides of the per-view buffers.
const (
	colorStride = 4 // unorm8x4
	flagsStride = 4 // uint32
)

type Config struct {
	ID        string
	Number    int
	Primitive core.Primitive
	// Origin is the RTC origin; appended positions are stored relative to it.
	Origin      mgl64.Vec3
	MaxVertices int
	MaxIndices  int
	NumViews    int

	Device   gpu.Device
	Logger   core.Logger
	Profiler *core.Profiler
	Scratch  *ScratchArena
	// ModelCounts are the owning model's per-view counters. The model grows
	// them for new views before the layer does.
	ModelCounts *core.ViewCounts
}

// MeshParams describes one mesh to append. Positions are given either at
// full precision or quantized against PositionsDecodeAABB.
type MeshParams struct {
	Positions           []float64
	PositionsQuantized  []uint16
	PositionsDecodeAABB core.AABB
	// Matrix places the positions in world space.
	Matrix *mgl64.Mat4

	Color       [4]uint8
	Colors      []uint8 // optional RGBA8 per vertex
	PickColor   [4]uint8
	Indices     []uint32
	EdgeIndices []uint32
	UVs         []float32
}

func (p *MeshParams) numVertices() int {
	if len(p.PositionsQuantized) > 0 {
		return len(p.PositionsQuantized) / 3
	}
	return len(p.Positions) / 3
}

// MeshHandle identifies a portion within its layer.
type MeshHandle int

// portion is the vertex range, and matching index ranges, of one mesh.
type portion struct {
	vertexBase  int
	numVertices int
	indexBase   int
	numIndices  int
	edgeBase    int
	numEdges    int
	aabb        core.AABB // local space
}

// viewBuffers are the per-view GPU buffers of a built layer.
type viewBuffers struct {
	colors gpu.Buffer
	flags  gpu.Buffer
}

type Layer struct {
	id        string
	number    int
	primitive core.Primitive
	origin    mgl64.Vec3
	maxVerts  int
	maxIdx    int

	device   gpu.Device
	logger   core.Logger
	profiler *core.Profiler
	scratch  *ScratchArena

	buf      *buffer
	portions []portion
	aabb     core.AABB
	numVerts int
	numIdx   int
	numEdges int

	// Per view: counters, mesh states and GPU buffers.
	counts      core.ViewCounts
	modelCounts *core.ViewCounts
	states      [][]core.MeshState
	views       []*viewBuffers

	built     bool
	destroyed bool

	positions   gpu.Buffer
	pickColors  gpu.Buffer
	indices     gpu.Buffer
	edgeIndices gpu.Buffer
	uvs         gpu.Buffer
	decode      mgl32.Mat4
	uvDecode    mgl32.Mat3
	colorSeed   []uint8

	supportsAO  bool
	supportsPBR bool
}

func New(cfg Config) *Layer {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.MaxVertices <= 0 {
		cfg.MaxVertices = DefaultMaxVertices
	}
	if cfg.MaxIndices <= 0 {
		cfg.MaxIndices = DefaultMaxIndices
	}
	if cfg.Scratch == nil {
		cfg.Scratch = NewScratchArena()
	}
	if cfg.ModelCounts == nil {
		cfg.ModelCounts = &core.ViewCounts{}
	}
	cfg.Scratch.Acquire()

	l := &Layer{
		id:          cfg.ID,
		number:      cfg.Number,
		primitive:   cfg.Primitive,
		origin:      cfg.Origin,
		maxVerts:    cfg.MaxVertices,
		maxIdx:      cfg.MaxIndices,
		device:      cfg.Device,
		logger:      core.With(cfg.Logger, "layer "+cfg.ID),
		profiler:    cfg.Profiler,
		scratch:     cfg.Scratch,
		modelCounts: cfg.ModelCounts,
		buf:         newBuffer(),
		aabb:        core.EmptyAABB(),
	}
	l.EnsureViews(cfg.NumViews)
	return l
}

func (l *Layer) ID() string                { return l.id }
func (l *Layer) Primitive() core.Primitive { return l.primitive }
func (l *Layer) Origin() mgl64.Vec3        { return l.origin }
func (l *Layer) LayerNumber() int          { return l.number }
func (l *Layer) Built() bool               { return l.built }
func (l *Layer) Destroyed() bool           { return l.destroyed }
func (l *Layer) NumPortions() int          { return len(l.portions) }
func (l *Layer) NumViews() int             { return l.counts.Len() }

// SupportsAO reports whether the layer can take ambient-occlusion shading.
func (l *Layer) SupportsAO() bool { return l.supportsAO }

// SupportsPBR reports whether the layer can take physically based shading.
func (l *Layer) SupportsPBR() bool { return l.supportsPBR }

// Counts returns the layer's counters for a view, or nil.
func (l *Layer) Counts(viewIndex int) *core.MeshCounts { return l.counts.At(viewIndex) }

// AABB returns the world-space bounds of everything appended.
func (l *Layer) AABB() core.AABB { return l.aabb.Translate(l.origin) }

// MeshAABB returns the world-space bounds of one mesh.
func (l *Layer) MeshAABB(m MeshHandle) core.AABB {
	return l.portions[l.checkMesh(m)].aabb.Translate(l.origin)
}

// CanAppend reports whether a mesh of the given size still fits. Callers
// must check it before every AppendMesh.
func (l *Layer) CanAppend(numVertices, numIndices int) bool {
	return l.numVerts+numVertices < l.maxVerts && l.numIdx+numIndices < l.maxIdx
}

// fail logs a protocol violation and panics with it.
func (l *Layer) fail(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Errorf("%s: %v", msg, err)
	panic(fmt.Errorf("layer %s: %s: %w", l.id, msg, err))
}

// AppendMesh adds a mesh and returns its handle. It panics after Build, and
// when the mesh does not fit because the caller skipped CanAppend.
func (l *Layer) AppendMesh(p MeshParams) MeshHandle {
	if l.built {
		l.fail(ErrAlreadyBuilt, "append")
	}
	nv := p.numVertices()
	if !l.CanAppend(nv, len(p.Indices)) {
		l.fail(ErrCapacityExceeded, "append %d vertices, %d indices to %d/%d vertices, %d/%d indices",
			nv, len(p.Indices), l.numVerts, l.maxVerts, l.numIdx, l.maxIdx)
	}

	positions := p.Positions
	if len(p.PositionsQuantized) > 0 {
		positions = compress.DecompressPositions(p.PositionsQuantized, p.PositionsDecodeAABB)
	}
	positions = positions[:nv*3]
	place := mgl64.Translate3D(-l.origin[0], -l.origin[1], -l.origin[2])
	if p.Matrix != nil {
		place = place.Mul4(*p.Matrix)
	}
	local := compress.TransformPositions(positions, place)

	b := l.buf
	base := b.numVertices()
	pt := portion{
		vertexBase:  base,
		numVertices: nv,
		indexBase:   len(b.indices),
		numIndices:  len(p.Indices),
		edgeBase:    len(b.edgeIndices),
		numEdges:    len(p.EdgeIndices),
		aabb:        core.EmptyAABB(),
	}
	pt.aabb.ExpandPositions(local)
	l.aabb.ExpandAABB(pt.aabb)

	b.positions = append(b.positions, local...)
	b.appendColors(p.Colors, p.Color, nv)
	b.appendPickColor(p.PickColor, nv)
	b.appendUVs(p.UVs, base, nv)
	b.appendIndices(&b.indices, p.Indices, base)
	b.appendIndices(&b.edgeIndices, p.EdgeIndices, base)

	l.portions = append(l.portions, pt)
	l.numVerts += nv
	l.numIdx += len(p.Indices)
	l.numEdges += len(p.EdgeIndices)

	l.counts.AddMeshes(1)
	l.modelCounts.AddMeshes(1)
	for i := range l.states {
		l.states[i] = append(l.states[i], 0)
	}
	return MeshHandle(len(l.portions) - 1)
}

// Build quantizes the staged geometry, uploads it and drops the staging
// arrays. Afterwards only state mutation and drawing are allowed.
func (l *Layer) Build() error {
	if l.built {
		return fmt.Errorf("build layer %s: %w", l.id, ErrAlreadyBuilt)
	}
	b := l.buf
	nv := b.numVertices()

	aabb := l.aabb
	if aabb.IsEmpty() {
		aabb = core.AABB{}
	}
	l.decode = compress.CreatePositionsDecodeMatrix(aabb)

	if nv > 0 {
		var err error
		q := compress.QuantizePositions(b.positions, aabb)
		if l.positions, err = l.createBuffer("positions", gpu.BufferUsageVertex, packPositions(q)); err != nil {
			return err
		}
		if l.pickColors, err = l.createBuffer("pick-colors", gpu.BufferUsageVertex, b.pickColors); err != nil {
			return err
		}
		if len(b.indices) > 0 {
			if l.indices, err = l.createBuffer("indices", gpu.BufferUsageIndex, packUint32s(b.indices)); err != nil {
				return err
			}
		}
		if len(b.edgeIndices) > 0 {
			if l.edgeIndices, err = l.createBuffer("edge-indices", gpu.BufferUsageIndex, packUint32s(b.edgeIndices)); err != nil {
				return err
			}
		}
		if len(b.uvs) > 0 {
			var uvq []uint16
			uvq, l.uvDecode = compress.QuantizeUVs(b.uvs)
			if l.uvs, err = l.createBuffer("uvs", gpu.BufferUsageVertex, packUint16s(uvq)); err != nil {
				return err
			}
		}
	}

	l.colorSeed = b.colors
	l.built = true
	for i := range l.views {
		if err := l.createViewBuffers(i); err != nil {
			l.built = false
			l.releaseGPU()
			return err
		}
	}

	l.supportsAO = l.primitive == core.PrimitiveTriangles
	l.supportsPBR = l.supportsAO && l.uvs != nil
	l.buf = nil

	l.logger.Debugf("built: %s, %d meshes, %d vertices, %d indices, %d edge indices",
		l.primitive, len(l.portions), nv, l.numIdx, l.numEdges)
	return nil
}

func (l *Layer) createBuffer(name string, usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	buf, err := l.device.CreateBuffer(l.id+"."+name, usage|gpu.BufferUsageCopyDst, data)
	if err != nil {
		l.releaseGPU()
		return nil, fmt.Errorf("build layer %s: %s buffer: %w", l.id, name, err)
	}
	return buf, nil
}

// EnsureViews grows per-view state so n views are addressable. On a built
// layer the new views get GPU buffers with zero flags (nothing rendered)
// and the authored colors.
func (l *Layer) EnsureViews(n int) {
	if l.destroyed {
		return
	}
	l.counts.Ensure(n, len(l.portions))
	for len(l.states) < n {
		l.states = append(l.states, make([]core.MeshState, len(l.portions)))
		l.views = append(l.views, nil)
		if l.built {
			if err := l.createViewBuffers(len(l.views) - 1); err != nil {
				l.fail(err, "grow to %d views", n)
			}
		}
	}
}

func (l *Layer) createViewBuffers(i int) error {
	if l.numVerts == 0 {
		l.views[i] = &viewBuffers{}
		return nil
	}
	colors, err := l.device.CreateBuffer(fmt.Sprintf("%s.colors.%d", l.id, i), gpu.BufferUsageVertex|gpu.BufferUsageCopyDst, l.colorSeed)
	if err != nil {
		return fmt.Errorf("layer %s: view %d colors: %w", l.id, i, err)
	}
	flags, err := l.device.CreateBuffer(fmt.Sprintf("%s.flags.%d", l.id, i), gpu.BufferUsageVertex|gpu.BufferUsageCopyDst, make([]byte, l.numVerts*flagsStride))
	if err != nil {
		colors.Release()
		return fmt.Errorf("layer %s: view %d flags: %w", l.id, i, err)
	}
	l.views[i] = &viewBuffers{colors: colors, flags: flags}
	return nil
}

// RemoveView releases the view's GPU buffers and zeroes its counters. The
// index stays reserved.
func (l *Layer) RemoveView(viewIndex int) {
	if viewIndex < 0 || viewIndex >= len(l.views) {
		return
	}
	if vb := l.views[viewIndex]; vb != nil {
		releaseAll(vb.colors, vb.flags)
		l.views[viewIndex] = nil
	}
	clear(l.states[viewIndex])
	l.counts.Reset(viewIndex)
}

// Destroy releases every GPU buffer and the scratch arena.
func (l *Layer) Destroy() {
	if l.destroyed {
		return
	}
	l.releaseGPU()
	l.scratch.Release()
	for i, states := range l.states {
		if mc := l.modelCounts.At(i); mc != nil {
			for _, s := range states {
				mc.AddState(s, -1)
			}
		}
	}
	l.modelCounts.AddMeshes(-len(l.portions))
	l.buf = nil
	l.colorSeed = nil
	l.destroyed = true
}

func (l *Layer) releaseGPU() {
	releaseAll(l.positions, l.pickColors, l.indices, l.edgeIndices, l.uvs)
	l.positions, l.pickColors, l.indices, l.edgeIndices, l.uvs = nil, nil, nil, nil, nil
	for i, vb := range l.views {
		if vb != nil {
			releaseAll(vb.colors, vb.flags)
			l.views[i] = nil
		}
	}
}

func releaseAll(bufs ...gpu.Buffer) {
	for _, b := range bufs {
		if b != nil {
			b.Release()
		}
	}
}

func (l *Layer) checkMesh(m MeshHandle) int {
	if m < 0 || int(m) >= len(l.portions) {
		l.fail(ErrUnknownMesh, "mesh %d of %d", m, len(l.portions))
	}
	return int(m)
}
