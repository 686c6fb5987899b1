package shaders

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
	"github.com/gekko3d/bimview/rt/gpu/gputest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrawable struct {
	primitive core.Primitive
	origin    mgl64.Vec3
	buffers   map[gpu.Semantic]gpu.Buffer
	index     gpu.Buffer
	indices   uint32
	edges     gpu.Buffer
	numEdges  uint32
	vertices  uint32
}

func (d *fakeDrawable) Primitive() core.Primitive         { return d.primitive }
func (d *fakeDrawable) Origin() mgl64.Vec3                { return d.origin }
func (d *fakeDrawable) PositionsDecodeMatrix() mgl32.Mat4 { return mgl32.Ident4() }
func (d *fakeDrawable) LayerNumber() int                  { return 3 }
func (d *fakeDrawable) NumVertices() uint32               { return d.vertices }
func (d *fakeDrawable) Indices() (gpu.Buffer, uint32)     { return d.index, d.indices }
func (d *fakeDrawable) EdgeIndices() (gpu.Buffer, uint32) { return d.edges, d.numEdges }

func (d *fakeDrawable) VertexBuffer(_ int, s gpu.Semantic) gpu.Buffer {
	return d.buffers[s]
}

func newFakeDrawable(t *testing.T, dev *gputest.Device) *fakeDrawable {
	t.Helper()
	mk := func(label string, usage gpu.BufferUsage, n int) gpu.Buffer {
		b, err := dev.CreateBuffer(label, usage, make([]byte, n))
		require.NoError(t, err)
		return b
	}
	return &fakeDrawable{
		primitive: core.PrimitiveTriangles,
		buffers: map[gpu.Semantic]gpu.Buffer{
			gpu.SemanticPosition:  mk("pos", gpu.BufferUsageVertex, 24),
			gpu.SemanticColor:     mk("color", gpu.BufferUsageVertex, 12),
			gpu.SemanticFlags:     mk("flags", gpu.BufferUsageVertex, 12),
			gpu.SemanticPickColor: mk("pick", gpu.BufferUsageVertex, 12),
		},
		index:    mk("idx", gpu.BufferUsageIndex, 12),
		indices:  3,
		edges:    mk("edges", gpu.BufferUsageIndex, 8),
		numEdges: 2,
		vertices: 3,
	}
}

func newTestSet(dev *gputest.Device, cacheSize int) (*RendererSet, *core.Profiler) {
	prof := core.NewProfiler()
	return NewRendererSet(core.PrimitiveTriangles, SetConfig{
		Device:           dev,
		Profiler:         prof,
		ProgramCacheSize: cacheSize,
	}), prof
}

func f32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func TestRendererCompilesOncePerFeatureHash(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	r := set.Renderer(KindColor)

	assert.Equal(t, StateUncompiled, r.State())
	require.NoError(t, r.Bind(v))
	require.NoError(t, r.Bind(v))
	assert.Equal(t, 1, r.Compiles())
	assert.Equal(t, StateValid, r.State())

	// Stale with an unchanged hash revalidates without compiling.
	r.MarkStale()
	assert.Equal(t, StateStale, r.State())
	require.NoError(t, r.Bind(v))
	assert.Equal(t, 1, r.Compiles())
	assert.Equal(t, StateValid, r.State())

	v.AddSectionPlane(&core.SectionPlane{ID: "cut", Dir: mgl32.Vec3{1, 0, 0}})
	r.MarkStale()
	require.NoError(t, r.Bind(v))
	assert.Equal(t, 2, r.Compiles())
	assert.Equal(t, "triangles/color/ladv/s1/-", r.Hash())

	require.NoError(t, r.Bind(v))
	assert.Equal(t, 2, r.Compiles())
	assert.Len(t, dev.Programs, 2)
}

func TestRendererIgnoresUnrelatedFeatureChanges(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	sil := set.Renderer(KindSilhouette)
	require.NoError(t, sil.Bind(v))

	v.SetLights([]core.Light{core.AmbientLight(mgl32.Vec3{1, 1, 1}, 1)})
	sil.MarkStale()
	require.NoError(t, sil.Bind(v))
	assert.Equal(t, 1, sil.Compiles(), "silhouette programs do not depend on lights")
}

func TestRendererReusesProgramsAcrossViews(t *testing.T) {
	dev := gputest.NewDevice()
	set, prof := newTestSet(dev, 4)
	v0 := core.NewView("a", 0)
	v1 := core.NewView("b", 1)
	v1.AddSectionPlane(&core.SectionPlane{ID: "p"})

	r := set.Renderer(KindColor)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Bind(v0))
		require.NoError(t, r.Bind(v1))
	}
	assert.Equal(t, 2, r.Compiles())
	assert.Equal(t, 4, prof.Count(core.StatProgramsReused))
	assert.Equal(t, 2, prof.Count(core.StatProgramsCompile))
}

func TestRendererEvictsLeastRecentlyUsed(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 1)
	v0 := core.NewView("a", 0)
	v1 := core.NewView("b", 1)
	v1.AddSectionPlane(&core.SectionPlane{ID: "p"})

	r := set.Renderer(KindColor)
	require.NoError(t, r.Bind(v0))
	require.NoError(t, r.Bind(v1))
	require.Len(t, dev.Programs, 2)
	assert.True(t, dev.Programs[0].Released)
	assert.False(t, dev.Programs[1].Released)

	require.NoError(t, r.Bind(v0))
	assert.Equal(t, 3, r.Compiles())
}

func TestRendererCompileErrorPropagates(t *testing.T) {
	dev := gputest.NewDevice()
	dev.CompileError = errors.New("bad wgsl")
	set, _ := newTestSet(dev, 4)
	r := set.Renderer(KindEdges)

	err := r.Bind(core.NewView("v", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, dev.CompileError)
	assert.Equal(t, StateUncompiled, r.State())
}

func TestPickProgramMatchesFlagEncoder(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	d := newFakeDrawable(t, dev)

	frame := &FrameContext{View: v, Renderers: set}
	require.NoError(t, set.Renderer(KindPickMesh).Draw(frame, d, core.PassPick))
	require.Len(t, dev.Draws, 1)

	prog := dev.Draws[0].Program.(*gputest.Program)
	assert.Contains(t, prog.Desc.Source, "const FLAG_SHIFT: u32 = 12u;")
	assert.Equal(t, gpu.TargetPick, prog.Desc.Target)

	flags := core.EncodeFlags(core.StateVisible|core.StatePickable, v.GlowThrough())
	assert.Equal(t, core.PassPick, core.Field(flags, core.FieldPick))
	assert.Equal(t, uint32(core.PassPick), binary.LittleEndian.Uint32(dev.Draws[0].Uniforms[256:]))

	require.Len(t, dev.Draws[0].Vertex, 3)
	assert.Equal(t, "pick", dev.Draws[0].Vertex[1].Label())
}

func TestRendererDrawSelectsIndexBuffer(t *testing.T) {
	dev := gputest.NewDevice()
	set, prof := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	d := newFakeDrawable(t, dev)
	frame := &FrameContext{View: v, Renderers: set}

	require.NoError(t, set.Renderer(KindColor).Draw(frame, d, core.PassColorOpaque))
	require.NoError(t, set.Renderer(KindEdges).Draw(frame, d, core.PassEdgesSelected))
	require.Len(t, dev.Draws, 2)

	assert.Equal(t, "idx", dev.Draws[0].Index.Label())
	assert.Equal(t, uint32(3), dev.Draws[0].Count)
	assert.False(t, dev.Draws[0].Transparent)

	assert.Equal(t, "edges", dev.Draws[1].Index.Label())
	assert.Equal(t, uint32(2), dev.Draws[1].Count)
	assert.Equal(t, 2, prof.Count(core.StatDraws))

	d.numEdges = 0
	require.NoError(t, set.Renderer(KindEdges).Draw(frame, d, core.PassEdgesSelected))
	assert.Len(t, dev.Draws, 2, "empty index range issues no draw")
}

func TestRendererDrawTransparency(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	d := newFakeDrawable(t, dev)
	frame := &FrameContext{View: v, Renderers: set}

	require.NoError(t, set.Renderer(KindColor).Draw(frame, d, core.PassColorTransparent))
	require.NoError(t, set.Renderer(KindSilhouette).Draw(frame, d, core.PassSilhouetteXRayed))
	require.Len(t, dev.Draws, 2)
	assert.True(t, dev.Draws[0].Transparent)
	assert.True(t, dev.Draws[1].Transparent, "xray fill alpha is below one")
	assert.InDelta(t, v.XRay.FillAlpha, f32At(dev.Draws[1].Uniforms, 192+12), 1e-6)
}

func TestRendererMissingBuffer(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	d := newFakeDrawable(t, dev)
	delete(d.buffers, gpu.SemanticFlags)

	err := set.Renderer(KindColor).Draw(&FrameContext{View: core.NewView("v", 0)}, d, core.PassColorOpaque)
	assert.ErrorIs(t, err, ErrMissingBuffer)
	assert.Empty(t, dev.Draws)
}

func TestSectionPlanesUploadRelativeToOrigin(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	v.AddSectionPlane(&core.SectionPlane{ID: "p", Pos: mgl64.Vec3{1e6 + 10, 5, 0}, Dir: mgl32.Vec3{1, 0, 0}})
	d := newFakeDrawable(t, dev)
	d.origin = mgl64.Vec3{1e6, 0, 0}

	require.NoError(t, set.Renderer(KindColor).Draw(&FrameContext{View: v}, d, core.PassColorOpaque))
	require.Len(t, dev.Draws, 1)
	u := dev.Draws[0].Uniforms
	planeOff := uniformHeaderSize + uniformLightSize // one directional light
	require.Len(t, u, planeOff+uniformPlaneSize)
	assert.Equal(t, float32(10), f32At(u, planeOff))
	assert.Equal(t, float32(5), f32At(u, planeOff+4))
	assert.Equal(t, float32(1), f32At(u, planeOff+16))
}

func TestRendererSetLifecycle(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	assert.Empty(t, set.Built())

	v := core.NewView("v", 0)
	require.NoError(t, set.Renderer(KindColor).Bind(v))
	require.NoError(t, set.Renderer(KindPickDepth).Bind(v))
	assert.Equal(t, []Kind{KindColor, KindPickDepth}, set.Built())
	assert.Same(t, set.Renderer(KindColor), set.Renderer(KindColor))
	assert.Equal(t, 2, set.Compiles())

	set.MarkStale()
	assert.Equal(t, StateStale, set.Renderer(KindColor).State())

	r := set.Renderer(KindColor)
	set.Destroy()
	assert.True(t, set.Destroyed())
	assert.Nil(t, set.Renderer(KindColor))
	assert.ErrorIs(t, r.Bind(v), ErrDestroyed)
	for _, p := range dev.Programs {
		assert.True(t, p.Released)
	}
}

func TestUniformsStayWithinCompiledFeatures(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	v.AddSectionPlane(&core.SectionPlane{ID: "q", Dir: mgl32.Vec3{1, 0, 0}})
	d := newFakeDrawable(t, dev)
	frame := &FrameContext{View: v}
	r := set.Renderer(KindColor)
	require.NoError(t, r.Draw(frame, d, core.PassColorOpaque))

	// Nothing marks the renderer stale, so it keeps the one-plane program.
	v.AddSectionPlane(&core.SectionPlane{ID: "p", Dir: mgl32.Vec3{0, 1, 0}})
	v.SetLights(append(v.Lights(), core.PointLight(mgl64.Vec3{}, mgl32.Vec3{1, 1, 1}, 1, core.SpaceWorld)))
	assert.NotPanics(t, func() {
		assert.NoError(t, r.Draw(frame, d, core.PassColorOpaque))
	})
	require.Len(t, dev.Draws, 2)
	assert.Len(t, dev.Draws[1].Uniforms, uniformHeaderSize+uniformLightSize+uniformPlaneSize)
	assert.Equal(t, 1, r.Compiles())

	r.MarkStale()
	require.NoError(t, r.Draw(frame, d, core.PassColorOpaque))
	assert.Len(t, dev.Draws[2].Uniforms, uniformHeaderSize+2*uniformLightSize+2*uniformPlaneSize)
	assert.Equal(t, 2, r.Compiles())
}

func TestAmbientAndLightSpaceDoNotRecompile(t *testing.T) {
	dev := gputest.NewDevice()
	set, _ := newTestSet(dev, 4)
	v := core.NewView("v", 0)
	r := set.Renderer(KindColor)
	require.NoError(t, r.Bind(v))

	dir := mgl32.Vec3{0, -1, 0}
	v.SetLights([]core.Light{
		core.AmbientLight(mgl32.Vec3{1, 1, 1}, 0.2),
		core.AmbientLight(mgl32.Vec3{1, 0, 0}, 0.1),
		core.DirLight(dir, mgl32.Vec3{1, 1, 1}, 1, core.SpaceWorld),
	})
	r.MarkStale()
	require.NoError(t, r.Bind(v))
	assert.Equal(t, 1, r.Compiles())

	v.SetLights([]core.Light{core.PointLight(mgl64.Vec3{}, mgl32.Vec3{1, 1, 1}, 1, core.SpaceView)})
	r.MarkStale()
	require.NoError(t, r.Bind(v))
	assert.Equal(t, 2, r.Compiles())
}
