package layer

import (
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
	"github.com/gekko3d/bimview/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

var _ shaders.Drawable = (*Layer)(nil)

// Each Draw method first checks the view's counters, so a layer with nothing
// for a pass costs no GPU work. The view's renderer set must match the
// layer's primitive.

func (l *Layer) DrawColorOpaque(f *shaders.FrameContext) {
	l.draw(f, shaders.KindColor, core.PassColorOpaque, func(c *core.MeshCounts) bool {
		return c.NumTransparent == c.NumMeshes || c.NumXRayed == c.NumMeshes
	})
}

func (l *Layer) DrawColorTransparent(f *shaders.FrameContext) {
	l.draw(f, shaders.KindColor, core.PassColorTransparent, func(c *core.MeshCounts) bool {
		return c.NumTransparent == 0 || c.NumXRayed == c.NumMeshes
	})
}

func (l *Layer) DrawSilhouetteXRayed(f *shaders.FrameContext) {
	l.draw(f, shaders.KindSilhouette, core.PassSilhouetteXRayed, func(c *core.MeshCounts) bool {
		return c.NumXRayed == 0
	})
}

func (l *Layer) DrawSilhouetteHighlighted(f *shaders.FrameContext) {
	l.draw(f, shaders.KindSilhouette, core.PassSilhouetteHighlighted, func(c *core.MeshCounts) bool {
		return c.NumHighlighted == 0
	})
}

func (l *Layer) DrawSilhouetteSelected(f *shaders.FrameContext) {
	l.draw(f, shaders.KindSilhouette, core.PassSilhouetteSelected, func(c *core.MeshCounts) bool {
		return c.NumSelected == 0
	})
}

func (l *Layer) DrawEdgesColorOpaque(f *shaders.FrameContext) {
	l.drawEdges(f, shaders.KindEdgesColor, core.PassEdgesColorOpaque, func(c *core.MeshCounts) bool {
		return c.NumEdges == 0 || c.NumTransparent == c.NumMeshes
	})
}

func (l *Layer) DrawEdgesColorTransparent(f *shaders.FrameContext) {
	l.drawEdges(f, shaders.KindEdgesColor, core.PassEdgesColorTransparent, func(c *core.MeshCounts) bool {
		return c.NumEdges == 0 || c.NumTransparent == 0
	})
}

func (l *Layer) DrawEdgesXRayed(f *shaders.FrameContext) {
	l.drawEdges(f, shaders.KindEdges, core.PassEdgesXRayed, func(c *core.MeshCounts) bool {
		return c.NumXRayed == 0
	})
}

func (l *Layer) DrawEdgesHighlighted(f *shaders.FrameContext) {
	l.drawEdges(f, shaders.KindEdges, core.PassEdgesHighlighted, func(c *core.MeshCounts) bool {
		return c.NumHighlighted == 0
	})
}

func (l *Layer) DrawEdgesSelected(f *shaders.FrameContext) {
	l.drawEdges(f, shaders.KindEdges, core.PassEdgesSelected, func(c *core.MeshCounts) bool {
		return c.NumSelected == 0
	})
}

func (l *Layer) DrawPickMesh(f *shaders.FrameContext) {
	l.draw(f, shaders.KindPickMesh, core.PassPick, noPickable)
}

func (l *Layer) DrawPickDepth(f *shaders.FrameContext) {
	l.draw(f, shaders.KindPickDepth, core.PassPick, noPickable)
}

// DrawOcclusion draws opaque meshes flat for occlusion testing.
func (l *Layer) DrawOcclusion(f *shaders.FrameContext) {
	l.draw(f, shaders.KindOcclusion, core.PassColorOpaque, func(c *core.MeshCounts) bool {
		return c.NumTransparent == c.NumMeshes
	})
}

// DrawSnapInit writes the depth and surface coordinates used to seed snapping.
func (l *Layer) DrawSnapInit(f *shaders.FrameContext) {
	l.draw(f, shaders.KindSnapInit, core.PassPick, noPickable)
}

// DrawSnap draws vertices as points for vertex snapping.
func (l *Layer) DrawSnap(f *shaders.FrameContext) {
	l.draw(f, shaders.KindSnap, core.PassPick, noPickable)
}

func noPickable(c *core.MeshCounts) bool { return c.NumPickable == 0 }

func (l *Layer) drawEdges(f *shaders.FrameContext, kind shaders.Kind, pass core.RenderPass, skip func(*core.MeshCounts) bool) {
	if l.numEdges == 0 {
		l.profiler.Add(core.StatDrawsSkipped, 1)
		return
	}
	l.draw(f, kind, pass, skip)
}

func (l *Layer) draw(f *shaders.FrameContext, kind shaders.Kind, pass core.RenderPass, skip func(*core.MeshCounts) bool) {
	c := l.counts.At(f.View.Index)
	if !l.built || l.destroyed || c == nil || c.Idle() || skip(c) {
		l.profiler.Add(core.StatDrawsSkipped, 1)
		return
	}
	r := f.Renderers.Renderer(kind)
	if r == nil {
		l.profiler.Add(core.StatDrawsSkipped, 1)
		return
	}
	if err := r.Draw(f, l, pass); err != nil {
		l.logger.Errorf("%s pass: %v", pass, err)
	}
}

// Drawable implementation.

func (l *Layer) PositionsDecodeMatrix() mgl32.Mat4 { return l.decode }

// UVDecodeMatrix decodes the quantized uvs, when the layer has them.
func (l *Layer) UVDecodeMatrix() mgl32.Mat3 { return l.uvDecode }

func (l *Layer) NumVertices() uint32 { return uint32(l.numVerts) }

func (l *Layer) Indices() (gpu.Buffer, uint32) {
	if l.indices == nil {
		return nil, 0
	}
	return l.indices, uint32(l.numIdx)
}

func (l *Layer) EdgeIndices() (gpu.Buffer, uint32) {
	if l.edgeIndices == nil {
		return nil, 0
	}
	return l.edgeIndices, uint32(l.numEdges)
}

func (l *Layer) VertexBuffer(viewIndex int, s gpu.Semantic) gpu.Buffer {
	switch s {
	case gpu.SemanticPosition:
		return l.positions
	case gpu.SemanticPickColor:
		return l.pickColors
	case gpu.SemanticUV:
		return l.uvs
	}
	if viewIndex < 0 || viewIndex >= len(l.views) || l.views[viewIndex] == nil {
		return nil
	}
	vb := l.views[viewIndex]
	switch s {
	case gpu.SemanticColor:
		return vb.colors
	case gpu.SemanticFlags:
		return vb.flags
	}
	return nil
}
