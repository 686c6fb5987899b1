package shaders

import (
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// FrameContext carries per-frame, per-view draw parameters.
type FrameContext struct {
	View      *core.View
	Renderers *RendererSet

	// Depth range mapped to [0,1] by the pick-depth pass.
	PickZNear float32
	PickZFar  float32
}

// Drawable is the GPU-side view of a built layer that renderers draw from.
type Drawable interface {
	Primitive() core.Primitive
	Origin() mgl64.Vec3
	PositionsDecodeMatrix() mgl32.Mat4
	// LayerNumber identifies the layer in snap output.
	LayerNumber() int
	// VertexBuffer returns the buffer holding the semantic for a view, or nil.
	VertexBuffer(viewIndex int, s gpu.Semantic) gpu.Buffer
	NumVertices() uint32
	Indices() (gpu.Buffer, uint32)
	EdgeIndices() (gpu.Buffer, uint32)
}
