// Package gpu defines the buffer/program/draw contract the batching engine
// needs from an immediate-mode rasterizing GPU. Implementations live in
// sub-packages so the engine itself builds without native graphics libraries.
package gpu

// BufferUsage is a bit set describing how a buffer is bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageCopyDst
)

// Buffer is a GPU buffer created by a Device.
type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

// Topology is the primitive assembly mode of a program.
type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyLineList
	TopologyPointList
)

// VertexFormat is the per-vertex attribute encoding.
type VertexFormat uint8

const (
	FormatUint16x4 VertexFormat = iota // quantized positions (w unused)
	FormatUint16x2                     // quantized UVs
	FormatUnorm8x4                     // colors, pick colors
	FormatUint32                       // packed flags
)

// ByteSize returns the size of one element of the format.
func (f VertexFormat) ByteSize() uint64 {
	switch f {
	case FormatUint16x4:
		return 8
	case FormatUint16x2, FormatUnorm8x4, FormatUint32:
		return 4
	}
	return 0
}

// Semantic names the data a vertex attribute carries.
type Semantic uint8

const (
	SemanticPosition Semantic = iota
	SemanticColor
	SemanticFlags
	SemanticPickColor
	SemanticUV
)

// VertexAttribute binds one non-interleaved vertex buffer to a shader location.
type VertexAttribute struct {
	Semantic Semantic
	Format   VertexFormat
	Location uint32
}

// Target is the kind of color attachment a program writes.
type Target uint8

const (
	TargetSurface Target = iota // swapchain color
	TargetPick                  // rgba8 offscreen pick buffer
	TargetFloat                 // rgba32float offscreen buffer (snapping)
)

// Blend selects the color blending mode.
type Blend uint8

const (
	BlendNone Blend = iota
	BlendAlpha
)

// ProgramDescriptor describes one vertex/fragment program pair. Source holds
// WGSL with `vs_main` and `fs_main` entry points and a single uniform block
// at group 0 binding 0 of UniformSize bytes.
type ProgramDescriptor struct {
	Label       string
	Source      string
	Topology    Topology
	Attributes  []VertexAttribute
	UniformSize uint64
	Target      Target
	Blend       Blend
	DepthWrite  bool
}

// Program is a compiled, bindable program.
type Program interface {
	Label() string
	Release()
}

// DrawCommand is one draw call. Vertex buffers are given in the order of the
// program's Attributes. A nil Index issues a non-indexed draw of Count vertices.
// Transparent draws blend and do not write depth, whatever the program's
// defaults.
type DrawCommand struct {
	Program     Program
	Vertex      []Buffer
	Index       Buffer
	Count       uint32
	Uniforms    []byte
	Transparent bool
}

// Device is the GPU abstraction. All calls happen on the render thread.
type Device interface {
	// CreateBuffer allocates a buffer initialized with contents.
	CreateBuffer(label string, usage BufferUsage, contents []byte) (Buffer, error)
	// WriteBuffer patches buf at the byte offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte)
	CreateProgram(desc *ProgramDescriptor) (Program, error)
	Draw(cmd *DrawCommand)
}
