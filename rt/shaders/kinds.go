package shaders

import (
	"fmt"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
)

// Kind is one renderer in a RendererSet. A kind serves every render pass that
// reads the same flags sub-field; the pass itself is a uniform.
type Kind uint8

const (
	KindColor Kind = iota
	KindSilhouette
	KindEdges
	KindEdgesColor
	KindPickMesh
	KindPickDepth
	KindOcclusion
	KindSnapInit
	KindSnap
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindSilhouette:
		return "silhouette"
	case KindEdges:
		return "edges"
	case KindEdgesColor:
		return "edges-color"
	case KindPickMesh:
		return "pick-mesh"
	case KindPickDepth:
		return "pick-depth"
	case KindOcclusion:
		return "occlusion"
	case KindSnapInit:
		return "snap-init"
	case KindSnap:
		return "snap"
	}
	return "unknown"
}

// Field returns the flags sub-field the kind's discard test reads.
func (k Kind) Field() core.FlagField {
	switch k {
	case KindColor, KindOcclusion:
		return core.FieldColor
	case KindSilhouette:
		return core.FieldSilhouette
	case KindEdges, KindEdgesColor:
		return core.FieldEdges
	}
	return core.FieldPick
}

// UsesEdgeIndices reports whether the kind draws the layer's edge index buffer.
func (k Kind) UsesEdgeIndices() bool {
	return k == KindEdges || k == KindEdgesColor
}

// Indexed reports whether the kind issues indexed draws for the primitive.
func (k Kind) Indexed(p core.Primitive) bool {
	if k == KindSnap || p == core.PrimitivePoints {
		return false
	}
	return true
}

// Features is everything that changes generated program text.
type Features struct {
	Primitive       core.Primitive
	Kind            Kind
	Lights          []core.LightType // non-ambient lights, in upload order
	NumPlanes       int
	FilterIntensity bool
}

func (f Features) numLights() int { return len(f.Lights) }

// FeaturesFor derives the features a view requires from a renderer.
func FeaturesFor(p core.Primitive, k Kind, v *core.View) Features {
	f := Features{Primitive: p, Kind: k}
	if k == KindColor && p == core.PrimitiveTriangles {
		for _, l := range v.Lights() {
			if l.Type != core.LightAmbient {
				f.Lights = append(f.Lights, l.Type)
			}
		}
	}
	f.NumPlanes = len(core.ActivePlanes(v.SectionPlanes()))
	if p == core.PrimitivePoints && k == KindColor {
		f.FilterIntensity = v.PointsMaterial().FilterIntensity
	}
	return f
}

// FeatureHash keys compiled programs. Renderers that ignore lights or point
// settings leave those parts constant so unrelated changes do not recompile.
func FeatureHash(p core.Primitive, k Kind, v *core.View) string {
	lights := "l*"
	if k == KindColor && p == core.PrimitiveTriangles {
		lights = v.LightsHash()
	}
	points := "-"
	if p == core.PrimitivePoints && k == KindColor {
		points = v.PointsMaterial().Hash()
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", p, k, lights, v.SectionPlanesHash(), points)
}

// attributes returns the vertex inputs of the kind. Locations are fixed:
// position 0, color 1, flags 2.
func (f Features) attributes() []gpu.VertexAttribute {
	pos := gpu.VertexAttribute{Semantic: gpu.SemanticPosition, Format: gpu.FormatUint16x4, Location: 0}
	flags := gpu.VertexAttribute{Semantic: gpu.SemanticFlags, Format: gpu.FormatUint32, Location: 2}
	switch f.Kind {
	case KindColor, KindEdgesColor:
		return []gpu.VertexAttribute{pos, {Semantic: gpu.SemanticColor, Format: gpu.FormatUnorm8x4, Location: 1}, flags}
	case KindPickMesh:
		return []gpu.VertexAttribute{pos, {Semantic: gpu.SemanticPickColor, Format: gpu.FormatUnorm8x4, Location: 1}, flags}
	}
	return []gpu.VertexAttribute{pos, flags}
}

func (f Features) hasColorInput() bool {
	for _, a := range f.attributes() {
		if a.Location == 1 {
			return true
		}
	}
	return false
}

func (f Features) topology() gpu.Topology {
	switch {
	case f.Kind.UsesEdgeIndices():
		return gpu.TopologyLineList
	case f.Kind == KindSnap:
		return gpu.TopologyPointList
	}
	switch f.Primitive {
	case core.PrimitiveLines:
		return gpu.TopologyLineList
	case core.PrimitivePoints:
		return gpu.TopologyPointList
	}
	return gpu.TopologyTriangleList
}

func (f Features) target() gpu.Target {
	switch f.Kind {
	case KindPickMesh, KindPickDepth, KindOcclusion:
		return gpu.TargetPick
	case KindSnapInit, KindSnap:
		return gpu.TargetFloat
	}
	return gpu.TargetSurface
}

func (f Features) blend() gpu.Blend {
	switch f.Kind {
	case KindColor, KindSilhouette, KindEdges, KindEdgesColor:
		return gpu.BlendAlpha
	}
	return gpu.BlendNone
}

// Descriptor composes the full program descriptor for the features.
func (f Features) Descriptor(label string) *gpu.ProgramDescriptor {
	return &gpu.ProgramDescriptor{
		Label:       label,
		Source:      Compose(f).String(),
		Topology:    f.topology(),
		Attributes:  f.attributes(),
		UniformSize: uniformSize(f),
		Target:      f.target(),
		Blend:       f.blend(),
		DepthWrite:  true,
	}
}
