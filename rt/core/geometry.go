package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Primitive is the geometry primitive type shared by every mesh in a layer.
type Primitive uint8

const (
	PrimitiveTriangles Primitive = iota
	PrimitiveLines
	PrimitivePoints
)

func (p Primitive) String() string {
	switch p {
	case PrimitiveTriangles:
		return "triangles"
	case PrimitiveLines:
		return "lines"
	case PrimitivePoints:
		return "points"
	}
	return "unknown"
}

// AABB is an axis-aligned box in double precision world or local space.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Expand call will overwrite.
func EmptyAABB() AABB {
	inf := math.MaxFloat64
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// ExpandPoint grows the box to contain p.
func (b *AABB) ExpandPoint(x, y, z float64) {
	b.Min[0] = math.Min(b.Min[0], x)
	b.Min[1] = math.Min(b.Min[1], y)
	b.Min[2] = math.Min(b.Min[2], z)
	b.Max[0] = math.Max(b.Max[0], x)
	b.Max[1] = math.Max(b.Max[1], y)
	b.Max[2] = math.Max(b.Max[2], z)
}

func (b *AABB) ExpandAABB(o AABB) {
	if o.IsEmpty() {
		return
	}
	b.ExpandPoint(o.Min[0], o.Min[1], o.Min[2])
	b.ExpandPoint(o.Max[0], o.Max[1], o.Max[2])
}

// ExpandPositions grows the box to contain a flat xyz position array.
func (b *AABB) ExpandPositions(positions []float64) {
	for i := 0; i+2 < len(positions); i += 3 {
		b.ExpandPoint(positions[i], positions[i+1], positions[i+2])
	}
}

func (b AABB) Extent() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Translate returns the box moved by offset.
func (b AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Transform returns a conservative box around the 8 transformed corners.
func (b AABB) Transform(m mgl64.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		c := mgl64.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		w := m.Mul4x1(c.Vec4(1)).Vec3()
		out.ExpandPoint(w[0], w[1], w[2])
	}
	return out
}

// Float32 converts the box for single precision frustum tests.
func (b AABB) Float32() [2]mgl32.Vec3 {
	return [2]mgl32.Vec3{
		{float32(b.Min[0]), float32(b.Min[1]), float32(b.Min[2])},
		{float32(b.Max[0]), float32(b.Max[1]), float32(b.Max[2])},
	}
}
