// Package compress quantizes geometry into the compact integer formats
// stored in layer buffers, and produces the matrices that decode them.
package compress

import (
	"math"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// QuantizedMax is the largest 16-bit quantized coordinate.
const QuantizedMax = 65535

// DecompressPosition maps one quantized xyz triple back into aabb.
func DecompressPosition(qx, qy, qz uint16, aabb core.AABB) (x, y, z float64) {
	ext := aabb.Extent()
	x = aabb.Min[0] + float64(qx)*ext[0]/QuantizedMax
	y = aabb.Min[1] + float64(qy)*ext[1]/QuantizedMax
	z = aabb.Min[2] + float64(qz)*ext[2]/QuantizedMax
	return
}

// DecompressPositions expands a flat quantized xyz array against aabb.
func DecompressPositions(quantized []uint16, aabb core.AABB) []float64 {
	out := make([]float64, len(quantized))
	for i := 0; i+2 < len(quantized); i += 3 {
		out[i], out[i+1], out[i+2] = DecompressPosition(quantized[i], quantized[i+1], quantized[i+2], aabb)
	}
	return out
}

// QuantizePositions maps a flat xyz array into 16-bit integers over aabb.
// Positions outside aabb are clamped; a flat axis quantizes to 0.
func QuantizePositions(positions []float64, aabb core.AABB) []uint16 {
	out := make([]uint16, len(positions))
	ext := aabb.Extent()
	var mul [3]float64
	for axis := 0; axis < 3; axis++ {
		if ext[axis] > 0 {
			mul[axis] = QuantizedMax / ext[axis]
		}
	}
	for i := 0; i+2 < len(positions); i += 3 {
		for axis := 0; axis < 3; axis++ {
			q := math.Round((positions[i+axis] - aabb.Min[axis]) * mul[axis])
			out[i+axis] = uint16(math.Max(0, math.Min(QuantizedMax, q)))
		}
	}
	return out
}

// CreatePositionsDecodeMatrix returns the matrix taking quantized
// coordinates back into aabb: translate(min) * scale(extent / 65535).
func CreatePositionsDecodeMatrix(aabb core.AABB) mgl32.Mat4 {
	ext := aabb.Extent()
	m := mgl64.Translate3D(aabb.Min[0], aabb.Min[1], aabb.Min[2]).
		Mul4(mgl64.Scale3D(ext[0]/QuantizedMax, ext[1]/QuantizedMax, ext[2]/QuantizedMax))
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

// TransformPositions applies m to a flat xyz array and returns a new array.
func TransformPositions(positions []float64, m mgl64.Mat4) []float64 {
	out := make([]float64, len(positions))
	for i := 0; i+2 < len(positions); i += 3 {
		p := m.Mul4x1(mgl64.Vec4{positions[i], positions[i+1], positions[i+2], 1})
		out[i], out[i+1], out[i+2] = p[0], p[1], p[2]
	}
	return out
}

// WorldToRTCPositions re-expresses world positions relative to an origin
// snapped to a grid of cellSize. It reports false, returning the input
// unchanged, when the snapped origin is the world origin.
func WorldToRTCPositions(positions []float64, cellSize float64) ([]float64, mgl64.Vec3, bool) {
	if cellSize <= 0 || len(positions) < 3 {
		return positions, mgl64.Vec3{}, false
	}
	aabb := core.EmptyAABB()
	aabb.ExpandPositions(positions)
	center := aabb.Center()

	var origin mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		origin[axis] = math.Round(center[axis]/cellSize) * cellSize
	}
	if origin == (mgl64.Vec3{}) {
		return positions, origin, false
	}

	out := make([]float64, len(positions))
	for i := 0; i+2 < len(positions); i += 3 {
		out[i] = positions[i] - origin[0]
		out[i+1] = positions[i+1] - origin[1]
		out[i+2] = positions[i+2] - origin[2]
	}
	return out, origin, true
}
