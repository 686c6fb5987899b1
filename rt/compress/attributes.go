package compress

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// QuantizeUVs maps a flat uv array into 16-bit integers over its own bounds
// and returns the 3x3 matrix that decodes them.
func QuantizeUVs(uvs []float32) ([]uint16, mgl32.Mat3) {
	if len(uvs) < 2 {
		return nil, mgl32.Ident3()
	}
	min := [2]float32{math32.MaxFloat32, math32.MaxFloat32}
	max := [2]float32{-math32.MaxFloat32, -math32.MaxFloat32}
	for i := 0; i+1 < len(uvs); i += 2 {
		for c := 0; c < 2; c++ {
			min[c] = math32.Min(min[c], uvs[i+c])
			max[c] = math32.Max(max[c], uvs[i+c])
		}
	}

	var scale [2]float32
	for c := 0; c < 2; c++ {
		if r := max[c] - min[c]; r > 0 {
			scale[c] = QuantizedMax / r
		}
	}

	out := make([]uint16, len(uvs))
	for i := 0; i+1 < len(uvs); i += 2 {
		for c := 0; c < 2; c++ {
			q := math32.Round((uvs[i+c] - min[c]) * scale[c])
			out[i+c] = uint16(math32.Max(0, math32.Min(QuantizedMax, q)))
		}
	}

	decode := mgl32.Translate2D(min[0], min[1]).
		Mul3(mgl32.Scale2D((max[0]-min[0])/QuantizedMax, (max[1]-min[1])/QuantizedMax))
	return out, decode
}

// DecompressUV applies a decode matrix from QuantizeUVs to one uv pair.
func DecompressUV(u, v uint16, decode mgl32.Mat3) (float32, float32) {
	p := decode.Mul3x1(mgl32.Vec3{float32(u), float32(v), 1})
	return p[0], p[1]
}

// CompressColors converts float RGBA in [0,1] into 8-bit RGBA, clamping.
func CompressColors(colors []float32) []uint8 {
	out := make([]uint8, len(colors))
	for i, c := range colors {
		out[i] = uint8(math32.Round(math32.Max(0, math32.Min(1, c)) * 255))
	}
	return out
}

// EncodePickColor turns a non-zero pick ID into the RGBA written by the
// pick-by-mesh pass. ID 0 is reserved for "nothing picked".
func EncodePickColor(id uint32) [4]uint8 {
	return [4]uint8{uint8(id), uint8(id >> 8), uint8(id >> 16), uint8(id >> 24)}
}

// DecodePickColor is the inverse of EncodePickColor.
func DecodePickColor(c [4]uint8) uint32 {
	return uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | uint32(c[3])<<24
}
