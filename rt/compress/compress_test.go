package compress

import (
	"math"
	"testing"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box10() core.AABB {
	return core.AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{10, 10, 10}}
}

func TestQuantizeCorners(t *testing.T) {
	q := QuantizePositions([]float64{0, 0, 0, 10, 10, 10}, box10())
	assert.Equal(t, []uint16{0, 0, 0, 65535, 65535, 65535}, q)
}

func TestQuantizeRoundTripWithinBound(t *testing.T) {
	aabb := box10()
	positions := []float64{
		1.2345, 6.789, 9.999,
		0.0001, 5, 7.5,
		3.3333, 3.3333, 3.3333,
	}
	q := QuantizePositions(positions, aabb)
	back := DecompressPositions(q, aabb)

	bound := 10.0 / QuantizedMax
	for i := range positions {
		assert.InDelta(t, positions[i], back[i], bound, "component %d", i)
	}
}

func TestDecodeMatrixMatchesDecompress(t *testing.T) {
	aabb := core.AABB{Min: mgl64.Vec3{-5, 2, 100}, Max: mgl64.Vec3{15, 4, 140}}
	m := CreatePositionsDecodeMatrix(aabb)

	x, y, z := DecompressPosition(1000, 40000, 65535, aabb)
	p := m.Mul4x1(mgl32.Vec4{1000, 40000, 65535, 1})
	assert.InDelta(t, x, float64(p[0]), 1e-3)
	assert.InDelta(t, y, float64(p[1]), 1e-3)
	assert.InDelta(t, z, float64(p[2]), 1e-3)
}

func TestQuantizeFlatAxis(t *testing.T) {
	aabb := core.AABB{Min: mgl64.Vec3{0, 0, 5}, Max: mgl64.Vec3{1, 1, 5}}
	q := QuantizePositions([]float64{1, 1, 5}, aabb)
	assert.Equal(t, []uint16{65535, 65535, 0}, q)
}

func TestTransformPositions(t *testing.T) {
	m := mgl64.Translate3D(1, 2, 3).Mul4(mgl64.Scale3D(2, 2, 2))
	out := TransformPositions([]float64{1, 1, 1}, m)
	assert.Equal(t, []float64{3, 4, 5}, out)
}

func TestWorldToRTCPositions(t *testing.T) {
	world := []float64{
		1000001, 2000000, 0,
		1000003, 2000002, 1,
	}
	rtc, origin, ok := WorldToRTCPositions(world, 200)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1000000, 2000000, 0}, origin)
	assert.Equal(t, []float64{1, 0, 0, 3, 2, 1}, rtc)

	near := []float64{1, 2, 3}
	same, _, ok := WorldToRTCPositions(near, 200)
	assert.False(t, ok)
	assert.Equal(t, near, same)
}

func TestQuantizeUVs(t *testing.T) {
	uvs := []float32{0, 0, 1, 0.5, 0.25, 2}
	q, decode := QuantizeUVs(uvs)
	require.Len(t, q, len(uvs))
	for i := 0; i < len(uvs); i += 2 {
		u, v := DecompressUV(q[i], q[i+1], decode)
		assert.InDelta(t, uvs[i], u, 1.0/QuantizedMax+1e-6)
		assert.InDelta(t, uvs[i+1], v, 2.0/QuantizedMax+1e-6)
	}
}

func TestCompressColors(t *testing.T) {
	assert.Equal(t, []uint8{0, 128, 255, 255}, CompressColors([]float32{-1, 0.5, 1, 3}))
}

func TestPickColorRoundTrip(t *testing.T) {
	for _, id := range []uint32{1, 255, 256, 65537, math.MaxUint32} {
		assert.Equal(t, id, DecodePickColor(EncodePickColor(id)))
	}
}
