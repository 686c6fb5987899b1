package layer

import "encoding/binary"

// buffer holds the CPU staging arrays of a layer while it is being filled.
// Positions are full precision in the layer's local (RTC) space; they are
// quantized once the whole layer is known.
type buffer struct {
	positions   []float64
	colors      []uint8 // RGBA8 per vertex
	pickColors  []uint8 // RGBA8 per vertex
	uvs         []float32
	indices     []uint32
	edgeIndices []uint32
}

func newBuffer() *buffer {
	return &buffer{
		positions:   make([]float64, 0, 3*1024),
		colors:      make([]uint8, 0, 4*1024),
		pickColors:  make([]uint8, 0, 4*1024),
		indices:     make([]uint32, 0, 1024),
		edgeIndices: make([]uint32, 0, 1024),
	}
}

func (b *buffer) numVertices() int { return len(b.positions) / 3 }

// appendColors adds per-vertex colors when given, otherwise the flat color
// repeated over n vertices.
func (b *buffer) appendColors(colors []uint8, flat [4]uint8, n int) {
	if len(colors) >= 4*n {
		b.colors = append(b.colors, colors[:4*n]...)
		return
	}
	for i := 0; i < n; i++ {
		b.colors = append(b.colors, flat[:]...)
	}
}

func (b *buffer) appendPickColor(c [4]uint8, n int) {
	for i := 0; i < n; i++ {
		b.pickColors = append(b.pickColors, c[:]...)
	}
}

// appendUVs keeps the uv array aligned with positions: a mesh without uvs
// after a mesh with uvs (or the reverse) gets zeros.
func (b *buffer) appendUVs(uvs []float32, base, n int) {
	if len(uvs) == 0 && len(b.uvs) == 0 {
		return
	}
	if len(b.uvs) < 2*base {
		b.uvs = append(b.uvs, make([]float32, 2*base-len(b.uvs))...)
	}
	if len(uvs) >= 2*n {
		b.uvs = append(b.uvs, uvs[:2*n]...)
		return
	}
	b.uvs = append(b.uvs, make([]float32, 2*n)...)
}

func (b *buffer) appendIndices(dst *[]uint32, src []uint32, base int) {
	for _, i := range src {
		*dst = append(*dst, i+uint32(base))
	}
}

// packPositions lays quantized xyz triples out as uint16x4 vertices.
func packPositions(q []uint16) []byte {
	n := len(q) / 3
	out := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*8:], q[i*3])
		binary.LittleEndian.PutUint16(out[i*8+2:], q[i*3+1])
		binary.LittleEndian.PutUint16(out[i*8+4:], q[i*3+2])
	}
	return out
}

func packUint16s(v []uint16) []byte {
	out := make([]byte, len(v)*2)
	for i, x := range v {
		binary.LittleEndian.PutUint16(out[i*2:], x)
	}
	return out
}

func packUint32s(v []uint32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], x)
	}
	return out
}
