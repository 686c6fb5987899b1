package shaders

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Uniform block layout, mirrored by the Uniforms struct in common.uniforms:
//
//	view      mat4x4  0
//	proj      mat4x4  64
//	decode    mat4x4  128
//	color     vec4    192  emphasis color
//	ambient   vec4    208
//	params    vec4    224  x=point size, y=pick z-near, z=pick z-far, w=min intensity
//	params2   vec4    240  x=max intensity, y=layer number
//	pass_info vec4u   256  x=render pass
//	lights    48*N    272
//	planes    32*M
const (
	uniformHeaderSize = 272
	uniformLightSize  = 48
	uniformPlaneSize  = 32
)

func uniformSize(f Features) uint64 {
	return uint64(uniformHeaderSize + uniformLightSize*f.numLights() + uniformPlaneSize*f.NumPlanes)
}

type uniformWriter struct {
	buf []byte
}

func (w *uniformWriter) f32(off int, v float32) {
	binary.LittleEndian.PutUint32(w.buf[off:], math.Float32bits(v))
}

func (w *uniformWriter) u32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

func (w *uniformWriter) mat4(off int, m mgl32.Mat4) {
	for i, v := range m {
		w.f32(off+i*4, v)
	}
}

func (w *uniformWriter) vec4(off int, x, y, z, a float32) {
	w.f32(off, x)
	w.f32(off+4, y)
	w.f32(off+8, z)
	w.f32(off+12, a)
}

// emphasisColor returns the fill or edge color a pass draws with.
func emphasisColor(v *core.View, pass core.RenderPass) (mgl32.Vec3, float32) {
	switch pass {
	case core.PassSilhouetteXRayed:
		return v.XRay.FillColor, v.XRay.FillAlpha
	case core.PassSilhouetteHighlighted:
		return v.Highlight.FillColor, v.Highlight.FillAlpha
	case core.PassSilhouetteSelected:
		return v.Selected.FillColor, v.Selected.FillAlpha
	case core.PassEdgesXRayed:
		return v.XRay.EdgeColor, v.XRay.EdgeAlpha
	case core.PassEdgesHighlighted:
		return v.Highlight.EdgeColor, v.Highlight.EdgeAlpha
	case core.PassEdgesSelected:
		return v.Selected.EdgeColor, v.Selected.EdgeAlpha
	}
	return mgl32.Vec3{1, 1, 1}, 1
}

// packUniforms fills dst (grown as needed) with the uniform block for one draw.
func packUniforms(dst []byte, f Features, frame *FrameContext, d Drawable, pass core.RenderPass) []byte {
	size := int(uniformSize(f))
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	clear(dst)
	w := uniformWriter{buf: dst}
	v := frame.View
	origin := d.Origin()

	w.mat4(0, v.RTCViewMatrix(origin))
	w.mat4(64, v.ProjMatrix)
	w.mat4(128, d.PositionsDecodeMatrix())

	c, a := emphasisColor(v, pass)
	w.vec4(192, c[0], c[1], c[2], a)

	var ambient mgl32.Vec3
	for _, l := range v.Lights() {
		if l.Type == core.LightAmbient {
			ambient = ambient.Add(l.Color.Mul(l.Intensity))
		}
	}
	w.vec4(208, ambient[0], ambient[1], ambient[2], 1)

	pts := v.PointsMaterial()
	w.vec4(224, pts.PointSize, frame.PickZNear, frame.PickZFar, pts.MinIntensity)
	w.vec4(240, pts.MaxIntensity, float32(d.LayerNumber()), 0, 0)
	w.u32(256, uint32(pass))

	// The block is sized for the compiled features; extra lights or planes
	// enabled since the last compile are not uploaded.
	off := uniformHeaderSize
	if n := f.numLights(); n > 0 {
		for _, l := range v.Lights() {
			if l.Type == core.LightAmbient {
				continue
			}
			if n == 0 {
				break
			}
			n--
			dir, pos := lightToViewSpace(v, l)
			w.vec4(off, l.Color[0], l.Color[1], l.Color[2], l.Intensity)
			w.vec4(off+16, dir[0], dir[1], dir[2], 0)
			w.vec4(off+32, pos[0], pos[1], pos[2], 1)
			off += uniformLightSize
		}
	}

	if f.NumPlanes > 0 {
		planes := core.ActivePlanes(v.SectionPlanes())
		for _, p := range planes[:min(len(planes), f.NumPlanes)] {
			rel := p.Pos.Sub(origin)
			w.vec4(off, float32(rel[0]), float32(rel[1]), float32(rel[2]), 1)
			w.vec4(off+16, p.Dir[0], p.Dir[1], p.Dir[2], 0)
			off += uniformPlaneSize
		}
	}
	return dst
}

// lightToViewSpace converts a light's direction and position into view space.
func lightToViewSpace(v *core.View, l core.Light) (mgl32.Vec3, mgl32.Vec3) {
	if l.Space == core.SpaceView {
		return l.Dir, mgl32.Vec3{float32(l.Pos[0]), float32(l.Pos[1]), float32(l.Pos[2])}
	}
	d := v.ViewMatrix.Mul4x1(mgl64.Vec4{float64(l.Dir[0]), float64(l.Dir[1]), float64(l.Dir[2]), 0})
	p := v.ViewMatrix.Mul4x1(l.Pos.Vec4(1))
	return mgl32.Vec3{float32(d[0]), float32(d[1]), float32(d[2])},
		mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
}
