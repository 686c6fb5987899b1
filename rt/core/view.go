package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// ViewChange tells listeners which aspect of a view changed.
type ViewChange uint8

const (
	// ChangeFeatures covers lights and section planes: anything that alters
	// generated shader text.
	ChangeFeatures ViewChange = iota
	// ChangeEmphasis covers glow-through settings, which alter packed flags.
	ChangeEmphasis
)

// View is one independently configured camera/lighting/clipping setup over
// the shared scene. Index selects the view's slice of every per-view buffer
// and counter; it is assigned by the viewer and never reused.
type View struct {
	ID    string
	Index int

	ViewMatrix mgl64.Mat4
	ProjMatrix mgl32.Mat4
	Eye        mgl64.Vec3

	XRay      EmphasisMaterial
	Highlight EmphasisMaterial
	Selected  EmphasisMaterial

	points    PointsMaterial
	lights    []Light
	planes    []*SectionPlane
	listeners []func(*View, ViewChange)
}

func NewView(id string, index int) *View {
	return &View{
		ID:         id,
		Index:      index,
		ViewMatrix: mgl64.LookAtV(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}),
		ProjMatrix: mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 10000),
		Eye:        mgl64.Vec3{0, 0, 10},
		XRay:       DefaultXRayMaterial(),
		Highlight:  DefaultHighlightMaterial(),
		Selected:   DefaultSelectedMaterial(),
		points:     DefaultPointsMaterial(),
		lights: []Light{
			AmbientLight(mgl32.Vec3{1, 1, 1}, 0.7),
			DirLight(mgl32.Vec3{-0.5, -0.5, -1}, mgl32.Vec3{1, 1, 1}, 1.0, SpaceView),
		},
	}
}

// OnChange registers a listener called after lights, planes or emphasis change.
func (v *View) OnChange(fn func(*View, ViewChange)) {
	v.listeners = append(v.listeners, fn)
}

func (v *View) notify(c ViewChange) {
	for _, fn := range v.listeners {
		fn(v, c)
	}
}

// SetCamera updates view/projection matrices and the eye position.
func (v *View) SetCamera(view mgl64.Mat4, proj mgl32.Mat4, eye mgl64.Vec3) {
	v.ViewMatrix = view
	v.ProjMatrix = proj
	v.Eye = eye
}

// RTCViewMatrix returns the view matrix for geometry stored relative to
// origin. The translation is folded in at double precision before the
// conversion to float32.
func (v *View) RTCViewMatrix(origin mgl64.Vec3) mgl32.Mat4 {
	m := v.ViewMatrix.Mul4(mgl64.Translate3D(origin[0], origin[1], origin[2]))
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

// FrustumPlanes returns the view frustum planes in world space.
func (v *View) FrustumPlanes() [6]mgl32.Vec4 {
	var view32 mgl32.Mat4
	for i := range v.ViewMatrix {
		view32[i] = float32(v.ViewMatrix[i])
	}
	return ExtractFrustum(v.ProjMatrix.Mul4(view32))
}

func (v *View) Lights() []Light { return v.lights }

func (v *View) SetLights(lights []Light) {
	v.lights = append(v.lights[:0:0], lights...)
	v.notify(ChangeFeatures)
}

func (v *View) LightsHash() string { return LightsHash(v.lights) }

func (v *View) SectionPlanes() []*SectionPlane { return v.planes }

// AddSectionPlane appends an active plane.
func (v *View) AddSectionPlane(p *SectionPlane) {
	p.active = true
	v.planes = append(v.planes, p)
	v.notify(ChangeFeatures)
}

// RemoveSectionPlane removes the plane with the given ID; unknown IDs are ignored.
func (v *View) RemoveSectionPlane(id string) {
	for i, p := range v.planes {
		if p.ID == id {
			v.planes = append(v.planes[:i], v.planes[i+1:]...)
			v.notify(ChangeFeatures)
			return
		}
	}
}

// SetSectionPlaneActive toggles a plane; only real changes notify.
func (v *View) SetSectionPlaneActive(id string, active bool) {
	for _, p := range v.planes {
		if p.ID == id && p.active != active {
			p.active = active
			v.notify(ChangeFeatures)
			return
		}
	}
}

func (v *View) SectionPlanesHash() string { return SectionPlanesHash(v.planes) }

// PointsMaterial returns the point-cloud settings.
func (v *View) PointsMaterial() PointsMaterial { return v.points }

// SetPointsMaterial replaces the point-cloud settings.
func (v *View) SetPointsMaterial(m PointsMaterial) {
	changed := m.Hash() != v.points.Hash()
	v.points = m
	if changed {
		v.notify(ChangeFeatures)
	}
}

// GlowThrough returns the emphasis settings consumed by the flags encoder.
func (v *View) GlowThrough() GlowThrough {
	return GlowThrough{Highlighted: v.Highlight.GlowThrough, Selected: v.Selected.GlowThrough}
}

// SetGlowThrough changes highlight/selected glow-through. Layers must
// re-encode their flags for this view afterwards.
func (v *View) SetGlowThrough(g GlowThrough) {
	if g == v.GlowThrough() {
		return
	}
	v.Highlight.GlowThrough = g.Highlighted
	v.Selected.GlowThrough = g.Selected
	v.notify(ChangeEmphasis)
}
