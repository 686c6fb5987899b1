package core

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/colornames"
)

// ColorFromRGBA converts an 8-bit color into linear float RGB.
func ColorFromRGBA(c color.RGBA) mgl32.Vec3 {
	return mgl32.Vec3{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

// NamedColor resolves a CSS color name. Unknown names report false.
func NamedColor(name string) (mgl32.Vec3, bool) {
	c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return mgl32.Vec3{}, false
	}
	return ColorFromRGBA(c), true
}

// EmphasisMaterial styles the silhouette and edges of xrayed, highlighted or
// selected meshes.
type EmphasisMaterial struct {
	Fill        bool
	FillColor   mgl32.Vec3
	FillAlpha   float32
	Edges       bool
	EdgeColor   mgl32.Vec3
	EdgeAlpha   float32
	GlowThrough bool
}

func DefaultXRayMaterial() EmphasisMaterial {
	return EmphasisMaterial{
		Fill:      true,
		FillColor: ColorFromRGBA(colornames.Lightgray),
		FillAlpha: 0.1,
		Edges:     true,
		EdgeColor: ColorFromRGBA(colornames.Darkgray),
		EdgeAlpha: 0.3,
	}
}

func DefaultHighlightMaterial() EmphasisMaterial {
	return EmphasisMaterial{
		Fill:        true,
		FillColor:   ColorFromRGBA(colornames.Gold),
		FillAlpha:   0.6,
		Edges:       true,
		EdgeColor:   ColorFromRGBA(colornames.Orange),
		EdgeAlpha:   1.0,
		GlowThrough: true,
	}
}

func DefaultSelectedMaterial() EmphasisMaterial {
	return EmphasisMaterial{
		Fill:        true,
		FillColor:   ColorFromRGBA(colornames.Limegreen),
		FillAlpha:   0.6,
		Edges:       true,
		EdgeColor:   ColorFromRGBA(colornames.Green),
		EdgeAlpha:   1.0,
		GlowThrough: true,
	}
}

// PointsMaterial holds point-cloud rendering settings.
type PointsMaterial struct {
	PointSize       float32
	FilterIntensity bool
	MinIntensity    float32
	MaxIntensity    float32
}

func DefaultPointsMaterial() PointsMaterial {
	return PointsMaterial{PointSize: 1, MinIntensity: 0, MaxIntensity: 1}
}

// Hash returns the part of the settings that changes generated shader text.
func (m PointsMaterial) Hash() string {
	if m.FilterIntensity {
		return "fi"
	}
	return "-"
}

// LightType selects the light model.
type LightType uint8

const (
	LightAmbient LightType = iota
	LightDirectional
	LightPoint
)

// LightSpace tells whether a light's direction/position is in world or view space.
type LightSpace uint8

const (
	SpaceWorld LightSpace = iota
	SpaceView
)

type Light struct {
	Type      LightType
	Space     LightSpace
	Color     mgl32.Vec3
	Intensity float32
	Dir       mgl32.Vec3 // directional lights
	Pos       mgl64.Vec3 // point lights
}

func AmbientLight(c mgl32.Vec3, intensity float32) Light {
	return Light{Type: LightAmbient, Color: c, Intensity: intensity}
}

func DirLight(dir mgl32.Vec3, c mgl32.Vec3, intensity float32, space LightSpace) Light {
	return Light{Type: LightDirectional, Space: space, Dir: dir.Normalize(), Color: c, Intensity: intensity}
}

func PointLight(pos mgl64.Vec3, c mgl32.Vec3, intensity float32, space LightSpace) Light {
	return Light{Type: LightPoint, Space: space, Pos: pos, Color: c, Intensity: intensity}
}

// LightsHash encodes the non-ambient light types in upload order. Ambient
// light and light spaces only change uniforms.
func LightsHash(lights []Light) string {
	var sb strings.Builder
	sb.WriteString("l")
	for _, l := range lights {
		switch l.Type {
		case LightDirectional:
			sb.WriteString("d")
		case LightPoint:
			sb.WriteString("p")
		}
	}
	return sb.String()
}

// SectionPlane discards fragments of clippable meshes on its positive side.
type SectionPlane struct {
	ID     string
	Pos    mgl64.Vec3
	Dir    mgl32.Vec3

	active bool
}

// Active reports whether the plane clips. Views change it through
// SetSectionPlaneActive.
func (p *SectionPlane) Active() bool { return p.active }

// ActivePlanes returns the planes that currently clip.
func ActivePlanes(planes []*SectionPlane) []*SectionPlane {
	out := make([]*SectionPlane, 0, len(planes))
	for _, p := range planes {
		if p.active {
			out = append(out, p)
		}
	}
	return out
}

// SectionPlanesHash encodes the number of active planes, which fixes the
// generated clipping loop.
func SectionPlanesHash(planes []*SectionPlane) string {
	n := 0
	for _, p := range planes {
		if p.active {
			n++
		}
	}
	return fmt.Sprintf("s%d", n)
}
