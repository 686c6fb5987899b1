package shaders

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceEmitsInSectionOrder(t *testing.T) {
	s := NewSource()
	s.Add(SectionMain, "main", "M")
	s.Add(SectionHeader, "header", "H")
	s.Add(SectionClipping, "clip", "C")
	s.Add(SectionCommon, "common", "X")

	assert.Equal(t, []string{"header", "common", "clip", "main"}, s.Names())
	out := s.String()
	assert.Less(t, strings.Index(out, "H"), strings.Index(out, "X"))
	assert.Less(t, strings.Index(out, "C"), strings.Index(out, "M"))
}

func TestSourceRejectsDuplicateNames(t *testing.T) {
	s := NewSource().Add(SectionCommon, "a", "x")
	assert.Panics(t, func() { s.Add(SectionMain, "a", "y") })
}

func TestComposeClippingGatedByPlaneCount(t *testing.T) {
	v := core.NewView("v", 0)
	f := FeaturesFor(core.PrimitiveTriangles, KindColor, v)
	src := Compose(f)
	assert.False(t, src.Has("clipping.planes"))
	assert.NotContains(t, src.String(), "planes:")

	v.AddSectionPlane(&core.SectionPlane{ID: "p"})
	v.AddSectionPlane(&core.SectionPlane{ID: "q"})
	f = FeaturesFor(core.PrimitiveTriangles, KindColor, v)
	src = Compose(f)
	require.True(t, src.Has("clipping.planes"))
	assert.Contains(t, src.String(), "planes: array<Plane, 2>")
	assert.Contains(t, src.String(), "discard;")
}

func TestComposeUsesSharedFlagShift(t *testing.T) {
	v := core.NewView("v", 0)
	cases := map[Kind]core.FlagField{
		KindColor:      core.FieldColor,
		KindSilhouette: core.FieldSilhouette,
		KindEdges:      core.FieldEdges,
		KindPickMesh:   core.FieldPick,
		KindPickDepth:  core.FieldPick,
		KindSnap:       core.FieldPick,
	}
	for k, field := range cases {
		src := Compose(FeaturesFor(core.PrimitiveTriangles, k, v)).String()
		assert.Contains(t, src, fmt.Sprintf("const FLAG_SHIFT: u32 = %du;", field.Shift()), "kind %s", k)
	}
}

func TestComposeLightsOnlyForTriangleColor(t *testing.T) {
	v := core.NewView("v", 0)
	tri := Compose(FeaturesFor(core.PrimitiveTriangles, KindColor, v)).String()
	assert.Contains(t, tri, "lights: array<Light, 1>")
	assert.Contains(t, tri, "dpdx")

	lines := Compose(FeaturesFor(core.PrimitiveLines, KindColor, v)).String()
	assert.NotContains(t, lines, "lights:")

	sil := Compose(FeaturesFor(core.PrimitiveTriangles, KindSilhouette, v)).String()
	assert.NotContains(t, sil, "lights:")
}

func TestComposePointsIntensityFilter(t *testing.T) {
	v := core.NewView("v", 0)
	pm := core.DefaultPointsMaterial()
	pm.FilterIntensity = true
	v.SetPointsMaterial(pm)
	src := Compose(FeaturesFor(core.PrimitivePoints, KindColor, v)).String()
	assert.Contains(t, src, "in.color.a < u.params.w")
}

func TestUniformSizeMatchesLayout(t *testing.T) {
	f := Features{Lights: []core.LightType{core.LightDirectional, core.LightPoint}, NumPlanes: 3}
	assert.Equal(t, uint64(272+2*48+3*32), uniformSize(f))
	assert.Zero(t, uniformSize(f)%16, "uniform blocks are 16-byte aligned")
}
