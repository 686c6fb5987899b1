package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeFlagsPrecedence(t *testing.T) {
	visible := StateVisible
	noGlow := GlowThrough{}
	glow := GlowThrough{Highlighted: true, Selected: true}

	tests := []struct {
		name       string
		state      MeshState
		glow       GlowThrough
		color      RenderPass
		silhouette RenderPass
		edges      RenderPass
		pick       RenderPass
	}{
		{"hidden", 0, glow, PassNotRendered, PassNotRendered, PassNotRendered, PassNotRendered},
		{"opaque", visible, glow, PassColorOpaque, PassNotRendered, PassNotRendered, PassNotRendered},
		{"transparent", visible | StateTransparent, glow, PassColorTransparent, PassNotRendered, PassNotRendered, PassNotRendered},
		{"culled", visible | StateCulled | StatePickable | StateSelected, glow, PassNotRendered, PassNotRendered, PassNotRendered, PassNotRendered},
		{"xrayed", visible | StateXRayed, glow, PassNotRendered, PassSilhouetteXRayed, PassEdgesXRayed, PassNotRendered},
		{"highlighted glow", visible | StateHighlighted, glow, PassColorOpaque, PassSilhouetteHighlighted, PassEdgesHighlighted, PassNotRendered},
		{"highlighted no glow", visible | StateHighlighted, noGlow, PassNotRendered, PassSilhouetteHighlighted, PassEdgesHighlighted, PassNotRendered},
		{"selected beats highlighted", visible | StateHighlighted | StateSelected | StateXRayed, glow, PassNotRendered, PassSilhouetteSelected, PassEdgesSelected, PassNotRendered},
		{"selected no glow", visible | StateSelected, noGlow, PassNotRendered, PassSilhouetteSelected, PassEdgesSelected, PassNotRendered},
		{"edges opaque", visible | StateEdges, glow, PassColorOpaque, PassNotRendered, PassEdgesColorOpaque, PassNotRendered},
		{"edges transparent", visible | StateEdges | StateTransparent, glow, PassColorTransparent, PassNotRendered, PassEdgesColorTransparent, PassNotRendered},
		{"pickable", visible | StatePickable, glow, PassColorOpaque, PassNotRendered, PassNotRendered, PassPick},
		{"pickable hidden", StatePickable, glow, PassNotRendered, PassNotRendered, PassNotRendered, PassNotRendered},
	}

	for _, tc := range tests {
		f := EncodeFlags(tc.state, tc.glow)
		assert.Equal(t, tc.color, Field(f, FieldColor), "%s: color", tc.name)
		assert.Equal(t, tc.silhouette, Field(f, FieldSilhouette), "%s: silhouette", tc.name)
		assert.Equal(t, tc.edges, Field(f, FieldEdges), "%s: edges", tc.name)
		assert.Equal(t, tc.pick, Field(f, FieldPick), "%s: pick", tc.name)
	}
}

func TestEncodeFlagsClippableIsIndependent(t *testing.T) {
	for _, s := range []MeshState{0, StateVisible, StateVisible | StateCulled, StateXRayed} {
		without := EncodeFlags(s, GlowThrough{})
		with := EncodeFlags(s|StateClippable, GlowThrough{})
		assert.Equal(t, uint32(0), without&ClippableBit)
		assert.Equal(t, ClippableBit, with&ClippableBit)
		assert.Equal(t, without, with&^ClippableBit, "clippable must not change the pass fields")
	}
}

func TestPassValuesFitFieldWidth(t *testing.T) {
	assert.LessOrEqual(t, uint32(PassPick), FieldMask)
	fields := []FlagField{FieldColor, FieldSilhouette, FieldEdges, FieldPick}
	for i := 1; i < len(fields); i++ {
		assert.Equal(t, fields[i-1].Shift()+4, fields[i].Shift(), "fields must not overlap")
	}
	assert.Greater(t, ClippableBit, FieldMask<<FieldPick.Shift())
}
