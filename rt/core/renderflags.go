package core

import "strings"

// RenderPass identifies one draw operation. A vertex is drawn by a pass only
// when the sub-field of its packed flags word owned by that pass holds the
// pass value.
type RenderPass uint32

const (
	PassNotRendered RenderPass = iota
	PassColorOpaque
	PassColorTransparent
	PassSilhouetteXRayed
	PassSilhouetteHighlighted
	PassSilhouetteSelected
	PassEdgesColorOpaque
	PassEdgesColorTransparent
	PassEdgesXRayed
	PassEdgesHighlighted
	PassEdgesSelected
	PassPick
)

func (p RenderPass) String() string {
	switch p {
	case PassNotRendered:
		return "not-rendered"
	case PassColorOpaque:
		return "color-opaque"
	case PassColorTransparent:
		return "color-transparent"
	case PassSilhouetteXRayed:
		return "silhouette-xrayed"
	case PassSilhouetteHighlighted:
		return "silhouette-highlighted"
	case PassSilhouetteSelected:
		return "silhouette-selected"
	case PassEdgesColorOpaque:
		return "edges-color-opaque"
	case PassEdgesColorTransparent:
		return "edges-color-transparent"
	case PassEdgesXRayed:
		return "edges-xrayed"
	case PassEdgesHighlighted:
		return "edges-highlighted"
	case PassEdgesSelected:
		return "edges-selected"
	case PassPick:
		return "pick"
	}
	return "unknown"
}

// FlagField is a fixed-width sub-field of the packed per-vertex flags word.
// The shift values are the single source of truth for both the CPU encoder
// and every generated shader discard test.
type FlagField uint32

const (
	FieldColor      FlagField = 0
	FieldSilhouette FlagField = 4
	FieldEdges      FlagField = 8
	FieldPick       FlagField = 12

	// FieldMask is the width of every pass sub-field.
	FieldMask uint32 = 0xF

	// ClippableBit is set when section planes apply to the vertex.
	ClippableBit uint32 = 1 << 16
)

// Shift returns the bit offset of the field.
func (f FlagField) Shift() uint32 { return uint32(f) }

// Field extracts a pass sub-field from a packed word.
func Field(flags uint32, f FlagField) RenderPass {
	return RenderPass((flags >> f.Shift()) & FieldMask)
}

// MeshState is the per-view boolean state of one mesh portion.
type MeshState uint16

const (
	StateVisible MeshState = 1 << iota
	StateCulled
	StateXRayed
	StateHighlighted
	StateSelected
	StatePickable
	StateClippable
	StateTransparent
	StateEdges
)

func (s MeshState) Has(bit MeshState) bool { return s&bit != 0 }

var stateNames = [...]string{"visible", "culled", "xrayed", "highlighted", "selected", "pickable", "clippable", "transparent", "edges"}

func (s MeshState) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for i, name := range stateNames {
		if s.Has(1 << i) {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// With returns s with bit set to on.
func (s MeshState) With(bit MeshState, on bool) MeshState {
	if on {
		return s | bit
	}
	return s &^ bit
}

// GlowThrough tells the encoder whether highlighted or selected meshes keep
// their color pass so the silhouette is drawn on top of the shaded mesh.
type GlowThrough struct {
	Highlighted bool
	Selected    bool
}

// EncodeFlags packs a mesh state into the per-vertex flags word.
//
// Precedence:
//   - color: hidden, culled or xrayed meshes are not rendered, nor are
//     highlighted/selected meshes without glow-through; otherwise transparent
//     or opaque.
//   - silhouette: selected > highlighted > xrayed when visible and not culled.
//   - edges: selected > highlighted > xrayed > plain edges when visible and not culled.
//   - pick: only visible, unculled, pickable meshes.
//   - clippable: one independent bit.
func EncodeFlags(s MeshState, glow GlowThrough) uint32 {
	visible := s.Has(StateVisible) && !s.Has(StateCulled)

	color := PassNotRendered
	switch {
	case !visible, s.Has(StateXRayed):
	case s.Has(StateHighlighted) && !glow.Highlighted:
	case s.Has(StateSelected) && !glow.Selected:
	case s.Has(StateTransparent):
		color = PassColorTransparent
	default:
		color = PassColorOpaque
	}

	silhouette := PassNotRendered
	edges := PassNotRendered
	if visible {
		switch {
		case s.Has(StateSelected):
			silhouette, edges = PassSilhouetteSelected, PassEdgesSelected
		case s.Has(StateHighlighted):
			silhouette, edges = PassSilhouetteHighlighted, PassEdgesHighlighted
		case s.Has(StateXRayed):
			silhouette, edges = PassSilhouetteXRayed, PassEdgesXRayed
		case s.Has(StateEdges):
			if s.Has(StateTransparent) {
				edges = PassEdgesColorTransparent
			} else {
				edges = PassEdgesColorOpaque
			}
		}
	}

	pick := PassNotRendered
	if visible && s.Has(StatePickable) {
		pick = PassPick
	}

	flags := uint32(color)<<FieldColor.Shift() |
		uint32(silhouette)<<FieldSilhouette.Shift() |
		uint32(edges)<<FieldEdges.Shift() |
		uint32(pick)<<FieldPick.Shift()
	if s.Has(StateClippable) {
		flags |= ClippableBit
	}
	return flags
}
