package core

// MeshCounts aggregates per-view mesh state so a layer can decide in O(1)
// whether a render pass has anything to draw.
type MeshCounts struct {
	NumMeshes      int
	NumVisible     int
	NumTransparent int
	NumEdges       int
	NumXRayed      int
	NumHighlighted int
	NumSelected    int
	NumClippable   int
	NumPickable    int
	NumCulled      int
}

// counter returns the field tracking the given state bit.
func (c *MeshCounts) counter(bit MeshState) *int {
	switch bit {
	case StateVisible:
		return &c.NumVisible
	case StateCulled:
		return &c.NumCulled
	case StateXRayed:
		return &c.NumXRayed
	case StateHighlighted:
		return &c.NumHighlighted
	case StateSelected:
		return &c.NumSelected
	case StatePickable:
		return &c.NumPickable
	case StateClippable:
		return &c.NumClippable
	case StateTransparent:
		return &c.NumTransparent
	case StateEdges:
		return &c.NumEdges
	}
	return nil
}

// Apply adds +1 or -1 to the counter for bit.
func (c *MeshCounts) Apply(bit MeshState, on bool) {
	p := c.counter(bit)
	if p == nil {
		return
	}
	if on {
		*p++
	} else {
		*p--
	}
}

// Get returns the counter for bit.
func (c *MeshCounts) Get(bit MeshState) int {
	if p := c.counter(bit); p != nil {
		return *p
	}
	return 0
}

// AddState adds every bit of s to the counters as one mesh.
func (c *MeshCounts) AddState(s MeshState, sign int) {
	for bit := StateVisible; bit <= StateEdges; bit <<= 1 {
		if s.Has(bit) {
			*c.counter(bit) += sign
		}
	}
}

// AllCulled reports whether every mesh is culled.
func (c *MeshCounts) AllCulled() bool {
	return c.NumMeshes > 0 && c.NumCulled == c.NumMeshes
}

// Idle reports whether no pass can draw anything: empty, all culled or none visible.
func (c *MeshCounts) Idle() bool {
	return c.NumMeshes == 0 || c.AllCulled() || c.NumVisible == 0
}

// ViewCounts holds one MeshCounts per view, keyed by the stable view index.
type ViewCounts struct {
	byView []MeshCounts
}

// Ensure grows the table so index n-1 is addressable. New slots start with
// numMeshes meshes and every other counter at zero.
func (v *ViewCounts) Ensure(n int, numMeshes int) {
	for len(v.byView) < n {
		v.byView = append(v.byView, MeshCounts{NumMeshes: numMeshes})
	}
}

func (v *ViewCounts) Len() int { return len(v.byView) }

// At returns the counters for the view index, or nil when out of range.
func (v *ViewCounts) At(viewIndex int) *MeshCounts {
	if viewIndex < 0 || viewIndex >= len(v.byView) {
		return nil
	}
	return &v.byView[viewIndex]
}

// AddMeshes adjusts NumMeshes on every view.
func (v *ViewCounts) AddMeshes(delta int) {
	for i := range v.byView {
		v.byView[i].NumMeshes += delta
	}
}

// Reset zeroes the counters of one view, keeping its mesh count.
func (v *ViewCounts) Reset(viewIndex int) {
	if c := v.At(viewIndex); c != nil {
		*c = MeshCounts{NumMeshes: c.NumMeshes}
	}
}
