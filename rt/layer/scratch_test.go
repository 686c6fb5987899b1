package layer

import (
	"testing"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/stretchr/testify/assert"
)

func TestScratchArenaReusesByLength(t *testing.T) {
	a := NewScratchArena()
	a.Acquire()
	a.Acquire()

	b1 := a.Bytes(16)
	b2 := a.Bytes(16)
	assert.Len(t, b1, 16)
	assert.Same(t, &b1[0], &b2[0])

	a.Bytes(8)
	assert.Equal(t, 2, a.Cached())

	a.Release()
	assert.Equal(t, 2, a.Cached(), "still referenced")
	a.Release()
	assert.Zero(t, a.Cached())
	assert.Zero(t, a.Refs())

	a.Release()
	assert.Zero(t, a.Refs(), "extra release is ignored")
}

func TestSetStateMovesCountersByDifference(t *testing.T) {
	f := newFixture(t, 1000, 1)
	l := f.layer
	v := f.views[0]
	m := l.AppendMesh(mesh(3, 3))
	assert.NoError(t, l.Build())

	f.dev.ResetLog()
	l.SetState(v, m, 0)
	assert.Empty(t, f.dev.Writes, "unchanged state writes nothing")

	all := core.StateVisible | core.StateHighlighted | core.StateSelected | core.StateEdges | core.StatePickable
	l.SetState(v, m, all)
	c := l.Counts(0)
	assert.Equal(t, 1, c.NumVisible)
	assert.Equal(t, 1, c.NumEdges)
	assert.Equal(t, 1, f.model.At(0).NumSelected)
	assert.Len(t, f.dev.Writes, 1)

	l.SetState(v, m, all&^core.StateSelected)
	assert.Equal(t, 0, c.NumSelected)
	assert.Equal(t, 1, c.NumHighlighted)
	assert.Equal(t, 0, f.model.At(0).NumSelected)
	assert.Equal(t, all&^core.StateSelected, l.MeshState(v, m))
}
