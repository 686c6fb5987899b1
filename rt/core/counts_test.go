package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewCountsEnsureKeepsExisting(t *testing.T) {
	var vc ViewCounts
	vc.Ensure(1, 3)
	vc.At(0).Apply(StateVisible, true)

	vc.Ensure(3, 3)
	require.Equal(t, 3, vc.Len())
	assert.Equal(t, 1, vc.At(0).NumVisible)
	assert.Equal(t, 3, vc.At(2).NumMeshes)
	assert.Equal(t, 0, vc.At(2).NumVisible)
	assert.Nil(t, vc.At(3))
	assert.Nil(t, vc.At(-1))
}

func TestMeshCountsAddState(t *testing.T) {
	var c MeshCounts
	c.AddState(StateVisible|StatePickable|StateClippable, +1)
	c.AddState(StateVisible|StateTransparent, +1)
	assert.Equal(t, 2, c.NumVisible)
	assert.Equal(t, 1, c.NumPickable)
	assert.Equal(t, 1, c.NumClippable)
	assert.Equal(t, 1, c.NumTransparent)

	c.AddState(StateVisible|StateTransparent, -1)
	assert.Equal(t, 1, c.NumVisible)
	assert.Equal(t, 0, c.NumTransparent)
}

func TestMeshCountsIdle(t *testing.T) {
	c := MeshCounts{NumMeshes: 2}
	assert.True(t, c.Idle(), "nothing visible")

	c.Apply(StateVisible, true)
	assert.False(t, c.Idle())

	c.Apply(StateCulled, true)
	c.Apply(StateCulled, true)
	assert.True(t, c.AllCulled())
	assert.True(t, c.Idle())
}
