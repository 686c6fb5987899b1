package bvh

import (
	"testing"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cube planes bound [-10, 10] on every axis.
var cube = [6]mgl32.Vec4{
	{1, 0, 0, 10}, {-1, 0, 0, 10},
	{0, 1, 0, 10}, {0, -1, 0, 10},
	{0, 0, 1, 10}, {0, 0, -1, 10},
}

func box(x float64) core.AABB {
	b := core.EmptyAABB()
	b.ExpandPoint(x, -1, -1)
	b.ExpandPoint(x+2, 1, 1)
	return b
}

func TestTwoObjectsSplit(t *testing.T) {
	tree := Build([]core.AABB{box(-100), box(100)})
	require.Len(t, tree.Nodes, 1, "two boxes fit one leaf")

	boxes := make([]core.AABB, 0, 10)
	for i := 0; i < 5; i++ {
		boxes = append(boxes, box(-100-float64(i)), box(100+float64(i)))
	}
	tree = Build(boxes)

	root := tree.Nodes[0]
	assert.LessOrEqual(t, root.Bounds[0].X(), float32(-104))
	assert.GreaterOrEqual(t, root.Bounds[1].X(), float32(106))
	require.GreaterOrEqual(t, root.Left, int32(0))
	require.GreaterOrEqual(t, root.Right, int32(0))

	left, right := tree.Nodes[root.Left], tree.Nodes[root.Right]
	assert.Less(t, left.Bounds[1].X(), float32(0), "left child holds the negative side")
	assert.Greater(t, right.Bounds[0].X(), float32(0), "right child holds the positive side")
	assert.Len(t, tree.Items, len(boxes))
}

func TestBuildSkipsEmptyBoxes(t *testing.T) {
	tree := Build([]core.AABB{core.EmptyAABB(), box(0), core.EmptyAABB()})
	assert.Equal(t, []int{1}, tree.Items)

	tree = Build(nil)
	assert.Empty(t, tree.Nodes)
	tree.Frustum(cube, func(int, bool) { t.Fatal("no items") })
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Inside, Classify([2]mgl32.Vec3{{-1, -1, -1}, {1, 1, 1}}, cube))
	assert.Equal(t, Intersects, Classify([2]mgl32.Vec3{{9, -1, -1}, {11, 1, 1}}, cube))
	assert.Equal(t, Outside, Classify([2]mgl32.Vec3{{11, -1, -1}, {12, 1, 1}}, cube))
}

func TestFrustumMatchesBruteForce(t *testing.T) {
	var boxes []core.AABB
	for x := -40; x <= 40; x += 3 {
		boxes = append(boxes, box(float64(x)))
	}
	tree := Build(boxes)

	seen := make(map[int]bool)
	tree.Frustum(cube, func(i int, inside bool) {
		_, dup := seen[i]
		require.False(t, dup, "box %d reported twice", i)
		seen[i] = inside
	})
	require.Len(t, seen, len(boxes))
	for i, b := range boxes {
		assert.Equal(t, core.AABBInFrustum(b.Float32(), cube), seen[i], "box %d", i)
	}
}
