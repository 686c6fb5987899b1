// Package bvh builds a bounding volume hierarchy over world boxes for
// hierarchical frustum queries.
package bvh

import (
	"sort"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is one BVH node. Leaves have Left == Right == -1 and reference
// Count items starting at First in Tree.Items.
type Node struct {
	Bounds [2]mgl32.Vec3
	Left   int32
	Right  int32
	First  int32
	Count  int32
}

func (n *Node) leaf() bool { return n.Left < 0 }

// Tree is a flat BVH. Items holds the caller's box indices in leaf order,
// Bounds the matching boxes.
type Tree struct {
	Nodes  []Node
	Items  []int
	Bounds [][2]mgl32.Vec3
}

type item struct {
	bounds   [2]mgl32.Vec3
	centroid mgl32.Vec3
	index    int
}

// MaxLeafItems bounds the number of boxes in a leaf.
const MaxLeafItems = 4

// Build splits at the median centroid along the longest axis until leaves
// hold at most MaxLeafItems boxes. Empty boxes are skipped.
func Build(boxes []core.AABB) *Tree {
	items := make([]item, 0, len(boxes))
	for i, b := range boxes {
		if b.IsEmpty() {
			continue
		}
		f := b.Float32()
		items = append(items, item{bounds: f, centroid: f[0].Add(f[1]).Mul(0.5), index: i})
	}
	t := &Tree{}
	if len(items) > 0 {
		t.build(items)
	}
	return t
}

func (t *Tree) build(items []item) int32 {
	idx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1})

	bounds := items[0].bounds
	for _, it := range items[1:] {
		for a := 0; a < 3; a++ {
			bounds[0][a] = min(bounds[0][a], it.bounds[0][a])
			bounds[1][a] = max(bounds[1][a], it.bounds[1][a])
		}
	}
	t.Nodes[idx].Bounds = bounds

	if len(items) <= MaxLeafItems {
		t.Nodes[idx].First = int32(len(t.Items))
		t.Nodes[idx].Count = int32(len(items))
		for _, it := range items {
			t.Items = append(t.Items, it.index)
			t.Bounds = append(t.Bounds, it.bounds)
		}
		return idx
	}

	extent := bounds[1].Sub(bounds[0])
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].centroid[axis] < items[j].centroid[axis]
	})

	mid := len(items) / 2
	left := t.build(items[:mid])
	right := t.build(items[mid:])
	t.Nodes[idx].Left = left
	t.Nodes[idx].Right = right
	return idx
}

// Containment of a box in a frustum.
type Containment uint8

const (
	Outside Containment = iota
	Intersects
	Inside
)

// Classify tests a box against frustum planes whose normals point inward.
func Classify(b [2]mgl32.Vec3, planes [6]mgl32.Vec4) Containment {
	result := Inside
	for _, p := range planes {
		var far, near mgl32.Vec3
		for a := 0; a < 3; a++ {
			if p[a] > 0 {
				far[a], near[a] = b[1][a], b[0][a]
			} else {
				far[a], near[a] = b[0][a], b[1][a]
			}
		}
		if p.Dot(far.Vec4(1)) < 0 {
			return Outside
		}
		if p.Dot(near.Vec4(1)) < 0 {
			result = Intersects
		}
	}
	return result
}

// Frustum reports, for every box in the tree, whether it is at least
// partially inside the frustum. Subtrees fully inside or outside are
// reported without testing their boxes.
func (t *Tree) Frustum(planes [6]mgl32.Vec4, fn func(index int, inside bool)) {
	if len(t.Nodes) > 0 {
		t.visit(0, planes, fn)
	}
}

func (t *Tree) visit(idx int32, planes [6]mgl32.Vec4, fn func(int, bool)) {
	n := &t.Nodes[idx]
	switch Classify(n.Bounds, planes) {
	case Outside:
		t.report(idx, false, fn)
		return
	case Inside:
		t.report(idx, true, fn)
		return
	}
	if !n.leaf() {
		t.visit(n.Left, planes, fn)
		t.visit(n.Right, planes, fn)
		return
	}
	for k := n.First; k < n.First+n.Count; k++ {
		fn(t.Items[k], core.AABBInFrustum(t.Bounds[k], planes))
	}
}

func (t *Tree) report(idx int32, inside bool, fn func(int, bool)) {
	n := &t.Nodes[idx]
	if n.leaf() {
		for _, i := range t.Items[n.First : n.First+n.Count] {
			fn(i, inside)
		}
		return
	}
	t.report(n.Left, inside, fn)
	t.report(n.Right, inside, fn)
}
