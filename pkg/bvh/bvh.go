package bvh

import (
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

// leafThreshold is the primitive count at or below which build always
// makes a node a leaf. A node with more primitives also becomes a leaf
// when its midpoint split is rejected by bestSplit or leaves one side
// empty, so such a leaf can hold more than leafThreshold primitives.
const leafThreshold = 4

// Node is a binary BVH node: either an internal branch with two children,
// or a leaf holding its primitives (up to leafThreshold, except where a
// split was rejected; see leafThreshold).
type Node struct {
	Bounds      core.AABB
	Left, Right *Node
	Primitives  []Primitive
}

func (n *Node) isLeaf() bool { return n.Primitives != nil }

// BVH is a surface-area-weighted midpoint-split bounding-volume hierarchy
// over triangle/quad primitives.
type BVH struct {
	Root   *Node
	Center core.Vec3 // finite scene center, used by infinite sky/sun sampling
	Radius float64   // finite scene radius, used by infinite sky/sun sampling
}

// Build constructs a BVH from the given primitives. Construction is
// O(N log N): each level partitions by a single surface-area-weighted
// midpoint split on the longest axis rather than a full SAH sweep.
func Build(primitives []Primitive) *BVH {
	if len(primitives) == 0 {
		return &BVH{}
	}

	owned := make([]Primitive, len(primitives))
	copy(owned, primitives)

	root := build(owned)

	center := root.Bounds.Center()
	radius := root.Bounds.Max.Subtract(center).Length()

	return &BVH{Root: root, Center: center, Radius: radius}
}

func build(prims []Primitive) *Node {
	bounds := prims[0].BoundingBox()
	for _, p := range prims[1:] {
		bounds = bounds.Union(p.BoundingBox())
	}

	if len(prims) <= leafThreshold {
		return &Node{Bounds: bounds, Primitives: prims}
	}

	axis, splitPos, ok := bestSplit(prims, bounds)
	if !ok {
		return &Node{Bounds: bounds, Primitives: prims}
	}

	left, right := partition(prims, axis, splitPos)
	if len(left) == 0 || len(right) == 0 {
		return &Node{Bounds: bounds, Primitives: prims}
	}

	return &Node{
		Bounds: bounds,
		Left:   build(left),
		Right:  build(right),
	}
}

// bestSplit picks the longest axis and a midpoint split position, rejecting
// the split (falling back to a leaf) when the axis has no extent or the
// split's combined child surface area wouldn't beat a leaf's linear-scan
// cost.
func bestSplit(prims []Primitive, bounds core.AABB) (axis int, pos float64, ok bool) {
	axis = bounds.LongestAxis()
	lo, hi := bounds.Axis(axis)
	if hi <= lo {
		return 0, 0, false
	}
	pos = (lo + hi) * 0.5

	parentCost := bounds.SurfaceArea() * float64(len(prims))
	left, right := partition(prims, axis, pos)
	if len(left) == 0 || len(right) == 0 {
		return axis, pos, false
	}
	childCost := boundsOf(left).SurfaceArea()*float64(len(left)) + boundsOf(right).SurfaceArea()*float64(len(right))
	if childCost >= parentCost {
		return axis, pos, false
	}
	return axis, pos, true
}

func boundsOf(prims []Primitive) core.AABB {
	b := prims[0].BoundingBox()
	for _, p := range prims[1:] {
		b = b.Union(p.BoundingBox())
	}
	return b
}

func partition(prims []Primitive, axis int, pos float64) (left, right []Primitive) {
	for _, p := range prims {
		center := p.BoundingBox().Center()
		var v float64
		switch axis {
		case 0:
			v = center.X
		case 1:
			v = center.Y
		default:
			v = center.Z
		}
		if v < pos {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	return
}

// Hit returns the closest intersection with any primitive in the BVH
// within [tMin, tMax], ordering child traversal by entry time and pruning
// a subtree once its near plane is farther than the current best hit.
func (b *BVH) Hit(ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool) {
	if b.Root == nil {
		return nil, false
	}
	return hitNode(b.Root, ray, tMin, tMax)
}

func hitNode(n *Node, ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool) {
	if _, ok := n.Bounds.Hit(ray, tMin, tMax); !ok {
		return nil, false
	}

	if n.isLeaf() {
		var best *material.SurfaceInteraction
		closest := tMax
		found := false
		for _, prim := range n.Primitives {
			if hit, ok := prim.Hit(ray, tMin, closest); ok {
				best, closest, found = hit, hit.T, true
			}
		}
		return best, found
	}

	leftEntry, leftHit := n.Left.Bounds.Hit(ray, tMin, tMax)
	rightEntry, rightHit := n.Right.Bounds.Hit(ray, tMin, tMax)

	first, second := n.Left, n.Right
	firstHit, secondHit := leftHit, rightHit
	if rightHit && (!leftHit || rightEntry < leftEntry) {
		first, second = n.Right, n.Left
		firstHit, secondHit = rightHit, leftHit
	}

	var best *material.SurfaceInteraction
	closest := tMax
	found := false

	if firstHit {
		if hit, ok := hitNode(first, ray, tMin, closest); ok {
			best, closest, found = hit, hit.T, true
		}
	}
	if secondHit {
		if hit, ok := hitNode(second, ray, tMin, closest); ok {
			best, closest, found = hit, hit.T, true
		}
	}
	return best, found
}

// Stats describes the shape of the tree, useful for logging at scene load.
type Stats struct {
	TotalNodes, LeafNodes, MaxDepth, TotalPrimitives int
	AvgDepth                                         float64
}

// Stats walks the tree and summarizes it.
func (b *BVH) Stats() Stats {
	if b.Root == nil {
		return Stats{}
	}
	var s Stats
	collectStats(b.Root, 0, &s)
	if s.LeafNodes > 0 {
		s.AvgDepth /= float64(s.LeafNodes)
	}
	return s
}

func collectStats(n *Node, depth int, s *Stats) {
	s.TotalNodes++
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
	if n.isLeaf() {
		s.LeafNodes++
		s.TotalPrimitives += len(n.Primitives)
		s.AvgDepth += float64(depth)
		return
	}
	if n.Left != nil {
		collectStats(n.Left, depth+1, s)
	}
	if n.Right != nil {
		collectStats(n.Right, depth+1, s)
	}
}
