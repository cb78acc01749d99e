// Package voxel implements the sparse 8-way voxel octree: a packed array
// variant for the common case, and a per-leaf node variant as a fallback
// when the packed variant's internal id space is exhausted.
package voxel

import (
	"errors"
	"fmt"
)

// AnyType is the sentinel leaf value meaning "interior, fully occluded by
// solid neighbors on every side; never traversed by a ray". It is distinct
// from every real palette id.
const AnyType uint32 = 1<<32 - 1

// ErrOctreeTooBig is returned by Set when the packed variant's internal
// node id space is exhausted. The caller (the scene loader) must fall back
// to a fresh node-variant Octree built from the same voxel stream.
var ErrOctreeTooBig = errors.New("voxel: packed octree exceeded its node id space")

// Octree is implemented by both storage variants.
type Octree interface {
	Set(typ uint32, x, y, z int) error
	Get(x, y, z int) uint32
	Depth() int
	Serialize() ([]byte, error)
}

// packedNode is one slot of a PackedOctree: either a branch (index of its
// first child, children are contiguous) or a leaf (a palette id).
type packedNode struct {
	typ      uint32 // leaf palette id, valid when !branch
	branch   bool
	children int32 // index of first of 8 contiguous children, valid when branch
}

// PackedOctree stores nodes in one contiguous slice, indexed by position
// rather than pointer — the default variant, cheap for the mostly-uniform
// regions real voxel worlds have.
type PackedOctree struct {
	depth int // side length is 2^depth
	nodes []packedNode
	// maxNodes bounds the packed id space; exceeding it raises
	// ErrOctreeTooBig so the caller can fall back to NodeOctree.
	maxNodes int
}

// NewPackedOctree creates an empty octree of side 2^depth, with every voxel
// initially AIR (id 0), and a node-count ceiling that triggers
// ErrOctreeTooBig once exceeded.
func NewPackedOctree(depth, maxNodes int) *PackedOctree {
	return &PackedOctree{
		depth:    depth,
		nodes:    []packedNode{{typ: 0}},
		maxNodes: maxNodes,
	}
}

func (o *PackedOctree) Depth() int { return o.depth }

// Set subdivides (and later coalesces) nodes along the path to (x,y,z),
// storing typ at the unit voxel. Returns ErrOctreeTooBig if subdividing
// would exceed maxNodes.
func (o *PackedOctree) Set(typ uint32, x, y, z int) error {
	return o.setRec(0, 0, 0, 0, o.depth, typ, x, y, z)
}

func (o *PackedOctree) setRec(nodeIdx, cx, cy, cz, level int, typ uint32, x, y, z int) error {
	if level == 0 {
		o.nodes[nodeIdx] = packedNode{typ: typ}
		return nil
	}

	n := &o.nodes[nodeIdx]
	if !n.branch {
		if n.typ == typ {
			return nil // already uniform with the target value; nothing to do
		}
		if err := o.subdivide(nodeIdx); err != nil {
			return err
		}
	}

	half := 1 << (level - 1)
	childOffset := 0
	mx, my, mz := cx+half, cy+half, cz+half
	if x >= mx {
		childOffset |= 4
	}
	if y >= my {
		childOffset |= 2
	}
	if z >= mz {
		childOffset |= 1
	}

	childIdx := int(o.nodes[nodeIdx].children) + childOffset
	nx, ny, nz := cx, cy, cz
	if childOffset&4 != 0 {
		nx = mx
	}
	if childOffset&2 != 0 {
		ny = my
	}
	if childOffset&1 != 0 {
		nz = mz
	}

	if err := o.setRec(childIdx, nx, ny, nz, level-1, typ, x, y, z); err != nil {
		return err
	}
	o.tryCoalesce(nodeIdx)
	return nil
}

// subdivide turns a uniform leaf into a branch of 8 leaves carrying the
// leaf's former value, appended contiguously to nodes.
func (o *PackedOctree) subdivide(nodeIdx int) error {
	if len(o.nodes)+8 > o.maxNodes {
		return fmt.Errorf("%w: would need %d nodes, limit %d", ErrOctreeTooBig, len(o.nodes)+8, o.maxNodes)
	}
	leafType := o.nodes[nodeIdx].typ
	firstChild := int32(len(o.nodes))
	for i := 0; i < 8; i++ {
		o.nodes = append(o.nodes, packedNode{typ: leafType})
	}
	o.nodes[nodeIdx] = packedNode{branch: true, children: firstChild}
	return nil
}

// tryCoalesce collapses a branch back into a single leaf when all 8
// children are identical uniform leaves. When the root collapses, every
// other slot is unreachable and nodes is truncated back to the root alone;
// slots freed by a collapse below the root are not reclaimed.
func (o *PackedOctree) tryCoalesce(nodeIdx int) {
	n := o.nodes[nodeIdx]
	if !n.branch {
		return
	}
	first := o.nodes[n.children]
	if first.branch {
		return
	}
	for i := 1; i < 8; i++ {
		c := o.nodes[int(n.children)+i]
		if c.branch || c.typ != first.typ {
			return
		}
	}
	o.nodes[nodeIdx] = packedNode{typ: first.typ}
	if nodeIdx == 0 {
		o.nodes = o.nodes[:1]
	}
}

// Get returns the palette id stored at (x,y,z), or AIR (0) outside the
// octree's bounds.
func (o *PackedOctree) Get(x, y, z int) uint32 {
	size := 1 << o.depth
	if x < 0 || y < 0 || z < 0 || x >= size || y >= size || z >= size {
		return 0
	}
	return o.getRec(0, 0, 0, 0, o.depth, x, y, z)
}

func (o *PackedOctree) getRec(nodeIdx, cx, cy, cz, level int, x, y, z int) uint32 {
	n := o.nodes[nodeIdx]
	if !n.branch {
		return n.typ
	}
	half := 1 << (level - 1)
	childOffset := 0
	mx, my, mz := cx+half, cy+half, cz+half
	nx, ny, nz := cx, cy, cz
	if x >= mx {
		childOffset |= 4
		nx = mx
	}
	if y >= my {
		childOffset |= 2
		ny = my
	}
	if z >= mz {
		childOffset |= 1
		nz = mz
	}
	return o.getRec(int(n.children)+childOffset, nx, ny, nz, level-1, x, y, z)
}

// NodeOctree is the fallback variant: each branch allocates its 8 children
// individually on the heap rather than from one shared slice. It has no
// node-id ceiling, trading memory density for an unbounded id space.
type NodeOctree struct {
	depth int
	root  *heapNode
}

type heapNode struct {
	typ      uint32
	branch   bool
	children [8]*heapNode
}

// NewNodeOctree creates an empty node-variant octree of side 2^depth.
func NewNodeOctree(depth int) *NodeOctree {
	return &NodeOctree{depth: depth, root: &heapNode{typ: 0}}
}

func (o *NodeOctree) Depth() int { return o.depth }

func (o *NodeOctree) Set(typ uint32, x, y, z int) error {
	setHeapRec(o.root, 0, 0, 0, o.depth, typ, x, y, z)
	return nil
}

func setHeapRec(n *heapNode, cx, cy, cz, level int, typ uint32, x, y, z int) {
	if level == 0 {
		n.typ = typ
		n.branch = false
		return
	}
	if !n.branch {
		if n.typ == typ {
			return
		}
		leafType := n.typ
		n.branch = true
		for i := range n.children {
			n.children[i] = &heapNode{typ: leafType}
		}
	}

	half := 1 << (level - 1)
	childOffset := 0
	mx, my, mz := cx+half, cy+half, cz+half
	nx, ny, nz := cx, cy, cz
	if x >= mx {
		childOffset |= 4
		nx = mx
	}
	if y >= my {
		childOffset |= 2
		ny = my
	}
	if z >= mz {
		childOffset |= 1
		nz = mz
	}
	setHeapRec(n.children[childOffset], nx, ny, nz, level-1, typ, x, y, z)

	first := n.children[0]
	if first.branch {
		return
	}
	for i := 1; i < 8; i++ {
		c := n.children[i]
		if c.branch || c.typ != first.typ {
			return
		}
	}
	n.typ, n.branch = first.typ, false
}

func (o *NodeOctree) Get(x, y, z int) uint32 {
	size := 1 << o.depth
	if x < 0 || y < 0 || z < 0 || x >= size || y >= size || z >= size {
		return 0
	}
	n := o.root
	cx, cy, cz := 0, 0, 0
	for level := o.depth; level > 0 && n.branch; level-- {
		half := 1 << (level - 1)
		childOffset := 0
		mx, my, mz := cx+half, cy+half, cz+half
		if x >= mx {
			childOffset |= 4
			cx = mx
		}
		if y >= my {
			childOffset |= 2
			cy = my
		}
		if z >= mz {
			childOffset |= 1
			cz = mz
		}
		n = n.children[childOffset]
	}
	return n.typ
}

// FromNode rebuilds a NodeOctree from a PackedOctree, preserving every
// voxel value — the conversion a caller can perform after a packed octree
// raises ErrOctreeTooBig while loading the rest of a region.
func FromNode(p *PackedOctree) *NodeOctree {
	out := NewNodeOctree(p.depth)
	out.root = convertNode(p, 0)
	return out
}

func convertNode(p *PackedOctree, idx int) *heapNode {
	n := p.nodes[idx]
	if !n.branch {
		return &heapNode{typ: n.typ}
	}
	h := &heapNode{branch: true}
	for i := 0; i < 8; i++ {
		h.children[i] = convertNode(p, int(n.children)+i)
	}
	return h
}
