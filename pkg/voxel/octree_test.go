package voxel

import "testing"

func TestPackedOctree_SetGetRoundTrip(t *testing.T) {
	o := NewPackedOctree(4, 1<<16) // 16^3 region
	voxels := []struct{ x, y, z int; typ uint32 }{
		{0, 0, 0, 5},
		{15, 15, 15, 9},
		{3, 4, 5, 2},
		{8, 8, 8, 2},
	}
	for _, v := range voxels {
		if err := o.Set(v.typ, v.x, v.y, v.z); err != nil {
			t.Fatalf("Set(%d,%d,%d): %v", v.x, v.y, v.z, err)
		}
	}
	for _, v := range voxels {
		if got := o.Get(v.x, v.y, v.z); got != v.typ {
			t.Errorf("Get(%d,%d,%d) = %d, want %d", v.x, v.y, v.z, got, v.typ)
		}
	}
	if got := o.Get(1, 1, 1); got != 0 {
		t.Errorf("untouched voxel = %d, want air (0)", got)
	}
}

func TestPackedOctree_Coalesces(t *testing.T) {
	o := NewPackedOctree(2, 1<<16)
	size := 1 << o.Depth()
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				if err := o.Set(7, x, y, z); err != nil {
					t.Fatalf("Set: %v", err)
				}
			}
		}
	}
	if len(o.nodes) != 1 {
		t.Errorf("expected a uniformly-filled octree to coalesce to 1 node, got %d", len(o.nodes))
	}
}

func TestPackedOctree_TooBig(t *testing.T) {
	o := NewPackedOctree(3, 25) // room for one root-to-leaf path (3 subdivisions), no more
	if err := o.Set(1, 0, 0, 0); err != nil {
		t.Fatalf("first root-to-leaf path: %v", err)
	}
	if err := o.Set(2, 7, 7, 7); err == nil {
		t.Fatalf("expected ErrOctreeTooBig once the node ceiling is exceeded")
	}
}

func TestNodeOctree_MatchesPacked(t *testing.T) {
	packed := NewPackedOctree(3, 1<<20)
	node := NewNodeOctree(3)

	writes := []struct{ x, y, z int; typ uint32 }{
		{0, 0, 0, 3}, {7, 7, 7, 4}, {2, 3, 1, 5}, {5, 5, 5, 0},
	}
	for _, w := range writes {
		if err := packed.Set(w.typ, w.x, w.y, w.z); err != nil {
			t.Fatal(err)
		}
		if err := node.Set(w.typ, w.x, w.y, w.z); err != nil {
			t.Fatal(err)
		}
	}

	size := 1 << 3
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				if packed.Get(x, y, z) != node.Get(x, y, z) {
					t.Fatalf("mismatch at (%d,%d,%d): packed=%d node=%d", x, y, z, packed.Get(x, y, z), node.Get(x, y, z))
				}
			}
		}
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	o := NewPackedOctree(3, 1<<20)
	writes := []struct{ x, y, z int; typ uint32 }{
		{0, 0, 0, 3}, {7, 7, 7, 4}, {2, 3, 1, 5},
	}
	for _, w := range writes {
		if err := o.Set(w.typ, w.x, w.y, w.z); err != nil {
			t.Fatal(err)
		}
	}

	data, err := o.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	restored, err := DeserializePacked(data, 1<<20)
	if err != nil {
		t.Fatalf("DeserializePacked: %v", err)
	}

	size := 1 << 3
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				if o.Get(x, y, z) != restored.Get(x, y, z) {
					t.Fatalf("round-trip mismatch at (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}

func TestFromNode_ConvertsExactly(t *testing.T) {
	o := NewPackedOctree(3, 1<<20)
	if err := o.Set(9, 1, 2, 3); err != nil {
		t.Fatal(err)
	}
	converted := FromNode(o)
	size := 1 << 3
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				if o.Get(x, y, z) != converted.Get(x, y, z) {
					t.Fatalf("conversion mismatch at (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}
