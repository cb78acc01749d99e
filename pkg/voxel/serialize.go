package voxel

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Serialization tags for the pre-order node stream.
const (
	tagBranch byte = 0
	tagLeaf   byte = 1
)

// Serialize writes depth, then the node tree as a pre-order traversal:
// each node is a tag byte followed by either nothing (branch, children
// follow immediately) or a u32 palette id (leaf).
func (o *PackedOctree) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(o.depth)); err != nil {
		return nil, err
	}
	writePackedNode(&buf, o, 0)
	return buf.Bytes(), nil
}

func writePackedNode(buf *bytes.Buffer, o *PackedOctree, idx int) {
	n := o.nodes[idx]
	if n.branch {
		buf.WriteByte(tagBranch)
		for i := 0; i < 8; i++ {
			writePackedNode(buf, o, int(n.children)+i)
		}
		return
	}
	buf.WriteByte(tagLeaf)
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], n.typ)
	buf.Write(idBuf[:])
}

// DeserializePacked reconstructs a PackedOctree from bytes written by
// Serialize.
func DeserializePacked(data []byte, maxNodes int) (*PackedOctree, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("voxel: octree stream too short")
	}
	depth := int(binary.BigEndian.Uint32(data[:4]))
	o := &PackedOctree{depth: depth, maxNodes: maxNodes}
	o.nodes = []packedNode{{}}
	rest := data[4:]
	if _, err := readPackedNode(o, rest, 0); err != nil {
		return nil, fmt.Errorf("voxel: deserializing octree: %w", err)
	}
	return o, nil
}

// readPackedNode decodes the subtree encoded at the start of data into
// o.nodes[idx], returning the unconsumed remainder. The stream is written
// in pre-order (writePackedNode), but a branch's 8 children must land in 8
// contiguous slots regardless of how large each child's own subtree is, so
// a branch reserves its 8 child slots up front (contiguous, at the current
// end of o.nodes) before recursing into each one in turn — a node's index
// in o.nodes and its position in the pre-order byte stream are tracked
// separately.
func readPackedNode(o *PackedOctree, data []byte, idx int) ([]byte, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("unexpected end of stream")
	}
	tag := data[0]
	data = data[1:]

	switch tag {
	case tagLeaf:
		if len(data) < 4 {
			return nil, fmt.Errorf("unexpected end of stream reading leaf")
		}
		typ := binary.BigEndian.Uint32(data[:4])
		o.nodes[idx] = packedNode{typ: typ}
		return data[4:], nil
	case tagBranch:
		firstChild := int32(len(o.nodes))
		o.nodes[idx] = packedNode{branch: true, children: firstChild}
		for i := 0; i < 8; i++ {
			o.nodes = append(o.nodes, packedNode{})
		}
		rest := data
		for i := 0; i < 8; i++ {
			var err error
			rest, err = readPackedNode(o, rest, int(firstChild)+i)
			if err != nil {
				return nil, err
			}
		}
		return rest, nil
	default:
		return nil, fmt.Errorf("unknown octree node tag %d", tag)
	}
}

// Serialize is not implemented for NodeOctree: it always returns an
// error. This package has no conversion from a NodeOctree back to a
// PackedOctree, so a node-variant octree cannot be persisted.
func (o *NodeOctree) Serialize() ([]byte, error) {
	return nil, fmt.Errorf("voxel: node-variant octrees are not serialized directly; convert to packed first")
}
