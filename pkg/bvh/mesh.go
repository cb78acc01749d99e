package bvh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

// Mesh is a triangle-mesh entity: a flattened, BVH-indexed set of triangles
// sharing one bounding box. The scene holds a single BVH (Scene.BVH) for
// all entity geometry, not one BVH per mesh.
type Mesh struct {
	Triangles []*Triangle
	bbox      core.AABB
}

// NewMesh builds a Mesh (and its bounding box) from triangle index triples
// into a shared vertex/UV buffer.
func NewMesh(vertices []core.Vec3, uvs []core.Vec2, faces []int, mat *material.Material) (*Mesh, error) {
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("bvh: face index list length %d is not a multiple of 3", len(faces))
	}

	m := &Mesh{Triangles: make([]*Triangle, 0, len(faces)/3)}
	for i := 0; i < len(faces); i += 3 {
		a, b, c := faces[i], faces[i+1], faces[i+2]
		if a < 0 || a >= len(vertices) || b < 0 || b >= len(vertices) || c < 0 || c >= len(vertices) {
			return nil, fmt.Errorf("bvh: face %d references out-of-range vertex", i/3)
		}
		tri := NewTriangle(vertices[a], vertices[b], vertices[c], mat)
		if len(uvs) == len(vertices) {
			tri.UV0, tri.UV1, tri.UV2 = uvs[a], uvs[b], uvs[c]
		}
		m.Triangles = append(m.Triangles, tri)
	}

	if len(m.Triangles) > 0 {
		m.bbox = m.Triangles[0].BoundingBox()
		for _, t := range m.Triangles[1:] {
			m.bbox = m.bbox.Union(t.BoundingBox())
		}
	}
	return m, nil
}

// Primitives returns the mesh's triangles as BVH primitives.
func (m *Mesh) Primitives() []Primitive {
	out := make([]Primitive, len(m.Triangles))
	for i, t := range m.Triangles {
		out[i] = t
	}
	return out
}

// BoundingBox returns the mesh's overall bounding box.
func (m *Mesh) BoundingBox() core.AABB { return m.bbox }

// plyProperty is one "property <type> <name>" (or list-property) header line.
type plyProperty struct {
	name       string
	isList     bool
	countType  string
	dataType   string
}

type plyHeader struct {
	binary      bool
	littleEnd   bool
	vertexCount int
	faceCount   int
	vertexProps []plyProperty
	xIdx, yIdx, zIdx int
	uIdx, vIdx       int
	hasUV            bool
}

// LoadPLYMesh loads a binary little/big-endian PLY triangle mesh, fan-
// triangulating any face with more than 3 vertices.
func LoadPLYMesh(path string, mat *material.Material) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bvh: opening PLY file: %w", err)
	}
	defer f.Close()

	header, headerLen, err := parsePLYHeader(f)
	if err != nil {
		return nil, fmt.Errorf("bvh: parsing PLY header of %s: %w", path, err)
	}
	if !header.binary {
		return nil, fmt.Errorf("bvh: ASCII PLY is not supported: %s", path)
	}

	if _, err := f.Seek(int64(headerLen), io.SeekStart); err != nil {
		return nil, fmt.Errorf("bvh: seeking past PLY header: %w", err)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if !header.littleEnd {
		order = binary.BigEndian
	}

	r := bufio.NewReaderSize(f, 1<<20)

	vertices := make([]core.Vec3, header.vertexCount)
	var uvs []core.Vec2
	if header.hasUV {
		uvs = make([]core.Vec2, header.vertexCount)
	}

	for i := 0; i < header.vertexCount; i++ {
		values := make([]float64, len(header.vertexProps))
		for p := range header.vertexProps {
			v, err := readPLYScalar(r, order)
			if err != nil {
				return nil, fmt.Errorf("bvh: reading vertex %d: %w", i, err)
			}
			values[p] = v
		}
		vertices[i] = core.NewVec3(values[header.xIdx], values[header.yIdx], values[header.zIdx])
		if header.hasUV {
			uvs[i] = core.NewVec2(values[header.uIdx], values[header.vIdx])
		}
	}

	var faces []int
	for i := 0; i < header.faceCount; i++ {
		n, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("bvh: reading face %d vertex count: %w", i, err)
		}
		idx := make([]int, n)
		for j := range idx {
			var buf [4]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, fmt.Errorf("bvh: reading face %d index %d: %w", i, j, err)
			}
			idx[j] = int(order.Uint32(buf[:]))
		}
		for j := 1; j+1 < len(idx); j++ {
			faces = append(faces, idx[0], idx[j], idx[j+1])
		}
	}

	return NewMesh(vertices, uvs, faces, mat)
}

func parsePLYHeader(f *os.File) (plyHeader, int, error) {
	header := plyHeader{xIdx: -1, yIdx: -1, zIdx: -1, uIdx: -1, vIdx: -1}

	scanner := bufio.NewScanner(f)
	bytesRead := 0
	element := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		bytesRead += len(scanner.Bytes()) + 1
		if line == "end_header" {
			break
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "format":
			if len(parts) >= 2 {
				switch parts[1] {
				case "binary_little_endian":
					header.binary, header.littleEnd = true, true
				case "binary_big_endian":
					header.binary, header.littleEnd = true, false
				case "ascii":
					header.binary = false
				}
			}
		case "element":
			if len(parts) >= 3 {
				count, err := strconv.Atoi(parts[2])
				if err != nil {
					return header, 0, fmt.Errorf("invalid element count %q", parts[2])
				}
				element = parts[1]
				switch element {
				case "vertex":
					header.vertexCount = count
				case "face":
					header.faceCount = count
				}
			}
		case "property":
			if element != "vertex" || len(parts) < 2 {
				continue
			}
			if parts[0+1] == "list" {
				continue // face index list property, handled structurally
			}
			name := parts[len(parts)-1]
			prop := plyProperty{name: name, dataType: parts[1]}
			header.vertexProps = append(header.vertexProps, prop)
			idx := len(header.vertexProps) - 1
			switch name {
			case "x":
				header.xIdx = idx
			case "y":
				header.yIdx = idx
			case "z":
				header.zIdx = idx
			case "u", "s", "texture_u":
				header.uIdx, header.hasUV = idx, true
			case "v", "t", "texture_v":
				header.vIdx = idx
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return header, 0, err
	}
	if header.xIdx < 0 || header.yIdx < 0 || header.zIdx < 0 {
		return header, 0, fmt.Errorf("PLY vertex element missing x/y/z properties")
	}
	header.hasUV = header.hasUV && header.uIdx >= 0 && header.vIdx >= 0
	return header, bytesRead, nil
}

func readPLYScalar(r *bufio.Reader, order binary.ByteOrder) (float64, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	bits := order.Uint32(buf[:])
	return float64(math.Float32frombits(bits)), nil
}
