package sceneio

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

// octree2 is the gzipped on-disk form of spec.md §6's <name>.octree2
// file: the palette plus the solid and water octree byte streams
// pkg/voxel already knows how to (de)serialize. Biome textures and the
// cached emitter-occupancy grid are deliberately not part of this file —
// see DESIGN.md for why those stay out of this core's persistence scope.
//
// Palette entries only round-trip a flat albedo color: ImageTexture
// materials are written with their last-sampled-away color lost, since
// texture atlases have no defined wire format in this core.
type paletteEntryWire struct {
	Name          string     `json:"name"`
	Albedo        [3]float64 `json:"albedo"`
	Opaque        bool       `json:"opaque"`
	Water         bool       `json:"water"`
	Solid         bool       `json:"solid"`
	Emittance     float32    `json:"emittance"`
	Specular      float32    `json:"specular"`
	Roughness     float32    `json:"roughness"`
	IOR           float32    `json:"ior"`
	Level         uint8      `json:"level"`
	CornerHeights [4]uint8   `json:"cornerHeights"`
}

// SaveOctree2 writes solid, water, and palette to path as a gzip stream:
// a JSON palette header, then the solid and water octree byte streams
// each framed with a big-endian u32 length prefix.
func SaveOctree2(path string, solid, water voxel.Octree, palette *material.Palette) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sceneio: creating %s: %w", path, err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	bw := bufio.NewWriter(gw)

	entries := make([]paletteEntryWire, palette.Len())
	for id := 0; id < palette.Len(); id++ {
		m := palette.Get(uint32(id))
		entries[id] = paletteEntryWire{
			Name: m.Name, Opaque: m.Opaque, Water: m.Water, Solid: m.Solid,
			Emittance: m.Emittance, Specular: m.Specular, Roughness: m.Roughness,
			IOR: m.IOR, Level: m.Level, CornerHeights: m.CornerHeights,
		}
		if sc, ok := m.Albedo.(*material.SolidColor); ok {
			entries[id].Albedo = arrayFromVec3(sc.Color)
		}
	}
	paletteJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("sceneio: encoding palette: %w", err)
	}
	if err := writeFramed(bw, paletteJSON); err != nil {
		return fmt.Errorf("sceneio: writing palette: %w", err)
	}

	solidBytes, err := solid.Serialize()
	if err != nil {
		return fmt.Errorf("sceneio: serializing solid octree: %w", err)
	}
	if err := writeFramed(bw, solidBytes); err != nil {
		return fmt.Errorf("sceneio: writing solid octree: %w", err)
	}

	waterBytes, err := water.Serialize()
	if err != nil {
		return fmt.Errorf("sceneio: serializing water octree: %w", err)
	}
	if err := writeFramed(bw, waterBytes); err != nil {
		return fmt.Errorf("sceneio: writing water octree: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("sceneio: flushing %s: %w", path, err)
	}
	return gw.Close()
}

// LoadOctree2 reads a file written by SaveOctree2, reconstructing packed
// octrees bounded by maxNodes.
func LoadOctree2(path string, maxNodes int) (solid, water voxel.Octree, palette *material.Palette, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: opening %s: %w", path, err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: %s is not a gzip stream: %w", path, err)
	}
	defer gr.Close()
	br := bufio.NewReader(gr)

	paletteJSON, err := readFramed(br)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: reading palette: %w", err)
	}
	var entries []paletteEntryWire
	if err := json.Unmarshal(paletteJSON, &entries); err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: decoding palette: %w", err)
	}
	// NewPalette pre-populates ids 0 (AIR) and 1 (WATER); every later id
	// is appended via Add so the decoded palette has the same length and
	// ordering as the one SaveOctree2 walked.
	p := material.NewPalette()
	for id, e := range entries {
		m := material.Material{
			Name: e.Name, Albedo: material.NewSolidColor(vec3FromArray(e.Albedo)),
			Opaque: e.Opaque, Water: e.Water, Solid: e.Solid,
			Emittance: e.Emittance, Specular: e.Specular, Roughness: e.Roughness,
			IOR: e.IOR, Level: e.Level, CornerHeights: e.CornerHeights,
		}
		if uint32(id) <= material.WaterID {
			p.Override(uint32(id), m)
			continue
		}
		p.Add(m)
	}

	solidBytes, err := readFramed(br)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: reading solid octree: %w", err)
	}
	solidOctree, err := voxel.DeserializePacked(solidBytes, maxNodes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: decoding solid octree: %w", err)
	}

	waterBytes, err := readFramed(br)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: reading water octree: %w", err)
	}
	waterOctree, err := voxel.DeserializePacked(waterBytes, maxNodes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sceneio: decoding water octree: %w", err)
	}

	return solidOctree, waterOctree, p, nil
}

func writeFramed(w *bufio.Writer, data []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readFramed(r *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
