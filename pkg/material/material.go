// Package material defines the block/entity material property sheet and
// the integer-indexed palette that the octree and BVH resolve their leaf
// ids through. It deliberately has no behavior of its own (see the tagged
// variant note in DESIGN.md) — the path tracer's Fresnel-blend shading
// lives in pkg/tracer and is driven purely by these fields.
package material

import "github.com/voxtrace/voxtrace/pkg/core"

// Reserved palette ids.
const (
	AirID   = 0
	WaterID = 1
)

// ColorSource provides spatially-varying colors for a material: a flat
// color, or a per-texel lookup driven by UV coordinates.
type ColorSource interface {
	Evaluate(uv core.Vec2, point core.Vec3) core.Vec3
}

// SolidColor is a ColorSource that ignores UV/point and always returns the
// same color.
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor wraps a flat color as a ColorSource.
func NewSolidColor(c core.Vec3) *SolidColor { return &SolidColor{Color: c} }

// Evaluate implements ColorSource.
func (s *SolidColor) Evaluate(core.Vec2, core.Vec3) core.Vec3 { return s.Color }

// ImageTexture is a ColorSource backed by a decoded image, sampled by
// wrapping UV into [0,1) and nearest-neighbor lookup.
type ImageTexture struct {
	Width, Height int
	Pixels        []core.Vec3 // row-major, length Width*Height
}

// Evaluate implements ColorSource.
func (img *ImageTexture) Evaluate(uv core.Vec2, _ core.Vec3) core.Vec3 {
	if img.Width == 0 || img.Height == 0 {
		return core.Vec3{}
	}
	u := uv.X - float64(int(uv.X))
	v := uv.Y - float64(int(uv.Y))
	if u < 0 {
		u += 1
	}
	if v < 0 {
		v += 1
	}
	x := int(u * float64(img.Width))
	y := int(v * float64(img.Height))
	x = min(x, img.Width-1)
	y = min(y, img.Height-1)
	return img.Pixels[y*img.Width+x]
}

// Material is the property sheet carried by every palette entry and every
// BVH triangle entity. It is plain data; shading behavior (Fresnel-blend
// diffuse/specular/refraction) is implemented once in pkg/tracer and reads
// these fields, rather than dispatching to N material types.
type Material struct {
	Name   string
	Albedo ColorSource

	Opaque bool
	Water  bool
	Solid  bool

	Emittance float32
	Specular  float32
	Roughness float32
	IOR       float32

	// Water/lava level and corner heights, valid only when Water is true.
	// Level 0 = source block, 7 = minimum. CornerHeights are filled in by
	// the octree finalization pass.
	Level         uint8
	CornerHeights [4]uint8
}

// IsFullBlock reports whether a water/lava voxel should render as a full
// cube rather than a sloped surface, per the finalization rule.
func (m *Material) IsFullBlock() bool {
	return m.Level == 0 && m.CornerHeights == [4]uint8{0, 0, 0, 0}
}

// DataWord packs level (4 bits) and the four 3-bit corner heights into a
// single 16-bit word, matching the octree's data payload layout.
func (m *Material) DataWord() uint16 {
	w := uint16(m.Level) & 0xF
	for i, h := range m.CornerHeights {
		w |= uint16(h&0x7) << (4 + 3*i)
	}
	return w
}

// SetDataWord unpacks a 16-bit data word into Level and CornerHeights.
func (m *Material) SetDataWord(w uint16) {
	m.Level = uint8(w & 0xF)
	for i := range m.CornerHeights {
		m.CornerHeights[i] = uint8((w >> (4 + 3*i)) & 0x7)
	}
}

// Palette is an indexed collection of materials; the octree and BVH store
// small integer ids that are resolved through it.
type Palette struct {
	materials []Material
}

// NewPalette creates a palette pre-populated with the AIR and WATER
// sentinel entries at their reserved ids.
func NewPalette() *Palette {
	p := &Palette{materials: make([]Material, 2)}
	p.materials[AirID] = Material{Name: "air", Albedo: NewSolidColor(core.Vec3{})}
	p.materials[WaterID] = Material{
		Name: "water", Albedo: NewSolidColor(core.NewVec3(0.1, 0.3, 0.6)),
		Water: true, Opaque: false, Specular: 0.02, IOR: 1.33,
	}
	return p
}

// Add appends a material and returns its id.
func (p *Palette) Add(m Material) uint32 {
	p.materials = append(p.materials, m)
	return uint32(len(p.materials) - 1)
}

// Get resolves an id to its material. Out-of-range ids resolve to air
// rather than panicking, keeping tracer paths total.
func (p *Palette) Get(id uint32) *Material {
	if int(id) < 0 || int(id) >= len(p.materials) {
		return &p.materials[AirID]
	}
	return &p.materials[id]
}

// Len returns the number of entries in the palette.
func (p *Palette) Len() int { return len(p.materials) }

// Override replaces the material at id with m, used by scene-description
// material overrides.
func (p *Palette) Override(id uint32, m Material) {
	if int(id) >= 0 && int(id) < len(p.materials) {
		p.materials[id] = m
	}
}
