package material

import "testing"

func TestMaterial_DataWordRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		level   uint8
		corners [4]uint8
	}{
		{"source block", 0, [4]uint8{0, 0, 0, 0}},
		{"minimum level", 7, [4]uint8{7, 7, 7, 7}},
		{"mixed corners", 3, [4]uint8{1, 2, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Material{Level: tt.level, CornerHeights: tt.corners}
			word := m.DataWord()

			got := &Material{}
			got.SetDataWord(word)

			if got.Level != tt.level {
				t.Errorf("level: expected %d, got %d", tt.level, got.Level)
			}
			if got.CornerHeights != tt.corners {
				t.Errorf("corners: expected %v, got %v", tt.corners, got.CornerHeights)
			}
		})
	}
}

func TestPalette_ReservedIDs(t *testing.T) {
	p := NewPalette()

	air := p.Get(AirID)
	if air.Name != "air" {
		t.Errorf("expected air at id %d, got %q", AirID, air.Name)
	}

	water := p.Get(WaterID)
	if !water.Water {
		t.Errorf("expected water material at id %d", WaterID)
	}
}

func TestPalette_GetOutOfRangeFallsBackToAir(t *testing.T) {
	p := NewPalette()
	m := p.Get(9999)
	if m.Name != "air" {
		t.Errorf("expected out-of-range id to resolve to air, got %q", m.Name)
	}
}

func TestPalette_Override(t *testing.T) {
	p := NewPalette()
	id := p.Add(Material{Name: "stone"})
	p.Override(id, Material{Name: "stone-custom", Opaque: true})

	if p.Get(id).Name != "stone-custom" {
		t.Errorf("expected override to take effect")
	}
}

func TestMaterial_IsFullBlock(t *testing.T) {
	source := &Material{Level: 0, CornerHeights: [4]uint8{0, 0, 0, 0}}
	if !source.IsFullBlock() {
		t.Errorf("expected source-level water with zero corners to be a full block")
	}

	sloped := &Material{Level: 0, CornerHeights: [4]uint8{1, 0, 0, 0}}
	if sloped.IsFullBlock() {
		t.Errorf("expected sloped corners to not be a full block")
	}
}
