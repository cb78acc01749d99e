package sceneio

import (
	"strings"
	"testing"

	"github.com/voxtrace/voxtrace/pkg/material"
)

const minimalDocJSON = `{
  "sdfVersion": 9,
  "outputMode": "PNG",
  "canvas": {"width": 64, "height": 48},
  "camera": {
    "projection": "PINHOLE",
    "center": [0, 1, 0],
    "lookAt": [0, 1, -1],
    "up": [0, 1, 0],
    "vfov": 45
  },
  "sun": {
    "direction": [0, 1, 0.2],
    "radiance": [10, 10, 9],
    "angularRadius": 0.02
  },
  "sky": {
    "kind": "GRADIENT",
    "topColor": [0.5, 0.7, 1.0],
    "bottomColor": [1, 1, 1]
  },
  "chunks": [{"x": 0, "z": 0}, {"x": 1, "z": 0}],
  "materialOverrides": [{"id": 2, "emittance": 4.5}]
}`

func TestDecode_ValidDocument(t *testing.T) {
	doc, err := Decode([]byte(minimalDocJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.CanvasWidth != 64 || doc.CanvasHeight != 48 {
		t.Errorf("canvas = %dx%d, want 64x48", doc.CanvasWidth, doc.CanvasHeight)
	}
	if len(doc.Chunks) != 2 || doc.Chunks[1].X != 1 {
		t.Errorf("unexpected chunks: %+v", doc.Chunks)
	}
	if len(doc.MaterialOverrides) != 1 || doc.MaterialOverrides[0].ID != 2 {
		t.Errorf("unexpected overrides: %+v", doc.MaterialOverrides)
	}
}

func TestDecode_UnknownSDFVersionFallsBack(t *testing.T) {
	bad := strings.Replace(minimalDocJSON, `"sdfVersion": 9`, `"sdfVersion": 3`, 1)
	doc, err := Decode([]byte(bad))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.SDFVersion != supportedSDFVersion {
		t.Errorf("SDFVersion = %d, want fallback to %d", doc.SDFVersion, supportedSDFVersion)
	}
}

func TestDecode_SchemaViolationIsError(t *testing.T) {
	bad := strings.Replace(minimalDocJSON, `"outputMode": "PNG"`, `"outputMode": "BOGUS"`, 1)
	if _, err := Decode([]byte(bad)); err == nil {
		t.Fatal("expected a schema validation error for an invalid outputMode")
	}
}

func TestEncodeDecode_RoundTrips(t *testing.T) {
	doc, err := Decode([]byte(minimalDocJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	doc2, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode(Encode(doc)): %v", err)
	}
	if doc2.CanvasWidth != doc.CanvasWidth || len(doc2.Chunks) != len(doc.Chunks) {
		t.Errorf("round trip mismatch: %+v vs %+v", doc, doc2)
	}
}

func TestApplyOverrides_PatchesOnlySpecifiedFields(t *testing.T) {
	palette := material.NewPalette()
	id := palette.Add(material.Material{Name: "stone", Specular: 0.1})

	emittance := float32(5)
	ApplyOverrides(palette, []MaterialOverride{{ID: id, Emittance: &emittance}})

	m := palette.Get(id)
	if m.Emittance != 5 {
		t.Errorf("Emittance = %v, want 5", m.Emittance)
	}
	if m.Name != "stone" {
		t.Errorf("Name changed unexpectedly to %q", m.Name)
	}
	if m.Specular != 0.1 {
		t.Errorf("Specular changed unexpectedly to %v", m.Specular)
	}
}
