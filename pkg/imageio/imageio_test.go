package imageio

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestWritePNG_RoundTripsPixels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	err := WritePNG(path, 2, 2, func(i int) color.RGBA {
		return color.RGBA{R: uint8(i * 50), G: 0, B: 0, A: 255}
	}, false)
	if err != nil {
		t.Fatalf("WritePNG: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding written PNG: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds: %v", img.Bounds())
	}
}

func TestWritePNG_PanoramicInjectsGPanoChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pano.png")
	err := WritePNG(path, 2, 2, func(i int) color.RGBA { return color.RGBA{A: 255} }, true)
	if err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("GPano")) {
		t.Errorf("expected GPano XMP metadata in panoramic output")
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("PNG with injected chunk failed to decode: %v", err)
	}
}

func TestWriteTIFF32_ProducesValidHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tiff")
	err := WriteTIFF32(path, 2, 2, func(i int) (float32, float32, float32) {
		return float32(i), float32(i) * 2, 0.5
	})
	if err != nil {
		t.Fatalf("WriteTIFF32: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[:2]) != "II" {
		t.Fatalf("expected little-endian TIFF byte-order marker, got %q", data[:2])
	}
	wantBodyLen := 2*2*3*4 + 8 + (2 + 10*12 + 4) + 3*2 + 3*2
	if len(data) != wantBodyLen {
		t.Errorf("unexpected file length %d, want %d", len(data), wantBodyLen)
	}
}

func TestWritePFM_HeaderAndSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pfm")
	err := WritePFM(path, 3, 2, func(i int) (float32, float32, float32) {
		return 1, 1, 1
	})
	if err != nil {
		t.Fatalf("WritePFM: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := "PF\n3 2\n-1.0\n"
	if string(data[:len(wantHeader)]) != wantHeader {
		t.Errorf("header = %q, want %q", data[:len(wantHeader)], wantHeader)
	}
	wantBodyLen := 3 * 2 * 3 * 4
	if len(data)-len(wantHeader) != wantBodyLen {
		t.Errorf("body length = %d, want %d", len(data)-len(wantHeader), wantBodyLen)
	}
}
