// Package imageio writes the renderer's three output formats (PNG,
// TIFF-32, PFM) from a tonemapped or linear pixel buffer.
package imageio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// WritePNG encodes an 8-bit sRGB image to path, grounded on the
// teacher's main.go (`os.Create` + `png.Encode`). toSRGB returns the
// already tonemapped 8-bit color of pixel i, in row-major order. When
// panoramic is true, a hand-written XMP/GPano iTXt chunk is inserted
// after encoding (no PNG library in the corpus emits GPano metadata).
func WritePNG(path string, width, height int, toSRGB func(i int) color.RGBA, panoramic bool) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, toSRGB(y*width+x))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("imageio: encoding PNG: %w", err)
	}

	data := buf.Bytes()
	if panoramic {
		var err error
		data, err = injectGPanoChunk(data, width, height)
		if err != nil {
			return fmt.Errorf("imageio: injecting GPano metadata: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("imageio: writing %s: %w", path, err)
	}
	return nil
}

// injectGPanoChunk inserts an iTXt chunk carrying a minimal XMP/GPano
// packet right after the IHDR chunk, the convention panorama viewers
// (and the original implementation, per its ~180 deg equirectangular
// output path) look for to auto-detect a full spherical or cylindrical
// image.
func injectGPanoChunk(pngData []byte, width, height int) ([]byte, error) {
	const sig = 8 // PNG signature length
	if len(pngData) < sig+8 {
		return nil, fmt.Errorf("truncated PNG stream")
	}
	ihdrLen := binary.BigEndian.Uint32(pngData[sig : sig+4])
	ihdrEnd := sig + 8 + int(ihdrLen) + 4 // length+type+data+crc

	xmp := buildGPanoXMP(width, height)
	chunk := buildTextChunk("XML:com.adobe.xmp", xmp)

	out := make([]byte, 0, len(pngData)+len(chunk))
	out = append(out, pngData[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, pngData[ihdrEnd:]...)
	return out, nil
}

func buildGPanoXMP(width, height int) string {
	return fmt.Sprintf(`<?xpacket begin="" id=""?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description xmlns:GPano="http://ns.google.com/photos/1.0/panorama/"
   GPano:ProjectionType="equirectangular"
   GPano:FullPanoWidthPixels="%d"
   GPano:FullPanoHeightPixels="%d"
   GPano:CroppedAreaImageWidthPixels="%d"
   GPano:CroppedAreaImageHeightPixels="%d"
   GPano:CroppedAreaLeftPixels="0"
   GPano:CroppedAreaTopPixels="0"/>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`, width, height, width, height)
}

// buildTextChunk builds an uncompressed iTXt chunk: keyword, NUL,
// compression flag 0, compression method 0, an empty language tag and
// an empty translated keyword (each NUL-terminated), then the text.
func buildTextChunk(keyword, text string) []byte {
	payload := append([]byte(keyword), 0, 0, 0, 0, 0)
	payload = append(payload, []byte(text)...)

	var chunk bytes.Buffer
	binary.Write(&chunk, binary.BigEndian, uint32(len(payload)))
	chunk.WriteString("iTXt")
	chunk.Write(payload)

	crc := crc32PNG(append([]byte("iTXt"), payload...))
	binary.Write(&chunk, binary.BigEndian, crc)
	return chunk.Bytes()
}
