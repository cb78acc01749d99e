package imageio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// WriteTIFF32 writes a 3-channel, 32-bit IEEE float, linear TIFF: a
// single uncompressed strip with a minimal baseline tag set. Go's
// `golang.org/x/image/tiff` encoder only accepts the standard integer
// color models (Gray/Gray16/RGBA/NRGBA/CMYK) — it has no SampleFormat=3
// (floating point) encode path — so this writer is hand-rolled directly
// against the TIFF 6.0 tag layout rather than going through that
// package (see DESIGN.md).
func WriteTIFF32(path string, width, height int, pixel func(i int) (r, g, b float32)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: creating %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := writeTIFF32Body(bw, width, height, pixel); err != nil {
		return fmt.Errorf("imageio: writing %s: %w", path, err)
	}
	return bw.Flush()
}

type tiffTag struct {
	id, typ uint16
	count   uint32
	value   uint32 // offset or inline value
}

func writeTIFF32Body(w *bufio.Writer, width, height int, pixel func(i int) (r, g, b float32)) error {
	const (
		typeShort = 3
		typeLong  = 4
	)

	stripSize := width * height * 3 * 4
	ifdOffset := uint32(8)

	// 10 IFD entries; BitsPerSample and SampleFormat each need 3 values
	// (one per channel), which TIFF stores out-of-line since a SHORT
	// tag's inline slot only holds 2, so both overflow after the IFD.
	const numEntries = 10
	ifdSize := uint32(2 + numEntries*12 + 4)
	extraOffset := ifdOffset + ifdSize

	bitsPerSampleOffset := extraOffset
	sampleFormatOffset := bitsPerSampleOffset + 3*2
	stripDataOffset := sampleFormatOffset + 3*2

	// Header
	if _, err := w.Write([]byte{'I', 'I'}); err != nil { // little-endian
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(42)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ifdOffset); err != nil {
		return err
	}

	entries := []tiffTag{
		{256, typeLong, 1, uint32(width)},
		{257, typeLong, 1, uint32(height)},
		{258, typeShort, 3, bitsPerSampleOffset},
		{259, typeShort, 1, 1},
		{262, typeShort, 1, 2},
		{273, typeLong, 1, stripDataOffset},
		{277, typeShort, 1, 3},
		{278, typeLong, 1, uint32(height)},
		{279, typeLong, 1, uint32(stripSize)},
		{339, typeShort, 3, sampleFormatOffset},
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(entries))); err != nil {
		return err
	}
	for _, t := range entries {
		if err := binary.Write(w, binary.LittleEndian, t.id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, t.typ); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, t.count); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, t.value); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(0)); err != nil { // next IFD offset: none
		return err
	}

	for i := 0; i < 3; i++ {
		if err := binary.Write(w, binary.LittleEndian, uint16(32)); err != nil {
			return err
		}
	}
	for i := 0; i < 3; i++ {
		if err := binary.Write(w, binary.LittleEndian, uint16(3)); err != nil {
			return err
		}
	}

	for i := 0; i < width*height; i++ {
		r, g, b := pixel(i)
		for _, v := range [3]float32{r, g, b} {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}

	return nil
}
