package imageio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// WritePFM writes a Portable FloatMap: `PF\n<w> <h>\n-1.0\n` header (the
// negative scale marks little-endian), then width*height RGB triples of
// float32 in bottom-up row order. No library in this module's
// dependency set implements PFM (see DESIGN.md), so this is hand-rolled
// directly against the format, matching the teacher's "write the bytes
// yourself when the stdlib/corpus has no encoder" posture already used
// for the TIFF-32 writer.
func WritePFM(path string, width, height int, pixel func(i int) (r, g, b float32)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: creating %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(bw, "PF\n%d %d\n-1.0\n", width, height); err != nil {
		return fmt.Errorf("imageio: writing %s header: %w", path, err)
	}

	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			r, g, b := pixel(y*width + x)
			for _, v := range [3]float32{r, g, b} {
				if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
					return fmt.Errorf("imageio: writing %s body: %w", path, err)
				}
			}
		}
	}
	return bw.Flush()
}
