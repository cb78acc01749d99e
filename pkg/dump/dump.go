// Package dump implements the renderer's binary persistence format: a
// versioned header followed by the sample buffer's raw sums, plus a
// reader for the pre-versioned gzipped variant it superseded.
package dump

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/samplebuffer"
)

var magic = [4]byte{'D', 'U', 'M', 'P'}

const currentVersion uint32 = 1

// Dump is an in-memory render dump: per-pixel accumulated sample sums (the
// same raw accumulator the live sample buffer holds, not the display
// mean), the sample count each sum was accumulated over, and the
// wall-clock render time spent producing it. Storing sums rather than
// means is what makes load(save(scene)) exact to bitwise equality — a
// mean's sum/spp division is not generally invertible for float64 — while
// Merge's weighted-mean combine (spec.md §4.6) reduces to plain
// sum-addition with summed SPP, which is algebraically identical.
type Dump struct {
	Width, Height    int
	SPP              uint32
	RenderTimeMillis int64
	Sums             []core.Vec3
}

// FromBuffer copies a sample buffer's per-pixel sums into a persistable
// Dump. spp and renderTimeMillis describe the buffer as a whole (every
// pixel is assumed to share the pass-global SPP count, per spec.md's
// one-writer-per-pixel-per-pass invariant).
func FromBuffer(buf *samplebuffer.Buffer, spp uint32, renderTimeMillis int64) *Dump {
	d := &Dump{Width: buf.Width, Height: buf.Height, SPP: spp, RenderTimeMillis: renderTimeMillis}
	d.Sums = make([]core.Vec3, buf.Width*buf.Height)
	for i := range d.Sums {
		d.Sums[i] = buf.Sum(i)
	}
	return d
}

// ApplyTo writes d's sums back into buf, which must already have matching
// dimensions.
func (d *Dump) ApplyTo(buf *samplebuffer.Buffer) error {
	if buf.Width != d.Width || buf.Height != d.Height {
		return fmt.Errorf("dump: dimension mismatch: dump is %dx%d, buffer is %dx%d", d.Width, d.Height, buf.Width, buf.Height)
	}
	for i, sum := range d.Sums {
		buf.SetSum(i, sum, d.SPP)
	}
	return nil
}

// Means derives the display value at every pixel (sum/spp) from d's raw
// sums, for callers that only want to render a dump rather than resume a
// live buffer from it.
func (d *Dump) Means() []core.Vec3 {
	means := make([]core.Vec3, len(d.Sums))
	if d.SPP == 0 {
		return means
	}
	inv := 1.0 / float64(d.SPP)
	for i, s := range d.Sums {
		means[i] = s.Multiply(inv)
	}
	return means
}

// Save atomically writes d to path in the versioned binary format: a
// temp file is written alongside path and renamed into place only once
// the write fully succeeds, so a crash mid-write never corrupts the
// existing dump (spec.md §4.5's "atomic (temp file + rename)" rule).
func Save(path string, d *Dump) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("dump: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if err := writeTo(tmp, d); err != nil {
		return fmt.Errorf("dump: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("dump: syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dump: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("dump: renaming into place: %w", err)
	}
	return nil
}

func writeTo(w io.Writer, d *Dump) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	header := []uint32{currentVersion, uint32(d.Width), uint32(d.Height), d.SPP}
	for _, v := range header {
		if err := binary.Write(bw, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.BigEndian, d.RenderTimeMillis); err != nil {
		return err
	}

	for _, s := range d.Sums {
		triple := [3]float64{s.X, s.Y, s.Z}
		if err := binary.Write(bw, binary.BigEndian, triple); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads a dump from path, dispatching between the current
// versioned format and the legacy gzip format by peeking at the first 4
// bytes for the magic string.
func Load(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dump: opening %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	peeked, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("dump: reading header: %w", err)
	}

	if bytes.Equal(peeked, magic[:]) {
		return readVersioned(br)
	}
	return readLegacy(br)
}

func readVersioned(r io.Reader) (*Dump, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("dump: reading magic: %w", err)
	}

	var version, width, height, spp uint32
	for _, dst := range []*uint32{&version, &width, &height, &spp} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return nil, fmt.Errorf("dump: reading header: %w", err)
		}
	}
	if version != currentVersion {
		return nil, fmt.Errorf("dump: unsupported version %d", version)
	}

	var renderTime int64
	if err := binary.Read(r, binary.BigEndian, &renderTime); err != nil {
		return nil, fmt.Errorf("dump: reading render time: %w", err)
	}

	return readBody(r, int(width), int(height), spp, renderTime)
}

// readLegacy reads the pre-versioned gzipped variant: a gzip stream
// containing u32 width, u32 height, u32 spp, i64 renderTime, then the
// row-major f64 triples, with no magic or version field at all.
func readLegacy(r io.Reader) (*Dump, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("dump: opening legacy gzip stream: %w", err)
	}
	defer gz.Close()

	br := bufio.NewReader(gz)

	var width, height, spp uint32
	for _, dst := range []*uint32{&width, &height, &spp} {
		if err := binary.Read(br, binary.BigEndian, dst); err != nil {
			return nil, fmt.Errorf("dump: reading legacy header: %w", err)
		}
	}
	var renderTime int64
	if err := binary.Read(br, binary.BigEndian, &renderTime); err != nil {
		return nil, fmt.Errorf("dump: reading legacy render time: %w", err)
	}

	return readBody(br, int(width), int(height), spp, renderTime)
}

func readBody(r io.Reader, width, height int, spp uint32, renderTime int64) (*Dump, error) {
	d := &Dump{Width: width, Height: height, SPP: spp, RenderTimeMillis: renderTime}
	d.Sums = make([]core.Vec3, width*height)
	for i := range d.Sums {
		var triple [3]float64
		if err := binary.Read(r, binary.BigEndian, &triple); err != nil {
			return nil, fmt.Errorf("dump: reading pixel %d: %w", i, err)
		}
		d.Sums[i] = core.NewVec3(triple[0], triple[1], triple[2])
	}
	return d, nil
}

// Merge combines two dumps of matching dimensions by adding their sums and
// SPP counts directly: out = a+b, spp_out = spp_a+spp_b,
// time_out = time_a+time_b. Since a dump's sum is spp*mean, this is the
// same combination spec.md §4.6's weighted-mean formula
// (spp_a*a + spp_b*b)/(spp_a+spp_b) describes at the mean level — summing
// sums and SPPs, rather than re-deriving a weighted mean from each dump's
// own mean, is also what keeps the merge exact rather than reintroducing a
// division/multiplication round-trip.
func Merge(a, b *Dump) (*Dump, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("dump: cannot merge %dx%d with %dx%d", a.Width, a.Height, b.Width, b.Height)
	}

	out := &Dump{
		Width: a.Width, Height: a.Height,
		SPP:              a.SPP + b.SPP,
		RenderTimeMillis: a.RenderTimeMillis + b.RenderTimeMillis,
		Sums:             make([]core.Vec3, len(a.Sums)),
	}
	for i := range out.Sums {
		out.Sums[i] = a.Sums[i].Add(b.Sums[i])
	}
	return out, nil
}
