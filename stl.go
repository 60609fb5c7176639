package meshsolid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
)

// Binary STL ingestion and dump for tessellated solids. STL stores float32
// triangles in external (centimetre) units; ReadSTL returns the flat
// coordinate layout NewSortedFacets accepts.

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

const stlTriangleSize = 50

// LoadSTL reads a binary STL file and returns its flat vertex coordinate
// list, suitable for NewSortedFacets.
func LoadSTL(path string) ([]float64, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	coords, err := ReadSTL(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return coords, nil
}

// ReadSTL reads binary STL data and returns the flat vertex coordinate
// list in the file's (external) units. Facet normals stored in the file
// are discarded; facet construction recomputes them from the winding.
func ReadSTL(r io.Reader) ([]float64, error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, fmt.Errorf("STL header read failed: %w", err)
	}
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	coords := make([]float64, 0, 9*header.Count)
	var (
		buf [stlTriangleSize]byte
		d   stlTriangle
	)
	for i := 0; i < int(header.Count); i++ {
		var n int
		for n < stlTriangleSize {
			nr, err := r.Read(buf[n:])
			if err != nil {
				return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, header.Count, err)
			}
			n += nr
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("STL triangle %d: %w", i, err)
		}
		for _, v := range [3][3]float32{d.Vertex1, d.Vertex2, d.Vertex3} {
			coords = append(coords, float64(v[0]), float64(v[1]), float64(v[2]))
		}
	}
	return coords, nil
}

// CreateSTL dumps the solid's facets to a binary STL file.
func CreateSTL(path string, s *SortedFacets) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	return WriteSTL(fp, s)
}

// WriteSTL writes the solid's facets to w in binary STL format, converting
// vertices back to external (centimetre) units.
func WriteSTL(w io.Writer, s *SortedFacets) error {
	if s.Facets() == 0 {
		return errors.New("empty facet collection")
	}
	header := stlHeader{
		Count: uint32(s.Facets()),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	const inv = 1 / Centimetre
	var d stlTriangle
	var b [stlTriangleSize]byte
	for i := 0; i < s.Facets(); i++ {
		f := s.Facet(i)
		n := f.Normal()
		d.Normal = [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}
		for j, dst := range []*[3]float32{&d.Vertex1, &d.Vertex2, &d.Vertex3} {
			v := f.Vertex(j)
			*dst = [3]float32{float32(v.X * inv), float32(v.Y * inv), float32(v.Z * inv)}
		}
		d.put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
	// no attributes supported.
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func (t stlTriangle) validate() error {
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(t.Vertex1) || bad3F32(t.Vertex2) || bad3F32(t.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	return nil
}
