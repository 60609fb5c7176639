package meshsolid

import (
	"errors"
	"math"

	"github.com/ostral/meshsolid/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// machineEps is the IEEE 754 double precision machine epsilon, 2^{-52}.
// Ray-facet hits are culled and self-intersections rejected against it.
const machineEps = 0x1p-52

var errDegenerateFacet = errors.New("degenerate facet: vertices are collinear or coincident")

// Facet is a single triangle of a tessellated surface with its precomputed
// outward unit normal and area. Facets are created during mesh ingestion and
// never modified afterwards.
type Facet struct {
	v      [3]r3.Vec
	normal r3.Vec
	area   float64
	// node is the facet's leaf position in the owning index,
	// assigned by the tree builder.
	node int
}

// newFacet precomputes the normal and area of the triangle v0,v1,v2.
// The normal follows the right-hand rule over v0→v1, v0→v2.
func newFacet(v0, v1, v2 r3.Vec) (Facet, error) {
	u := r3.Sub(v1, v0)
	v := r3.Sub(v2, v0)
	cross := r3.Cross(u, v)
	norm := r3.Norm(cross)
	if norm == 0 || math.IsNaN(norm) {
		return Facet{}, errDegenerateFacet
	}
	return Facet{
		v:      [3]r3.Vec{v0, v1, v2},
		normal: r3.Scale(1/norm, cross),
		area:   0.5 * norm,
	}, nil
}

// Vertex returns the i-th vertex, i in [0,3).
func (f *Facet) Vertex(i int) r3.Vec { return f.v[i] }

// Normal returns the outward unit normal.
func (f *Facet) Normal() r3.Vec { return f.normal }

// Area returns the triangle area.
func (f *Facet) Area() float64 { return f.area }

// aabb returns the bounding box of the facet.
func (f *Facet) aabb() d3.Box {
	return d3.Empty().Include(f.v[0]).Include(f.v[1]).Include(f.v[2])
}

// centroid returns the triangle centroid.
func (f *Facet) centroid() r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(f.v[0], f.v[1]), f.v[2]))
}

// Closest returns the point of the (bounded) triangle closest to p using a
// Voronoi-region case analysis. The branch order is significant: adjacent
// facets sharing a vertex or edge must resolve boundary-degenerate queries
// through the same case so their answers agree.
func (f *Facet) Closest(p r3.Vec) r3.Vec {
	a := f.v[0]
	b := f.v[1]
	c := f.v[2]

	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)

	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a // vertex region A
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b // vertex region B
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c // vertex region C
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab)) // edge region AB
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		v := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(v, ac)) // edge region AC
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		v := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(v, r3.Sub(c, b))) // edge region BC
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac))) // face region
}

// Distance returns the Euclidean distance from p to the facet.
func (f *Facet) Distance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, f.Closest(p)))
}

// side selects which facet orientations a ray may hit.
type side int

const (
	// sideBack accepts exit hits only (negative determinant).
	sideBack side = iota
	// sideBoth ignores orientation; used for parity counting.
	sideBoth
	// sideFront accepts entry hits only (positive determinant).
	sideFront
)

// intersect runs the Möller-Trumbore ray-triangle test with orientation
// culling. It returns the hit distance along the ray in units of the
// direction's length, and whether a hit beyond machineEps was found.
func (f *Facet) intersect(r ray, s side) (float64, bool) {
	aToB := r3.Sub(f.v[1], f.v[0])
	aToC := r3.Sub(f.v[2], f.v[0])
	uVec := r3.Cross(r.dir, aToC)
	det := r3.Dot(aToB, uVec)

	var hit bool
	switch s {
	case sideBack:
		hit = det < -machineEps
	case sideBoth:
		hit = math.Abs(det) >= machineEps
	case sideFront:
		hit = det > machineEps
	}
	if !hit {
		return 0, false
	}

	invDet := 1 / det
	aToOrigin := r3.Sub(r.origin, f.v[0])
	u := r3.Dot(aToOrigin, uVec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	vVec := r3.Cross(aToOrigin, aToB)
	v := r3.Dot(r.dir, vVec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	distance := r3.Dot(aToC, vVec) * invDet
	if distance > machineEps {
		return distance, true
	}
	return 0, false
}
