package meshsolid

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// octahedronCoords returns a regular octahedron with apexes at ±h on each
// axis, 8 triangles with outward winding, in centimetres. None of its faces
// are axis aligned, which keeps parity rays away from degenerate parallel
// intersections.
func octahedronCoords(h float64) []float64 {
	coords := make([]float64, 0, 9*8)
	for _, sx := range []float64{1, -1} {
		for _, sy := range []float64{1, -1} {
			for _, sz := range []float64{1, -1} {
				a := r3.Vec{X: sx * h}
				b := r3.Vec{Y: sy * h}
				c := r3.Vec{Z: sz * h}
				if sx*sy*sz < 0 {
					b, c = c, b
				}
				for _, v := range []r3.Vec{a, b, c} {
					coords = append(coords, v.X, v.Y, v.Z)
				}
			}
		}
	}
	return coords
}

func testOctahedron(t testing.TB) *SortedFacets {
	t.Helper()
	s, err := NewSortedFacets(octahedronCoords(0.1))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// parityAlong counts distinct boundary crossings from p along dir.
func parityAlong(s *SortedFacets, p, dir r3.Vec) int {
	var m parityMatch
	s.crossings(&m, 0, newRay(p, dir))
	return m.distinct() % 2
}

func TestInsideDirectionIndependent(t *testing.T) {
	s := testOctahedron(t)
	const delta = 1e-6
	dirs := []r3.Vec{
		{X: 1},
		{Y: -1},
		{X: 0.3, Y: 0.7, Z: -0.6},
	}
	rnd := rand.New(rand.NewSource(7))
	checked := 0
	for checked < 300 {
		p := r3.Vec{
			X: 2.4*rnd.Float64() - 1.2,
			Y: 2.4*rnd.Float64() - 1.2,
			Z: 2.4*rnd.Float64() - 1.2,
		}
		m := nearestMatch{distance: math.Inf(1), facet: -1}
		s.nearest(&m, 0, p, math.Inf(1))
		if m.distance <= 10*delta {
			continue // too close to the surface for a parity check
		}
		checked++
		got := s.Inside(p, delta)
		want := Outside
		if parityAlong(s, p, r3.Vec{Z: 1}) == 1 {
			want = Inside
		}
		if got != want {
			t.Fatalf("Inside(%v) = %v disagrees with +Z parity", p, got)
		}
		for _, dir := range dirs {
			odd := parityAlong(s, p, dir)
			if (odd == 1) != (got == Inside) {
				t.Fatalf("parity along %v disagrees with classification %v at %v", dir, got, p)
			}
		}
		// The octahedron is |x|+|y|+|z| <= 1 in internal units.
		analytic := Outside
		if math.Abs(p.X)+math.Abs(p.Y)+math.Abs(p.Z) < 1 {
			analytic = Inside
		}
		if got != analytic {
			t.Fatalf("Inside(%v) = %v, analytic %v", p, got, analytic)
		}
	}
}

func TestSurfaceBandClassification(t *testing.T) {
	s := testOctahedron(t)
	const delta = 1e-3
	rnd := rand.New(rand.NewSource(8))
	for i := 0; i < 300; i++ {
		f := &s.facets[rnd.Intn(len(s.facets))]
		u, v := rnd.Float64(), rnd.Float64()
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		onFacet := r3.Add(f.v[0], r3.Add(
			r3.Scale(u, r3.Sub(f.v[1], f.v[0])),
			r3.Scale(v, r3.Sub(f.v[2], f.v[0])),
		))
		// Offset along the normal but stay within delta.
		p := r3.Add(onFacet, r3.Scale((2*rnd.Float64()-1)*0.9*delta, f.normal))
		if got := s.Inside(p, delta); got != Surface {
			t.Fatalf("point %v at %g from facet classified %v, want surface",
				p, f.Distance(p), got)
		}
	}
}

func TestSurfaceNormalMatchesNearestFacet(t *testing.T) {
	s := testOctahedron(t)
	rnd := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		fi := rnd.Intn(len(s.facets))
		f := &s.facets[fi]
		c := f.centroid()
		got := s.SurfaceNormal(c, 1e-6)
		if !vecEqInternal(got, f.normal, 1e-12) {
			t.Fatalf("SurfaceNormal at centroid of facet %d = %v, want %v", fi, got, f.normal)
		}
	}
}

func vecEqInternal(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
