package meshsolid_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	sdfxrender "github.com/deadsy/sdfx/render"
	"github.com/ostral/meshsolid"
	"gonum.org/v1/gonum/spatial/r3"
)

// sphereSolid meshes a radius 1cm sphere with sdfx marching cubes and
// ingests the resulting STL. Internal units: radius 10mm.
func sphereSolid(t testing.TB, quality int) *meshsolid.SortedFacets {
	t.Helper()
	object, err := sdf.Sphere3D(1)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sphere.stl")
	sdfxrender.ToSTL(object, quality, path, &sdfxrender.MarchingCubesOctree{})
	coords, err := meshsolid.LoadSTL(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := meshsolid.NewSortedFacets(coords)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSphereMesh(t *testing.T) {
	if testing.Short() {
		t.Skip("sphere meshing is slow")
	}
	s := sphereSolid(t, 64)
	const r = 10.0 // mm

	// Faceting always underestimates the smooth surface slightly.
	want := 4 * math.Pi * r * r
	if got := s.Area(); math.Abs(got-want) > 0.03*want {
		t.Errorf("sphere area mismatch. got %g, want %g within 3%%", got, want)
	}

	if got := s.Inside(r3.Vec{}, 1e-6); got != meshsolid.Inside {
		t.Errorf("sphere center classified %v, want inside", got)
	}
	if got := s.Inside(r3.Vec{X: 3 * r}, 1e-6); got != meshsolid.Outside {
		t.Errorf("distant point classified %v, want outside", got)
	}

	// Entry distance from -5cm towards the center: 40mm up to faceting error.
	d := s.DistanceToIn(r3.Vec{X: -50}, r3.Vec{X: 1})
	if math.Abs(d-40) > 0.5 {
		t.Errorf("sphere entry distance mismatch. got %g, want 40±0.5", d)
	}

	// Exit from the center lands on the surface.
	d, idx := s.DistanceToOut(r3.Vec{}, r3.Vec{Z: 1})
	if idx < 0 || math.Abs(d-r) > 0.5 {
		t.Errorf("sphere exit mismatch. got (%g,%d), want (10±0.5, valid index)", d, idx)
	}
	// The exit facet normal points away from the center.
	if n := s.Normal(idx); r3.Dot(n, r3.Vec{Z: 1}) <= 0 {
		t.Errorf("exit facet normal %v does not face outward", n)
	}
}

func BenchmarkSphereInside(b *testing.B) {
	s := sphereSolid(b, 128)
	p := r3.Vec{X: 3, Y: -2, Z: 5}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Inside(p, 1e-6)
	}
}

func BenchmarkSphereDistanceToIn(b *testing.B) {
	s := sphereSolid(b, 128)
	origin := r3.Vec{X: -50, Y: 1, Z: 2}
	dir := r3.Vec{X: 1}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.DistanceToIn(origin, dir)
	}
}

func BenchmarkSphereDistanceToOut(b *testing.B) {
	s := sphereSolid(b, 128)
	dir := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.DistanceToOut(r3.Vec{}, dir)
	}
}

func BenchmarkSphereSurfacePoint(b *testing.B) {
	s := sphereSolid(b, 128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		u := float64(i%1024) / 1024
		_ = s.SurfacePoint(u, 0.3, 0.4)
	}
}

func BenchmarkNewSortedFacets(b *testing.B) {
	object, err := sdf.Sphere3D(1)
	if err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(b.TempDir(), "sphere.stl")
	sdfxrender.ToSTL(object, 128, path, &sdfxrender.MarchingCubesOctree{})
	coords, err := meshsolid.LoadSTL(path)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := meshsolid.NewSortedFacets(coords); err != nil {
			b.Fatal(err)
		}
	}
}
