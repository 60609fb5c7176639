package meshsolid

import (
	"fmt"
	"math"
	"sort"

	"github.com/ostral/meshsolid/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// SortedFacets is a triangulated solid indexed by a bounding volume
// hierarchy. It is built once by NewSortedFacets and immutable afterwards;
// concurrent queries need no locking.
//
// The ray-parity inside test assumes the mesh is a closed (watertight)
// manifold. This is a precondition of construction, not something queries
// verify.
type SortedFacets struct {
	facets   []Facet
	tree     bvh
	envelope d3.Box
	area     float64
}

var _ Solid = (*SortedFacets)(nil)

// NewSortedFacets builds a solid from a flat vertex coordinate list in
// centimetres: each run of 9 values is one triangle (three vertices by
// three coordinates). Coordinates are scaled to internal millimetres, the
// envelope and total area are accumulated, and the spatial index is built
// over the full facet set.
//
// A coordinate count that is not a positive multiple of 9 and degenerate
// triangles are construction errors.
func NewSortedFacets(coords []float64) (*SortedFacets, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("mesh ingestion: empty coordinate list")
	}
	if len(coords)%9 != 0 {
		return nil, fmt.Errorf("mesh ingestion: got %d coordinates, want a multiple of 9", len(coords))
	}
	s := &SortedFacets{
		facets:   make([]Facet, 0, len(coords)/9),
		envelope: d3.Empty(),
	}
	for i := 0; i < len(coords); i += 9 {
		v0 := r3.Scale(Centimetre, r3.Vec{X: coords[i], Y: coords[i+1], Z: coords[i+2]})
		v1 := r3.Scale(Centimetre, r3.Vec{X: coords[i+3], Y: coords[i+4], Z: coords[i+5]})
		v2 := r3.Scale(Centimetre, r3.Vec{X: coords[i+6], Y: coords[i+7], Z: coords[i+8]})
		f, err := newFacet(v0, v1, v2)
		if err != nil {
			return nil, fmt.Errorf("mesh ingestion: facet %d: %w", i/9, err)
		}
		s.area += f.area
		s.envelope = s.envelope.Include(v0).Include(v1).Include(v2)
		s.facets = append(s.facets, f)
	}
	s.tree = buildBVH(s.facets)
	return s, nil
}

// Facets returns the number of facets.
func (s *SortedFacets) Facets() int { return len(s.facets) }

// Facet returns the i-th facet.
func (s *SortedFacets) Facet(i int) *Facet { return &s.facets[i] }

// Area returns the total surface area of the mesh.
func (s *SortedFacets) Area() float64 { return s.area }

// Envelope returns the bounding box enclosing the whole mesh.
func (s *SortedFacets) Envelope() r3.Box { return r3.Box(s.envelope) }

// Inside classifies a point with respect to the surface. Points within
// delta of a facet are Surface; otherwise a ray cast towards +Z counts
// boundary crossings and odd parity means Inside.
func (s *SortedFacets) Inside(p r3.Vec, delta float64) Location {
	nearest := nearestMatch{distance: math.Inf(1), facet: -1}
	s.nearest(&nearest, 0, p, delta)
	if nearest.distance <= delta {
		return Surface
	}

	// Cheap rejection before the parity count.
	if !s.envelope.ApproxContains(p, delta) {
		return Outside
	}

	var crossings parityMatch
	s.crossings(&crossings, 0, newRay(p, r3.Vec{Z: 1}))
	if crossings.distinct()%2 == 1 {
		return Inside
	}
	return Outside
}

// DistanceToIn returns the distance along dir at which a ray from p enters
// the solid through a front face, or +Inf if it never intersects.
func (s *SortedFacets) DistanceToIn(p, dir r3.Vec) float64 {
	m := rayMatch{distance: math.Inf(1)}
	s.intersect(&m, 0, newRay(p, dir), sideFront)
	return m.distance
}

// DistanceToOut returns the distance along dir at which a ray from p exits
// the solid through a back face, and the index of the exit facet for use
// with Normal.
//
// Zero intersections mean the point is already on, or infinitesimally
// outside, the boundary due to rounding; the transport-engine convention
// for that case is distance 0 and facet index -1.
func (s *SortedFacets) DistanceToOut(p, dir r3.Vec) (float64, int) {
	m := rayMatch{distance: math.Inf(1), facet: -1}
	s.intersect(&m, 0, newRay(p, dir), sideBack)
	if m.count == 0 {
		return 0, -1
	}
	return m.distance, m.facet
}

// SurfaceNormal returns the unit normal of the facet nearest to p. Callers
// are expected to have classified p as Surface; far from the surface the
// result is well defined but not meaningful.
func (s *SortedFacets) SurfaceNormal(p r3.Vec, delta float64) r3.Vec {
	m := nearestMatch{distance: math.Inf(1), facet: -1}
	s.nearest(&m, 0, p, delta)
	if m.facet < 0 {
		return r3.Vec{}
	}
	return s.facets[m.facet].normal
}

// Normal returns the unit normal of the indexed facet. The index must come
// from DistanceToOut or a facet enumeration; out of range indices are a
// caller bug and panic.
func (s *SortedFacets) Normal(facet int) r3.Vec {
	return s.facets[facet].normal
}

// SurfacePoint maps three uniform variates in [0,1] to a point uniformly
// distributed over the mesh surface. u01 selects a facet by cumulative
// area inversion; u and v locate the point within the facet, folded back
// into the triangle when their sum exceeds one.
func (s *SortedFacets) SurfacePoint(u01, u, v float64) r3.Vec {
	target := u01 * s.area
	sum := 0.0
	index := len(s.facets) - 1
	for i := range s.facets {
		sum += s.facets[i].area
		if target <= sum {
			index = i
			break
		}
	}
	f := &s.facets[index]
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	dr := r3.Add(
		r3.Scale(u, r3.Sub(f.v[1], f.v[0])),
		r3.Scale(v, r3.Sub(f.v[2], f.v[0])),
	)
	return r3.Add(f.v[0], dr)
}

// Coords flattens the facets back to external-unit (centimetre) vertex
// runs of 9, the same layout NewSortedFacets accepts.
func (s *SortedFacets) Coords() []float32 {
	const inv = 1 / Centimetre
	data := make([]float32, 0, 9*len(s.facets))
	for i := range s.facets {
		for _, v := range s.facets[i].v {
			data = append(data, float32(v.X*inv), float32(v.Y*inv), float32(v.Z*inv))
		}
	}
	return data
}

// nearestMatch accumulates the closest facet found during a proximity
// traversal. It is local to one query so concurrent queries never share it.
type nearestMatch struct {
	distance float64
	facet    int
}

// nearest walks the tree recording the facet nearest to p, descending only
// into children whose box expanded by delta contains p.
func (s *SortedFacets) nearest(m *nearestMatch, node int, p r3.Vec, delta float64) {
	if len(s.tree.nodes) == 0 {
		return
	}
	n := &s.tree.nodes[node]
	if n.isLeaf() {
		d := s.facets[n.facet].Distance(p)
		if d < m.distance {
			m.distance = d
			m.facet = n.facet
		}
		return
	}
	if n.leftBox.ApproxContains(p, delta) {
		s.nearest(m, n.left, p, delta)
	}
	if n.rightBox.ApproxContains(p, delta) {
		s.nearest(m, n.right, p, delta)
	}
}

// parityMatch accumulates the crossing distances of a both-sided traversal
// used for the inside/outside parity count. A ray through an edge shared by
// two adjacent facets is reported by both; distinct collapses such
// duplicates so the crossing is counted once.
type parityMatch struct {
	distances []float64
}

// crossings walks the tree collecting every both-sided facet hit along r.
func (s *SortedFacets) crossings(m *parityMatch, node int, r ray) {
	if len(s.tree.nodes) == 0 {
		return
	}
	n := &s.tree.nodes[node]
	if n.isLeaf() {
		if d, ok := s.facets[n.facet].intersect(r, sideBoth); ok {
			m.distances = append(m.distances, d)
		}
		return
	}
	if r.hits(n.leftBox) {
		s.crossings(m, n.left, r)
	}
	if r.hits(n.rightBox) {
		s.crossings(m, n.right, r)
	}
}

// distinct returns the number of distinct crossing distances, collapsing
// values that agree to within a few ulps.
func (m *parityMatch) distinct() int {
	if len(m.distances) < 2 {
		return len(m.distances)
	}
	sort.Float64s(m.distances)
	count := 1
	last := m.distances[0]
	for _, d := range m.distances[1:] {
		if d-last > 4*machineEps*math.Max(1, d) {
			count++
			last = d
		}
	}
	return count
}

// rayMatch accumulates ray-facet intersections during a traversal: the hit
// count, the nearest hit distance and the facet that produced it.
type rayMatch struct {
	count    int
	distance float64
	facet    int
}

// intersect walks the tree collecting facet hits for r with the given
// culling mode, descending only into children whose box the ray crosses.
func (s *SortedFacets) intersect(m *rayMatch, node int, r ray, cull side) {
	if len(s.tree.nodes) == 0 {
		return
	}
	n := &s.tree.nodes[node]
	if n.isLeaf() {
		if d, ok := s.facets[n.facet].intersect(r, cull); ok {
			m.count++
			if d < m.distance {
				m.distance = d
				m.facet = n.facet
			}
		}
		return
	}
	if r.hits(n.leftBox) {
		s.intersect(m, n.left, r, cull)
	}
	if r.hits(n.rightBox) {
		s.intersect(m, n.right, r, cull)
	}
}
