// Package meshsolid represents triangulated surfaces as spatially indexed
// solids and answers the geometric queries a Monte Carlo particle-transport
// engine issues during stepping: point classification, ray entry and exit
// distances, surface normals and uniform surface sampling.
//
// Solids are built once from vertex data and are immutable afterwards; all
// queries are pure functions of the built state and are safe for concurrent
// use.
package meshsolid

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Length conversion constants applied to incoming vertex data. Internal
// lengths are millimetres, matching the convention of the transport engines
// this package serves.
const (
	// Centimetre is millimetres per centimetre. Mesh vertex data is
	// expected in centimetres and is scaled by this factor on ingestion.
	Centimetre = 10.0
	// Millimetre is the internal unit.
	Millimetre = 1.0
)

// Location classifies a point relative to a solid's surface.
type Location int

const (
	// Outside means the point is farther than the query tolerance from the
	// surface and not enclosed by it.
	Outside Location = iota
	// Surface means the point is within the query tolerance of a facet.
	Surface
	// Inside means the point is enclosed by the surface.
	Inside
)

// String returns a human readable location name.
func (l Location) String() string {
	switch l {
	case Outside:
		return "outside"
	case Surface:
		return "surface"
	case Inside:
		return "inside"
	}
	return "unknown"
}

// Solid is the geometric oracle a transport engine queries while stepping
// particles through a volume. SortedFacets implements Solid for arbitrary
// triangulated surfaces; native primitives (boxes, spheres, tubes) are
// provided by the engine itself.
//
// Directions passed to DistanceToIn and DistanceToOut need not be unit
// length; reported distances are in units of the direction's length.
type Solid interface {
	// Inside classifies a point as Outside, Surface or Inside using the
	// caller-supplied surface tolerance delta.
	Inside(p r3.Vec, delta float64) Location
	// DistanceToIn returns the distance along dir at which a ray from p
	// first enters the solid, or +Inf if it never does.
	DistanceToIn(p, dir r3.Vec) float64
	// DistanceToOut returns the distance along dir at which a ray from p
	// exits the solid and the index of the exit facet. A point already on
	// (or just outside) the boundary yields distance 0 and facet index -1.
	DistanceToOut(p, dir r3.Vec) (float64, int)
	// SurfaceNormal returns the outward unit normal of the facet nearest
	// to p. The caller is expected to have classified p as Surface.
	SurfaceNormal(p r3.Vec, delta float64) r3.Vec
	// Normal returns the outward unit normal of the indexed facet.
	Normal(facet int) r3.Vec
	// SurfacePoint maps three uniform variates in [0,1] to a uniformly
	// distributed point on the surface.
	SurfacePoint(u01, u, v float64) r3.Vec
	// Area returns the total surface area.
	Area() float64
	// Envelope returns the axis-aligned bounding box of the solid.
	Envelope() r3.Box
}
