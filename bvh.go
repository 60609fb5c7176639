package meshsolid

import (
	"sort"

	"github.com/ostral/meshsolid/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// ray is a query ray with the precomputed inverse direction used by the
// slab test. Zero direction components yield ±Inf inverses, which the
// IEEE slab arithmetic handles without special cases.
type ray struct {
	origin r3.Vec
	dir    r3.Vec
	invDir r3.Vec
}

func newRay(origin, dir r3.Vec) ray {
	return ray{
		origin: origin,
		dir:    dir,
		invDir: r3.Vec{X: 1 / dir.X, Y: 1 / dir.Y, Z: 1 / dir.Z},
	}
}

// hits reports whether the ray intersects the box. The ray origin lying
// inside the box counts as a hit.
func (r ray) hits(b d3.Box) bool {
	lo := d3.MulElem(r3.Sub(b.Min, r.origin), r.invDir)
	hi := d3.MulElem(r3.Sub(b.Max, r.origin), r.invDir)
	tmin := d3.Max(d3.MinElem(lo, hi))
	if tmin < 0 {
		tmin = 0
	}
	tmax := d3.Min(d3.MaxElem(lo, hi))
	return tmax >= tmin
}

// bvhNode is a tagged variant: a leaf references exactly one facet, an
// internal node references two children with their bounding boxes. Children
// and facets are stored as indices so the tree never owns geometry.
type bvhNode struct {
	// Children of an internal node. left is leafSentinel for leaves.
	left, right       int
	leftBox, rightBox d3.Box
	// Facet index of a leaf, -1 for internal nodes.
	facet int
}

const leafSentinel = -1

func (n *bvhNode) isLeaf() bool { return n.left == leafSentinel }

// bvh is a binary bounding volume hierarchy over a facet slice. Node 0 is
// the root. The tree is built once and read-only afterwards.
type bvh struct {
	nodes []bvhNode
}

// buildBVH constructs the hierarchy top-down by median split along the axis
// of largest centroid spread, falling back to the largest box extent when
// the centroids coincide. Every facet lands in exactly one single-facet
// leaf, and each facet records its leaf's node index.
func buildBVH(facets []Facet) bvh {
	n := len(facets)
	if n == 0 {
		return bvh{}
	}
	order := make([]int, n)
	boxes := make([]d3.Box, n)
	cents := make([]r3.Vec, n)
	for i := range facets {
		order[i] = i
		boxes[i] = facets[i].aabb()
		cents[i] = facets[i].centroid()
	}
	t := bvh{nodes: make([]bvhNode, 0, 2*n-1)}
	t.split(facets, order, boxes, cents)
	return t
}

// split appends the subtree covering order to the node arena and returns
// the new subtree's root index and bounding box.
func (t *bvh) split(facets []Facet, order []int, boxes []d3.Box, cents []r3.Vec) (int, d3.Box) {
	if len(order) == 1 {
		fi := order[0]
		ni := len(t.nodes)
		t.nodes = append(t.nodes, bvhNode{left: leafSentinel, right: leafSentinel, facet: fi})
		facets[fi].node = ni
		return ni, boxes[fi]
	}

	cmin := cents[order[0]]
	cmax := cmin
	bb := boxes[order[0]]
	for _, fi := range order[1:] {
		cmin = d3.MinElem(cmin, cents[fi])
		cmax = d3.MaxElem(cmax, cents[fi])
		bb = bb.Extend(boxes[fi])
	}
	axis := widestAxis(r3.Sub(cmax, cmin))
	if spread := r3.Sub(cmax, cmin); axisValue(spread, axis) == 0 {
		axis = widestAxis(bb.Size())
	}
	sort.Slice(order, func(i, j int) bool {
		return axisValue(cents[order[i]], axis) < axisValue(cents[order[j]], axis)
	})
	mid := len(order) / 2

	ni := len(t.nodes)
	t.nodes = append(t.nodes, bvhNode{facet: -1})
	li, lb := t.split(facets, order[:mid], boxes, cents)
	ri, rb := t.split(facets, order[mid:], boxes, cents)
	t.nodes[ni] = bvhNode{left: li, right: ri, leftBox: lb, rightBox: rb, facet: -1}
	return ni, lb.Extend(rb)
}

func widestAxis(v r3.Vec) int {
	axis := 0
	if v.Y > v.X && v.Y >= v.Z {
		axis = 1
	} else if v.Z > v.X && v.Z > v.Y {
		axis = 2
	}
	return axis
}

func axisValue(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
