package poly

import "math"

// element is a polyline wrapper tracked by the endpoint index during
// stitching. The sequence number makes query tie-breaks deterministic.
type element struct {
	pts []Point
	seq int
}

func (e *element) start() Point { return e.pts[0] }
func (e *element) end() Point   { return e.pts[len(e.pts)-1] }

func (e *element) reverse() {
	for i, j := 0, len(e.pts)-1; i < j; i, j = i+1, j-1 {
		e.pts[i], e.pts[j] = e.pts[j], e.pts[i]
	}
}

type cellKey struct {
	x, y int64
}

// endpointIndex is an epsilon-bucketed spatial map over polyline
// endpoints. Every endpoint is registered under the 4 neighbouring cell
// keys so that a lookup near a cell boundary still finds it with a
// single bucket union per dimension offset.
type endpointIndex struct {
	eps     float64
	byStart map[cellKey][]*element
	byEnd   map[cellKey][]*element
}

func newEndpointIndex(eps float64) *endpointIndex {
	return &endpointIndex{
		eps:     eps,
		byStart: map[cellKey][]*element{},
		byEnd:   map[cellKey][]*element{},
	}
}

// cells returns the 2^2 cell keys covering p and its boundary
// neighbours.
func (ix *endpointIndex) cells(p Point) [4]cellKey {
	fx := int64(math.Floor(p.X / ix.eps))
	fy := int64(math.Floor(p.Y / ix.eps))
	return [4]cellKey{
		{fx, fy},
		{fx + 1, fy},
		{fx, fy + 1},
		{fx + 1, fy + 1},
	}
}

func (ix *endpointIndex) insert(e *element) {
	for _, k := range ix.cells(e.start()) {
		ix.byStart[k] = appendOnce(ix.byStart[k], e)
	}
	for _, k := range ix.cells(e.end()) {
		ix.byEnd[k] = appendOnce(ix.byEnd[k], e)
	}
}

func (ix *endpointIndex) remove(e *element) {
	for _, k := range ix.cells(e.start()) {
		ix.byStart[k] = drop(ix.byStart[k], e)
	}
	for _, k := range ix.cells(e.end()) {
		ix.byEnd[k] = drop(ix.byEnd[k], e)
	}
}

func appendOnce(list []*element, e *element) []*element {
	for _, x := range list {
		if x == e {
			return list
		}
	}
	return append(list, e)
}

func drop(list []*element, e *element) []*element {
	out := list[:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// queryStart returns the element whose start point is closest to p
// within maxDist, excluding exclude. Ties break towards the element
// inserted first, so results are deterministic given insertion order.
func (ix *endpointIndex) queryStart(p Point, maxDist float64, exclude *element) *element {
	return ix.query(ix.byStart, p, maxDist, exclude, (*element).start)
}

// queryEnd is queryStart over the end-point map.
func (ix *endpointIndex) queryEnd(p Point, maxDist float64, exclude *element) *element {
	return ix.query(ix.byEnd, p, maxDist, exclude, (*element).end)
}

func (ix *endpointIndex) query(m map[cellKey][]*element, p Point, maxDist float64, exclude *element, at func(*element) Point) *element {
	var (
		best     *element
		bestDist = maxDist * maxDist
		found    bool
	)
	seen := map[*element]bool{}
	for _, k := range ix.cells(p) {
		for _, e := range m[k] {
			if e == exclude || seen[e] {
				continue
			}
			seen[e] = true
			d := p.SqDist(at(e))
			if d > bestDist {
				continue
			}
			if !found || d < bestDist || e.seq < best.seq {
				best, bestDist, found = e, d, true
			}
		}
	}
	return best
}
