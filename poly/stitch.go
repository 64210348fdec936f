package poly

import "math"

// StitchOptions control the fuzzy endpoint joining.
type StitchOptions struct {
	// Epsilon is the endpoint matching distance and the cell size of
	// the spatial index.
	Epsilon float64
	// JoinCycles embeds cycles sharing a point into each other and
	// into open polylines.
	JoinCycles bool
	// ReverseAllowed permits joining two polylines end-to-end or
	// start-to-start by reversing one of them.
	ReverseAllowed bool
}

// Stitch joins polylines whose endpoints coincide, exactly first and
// then within epsilon, into longer paths. Open polylines whose two
// endpoints meet afterwards become cycles. The result order and every
// join decision are deterministic given the input order.
func Stitch(lines []Polyline, opt StitchOptions) []Polyline {
	s := &stitcher{opt: opt}
	s.partition(lines)
	s.joinOpen()
	s.migrateCycles()
	if opt.JoinCycles {
		s.embedCycles()
	}
	return s.result()
}

type stitcher struct {
	opt    StitchOptions
	open   []*element
	cycles []*element
	gone   map[*element]bool
	seq    int
}

func (s *stitcher) newElement(pts []Point) *element {
	e := &element{pts: pts, seq: s.seq}
	s.seq++
	return e
}

// partition splits the input into cycles and open elements. The closed
// flag always forces a closing duplicate point; an open polyline whose
// endpoints already coincide within epsilon is a cycle from the start.
func (s *stitcher) partition(lines []Polyline) {
	s.gone = map[*element]bool{}
	for _, line := range lines {
		if len(line.Points) == 0 {
			continue
		}
		pts := append([]Point{}, line.Points...)
		if line.Closed && pts[0] != pts[len(pts)-1] {
			pts = append(pts, pts[0])
		}
		e := s.newElement(pts)
		if s.isCycle(e) {
			s.snapClosed(e)
			s.cycles = append(s.cycles, e)
		} else {
			s.open = append(s.open, e)
		}
	}
}

func (s *stitcher) isCycle(e *element) bool {
	if len(e.pts) < 2 {
		return true
	}
	return e.start().SqDist(e.end()) <= s.opt.Epsilon*s.opt.Epsilon
}

func (s *stitcher) snapClosed(e *element) {
	e.pts[len(e.pts)-1] = e.pts[0]
}

// joinOpen runs the four joining passes: exact forward, exact with
// reversal, then the same two accepting any distance up to epsilon.
// Each exactness class is re-run to fixpoint before moving on.
func (s *stitcher) joinOpen() {
	for _, tol := range []float64{0, s.opt.Epsilon} {
		for {
			changed := s.joinPass(tol, false)
			if s.opt.ReverseAllowed {
				if s.joinPass(tol, true) {
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}
}

func (s *stitcher) joinPass(tol float64, reversed bool) bool {
	ix := newEndpointIndex(s.indexCell())
	for _, e := range s.open {
		if !s.gone[e] {
			ix.insert(e)
		}
	}
	changed := false
	for _, e := range s.open {
		if s.gone[e] {
			continue
		}
		for {
			other, prepend, flip := s.findJoin(ix, e, tol, reversed)
			if other == nil {
				break
			}
			ix.remove(e)
			ix.remove(other)
			if flip {
				other.reverse()
			}
			if prepend {
				e.pts = append(append([]Point{}, other.pts...), e.pts...)
			} else {
				e.pts = append(e.pts, other.pts...)
			}
			s.gone[other] = true
			ix.insert(e)
			changed = true
		}
	}
	return changed
}

// indexCell keeps the spatial cell size positive even for epsilon 0,
// where only exact matches are accepted anyway.
func (s *stitcher) indexCell() float64 {
	if s.opt.Epsilon > 0 {
		return s.opt.Epsilon
	}
	return 1
}

// findJoin locates one partner for e: another element whose start
// continues e's end or whose end precedes e's start; with reversal also
// end-to-end and start-to-start matches.
func (s *stitcher) findJoin(ix *endpointIndex, e *element, tol float64, reversed bool) (other *element, prepend, flip bool) {
	if !reversed {
		if m := ix.queryStart(e.end(), tol, e); m != nil {
			return m, false, false
		}
		if m := ix.queryEnd(e.start(), tol, e); m != nil {
			return m, true, false
		}
		return nil, false, false
	}
	if m := ix.queryEnd(e.end(), tol, e); m != nil {
		return m, false, true
	}
	if m := ix.queryStart(e.start(), tol, e); m != nil {
		return m, true, true
	}
	return nil, false, false
}

// migrateCycles moves open elements whose endpoints now coincide within
// epsilon to the cycle list, snapping the endpoint exactly equal.
func (s *stitcher) migrateCycles() {
	kept := s.open[:0]
	for _, e := range s.open {
		if s.gone[e] {
			continue
		}
		if s.isCycle(e) {
			s.snapClosed(e)
			s.cycles = append(s.cycles, e)
			continue
		}
		kept = append(kept, e)
	}
	s.open = kept
}

// signature is the exact-coordinate identity of a point. Cycle
// embedding assumes points are not referentially shared, so value
// identity is the join key.
type signature struct {
	x, y uint64
}

func sigOf(p Point) signature {
	return signature{math.Float64bits(p.X), math.Float64bits(p.Y)}
}

type sigRef struct {
	e   *element
	idx int
}

// embedCycles splices cycles sharing a point into each other, then into
// open polylines passing through one of their points.
func (s *stitcher) embedCycles() {
	// Cycle-into-cycle embedding, repeated until no pair shares a point.
	for {
		sigs := s.cycleSignatures()
		if !s.spliceOneCycle(sigs) {
			break
		}
	}
	// Cycle-into-open embedding.
	for {
		sigs := s.cycleSignatures()
		spliced := false
		for _, e := range s.open {
			if s.gone[e] {
				continue
			}
			for i := 0; i < len(e.pts); i++ {
				ref, ok := sigs[sigOf(e.pts[i])]
				if !ok || s.gone[ref.e] {
					continue
				}
				s.splice(e, i, ref.e, ref.idx)
				s.gone[ref.e] = true
				spliced = true
				break
			}
			if spliced {
				break
			}
		}
		if !spliced {
			break
		}
	}
}

// cycleSignatures maps every internal point of each surviving cycle to
// its location; the first occurrence wins.
func (s *stitcher) cycleSignatures() map[signature]sigRef {
	sigs := map[signature]sigRef{}
	for _, c := range s.cycles {
		if s.gone[c] {
			continue
		}
		for i := 0; i < len(c.pts)-1; i++ {
			sig := sigOf(c.pts[i])
			if _, ok := sigs[sig]; !ok {
				sigs[sig] = sigRef{c, i}
			}
		}
	}
	return sigs
}

func (s *stitcher) spliceOneCycle(sigs map[signature]sigRef) bool {
	for _, c := range s.cycles {
		if s.gone[c] {
			continue
		}
		for i := 0; i < len(c.pts)-1; i++ {
			ref, ok := sigs[sigOf(c.pts[i])]
			if !ok || ref.e == c || s.gone[ref.e] {
				continue
			}
			// Splice c into the cycle registered first.
			s.splice(ref.e, ref.idx, c, i)
			s.gone[c] = true
			return true
		}
	}
	return false
}

// splice inserts cycle c, rotated so that its point at cIdx comes
// first, into host at hostIdx. The host point and the rotated cycle
// point carry the same coordinates.
func (s *stitcher) splice(host *element, hostIdx int, c *element, cIdx int) {
	ring := c.pts[:len(c.pts)-1]
	rotated := make([]Point, 0, len(ring)+1)
	rotated = append(rotated, ring[cIdx:]...)
	rotated = append(rotated, ring[:cIdx]...)
	rotated = append(rotated, ring[cIdx])

	out := make([]Point, 0, len(host.pts)+len(rotated)-1)
	out = append(out, host.pts[:hostIdx+1]...)
	out = append(out, rotated[1:]...)
	out = append(out, host.pts[hostIdx+1:]...)
	host.pts = out
}

// result materialises the surviving elements, open polylines first in
// input order, then cycles: those closed from the start in input order,
// followed by those formed by joining.
func (s *stitcher) result() []Polyline {
	var out []Polyline
	for _, e := range s.open {
		if !s.gone[e] {
			out = append(out, Polyline{Points: e.pts})
		}
	}
	for _, c := range s.cycles {
		if !s.gone[c] {
			out = append(out, Polyline{Closed: true, Points: c.pts})
		}
	}
	return out
}
