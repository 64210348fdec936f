// Package poly post-processes the polylines extracted from a drawing so
// that a knife cutter traces them efficiently: fuzzy endpoint stitching,
// cycle embedding, coarsening, overlap for closed figures and a
// deterministic multi-criteria ordering.
package poly

import (
	"math"

	"github.com/tkremer/dxfutils/utils"
)

// Point is a 2D point in drawing units.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// SqDist returns the squared distance between p and q.
func (p Point) SqDist(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Sqrt(p.SqDist(q)) }

// Norm returns the length of p taken as a vector.
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Unit returns the unit vector of p, or the zero point for a zero vector.
func (p Point) Unit() Point {
	n := p.Norm()
	if n == 0 {
		return Point{}
	}
	return Point{p.X / n, p.Y / n}
}

// Polyline is an open or closed chain of points. A closed polyline
// duplicates its first point at the end once it reaches the stages that
// rely on it.
type Polyline struct {
	Closed bool
	Points []Point
}

// Translate shifts every point by d.
func (p *Polyline) Translate(d Point) {
	for i := range p.Points {
		p.Points[i] = p.Points[i].Add(d)
	}
}

// Scale multiplies every point by s.
func (p *Polyline) Scale(s float64) {
	for i := range p.Points {
		p.Points[i] = p.Points[i].Scale(s)
	}
}

// Reverse flips the point order in place.
func (p *Polyline) Reverse() {
	pts := p.Points
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// Length returns the total path length.
func (p *Polyline) Length() float64 {
	var sum float64
	for i := 1; i < len(p.Points); i++ {
		sum += p.Points[i].Dist(p.Points[i-1])
	}
	return sum
}

// Coarsen drops interior points closer than d to the previously
// retained point. The endpoints always survive.
func (p *Polyline) Coarsen(d float64) {
	if len(p.Points) < 3 || d <= 0 {
		return
	}
	dd := d * d
	kept := p.Points[:1]
	for i := 1; i < len(p.Points)-1; i++ {
		if p.Points[i].SqDist(kept[len(kept)-1]) < dd {
			continue
		}
		kept = append(kept, p.Points[i])
	}
	kept = append(kept, p.Points[len(p.Points)-1])
	p.Points = kept
}

// Translate shifts every polyline by d.
func Translate(lines []Polyline, d Point) {
	for i := range lines {
		lines[i].Translate(d)
	}
}

// Scale multiplies every polyline by s.
func Scale(lines []Polyline, s float64) {
	for i := range lines {
		lines[i].Scale(s)
	}
}

// Coarsen applies per-polyline coarsening with threshold d.
func Coarsen(lines []Polyline, d float64) {
	for i := range lines {
		lines[i].Coarsen(d)
	}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Bounds returns the bounding box of the polyline. A polyline without
// points yields the empty inverted box.
func (p *Polyline) Bounds() Rect {
	r := Rect{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, pt := range p.Points {
		r.MinX = utils.Min(r.MinX, pt.X)
		r.MinY = utils.Min(r.MinY, pt.Y)
		r.MaxX = utils.Max(r.MaxX, pt.X)
		r.MaxY = utils.Max(r.MaxY, pt.Y)
	}
	return r
}

// Bounds returns the common bounding box of all polylines.
func Bounds(lines []Polyline) Rect {
	r := Rect{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for i := range lines {
		b := lines[i].Bounds()
		r.MinX = utils.Min(r.MinX, b.MinX)
		r.MinY = utils.Min(r.MinY, b.MinY)
		r.MaxX = utils.Max(r.MaxX, b.MaxX)
		r.MaxY = utils.Max(r.MaxY, b.MaxY)
	}
	return r
}

// Inside reports whether r lies strictly inside s.
func (r Rect) Inside(s Rect) bool {
	return r.MinX > s.MinX && r.MinY > s.MinY && r.MaxX < s.MaxX && r.MaxY < s.MaxY
}

// AddOverlap reopens a closed polyline and appends a re-trace of its
// own path so that the knife cuts at least overlap length past the
// closing point, wrapping around the figure as often as it takes. A
// vertex reached within twice the overlap ends the re-trace; otherwise
// the final segment is cut so the appended length is exactly overlap.
func (p *Polyline) AddOverlap(overlap float64) {
	if !p.Closed || overlap <= 0 || len(p.Points) < 2 {
		return
	}
	pts := p.Points
	if pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	ring := pts[:len(pts)-1]
	var total float64
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Dist(pts[i])
	}
	if total == 0 {
		return
	}
	var sum float64
	for i := 1; ; i++ {
		prev := ring[(i-1)%len(ring)]
		next := ring[i%len(ring)]
		seg := prev.Dist(next)
		if sum+seg >= overlap {
			if sum+seg <= 2*overlap {
				pts = append(pts, next)
			} else {
				need := overlap - sum
				dir := next.Sub(prev).Unit()
				pts = append(pts, prev.Add(dir.Scale(need)))
			}
			break
		}
		sum += seg
		pts = append(pts, next)
	}
	p.Points = pts
	p.Closed = false
}

// AddOverlap reopens every closed polyline with the given overlap.
func AddOverlap(lines []Polyline, overlap float64) {
	for i := range lines {
		lines[i].AddOverlap(overlap)
	}
}
