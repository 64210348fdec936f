package camm

import (
	"math"

	"github.com/tkremer/dxfutils/poly"
	"github.com/tkremer/dxfutils/utils"
)

// CutOptions parameterise the knife-offset compensation. All lengths
// are in device units.
type CutOptions struct {
	// Offset is the distance by which the blade trails the carriage.
	// Zero disables compensation entirely.
	Offset float64
	// Epsilon drops points this close to the current knife position.
	Epsilon float64
	// SmallAngle (radians) and ShortLine bound the corners that pass
	// as interpolation points: a turn sharper than SmallAngle or a
	// segment longer than ShortLine gets a blade-turning arc.
	SmallAngle float64
	ShortLine  float64
	// OffsetlessStart starts each path on its first point instead of
	// overshooting along the previous direction.
	OffsetlessStart bool
	// AlignKnife carries the blade direction across paths so the
	// first corner of a path can turn the blade in place.
	AlignKnife bool
	// Relative emits uncompensated polylines in relative coordinates.
	Relative bool
}

// Cutter drives an Emitter through polylines, keeping track of where
// the blade actually is (trailing the carriage by the offset) versus
// where the carriage is commanded to go.
type Cutter struct {
	e   *Emitter
	opt CutOptions

	knife  poly.Point
	dir    poly.Point
	hasDir bool
}

// NewCutter returns a cutter issuing commands through e.
func NewCutter(e *Emitter, opt CutOptions) *Cutter {
	return &Cutter{e: e, opt: opt}
}

// CutAll traces every polyline in order.
func (c *Cutter) CutAll(lines []poly.Polyline) error {
	for i := range lines {
		if err := c.Cut(&lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// Cut traces one polyline. With a zero offset the path is emitted
// directly; otherwise every corner sharp or long enough gets an arc
// centred on the blade position that swivels the blade into the new
// direction before the carriage overshoots along it.
func (c *Cutter) Cut(line *poly.Polyline) error {
	pts := line.Points
	if len(pts) == 0 {
		return nil
	}
	if line.Closed && pts[0] != pts[len(pts)-1] {
		pts = append(append([]poly.Point{}, pts...), pts[0])
	}
	if c.opt.Offset <= 0 {
		return c.direct(pts)
	}

	if !c.opt.AlignKnife {
		c.hasDir = false
	}
	start := pts[0]
	if c.hasDir && !c.opt.OffsetlessStart {
		if err := c.e.MoveTo(start.Add(c.dir.Scale(c.opt.Offset))); err != nil {
			return err
		}
	} else {
		if err := c.e.MoveTo(start); err != nil {
			return err
		}
	}
	c.knife = start

	epsSq := c.opt.Epsilon * c.opt.Epsilon
	for _, pt := range pts[1:] {
		if pt.SqDist(c.knife) <= epsSq {
			continue
		}
		seg := pt.Sub(c.knife)
		dir := seg.Unit()
		if c.hasDir {
			turn := angleBetween(c.dir, dir)
			if utils.Abs(turn) > c.opt.SmallAngle || seg.Norm() > c.opt.ShortLine {
				if err := c.e.Arc(c.knife, turn*180/math.Pi); err != nil {
					return err
				}
			}
		}
		if err := c.e.LineTo(pt.Add(dir.Scale(c.opt.Offset))); err != nil {
			return err
		}
		c.knife = pt
		c.dir = dir
		c.hasDir = true
	}
	return nil
}

// direct emits a polyline without compensation: a travel to the first
// point and one polyline-to through the rest.
func (c *Cutter) direct(pts []poly.Point) error {
	if err := c.e.MoveTo(pts[0]); err != nil {
		return err
	}
	if len(pts) == 1 {
		return nil
	}
	if !c.opt.Relative {
		return c.e.PolylineTo(pts[1:])
	}
	deltas := make([]poly.Point, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		deltas[i-1] = pts[i].Sub(pts[i-1])
	}
	if err := c.e.PolylineToRel(deltas); err != nil {
		return err
	}
	// Leave the device in absolute mode for the next travel.
	return c.e.require(setModeAbs)
}

// angleBetween returns the signed turn from a to b in radians,
// counter-clockwise positive.
func angleBetween(a, b poly.Point) float64 {
	cross := a.X*b.Y - a.Y*b.X
	dot := a.X*b.X + a.Y*b.Y
	return math.Atan2(cross, dot)
}
