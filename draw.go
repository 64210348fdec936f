package dxfutils

// PathSink is the operator callback contract for the external PDF
// content-stream walker: the rasterisation front-end replays each page
// as move/line/curve/rect operators into a sink. Coordinates arrive in
// the walker's user space.
type PathSink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	// CurveTo appends a cubic Bézier segment with two control points.
	CurveTo(x1, y1, x2, y2, x3, y3 float64)
	Rect(x, y, w, h float64)
	ClosePath()
}

// DXFBuilder collects the operators of a PathSink into DXF entities:
// straight runs become LWPOLYLINE, runs containing curves become
// SPLINE. The result plugs directly into the conversion pipeline.
type DXFBuilder struct {
	layer string

	xs, ys  []float64
	curved  bool
	started bool
	closed  bool
	ents    []*Node
}

// NewDXFBuilder returns a builder tagging every entity with the given
// layer name.
func NewDXFBuilder(layer string) *DXFBuilder {
	return &DXFBuilder{layer: layer}
}

var _ PathSink = (*DXFBuilder)(nil)

// MoveTo finishes the current run and starts a new one.
func (b *DXFBuilder) MoveTo(x, y float64) {
	b.flush()
	b.started = true
	b.xs = append(b.xs, x)
	b.ys = append(b.ys, y)
}

// LineTo extends the current run by one straight segment.
func (b *DXFBuilder) LineTo(x, y float64) {
	if !b.started {
		b.MoveTo(x, y)
		return
	}
	b.xs = append(b.xs, x)
	b.ys = append(b.ys, y)
}

// CurveTo extends the current run by one cubic segment; the run is
// promoted to a SPLINE on flush.
func (b *DXFBuilder) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !b.started {
		b.MoveTo(x1, y1)
	}
	b.xs = append(b.xs, x1, x2, x3)
	b.ys = append(b.ys, y1, y2, y3)
	b.curved = true
}

// Rect emits a standalone closed rectangle run.
func (b *DXFBuilder) Rect(x, y, w, h float64) {
	b.flush()
	b.xs = []float64{x, x + w, x + w, x}
	b.ys = []float64{y, y, y + h, y + h}
	b.started = true
	b.ClosePath()
}

// ClosePath marks the current run closed and finishes it.
func (b *DXFBuilder) ClosePath() {
	b.closed = true
	b.flush()
}

func (b *DXFBuilder) flush() {
	if len(b.xs) > 1 {
		var n *Node
		if b.curved {
			n = NewNode("SPLINE")
			n.SetFloatList("x", b.xs)
			n.SetFloatList("y", b.ys)
			n.SetInt("int1", 3)
			flags := 0
			if b.closed {
				flags = 1
			}
			n.SetInt("int", flags)
		} else {
			n = newLWPolyline(b.xs, b.ys, b.closed)
		}
		if b.layer != "" {
			n.Set("layer", b.layer)
		}
		b.ents = append(b.ents, n)
	}
	b.xs, b.ys = nil, nil
	b.curved, b.started, b.closed = false, false, false
}

// Document finishes any open run and returns a canonical document
// whose ENTITIES section holds the collected entities.
func (b *DXFBuilder) Document() (*Node, error) {
	b.flush()
	root := NewNode("")
	if err := Canonicalize(root, false); err != nil {
		return nil, err
	}
	ents := root.Section("ENTITIES")
	ents.Children = append(ents.Children, b.ents...)
	return root, nil
}
