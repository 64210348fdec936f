package dxfutils

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// converter is one edge of the entity conversion graph: it rewrites a
// node of kind from into one or more nodes of kind to.
type converter struct {
	from, to string
	fn       func(n *Node) ([]*Node, error)
}

var converters = []converter{
	{"SPLINE", "LWPOLYLINE", splineToLWPolyline},
	{"POLYLINE", "LWPOLYLINE", polylineToLWPolyline},
	{"ELLIPSE", "LWPOLYLINE", ellipseToLWPolyline},
	{"LINE", "LWPOLYLINE", lineToLWPolyline},
	{"ARC", "ELLIPSE", arcToEllipse},
	{"CIRCLE", "ARC", circleToArc},
	{"LWPOLYLINE", "LINE", lwPolylineToLines},
}

// boilChains computes, per kind of the to-replace set, the shortest
// chain of conversions into the acceptable set: a breadth-first search
// from the acceptable kinds over the reverse conversion graph.
func boilChains(acceptable, toReplace []string) (map[string][]converter, error) {
	accepted := map[string]bool{}
	for _, k := range acceptable {
		accepted[k] = true
	}

	reverse := map[string][]converter{}
	for _, c := range converters {
		reverse[c.to] = append(reverse[c.to], c)
	}

	chains := map[string][]converter{}
	queue := append([]string{}, acceptable...)
	for _, k := range acceptable {
		chains[k] = []converter{}
	}
	for len(queue) > 0 {
		kind := queue[0]
		queue = queue[1:]
		for _, c := range reverse[kind] {
			if _, seen := chains[c.from]; seen {
				continue
			}
			chains[c.from] = append([]converter{c}, chains[kind]...)
			queue = append(queue, c.from)
		}
	}

	var unresolved []string
	for _, k := range toReplace {
		if _, ok := chains[k]; !ok {
			unresolved = append(unresolved, k)
		}
	}
	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return nil, errors.Wrapf(ErrUnsupportedEntity,
			"unable to boil down %s", strings.Join(unresolved, ", "))
	}
	return chains, nil
}

// BoilDown rewrites every entity of a to-replace kind in the ENTITIES
// and BLOCKS subtrees into entities of the acceptable set, following the
// shortest conversion chain. Replacements inherit the general attributes
// of the original for every attribute they do not set themselves.
func BoilDown(root *Node, acceptable, toReplace []string) error {
	chains, err := boilChains(acceptable, toReplace)
	if err != nil {
		return err
	}
	replace := map[string]bool{}
	for _, k := range toReplace {
		replace[k] = true
	}

	rewrite := func(v *Visit) error {
		n := v.Node()
		v.Skip = true
		if !replace[n.Name] || len(chains[n.Name]) == 0 {
			return nil
		}
		out, err := applyChain(n, chains[n.Name])
		if err != nil {
			return err
		}
		v.Replace(out...)
		return nil
	}

	if ents := root.Section("ENTITIES"); ents != nil {
		if err := Walk(ents, rewrite, nil); err != nil {
			return err
		}
	}
	if blocks := root.Section("BLOCKS"); blocks != nil {
		for _, b := range blocks.Children {
			if err := Walk(b, rewrite, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyChain(n *Node, chain []converter) ([]*Node, error) {
	work := []*Node{n}
	for _, c := range chain {
		var next []*Node
		for _, cur := range work {
			out, err := c.fn(cur)
			if err != nil {
				return nil, err
			}
			for _, o := range out {
				inheritGeneral(o, cur)
			}
			next = append(next, out...)
		}
		work = next
	}
	return work, nil
}

// newLWPolyline builds an LWPOLYLINE node from point slices.
func newLWPolyline(xs, ys []float64, closed bool) *Node {
	n := NewNode("LWPOLYLINE")
	n.SetFloatList("x", xs)
	n.SetFloatList("y", ys)
	n.SetInt("int_32", len(xs))
	flags := 0
	if closed {
		flags = 1
	}
	n.SetInt("int", flags)
	return n
}

// lwPolylinePoints reads the parallel coordinate lists of an LWPOLYLINE.
func lwPolylinePoints(n *Node) (xs, ys []float64, closed bool, err error) {
	xs, err = n.Floats("x")
	if err != nil {
		return nil, nil, false, err
	}
	ys, err = n.Floats("y")
	if err != nil {
		return nil, nil, false, err
	}
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, nil, false, errors.Wrapf(ErrInvalidPolyline,
			"LWPOLYLINE with %d x and %d y values", len(xs), len(ys))
	}
	flags, err := n.IntDefault("int", 0)
	if err != nil {
		return nil, nil, false, err
	}
	return xs, ys, flags&1 != 0, nil
}

func lineToLWPolyline(n *Node) ([]*Node, error) {
	x0, err := n.Float("x")
	if err != nil {
		return nil, err
	}
	y0, err := n.Float("y")
	if err != nil {
		return nil, err
	}
	x1, err := n.Float("x1")
	if err != nil {
		return nil, err
	}
	y1, err := n.Float("y1")
	if err != nil {
		return nil, err
	}
	return []*Node{newLWPolyline([]float64{x0, x1}, []float64{y0, y1}, false)}, nil
}

func lwPolylineToLines(n *Node) ([]*Node, error) {
	xs, ys, closed, err := lwPolylinePoints(n)
	if err != nil {
		return nil, err
	}
	var out []*Node
	segment := func(x0, y0, x1, y1 float64) {
		line := NewNode("LINE")
		line.SetFloat("x", x0)
		line.SetFloat("y", y0)
		line.SetFloat("x1", x1)
		line.SetFloat("y1", y1)
		out = append(out, line)
	}
	for i := 1; i < len(xs); i++ {
		segment(xs[i-1], ys[i-1], xs[i], ys[i])
	}
	if closed && (xs[0] != xs[len(xs)-1] || ys[0] != ys[len(ys)-1]) {
		segment(xs[len(xs)-1], ys[len(ys)-1], xs[0], ys[0])
	}
	return out, nil
}

func circleToArc(n *Node) ([]*Node, error) {
	arc := NewNode("ARC")
	for _, name := range []string{"x", "y", "float"} {
		if v, ok := n.Get(name); ok {
			arc.Attrs[name] = v
		}
	}
	arc.SetFloat("angle", 0)
	arc.SetFloat("angle1", 360)
	return []*Node{arc}, nil
}

func arcToEllipse(n *Node) ([]*Node, error) {
	r, err := n.Float("float")
	if err != nil {
		return nil, err
	}
	a1, err := n.FloatDefault("angle", 0)
	if err != nil {
		return nil, err
	}
	a2, err := n.FloatDefault("angle1", 360)
	if err != nil {
		return nil, err
	}
	el := NewNode("ELLIPSE")
	for _, name := range []string{"x", "y"} {
		if v, ok := n.Get(name); ok {
			el.Attrs[name] = v
		}
	}
	el.SetFloat("x1", r)
	el.SetFloat("y1", 0)
	el.SetFloat("float", 1) // minor-to-major ratio
	el.SetFloat("float1", a1*math.Pi/180)
	el.SetFloat("float2", a2*math.Pi/180)
	return []*Node{el}, nil
}

const angleEps = 1e-9

func ellipseToLWPolyline(n *Node) ([]*Node, error) {
	cx, err := n.Float("x")
	if err != nil {
		return nil, err
	}
	cy, err := n.Float("y")
	if err != nil {
		return nil, err
	}
	mx, err := n.Float("x1")
	if err != nil {
		return nil, err
	}
	my, err := n.Float("y1")
	if err != nil {
		return nil, err
	}
	ratio, err := n.FloatDefault("float", 1)
	if err != nil {
		return nil, err
	}
	a1, err := n.FloatDefault("float1", 0)
	if err != nil {
		return nil, err
	}
	a2, err := n.FloatDefault("float2", 2*math.Pi)
	if err != nil {
		return nil, err
	}

	// Normalise the end parameter into [start, start+2pi+eps]; a sweep
	// of zero means a full turn. This matches LibreCAD semantics.
	sweep := math.Mod(a2-a1, 2*math.Pi)
	if sweep < 0 {
		sweep += 2 * math.Pi
	}
	if sweep < angleEps {
		sweep = 2 * math.Pi
	}
	closed := sweep >= 2*math.Pi-angleEps

	r1 := math.Hypot(mx, my)
	steps := int(math.Ceil(sweep * r1))
	if steps < 20 {
		steps = 20
	}

	xs := make([]float64, steps+1)
	ys := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		t := a1 + sweep*float64(i)/float64(steps)
		sin, cos := math.Sincos(t)
		xs[i] = cx + cos*mx - sin*ratio*my
		ys[i] = cy + cos*my + sin*ratio*mx
	}
	if closed {
		// The parametric end point may be off by a rounding error;
		// a closed polyline closes exactly.
		xs[steps] = xs[0]
		ys[steps] = ys[0]
	}
	return []*Node{newLWPolyline(xs, ys, closed)}, nil
}

func splineToLWPolyline(n *Node) ([]*Node, error) {
	degree, err := n.IntDefault("int1", 3)
	if err != nil {
		return nil, err
	}
	if degree != 3 {
		return nil, errors.Wrapf(ErrNotImplemented, "SPLINE of degree %d", degree)
	}
	xs, err := n.Floats("x")
	if err != nil {
		return nil, err
	}
	ys, err := n.Floats("y")
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) || len(xs) < 4 || (len(xs)-1)%3 != 0 {
		return nil, errors.Wrapf(ErrInvalidPolyline,
			"SPLINE with %d x and %d y control points", len(xs), len(ys))
	}
	flags, err := n.IntDefault("int", 0)
	if err != nil {
		return nil, err
	}

	const steps = 20
	var ox, oy []float64
	ox = append(ox, xs[0])
	oy = append(oy, ys[0])
	for seg := 0; seg+3 < len(xs); seg += 3 {
		for j := 1; j <= steps; j++ {
			t := float64(j) / steps
			u := 1 - t
			b0 := u * u * u
			b1 := 3 * u * u * t
			b2 := 3 * u * t * t
			b3 := t * t * t
			ox = append(ox, b0*xs[seg]+b1*xs[seg+1]+b2*xs[seg+2]+b3*xs[seg+3])
			oy = append(oy, b0*ys[seg]+b1*ys[seg+1]+b2*ys[seg+2]+b3*ys[seg+3])
		}
	}
	return []*Node{newLWPolyline(ox, oy, flags&1 != 0)}, nil
}

func polylineToLWPolyline(n *Node) ([]*Node, error) {
	var xs, ys []float64
	for _, v := range n.Children {
		if v.Name != "VERTEX" {
			continue
		}
		x, err := v.Float("x")
		if err != nil {
			return nil, err
		}
		y, err := v.Float("y")
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return nil, errors.Wrap(ErrInvalidPolyline, "POLYLINE without vertices")
	}
	flags, err := n.IntDefault("int", 0)
	if err != nil {
		return nil, err
	}
	return []*Node{newLWPolyline(xs, ys, flags&1 != 0)}, nil
}
