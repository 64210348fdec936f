package dxfutils

import (
	"math"

	"github.com/pkg/errors"
)

// insertTransform captures one resolved INSERT placement.
type insertTransform struct {
	anchorX, anchorY float64
	scaleX, scaleY   float64
	rotSin, rotCos   float64
	dx, dy           float64
}

func (t *insertTransform) apply(x, y float64) (float64, float64) {
	px := (x - t.anchorX) * t.scaleX
	py := (y - t.anchorY) * t.scaleY
	// Rotation follows the device convention with the y axis growing
	// downwards, so a positive angle turns clockwise in model space.
	rx := px*t.rotCos + py*t.rotSin
	ry := -px*t.rotSin + py*t.rotCos
	return t.dx + rx, t.dy + ry
}

// flattenable lists the block child entities the flattener can place.
var flattenable = map[string]bool{
	"LINE":       true,
	"SPLINE":     true,
	"POINT":      true,
	"LWPOLYLINE": true,
}

// Flatten resolves every INSERT in the document into transformed copies
// of the referenced block's entities, honouring per-axis scale, rotation
// and the row/column array. Blocks referencing themselves, directly or
// through another block, are rejected. Afterwards the BLOCKS section is
// emptied; block definitions only live for the duration of the pass.
func Flatten(root *Node) error {
	defs := map[string]*Node{}
	if blocks := root.Section("BLOCKS"); blocks != nil {
		for _, b := range blocks.Children {
			if b.Name == "BLOCK" {
				defs[b.Text("name")] = b
			}
		}
	}

	f := &flattener{defs: defs, state: map[string]int{}}
	for name := range defs {
		if err := f.finishBlock(name); err != nil {
			return err
		}
	}
	if ents := root.Section("ENTITIES"); ents != nil {
		if err := f.expandInserts(ents); err != nil {
			return err
		}
	}
	if blocks := root.Section("BLOCKS"); blocks != nil {
		blocks.Children = nil
	}
	return nil
}

type flattener struct {
	defs map[string]*Node
	// state tracks per-block progress: absent = untouched,
	// 1 = being walked into, 2 = finished.
	state map[string]int
}

const (
	blockWalking = 1
	blockDone    = 2
)

// finishBlock resolves the INSERTs inside one block definition so that
// later expansions only ever copy primitive entities.
func (f *flattener) finishBlock(name string) error {
	switch f.state[name] {
	case blockDone:
		return nil
	case blockWalking:
		return errors.Wrapf(ErrBadInput, "recursive reference to block %q", name)
	}
	f.state[name] = blockWalking
	if err := f.expandInserts(f.defs[name]); err != nil {
		return err
	}
	f.state[name] = blockDone
	return nil
}

// expandInserts replaces every INSERT child of n with the transformed
// entities of the referenced block.
func (f *flattener) expandInserts(n *Node) error {
	return Walk(n, func(v *Visit) error {
		v.Skip = true
		ins := v.Node()
		if ins.Name != "INSERT" {
			return nil
		}
		out, err := f.expand(ins)
		if err != nil {
			return err
		}
		v.Replace(out...)
		return nil
	}, nil)
}

func (f *flattener) expand(ins *Node) ([]*Node, error) {
	name := ins.Text("name")
	block, ok := f.defs[name]
	if !ok {
		return nil, errors.Wrapf(ErrBadInput, "INSERT references unknown block %q", name)
	}
	if err := f.finishBlock(name); err != nil {
		return nil, err
	}

	t := insertTransform{}
	var err error
	if t.anchorX, err = block.FloatDefault("x", 0); err != nil {
		return nil, err
	}
	if t.anchorY, err = block.FloatDefault("y", 0); err != nil {
		return nil, err
	}
	if t.dx, err = ins.FloatDefault("x", 0); err != nil {
		return nil, err
	}
	if t.dy, err = ins.FloatDefault("y", 0); err != nil {
		return nil, err
	}
	if t.scaleX, err = ins.FloatDefault("float1", 1); err != nil {
		return nil, err
	}
	if t.scaleY, err = ins.FloatDefault("float2", 1); err != nil {
		return nil, err
	}
	rot, err := ins.FloatDefault("angle", 0)
	if err != nil {
		return nil, err
	}
	t.rotSin, t.rotCos = math.Sincos(rot * math.Pi / 180)

	cols, err := ins.IntDefault("int", 1)
	if err != nil {
		return nil, err
	}
	rows, err := ins.IntDefault("int1", 1)
	if err != nil {
		return nil, err
	}
	colSpacing, err := ins.FloatDefault("float4", 0)
	if err != nil {
		return nil, err
	}
	rowSpacing, err := ins.FloatDefault("float5", 0)
	if err != nil {
		return nil, err
	}
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	baseX, baseY := t.dx, t.dy
	var out []*Node
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			t.dx = baseX + float64(col)*colSpacing
			t.dy = baseY + float64(row)*rowSpacing
			for _, child := range block.Children {
				placed, err := placeEntity(child, &t)
				if err != nil {
					return nil, err
				}
				inheritGeneral(placed, ins)
				out = append(out, placed)
			}
		}
	}
	return out, nil
}

// placeEntity clones one block child and transforms every coordinate
// pair family it carries.
func placeEntity(n *Node, t *insertTransform) (*Node, error) {
	if !flattenable[n.Name] {
		return nil, errors.Wrapf(ErrNotImplemented, "cannot flatten block child %s", n.Name)
	}
	if len(n.Children) > 0 {
		return nil, errors.Wrapf(ErrNotImplemented, "block child %s has child nodes", n.Name)
	}
	c := n.Clone()
	for i := 0; i < 9; i++ {
		xname := indexedName("x", i)
		yname := indexedName("y", i)
		_, hasX := c.Get(xname)
		_, hasY := c.Get(yname)
		if !hasX && !hasY {
			continue
		}
		xs, err := c.Floats(xname)
		if err != nil {
			return nil, err
		}
		ys, err := c.Floats(yname)
		if err != nil {
			return nil, err
		}
		if len(xs) != len(ys) {
			return nil, errors.Wrapf(ErrInvalidPolyline,
				"%s: %d %s values versus %d %s values", n.Name, len(xs), xname, len(ys), yname)
		}
		for j := range xs {
			xs[j], ys[j] = t.apply(xs[j], ys[j])
		}
		if v, _ := c.Get(xname); v.IsList() {
			c.SetFloatList(xname, xs)
			c.SetFloatList(yname, ys)
		} else {
			c.SetFloat(xname, xs[0])
			c.SetFloat(yname, ys[0])
		}
	}
	return c, nil
}
