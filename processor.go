package dxfutils

import (
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/tkremer/dxfutils/camm"
	"github.com/tkremer/dxfutils/poly"
)

// CutterDefaults are the device parameters a profile can override.
type CutterDefaults struct {
	Speed float64
	Force int
	Tool  int
}

// Processor holds the options of the DXF to CAMM-GL pipeline. All
// lengths are in millimetres; the emitter output is in device units.
type Processor struct {
	Offset          float64
	OffsetlessStart bool
	AlignKnife      bool
	Overlap         float64
	BBox            float64
	Raw             bool
	Relative        bool
	Epsilon         float64
	ShortLine       float64
	SmallAngleDeg   float64
	Coarsify        float64
	Combine         bool
	CombineCycles   bool
	CombineReverse  bool
	Translate       poly.Point
	Scale           float64
	SortCriteria    string
	// SortCrudeness is the quantisation step of the numeric sort
	// criteria so that near-equal coordinates tie.
	SortCrudeness float64

	// Layers and Colors filter entities before conversion, using the
	// +/- include/exclude criterion syntax.
	Layers string
	Colors string

	Defaults CutterDefaults

	// LiveSink enables the emitter's idle-timeout guard; set it when
	// writing to a device rather than a buffer or file.
	LiveSink         bool
	DisableIdleGuard bool

	// Warn receives tolerated oddities from every stage.
	Warn WarnFunc
}

// NewProcessor returns a processor with the defaults of the command
// line pipeline.
func NewProcessor() *Processor {
	return &Processor{
		AlignKnife:    true,
		Combine:       true,
		Epsilon:       1e-4,
		ShortLine:     0.5,
		SmallAngleDeg: 10,
		Scale:         1,
		SortCrudeness: 1,
	}
}

// Process reads a DXF document and writes the CAMM-GL cutting program
// for it.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	parser := &Parser{Warn: p.Warn}
	root, err := parser.Parse(r)
	if err != nil {
		return err
	}
	lines, err := p.Prepare(root)
	if err != nil {
		return err
	}
	return p.Emit(w, lines)
}

// Prepare runs the tree transformations and the polyline post-processing,
// returning the figures in millimetres, ready to emit.
func (p *Processor) Prepare(root *Node) ([]poly.Polyline, error) {
	if err := Canonicalize(root, false); err != nil {
		return nil, err
	}
	if err := p.applyFilters(root); err != nil {
		return nil, err
	}
	if err := Flatten(root); err != nil {
		return nil, err
	}
	acceptable := []string{"POINT", "LWPOLYLINE"}
	if err := BoilDown(root, acceptable, entityKinds(root, acceptable)); err != nil {
		return nil, err
	}
	Strip(root)

	lines, err := ExtractPolylines(root, p.Warn)
	if err != nil {
		return nil, err
	}
	return p.postProcess(lines)
}

func (p *Processor) applyFilters(root *Node) error {
	apply := func(criterion string, f func([]string, bool)) error {
		if criterion == "" {
			return nil
		}
		include := false
		switch {
		case strings.HasPrefix(criterion, "+"):
			include = true
			criterion = criterion[1:]
		case strings.HasPrefix(criterion, "-"):
			criterion = criterion[1:]
		}
		if criterion == "" {
			return errors.Wrap(ErrInvalidArgument, "empty filter criterion")
		}
		f(strings.Split(criterion, ","), include)
		return nil
	}
	if err := apply(p.Layers, func(vals []string, inc bool) { FilterByLayer(root, vals, inc) }); err != nil {
		return err
	}
	return apply(p.Colors, func(vals []string, inc bool) { FilterByColor(root, vals, inc) })
}

// entityKinds collects the entity kinds present in ENTITIES and BLOCKS
// that are not already acceptable.
func entityKinds(root *Node, acceptable []string) []string {
	ok := map[string]bool{}
	for _, k := range acceptable {
		ok[k] = true
	}
	seen := map[string]bool{}
	var kinds []string
	collect := func(n *Node) {
		for _, c := range n.Children {
			if !ok[c.Name] && !seen[c.Name] {
				seen[c.Name] = true
				kinds = append(kinds, c.Name)
			}
		}
	}
	if ents := root.Section("ENTITIES"); ents != nil {
		collect(ents)
	}
	if blocks := root.Section("BLOCKS"); blocks != nil {
		for _, b := range blocks.Children {
			collect(b)
		}
	}
	return kinds
}

// postProcess applies the cutting-order pipeline: stitch, place, coarsen,
// sort, then the calibration cut, the bounding frame and the overlap.
func (p *Processor) postProcess(lines []poly.Polyline) ([]poly.Polyline, error) {
	if p.Combine {
		lines = poly.Stitch(lines, poly.StitchOptions{
			Epsilon:        p.Epsilon,
			JoinCycles:     p.CombineCycles,
			ReverseAllowed: p.CombineReverse,
		})
	}
	if p.Translate != (poly.Point{}) {
		poly.Translate(lines, p.Translate)
	}
	if p.Scale != 1 {
		poly.Scale(lines, p.Scale)
	}
	if p.Coarsify > 0 {
		poly.Coarsen(lines, p.Coarsify)
	}

	// Degenerate figures have no extent to cut and would poison the
	// bounding-box stages.
	kept := lines[:0]
	for _, l := range lines {
		if len(l.Points) >= 2 {
			kept = append(kept, l)
		} else {
			p.Warn.warnf("dropping degenerate polyline")
		}
	}
	lines = kept

	if p.SortCriteria != "" {
		if err := poly.Sort(lines, p.SortCriteria, p.SortCrudeness); err != nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "sort: %v", err)
		}
	}
	if p.Offset > 0 {
		lines = append([]poly.Polyline{calibrationCut()}, lines...)
	}
	if p.BBox > 0 {
		lines = append(lines, frame(poly.Bounds(lines), p.BBox))
	}
	if p.Overlap > 0 {
		poly.AddOverlap(lines, p.Overlap)
	}
	return lines, nil
}

// calibrationCut is a short straight cut near the origin that settles
// the blade into a known direction before the first figure.
func calibrationCut() poly.Polyline {
	return poly.Polyline{Points: []poly.Point{{X: 0, Y: 0}, {X: 2, Y: 0}}}
}

// frame is a closed rectangle around r with the given margin, cut last
// to free the finished figures from the sheet.
func frame(r poly.Rect, margin float64) poly.Polyline {
	return poly.Polyline{
		Closed: true,
		Points: []poly.Point{
			{X: r.MinX - margin, Y: r.MinY - margin},
			{X: r.MaxX + margin, Y: r.MinY - margin},
			{X: r.MaxX + margin, Y: r.MaxY + margin},
			{X: r.MinX - margin, Y: r.MaxY + margin},
		},
	}
}

// Emit converts the prepared polylines to device units and writes the
// CAMM-GL program.
func (p *Processor) Emit(w io.Writer, lines []poly.Polyline) error {
	poly.Scale(lines, camm.UnitsPerMM)

	e := camm.NewEmitter(w, camm.Config{
		LiveSink:         p.LiveSink,
		DisableIdleGuard: p.DisableIdleGuard,
	})
	if !p.Raw {
		if err := e.Header(); err != nil {
			return err
		}
		if p.Defaults.Speed > 0 {
			if err := e.Speed(p.Defaults.Speed); err != nil {
				return err
			}
		}
		if p.Defaults.Force > 0 {
			if err := e.Force(p.Defaults.Force); err != nil {
				return err
			}
		}
		if p.Defaults.Tool > 0 {
			if err := e.Tool(p.Defaults.Tool); err != nil {
				return err
			}
		}
	}

	cutter := camm.NewCutter(e, camm.CutOptions{
		Offset:          p.Offset * camm.UnitsPerMM,
		Epsilon:         p.Epsilon * camm.UnitsPerMM,
		SmallAngle:      p.SmallAngleDeg * math.Pi / 180,
		ShortLine:       p.ShortLine * camm.UnitsPerMM,
		OffsetlessStart: p.OffsetlessStart,
		AlignKnife:      p.AlignKnife,
		Relative:        p.Relative,
	})
	if err := cutter.CutAll(lines); err != nil {
		return err
	}
	if !p.Raw {
		return e.Footer()
	}
	return nil
}
