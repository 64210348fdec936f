package dxfutils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tkremer/dxfutils/poly"
)

func TestExtractPolylines(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc(
		"0", "LWPOLYLINE", "70", "1", "10", "0", "20", "0", "10", "1", "20", "0", "10", "1", "20", "1",
		"0", "POINT", "10", "5", "20", "5",
	)
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))

	var warned []error
	lines, err := ExtractPolylines(root, func(err error) { warned = append(warned, err) })
	assert.NoError(err)
	assert.Len(lines, 1)
	assert.True(lines[0].Closed)
	assert.Equal([]poly.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, lines[0].Points)
	assert.Len(warned, 1)
}

func TestExtractPolylines_Mismatched(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "LWPOLYLINE", "10", "0", "10", "1", "20", "0")
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))

	_, err = ExtractPolylines(root, nil)
	assert.Error(err)
}

func TestProcessor_Process(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "LINE", "10", "0", "20", "0", "11", "10", "21", "0")
	p := NewProcessor()
	p.Raw = true

	var out bytes.Buffer
	assert.NoError(p.Process(strings.NewReader(doc), &out))
	// 10 mm scale to 400 device units.
	assert.Equal("PA;PU0,0;PD400,0;", out.String())
}

func TestProcessor_OffsetAndOverlap(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc(
		"0", "LWPOLYLINE", "70", "1",
		"10", "0", "20", "0", "10", "10", "20", "0", "10", "10", "20", "10", "10", "0", "20", "10",
	)
	p := NewProcessor()
	p.Offset = 0.25
	p.Overlap = 2

	var out bytes.Buffer
	assert.NoError(p.Process(strings.NewReader(doc), &out))
	s := out.String()

	assert.True(strings.HasPrefix(s, "\x1bIN;"))
	assert.True(strings.HasSuffix(s, "PU0,0;SP0;"))
	// The calibration cut comes first, then the figure with blade
	// turning arcs at its corners.
	assert.Contains(s, "PU0,0;PD90,0;")
	assert.Contains(s, "AA")
}

func TestProcessor_BBoxFrame(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "LINE", "10", "0", "20", "0", "11", "10", "21", "10")
	p := NewProcessor()
	p.Raw = true
	p.BBox = 1

	var out bytes.Buffer
	assert.NoError(p.Process(strings.NewReader(doc), &out))
	// The frame surrounds the drawing one millimetre out: from
	// (-1,-1) to (11,11) in mm, times 40, closed back onto its start.
	s := out.String()
	assert.Contains(s, "PU-40,-40;")
	assert.Contains(s, "440,440")
	assert.True(strings.HasSuffix(s, ",-40,-40;"))
}

func TestProcessor_TranslateScaleSort(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc(
		"0", "LINE", "10", "10", "20", "0", "11", "12", "21", "0",
		"0", "LINE", "10", "0", "20", "0", "11", "2", "21", "0",
	)
	p := NewProcessor()
	p.Raw = true
	p.Combine = false
	p.Scale = 0.5
	p.Translate = poly.Point{X: 2, Y: 0}
	p.SortCriteria = "left"

	var out bytes.Buffer
	assert.NoError(p.Process(strings.NewReader(doc), &out))
	// Translate happens before scale: (0..2)+2 -> 1..2 mm -> 40..80.
	assert.Equal("PA;PU40,0;PD80,0;PU240,0;PD280,0;", out.String())
}

func TestProcessor_LayerFilter(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc(
		"0", "LINE", "8", "CUT", "10", "0", "20", "0", "11", "1", "21", "0",
		"0", "LINE", "8", "NOTES", "10", "5", "20", "5", "11", "6", "21", "5",
	)
	p := NewProcessor()
	p.Raw = true
	p.Layers = "+CUT"

	var out bytes.Buffer
	assert.NoError(p.Process(strings.NewReader(doc), &out))
	assert.Equal("PA;PU0,0;PD40,0;", out.String())
}

func TestProcessor_DefaultsEmitted(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "LINE", "10", "0", "20", "0", "11", "1", "21", "0")
	p := NewProcessor()
	p.Defaults = CutterDefaults{Speed: 20, Force: 80, Tool: 1}

	var out bytes.Buffer
	assert.NoError(p.Process(strings.NewReader(doc), &out))
	s := out.String()
	assert.Contains(s, "VS20;")
	assert.Contains(s, "!FS80\n")
	assert.Contains(s, "SP1;")
}

func TestDXFBuilder_Contract(t *testing.T) {
	assert := assert.New(t)

	b := NewDXFBuilder("PDF")
	b.MoveTo(0, 0)
	b.LineTo(10, 0)
	b.LineTo(10, 10)
	b.ClosePath()
	b.MoveTo(20, 0)
	b.CurveTo(21, 1, 22, 1, 23, 0)

	root, err := b.Document()
	assert.NoError(err)
	ents := root.Section("ENTITIES")
	assert.Len(ents.Children, 2)

	pl := ents.Children[0]
	assert.Equal("LWPOLYLINE", pl.Name)
	assert.Equal("PDF", pl.Text("layer"))
	flags, _ := pl.IntDefault("int", 0)
	assert.Equal(1, flags&1)

	sp := ents.Children[1]
	assert.Equal("SPLINE", sp.Name)
	xs, _ := sp.Floats("x")
	assert.Equal([]float64{20, 21, 22, 23}, xs)

	// The built document runs through the pipeline unchanged.
	acceptable := []string{"POINT", "LWPOLYLINE"}
	assert.NoError(BoilDown(root, acceptable, entityKinds(root, acceptable)))
	lines, err := ExtractPolylines(root, nil)
	assert.NoError(err)
	assert.Len(lines, 2)
}
