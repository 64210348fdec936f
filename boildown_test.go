package dxfutils

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func entitiesDoc(body ...string) string {
	parts := append([]string{"0", "SECTION", "2", "ENTITIES"}, body...)
	parts = append(parts, "0", "ENDSEC", "0", "EOF", "")
	return strings.Join(parts, "\n")
}

func TestBoilDown_LineOnly(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "LINE", "8", "A", "10", "0", "20", "0", "11", "100", "21", "50")
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))
	assert.NoError(BoilDown(root, []string{"POINT", "LINE"}, []string{"LINE"}))
	assert.NoError(Flatten(root))
	Strip(root)

	ents := root.Section("ENTITIES")
	assert.Len(ents.Children, 1)
	line := ents.Children[0]
	assert.Equal("LINE", line.Name)
	assert.Equal("A", line.Text("layer"))
	assert.Equal("0", line.Text("x"))
	assert.Equal("0", line.Text("y"))
	assert.Equal("100", line.Text("x1"))
	assert.Equal("50", line.Text("y1"))
}

func TestBoilDown_CircleToLines(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "CIRCLE", "8", "C", "10", "0", "20", "0", "40", "10")
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))
	assert.NoError(BoilDown(root, []string{"POINT", "LINE"}, []string{"CIRCLE"}))

	ents := root.Section("ENTITIES")
	assert.GreaterOrEqual(len(ents.Children), 20)

	var first, last *Node
	for i, e := range ents.Children {
		assert.Equal("LINE", e.Name)
		assert.Equal("C", e.Text("layer"))
		for _, pair := range [][2]string{{"x", "y"}, {"x1", "y1"}} {
			x, err := e.Float(pair[0])
			assert.NoError(err)
			y, err := e.Float(pair[1])
			assert.NoError(err)
			assert.InDelta(10.0, math.Hypot(x, y), 1e-6)
		}
		if i == 0 {
			first = e
		}
		last = e
	}
	// The ring closes exactly.
	assert.Equal(first.Text("x"), last.Text("x1"))
	assert.Equal(first.Text("y"), last.Text("y1"))
}

func TestBoilDown_ArcEndpoints(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "ARC", "10", "5", "20", "-3", "40", "7", "50", "30", "51", "120")
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))
	assert.NoError(BoilDown(root, []string{"LWPOLYLINE"}, []string{"ARC"}))

	ents := root.Section("ENTITIES")
	assert.Len(ents.Children, 1)
	pl := ents.Children[0]
	assert.Equal("LWPOLYLINE", pl.Name)

	xs, err := pl.Floats("x")
	assert.NoError(err)
	ys, err := pl.Floats("y")
	assert.NoError(err)
	assert.Equal(len(xs), len(ys))

	start := 30 * math.Pi / 180
	end := 120 * math.Pi / 180
	assert.InDelta(5+7*math.Cos(start), xs[0], 1e-9)
	assert.InDelta(-3+7*math.Sin(start), ys[0], 1e-9)
	assert.InDelta(5+7*math.Cos(end), xs[len(xs)-1], 1e-9)
	assert.InDelta(-3+7*math.Sin(end), ys[len(ys)-1], 1e-9)

	flags, err := pl.IntDefault("int", 0)
	assert.NoError(err)
	assert.Zero(flags & 1)
}

func TestBoilDown_Spline(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "SPLINE",
		"71", "3",
		"10", "0", "20", "0",
		"10", "1", "20", "2",
		"10", "2", "20", "2",
		"10", "3", "20", "0")
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))
	assert.NoError(BoilDown(root, []string{"LWPOLYLINE"}, []string{"SPLINE"}))

	pl := root.Section("ENTITIES").Children[0]
	xs, err := pl.Floats("x")
	assert.NoError(err)
	ys, err := pl.Floats("y")
	assert.NoError(err)
	assert.Len(xs, 21)
	// Endpoints are preserved exactly.
	assert.Equal(0.0, xs[0])
	assert.Equal(0.0, ys[0])
	assert.Equal(3.0, xs[20])
	assert.Equal(0.0, ys[20])
	// The midpoint of this symmetric curve sits on its axis.
	assert.InDelta(1.5, xs[10], 1e-9)
	assert.InDelta(1.5, ys[10], 1e-9)
}

func TestBoilDown_PolylineVertices(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc("0", "POLYLINE", "70", "1",
		"0", "VERTEX", "10", "0", "20", "0",
		"0", "VERTEX", "10", "4", "20", "0",
		"0", "VERTEX", "10", "4", "20", "3",
		"0", "SEQEND")
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))
	assert.NoError(BoilDown(root, []string{"LWPOLYLINE"}, []string{"POLYLINE"}))

	pl := root.Section("ENTITIES").Children[0]
	assert.Equal("LWPOLYLINE", pl.Name)
	xs, _ := pl.Floats("x")
	assert.Equal([]float64{0, 4, 4}, xs)
	flags, _ := pl.IntDefault("int", 0)
	assert.Equal(1, flags&1)
}

func TestBoilDown_Unreachable(t *testing.T) {
	assert := assert.New(t)

	root := NewNode("")
	assert.NoError(Canonicalize(root, false))
	err := BoilDown(root, []string{"POINT"}, []string{"CIRCLE", "TEXT"})
	assert.True(errors.Is(err, ErrUnsupportedEntity))
	assert.Contains(err.Error(), "CIRCLE")
	assert.Contains(err.Error(), "TEXT")
}

func TestBoilDown_OnlyAcceptableSurvive(t *testing.T) {
	assert := assert.New(t)

	doc := entitiesDoc(
		"0", "CIRCLE", "10", "0", "20", "0", "40", "1",
		"0", "LINE", "10", "0", "20", "0", "11", "1", "21", "1",
		"0", "ELLIPSE", "10", "0", "20", "0", "11", "2", "21", "0", "40", "0.5", "41", "0", "42", "6.283185307179586",
	)
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)
	assert.NoError(Canonicalize(root, false))

	acceptable := []string{"POINT", "LWPOLYLINE"}
	assert.NoError(BoilDown(root, acceptable, entityKinds(root, acceptable)))
	for _, e := range root.Section("ENTITIES").Children {
		assert.Contains(acceptable, e.Name)
	}
}
