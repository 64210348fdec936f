package dxfutils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

const lineDoc = "0\nSECTION\n2\nENTITIES\n0\nLINE\n8\nA\n10\n0\n20\n0\n11\n100\n21\n50\n0\nENDSEC\n0\nEOF\n"

func TestParse_Basic(t *testing.T) {
	assert := assert.New(t)

	root, err := Parse(strings.NewReader(lineDoc))
	assert.NoError(err)
	assert.Len(root.Children, 1)

	sec := root.Children[0]
	assert.Equal("SECTION", sec.Name)
	assert.Equal("ENTITIES", sec.Text("name"))
	assert.NotNil(sec.End)
	assert.Equal("ENDSEC", sec.End.Name)

	assert.Len(sec.Children, 1)
	line := sec.Children[0]
	assert.Equal("LINE", line.Name)
	assert.Equal("A", line.Text("layer"))

	x, err := line.Float("x")
	assert.NoError(err)
	assert.Equal(0.0, x)
	x1, err := line.Float("x1")
	assert.NoError(err)
	assert.Equal(100.0, x1)
	y1, err := line.Float("y1")
	assert.NoError(err)
	assert.Equal(50.0, y1)

	assert.NotNil(root.End)
	assert.Equal("EOF", root.End.Name)
}

func TestParse_HeaderVariables(t *testing.T) {
	assert := assert.New(t)

	doc := "0\nSECTION\n2\nHEADER\n9\n$ACADVER\n1\nAC1015\n0\nENDSEC\n0\nEOF\n"
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)

	header := root.Section("HEADER")
	assert.NotNil(header)
	v := header.Child("$ACADVER")
	assert.NotNil(v)
	assert.Equal("AC1015", v.Text("text"))
}

func TestParse_ListPromotion(t *testing.T) {
	assert := assert.New(t)

	doc := "0\nLWPOLYLINE\n10\n0\n20\n0\n10\n1\n20\n2\n0\nEOF\n"
	root, err := Parse(strings.NewReader(doc))
	assert.NoError(err)

	pl := root.Children[0]
	xs, err := pl.Floats("x")
	assert.NoError(err)
	assert.Equal([]float64{0, 1}, xs)
	ys, err := pl.Floats("y")
	assert.NoError(err)
	assert.Equal([]float64{0, 2}, ys)
	v, _ := pl.Get("x")
	assert.True(v.IsList())
}

func TestParse_Errors(t *testing.T) {
	assert := assert.New(t)

	_, err := Parse(strings.NewReader("0\nLINE\n"))
	assert.Error(err)
	assert.True(errors.Is(err, ErrParse))

	_, err = Parse(strings.NewReader("zero\nLINE\n0\nEOF\n"))
	assert.True(errors.Is(err, ErrParse))

	_, err = Parse(strings.NewReader("0\nLINE\n10\n"))
	assert.True(errors.Is(err, ErrParse))
}

func TestParse_UnmatchedEndNode(t *testing.T) {
	assert := assert.New(t)

	var warned []error
	p := &Parser{Warn: func(err error) { warned = append(warned, err) }}
	root, err := p.Parse(strings.NewReader("0\nENDBLK\n0\nLINE\n0\nEOF\n"))
	assert.NoError(err)
	assert.Len(warned, 1)
	assert.Len(root.Children, 1)
	assert.Equal("LINE", root.Children[0].Name)
}

func TestEmit_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	root, err := Parse(strings.NewReader(lineDoc))
	assert.NoError(err)

	var buf bytes.Buffer
	assert.NoError(Emit(&buf, root))
	assert.Equal(lineDoc, buf.String())

	// Parsing the emitted form yields the same tree again.
	again, err := Parse(bytes.NewReader(buf.Bytes()))
	assert.NoError(err)
	var buf2 bytes.Buffer
	assert.NoError(Emit(&buf2, again))
	assert.Equal(buf.String(), buf2.String())
}

func TestEmit_PointInterleaving(t *testing.T) {
	assert := assert.New(t)

	pl := NewNode("LWPOLYLINE")
	pl.SetFloatList("x", []float64{0, 1, 2})
	pl.SetFloatList("y", []float64{3, 4, 5})
	root := NewNode("")
	root.Children = []*Node{pl}
	root.End = NewNode("EOF")

	var buf bytes.Buffer
	assert.NoError(Emit(&buf, root))
	assert.Equal("0\nLWPOLYLINE\n10\n0\n20\n3\n10\n1\n20\n4\n10\n2\n20\n5\n0\nEOF\n", buf.String())
}

func TestEmit_SynthesisedTerminator(t *testing.T) {
	assert := assert.New(t)

	sec := NewNode("SECTION")
	sec.Set("name", "ENTITIES")
	root := NewNode("")
	root.Children = []*Node{sec}

	var buf bytes.Buffer
	assert.NoError(Emit(&buf, root))
	assert.Equal("0\nSECTION\n2\nENTITIES\n0\nENDSEC\n0\nEOF\n", buf.String())
}

func TestParseFloat_Grammar(t *testing.T) {
	assert := assert.New(t)

	for _, ok := range []string{"1", "-1.5", "+.5", "2.", "1e3", "-1.25E-2"} {
		_, err := parseFloat(ok)
		assert.NoError(err, ok)
	}
	for _, bad := range []string{"", "abc", "1.2.3", "e3", "0x10", "1,5"} {
		_, err := parseFloat(bad)
		assert.True(errors.Is(err, ErrBadInput), bad)
	}
}
