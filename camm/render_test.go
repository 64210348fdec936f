package camm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tkremer/dxfutils/poly"
)

func TestRender_Movement(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	err := Render(&buf, []byte("IN;PA;PU0,0;PD100,0;PD100,100;PU;"), RenderOptions{})
	assert.NoError(err)

	out := buf.String()
	assert.Contains(out, `d="M 0 0 L 100 0 L 100 100"`)
	assert.Contains(out, "matrix(1,0,0,-1,0,100)")
	assert.Contains(out, "viewBox=\"0 0 100 100\"")
}

func TestRender_RelativeMoves(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	err := Render(&buf, []byte("IN;PA;PU10,10;PR;PD5,0;PD0,5;"), RenderOptions{})
	assert.NoError(err)
	assert.Contains(buf.String(), `d="M 10 10 L 15 10 L 15 15"`)
}

func TestRender_Arc(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	err := Render(&buf, []byte("IN;PA;PU10,0;PD;AA0,0,90;"), RenderOptions{})
	assert.NoError(err)
	out := buf.String()
	// Quarter turn around the origin from (10,0) ends at (0,10).
	assert.Contains(out, "A 10 10 0 0 1 ")
	assert.Contains(out, " 10 ")
}

func TestRender_Circle(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	err := Render(&buf, []byte("IN;PA;PU5,5;PD;CI2;"), RenderOptions{})
	assert.NoError(err)
	out := buf.String()
	assert.Contains(out, "A 2 2 0 1 0 3 5")
	assert.Contains(out, "A 2 2 0 1 0 7 5")
}

func TestRender_InputWindow(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	err := Render(&buf, []byte("IN;IW0,0,400,200;PA;PU0,0;PD10,10;"), RenderOptions{})
	assert.NoError(err)
	assert.Contains(buf.String(), "viewBox=\"0 0 400 200\"")
}

func TestRender_SplitColors(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	input := "IN;PA;PU0,0;PD10,0;PU20,0;PD30,0;PU;"
	err := Render(&buf, []byte(input), RenderOptions{Split: true})
	assert.NoError(err)

	out := buf.String()
	assert.Equal(2, strings.Count(out, "<path"))
	assert.Contains(out, "stroke:#ff0000")
	assert.Contains(out, "stroke:#00ffff")
}

func TestRender_Warnings(t *testing.T) {
	assert := assert.New(t)

	var warned []string
	opt := RenderOptions{Warn: func(err error) { warned = append(warned, err.Error()) }}
	var buf bytes.Buffer
	err := Render(&buf, []byte("\x1bIN;VS20;XY1,2;PA;PU0,0;PD1,1;"), opt)
	assert.NoError(err)

	joined := strings.Join(warned, "\n")
	assert.Contains(joined, "bad input")
	assert.Contains(joined, "unimplemented VS")
	assert.Contains(joined, "ignoring XY")
}

func TestRender_RoundTripFromEmitter(t *testing.T) {
	assert := assert.New(t)

	var program bytes.Buffer
	e := NewEmitter(&program, Config{})
	assert.NoError(e.Header())
	assert.NoError(e.MoveTo(poly.Point{X: 0, Y: 0}))
	assert.NoError(e.PolylineTo([]poly.Point{{X: 100, Y: 0}, {X: 100, Y: 100}}))

	var svg bytes.Buffer
	assert.NoError(Render(&svg, program.Bytes(), RenderOptions{}))
	assert.Contains(svg.String(), "M 0 0 L 100 0 L 100 100")
}
