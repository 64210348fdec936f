package camm

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tkremer/dxfutils/poly"
)

func cutOptions() CutOptions {
	return CutOptions{
		Offset:     0.5,
		Epsilon:    1e-9,
		SmallAngle: 10 * math.Pi / 180,
		ShortLine:  0.5,
		AlignKnife: true,
	}
}

func TestCutter_OffsetCompensation(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	c := NewCutter(e, cutOptions())
	line := poly.Polyline{Points: []poly.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}
	assert.NoError(c.Cut(&line))

	// The carriage overshoots each corner by the offset along the cut
	// direction, and a quarter arc around the corner swivels the blade.
	assert.Equal("\x1bIN;PU0,0;PD10.5,0;AA10,0,90;PD10,10.5;", buf.String())
}

func TestCutter_TrailingDirectionAcrossPaths(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	c := NewCutter(e, cutOptions())
	first := poly.Polyline{Points: []poly.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}}
	second := poly.Polyline{Points: []poly.Point{{X: 20, Y: 20}, {X: 20, Y: 30}}}
	assert.NoError(c.Cut(&first))
	assert.NoError(c.Cut(&second))

	out := buf.String()
	// The second path starts with the pen positioned offset-ahead of
	// its first point along the previous direction, then an alignment
	// arc turns the blade before cutting.
	assert.Contains(out, "PU20.5,20;")
	assert.Contains(out, "AA20,20,90;")
	assert.True(strings.HasSuffix(out, "PD20,30.5;"))
}

func TestCutter_OffsetlessStart(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	opt := cutOptions()
	opt.OffsetlessStart = true
	c := NewCutter(e, opt)
	assert.NoError(c.Cut(&poly.Polyline{Points: []poly.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}}))
	assert.NoError(c.Cut(&poly.Polyline{Points: []poly.Point{{X: 20, Y: 20}, {X: 20, Y: 30}}}))
	assert.Contains(buf.String(), "PU20,20;")
}

func TestCutter_SmallCornerInterpolates(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	opt := cutOptions()
	opt.SmallAngle = 20 * math.Pi / 180
	opt.ShortLine = 1
	c := NewCutter(e, opt)

	// A shallow 0.5-long jog: below both thresholds, no arc.
	line := poly.Polyline{Points: []poly.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10.5, Y: 0.05},
	}}
	assert.NoError(c.Cut(&line))
	assert.NotContains(buf.String(), "AA")
}

func TestCutter_SkipsNearPoints(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	opt := cutOptions()
	opt.Epsilon = 0.01
	c := NewCutter(e, opt)
	line := poly.Polyline{Points: []poly.Point{
		{X: 0, Y: 0}, {X: 0.005, Y: 0}, {X: 10, Y: 0},
	}}
	assert.NoError(c.Cut(&line))
	assert.Equal("\x1bIN;PU0,0;PD10.5,0;", buf.String())
}

func TestCutter_NoOffsetDirect(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	c := NewCutter(e, CutOptions{})
	line := poly.Polyline{Points: []poly.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}
	assert.NoError(c.Cut(&line))
	assert.Equal("\x1bIN;PU0,0;PD10,0,10,10;", buf.String())
}

func TestCutter_NoOffsetRelative(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := NewEmitter(&buf, Config{})
	assert.NoError(e.Header())

	c := NewCutter(e, CutOptions{Relative: true})
	line := poly.Polyline{Points: []poly.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 3}}}
	assert.NoError(c.Cut(&line))
	assert.Equal("\x1bIN;PU1,1;PR;PD1,0,0,2;PA;", buf.String())
}
