// Package camm talks CAMM-GL III, the HP-GL dialect of Roland CAMM
// cutter-plotters: a stateful command emitter which only issues the
// preconditioning instructions a drawing operation actually needs, a
// knife-offset compensator, and a tolerant parser that renders command
// streams back into SVG for verification.
package camm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/tkremer/dxfutils/poly"
)

// UnitsPerMM is the CAMM-GL device resolution: 40 steps per millimetre.
const UnitsPerMM = 40.0

// DefaultEscape terminates label text unless DT overrides it.
const DefaultEscape byte = 0x03

// idleTimeout is how long the device keeps the pen down without motion
// before lifting it on its own.
const idleTimeout = 10 * time.Second

// Mode is the coordinate interpretation state of the device.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeAbsolute
	ModeRelative
)

type penState int

const (
	penUnknown penState = iota
	penUp
	penDown
)

// setOp is one element of machine state an operation can require or
// establish.
type setOp int

const (
	setPenUp setOp = iota
	setPenDown
	setModeAbs
	setModeRel
)

// Config selects the output sink behaviour of an Emitter.
type Config struct {
	// LiveSink marks the writer as a live device stream. Only live
	// sinks get the idle-timeout guard; buffers never need it.
	LiveSink bool
	// DisableIdleGuard switches the guard off even on a live sink.
	DisableIdleGuard bool
	// Now supplies wall-clock time; nil means time.Now. The guard
	// only reads it, it never sleeps.
	Now func() time.Time
}

// Emitter writes CAMM-GL commands, tracking pen state, coordinate mode
// and tool parameters so that every drawing operation is prefixed with
// exactly the state commands it requires and nothing else.
type Emitter struct {
	w   io.Writer
	cfg Config

	pen      penState
	mode     Mode
	speed    float64
	force    int
	tool     int
	escape   byte
	lastEmit time.Time
}

// NewEmitter returns an emitter over w. State starts unknown; Header
// establishes the defaults.
func NewEmitter(w io.Writer, cfg Config) *Emitter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Emitter{w: w, cfg: cfg, escape: DefaultEscape, speed: -1, force: -1, tool: -1}
}

// emit writes one chunk of command text. On a live sink, a pen-down
// pause longer than the device's idle timeout gets a PD prefix, because
// the device lifts the pen on its own after idling.
func (e *Emitter) emit(s string) error {
	now := e.cfg.Now()
	if e.cfg.LiveSink && !e.cfg.DisableIdleGuard &&
		e.pen == penDown && !e.lastEmit.IsZero() && now.Sub(e.lastEmit) > idleTimeout {
		if _, err := io.WriteString(e.w, "PD;"); err != nil {
			return err
		}
	}
	e.lastEmit = now
	_, err := io.WriteString(e.w, s)
	return err
}

// require establishes each wanted state element that does not already
// hold, using the minimal command for it.
func (e *Emitter) require(ops ...setOp) error {
	for _, op := range ops {
		var cmd string
		switch op {
		case setPenUp:
			if e.pen == penUp {
				continue
			}
			cmd = "PU;"
		case setPenDown:
			if e.pen == penDown {
				continue
			}
			cmd = "PD;"
		case setModeAbs:
			if e.mode == ModeAbsolute {
				continue
			}
			cmd = "PA;"
		case setModeRel:
			if e.mode == ModeRelative {
				continue
			}
			cmd = "PR;"
		}
		if err := e.emit(cmd); err != nil {
			return err
		}
		e.apply(op)
	}
	return nil
}

// apply records a state element as established.
func (e *Emitter) apply(ops ...setOp) {
	for _, op := range ops {
		switch op {
		case setPenUp:
			e.pen = penUp
		case setPenDown:
			e.pen = penDown
		case setModeAbs:
			e.mode = ModeAbsolute
		case setModeRel:
			e.mode = ModeRelative
		}
	}
}

// num formats a command argument. The device resolves whole steps, so
// four decimals are plenty; rounding also keeps floating-point noise
// like 90.00000000000001 off the wire.
func num(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		v = 0 // normalise -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func coords(pts []poly.Point) string {
	out := ""
	for i, p := range pts {
		if i > 0 {
			out += ","
		}
		out += num(p.X) + "," + num(p.Y)
	}
	return out
}

// Header resets the device and initialises it. The leading bare escape
// byte is not a valid command on purpose: it knocks the device out of
// any mode a previous job left behind.
func (e *Emitter) Header() error {
	if err := e.emit("\x1bIN;"); err != nil {
		return err
	}
	e.apply(setModeAbs, setPenUp)
	e.escape = DefaultEscape
	return nil
}

// Footer parks the pen and deselects the tool.
func (e *Emitter) Footer() error {
	if err := e.require(setModeAbs); err != nil {
		return err
	}
	if err := e.emit("PU0,0;SP0;"); err != nil {
		return err
	}
	e.apply(setPenUp)
	return nil
}

// ToolUp lifts the pen.
func (e *Emitter) ToolUp() error {
	if err := e.emit("PU;"); err != nil {
		return err
	}
	e.apply(setPenUp)
	return nil
}

// ToolDown lowers the pen.
func (e *Emitter) ToolDown() error {
	if err := e.emit("PD;"); err != nil {
		return err
	}
	e.apply(setPenDown)
	return nil
}

// MoveTo travels with the pen up to an absolute position.
func (e *Emitter) MoveTo(p poly.Point) error {
	if err := e.require(setModeAbs); err != nil {
		return err
	}
	if err := e.emit("PU" + coords([]poly.Point{p}) + ";"); err != nil {
		return err
	}
	e.apply(setPenUp)
	return nil
}

// LineTo cuts to an absolute position.
func (e *Emitter) LineTo(p poly.Point) error {
	if err := e.require(setModeAbs); err != nil {
		return err
	}
	if err := e.emit("PD" + coords([]poly.Point{p}) + ";"); err != nil {
		return err
	}
	e.apply(setPenDown)
	return nil
}

// PolylineTo cuts through a sequence of absolute positions.
func (e *Emitter) PolylineTo(pts []poly.Point) error {
	if len(pts) == 0 {
		return nil
	}
	if err := e.require(setModeAbs); err != nil {
		return err
	}
	if err := e.emit("PD" + coords(pts) + ";"); err != nil {
		return err
	}
	e.apply(setPenDown)
	return nil
}

// MoveToRel travels with the pen up by a relative offset.
func (e *Emitter) MoveToRel(d poly.Point) error {
	if err := e.require(setModeRel); err != nil {
		return err
	}
	if err := e.emit("PU" + coords([]poly.Point{d}) + ";"); err != nil {
		return err
	}
	e.apply(setPenUp)
	return nil
}

// LineToRel cuts by a relative offset.
func (e *Emitter) LineToRel(d poly.Point) error {
	if err := e.require(setModeRel); err != nil {
		return err
	}
	if err := e.emit("PD" + coords([]poly.Point{d}) + ";"); err != nil {
		return err
	}
	e.apply(setPenDown)
	return nil
}

// PolylineToRel cuts through a sequence of relative offsets.
func (e *Emitter) PolylineToRel(deltas []poly.Point) error {
	if len(deltas) == 0 {
		return nil
	}
	if err := e.require(setModeRel); err != nil {
		return err
	}
	if err := e.emit("PD" + coords(deltas) + ";"); err != nil {
		return err
	}
	e.apply(setPenDown)
	return nil
}

// Circle cuts a full circle of radius r around the current position.
func (e *Emitter) Circle(r float64) error {
	if err := e.require(setPenDown); err != nil {
		return err
	}
	return e.emit("CI" + num(r) + ";")
}

// Arc cuts an arc of the given sweep (degrees, counter-clockwise
// positive) around an absolute centre.
func (e *Emitter) Arc(center poly.Point, degrees float64) error {
	if err := e.require(setPenDown); err != nil {
		return err
	}
	if err := e.emit("AA" + coords([]poly.Point{center}) + "," + num(degrees) + ";"); err != nil {
		return err
	}
	e.apply(setModeAbs)
	return nil
}

// ArcRel cuts an arc around a centre given relative to the current
// position.
func (e *Emitter) ArcRel(center poly.Point, degrees float64) error {
	if err := e.require(setPenDown); err != nil {
		return err
	}
	if err := e.emit("AR" + coords([]poly.Point{center}) + "," + num(degrees) + ";"); err != nil {
		return err
	}
	e.apply(setModeRel)
	return nil
}

// Speed sets the tool velocity, skipping the command when the device is
// already there.
func (e *Emitter) Speed(v float64) error {
	if e.speed == v {
		return nil
	}
	if err := e.emit("VS" + num(v) + ";"); err != nil {
		return err
	}
	e.speed = v
	return nil
}

// Force sets the blade force.
func (e *Emitter) Force(f int) error {
	if e.force == f {
		return nil
	}
	if err := e.emit(fmt.Sprintf("!FS%d\n", f)); err != nil {
		return err
	}
	e.force = f
	return nil
}

// Tool selects a tool slot.
func (e *Emitter) Tool(t int) error {
	if e.tool == t {
		return nil
	}
	if err := e.emit(fmt.Sprintf("SP%d;", t)); err != nil {
		return err
	}
	e.tool = t
	return nil
}

// CharSize sets the label character cell in centimetres.
func (e *Emitter) CharSize(w, h float64) error {
	return e.emit("SI" + num(w) + "," + num(h) + ";")
}

// CharSlant sets the label slant.
func (e *Emitter) CharSlant(tan float64) error {
	return e.emit("SL" + num(tan) + ";")
}

// SetEscape switches the text terminator byte via DT.
func (e *Emitter) SetEscape(c byte) error {
	if err := e.emit("DT" + string(c) + ";"); err != nil {
		return err
	}
	e.escape = c
	return nil
}

// Label writes text at the current position, terminated by the current
// escape byte.
func (e *Emitter) Label(text string) error {
	return e.emit("LB" + text + string(e.escape))
}
