package camm

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/pkg/errors"

	"github.com/tkremer/dxfutils/poly"
	"github.com/tkremer/dxfutils/utils"
)

// RenderOptions control the CAMM-GL to SVG rendering.
type RenderOptions struct {
	// Split starts a new SVG path on every pen-up, colouring the
	// paths around the HSV ring so the cutting order is visible.
	Split bool
	// Warn receives tolerated problems: bad input, unimplemented or
	// unknown commands. Nil drops them.
	Warn func(error)
}

// renderCtx is the drawing state the command handlers maintain.
type renderCtx struct {
	cur      poly.Point
	havePos  bool
	penDown  bool
	relative bool
	window   [4]float64
	hasWin   bool

	opt   RenderOptions
	paths []*strings.Builder

	minX, minY, maxX, maxY float64
	tracked                bool
}

// handler applies one recognised command to the rendering context.
type handler func(ctx *renderCtx, tok Token)

// handlers maps every recognised mnemonic. Commands mapped to nil are
// recognised but not rendered: the two-letter ones are reported as
// unimplemented, the ! commands pass silently.
var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"IN": func(ctx *renderCtx, _ Token) {
			ctx.cur = poly.Point{}
			ctx.havePos = false
			ctx.penDown = false
			ctx.relative = false
		},
		"DT": func(_ *renderCtx, _ Token) {}, // the scanner already rebound the escape
		"PA": moveHandler(modeAbs, penKeep),
		"PR": moveHandler(modeRel, penKeep),
		"PU": moveHandler(modeKeep, penLift),
		"PD": moveHandler(modeKeep, penDrop),
		"AA": arcHandler(false),
		"AR": arcHandler(true),
		"CI": circleHandler,
		"IW": func(ctx *renderCtx, tok Token) {
			if len(tok.Args) >= 4 {
				copy(ctx.window[:], tok.Args[:4])
				ctx.hasWin = true
			}
		},
		// Recognised but not rendered.
		"VS": nil, "SP": nil, "SI": nil, "SL": nil, "LB": nil, "WD": nil,
		"!FS": nil, "!PG": nil,
	}
}

const (
	modeKeep = iota
	modeAbs
	modeRel
)

const (
	penKeep = iota
	penLift
	penDrop
)

// moveHandler builds the unified PA/PR/PU/PD handler: optionally switch
// mode or pen state, then walk the coordinate pairs, drawing while the
// pen is down. A trailing odd coordinate is discarded.
func moveHandler(mode, pen int) handler {
	return func(ctx *renderCtx, tok Token) {
		switch mode {
		case modeAbs:
			ctx.relative = false
		case modeRel:
			ctx.relative = true
		}
		switch pen {
		case penLift:
			if ctx.penDown && ctx.opt.Split {
				ctx.breakPath()
			}
			ctx.penDown = false
		case penDrop:
			ctx.penDown = true
		}
		args := tok.Args
		for i := 0; i+1 < len(args); i += 2 {
			next := poly.Point{X: args[i], Y: args[i+1]}
			if ctx.relative {
				next = ctx.cur.Add(next)
			}
			if ctx.penDown && ctx.havePos {
				ctx.lineTo(next)
			} else {
				ctx.moveTo(next)
			}
			ctx.cur = next
			ctx.havePos = true
		}
	}
}

// arcHandler draws AA (absolute centre) and AR (relative centre). The
// radius is the distance from the current point to the centre; the
// sweep keeps its sign, counter-clockwise positive.
func arcHandler(relative bool) handler {
	return func(ctx *renderCtx, tok Token) {
		if !ctx.havePos || len(tok.Args) < 3 {
			return
		}
		center := poly.Point{X: tok.Args[0], Y: tok.Args[1]}
		if relative {
			center = ctx.cur.Add(center)
		}
		sweep := tok.Args[2]
		end := rotateAround(ctx.cur, center, sweep)
		if ctx.penDown {
			ctx.arcTo(center, ctx.cur, end, sweep)
		} else {
			ctx.moveTo(end)
		}
		ctx.cur = end
	}
}

// circleHandler draws CI: a full circle around the current point.
func circleHandler(ctx *renderCtx, tok Token) {
	if !ctx.havePos || len(tok.Args) < 1 {
		return
	}
	r := tok.Args[0]
	c := ctx.cur
	b := ctx.path()
	fmt.Fprintf(b, "M %s %s ", fnum(c.X+r), fnum(c.Y))
	fmt.Fprintf(b, "A %s %s 0 1 0 %s %s ", fnum(r), fnum(r), fnum(c.X-r), fnum(c.Y))
	fmt.Fprintf(b, "A %s %s 0 1 0 %s %s ", fnum(r), fnum(r), fnum(c.X+r), fnum(c.Y))
	fmt.Fprintf(b, "M %s %s ", fnum(c.X), fnum(c.Y))
	ctx.track(poly.Point{X: c.X - r, Y: c.Y - r})
	ctx.track(poly.Point{X: c.X + r, Y: c.Y + r})
}

func rotateAround(p, center poly.Point, degrees float64) poly.Point {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	v := p.Sub(center)
	return center.Add(poly.Point{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos})
}

func fnum(v float64) string {
	return fmt.Sprintf("%g", v)
}

func (ctx *renderCtx) path() *strings.Builder {
	if len(ctx.paths) == 0 {
		ctx.paths = append(ctx.paths, &strings.Builder{})
	}
	return ctx.paths[len(ctx.paths)-1]
}

func (ctx *renderCtx) breakPath() {
	if len(ctx.paths) > 0 && ctx.paths[len(ctx.paths)-1].Len() > 0 {
		ctx.paths = append(ctx.paths, &strings.Builder{})
	}
}

func (ctx *renderCtx) moveTo(p poly.Point) {
	fmt.Fprintf(ctx.path(), "M %s %s ", fnum(p.X), fnum(p.Y))
	ctx.track(p)
}

func (ctx *renderCtx) lineTo(p poly.Point) {
	fmt.Fprintf(ctx.path(), "L %s %s ", fnum(p.X), fnum(p.Y))
	ctx.track(p)
}

func (ctx *renderCtx) arcTo(center, from, to poly.Point, sweep float64) {
	r := from.Dist(center)
	abs := utils.Abs(sweep)
	b := ctx.path()
	if abs >= 360 {
		opp := rotateAround(from, center, 180)
		fmt.Fprintf(b, "A %s %s 0 1 0 %s %s ", fnum(r), fnum(r), fnum(opp.X), fnum(opp.Y))
		fmt.Fprintf(b, "A %s %s 0 1 0 %s %s ", fnum(r), fnum(r), fnum(from.X), fnum(from.Y))
	} else {
		large, flag := 0, 0
		if abs > 180 {
			large = 1
		}
		if sweep > 0 {
			flag = 1
		}
		fmt.Fprintf(b, "A %s %s 0 %d %d %s %s ", fnum(r), fnum(r), large, flag, fnum(to.X), fnum(to.Y))
	}
	ctx.track(poly.Point{X: center.X - r, Y: center.Y - r})
	ctx.track(poly.Point{X: center.X + r, Y: center.Y + r})
}

func (ctx *renderCtx) track(p poly.Point) {
	if !ctx.tracked {
		ctx.minX, ctx.minY, ctx.maxX, ctx.maxY = p.X, p.Y, p.X, p.Y
		ctx.tracked = true
		return
	}
	ctx.minX = utils.Min(ctx.minX, p.X)
	ctx.minY = utils.Min(ctx.minY, p.Y)
	ctx.maxX = utils.Max(ctx.maxX, p.X)
	ctx.maxY = utils.Max(ctx.maxY, p.Y)
}

func (ctx *renderCtx) warnf(format string, args ...interface{}) {
	if ctx.opt.Warn != nil {
		ctx.opt.Warn(errors.Errorf(format, args...))
	}
}

// Render parses a CAMM-GL stream and writes an SVG rendering of its
// pen movements. The drawing group flips the y scale so the plot
// appears in the device orientation despite SVG's left-handed
// coordinate system.
func Render(w io.Writer, input []byte, opt RenderOptions) error {
	ctx := &renderCtx{opt: opt}
	sc := NewScanner(input)
	for {
		tok, ok, err := sc.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch tok.Kind {
		case TokBad:
			if !tok.IsWhitespaceOnly() {
				ctx.warnf("bad input %q", tok.Text)
			}
		case TokDevice, TokLegacy, TokBang:
			if h, known := handlers[tok.Name]; known {
				if h != nil {
					h(ctx, tok)
				}
			} else {
				ctx.warnf("ignoring %s", tok.Name)
			}
		default:
			h, known := handlers[tok.Name]
			if !known {
				ctx.warnf("ignoring %s", tok.Name)
				continue
			}
			if h == nil {
				ctx.warnf("unimplemented %s", tok.Name)
				continue
			}
			h(ctx, tok)
		}
	}
	return ctx.writeSVG(w)
}

func (ctx *renderCtx) writeSVG(w io.Writer) error {
	minX, minY, maxX, maxY := ctx.minX, ctx.minY, ctx.maxX, ctx.maxY
	if ctx.hasWin {
		minX, minY, maxX, maxY = ctx.window[0], ctx.window[1], ctx.window[2], ctx.window[3]
	}
	if !ctx.tracked && !ctx.hasWin {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}
	width := utils.Max(int(math.Ceil(maxX-minX)), 1)
	height := utils.Max(int(math.Ceil(maxY-minY)), 1)

	canvas := svg.New(w)
	canvas.Startview(width, height, int(math.Floor(minX)), int(math.Floor(minY)), width, height)
	canvas.Gtransform(fmt.Sprintf("matrix(1,0,0,-1,0,%s)", fnum(minY+maxY)))

	var drawn []*strings.Builder
	for _, p := range ctx.paths {
		if p.Len() > 0 {
			drawn = append(drawn, p)
		}
	}
	for i, p := range drawn {
		style := "fill:none;stroke:#000000;stroke-width:1"
		if ctx.opt.Split && len(drawn) > 1 {
			style = fmt.Sprintf("fill:none;stroke:%s;stroke-width:1",
				hsvHex(float64(i)*360/float64(len(drawn))))
		}
		canvas.Path(strings.TrimSpace(p.String()), style)
	}
	canvas.Gend()
	canvas.End()
	return nil
}

// hsvHex maps a hue (degrees, full saturation and value) to an RGB hex
// colour.
func hsvHex(hue float64) string {
	h := math.Mod(hue, 360) / 60
	c := 1.0
	x := 1 - utils.Abs(math.Mod(h, 2)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255))
}
