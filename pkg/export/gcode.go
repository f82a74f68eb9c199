package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/toolpath"
)

// GCodeOptions control G-code output. Units are millimeters and
// millimeters per minute.
type GCodeOptions struct {
	// Clearance is the height above the highest position used for rapid
	// moves.
	Clearance float64
	// Feed is the cutting feed rate.
	Feed float64
	// PlungeFeed is the feed rate for vertical moves into the material.
	// Zero means Feed.
	PlungeFeed float64
	// SpindleRPM starts the spindle when positive.
	SpindleRPM float64
	// Simplify drops positions that lie on a straight line between their
	// neighbors along a row.
	Simplify bool
}

// DefaultGCodeOptions returns conservative settings.
func DefaultGCodeOptions() GCodeOptions {
	return GCodeOptions{
		Clearance: 5,
		Feed:      600,
		Simplify:  true,
	}
}

// WriteGCode writes tp as a zig-zag raster: even rows run towards +X,
// odd rows back towards -X. When rows are adjacent raster rows, moves
// between them first rise to the higher of the two end heights. With a
// Y stride above one the terrain between rows was never sampled, so the
// tool retracts to safe height and plunges into the next row instead.
func WriteGCode(w io.Writer, tp *toolpath.Toolpath, opts GCodeOptions) error {
	if tp.Len() == 0 {
		return errors.New("toolpath has no positions").
			WithType(ErrTypeEmpty)
	}
	if !(opts.Feed > 0) {
		return errors.New("feed rate must be positive").
			WithTag("feed", opts.Feed)
	}
	if opts.PlungeFeed <= 0 {
		opts.PlungeFeed = opts.Feed
	}

	bw := bufio.NewWriter(w)
	g := gcodeWriter{w: bw, opts: opts, safeZ: tp.MaxZ() + opts.Clearance}

	g.preamble()
	for r := 0; r < tp.Rows; r++ {
		row := rowPoints(tp, r)
		if opts.Simplify {
			row = simplify(row)
		}
		switch {
		case r == 0:
			g.rapid(row[0])
		case tp.YStride > 1:
			g.retract()
			g.rapid(row[0])
		default:
			g.link(row[0])
		}
		for _, p := range row[1:] {
			g.cut(p)
		}
	}
	g.postamble()

	if g.err != nil {
		return g.err
	}
	return bw.Flush()
}

type point struct {
	x, y, z float64
}

// rowPoints returns row r in cutting order.
func rowPoints(tp *toolpath.Toolpath, r int) []point {
	pts := make([]point, tp.Cols)
	for c := range pts {
		p := tp.Position(c, r)
		pts[c] = point{p.X, p.Y, p.Z}
	}
	if r%2 == 1 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

// simplify keeps the first and last point of a row and every point where
// the height slope changes.
func simplify(pts []point) []point {
	if len(pts) < 3 {
		return pts
	}
	const epsilon = 1e-9

	out := []point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		a, b, c := out[len(out)-1], pts[i], pts[i+1]
		s1 := (b.z - a.z) / math.Hypot(b.x-a.x, b.y-a.y)
		s2 := (c.z - b.z) / math.Hypot(c.x-b.x, c.y-b.y)
		if math.Abs(s1-s2) > epsilon {
			out = append(out, b)
		}
	}
	return append(out, pts[len(pts)-1])
}

type gcodeWriter struct {
	w     io.Writer
	opts  GCodeOptions
	safeZ float64
	cur   point
	err   error
}

func (g *gcodeWriter) printf(format string, args ...any) {
	if g.err != nil {
		return
	}
	_, g.err = fmt.Fprintf(g.w, format, args...)
}

func (g *gcodeWriter) preamble() {
	g.printf("G21\n") // mm
	g.printf("G90\n") // absolute coordinates
	g.printf("G54\n") // work coordinate system
	if g.opts.SpindleRPM > 0 {
		g.printf("M3 S%g\n", g.opts.SpindleRPM)
	}
	g.printf("G0 Z%.4f\n", g.safeZ)
}

// rapid moves above p at safe height and plunges to it.
func (g *gcodeWriter) rapid(p point) {
	g.printf("G0 X%.4f Y%.4f\n", p.x, p.y)
	g.printf("G1 Z%.4f F%g\n", p.z, g.opts.PlungeFeed)
	g.cur = p
}

func (g *gcodeWriter) retract() {
	g.printf("G0 Z%.4f\n", g.safeZ)
	g.cur.z = g.safeZ
}

func (g *gcodeWriter) link(p point) {
	if top := math.Max(g.cur.z, p.z); top > g.cur.z {
		g.printf("G1 Z%.4f F%g\n", top, g.opts.Feed)
	}
	g.printf("G1 X%.4f Y%.4f F%g\n", p.x, p.y, g.opts.Feed)
	if p.z < math.Max(g.cur.z, p.z) {
		g.printf("G1 Z%.4f F%g\n", p.z, g.opts.PlungeFeed)
	}
	g.cur = p
}

func (g *gcodeWriter) cut(p point) {
	g.printf("G1 X%.4f Y%.4f Z%.4f F%g\n", p.x, p.y, p.z, g.opts.Feed)
	g.cur = p
}

func (g *gcodeWriter) postamble() {
	g.printf("G0 Z%.4f\n", g.safeZ)
	g.printf("M5\n") // stop spindle
	g.printf("M2\n") // end program
}
