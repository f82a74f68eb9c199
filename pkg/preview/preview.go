// Package preview renders toolpath heights as braille text for terminals.
// Each braille cell covers 2x4 samples; the share of lit dots follows the
// height through an ordered dither, and cells are colored by height band.
package preview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chazu/contour/pkg/toolpath"
)

// DefaultWidth is the preview width in terminal cells.
const DefaultWidth = 60

// bayer holds ordered dither thresholds for a 2x4 dot block.
var bayer = [4][2]float64{
	{0.5 / 8, 4.5 / 8},
	{6.5 / 8, 2.5 / 8},
	{1.5 / 8, 5.5 / 8},
	{7.5 / 8, 3.5 / 8},
}

// Options control rendering.
type Options struct {
	// Width in terminal cells. Zero means DefaultWidth.
	Width int
	Title string
	// Color enables height band coloring.
	Color bool
}

// canvas is a rendered height map before styling.
type canvas struct {
	buf    *brailleBuf
	levels [][]float64 // mean normalized height per cell
	lo, hi float64
}

func draw(tp *toolpath.Toolpath, width int) *canvas {
	if width <= 0 {
		width = DefaultWidth
	}
	width = min(width, (tp.Cols+1)/2)
	width = max(width, 1)

	mw := width * 2
	mh := max(int(math.Round(float64(mw)*float64(tp.Rows)/float64(tp.Cols))), 1)
	h := (mh + 3) / 4

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, z := range tp.Z {
		lo, hi = math.Min(lo, z), math.Max(hi, z)
	}

	cv := &canvas{buf: newBrailleBuf(width, h), levels: make([][]float64, h), lo: lo, hi: hi}
	counts := make([][]int, h)
	for i := range cv.levels {
		cv.levels[i] = make([]float64, width)
		counts[i] = make([]int, width)
	}

	for my := 0; my < mh; my++ {
		// Screen rows grow downwards, toolpath rows along +Y.
		r := (mh - 1 - my) * tp.Rows / mh
		for mx := 0; mx < mw; mx++ {
			c := mx * tp.Cols / mw
			t := 1.0
			if hi > lo {
				t = (tp.At(c, r) - lo) / (hi - lo)
			}
			if t > bayer[my%4][mx%2] {
				cv.buf.setPixel(mx, my)
			}
			cv.levels[my/4][mx/2] += t
			counts[my/4][mx/2]++
		}
	}
	for y := range cv.levels {
		for x := range cv.levels[y] {
			if counts[y][x] > 0 {
				cv.levels[y][x] /= float64(counts[y][x])
			}
		}
	}
	return cv
}

// Lines returns the unstyled braille rows of tp, top row first.
func Lines(tp *toolpath.Toolpath, width int) []string {
	if tp.Len() == 0 {
		return nil
	}
	return draw(tp, width).buf.toLines()
}

// Render returns tp as a framed braille height map with a title and a
// height legend.
func Render(tp *toolpath.Toolpath, opts Options) string {
	if tp.Len() == 0 {
		return boxStyle.Render(dimStyle.Render("empty toolpath"))
	}
	cv := draw(tp, opts.Width)

	var body strings.Builder
	for y := 0; y < cv.buf.h; y++ {
		for x := 0; x < cv.buf.w; x++ {
			r := string(cv.buf.rune(x, y))
			if opts.Color {
				r = lipgloss.NewStyle().Foreground(band(cv.levels[y][x])).Render(r)
			}
			body.WriteString(r)
		}
		if y < cv.buf.h-1 {
			body.WriteByte('\n')
		}
	}

	var parts []string
	if opts.Title != "" {
		parts = append(parts, titleStyle.Render(opts.Title))
	}
	parts = append(parts,
		body.String(),
		dimStyle.Render(fmt.Sprintf("%dx%d positions, z %.3f to %.3f", tp.Cols, tp.Rows, cv.lo, cv.hi)),
	)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func band(t float64) lipgloss.Color {
	i := int(t * float64(len(heightPalette)))
	return heightPalette[min(max(i, 0), len(heightPalette)-1)]
}
