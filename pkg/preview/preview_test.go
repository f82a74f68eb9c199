package preview

import (
	"strings"
	"testing"

	"github.com/chazu/contour/pkg/raster"
	"github.com/chazu/contour/pkg/toolpath"
)

func newPath(cols, rows int, f func(c, r int) float64) *toolpath.Toolpath {
	tp := &toolpath.Toolpath{
		Grid:    raster.Grid{Step: 1, Cols: cols, Rows: rows},
		XStride: 1,
		YStride: 1,
		Cols:    cols,
		Rows:    rows,
		Z:       make([]float64, cols*rows),
		Covered: make([]bool, cols*rows),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			tp.Z[r*cols+c] = f(c, r)
			tp.Covered[r*cols+c] = true
		}
	}
	return tp
}

func TestLinesFlat(t *testing.T) {
	lines := Lines(newPath(10, 10, func(c, r int) float64 { return 3 }), 0)
	want := []string{"⣿⣿⣿⣿⣿", "⣿⣿⣿⣿⣿", "⠛⠛⠛⠛⠛"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestLinesRamp(t *testing.T) {
	lines := Lines(newPath(20, 8, func(c, r int) float64 { return float64(c) }), 10)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, l := range lines {
		row := []rune(l)
		if len(row) != 10 {
			t.Fatalf("expected 10 cells, got %d", len(row))
		}
		if row[0] != ' ' {
			t.Errorf("lowest cell should be blank, got %q", row[0])
		}
		if row[9] != '⣿' {
			t.Errorf("highest cell should be full, got %q", row[9])
		}
	}
}

func TestLinesOrientation(t *testing.T) {
	// High ground at large Y shows up on the first line.
	lines := Lines(newPath(8, 16, func(c, r int) float64 {
		if r >= 8 {
			return 1
		}
		return 0
	}), 4)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if strings.TrimSpace(lines[0]) == "" {
		t.Error("expected the top line to be lit")
	}
	if strings.TrimSpace(lines[3]) != "" {
		t.Errorf("expected the bottom line to be blank, got %q", lines[3])
	}
}

func TestRender(t *testing.T) {
	tp := newPath(20, 8, func(c, r int) float64 { return float64(c) / 2 })
	out := Render(tp, Options{Width: 10, Title: "relief", Color: true})
	for _, want := range []string{"relief", "20x8 positions", "z 0.000 to 9.500", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output misses %q:\n%s", want, out)
		}
	}

	if out := Render(&toolpath.Toolpath{}, Options{}); !strings.Contains(out, "empty toolpath") {
		t.Errorf("unexpected output for an empty path: %s", out)
	}
}
