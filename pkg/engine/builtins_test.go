package engine

import (
	"strings"
	"testing"

	"github.com/chazu/contour/pkg/job"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(job :name "relief")`,
			expect: `(job "__kw_name" "relief")`,
		},
		{
			name:   "multiple keywords",
			input:  `(ball-end :radius 1.5 :length 10)`,
			expect: `(ball_end "__kw_radius" 1.5 "__kw_length" 10)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:x-stride 2`,
			expect: `"__kw_x-stride" 2`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(translate s 0 0 -2)`,
			expect: `(translate s 0 0 -2)`,
		},
		{
			name:   "comment converted",
			input:  `;; comment with :keyword and flat-end`,
			expect: `// comment with :keyword and flat-end`,
		},
		{
			name:   "single semicolon comment",
			input:  "; simple\n(box 1 2 3)",
			expect: "// simple\n(box 1 2 3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func evalJob(t *testing.T, source string) *job.Job {
	t.Helper()
	j, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	return j
}

func evalFails(t *testing.T, source, want string) {
	t.Helper()
	j, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected a script error, got fatal: %v", err)
	}
	if j != nil {
		t.Fatal("expected nil job")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval errors")
	}
	if !strings.Contains(evalErrs[0].Message, want) {
		t.Errorf("expected error containing %q, got %q", want, evalErrs[0].Message)
	}
}

func TestTerrainAndTool(t *testing.T) {
	j := evalJob(t, `
; a block and a ball end mill
(terrain (box 40 30 5))
(tool (ball-end :radius 1.5 :length 10))
`)
	if j.Terrain == nil || j.Terrain.Kind != job.ShapeBox {
		t.Fatalf("expected box terrain, got %+v", j.Terrain)
	}
	if d := j.Terrain.Data.(job.BoxData); d.Size != (v3.Vec{X: 40, Y: 30, Z: 5}) {
		t.Errorf("unexpected box size %v", d.Size)
	}
	if j.Tool == nil || j.Tool.Kind != job.ShapeBallEnd {
		t.Fatalf("expected ball end tool, got %+v", j.Tool)
	}
	if d := j.Tool.Data.(job.CutterData); d.Radius != 1.5 || d.Length != 10 {
		t.Errorf("unexpected cutter %+v", d)
	}
}

func TestShapeBuiltins(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   job.ShapeKind
		data   job.ShapeData
	}{
		{"box", `(box 1 2 3)`, job.ShapeBox, job.BoxData{Size: v3.Vec{X: 1, Y: 2, Z: 3}}},
		{"cylinder", `(cylinder 10 2)`, job.ShapeCylinder, job.CylinderData{Height: 10, Radius: 2}},
		{"sphere", `(sphere 6.5)`, job.ShapeSphere, job.SphereData{Radius: 6.5}},
		{"flat end", `(flat-end :radius 3 :length 12)`, job.ShapeFlatEnd, job.CutterData{Radius: 3, Length: 12}},
		{"ball end without length", `(ball-end :radius 2)`, job.ShapeBallEnd, job.CutterData{Radius: 2}},
		{"stl", `(stl "part.stl")`, job.ShapeMesh, job.MeshData{Path: "part.stl"}},
		{"translate", `(translate (box 1 1 1) 10 0 -2)`, job.ShapeTranslate, job.TransformData{V: v3.Vec{X: 10, Z: -2}}},
		{"rotate", `(rotate (box 1 1 1) 0 0 45)`, job.ShapeRotate, job.TransformData{V: v3.Vec{Z: 45}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := evalJob(t, "(terrain "+tt.source+")")
			if j.Terrain.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", j.Terrain.Kind, tt.kind)
			}
			if j.Terrain.Data != tt.data {
				t.Errorf("data = %+v, want %+v", j.Terrain.Data, tt.data)
			}
		})
	}
}

func TestBooleans(t *testing.T) {
	j := evalJob(t, `
(def base (box 20 20 10))
(def dent (translate (sphere 6) 10 10 10))
(terrain (union (difference base dent) (intersection base (box 5 5 20))))
`)
	if j.Terrain.Kind != job.ShapeUnion || len(j.Terrain.Children) != 2 {
		t.Fatalf("unexpected terrain %+v", j.Terrain)
	}
	if j.Terrain.Children[0].Kind != job.ShapeDifference {
		t.Errorf("expected difference, got %s", j.Terrain.Children[0].Kind)
	}
	if j.Terrain.Children[1].Kind != job.ShapeIntersection {
		t.Errorf("expected intersection, got %s", j.Terrain.Children[1].Kind)
	}
}

func TestJobParameters(t *testing.T) {
	j := evalJob(t, `(job :name "relief" :step :fine :x-stride 2 :y-stride 3 :floor -1.5 :cell-factor 6)`)
	if j.Name != "relief" {
		t.Errorf("name = %q", j.Name)
	}
	if j.Step != 0.25 {
		t.Errorf("step = %f, want 0.25", j.Step)
	}
	if j.XStride != 2 || j.YStride != 3 {
		t.Errorf("strides = %d, %d", j.XStride, j.YStride)
	}
	if j.Floor != -1.5 {
		t.Errorf("floor = %f", j.Floor)
	}
	if j.CellFactor != 6 {
		t.Errorf("cell factor = %f", j.CellFactor)
	}
}

func TestJobStepForms(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{`(job :step 0.2)`, 0.2},
		{`(job :step 1)`, 1},
		{`(job :step :very-fine)`, 0.1},
		{`(job :step "coarse")`, 1},
	}
	for _, tt := range tests {
		if j := evalJob(t, tt.source); j.Step != tt.want {
			t.Errorf("%s: step = %f, want %f", tt.source, j.Step, tt.want)
		}
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"box arity", `(box 1 2)`, "box requires exactly 3 arguments"},
		{"box non number", `(box 1 2 "x")`, "expected number"},
		{"cutter radius", `(ball-end :length 3)`, "requires :radius"},
		{"union of one", `(union (box 1 1 1))`, "at least two shapes"},
		{"union non shape", `(union (box 1 1 1) 3)`, "expected shape"},
		{"translate arity", `(translate (box 1 1 1) 1 2)`, "a shape and three numbers"},
		{"stl without path", `(stl)`, "requires a file path"},
		{"terrain twice", `(terrain (box 1 1 1)) (terrain (box 2 2 2))`, "already defined"},
		{"tool non shape", `(tool 5)`, "expected shape"},
		{"job positional", `(job 5)`, "keyword arguments only"},
		{"job unknown step", `(job :step :ludicrous)`, "step"},
		{"job float stride", `(job :x-stride 1.5)`, "expected integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.source, tt.want)
		})
	}
}
