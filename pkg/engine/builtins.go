package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/contour/pkg/job"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites job script source into something zygomys
// parses:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords
//     need no global symbols.
//  2. kebab-case identifiers become snake_case (ball-end -> ball_end);
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals and comments are copied unchanged.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch c := b[i]; {
		case c == '"':
			j := skipQuoted(b, i, '"', true)
			out = append(out, b[i:j]...)
			i = j
			continue

		case c == '`':
			j := skipQuoted(b, i, '`', false)
			out = append(out, b[i:j]...)
			i = j
			continue

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
			continue

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
			continue

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
			continue

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
			continue
		}
		out = append(out, b[i])
		i++
	}
	return string(out)
}

// skipQuoted returns the index just past the literal opened at b[i].
func skipQuoted(b []byte, i int, quote byte, escapes bool) int {
	i++
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

// sexpShape carries a shape tree through the zygomys environment.
type sexpShape struct {
	shape *job.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s ...)", s.shape.Kind)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword arguments
// ---------------------------------------------------------------------------

// kwPrefix marks keyword names after preprocessing.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A trailing
// keyword without a value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

// number reads keyword name from pa into dst when present.
func (pa kwArgs) number(name string, dst *float64) error {
	v, ok := pa.kw[name]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:fine) or a plain string ("fine").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return strings.TrimPrefix(str, kwPrefix), nil
}

func toShape(s zygo.Sexp) (*job.Shape, error) {
	if v, ok := s.(*sexpShape); ok {
		return v.shape, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

func toNumbers(args []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the job DSL into env. Shape builtins return
// shape values; terrain, tool and job record into j.
//
// Names with hyphens are registered in their preprocessed snake_case form.
func registerBuiltins(env *zygo.Zlisp, j *job.Job) {
	// (box 40 30 5)
	env.AddFunction("box", fixed("box", 3, func(v []float64) *job.Shape {
		return job.Box(v[0], v[1], v[2])
	}))

	// (cylinder 10 2): height then radius
	env.AddFunction("cylinder", fixed("cylinder", 2, func(v []float64) *job.Shape {
		return job.Cylinder(v[0], v[1])
	}))

	// (sphere 6)
	env.AddFunction("sphere", fixed("sphere", 1, func(v []float64) *job.Shape {
		return job.Sphere(v[0])
	}))

	// (ball-end :radius 1.5 :length 10)
	env.AddFunction("ball_end", cutter("ball-end", job.BallEnd))

	// (flat-end :radius 3 :length 12)
	env.AddFunction("flat_end", cutter("flat-end", job.FlatEnd))

	// (union a b ...), (difference a b ...), (intersection a b ...)
	env.AddFunction("union", combine(job.ShapeUnion))
	env.AddFunction("difference", combine(job.ShapeDifference))
	env.AddFunction("intersection", combine(job.ShapeIntersection))

	// (translate shape 10 0 -2)
	env.AddFunction("translate", move("translate", job.Translate))

	// (rotate shape 0 0 45): degrees about X, then Y, then Z
	env.AddFunction("rotate", move("rotate", job.Rotate))

	// (stl "terrain.stl")
	env.AddFunction("stl", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("stl requires a file path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("stl: path: %w", err)
		}
		return &sexpShape{shape: job.Mesh(path)}, nil
	})

	// (terrain shape) and (tool shape)
	env.AddFunction("terrain", assign("terrain", &j.Terrain))
	env.AddFunction("tool", assign("tool", &j.Tool))

	// (job :name "relief" :step :fine :x-stride 2 :y-stride 2 :floor -1
	//      :cell-factor 4)
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("job takes keyword arguments only")
		}

		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("job: name: %w", err)
			}
			j.Name = s
		}
		if v, ok := pa.kw["step"]; ok {
			step, err := toStep(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("job: step: %w", err)
			}
			j.Step = step
		}
		for kw, dst := range map[string]*int{"x-stride": &j.XStride, "y-stride": &j.YStride} {
			if v, ok := pa.kw[kw]; ok {
				n, err := toInt(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("job: %s: %w", kw, err)
				}
				*dst = n
			}
		}
		if err := pa.number("floor", &j.Floor); err != nil {
			return zygo.SexpNull, fmt.Errorf("job: %w", err)
		}
		if err := pa.number("cell-factor", &j.CellFactor); err != nil {
			return zygo.SexpNull, fmt.Errorf("job: %w", err)
		}
		return zygo.SexpNull, nil
	})
}

func toStep(v zygo.Sexp) (float64, error) {
	if f, err := toFloat64(v); err == nil {
		return f, nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return 0, err
	}
	return job.ParseStep(s)
}

func fixed(name string, n int, mk func([]float64) *job.Shape) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != n {
			return zygo.SexpNull, fmt.Errorf("%s requires exactly %d arguments, got %d", name, n, len(args))
		}
		v, err := toNumbers(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return &sexpShape{shape: mk(v)}, nil
	}
}

func cutter(name string, mk func(radius, length float64) *job.Shape) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if _, ok := pa.kw["radius"]; !ok {
			return zygo.SexpNull, fmt.Errorf("%s requires :radius", name)
		}
		var radius, length float64
		if err := pa.number("radius", &radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		if err := pa.number("length", &length); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return &sexpShape{shape: mk(radius, length)}, nil
	}
}

func combine(kind job.ShapeKind) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two shapes", kind)
		}
		children := make([]*job.Shape, len(args))
		for i, a := range args {
			s, err := toShape(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: shape %d: %w", kind, i+1, err)
			}
			children[i] = s
		}
		return &sexpShape{shape: job.Combine(kind, children...)}, nil
	}
}

func move(name string, mk func(*job.Shape, v3.Vec) *job.Shape) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("%s requires a shape and three numbers", name)
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		v, err := toNumbers(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return &sexpShape{shape: mk(s, v3.Vec{X: v[0], Y: v[1], Z: v[2]})}, nil
	}
}

func assign(name string, dst **job.Shape) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires exactly one shape", name)
		}
		if *dst != nil {
			return zygo.SexpNull, fmt.Errorf("%s is already defined", name)
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		*dst = s
		return args[0], nil
	}
}
