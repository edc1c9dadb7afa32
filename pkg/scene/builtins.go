package scene

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel/memkernel"
)

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec geom.Vector3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpShape struct {
	shape Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", s.shape.Kind)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

type sexpFeature struct {
	feature Feature
}

func (f *sexpFeature) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", f.feature.Kind)
}
func (f *sexpFeature) Type() *zygo.RegisteredType { return nil }

// sexpBodyRef is returned by defbody and body.
type sexpBodyRef struct {
	spec *BodySpec
}

func (r *sexpBodyRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(body %q)", r.spec.Name)
}
func (r *sexpBodyRef) Type() *zygo.RegisteredType { return nil }

// sexpOccurrenceRef is returned by occurrence.
type sexpOccurrenceRef struct {
	spec *OccurrenceSpec
}

func (r *sexpOccurrenceRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(occurrence %q)", r.spec.Name)
}
func (r *sexpOccurrenceRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword arguments from positional ones.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
			continue
		}
		result.positional = append(result.positional, args[i])
		i++
	}
	return result
}

// float reads an optional numeric keyword into dst.
func (a kwArgs) float(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// vec reads an optional vec3 keyword into dst.
func (a kwArgs) vec(key string, dst *geom.Vector3) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = vec
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
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

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:z) or a plain string ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (geom.Vector3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vector3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toAxis(s zygo.Sexp) (memkernel.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return memkernel.AxisZ, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	return memkernel.ParseAxis(name)
}

// toName accepts a string or a reference returned by defbody, body or
// occurrence.
func toName(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpBodyRef:
		return v.spec.Name, nil
	case *sexpOccurrenceRef:
		return v.spec.Name, nil
	case *zygo.SexpStr:
		return v.S, nil
	}
	return "", fmt.Errorf("expected name or reference, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into env. Evaluation appends
// to sc. Source must go through preprocessSource first.
func registerBuiltins(env *zygo.Zlisp, sc *Scene) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: geom.Vector3{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (box :size (vec3 100 50 25)) or (box :length 100 :width 50 :height 25)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sh := Shape{Kind: ShapeBox}
		if err := pa.vec("size", &sh.Size); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		for key, dst := range map[string]*float64{"length": &sh.Size.X, "width": &sh.Size.Y, "height": &sh.Size.Z} {
			if err := pa.float(key, dst); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
		}
		return &sexpShape{shape: sh}, nil
	})

	// (cylinder :height 30 :radius 5)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sh := Shape{Kind: ShapeCylinder}
		if err := pa.float("height", &sh.Height); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if err := pa.float("radius", &sh.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpShape{shape: sh}, nil
	})

	// (tube :height 40 :outer 10 :inner 8)
	env.AddFunction("tube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sh := Shape{Kind: ShapeTube}
		if err := pa.float("height", &sh.Height); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		if err := pa.float("outer", &sh.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		if err := pa.float("inner", &sh.Inner); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		return &sexpShape{shape: sh}, nil
	})

	// (surface :origin (vec3 0 0 0) :u (vec3 10 0 0) :v (vec3 0 10 0))
	env.AddFunction("surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sh := Shape{Kind: ShapeSurface}
		if err := pa.vec("origin", &sh.Origin); err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: %w", err)
		}
		if err := pa.vec("u", &sh.U); err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: %w", err)
		}
		if err := pa.vec("v", &sh.V); err != nil {
			return zygo.SexpNull, fmt.Errorf("surface: %w", err)
		}
		return &sexpShape{shape: sh}, nil
	})

	// (cavity :at (vec3 10 10 10) :radius 4)
	env.AddFunction("cavity", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		f := Feature{Kind: FeatureCavity}
		if err := pa.vec("at", &f.Center); err != nil {
			return zygo.SexpNull, fmt.Errorf("cavity: %w", err)
		}
		if err := pa.float("radius", &f.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("cavity: %w", err)
		}
		return &sexpFeature{feature: f}, nil
	})

	// (pocket :at (vec3 10 10 20) :radius 3 :into (vec3 0 0 -1))
	env.AddFunction("pocket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		f := Feature{Kind: FeaturePocket, Into: geom.Vector3{Z: -1}}
		if err := pa.vec("at", &f.Center); err != nil {
			return zygo.SexpNull, fmt.Errorf("pocket: %w", err)
		}
		if err := pa.float("radius", &f.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("pocket: %w", err)
		}
		if err := pa.vec("into", &f.Into); err != nil {
			return zygo.SexpNull, fmt.Errorf("pocket: %w", err)
		}
		return &sexpFeature{feature: f}, nil
	})

	// (web :axis :z)
	env.AddFunction("web", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		f := Feature{Kind: FeatureWeb, Axis: memkernel.AxisZ}
		if v, ok := pa.kw["axis"]; ok {
			a, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("web: axis: %w", err)
			}
			f.Axis = a
		}
		return &sexpFeature{feature: f}, nil
	})

	// (defbody "name" (box ...) (cavity ...) ... :at (vec3 ...) :rotate (vec3 ...))
	env.AddFunction("defbody", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("defbody requires a name and a shape expression")
		}
		bodyName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defbody: name: %w", err)
		}
		sh, ok := pa.positional[1].(*sexpShape)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("defbody %q: expected shape expression, got %T", bodyName, pa.positional[1])
		}
		spec := &BodySpec{Name: bodyName, Shape: sh.shape}
		for i, arg := range pa.positional[2:] {
			f, ok := arg.(*sexpFeature)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("defbody %q: argument %d: expected feature, got %T (%s)",
					bodyName, i+3, arg, arg.SexpString(nil))
			}
			spec.Features = append(spec.Features, f.feature)
		}
		if err := pa.vec("at", &spec.At); err != nil {
			return zygo.SexpNull, fmt.Errorf("defbody %q: %w", bodyName, err)
		}
		if err := pa.vec("rotate", &spec.Rotate); err != nil {
			return zygo.SexpNull, fmt.Errorf("defbody %q: %w", bodyName, err)
		}
		sc.Bodies = append(sc.Bodies, spec)
		return &sexpBodyRef{spec: spec}, nil
	})

	// (body "name")
	env.AddFunction("body", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("body requires a name argument")
		}
		bodyName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("body: name: %w", err)
		}
		spec := sc.Body(bodyName)
		if spec == nil {
			return zygo.SexpNull, fmt.Errorf("body: no body named %q", bodyName)
		}
		return &sexpBodyRef{spec: spec}, nil
	})

	// (occurrence "name" "body" (body "other") ... :at (vec3 ...) :rotate (vec3 ...))
	env.AddFunction("occurrence", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("occurrence requires a name argument")
		}
		occName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("occurrence: name: %w", err)
		}
		spec := &OccurrenceSpec{Name: occName}
		for i, arg := range pa.positional[1:] {
			bodyName, err := toName(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("occurrence %q: body %d: %w", occName, i+1, err)
			}
			spec.Bodies = append(spec.Bodies, bodyName)
		}
		if err := pa.vec("at", &spec.At); err != nil {
			return zygo.SexpNull, fmt.Errorf("occurrence %q: %w", occName, err)
		}
		if err := pa.vec("rotate", &spec.Rotate); err != nil {
			return zygo.SexpNull, fmt.Errorf("occurrence %q: %w", occName, err)
		}
		sc.Occurrences = append(sc.Occurrences, spec)
		return &sexpOccurrenceRef{spec: spec}, nil
	})

	// (hide ref)
	env.AddFunction("hide", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("hide requires one body or occurrence reference")
		}
		switch v := args[0].(type) {
		case *sexpBodyRef:
			v.spec.Hidden = true
		case *sexpOccurrenceRef:
			v.spec.Hidden = true
		default:
			return zygo.SexpNull, fmt.Errorf("hide: expected body or occurrence reference, got %T (%s)",
				args[0], args[0].SexpString(nil))
		}
		return args[0], nil
	})

	// (target "pipe:1")
	env.AddFunction("target", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("target requires one name or reference")
		}
		target, err := toName(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("target: %w", err)
		}
		sc.Target = target
		return args[0], nil
	})
}
