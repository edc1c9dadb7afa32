package scene

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/coping/pkg/geom"
)

// Severity ranks a validation finding.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Validation codes.
const (
	CodeBadDimension      = "BAD_DIMENSION"
	CodeDuplicateName     = "DUPLICATE_NAME"
	CodeFeatureOutside    = "FEATURE_OUTSIDE"
	CodeFeatureOnSurface  = "FEATURE_ON_SURFACE"
	CodeUnknownBody       = "UNKNOWN_BODY"
	CodeUnknownTarget     = "UNKNOWN_TARGET"
	CodeEmptyOccurrence   = "EMPTY_OCCURRENCE"
	CodeHiddenOccurrence  = "HIDDEN_OCCURRENCE"
	CodeNothingToClassify = "NO_BODIES"
)

// ValidationError is a problem found in a scene. Errors prevent Build;
// warnings are reported and ignored.
type ValidationError struct {
	Code     string
	Message  string
	Severity Severity
	Subject  string // body or occurrence name
}

func (e ValidationError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []ValidationError) bool {
	return lo.ContainsBy(findings, func(f ValidationError) bool { return f.Severity == SeverityError })
}

// Validate checks sc and returns every finding, errors first.
func Validate(sc *Scene) []ValidationError {
	var findings []ValidationError
	findings = append(findings, validateNames(sc)...)
	for _, b := range sc.Bodies {
		findings = append(findings, validateBody(b)...)
	}
	findings = append(findings, validateOccurrences(sc)...)
	findings = append(findings, validateTarget(sc)...)

	isError := func(f ValidationError, _ int) bool { return f.Severity == SeverityError }
	return append(lo.Filter(findings, isError), lo.Reject(findings, isError)...)
}

func validateNames(sc *Scene) []ValidationError {
	var errs []ValidationError
	bodyNames := lo.Map(sc.Bodies, func(b *BodySpec, _ int) string { return b.Name })
	for _, name := range lo.FindDuplicates(bodyNames) {
		errs = append(errs, ValidationError{
			Code:     CodeDuplicateName,
			Message:  "body name defined more than once",
			Severity: SeverityError,
			Subject:  name,
		})
	}
	occNames := lo.Map(sc.Occurrences, func(o *OccurrenceSpec, _ int) string { return o.Name })
	for _, name := range lo.FindDuplicates(occNames) {
		errs = append(errs, ValidationError{
			Code:     CodeDuplicateName,
			Message:  "occurrence name defined more than once",
			Severity: SeverityError,
			Subject:  name,
		})
	}
	if len(sc.Bodies) == 0 {
		errs = append(errs, ValidationError{
			Code:     CodeNothingToClassify,
			Message:  "scene defines no bodies",
			Severity: SeverityWarning,
		})
	}
	return errs
}

func validateBody(b *BodySpec) []ValidationError {
	var errs []ValidationError
	bad := func(format string, args ...any) {
		errs = append(errs, ValidationError{
			Code:     CodeBadDimension,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
			Subject:  b.Name,
		})
	}

	sh := b.Shape
	switch sh.Kind {
	case ShapeBox:
		if sh.Size.X <= 0 || sh.Size.Y <= 0 || sh.Size.Z <= 0 {
			bad("box size %s must be positive", geom.FormatVector(sh.Size))
		}
	case ShapeCylinder:
		if sh.Height <= 0 || sh.Radius <= 0 {
			bad("cylinder height %g and radius %g must be positive", sh.Height, sh.Radius)
		}
	case ShapeTube:
		if sh.Height <= 0 || sh.Inner <= 0 || sh.Radius <= sh.Inner {
			bad("tube needs height > 0 and outer > inner > 0, got height %g outer %g inner %g",
				sh.Height, sh.Radius, sh.Inner)
		}
	case ShapeSurface:
		if sh.U.Cross(sh.V).Length() == 0 {
			bad("surface edges %s and %s are parallel", geom.FormatVector(sh.U), geom.FormatVector(sh.V))
		}
	}

	bounds, solid := shapeBounds(sh)
	for _, f := range b.Features {
		if f.Kind == FeatureWeb {
			if !solid {
				errs = append(errs, featureOnSurface(b, f))
			}
			continue
		}
		if f.Radius <= 0 {
			bad("%s radius %g must be positive", f.Kind, f.Radius)
			continue
		}
		if f.Kind == FeaturePocket && f.Into.Length() == 0 {
			bad("pocket direction is zero")
			continue
		}
		if !solid {
			errs = append(errs, featureOnSurface(b, f))
			continue
		}
		if len(errs) > 0 {
			// Bounds are meaningless for a malformed shape.
			continue
		}
		if !featureFits(f, bounds) {
			errs = append(errs, ValidationError{
				Code: CodeFeatureOutside,
				Message: fmt.Sprintf("%s at %s radius %g is not inside the body",
					f.Kind, geom.FormatPoint(f.Center), f.Radius),
				Severity: SeverityError,
				Subject:  b.Name,
			})
		}
	}
	return errs
}

func featureOnSurface(b *BodySpec, f Feature) ValidationError {
	return ValidationError{
		Code:     CodeFeatureOnSurface,
		Message:  fmt.Sprintf("%s needs a solid body", f.Kind),
		Severity: SeverityError,
		Subject:  b.Name,
	}
}

// shapeBounds returns the local bounding box of a solid shape, as the
// memkernel builders lay it out. Surfaces report false.
func shapeBounds(sh Shape) (geom.Box, bool) {
	switch sh.Kind {
	case ShapeBox:
		return geom.NewBox(geom.Point3{}, sh.Size), true
	case ShapeCylinder, ShapeTube:
		half := geom.Vector3{X: sh.Radius, Y: sh.Radius, Z: sh.Height / 2}
		return geom.NewBox(half.MulScalar(-1), half), true
	}
	return geom.Box{}, false
}

// featureFits requires a cavity's sphere to lie inside bounds and a
// pocket's opening to touch them.
func featureFits(f Feature, bounds geom.Box) bool {
	if f.Kind == FeaturePocket {
		return geom.BoxesIntersect(geom.NewBox(f.Center, f.Center), bounds)
	}
	r := geom.Vector3{X: f.Radius, Y: f.Radius, Z: f.Radius}
	lower, upper := f.Center.Sub(r), f.Center.Add(r)
	return lower.X >= bounds.Min.X && lower.Y >= bounds.Min.Y && lower.Z >= bounds.Min.Z &&
		upper.X <= bounds.Max.X && upper.Y <= bounds.Max.Y && upper.Z <= bounds.Max.Z
}

func validateOccurrences(sc *Scene) []ValidationError {
	var errs []ValidationError
	for _, o := range sc.Occurrences {
		if len(o.Bodies) == 0 {
			errs = append(errs, ValidationError{
				Code:     CodeEmptyOccurrence,
				Message:  "occurrence has no bodies",
				Severity: SeverityWarning,
				Subject:  o.Name,
			})
			continue
		}
		specs := make([]*BodySpec, 0, len(o.Bodies))
		for _, name := range o.Bodies {
			spec := sc.Body(name)
			if spec == nil {
				errs = append(errs, ValidationError{
					Code:     CodeUnknownBody,
					Message:  fmt.Sprintf("no body named %q", name),
					Severity: SeverityError,
					Subject:  o.Name,
				})
				continue
			}
			specs = append(specs, spec)
		}
		allHidden := lo.EveryBy(specs, func(b *BodySpec) bool { return b.Hidden })
		if o.Hidden || (len(specs) > 0 && allHidden) {
			errs = append(errs, ValidationError{
				Code:     CodeHiddenOccurrence,
				Message:  "occurrence has no visible bodies and never supplies split tools",
				Severity: SeverityWarning,
				Subject:  o.Name,
			})
		}
	}
	return errs
}

func validateTarget(sc *Scene) []ValidationError {
	if sc.Target == "" {
		return nil
	}
	if occName, bodyName, ok := strings.Cut(sc.Target, "/"); ok {
		if o := sc.Occurrence(occName); o != nil && lo.Contains(o.Bodies, bodyName) {
			return nil
		}
	} else if sc.Occurrence(sc.Target) != nil || sc.Body(sc.Target) != nil {
		return nil
	}
	return []ValidationError{{
		Code:     CodeUnknownTarget,
		Message:  fmt.Sprintf("target %q names no occurrence or body", sc.Target),
		Severity: SeverityError,
	}}
}
