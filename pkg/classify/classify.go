// Package classify decides how a face of a BRep body is oriented relative to
// the body: inward, outward, on the body's center plane, or bounding an
// interior cavity. Every test samples the face's evaluator once at its
// parametric center and compares the surface normal with the direction to
// the body's bounding-box midpoint.
//
// The tests are heuristics. The bounding-box midpoint approximates the body
// centroid, and a single sample approximates the whole face, so highly
// non-convex bodies and sliver faces can be misclassified.
//
// Classification functions never mutate their inputs and may be called
// concurrently.
package classify

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// Reasons a face cannot be classified.
var (
	ErrParameterMiss = errors.New("classify: evaluator has no point at parameter")
	ErrNormalMiss    = errors.New("classify: evaluator has no normal at point")
	ErrNoVertices    = errors.New("classify: face has no vertices")
)

// Defaults for Options.
const (
	DefaultInteriorEpsilon     = 0.01 // radians past a right angle
	DefaultCenterPlaneFraction = 0.01 // of the body extent, per axis
	DefaultProximityTolerance  = 1.5  // length units
)

// sampleU and sampleV locate the single evaluator sample on every face.
const (
	sampleU = 0.5
	sampleV = 0.5
)

// Orientation is the result of the inward/outward test.
type Orientation int

const (
	Indeterminate Orientation = iota // normal perpendicular to the centroid direction
	Inward
	Outward
)

func (o Orientation) String() string {
	switch o {
	case Inward:
		return "inward"
	case Outward:
		return "outward"
	default:
		return "indeterminate"
	}
}

// Result is the outcome of one classification test. Err is set when the
// face could not be sampled; such a face matches no test.
type Result struct {
	Orientation Orientation
	Match       bool
	Err         error
}

// Classified reports whether the test produced an answer.
func (r Result) Classified() bool {
	return r.Err == nil
}

// Is reports whether the face was classified with orientation o.
func (r Result) Is(o Orientation) bool {
	return r.Err == nil && r.Orientation == o
}

func unclassifiable(err error) Result {
	return Result{Err: err}
}

// Options holds the tunable tolerances of a Classifier.
type Options struct {
	InteriorEpsilon     float64
	CenterPlaneFraction float64
	ProximityTolerance  float64
}

// DefaultOptions returns the stock tolerances.
func DefaultOptions() Options {
	return Options{
		InteriorEpsilon:     DefaultInteriorEpsilon,
		CenterPlaneFraction: DefaultCenterPlaneFraction,
		ProximityTolerance:  DefaultProximityTolerance,
	}
}

// Classifier runs the classification tests with a fixed set of options.
// The zero value uses DefaultOptions.
type Classifier struct {
	opts Options
	set  bool
}

// New returns a Classifier using opts.
func New(opts Options) Classifier {
	return Classifier{opts: opts, set: true}
}

// Options returns the tolerances in effect.
func (c Classifier) Options() Options {
	if !c.set {
		return DefaultOptions()
	}
	return c.opts
}

// sample is the face evaluated at its parametric center, in assembly space.
type sample struct {
	point      geom.Point3
	normal     geom.Vector3
	toCentroid geom.Vector3
}

// sampleFace evaluates the face at (0.5, 0.5) and maps the point, the
// normal and the body's approximate centroid into assembly space.
func sampleFace(face kernel.Face, body kernel.Body) (sample, error) {
	ev := face.Evaluator()
	p, ok := ev.PointAtParameter(sampleU, sampleV)
	if !ok {
		return sample{}, ErrParameterMiss
	}
	n, ok := ev.NormalAtPoint(p)
	if !ok {
		return sample{}, ErrNormalMiss
	}

	t := kernel.Placement(body)
	worldPoint := geom.TransformPoint(p, t)
	worldNormal := geom.TransformVector(n, t)
	centroid := geom.TransformPoint(geom.BoxCenter(body.BoundingBox()), t)

	toCentroid, err := geom.Direction(worldPoint, centroid)
	if err != nil {
		return sample{}, fmt.Errorf("direction to centroid: %w", err)
	}
	return sample{point: worldPoint, normal: worldNormal, toCentroid: toCentroid}, nil
}

// Orientation decides whether face points toward (Inward) or away from
// (Outward) the centroid of body.
func (c Classifier) Orientation(face kernel.Face, body kernel.Body) Result {
	s, err := sampleFace(face, body)
	if err != nil {
		return unclassifiable(err)
	}
	normal, err := geom.Normalize(s.normal)
	if err != nil {
		return unclassifiable(fmt.Errorf("surface normal: %w", err))
	}

	d := normal.Dot(s.toCentroid)
	switch {
	case d > 0:
		return Result{Orientation: Inward, Match: true}
	case d < 0:
		return Result{Orientation: Outward, Match: true}
	default:
		return Result{Orientation: Indeterminate}
	}
}

// IsInterior is a looser inward test for cavity and pocket faces: the angle
// between the normal and the centroid direction is under a right angle plus
// the interior epsilon, so grazing faces still count.
func (c Classifier) IsInterior(face kernel.Face, body kernel.Body) Result {
	s, err := sampleFace(face, body)
	if err != nil {
		return unclassifiable(err)
	}
	angle, err := geom.AngleBetween(s.normal, s.toCentroid)
	if err != nil {
		return unclassifiable(fmt.Errorf("surface normal: %w", err))
	}
	return Result{Match: angle < math.Pi/2+c.Options().InteriorEpsilon}
}

// Orient classifies face with the default options.
func Orient(face kernel.Face, body kernel.Body) Result {
	return Classifier{}.Orientation(face, body)
}

// IsInterior runs the interior test with the default options.
func IsInterior(face kernel.Face, body kernel.Body) Result {
	return Classifier{}.IsInterior(face, body)
}
