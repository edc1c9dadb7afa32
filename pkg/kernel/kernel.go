// Package kernel defines the boundary between the classification engine and
// the BRep modeling kernel that owns bodies, faces and their surface
// evaluators. Implementations (memkernel, or a binding to a host CAD
// application) provide picking, face split and press-pull behind these
// interfaces so the engine never reaches into ambient application state.
//
// Every geometric quantity a Body or Face reports is in the owning
// component's local space. Callers map it to assembly space with the
// transform of Body.AssemblyContext.
package kernel

import (
	"context"
	"errors"

	"github.com/chazu/coping/pkg/geom"
)

// Selection errors.
var (
	ErrNoSelection     = errors.New("kernel: no entity selected")
	ErrWrongKind       = errors.New("kernel: selected entity is not a body or component")
	ErrEmptyOccurrence = errors.New("kernel: the selected component has no bodies")
)

// Kernel opens sessions against a live model.
type Kernel interface {
	// Open acquires a session. The caller must Close it.
	Open(ctx context.Context) (Session, error)
}

// Session is a scoped handle on the active design. All engine calls into
// the kernel during one run go through a single session.
type Session interface {
	// Design returns the active design.
	Design() Design

	// Pick asks the user for an entity of one of the allowed kinds.
	// It returns ErrNoSelection when the user cancels.
	Pick(prompt string, allowed ...EntityKind) (Selection, error)

	// SplitFaces splits targets with the tool faces.
	SplitFaces(targets, tools []Face) error

	// PressPull offsets faces along their normals by a signed distance.
	// Negative distances offset inward.
	PressPull(faces []Face, distance float64) error

	// Close releases the session.
	Close() error
}

// Design is the design tree of the active document.
type Design interface {
	// AllOccurrences returns every occurrence in the design, nested ones
	// included.
	AllOccurrences() []Occurrence

	// RootBodies returns bodies owned directly by the root component.
	RootBodies() []Body
}

// Occurrence is a placed instance of a component.
type Occurrence interface {
	Name() string
	// Transform places the occurrence's component in assembly space.
	Transform() geom.Transform
	Bodies() []Body
}

// Body is a solid (or surface) body.
type Body interface {
	Name() string
	Faces() []Face
	BoundingBox() geom.Box
	IsSolid() bool
	IsVisible() bool
	// AssemblyContext returns the occurrence that contains the body, or nil
	// for a body of the root component.
	AssemblyContext() Occurrence
}

// Face is one bounded surface patch of a body.
type Face interface {
	// TempID is stable for the lifetime of a session.
	TempID() int
	Vertices() []geom.Point3
	Area() float64
	BoundingBox() geom.Box
	Evaluator() Evaluator
}

// Evaluator exposes a face's surface parametrization over [0,1]x[0,1].
type Evaluator interface {
	PointAtParameter(u, v float64) (geom.Point3, bool)
	NormalAtPoint(p geom.Point3) (geom.Vector3, bool)
	ParameterAtPoint(p geom.Point3) (u, v float64, ok bool)
}

// Placement returns the transform that maps b's local geometry into
// assembly space. Root bodies have the identity transform.
func Placement(b Body) geom.Transform {
	if occ := b.AssemblyContext(); occ != nil {
		return occ.Transform()
	}
	return geom.Identity()
}
