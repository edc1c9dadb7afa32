// Package scene loads Lisp scene files into in-memory designs.
//
// A scene declares body templates with defbody and instantiates them in
// occurrences. Every occurrence gets its own copy of each body it names;
// bodies that no occurrence uses become root bodies of the design.
//
//	(defbody "pipe" (tube :height 40 :outer 10 :inner 8))
//	(defbody "block" (box :size (vec3 20 20 20))
//	  (cavity :at (vec3 10 10 10) :radius 4))
//	(occurrence "pipe:1" "pipe")
//	(occurrence "pipe:2" "pipe" :at (vec3 0 0 15) :rotate (vec3 0 90 0))
//	(target "pipe:1")
package scene

import (
	"github.com/samber/lo"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel/memkernel"
)

// ShapeKind identifies the base solid of a body.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeCylinder
	ShapeTube
	ShapeSurface
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapeTube:
		return "tube"
	case ShapeSurface:
		return "surface"
	default:
		return "unknown"
	}
}

// Shape describes a base solid. Only the fields of its kind are used.
type Shape struct {
	Kind ShapeKind

	Size geom.Vector3 // box

	Height float64 // cylinder, tube
	Radius float64 // cylinder; outer radius of a tube
	Inner  float64 // tube bore radius

	Origin geom.Point3  // surface
	U, V   geom.Vector3 // surface edges
}

// FeatureKind identifies a modification applied to a body.
type FeatureKind int

const (
	FeatureCavity FeatureKind = iota
	FeaturePocket
	FeatureWeb
)

func (k FeatureKind) String() string {
	switch k {
	case FeatureCavity:
		return "cavity"
	case FeaturePocket:
		return "pocket"
	case FeatureWeb:
		return "web"
	default:
		return "unknown"
	}
}

// Feature is a cavity, pocket or web added to a body.
type Feature struct {
	Kind   FeatureKind
	Center geom.Point3
	Radius float64
	Into   geom.Vector3   // pocket direction
	Axis   memkernel.Axis // web normal
}

// BodySpec is a body template.
type BodySpec struct {
	Name     string
	Shape    Shape
	Features []Feature
	At       geom.Vector3 // placement within the component
	Rotate   geom.Vector3 // degrees about X, Y, Z
	Hidden   bool
}

// OccurrenceSpec places bodies in the assembly.
type OccurrenceSpec struct {
	Name   string
	Bodies []string
	At     geom.Vector3
	Rotate geom.Vector3
	Hidden bool
}

// Scene is the result of evaluating a scene file.
type Scene struct {
	Bodies      []*BodySpec
	Occurrences []*OccurrenceSpec
	// Target names the entity picked when none is given on the command line.
	Target string
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// Body returns the body template named name, or nil.
func (s *Scene) Body(name string) *BodySpec {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Occurrence returns the occurrence named name, or nil.
func (s *Scene) Occurrence(name string) *OccurrenceSpec {
	for _, o := range s.Occurrences {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// RootBodies returns the templates no occurrence uses, in declaration order.
func (s *Scene) RootBodies() []*BodySpec {
	used := lo.FlatMap(s.Occurrences, func(o *OccurrenceSpec, _ int) []string { return o.Bodies })
	return lo.Filter(s.Bodies, func(b *BodySpec, _ int) bool { return !lo.Contains(used, b.Name) })
}
