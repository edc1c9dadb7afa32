package memkernel

import (
	"math"

	"github.com/chazu/coping/pkg/geom"
)

// boxSamples is the grid resolution used to bound curved surfaces. It is a
// multiple of four so axis-aligned extremes of circles land on the grid.
const boxSamples = 64

// paramSlack is how far outside [0,1] a parameter may fall and still be
// evaluated.
const paramSlack = 1e-9

// surface is an analytic patch parametrized over [0,1]x[0,1].
type surface interface {
	at(u, v float64) geom.Point3
	normal(p geom.Point3) (geom.Vector3, bool)
	param(p geom.Point3) (u, v float64, ok bool)
	area() float64
	vertices() []geom.Point3
	transform(t geom.Transform) surface
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// turn maps an angle to a fraction of a full turn in [0,1).
func turn(angle float64) float64 {
	f := angle / (2 * math.Pi)
	if f < 0 {
		f++
	}
	return f
}

// frame completes a right-handed basis from an axis and a reference
// direction perpendicular to it.
func frame(axis, ref geom.Vector3) (geom.Vector3, geom.Vector3) {
	return ref, axis.Cross(ref)
}

func mustNormalize(v geom.Vector3) geom.Vector3 {
	n, err := geom.Normalize(v)
	if err != nil {
		panic("memkernel: degenerate direction")
	}
	return n
}

// boundsOf returns the bounding box of s.
func boundsOf(s surface) geom.Box {
	if p, ok := s.(plane); ok {
		return geom.BoxOf(p.vertices()...)
	}
	pts := make([]geom.Point3, 0, (boxSamples+1)*(boxSamples+1))
	for i := 0; i <= boxSamples; i++ {
		for j := 0; j <= boxSamples; j++ {
			pts = append(pts, s.at(float64(i)/boxSamples, float64(j)/boxSamples))
		}
	}
	return geom.BoxOf(pts...)
}

// plane is the parallelogram origin + u*e1 + v*e2.
type plane struct {
	origin geom.Point3
	e1, e2 geom.Vector3
	n      geom.Vector3
}

func (s plane) at(u, v float64) geom.Point3 {
	return s.origin.Add(s.e1.MulScalar(u)).Add(s.e2.MulScalar(v))
}

func (s plane) normal(geom.Point3) (geom.Vector3, bool) {
	return s.n, true
}

func (s plane) param(p geom.Point3) (float64, float64, bool) {
	l1, l2 := s.e1.Dot(s.e1), s.e2.Dot(s.e2)
	if l1 == 0 || l2 == 0 {
		return 0, 0, false
	}
	d := p.Sub(s.origin)
	return clamp01(d.Dot(s.e1) / l1), clamp01(d.Dot(s.e2) / l2), true
}

func (s plane) area() float64 {
	return s.e1.Cross(s.e2).Length()
}

func (s plane) vertices() []geom.Point3 {
	return []geom.Point3{s.at(0, 0), s.at(1, 0), s.at(1, 1), s.at(0, 1)}
}

func (s plane) transform(t geom.Transform) surface {
	return plane{
		origin: t.Point(s.origin),
		e1:     t.Vector(s.e1),
		e2:     t.Vector(s.e2),
		n:      mustNormalize(t.Vector(s.n)),
	}
}

// annulus is a flat ring (or disk when inner is zero) around center,
// facing n. u runs around the ring from ref, v from inner to outer radius.
type annulus struct {
	center       geom.Point3
	n, ref       geom.Vector3
	inner, outer float64
}

func (s annulus) at(u, v float64) geom.Point3 {
	x, y := frame(s.n, s.ref)
	a := 2 * math.Pi * u
	r := s.inner + v*(s.outer-s.inner)
	return s.center.Add(x.MulScalar(r * math.Cos(a))).Add(y.MulScalar(r * math.Sin(a)))
}

func (s annulus) normal(geom.Point3) (geom.Vector3, bool) {
	return s.n, true
}

func (s annulus) param(p geom.Point3) (float64, float64, bool) {
	x, y := frame(s.n, s.ref)
	d := p.Sub(s.center)
	px, py := d.Dot(x), d.Dot(y)
	u := turn(math.Atan2(py, px))
	if s.outer == s.inner {
		return u, 0, true
	}
	return u, clamp01((math.Hypot(px, py) - s.inner) / (s.outer - s.inner)), true
}

func (s annulus) area() float64 {
	return math.Pi * (s.outer*s.outer - s.inner*s.inner)
}

func (s annulus) vertices() []geom.Point3 {
	vs := []geom.Point3{s.at(0, 1)}
	if s.inner > 0 {
		vs = append(vs, s.at(0, 0))
	}
	return vs
}

func (s annulus) transform(t geom.Transform) surface {
	return annulus{
		center: t.Point(s.center),
		n:      mustNormalize(t.Vector(s.n)),
		ref:    mustNormalize(t.Vector(s.ref)),
		inner:  s.inner,
		outer:  s.outer,
	}
}

// cylinder is the lateral surface of a right circular cylinder standing on
// base along axis. Normals point away from the axis when outward is set and
// toward it otherwise, as on the wall of a bore.
type cylinder struct {
	base           geom.Point3
	axis, ref      geom.Vector3
	radius, height float64
	outward        bool
}

func (s cylinder) at(u, v float64) geom.Point3 {
	x, y := frame(s.axis, s.ref)
	a := 2 * math.Pi * u
	return s.base.
		Add(s.axis.MulScalar(v * s.height)).
		Add(x.MulScalar(s.radius * math.Cos(a))).
		Add(y.MulScalar(s.radius * math.Sin(a)))
}

func (s cylinder) normal(p geom.Point3) (geom.Vector3, bool) {
	d := p.Sub(s.base)
	radial, err := geom.Normalize(d.Sub(s.axis.MulScalar(d.Dot(s.axis))))
	if err != nil {
		return geom.Vector3{}, false
	}
	if !s.outward {
		radial = radial.MulScalar(-1)
	}
	return radial, true
}

func (s cylinder) param(p geom.Point3) (float64, float64, bool) {
	if s.height == 0 {
		return 0, 0, false
	}
	x, y := frame(s.axis, s.ref)
	d := p.Sub(s.base)
	return turn(math.Atan2(d.Dot(y), d.Dot(x))), clamp01(d.Dot(s.axis) / s.height), true
}

func (s cylinder) area() float64 {
	return 2 * math.Pi * s.radius * s.height
}

// vertices are the two ends of the seam.
func (s cylinder) vertices() []geom.Point3 {
	return []geom.Point3{s.at(0, 0), s.at(0, 1)}
}

func (s cylinder) transform(t geom.Transform) surface {
	return cylinder{
		base:    t.Point(s.base),
		axis:    mustNormalize(t.Vector(s.axis)),
		ref:     mustNormalize(t.Vector(s.ref)),
		radius:  s.radius,
		height:  s.height,
		outward: s.outward,
	}
}

// sphere is a zone of a sphere between polar angles theta0 and theta1,
// measured from axis. Cavity and pocket walls have outward unset so their
// normals point at the center, out of the material.
type sphere struct {
	center         geom.Point3
	axis, ref      geom.Vector3
	radius         float64
	theta0, theta1 float64
	outward        bool
}

func (s sphere) at(u, v float64) geom.Point3 {
	x, y := frame(s.axis, s.ref)
	phi := 2 * math.Pi * u
	theta := s.theta0 + v*(s.theta1-s.theta0)
	st := math.Sin(theta)
	return s.center.
		Add(x.MulScalar(s.radius * st * math.Cos(phi))).
		Add(y.MulScalar(s.radius * st * math.Sin(phi))).
		Add(s.axis.MulScalar(s.radius * math.Cos(theta)))
}

func (s sphere) normal(p geom.Point3) (geom.Vector3, bool) {
	n, err := geom.Normalize(p.Sub(s.center))
	if err != nil {
		return geom.Vector3{}, false
	}
	if !s.outward {
		n = n.MulScalar(-1)
	}
	return n, true
}

func (s sphere) param(p geom.Point3) (float64, float64, bool) {
	d, err := geom.Normalize(p.Sub(s.center))
	if err != nil || s.theta1 == s.theta0 {
		return 0, 0, false
	}
	x, y := frame(s.axis, s.ref)
	theta := math.Acos(math.Max(-1, math.Min(1, d.Dot(s.axis))))
	u := turn(math.Atan2(d.Dot(y), d.Dot(x)))
	return u, clamp01((theta - s.theta0) / (s.theta1 - s.theta0)), true
}

func (s sphere) area() float64 {
	return 2 * math.Pi * s.radius * s.radius * (math.Cos(s.theta0) - math.Cos(s.theta1))
}

// vertices are the seam ends on each boundary circle. A closed sphere has
// none.
func (s sphere) vertices() []geom.Point3 {
	var vs []geom.Point3
	if s.theta0 > 0 {
		vs = append(vs, s.at(0, 0))
	}
	if s.theta1 < math.Pi {
		vs = append(vs, s.at(0, 1))
	}
	return vs
}

func (s sphere) transform(t geom.Transform) surface {
	return sphere{
		center:  t.Point(s.center),
		axis:    mustNormalize(t.Vector(s.axis)),
		ref:     mustNormalize(t.Vector(s.ref)),
		radius:  s.radius,
		theta0:  s.theta0,
		theta1:  s.theta1,
		outward: s.outward,
	}
}
