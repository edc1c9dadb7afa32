package memkernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/coping/pkg/geom"
)

// ErrBadDimension is returned for non-positive or inconsistent sizes.
var ErrBadDimension = errors.New("memkernel: invalid dimension")

// Axis names a principal axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis accepts "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z":
		return AxisZ, nil
	default:
		return AxisX, fmt.Errorf("memkernel: unknown axis %q", s)
	}
}

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// unit returns the positive unit vector along a.
func (a Axis) unit() geom.Vector3 {
	switch a {
	case AxisX:
		return geom.Vector3{X: 1}
	case AxisY:
		return geom.Vector3{Y: 1}
	default:
		return geom.Vector3{Z: 1}
	}
}

// perpendicular returns a unit vector perpendicular to n.
func perpendicular(n geom.Vector3) geom.Vector3 {
	ref := geom.Vector3{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = geom.Vector3{Y: 1}
	}
	return mustNormalize(ref.Sub(n.MulScalar(ref.Dot(n))))
}

// NewBox creates a box body with the given dimensions. The box has its
// minimum corner at the origin so that placement translations work
// intuitively: an occurrence at (10, 0, 0) puts the corner at x=10.
// sdf.Box3D centers the box at the origin, so it is shifted by half the
// dimensions.
func NewBox(name string, size geom.Vector3) (*Body, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("%w: box %q size %s", ErrBadDimension, name, geom.FormatVector(size))
	}
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("memkernel: box %q: %w", name, err)
	}
	m := sdf.Translate3d(size.DivScalar(2))
	b := newBody(name, sdf.Transform3D(s, m))

	ex, ey, ez := geom.Vector3{X: size.X}, geom.Vector3{Y: size.Y}, geom.Vector3{Z: size.Z}
	o := geom.Point3{}
	b.addFace("left", plane{origin: o, e1: ey, e2: ez, n: geom.Vector3{X: -1}})
	b.addFace("right", plane{origin: o.Add(ex), e1: ey, e2: ez, n: geom.Vector3{X: 1}})
	b.addFace("front", plane{origin: o, e1: ex, e2: ez, n: geom.Vector3{Y: -1}})
	b.addFace("back", plane{origin: o.Add(ey), e1: ex, e2: ez, n: geom.Vector3{Y: 1}})
	b.addFace("bottom", plane{origin: o, e1: ex, e2: ey, n: geom.Vector3{Z: -1}})
	b.addFace("top", plane{origin: o.Add(ez), e1: ex, e2: ey, n: geom.Vector3{Z: 1}})
	return b, nil
}

// NewCylinder creates a solid cylinder along Z centered at the origin, as
// sdf.Cylinder3D builds it.
func NewCylinder(name string, height, radius float64) (*Body, error) {
	if height <= 0 || radius <= 0 {
		return nil, fmt.Errorf("%w: cylinder %q height %g radius %g", ErrBadDimension, name, height, radius)
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("memkernel: cylinder %q: %w", name, err)
	}
	b := newBody(name, s)
	z := geom.Vector3{Z: 1}
	x := geom.Vector3{X: 1}
	base := geom.Point3{Z: -height / 2}
	b.addFace("wall", cylinder{base: base, axis: z, ref: x, radius: radius, height: height, outward: true})
	b.addFace("bottom", annulus{center: base, n: z.MulScalar(-1), ref: x, outer: radius})
	b.addFace("top", annulus{center: base.Add(z.MulScalar(height)), n: z, ref: x, outer: radius})
	return b, nil
}

// NewTube creates a hollow cylinder along Z centered at the origin: the
// outer cylinder minus a coaxial bore. The bore wall faces the axis.
func NewTube(name string, height, outer, inner float64) (*Body, error) {
	if height <= 0 || inner <= 0 || outer <= inner {
		return nil, fmt.Errorf("%w: tube %q height %g outer %g inner %g", ErrBadDimension, name, height, outer, inner)
	}
	so, err := sdf.Cylinder3D(height, outer, 0)
	if err != nil {
		return nil, fmt.Errorf("memkernel: tube %q: %w", name, err)
	}
	// Overshoot the bore so the difference leaves no skin on the caps.
	si, err := sdf.Cylinder3D(height*1.01, inner, 0)
	if err != nil {
		return nil, fmt.Errorf("memkernel: tube %q: %w", name, err)
	}
	b := newBody(name, sdf.Difference3D(so, si))
	z := geom.Vector3{Z: 1}
	x := geom.Vector3{X: 1}
	base := geom.Point3{Z: -height / 2}
	b.addFace("outer", cylinder{base: base, axis: z, ref: x, radius: outer, height: height, outward: true})
	b.addFace("bore", cylinder{base: base, axis: z, ref: x, radius: inner, height: height})
	b.addFace("bottom", annulus{center: base, n: z.MulScalar(-1), ref: x, inner: inner, outer: outer})
	b.addFace("top", annulus{center: base.Add(z.MulScalar(height)), n: z, ref: x, inner: inner, outer: outer})
	return b, nil
}

// NewSurface creates a non-solid body holding one rectangular face
// origin + u*e1 + v*e2 whose normal is e1 x e2.
func NewSurface(name string, origin geom.Point3, e1, e2 geom.Vector3) (*Body, error) {
	n, err := geom.Normalize(e1.Cross(e2))
	if err != nil {
		return nil, fmt.Errorf("%w: surface %q is degenerate", ErrBadDimension, name)
	}
	b := newBody(name, nil)
	b.addFace("sheet", plane{origin: origin, e1: e1, e2: e2, n: n})
	return b, nil
}

// AddCavity removes a sphere of the given radius around center from a
// solid body and adds the cavity wall as a face. The sphere must lie
// inside the body's bounds.
func (b *Body) AddCavity(center geom.Point3, radius float64) (*Face, error) {
	if err := b.checkFeature("cavity", center, radius); err != nil {
		return nil, err
	}
	if err := b.subtractSphere(center, radius); err != nil {
		return nil, err
	}
	return b.addFace("cavity", sphere{
		center: center,
		axis:   geom.Vector3{Z: 1},
		ref:    geom.Vector3{X: 1},
		radius: radius,
		theta0: 0,
		theta1: math.Pi,
	}), nil
}

// AddPocket sinks a hemispherical pocket into the body. center is the
// middle of the opening and into points from the opening into the
// material.
func (b *Body) AddPocket(center geom.Point3, radius float64, into geom.Vector3) (*Face, error) {
	if !b.isSolid {
		return nil, fmt.Errorf("memkernel: pocket on surface body %q", b.name)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("%w: pocket radius %g", ErrBadDimension, radius)
	}
	axis, err := geom.Normalize(into)
	if err != nil {
		return nil, fmt.Errorf("%w: pocket direction", ErrBadDimension)
	}
	if err := b.subtractSphere(center, radius); err != nil {
		return nil, err
	}
	return b.addFace("pocket", sphere{
		center: center,
		axis:   axis,
		ref:    perpendicular(axis),
		radius: radius,
		theta0: 0,
		theta1: math.Pi / 2,
	}), nil
}

// AddWeb adds an internal planar face through the middle of the body,
// perpendicular to axis and spanning the body's cross-section, as left by
// splitting a body along its symmetry plane. The solid is unchanged.
func (b *Body) AddWeb(axis Axis) *Face {
	box := b.box
	ext := geom.Extent(box)
	mid := geom.BoxCenter(box)

	n := axis.unit()
	var e1, e2 geom.Vector3
	origin := box.Min
	switch axis {
	case AxisX:
		e1, e2 = geom.Vector3{Y: ext.Y}, geom.Vector3{Z: ext.Z}
		origin.X = mid.X
	case AxisY:
		e1, e2 = geom.Vector3{Z: ext.Z}, geom.Vector3{X: ext.X}
		origin.Y = mid.Y
	default:
		e1, e2 = geom.Vector3{X: ext.X}, geom.Vector3{Y: ext.Y}
		origin.Z = mid.Z
	}
	return b.addFace("web", plane{origin: origin, e1: e1, e2: e2, n: n})
}

// Place moves the body within its component: the solid and every face.
func (b *Body) Place(t geom.Transform) {
	if b.solid != nil {
		b.solid = sdf.Transform3D(b.solid, t.Matrix())
	}
	for _, f := range b.faces {
		f.surf = f.surf.transform(t)
		f.box = boundsOf(f.surf)
	}
	b.refreshBounds()
}

func (b *Body) checkFeature(kind string, center geom.Point3, radius float64) error {
	if !b.isSolid {
		return fmt.Errorf("memkernel: %s on surface body %q", kind, b.name)
	}
	if radius <= 0 {
		return fmt.Errorf("%w: %s radius %g", ErrBadDimension, kind, radius)
	}
	r := geom.Vector3{X: radius, Y: radius, Z: radius}
	inner := geom.NewBox(center.Sub(r), center.Add(r))
	if inner.Min.X < b.box.Min.X || inner.Min.Y < b.box.Min.Y || inner.Min.Z < b.box.Min.Z ||
		inner.Max.X > b.box.Max.X || inner.Max.Y > b.box.Max.Y || inner.Max.Z > b.box.Max.Z {
		return fmt.Errorf("memkernel: %s at %s radius %g leaves body %q", kind, geom.FormatPoint(center), radius, b.name)
	}
	return nil
}

func (b *Body) subtractSphere(center geom.Point3, radius float64) error {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return fmt.Errorf("memkernel: sphere: %w", err)
	}
	b.solid = sdf.Difference3D(b.solid, sdf.Transform3D(s, sdf.Translate3d(center)))
	return nil
}
