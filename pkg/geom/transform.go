package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Transform is an affine placement of a component in assembly space.
// The zero value is not usable; start from Identity.
type Transform struct {
	m sdf.M44
}

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{m: sdf.Identity3d()}
}

// Translation returns a transform that moves points by v.
func Translation(v Vector3) Transform {
	return Transform{m: sdf.Translate3d(v)}
}

// Rotation returns a rotation by Euler angles in degrees, applied about X,
// then Y, then Z.
func Rotation(x, y, z float64) Transform {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0
	return Transform{m: sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))}
}

// Placement returns a rotation by Euler angles in degrees followed by a
// translation, the usual way an occurrence is placed.
func Placement(translation, rotationDeg Vector3) Transform {
	return Rotation(rotationDeg.X, rotationDeg.Y, rotationDeg.Z).Then(Translation(translation))
}

// Then returns the transform that applies t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{m: u.m.Mul(t.m)}
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	return Transform{m: t.m.Inverse()}
}

// Point maps a position, including translation.
func (t Transform) Point(p Point3) Point3 {
	return t.m.MulPosition(p)
}

// Vector maps a direction. Translation is not applied.
func (t Transform) Vector(v Vector3) Vector3 {
	return t.m.MulPosition(v).Sub(t.m.MulPosition(Vector3{}))
}

// Box maps b and returns the axis-aligned box around the result.
func (t Transform) Box(b Box) Box {
	return t.m.MulBox(b)
}

// Matrix returns the underlying sdfx matrix.
func (t Transform) Matrix() sdf.M44 {
	return t.m
}

// TransformPoint applies t to p.
func TransformPoint(p Point3, t Transform) Point3 {
	return t.Point(p)
}

// TransformVector applies the linear part of t to v.
func TransformVector(v Vector3, t Transform) Vector3 {
	return t.Vector(v)
}

// TransformBox applies t to b.
func TransformBox(b Box, t Transform) Box {
	return t.Box(b)
}
