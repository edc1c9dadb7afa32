// Package geom provides the spatial value types and pure geometric helpers
// the classification engine is built on. Points, vectors and boxes are the
// sdfx types so that kernel backends built on sdfx need no conversion.
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrZeroLength is returned when a direction is requested from a vector
// with no length.
var ErrZeroLength = errors.New("geom: zero-length vector")

// zeroLength is the squared length below which a vector has no direction.
const zeroLength = 1e-24

// Point3 is a position in model space.
type Point3 = v3.Vec

// Vector3 is a direction or displacement in model space.
type Vector3 = v3.Vec

// Box is an axis-aligned bounding box.
type Box = sdf.Box3

// NewBox returns the box spanning min and max.
func NewBox(min, max Point3) Box {
	return Box{Min: min, Max: max}
}

// Midpoint returns the per-axis average of min and max.
func Midpoint(min, max Point3) Point3 {
	return Point3{
		X: (min.X + max.X) / 2,
		Y: (min.Y + max.Y) / 2,
		Z: (min.Z + max.Z) / 2,
	}
}

// BoxCenter returns the midpoint of b. For a body this is the approximate
// centroid used by every classifier.
func BoxCenter(b Box) Point3 {
	return Midpoint(b.Min, b.Max)
}

// Extent returns the size of b along each axis.
func Extent(b Box) Vector3 {
	return b.Max.Sub(b.Min)
}

// BoxesIntersect reports whether a and b overlap on all three axes.
// Boxes that only touch are intersecting.
func BoxesIntersect(a, b Box) bool {
	return a.Max.X >= b.Min.X && a.Min.X <= b.Max.X &&
		a.Max.Y >= b.Min.Y && a.Min.Y <= b.Max.Y &&
		a.Max.Z >= b.Min.Z && a.Min.Z <= b.Max.Z
}

// BoxOf returns the smallest box containing all points. It panics on an
// empty slice.
func BoxOf(points ...Point3) Box {
	if len(points) == 0 {
		panic("geom: BoxOf called with no points")
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Union returns the smallest box containing a and b.
func Union(a, b Box) Box {
	return Box{Min: a.Min.Min(b.Min), Max: a.Max.Max(b.Max)}
}

// Inflate grows b by pad on every side.
func Inflate(b Box, pad float64) Box {
	d := Vector3{X: pad, Y: pad, Z: pad}
	return Box{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point3) float64 {
	return b.Sub(a).Length()
}

// Normalize returns v scaled to unit length.
func Normalize(v Vector3) (Vector3, error) {
	l2 := v.Dot(v)
	if l2 < zeroLength {
		return Vector3{}, ErrZeroLength
	}
	return v.DivScalar(math.Sqrt(l2)), nil
}

// Direction returns the unit vector pointing from a to b.
func Direction(from, to Point3) (Vector3, error) {
	return Normalize(to.Sub(from))
}

// AngleBetween returns the angle between u and v in radians, in [0, π].
func AngleBetween(u, v Vector3) (float64, error) {
	nu, err := Normalize(u)
	if err != nil {
		return 0, err
	}
	nv, err := Normalize(v)
	if err != nil {
		return 0, err
	}
	c := nu.Dot(nv)
	// Rounding can push the cosine of parallel unit vectors past ±1.
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c), nil
}

// FormatPoint renders p with three decimals, for logs.
func FormatPoint(p Point3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

// FormatVector renders v with three decimals, for logs.
func FormatVector(v Vector3) string {
	return FormatPoint(v)
}
