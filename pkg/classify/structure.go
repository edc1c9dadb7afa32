package classify

import (
	"math"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// IsCenterPlane reports whether face lies on the center (symmetry) plane of
// body: its vertex-average centroid is within CenterPlaneFraction of the
// body's extent of the bounding-box midpoint on every axis. An axis with
// zero extent has zero tolerance, so only an exact match passes there.
func (c Classifier) IsCenterPlane(face kernel.Face, body kernel.Body) Result {
	vertices := face.Vertices()
	if len(vertices) == 0 {
		return unclassifiable(ErrNoVertices)
	}

	t := kernel.Placement(body)
	bbox := body.BoundingBox()
	center := geom.TransformPoint(geom.BoxCenter(bbox), t)

	var sum geom.Point3
	for _, v := range vertices {
		sum = sum.Add(geom.TransformPoint(v, t))
	}
	faceCenter := sum.DivScalar(float64(len(vertices)))

	frac := c.Options().CenterPlaneFraction
	ext := geom.Extent(bbox)
	match := math.Abs(faceCenter.X-center.X) < ext.X*frac &&
		math.Abs(faceCenter.Y-center.Y) < ext.Y*frac &&
		math.Abs(faceCenter.Z-center.Z) < ext.Z*frac

	// Exact coincidence always counts, including on zero-extent axes.
	if !match && faceCenter == center {
		match = true
	}
	return Result{Match: match}
}

// IsCenterPlane runs the center-plane test with the default options.
func IsCenterPlane(face kernel.Face, body kernel.Body) Result {
	return Classifier{}.IsCenterPlane(face, body)
}

// AreFacesClose reports whether a and b touch within tol: some pair of
// vertices is closer than tol, or some vertex of one face lies within tol
// of its projection onto the other face. Both faces are taken in their
// native coordinates. The check stops at the first qualifying pair.
func AreFacesClose(a, b kernel.Face, tol float64) bool {
	return AreFacesCloseIn(a, geom.Identity(), b, geom.Identity(), tol)
}

// AreFacesCloseIn is AreFacesClose for faces living in different component
// spaces: ta and tb place a and b in a shared assembly space.
func AreFacesCloseIn(a kernel.Face, ta geom.Transform, b kernel.Face, tb geom.Transform, tol float64) bool {
	va := placeAll(a.Vertices(), ta)
	vb := placeAll(b.Vertices(), tb)

	for _, p := range va {
		for _, q := range vb {
			if geom.Distance(p, q) < tol {
				return true
			}
		}
	}
	if anyProjectsWithin(va, b, tb, tol) {
		return true
	}
	return anyProjectsWithin(vb, a, ta, tol)
}

// FacesClose runs AreFacesClose with the classifier's proximity tolerance.
func (c Classifier) FacesClose(a, b kernel.Face) bool {
	return AreFacesClose(a, b, c.Options().ProximityTolerance)
}

func placeAll(points []geom.Point3, t geom.Transform) []geom.Point3 {
	out := make([]geom.Point3, len(points))
	for i, p := range points {
		out[i] = t.Point(p)
	}
	return out
}

// anyProjectsWithin reports whether some point, projected onto face through
// its evaluator's nearest-parameter lookup, lands within tol of itself.
// Points are in assembly space; the face is placed by t.
func anyProjectsWithin(points []geom.Point3, face kernel.Face, t geom.Transform, tol float64) bool {
	ev := face.Evaluator()
	inv := t.Inverse()
	for _, p := range points {
		u, v, ok := ev.ParameterAtPoint(inv.Point(p))
		if !ok {
			continue
		}
		closest, ok := ev.PointAtParameter(u, v)
		if !ok {
			continue
		}
		if geom.Distance(p, t.Point(closest)) < tol {
			return true
		}
	}
	return false
}
