package classify

import (
	"math"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// planeEval is a flat parametrization o + u*e1 + v*e2 with a fixed normal.
// The normal need not be perpendicular to the plane, which lets tests pose
// arbitrary sample geometry.
type planeEval struct {
	origin geom.Point3
	e1, e2 geom.Vector3
	normal geom.Vector3

	failPoint  bool
	failNormal bool
}

func (e *planeEval) PointAtParameter(u, v float64) (geom.Point3, bool) {
	if e.failPoint {
		return geom.Point3{}, false
	}
	return e.origin.Add(e.e1.MulScalar(u)).Add(e.e2.MulScalar(v)), true
}

func (e *planeEval) NormalAtPoint(geom.Point3) (geom.Vector3, bool) {
	if e.failNormal {
		return geom.Vector3{}, false
	}
	return e.normal, true
}

func (e *planeEval) ParameterAtPoint(p geom.Point3) (float64, float64, bool) {
	d := p.Sub(e.origin)
	u := clamp01(d.Dot(e.e1) / e.e1.Dot(e.e1))
	v := clamp01(d.Dot(e.e2) / e.e2.Dot(e.e2))
	return u, v, true
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

type stubFace struct {
	id       int
	vertices []geom.Point3
	area     float64
	eval     *planeEval
}

func (f *stubFace) TempID() int                 { return f.id }
func (f *stubFace) Vertices() []geom.Point3     { return f.vertices }
func (f *stubFace) Area() float64               { return f.area }
func (f *stubFace) Evaluator() kernel.Evaluator { return f.eval }
func (f *stubFace) BoundingBox() geom.Box {
	if len(f.vertices) == 0 {
		return geom.Box{}
	}
	return geom.BoxOf(f.vertices...)
}

// sampledAt builds a face whose parametric center is p with normal n. The
// face is a 2x2 square in the plane spanned by e1 and e2.
func sampledAt(id int, p, n geom.Vector3) *stubFace {
	e1 := geom.Vector3{X: 2}
	e2 := geom.Vector3{Y: 2}
	if math.Abs(n.Z) < 0.5 {
		e2 = geom.Vector3{Z: 2}
		if math.Abs(n.X) > 0.5 {
			e1 = geom.Vector3{Y: 2}
		}
	}
	origin := p.Sub(e1.MulScalar(0.5)).Sub(e2.MulScalar(0.5))
	return &stubFace{
		id: id,
		vertices: []geom.Point3{
			origin, origin.Add(e1), origin.Add(e1).Add(e2), origin.Add(e2),
		},
		area: 4,
		eval: &planeEval{origin: origin, e1: e1, e2: e2, normal: n},
	}
}

// square builds a face from explicit corners a, a+e1, a+e1+e2, a+e2.
func square(id int, a, e1, e2, n geom.Vector3) *stubFace {
	return &stubFace{
		id:       id,
		vertices: []geom.Point3{a, a.Add(e1), a.Add(e1).Add(e2), a.Add(e2)},
		area:     e1.Cross(e2).Length(),
		eval:     &planeEval{origin: a, e1: e1, e2: e2, normal: n},
	}
}

type stubOccurrence struct {
	tr geom.Transform
}

func (o *stubOccurrence) Name() string              { return "occ" }
func (o *stubOccurrence) Transform() geom.Transform { return o.tr }
func (o *stubOccurrence) Bodies() []kernel.Body     { return nil }

type stubBody struct {
	box   geom.Box
	faces []kernel.Face
	occ   *stubOccurrence
}

func (b *stubBody) Name() string          { return "body" }
func (b *stubBody) Faces() []kernel.Face  { return b.faces }
func (b *stubBody) BoundingBox() geom.Box { return b.box }
func (b *stubBody) IsSolid() bool         { return true }
func (b *stubBody) IsVisible() bool       { return true }
func (b *stubBody) AssemblyContext() kernel.Occurrence {
	if b.occ == nil {
		return nil
	}
	return b.occ
}

func cube(half float64) *stubBody {
	return &stubBody{box: geom.NewBox(
		geom.Point3{X: -half, Y: -half, Z: -half},
		geom.Point3{X: half, Y: half, Z: half},
	)}
}
