package discovery

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// planeFace is a parallelogram origin + u*e1 + v*e2 that is its own
// evaluator.
type planeFace struct {
	id     int
	origin geom.Point3
	e1, e2 geom.Vector3
	normal geom.Vector3
}

func (f *planeFace) TempID() int { return f.id }
func (f *planeFace) Vertices() []geom.Point3 {
	o := f.origin
	return []geom.Point3{o, o.Add(f.e1), o.Add(f.e1).Add(f.e2), o.Add(f.e2)}
}
func (f *planeFace) Area() float64               { return f.e1.Cross(f.e2).Length() }
func (f *planeFace) BoundingBox() geom.Box       { return geom.BoxOf(f.Vertices()...) }
func (f *planeFace) Evaluator() kernel.Evaluator { return f }

func (f *planeFace) PointAtParameter(u, v float64) (geom.Point3, bool) {
	return f.origin.Add(f.e1.MulScalar(u)).Add(f.e2.MulScalar(v)), true
}

func (f *planeFace) NormalAtPoint(geom.Point3) (geom.Vector3, bool) {
	return f.normal, true
}

func (f *planeFace) ParameterAtPoint(p geom.Point3) (float64, float64, bool) {
	d := p.Sub(f.origin)
	u := math.Max(0, math.Min(1, d.Dot(f.e1)/f.e1.Dot(f.e1)))
	v := math.Max(0, math.Min(1, d.Dot(f.e2)/f.e2.Dot(f.e2)))
	return u, v, true
}

type stubOccurrence struct {
	name   string
	tr     geom.Transform
	bodies []kernel.Body
}

func (o *stubOccurrence) Name() string              { return o.name }
func (o *stubOccurrence) Transform() geom.Transform { return o.tr }
func (o *stubOccurrence) Bodies() []kernel.Body     { return o.bodies }

type stubBody struct {
	name    string
	faces   []kernel.Face
	box     geom.Box
	solid   bool
	visible bool
	occ     *stubOccurrence
}

func (b *stubBody) Name() string          { return b.name }
func (b *stubBody) Faces() []kernel.Face  { return b.faces }
func (b *stubBody) BoundingBox() geom.Box { return b.box }
func (b *stubBody) IsSolid() bool         { return b.solid }
func (b *stubBody) IsVisible() bool       { return b.visible }
func (b *stubBody) AssemblyContext() kernel.Occurrence {
	if b.occ == nil {
		return nil
	}
	return b.occ
}

type stubDesign struct {
	occs  []kernel.Occurrence
	roots []kernel.Body
}

func (d *stubDesign) AllOccurrences() []kernel.Occurrence { return d.occs }
func (d *stubDesign) RootBodies() []kernel.Body           { return d.roots }

// Compile-time interface checks.
var (
	_ kernel.Face       = (*planeFace)(nil)
	_ kernel.Evaluator  = (*planeFace)(nil)
	_ kernel.Occurrence = (*stubOccurrence)(nil)
	_ kernel.Body       = (*stubBody)(nil)
	_ kernel.Design     = (*stubDesign)(nil)
)

// fixture hands out face ids.
type fixture struct {
	next int
}

func (fx *fixture) face(origin geom.Point3, e1, e2, normal geom.Vector3) *planeFace {
	fx.next++
	return &planeFace{id: fx.next, origin: origin, e1: e1, e2: e2, normal: normal}
}

// boxFaces returns the six faces of the box [min, max] in the order
// -X, +X, -Y, +Y, -Z, +Z. Normals point out of the box unless inward.
func (fx *fixture) boxFaces(min, max geom.Point3, inward bool) []kernel.Face {
	s := max.Sub(min)
	ex, ey, ez := geom.Vector3{X: s.X}, geom.Vector3{Y: s.Y}, geom.Vector3{Z: s.Z}
	sign := 1.0
	if inward {
		sign = -1
	}
	n := func(x, y, z float64) geom.Vector3 {
		return geom.Vector3{X: x, Y: y, Z: z}.MulScalar(sign)
	}
	return []kernel.Face{
		fx.face(min, ey, ez, n(-1, 0, 0)),
		fx.face(geom.Point3{X: max.X, Y: min.Y, Z: min.Z}, ey, ez, n(1, 0, 0)),
		fx.face(min, ex, ez, n(0, -1, 0)),
		fx.face(geom.Point3{X: min.X, Y: max.Y, Z: min.Z}, ex, ez, n(0, 1, 0)),
		fx.face(min, ex, ey, n(0, 0, -1)),
		fx.face(geom.Point3{X: min.X, Y: min.Y, Z: max.Z}, ex, ey, n(0, 0, 1)),
	}
}

func (fx *fixture) boxBody(name string, min, max geom.Point3) *stubBody {
	return &stubBody{
		name:    name,
		faces:   fx.boxFaces(min, max, false),
		box:     geom.NewBox(min, max),
		solid:   true,
		visible: true,
	}
}

func occurrence(name string, tr geom.Transform, bodies ...*stubBody) *stubOccurrence {
	o := &stubOccurrence{name: name, tr: tr}
	for _, b := range bodies {
		b.occ = o
		o.bodies = append(o.bodies, b)
	}
	return o
}

func p(x, y, z float64) geom.Point3 { return geom.Point3{X: x, Y: y, Z: z} }

// siblingPipes is two components side by side: "pipe-b" owns a bore face
// at x=3 facing its centroid, and "pipe-a" is a solid block straddling that
// bore. Distractors that must never contribute tools are mixed in.
type siblingPipes struct {
	design *stubDesign
	pipeB  *stubBody
	bore   kernel.Face
	pipeA  *stubBody
}

func newSiblingPipes(fx *fixture) siblingPipes {
	pipeB := fx.boxBody("pipe-b", p(0, 0, 0), p(10, 10, 10))
	bore := fx.face(p(3, 2, 2), geom.Vector3{Y: 6}, geom.Vector3{Z: 6}, geom.Vector3{X: 1})
	pipeB.faces = append(pipeB.faces, bore)
	sleeve := fx.boxBody("sleeve", p(2, 2, 2), p(4, 8, 8))

	pipeA := fx.boxBody("pipe-a", p(2, 2, 2), p(4, 8, 8))

	ghost := fx.boxBody("ghost", p(2, 2, 2), p(4, 8, 8))
	ghost.visible = false
	sheet := fx.boxBody("sheet", p(2, 2, 2), p(4, 8, 8))
	sheet.solid = false
	insideOut := fx.boxBody("inside-out", p(2, 2, 2), p(4, 8, 8))
	insideOut.faces = fx.boxFaces(p(2, 2, 2), p(4, 8, 8), true)
	far := fx.boxBody("far", p(50, 50, 50), p(60, 60, 60))
	root := fx.boxBody("root-block", p(2, 2, 2), p(4, 8, 8))

	return siblingPipes{
		design: &stubDesign{
			occs: []kernel.Occurrence{
				occurrence("pipe-b:1", geom.Identity(), pipeB, sleeve),
				occurrence("pipe-a:1", geom.Identity(), pipeA),
				occurrence("ghost:1", geom.Identity(), ghost),
				occurrence("sheet:1", geom.Identity(), sheet),
				occurrence("inside-out:1", geom.Identity(), insideOut),
				occurrence("far:1", geom.Identity(), far),
			},
			roots: []kernel.Body{root},
		},
		pipeB: pipeB,
		bore:  bore,
		pipeA: pipeA,
	}
}

func TestSiblingSolids(t *testing.T) {
	for _, indexed := range []bool{false, true} {
		t.Run(map[bool]string{false: "brute force", true: "indexed"}[indexed], func(t *testing.T) {
			s := newSiblingPipes(&fixture{})
			got := Discover(s.design, s.pipeB, Options{SpatialIndex: indexed})

			assert.Equal(t, []int{s.bore.TempID()}, IDs(got.Targets))
			// pipe-a's ±Y and ±Z walls cross the bore plane; its ±X walls
			// sit either side of it.
			want := IDs(s.pipeA.faces[2:6])
			if diff := cmp.Diff(want, IDs(got.Tools)); diff != "" {
				t.Errorf("tools mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToolsPlacedOccurrence(t *testing.T) {
	fx := &fixture{}
	s := newSiblingPipes(fx)
	// The same block modelled 100 units off and placed back.
	local := fx.boxBody("pipe-a-shifted", p(-98, 2, 2), p(-96, 8, 8))
	shifted := occurrence("pipe-a:2", geom.Translation(geom.Vector3{X: 100}), local)
	s.design.occs = []kernel.Occurrence{s.pipeB.occ, shifted}

	got := Tools(s.design, s.pipeB, []kernel.Face{s.bore}, Options{})
	assert.Equal(t, IDs(local.faces[2:6]), IDs(got))
}

func TestToolsRootBodySelection(t *testing.T) {
	fx := &fixture{}
	s := newSiblingPipes(fx)
	// A body in the root component has no occurrence, so no occurrence is
	// skipped and the sleeve in pipe-b:1 also counts.
	body := fx.boxBody("loose", p(0, 0, 0), p(10, 10, 10))
	got := Tools(s.design, body, []kernel.Face{s.bore}, Options{})

	sleeve := s.design.occs[0].Bodies()[1].(*stubBody)
	want := append(IDs(sleeve.faces[2:6]), IDs(s.pipeA.faces[2:6])...)
	assert.Equal(t, want, IDs(got))
}

func TestToolsNoTargets(t *testing.T) {
	s := newSiblingPipes(&fixture{})
	assert.Empty(t, Tools(s.design, s.pipeB, nil, Options{}))
}

func TestToolsDeduplicated(t *testing.T) {
	s := newSiblingPipes(&fixture{})
	// The same occurrence listed twice must not duplicate tools.
	s.design.occs = append(s.design.occs, s.design.occs[1])
	got := Tools(s.design, s.pipeB, []kernel.Face{s.bore, s.bore}, Options{})
	assert.Equal(t, IDs(s.pipeA.faces[2:6]), IDs(got))
}

func TestTargetsDeduplicated(t *testing.T) {
	s := newSiblingPipes(&fixture{})
	records := []classify.Record{
		classify.Classifier{}.Face(s.bore, s.pipeB),
		classify.Classifier{}.Face(s.pipeB.faces[0], s.pipeB),
		classify.Classifier{}.Face(s.bore, s.pipeB),
	}
	assert.Equal(t, []int{s.bore.TempID()}, IDs(Targets(records)))
}

func TestProximityPolicy(t *testing.T) {
	fx := &fixture{}
	target := fx.face(p(3, 0, 0), geom.Vector3{Y: 4}, geom.Vector3{Z: 4}, geom.Vector3{X: 1})
	owner := &stubBody{
		name:  "owner",
		faces: []kernel.Face{target},
		box:   geom.NewBox(p(0, 0, 0), p(10, 4, 4)),
		solid: true, visible: true,
	}
	occurrence("owner:1", geom.Identity(), owner)

	// A block whose -X wall stands 1 unit off the target plane.
	near := fx.boxBody("near", p(4, 0, 0), p(6, 4, 4))
	// And one 3 units off.
	far := fx.boxBody("far", p(6, 0, 0), p(8, 4, 4))
	design := &stubDesign{occs: []kernel.Occurrence{
		owner.occ,
		occurrence("near:1", geom.Identity(), near),
		occurrence("far:1", geom.Identity(), far),
	}}

	for _, indexed := range []bool{false, true} {
		bbox := Tools(design, owner, []kernel.Face{target}, Options{SpatialIndex: indexed})
		assert.Empty(t, IDs(bbox), "bbox policy, indexed=%v", indexed)

		prox := Tools(design, owner, []kernel.Face{target}, Options{Policy: Proximity, SpatialIndex: indexed})
		assert.Contains(t, IDs(prox), near.faces[0].TempID(), "proximity policy, indexed=%v", indexed)
		for _, f := range far.faces {
			assert.NotContains(t, IDs(prox), f.TempID(), "proximity policy, indexed=%v", indexed)
		}
	}
}

func TestIndexMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	fx := &fixture{}

	// A selected body with many inward faces scattered through it.
	owner := &stubBody{name: "owner", box: geom.NewBox(p(0, 0, 0), p(100, 100, 100)), solid: true, visible: true}
	for i := 0; i < 40; i++ {
		o := p(rng.Float64()*80+5, rng.Float64()*80+5, rng.Float64()*80+5)
		toCenter := p(50, 50, 50).Sub(o)
		owner.faces = append(owner.faces, fx.face(o, geom.Vector3{X: 10}, geom.Vector3{Y: 10}, toCenter))
	}
	design := &stubDesign{occs: []kernel.Occurrence{occurrence("owner:1", geom.Identity(), owner)}}

	// Neighbouring blocks scattered over the same volume.
	for i := 0; i < 150; i++ {
		min := p(rng.Float64()*90, rng.Float64()*90, rng.Float64()*90)
		size := p(rng.Float64()*15+5, rng.Float64()*15+5, rng.Float64()*15+5)
		b := fx.boxBody("block", min, min.Add(size))
		design.occs = append(design.occs, occurrence("block", geom.Identity(), b))
	}

	targets := SplitTargets(owner, classify.Classifier{})
	require.NotEmpty(t, targets)

	for _, policy := range []Policy{BoundingBox, Proximity} {
		t.Run(policy.String(), func(t *testing.T) {
			brute := Tools(design, owner, targets, Options{Policy: policy})
			indexed := Tools(design, owner, targets, Options{Policy: policy, SpatialIndex: true})
			require.NotEmpty(t, brute)
			if diff := cmp.Diff(IDs(brute), IDs(indexed)); diff != "" {
				t.Errorf("indexed search differs from brute force (-brute +indexed):\n%s", diff)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", BoundingBox, false},
		{"bbox", BoundingBox, false},
		{"proximity", Proximity, false},
		{"nearest", BoundingBox, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParsePolicy(got.String())))
		})
	}
}

func must(p Policy, err error) Policy {
	if err != nil {
		panic(err)
	}
	return p
}
