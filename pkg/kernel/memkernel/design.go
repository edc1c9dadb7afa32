package memkernel

import (
	"fmt"
	"sync/atomic"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Design     = (*Design)(nil)
	_ kernel.Occurrence = (*Occurrence)(nil)
	_ kernel.Body       = (*Body)(nil)
	_ kernel.Face       = (*Face)(nil)
	_ kernel.Evaluator  = evaluator{}
)

// faceCounter hands out face TempIDs. IDs are unique per process, which
// makes them unique within every session.
var faceCounter atomic.Int64

func nextFaceID() int {
	return int(faceCounter.Add(1))
}

// Design is an in-memory design tree: a flat list of occurrences plus the
// bodies of the root component.
type Design struct {
	occurrences []*Occurrence
	roots       []*Body
}

// NewDesign returns an empty design.
func NewDesign() *Design {
	return &Design{}
}

// AddOccurrence places bodies in a new occurrence named name. Each body
// must not already belong to another occurrence or the root.
func (d *Design) AddOccurrence(name string, t geom.Transform, bodies ...*Body) (*Occurrence, error) {
	o := &Occurrence{name: name, transform: t}
	for _, b := range bodies {
		if err := b.attach(o); err != nil {
			return nil, err
		}
		o.bodies = append(o.bodies, b)
	}
	d.occurrences = append(d.occurrences, o)
	return o, nil
}

// AddRootBody adds b to the root component.
func (d *Design) AddRootBody(b *Body) error {
	if b.attached {
		return fmt.Errorf("memkernel: body %q already placed", b.name)
	}
	b.attached = true
	d.roots = append(d.roots, b)
	return nil
}

// AllOccurrences returns the occurrences in insertion order.
func (d *Design) AllOccurrences() []kernel.Occurrence {
	out := make([]kernel.Occurrence, len(d.occurrences))
	for i, o := range d.occurrences {
		out[i] = o
	}
	return out
}

// RootBodies returns the bodies of the root component.
func (d *Design) RootBodies() []kernel.Body {
	out := make([]kernel.Body, len(d.roots))
	for i, b := range d.roots {
		out[i] = b
	}
	return out
}

// Occurrences returns the concrete occurrences.
func (d *Design) Occurrences() []*Occurrence {
	return d.occurrences
}

// Bodies returns every body in the design: root bodies first, then the
// bodies of each occurrence.
func (d *Design) Bodies() []*Body {
	out := append([]*Body{}, d.roots...)
	for _, o := range d.occurrences {
		out = append(out, o.bodies...)
	}
	return out
}

// Face finds a face by TempID.
func (d *Design) Face(id int) (*Face, bool) {
	for _, b := range d.Bodies() {
		for _, f := range b.faces {
			if f.id == id {
				return f, true
			}
		}
	}
	return nil, false
}

// Occurrence is a placed component instance.
type Occurrence struct {
	name      string
	transform geom.Transform
	bodies    []*Body
	hidden    bool
}

func (o *Occurrence) Name() string              { return o.name }
func (o *Occurrence) Transform() geom.Transform { return o.transform }

// Bodies returns the occurrence's bodies in insertion order.
func (o *Occurrence) Bodies() []kernel.Body {
	out := make([]kernel.Body, len(o.bodies))
	for i, b := range o.bodies {
		out[i] = b
	}
	return out
}

// Hide hides the occurrence and with it every body it holds.
func (o *Occurrence) Hide() { o.hidden = true }

// Hidden reports whether the occurrence is hidden.
func (o *Occurrence) Hidden() bool { return o.hidden }

// Body is a solid or surface body. A solid body carries an sdfx SDF whose
// bounding box is the body's bounding box; the faces are analytic patches
// that describe the same boundary for classification.
type Body struct {
	name     string
	solid    sdf.SDF3
	faces    []*Face
	isSolid  bool
	hidden   bool
	occ      *Occurrence
	attached bool
	box      geom.Box
}

func newBody(name string, solid sdf.SDF3) *Body {
	return &Body{name: name, solid: solid, isSolid: solid != nil}
}

func (b *Body) attach(o *Occurrence) error {
	if b.attached {
		return fmt.Errorf("memkernel: body %q already placed", b.name)
	}
	b.attached = true
	b.occ = o
	return nil
}

// addFace appends a face built on s and refreshes the body bounds.
func (b *Body) addFace(label string, s surface) *Face {
	f := &Face{id: nextFaceID(), label: label, surf: s, box: boundsOf(s), body: b}
	b.faces = append(b.faces, f)
	b.refreshBounds()
	return f
}

func (b *Body) refreshBounds() {
	if b.solid != nil {
		b.box = b.solid.BoundingBox()
		return
	}
	if len(b.faces) == 0 {
		b.box = geom.Box{}
		return
	}
	box := b.faces[0].box
	for _, f := range b.faces[1:] {
		box = geom.Union(box, f.box)
	}
	b.box = box
}

func (b *Body) Name() string          { return b.name }
func (b *Body) BoundingBox() geom.Box { return b.box }
func (b *Body) IsSolid() bool         { return b.isSolid }

// IsVisible is false when the body or its occurrence is hidden.
func (b *Body) IsVisible() bool {
	return !b.hidden && (b.occ == nil || !b.occ.hidden)
}

// Faces returns the body's faces in creation order.
func (b *Body) Faces() []kernel.Face {
	out := make([]kernel.Face, len(b.faces))
	for i, f := range b.faces {
		out[i] = f
	}
	return out
}

// AssemblyContext returns the owning occurrence, or nil for a root body.
func (b *Body) AssemblyContext() kernel.Occurrence {
	if b.occ == nil {
		return nil
	}
	return b.occ
}

// Hide hides the body.
func (b *Body) Hide() { b.hidden = true }

// Solid returns the body's SDF, or nil for a surface body.
func (b *Body) Solid() sdf.SDF3 { return b.solid }

// FaceList returns the concrete faces.
func (b *Body) FaceList() []*Face { return b.faces }

// Face is an analytic face of a body.
type Face struct {
	id    int
	label string
	surf  surface
	box   geom.Box
	body  *Body
}

func (f *Face) TempID() int           { return f.id }
func (f *Face) Area() float64         { return f.surf.area() }
func (f *Face) BoundingBox() geom.Box { return f.box }

// Label names the face within its body, such as "top" or "bore".
func (f *Face) Label() string { return f.label }

// Body returns the owning body.
func (f *Face) Body() *Body { return f.body }

// Vertices returns the topological vertices of the face. Closed surfaces
// such as a full sphere have none.
func (f *Face) Vertices() []geom.Point3 { return f.surf.vertices() }

// Evaluator returns the face's surface evaluator.
func (f *Face) Evaluator() kernel.Evaluator { return evaluator{f.surf} }

func (f *Face) String() string {
	return fmt.Sprintf("%s/%s#%d", f.body.name, f.label, f.id)
}

type evaluator struct {
	s surface
}

// PointAtParameter rejects parameters outside the unit square.
func (e evaluator) PointAtParameter(u, v float64) (geom.Point3, bool) {
	if u < -paramSlack || u > 1+paramSlack || v < -paramSlack || v > 1+paramSlack {
		return geom.Point3{}, false
	}
	return e.s.at(u, v), true
}

func (e evaluator) NormalAtPoint(p geom.Point3) (geom.Vector3, bool) {
	return e.s.normal(p)
}

func (e evaluator) ParameterAtPoint(p geom.Point3) (float64, float64, bool) {
	return e.s.param(p)
}
