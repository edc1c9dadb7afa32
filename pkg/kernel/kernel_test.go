package kernel

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/coping/pkg/geom"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	m := &Mesh{Indices: []uint32{0, 1, 2, 2, 3, 0}}
	if got := m.TriangleCount(); got != 2 {
		t.Errorf("TriangleCount() = %d, want 2", got)
	}
	if (&Mesh{}).IsEmpty() != true {
		t.Error("IsEmpty() = false for empty mesh, want true")
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{1, 2, 3, -1, 5, 0, 0, 0, 4}}
	if got := m.Vertex(1); got != (geom.Point3{X: -1, Y: 5, Z: 0}) {
		t.Errorf("Vertex(1) = %v", got)
	}
	want := geom.Box{Min: geom.Point3{X: -1, Y: 0, Z: 0}, Max: geom.Point3{X: 1, Y: 5, Z: 4}}
	if got := m.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if got := (&Mesh{}).Bounds(); got != (geom.Box{}) {
		t.Errorf("empty Bounds() = %v", got)
	}
}

// --- Compile-time interface check with a stub kernel ---

type stubOccurrence struct {
	name   string
	bodies []Body
	tr     geom.Transform
}

func (o *stubOccurrence) Name() string              { return o.name }
func (o *stubOccurrence) Transform() geom.Transform { return o.tr }
func (o *stubOccurrence) Bodies() []Body            { return o.bodies }

type stubBody struct {
	name string
	occ  Occurrence
}

func (b *stubBody) Name() string          { return b.name }
func (b *stubBody) Faces() []Face         { return nil }
func (b *stubBody) BoundingBox() geom.Box { return geom.Box{} }
func (b *stubBody) IsSolid() bool         { return true }
func (b *stubBody) IsVisible() bool       { return true }
func (b *stubBody) AssemblyContext() Occurrence {
	if b.occ == nil {
		return nil
	}
	return b.occ
}

type stubDesign struct{}

func (stubDesign) AllOccurrences() []Occurrence { return nil }
func (stubDesign) RootBodies() []Body           { return nil }

type stubSession struct{ picked Selection }

func (s *stubSession) Design() Design { return stubDesign{} }
func (s *stubSession) Pick(string, ...EntityKind) (Selection, error) {
	return s.picked, nil
}
func (s *stubSession) SplitFaces(_, _ []Face) error     { return nil }
func (s *stubSession) PressPull(_ []Face, _ float64) error { return nil }
func (s *stubSession) Close() error                     { return nil }

type stubKernel struct{ session *stubSession }

func (k *stubKernel) Open(context.Context) (Session, error) { return k.session, nil }

var _ Kernel = (*stubKernel)(nil)
var _ Session = (*stubSession)(nil)
var _ Body = (*stubBody)(nil)
var _ Occurrence = (*stubOccurrence)(nil)

func TestSelectionResolve(t *testing.T) {
	body := &stubBody{name: "pipe"}
	full := &stubOccurrence{name: "pipe:1", bodies: []Body{body, &stubBody{name: "second"}}}
	empty := &stubOccurrence{name: "empty:1"}

	tests := []struct {
		name     string
		sel      Selection
		wantBody string
		wantErr  error
	}{
		{"body", BodySelection(body), "pipe", nil},
		{"occurrence takes first body", OccurrenceSelection(full), "pipe", nil},
		{"empty occurrence", OccurrenceSelection(empty), "", ErrEmptyOccurrence},
		{"nil body", BodySelection(nil), "", ErrNoSelection},
		{"zero selection is a nil body", Selection{}, "", ErrNoSelection},
		{"unknown kind", Selection{kind: EntityKind(9)}, "", ErrWrongKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.sel.Resolve()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if b.Name() != tt.wantBody {
				t.Errorf("Resolve() body = %q, want %q", b.Name(), tt.wantBody)
			}
		})
	}
}

func TestPlacement(t *testing.T) {
	root := &stubBody{name: "root"}
	p := Placement(root).Point(geom.Point3{X: 1})
	if p != (geom.Point3{X: 1}) {
		t.Errorf("root placement moved point to %v", p)
	}

	occ := &stubOccurrence{name: "o", tr: geom.Translation(geom.Vector3{Z: 5})}
	placed := &stubBody{name: "placed", occ: occ}
	p = Placement(placed).Point(geom.Point3{X: 1})
	if p != (geom.Point3{X: 1, Z: 5}) {
		t.Errorf("occurrence placement = %v, want (1, 0, 5)", p)
	}
}

func TestEntityKindString(t *testing.T) {
	if KindBody.String() != "body" || KindOccurrence.String() != "occurrence" {
		t.Errorf("unexpected kind names %q %q", KindBody, KindOccurrence)
	}
	if EntityKind(7).String() != "unknown" {
		t.Errorf("EntityKind(7) = %q", EntityKind(7))
	}
}
