// Package tessellate produces triangle meshes in assembly space: one per
// face, sampled from the face's evaluator, or one per solid body.
package tessellate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// DefaultDivisions is the per-direction sample count for face meshes.
const DefaultDivisions = 16

// ErrEmptyMesh is returned when no part of a face could be evaluated.
var ErrEmptyMesh = errors.New("tessellate: face produced no triangles")

// Mesher is implemented by bodies that can tessellate their own solid in
// component space.
type Mesher interface {
	Mesh(cells int) (*kernel.Mesh, error)
}

// Face samples face on a divisions x divisions grid over its parameter
// range and maps the result into assembly space with t. Grid cells with a
// corner the evaluator rejects are left out.
func Face(face kernel.Face, t geom.Transform, divisions int, label string) (*kernel.Mesh, error) {
	if divisions <= 0 {
		divisions = DefaultDivisions
	}
	ev := face.Evaluator()
	n := divisions + 1

	// index[i*n+j] is the output vertex of grid point (i, j), or -1.
	index := make([]int, n*n)
	mesh := &kernel.Mesh{FaceID: face.TempID(), Label: label}
	next := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			index[i*n+j] = -1
			u, v := float64(i)/float64(divisions), float64(j)/float64(divisions)
			p, ok := ev.PointAtParameter(u, v)
			if !ok {
				continue
			}
			nrm, ok := ev.NormalAtPoint(p)
			if !ok {
				continue
			}
			wp := t.Point(p)
			wn := t.Vector(nrm)
			if unit, err := geom.Normalize(wn); err == nil {
				wn = unit
			}
			mesh.Vertices = append(mesh.Vertices, float32(wp.X), float32(wp.Y), float32(wp.Z))
			mesh.Normals = append(mesh.Normals, float32(wn.X), float32(wn.Y), float32(wn.Z))
			index[i*n+j] = next
			next++
		}
	}

	for i := 0; i < divisions; i++ {
		for j := 0; j < divisions; j++ {
			a, b := index[i*n+j], index[(i+1)*n+j]
			c, d := index[(i+1)*n+j+1], index[i*n+j+1]
			if a < 0 || b < 0 || c < 0 || d < 0 {
				continue
			}
			mesh.Indices = append(mesh.Indices,
				uint32(a), uint32(b), uint32(c),
				uint32(a), uint32(c), uint32(d))
		}
	}

	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("%w: face %d", ErrEmptyMesh, face.TempID())
	}
	return mesh, nil
}

// Placements maps the TempID of every face in design to the placement of
// its body.
func Placements(design kernel.Design) map[int]geom.Transform {
	out := make(map[int]geom.Transform)
	add := func(b kernel.Body) {
		t := kernel.Placement(b)
		for _, f := range b.Faces() {
			out[f.TempID()] = t
		}
	}
	for _, b := range design.RootBodies() {
		add(b)
	}
	for _, o := range design.AllOccurrences() {
		for _, b := range o.Bodies() {
			add(b)
		}
	}
	return out
}

// Design produces one mesh per visible solid body in design, root bodies
// first, in assembly space. Bodies that do not implement Mesher are
// skipped.
func Design(design kernel.Design, cells int) ([]*kernel.Mesh, error) {
	if design == nil {
		return nil, nil
	}

	var bodies []kernel.Body
	bodies = append(bodies, design.RootBodies()...)
	for _, o := range design.AllOccurrences() {
		bodies = append(bodies, o.Bodies()...)
	}

	var meshes []*kernel.Mesh
	for _, b := range bodies {
		if !b.IsSolid() || !b.IsVisible() {
			continue
		}
		m, ok := b.(Mesher)
		if !ok {
			continue
		}
		mesh, err := m.Mesh(cells)
		if err != nil {
			return nil, fmt.Errorf("tessellate: body %q: %w", b.Name(), err)
		}
		transform(mesh, kernel.Placement(b))
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// transform maps a component-space mesh into assembly space in place.
func transform(m *kernel.Mesh, t geom.Transform) {
	for i := 0; i < m.VertexCount(); i++ {
		p := t.Point(m.Vertex(i))
		m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2] = float32(p.X), float32(p.Y), float32(p.Z)
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := t.Vector(geom.Vector3{X: float64(m.Normals[i]), Y: float64(m.Normals[i+1]), Z: float64(m.Normals[i+2])})
		m.Normals[i], m.Normals[i+1], m.Normals[i+2] = float32(n.X), float32(n.Y), float32(n.Z)
	}
}

// Area returns the total triangle area of m.
func Area(m *kernel.Mesh) float64 {
	areas := make([]float64, 0, m.TriangleCount())
	vertex := func(i uint32) geom.Point3 { return m.Vertex(int(i)) }
	for k := 0; k+2 < len(m.Indices); k += 3 {
		a, b, c := vertex(m.Indices[k]), vertex(m.Indices[k+1]), vertex(m.Indices[k+2])
		areas = append(areas, b.Sub(a).Cross(c.Sub(a)).Length()/2)
	}
	return floats.Sum(areas)
}
