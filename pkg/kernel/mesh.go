package kernel

import "github.com/chazu/coping/pkg/geom"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	FaceID   int       `json:"faceId"`   // TempID of the source face
	Label    string    `json:"label"`    // classification or role of the face
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as a point.
func (m *Mesh) Vertex(i int) geom.Point3 {
	return geom.Point3{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Bounds returns the bounding box of the mesh vertices. An empty mesh has
// a zero box.
func (m *Mesh) Bounds() geom.Box {
	if m.IsEmpty() {
		return geom.Box{}
	}
	pts := make([]geom.Point3, m.VertexCount())
	for i := range pts {
		pts[i] = m.Vertex(i)
	}
	return geom.BoxOf(pts...)
}
