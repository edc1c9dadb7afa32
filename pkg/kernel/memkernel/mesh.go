package memkernel

import (
	"fmt"

	"github.com/deadsy/sdfx/render"

	"github.com/chazu/coping/pkg/kernel"
)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// Mesh tessellates the body's solid using marching cubes, in component
// space. Surface bodies have no solid and cannot be meshed this way.
func (b *Body) Mesh(cells int) (*kernel.Mesh, error) {
	if b.solid == nil {
		return nil, fmt.Errorf("memkernel: body %q has no solid to mesh", b.name)
	}
	if cells <= 0 {
		cells = DefaultMeshCells
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(b.solid, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Label:    b.name,
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
