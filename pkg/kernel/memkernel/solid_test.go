package memkernel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/geom"
)

func labels(b *Body) []string {
	out := make([]string, len(b.faces))
	for i, f := range b.faces {
		out[i] = f.Label()
	}
	return out
}

func faceByLabel(t *testing.T, b *Body, label string) *Face {
	t.Helper()
	for _, f := range b.faces {
		if f.label == label {
			return f
		}
	}
	t.Fatalf("body %q has no %q face", b.name, label)
	return nil
}

func TestNewBox(t *testing.T) {
	b, err := NewBox("block", geom.Vector3{X: 100, Y: 50, Z: 25})
	require.NoError(t, err)

	assert.Equal(t, []string{"left", "right", "front", "back", "bottom", "top"}, labels(b))
	assert.True(t, nearPoint(b.BoundingBox().Min, geom.Point3{}))
	assert.True(t, nearPoint(b.BoundingBox().Max, geom.Point3{X: 100, Y: 50, Z: 25}))
	assert.True(t, b.IsSolid())
	assert.True(t, b.IsVisible())

	for _, f := range b.faces {
		r := classify.Orient(f, b)
		assert.True(t, r.Is(classify.Outward), "%s should face outward, got %v (%v)", f, r.Orientation, r.Err)
	}
	assert.InDelta(t, 100*50, faceByLabel(t, b, "top").Area(), 1e-9)
	assert.InDelta(t, 50*25, faceByLabel(t, b, "left").Area(), 1e-9)
}

func TestNewTube(t *testing.T) {
	b, err := NewTube("pipe", 40, 10, 8)
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "bore", "bottom", "top"}, labels(b))
	assert.True(t, nearPoint(b.BoundingBox().Min, geom.Point3{X: -10, Y: -10, Z: -20}))
	assert.True(t, nearPoint(b.BoundingBox().Max, geom.Point3{X: 10, Y: 10, Z: 20}))

	c := classify.Classifier{}
	bore := c.Face(faceByLabel(t, b, "bore"), b)
	assert.Equal(t, classify.InwardFace, bore.Class())
	assert.True(t, bore.SplitTarget())

	for _, label := range []string{"outer", "bottom", "top"} {
		r := c.Face(faceByLabel(t, b, label), b)
		assert.Equal(t, classify.OutwardFace, r.Class(), label)
		assert.False(t, r.SplitTarget(), label)
	}
	assert.InDelta(t, math.Pi*(100-64), faceByLabel(t, b, "top").Area(), 1e-9)
}

func TestNewCylinder(t *testing.T) {
	b, err := NewCylinder("rod", 30, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"wall", "bottom", "top"}, labels(b))
	for _, f := range b.faces {
		assert.Equal(t, classify.OutwardFace, classify.Classify(f, b), f.String())
	}
}

func TestCavityIsInterior(t *testing.T) {
	b, err := NewBox("block", geom.Vector3{X: 40, Y: 40, Z: 40})
	require.NoError(t, err)
	cavity, err := b.AddCavity(geom.Point3{X: 20, Y: 20, Z: 26}, 5)
	require.NoError(t, err)

	r := classify.Classifier{}.Face(cavity, b)
	assert.True(t, r.Interior.Match)
	assert.True(t, r.Orientation.Is(classify.Inward))
	assert.ErrorIs(t, r.CenterPlane.Err, classify.ErrNoVertices)
	assert.True(t, r.InteriorCandidate())
	assert.InDelta(t, 4*math.Pi*25, cavity.Area(), 1e-9)

	// The solid's bounds are unchanged by an internal cavity.
	assert.True(t, nearPoint(b.BoundingBox().Max, geom.Point3{X: 40, Y: 40, Z: 40}))
}

func TestCavityMustFit(t *testing.T) {
	b, err := NewBox("block", geom.Vector3{X: 10, Y: 10, Z: 10})
	require.NoError(t, err)
	_, err = b.AddCavity(geom.Point3{X: 8, Y: 5, Z: 5}, 3)
	assert.Error(t, err)
	_, err = b.AddCavity(geom.Point3{X: 5, Y: 5, Z: 5}, 0)
	assert.True(t, errors.Is(err, ErrBadDimension))
	assert.Len(t, b.faces, 6)
}

func TestPocket(t *testing.T) {
	b, err := NewBox("block", geom.Vector3{X: 20, Y: 20, Z: 20})
	require.NoError(t, err)
	pocket, err := b.AddPocket(geom.Point3{X: 10, Y: 10, Z: 20}, 4, geom.Vector3{Z: -1})
	require.NoError(t, err)

	assert.Len(t, pocket.Vertices(), 1)
	assert.InDelta(t, 2*math.Pi*16, pocket.Area(), 1e-9)
	box := pocket.BoundingBox()
	assert.InDelta(t, 16, box.Min.Z, 1e-9)
	assert.InDelta(t, 20, box.Max.Z, 1e-9)
}

func TestWebIsCenterPlane(t *testing.T) {
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		t.Run(axis.String(), func(t *testing.T) {
			b, err := NewBox("block", geom.Vector3{X: 30, Y: 20, Z: 10})
			require.NoError(t, err)
			web := b.AddWeb(axis)

			r := classify.Classifier{}.Face(web, b)
			assert.True(t, r.CenterPlane.Match)
			assert.Equal(t, classify.CenterPlane, r.Class())
			assert.False(t, r.SplitTarget())
			assert.False(t, r.InteriorCandidate())
		})
	}
}

func TestSurfaceBody(t *testing.T) {
	b, err := NewSurface("sheet", geom.Point3{}, geom.Vector3{X: 10}, geom.Vector3{Y: 5})
	require.NoError(t, err)
	assert.False(t, b.IsSolid())
	assert.Nil(t, b.Solid())
	assert.True(t, nearPoint(b.BoundingBox().Max, geom.Point3{X: 10, Y: 5}))

	_, err = b.AddCavity(geom.Point3{X: 5, Y: 2}, 1)
	assert.Error(t, err)
	_, err = b.Mesh(10)
	assert.Error(t, err)

	_, err = NewSurface("flat", geom.Point3{}, geom.Vector3{X: 1}, geom.Vector3{X: 2})
	assert.ErrorIs(t, err, ErrBadDimension)
}

func TestBadDimensions(t *testing.T) {
	_, err := NewBox("b", geom.Vector3{X: 1, Y: 0, Z: 1})
	assert.ErrorIs(t, err, ErrBadDimension)
	_, err = NewCylinder("c", -1, 2)
	assert.ErrorIs(t, err, ErrBadDimension)
	_, err = NewTube("t", 10, 4, 4)
	assert.ErrorIs(t, err, ErrBadDimension)
	_, err = NewTube("t", 10, 4, 0)
	assert.ErrorIs(t, err, ErrBadDimension)
}

func TestPlaceKeepsClassification(t *testing.T) {
	b, err := NewTube("pipe", 40, 10, 8)
	require.NoError(t, err)
	before := make([]classify.FaceClass, len(b.faces))
	for i, f := range b.faces {
		before[i] = classify.Classify(f, b)
	}

	b.Place(geom.Placement(geom.Vector3{X: 100, Y: 5}, geom.Vector3{Y: 90}))

	// Rotated a quarter turn about Y, the tube now lies along X.
	box := b.BoundingBox()
	assert.InDelta(t, 80, box.Min.X, 1e-6)
	assert.InDelta(t, 120, box.Max.X, 1e-6)
	assert.InDelta(t, -5, box.Min.Y, 1e-6)
	for i, f := range b.faces {
		assert.Equal(t, before[i], classify.Classify(f, b), f.String())
	}
}

func TestBodyMesh(t *testing.T) {
	b, err := NewBox("block", geom.Vector3{X: 100, Y: 50, Z: 25})
	require.NoError(t, err)
	mesh, err := b.Mesh(40)
	require.NoError(t, err)
	require.False(t, mesh.IsEmpty())
	assert.Equal(t, "block", mesh.Label)
	assert.Equal(t, len(mesh.Vertices), len(mesh.Normals))
	assert.Equal(t, mesh.TriangleCount()*3, len(mesh.Indices))

	// A box with a cavity should have more triangles than a plain box.
	hollow, err := NewBox("hollow", geom.Vector3{X: 100, Y: 50, Z: 25})
	require.NoError(t, err)
	_, err = hollow.AddCavity(geom.Point3{X: 50, Y: 25, Z: 12.5}, 10)
	require.NoError(t, err)
	hollowMesh, err := hollow.Mesh(40)
	require.NoError(t, err)
	assert.Greater(t, hollowMesh.TriangleCount(), mesh.TriangleCount())
}

func TestFaceIDsUnique(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		b, err := NewTube("pipe", 10, 3, 2)
		require.NoError(t, err)
		for _, f := range b.faces {
			require.False(t, seen[f.TempID()], "duplicate id %d", f.TempID())
			seen[f.TempID()] = true
		}
	}
}
