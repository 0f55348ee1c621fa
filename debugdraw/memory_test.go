package debugdraw

import (
	"testing"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/config"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRenderer(t *testing.T) {
	r := NewMemoryRenderer()
	lines := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}

	id := r.UploadLineMesh(lines)
	_, err := uuid.Parse(string(id))
	require.NoError(t, err)
	assert.NotEqual(t, id, r.UploadLineMesh(lines))
	assert.Equal(t, 2, r.Len())

	// the renderer owns a copy
	lines[1] = mgl64.Vec3{5, 0, 0}
	mesh, ok := r.Mesh(id)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, mesh.Lines[1])

	r.UpdateLineMesh(id, lines)
	assert.Equal(t, 1, mesh.Version)
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, mesh.Lines[1])

	r.UpdateLineMesh(plume.MeshID("unknown"), lines)
	assert.Equal(t, 2, r.Len())
}

func TestMemoryRenderer_PhysicsSystem(t *testing.T) {
	s := plume.NewPhysicsSystem(config.Default().Physics, nil)
	r := NewMemoryRenderer()

	transforms := []actor.Transform{actor.NewTransform(), actor.NewTransform()}
	transforms[1].Position = mgl64.Vec3{3, 0, 0}

	_, err := s.AddBoxCollider(0, plume.TypeCollider, actor.Box{Dimensions: mgl64.Vec3{1, 1, 1}}, transforms[0])
	require.NoError(t, err)
	_, err = s.AddSphereCollider(1, plume.TypeArea, actor.Sphere{Radius: 1}, transforms[1])
	require.NoError(t, err)

	data := s.CollectRenderData(r, transforms, plume.NoNode)
	require.Len(t, data.Lines, 2)
	assert.Equal(t, 2, r.Len())

	segments := r.Segments(data)
	assert.Len(t, segments, 12+3*64)

	// sphere wireframe points are placed around the node
	for _, segment := range segments[12:] {
		assert.InDelta(t, 1, segment.Start.Sub(mgl64.Vec3{3, 0, 0}).Len(), 1e-9)
	}

	selected := r.Segments(s.CollectRenderData(r, transforms, 0))
	require.Len(t, selected, 12)
	assert.True(t, selected[0].Selected)
	assert.Equal(t, 2, r.Len(), "meshes are uploaded once")
}
