package plume

import (
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noTag = ColliderTag{Shape: ShapeNone}

func assertVec3InDelta(t *testing.T, expected, actual mgl64.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, expected[i], actual[i], delta, "component %d of %v", i, actual)
	}
}

func TestRaycast_Shapes(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(4)

	mesh, err := s.AddMeshCollider(0, TypeCollider, floorVertices(2, 0), scene.transforms[0])
	require.NoError(t, err)
	sphere, err := s.AddSphereCollider(1, TypeCollider, unitSphere(), scene.at(1, mgl64.Vec3{10, 0, 0}))
	require.NoError(t, err)
	box, err := s.AddBoxCollider(2, TypeCollider, unitBox(), scene.at(2, mgl64.Vec3{0, 0, 10}))
	require.NoError(t, err)
	capsule, err := s.AddCapsuleCollider(3, TypeCollider, actor.Capsule{End: mgl64.Vec3{0, 2, 0}, Radius: 0.5}, scene.at(3, mgl64.Vec3{-10, 0, 0}))
	require.NoError(t, err)

	tests := []struct {
		name      string
		origin    mgl64.Vec3
		direction mgl64.Vec3
		tag       ColliderTag
		node      NodeID
		distance  float64
		normal    mgl64.Vec3
	}{
		{"mesh from above", mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{0, -1, 0}, mesh, 0, 5, mgl64.Vec3{0, 1, 0}},
		{"mesh from below", mgl64.Vec3{0.5, -5, 0.5}, mgl64.Vec3{0, 1, 0}, mesh, 0, 5, mgl64.Vec3{0, -1, 0}},
		{"sphere", mgl64.Vec3{10, 5, 0}, mgl64.Vec3{0, -2, 0}, sphere, 1, 4.5, mgl64.Vec3{0, 1, 0}},
		{"box", mgl64.Vec3{0, 0, 15}, mgl64.Vec3{0, 0, -1}, box, 2, 4.5, mgl64.Vec3{0, 0, 1}},
		{"capsule body", mgl64.Vec3{-15, 1, 0}, mgl64.Vec3{1, 0, 0}, capsule, 3, 4.5, mgl64.Vec3{-1, 0, 0}},
		{"capsule cap", mgl64.Vec3{-10, 6, 0}, mgl64.Vec3{0, -1, 0}, capsule, 3, 3.5, mgl64.Vec3{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := s.Raycast(tt.origin, tt.direction, 100, 1, noTag)
			require.True(t, ok)

			assert.Equal(t, tt.tag, hit.Tag)
			assert.Equal(t, tt.node, hit.Node)
			assert.InDelta(t, tt.distance, hit.Distance, 1e-9)
			assertVec3InDelta(t, tt.normal, hit.Normal, 1e-9)
			assertVec3InDelta(t, tt.origin.Add(tt.direction.Normalize().Mul(tt.distance)), hit.Position, 1e-9)
		})
	}
}

func TestRaycast_Closest(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(3)

	_, err := s.AddMeshCollider(0, TypeCollider, floorVertices(5, 0), scene.transforms[0])
	require.NoError(t, err)
	near, err := s.AddBoxCollider(1, TypeCollider, unitBox(), scene.at(1, mgl64.Vec3{0, 2, 0}))
	require.NoError(t, err)
	_, err = s.AddSphereCollider(2, TypeCollider, unitSphere(), scene.at(2, mgl64.Vec3{0, 4, 0}))
	require.NoError(t, err)

	t.Run("nearest surface wins", func(t *testing.T) {
		hit, ok := s.Raycast(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, -1, 0}, 10, 1, noTag)
		require.True(t, ok)
		assert.Equal(t, near, hit.Tag)
		assert.InDelta(t, 0.5, hit.Distance, 1e-9)
	})

	t.Run("ignored collider", func(t *testing.T) {
		hit, ok := s.Raycast(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, -1, 0}, 10, 1, near)
		require.True(t, ok)
		assert.Equal(t, NodeID(0), hit.Node)
		assert.InDelta(t, 3, hit.Distance, 1e-9)
	})

	t.Run("out of range", func(t *testing.T) {
		_, ok := s.Raycast(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, -1, 0}, 2.9, 1, near)
		assert.False(t, ok)
	})

	t.Run("mask", func(t *testing.T) {
		_, ok := s.Raycast(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, -1, 0}, 10, 2, noTag)
		assert.False(t, ok)
	})

	t.Run("miss leaves the hit empty", func(t *testing.T) {
		hit, ok := s.Raycast(mgl64.Vec3{20, 3, 0}, mgl64.Vec3{0, -1, 0}, 10, 1, noTag)
		assert.False(t, ok)
		assert.Equal(t, RayHit{}, hit)
	})

	t.Run("zero direction", func(t *testing.T) {
		_, ok := s.Raycast(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{}, 10, 1, noTag)
		assert.False(t, ok)
	})

	t.Run("origin inside a sphere", func(t *testing.T) {
		hit, ok := s.Raycast(mgl64.Vec3{0, 4, 0}, mgl64.Vec3{1, 0, 0}, 10, 1, noTag)
		require.True(t, ok)
		assert.Zero(t, hit.Distance)
		assertVec3InDelta(t, mgl64.Vec3{-1, 0, 0}, hit.Normal, 1e-12)
	})
}

func TestRaycast_Areas(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(1)

	_, err := s.AddBoxCollider(0, TypeArea, unitBox(), scene.transforms[0])
	require.NoError(t, err)

	_, ok := s.Raycast(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -1, 0}, 10, 1, noTag)
	assert.False(t, ok, "areas are not hit by rays")
}

func TestRaycast_FollowsUpdate(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(1)

	_, err := s.AddSphereCollider(0, TypeCollider, unitSphere(), scene.transforms[0])
	require.NoError(t, err)

	history := []actor.Transform{scene.transforms[0]}
	scene.at(0, mgl64.Vec3{3, 0, 0})
	s.Update(scene.transforms, history)

	hit, ok := s.Raycast(mgl64.Vec3{3, 5, 0}, mgl64.Vec3{0, -1, 0}, 10, 1, noTag)
	require.True(t, ok)
	assert.InDelta(t, 4.5, hit.Distance, 1e-9)
}
