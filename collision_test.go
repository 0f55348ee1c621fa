package plume

import (
	"fmt"
	"math"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/epa"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boxAt(position mgl64.Vec3) actor.ConvexHull {
	transform := actor.NewTransform()
	transform.Position = position
	return unitBox().Hull(transform)
}

func TestNarrowPhase(t *testing.T) {
	t.Run("separated spheres", func(t *testing.T) {
		a := actor.Sphere{Center: mgl64.Vec3{1.2, 0, 0}, Radius: 0.5}
		b := actor.Sphere{Radius: 0.5}

		result := NarrowPhase(a, b, a.Center, a.Center, epa.DefaultSolver())
		assert.False(t, result.Collided)
		assert.Zero(t, result.Depth)
	})

	t.Run("overlapping spheres", func(t *testing.T) {
		a := actor.Sphere{Center: mgl64.Vec3{0.8, 0, 0}, Radius: 0.5}
		b := actor.Sphere{Radius: 0.5}
		solver := epa.Solver{MaxIterations: 64, TravelBias: 0, Epsilon: 0}

		result := NarrowPhase(a, b, a.Center, a.Center, solver)
		require.True(t, result.Collided)
		assert.InDelta(t, 0.2, result.Depth, 0.02)
		assert.Greater(t, result.Normal.X(), 0.95, "normal should point from b toward a")
	})

	t.Run("overlapping boxes", func(t *testing.T) {
		a := boxAt(mgl64.Vec3{0.8, 0, 0})
		b := boxAt(mgl64.Vec3{})

		result := NarrowPhase(a, b, mgl64.Vec3{0.8, 0, 0}, mgl64.Vec3{0.8, 0, 0}, epa.DefaultSolver())
		require.True(t, result.Collided)
		assert.InDelta(t, 0.201, result.Depth, 1e-6)
		assert.InDelta(t, 1, result.Normal.X(), 1e-6)
	})

	t.Run("touching boxes are separated", func(t *testing.T) {
		result := NarrowPhase(boxAt(mgl64.Vec3{1, 0, 0}), boxAt(mgl64.Vec3{}), mgl64.Vec3{}, mgl64.Vec3{}, epa.DefaultSolver())
		assert.False(t, result.Collided)
	})
}

func TestMoveAndCollide_Free(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(2)

	_, err := s.AddMeshCollider(0, TypeCollider, floorVertices(2, 0), scene.transforms[0])
	require.NoError(t, err)
	tag, err := s.AddSphereCollider(1, TypeCollider, unitSphere(), scene.at(1, mgl64.Vec3{0, 3, 0}))
	require.NoError(t, err)

	movement := mgl64.Vec3{3, 0, 4}
	result := s.MoveAndCollide(scene, 1, movement)

	assert.False(t, result.Collided())
	assert.Empty(t, result.Contacts())
	assert.False(t, result.Grounded)
	assert.InDelta(t, 5, result.MoveDistance, 1e-12)
	assert.Equal(t, mgl64.Vec3{3, 3, 4}, scene.transforms[1].Position)

	fat, ok := s.Colliders().Tree.FatAABB(tag)
	require.True(t, ok)
	assert.True(t, fat.ContainsPoint(mgl64.Vec3{3, 3, 4}))
	require.NoError(t, s.Colliders().Tree.Validate())
}

func TestMoveAndCollide_Floor(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(2)

	floor, err := s.AddMeshCollider(0, TypeCollider, floorVertices(2, 0), scene.transforms[0])
	require.NoError(t, err)
	_, err = s.AddBoxCollider(1, TypeCollider, unitBox(), scene.at(1, mgl64.Vec3{0, 0.6, 0}))
	require.NoError(t, err)

	result := s.MoveAndCollide(scene, 1, mgl64.Vec3{0, -0.5, 0})

	require.True(t, result.Collided())
	first := result.Contacts()[0]
	assert.True(t, first.Collided)
	assert.Equal(t, floor, first.Other)
	assert.Equal(t, NodeID(0), first.OtherNode)
	assert.Greater(t, first.Normal.Y(), 0.9)
	assert.InDelta(t, 0.2, first.TimeOfImpact, 0.01)
	// resolved at the first contact, the push out is a bisection step plus epsilon
	assert.Less(t, first.Impulse.Len(), 0.01)

	assert.True(t, result.Grounded)
	assert.Equal(t, first.Normal, result.GroundNormal)
	assert.InDelta(t, 0.1, result.MoveDistance, 0.005)

	// resting on the floor, at most epsilon above it
	y := scene.transforms[1].Position.Y()
	assert.GreaterOrEqual(t, y, 0.5)
	assert.LessOrEqual(t, y, 0.502)
}

func TestMoveAndCollide_DeepDrop(t *testing.T) {
	shapes := []struct {
		name string
		add  func(s *PhysicsSystem, transform actor.Transform) error
	}{
		{"sphere", func(s *PhysicsSystem, transform actor.Transform) error {
			_, err := s.AddSphereCollider(1, TypeCollider, unitSphere(), transform)
			return err
		}},
		{"box", func(s *PhysicsSystem, transform actor.Transform) error {
			_, err := s.AddBoxCollider(1, TypeCollider, unitBox(), transform)
			return err
		}},
	}

	for _, shape := range shapes {
		for _, drop := range []float64{0.8, 1.0} {
			t.Run(fmt.Sprintf("%s by %.1f", shape.name, drop), func(t *testing.T) {
				s, _ := newTestSystem(t)
				scene := newTestScene(2)

				_, err := s.AddMeshCollider(0, TypeCollider, floorVertices(2, 0), scene.transforms[0])
				require.NoError(t, err)
				require.NoError(t, shape.add(s, scene.at(1, mgl64.Vec3{0, 0.6, 0})))

				// the end of the movement puts the center below the floor
				result := s.MoveAndCollide(scene, 1, mgl64.Vec3{0, -drop, 0})

				require.True(t, result.Collided())
				assert.True(t, result.Grounded)
				assert.Greater(t, result.GroundNormal.Y(), 0.9)
				assert.InDelta(t, 0.1, result.MoveDistance, 0.01)

				y := scene.transforms[1].Position.Y()
				assert.GreaterOrEqual(t, y, 0.5)
				assert.LessOrEqual(t, y, 0.505)
			})
		}
	}
}

func TestMoveAndCollide_Wall(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(2)

	wall := []mgl64.Vec3{
		{1, -2, -2}, {1, 2, -2}, {1, 2, 2},
		{1, -2, -2}, {1, 2, 2}, {1, -2, 2},
	}
	_, err := s.AddMeshCollider(0, TypeCollider, wall, scene.transforms[0])
	require.NoError(t, err)
	_, err = s.AddBoxCollider(1, TypeCollider, unitBox(), scene.transforms[1])
	require.NoError(t, err)

	result := s.MoveAndCollide(scene, 1, mgl64.Vec3{0.8, 0, 0})

	require.True(t, result.Collided())
	assert.Less(t, result.Contacts()[0].Normal.X(), -0.9)
	assert.False(t, result.Grounded, "a wall is not ground")
	assert.InDelta(t, 0.5, result.MoveDistance, 0.01)

	x := scene.transforms[1].Position.X()
	assert.LessOrEqual(t, x, 0.5)
	assert.Greater(t, x, 0.4)
}

func TestMoveAndCollide_Slide(t *testing.T) {
	wall := []mgl64.Vec3{
		{1, -2, -2}, {1, 2, -2}, {1, 2, 2},
		{1, -2, -2}, {1, 2, 2}, {1, -2, 2},
	}
	movement := mgl64.Vec3{0.8, 0, 0.8}

	setup := func(t *testing.T) (*PhysicsSystem, *testScene) {
		s, _ := newTestSystem(t)
		scene := newTestScene(2)

		_, err := s.AddMeshCollider(0, TypeCollider, wall, scene.transforms[0])
		require.NoError(t, err)
		_, err = s.AddBoxCollider(1, TypeCollider, unitBox(), scene.transforms[1])
		require.NoError(t, err)
		return s, scene
	}

	t.Run("keeps the tangential movement", func(t *testing.T) {
		s, scene := setup(t)

		result := s.MoveAndCollide(scene, 1, movement)

		require.Equal(t, 1, result.NCollisions)
		assert.Less(t, result.Contacts()[0].Normal.X(), -0.9)
		assert.InDelta(t, 0.625, result.Contacts()[0].TimeOfImpact, 0.01)

		position := scene.transforms[1].Position
		assert.LessOrEqual(t, position.X(), 0.5)
		assert.Greater(t, position.X(), 0.49)
		assert.InDelta(t, 0.8, position.Z(), 0.01)
		// diagonal travel to the wall, then along it
		assert.InDelta(t, 0.5*math.Sqrt2+0.3, result.MoveDistance, 0.02)
	})

	t.Run("disabled stops at the wall", func(t *testing.T) {
		s, scene := setup(t)
		s.cfg.Slide = false

		result := s.MoveAndCollide(scene, 1, movement)

		require.Equal(t, 1, result.NCollisions)
		position := scene.transforms[1].Position
		assert.LessOrEqual(t, position.X(), 0.5)
		assert.InDelta(t, 0.5, position.Z(), 0.01)
		assert.InDelta(t, 0.5*math.Sqrt2, result.MoveDistance, 0.01)
	})
}

func TestMoveAndCollide_SphereIntoBox(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(2)

	box, err := s.AddBoxCollider(0, TypeCollider, unitBox(), scene.transforms[0])
	require.NoError(t, err)
	_, err = s.AddSphereCollider(1, TypeCollider, unitSphere(), scene.at(1, mgl64.Vec3{0, 0, 0.9}))
	require.NoError(t, err)

	dt := 1.0 / 60.0
	movement := mgl64.Vec3{0, 0, 1}.Mul(dt)
	result := s.MoveAndCollide(scene, 1, movement)

	require.True(t, result.Collided())
	first := result.Contacts()[0]
	assert.Equal(t, box, first.Other)
	assert.Greater(t, first.Normal.Z(), 0.7)
	assert.Zero(t, first.TimeOfImpact, "the sphere starts inside the box")
	assert.Less(t, result.MoveDistance, movement.Len())
	assert.Greater(t, scene.transforms[1].Position.Z(), 0.9)
}

func TestMoveAndCollide_CapsuleOnBox(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(2)

	_, err := s.AddBoxCollider(0, TypeCollider, unitBox(), scene.transforms[0])
	require.NoError(t, err)
	capsule := actor.Capsule{End: mgl64.Vec3{0, 1, 0}, Radius: 0.25}
	_, err = s.AddCapsuleCollider(1, TypeCollider, capsule, scene.at(1, mgl64.Vec3{0, 1, 0}))
	require.NoError(t, err)

	result := s.MoveAndCollide(scene, 1, mgl64.Vec3{0, -0.5, 0})

	require.True(t, result.Collided())
	assert.True(t, result.Grounded)
	assert.Greater(t, result.GroundNormal.Y(), 0.707)
	assert.InDelta(t, 0.25, result.MoveDistance, 0.01)
	// the capsule bottom rests on the box top
	assert.GreaterOrEqual(t, scene.transforms[1].Position.Y()-capsule.Radius, 0.45)
}

func TestMoveAndCollide_Filtering(t *testing.T) {
	t.Run("mask excludes the obstacle layer", func(t *testing.T) {
		s, _ := newTestSystem(t)
		scene := newTestScene(2)

		obstacle, err := s.AddBoxCollider(0, TypeCollider, unitBox(), scene.transforms[0])
		require.NoError(t, err)
		require.NoError(t, s.SetLayer(obstacle, 2))
		s.Update(scene.transforms, scene.transforms)

		_, err = s.AddSphereCollider(1, TypeCollider, unitSphere(), scene.at(1, mgl64.Vec3{-3, 0, 0}))
		require.NoError(t, err)

		result := s.MoveAndCollide(scene, 1, mgl64.Vec3{6, 0, 0})
		assert.False(t, result.Collided())
		assert.Equal(t, mgl64.Vec3{3, 0, 0}, scene.transforms[1].Position)
	})

	t.Run("areas never block", func(t *testing.T) {
		s, _ := newTestSystem(t)
		scene := newTestScene(2)

		_, err := s.AddBoxCollider(0, TypeArea, unitBox(), scene.transforms[0])
		require.NoError(t, err)
		_, err = s.AddSphereCollider(1, TypeCollider, unitSphere(), scene.at(1, mgl64.Vec3{-3, 0, 0}))
		require.NoError(t, err)

		result := s.MoveAndCollide(scene, 1, mgl64.Vec3{6, 0, 0})
		assert.False(t, result.Collided())
	})

	t.Run("areas move through colliders", func(t *testing.T) {
		s, _ := newTestSystem(t)
		scene := newTestScene(2)

		_, err := s.AddBoxCollider(0, TypeCollider, unitBox(), scene.transforms[0])
		require.NoError(t, err)
		area, err := s.AddSphereCollider(1, TypeArea, unitSphere(), scene.at(1, mgl64.Vec3{-3, 0, 0}))
		require.NoError(t, err)

		result := s.MoveAndCollide(scene, 1, mgl64.Vec3{3, 0, 0})
		assert.False(t, result.Collided())
		assert.InDelta(t, 3, result.MoveDistance, 1e-12)
		assert.Equal(t, mgl64.Vec3{0, 0, 0}, scene.transforms[1].Position)

		fat, ok := s.Areas().Tree.FatAABB(area)
		require.True(t, ok)
		assert.True(t, fat.ContainsPoint(mgl64.Vec3{}))
	})
}

func TestMoveAndCollide_UnknownNode(t *testing.T) {
	s, logs := newTestSystem(t)
	scene := newTestScene(1)

	result := s.MoveAndCollide(scene, 0, mgl64.Vec3{1, 0, 0})
	assert.False(t, result.Collided())
	assert.Zero(t, result.MoveDistance)
	assert.Equal(t, mgl64.Vec3{}, scene.transforms[0].Position)
	assert.Contains(t, logs.String(), "move of a node without collider")
}

func TestMoveAndCollide_Events(t *testing.T) {
	s, _ := newTestSystem(t)
	scene := newTestScene(3)
	capture := &eventCapture{}
	s.Subscribe(COLLISION_ENTER, capture.capture)
	s.Subscribe(COLLISION_STAY, capture.capture)
	s.Subscribe(COLLISION_EXIT, capture.capture)

	_, err := s.AddMeshCollider(2, TypeCollider, floorVertices(2, 0), scene.transforms[2])
	require.NoError(t, err)
	_, err = s.AddBoxCollider(1, TypeCollider, unitBox(), scene.at(1, mgl64.Vec3{0, 0.6, 0}))
	require.NoError(t, err)

	s.MoveAndCollide(scene, 1, mgl64.Vec3{0, -0.5, 0})
	s.Update(scene.transforms, scene.transforms)

	require.Equal(t, 1, capture.count())
	assert.Equal(t, CollisionEnterEvent{NodeA: 1, NodeB: 2}, capture.events[0])

	capture.reset()
	s.MoveAndCollide(scene, 1, mgl64.Vec3{0, -0.1, 0})
	s.Update(scene.transforms, scene.transforms)
	assert.True(t, capture.hasEventType(COLLISION_STAY))

	capture.reset()
	s.Update(scene.transforms, scene.transforms)
	assert.Equal(t, []Event{CollisionExitEvent{NodeA: 1, NodeB: 2}}, capture.events)
}
