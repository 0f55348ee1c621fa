package plume

import (
	"sync/atomic"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 1000} {
		data := make([]int, 257)
		for i := range data {
			data[i] = i + 1
		}

		var sum atomic.Int64
		var calls atomic.Int32
		task(workers, data, func(v int) {
			sum.Add(int64(v))
			calls.Add(1)
		})

		assert.Equal(t, int32(len(data)), calls.Load(), "workers %d", workers)
		assert.Equal(t, int64(257*258/2), sum.Load(), "workers %d", workers)
	}

	called := false
	task(4, []int{}, func(int) { called = true })
	assert.False(t, called)
}

func TestUpdate_ParallelPlacements(t *testing.T) {
	s, _ := newTestSystem(t)
	s.cfg.Workers = 4

	const count = 2 * minParallelPlacements
	scene := newTestScene(count)
	history := make([]actor.Transform, count)
	for i := range count {
		_, err := s.AddMeshCollider(NodeID(i), TypeCollider, floorVertices(0.5, 0), scene.at(NodeID(i), mgl64.Vec3{float64(i) * 2, 0, 0}))
		require.NoError(t, err)
		history[i] = scene.transforms[i]
	}

	for i := range count {
		scene.at(NodeID(i), mgl64.Vec3{float64(i) * 2, 3, 0})
	}
	s.Update(scene.transforms, history)

	require.NoError(t, s.Colliders().Tree.Validate())
	for _, tag := range s.Colliders().Tags() {
		collider, _ := s.Collider(tag)
		for _, tri := range collider.(*MeshCollider).Triangles() {
			assert.InDelta(t, 3, tri.A.Y(), 1e-12)
		}
	}
}
