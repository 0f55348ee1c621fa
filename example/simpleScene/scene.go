package main

import (
	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

// Node links an entity to its physics node
type Node struct {
	ID plume.NodeID
}

// Velocity is the per second movement of a mover
type Velocity struct {
	Linear mgl64.Vec3
}

// Mover marks the entities driven by MoveAndCollide
type Mover struct {
	Grounded bool
}

// Scene stores the node transforms in an ark world
type Scene struct {
	world *ecs.World

	staticMapper *ecs.Map2[Node, actor.Transform]
	moverMapper  *ecs.Map4[Node, actor.Transform, Velocity, Mover]
	moverFilter  *ecs.Filter4[Node, actor.Transform, Velocity, Mover]
	transformMap *ecs.Map1[actor.Transform]

	entities []ecs.Entity
}

func NewScene() *Scene {
	world := ecs.NewWorld()

	return &Scene{
		world:        world,
		staticMapper: ecs.NewMap2[Node, actor.Transform](world),
		moverMapper:  ecs.NewMap4[Node, actor.Transform, Velocity, Mover](world),
		moverFilter:  ecs.NewFilter4[Node, actor.Transform, Velocity, Mover](world),
		transformMap: ecs.NewMap1[actor.Transform](world),
	}
}

// AddStatic creates a node that never moves
func (s *Scene) AddStatic(transform actor.Transform) plume.NodeID {
	node := Node{ID: plume.NodeID(len(s.entities))}
	s.entities = append(s.entities, s.staticMapper.NewEntity(&node, &transform))
	return node.ID
}

// AddMover creates a node moved every tick by its velocity
func (s *Scene) AddMover(transform actor.Transform, velocity mgl64.Vec3) plume.NodeID {
	node := Node{ID: plume.NodeID(len(s.entities))}
	vel := Velocity{Linear: velocity}
	mover := Mover{}
	s.entities = append(s.entities, s.moverMapper.NewEntity(&node, &transform, &vel, &mover))
	return node.ID
}

func (s *Scene) GlobalTransform(node plume.NodeID) actor.Transform {
	return *s.transformMap.Get(s.entities[node])
}

func (s *Scene) SetGlobalTransform(node plume.NodeID, transform actor.Transform) {
	*s.transformMap.Get(s.entities[node]) = transform
}

// Transforms copies the transform cache, indexed by node
func (s *Scene) Transforms(out []actor.Transform) []actor.Transform {
	out = out[:0]
	for _, entity := range s.entities {
		out = append(out, *s.transformMap.Get(entity))
	}
	return out
}
