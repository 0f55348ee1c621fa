package plume

import (
	"fmt"

	"github.com/akmonengine/plume/config"
)

// MaxCollisionIter bounds the resolution passes of a single MoveAndCollide call
const MaxCollisionIter = config.MaxIterations

// MaxTriangles is the largest triangle count of a mesh collider
const MaxTriangles = 1<<16 - 1

type ColliderID uint16

// CollisionLayer is a bit set: a collider is found by a query when its layer shares a bit with the query mask
type CollisionLayer uint16

const (
	ShapeNone ColliderShape = iota
	ShapeMesh
	ShapeSphere
	ShapeBox
	ShapeCapsule
)

type ColliderShape uint8

func (s ColliderShape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeMesh:
		return "mesh"
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapeCapsule:
		return "capsule"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

func (s ColliderShape) valid() bool {
	return s >= ShapeMesh && s <= ShapeCapsule
}

const (
	// TypeCollider colliders block movement
	TypeCollider ColliderType = iota
	// TypeArea colliders only report overlaps
	TypeArea
)

type ColliderType uint8

func (t ColliderType) String() string {
	switch t {
	case TypeCollider:
		return "collider"
	case TypeArea:
		return "area"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ColliderTag identifies a collider. Two tags are equal when id, shape and type all match.
type ColliderTag struct {
	ID    ColliderID
	Shape ColliderShape
	Type  ColliderType
}

func (t ColliderTag) String() string {
	return fmt.Sprintf("%s/%s/%d", t.Type, t.Shape, t.ID)
}

// NodeID indexes the scene transforms
type NodeID int32

// NoNode selects no node
const NoNode NodeID = -1
