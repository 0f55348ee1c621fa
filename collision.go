package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/epa"
	"github.com/akmonengine/plume/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis grounded contacts are measured against
var Up = mgl64.Vec3{0, 1, 0}

// ContactResult is the outcome of the narrow phase between two shapes
type ContactResult struct {
	// Normal points from the second shape toward the first
	Normal   mgl64.Vec3
	Depth    float64
	Collided bool
}

// Collision is one contact resolved by MoveAndCollide
type Collision struct {
	Normal mgl64.Vec3
	// Impulse is the translation applied to push the mover out, Normal * depth
	Impulse mgl64.Vec3
	// TimeOfImpact is the fraction of the iteration movement travelled before the contact
	TimeOfImpact float64
	Other        ColliderTag
	OtherNode    NodeID
	Collided     bool
}

// CollisionResult gathers the contacts of a MoveAndCollide call
type CollisionResult struct {
	Collisions  [MaxCollisionIter]Collision
	NCollisions int

	Grounded     bool
	GroundNormal mgl64.Vec3
	// MoveDistance is the length travelled before the contacts
	MoveDistance float64
}

// Collided reports whether at least one contact was resolved
func (r *CollisionResult) Collided() bool {
	return r.NCollisions > 0
}

// Contacts returns the resolved contacts, in resolution order
func (r *CollisionResult) Contacts() []Collision {
	return r.Collisions[:r.NCollisions]
}

func (r *CollisionResult) add(c Collision) {
	if r.NCollisions < len(r.Collisions) {
		r.Collisions[r.NCollisions] = c
		r.NCollisions++
	}
}

// NarrowPhase runs GJK, then EPA on overlap. start and dest describe the movement of a,
// the penetration normal favors the faces opposing it.
// A degenerate polytope is reported as no contact.
func NarrowPhase(a, b actor.Convex, start, dest mgl64.Vec3, solver epa.Solver) ContactResult {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(a, b, simplex) {
		return ContactResult{}
	}

	penetration, err := solver.Solve(a, b, simplex, start, dest)
	if err != nil {
		return ContactResult{}
	}

	return ContactResult{Normal: penetration.Normal, Depth: penetration.Depth, Collided: true}
}

// intersects is the GJK boolean test
func intersects(a, b actor.Convex) bool {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	return gjk.GJK(a, b, simplex)
}

// minMovementSqr is the squared length under which a remaining movement is dropped
const minMovementSqr = 1e-12

// contact is the best candidate of one resolution pass
type contact struct {
	collision Collision
	depth     float64
	// fraction of the movement at which the shape is placed before the push out
	fraction float64
	position mgl64.Vec3
}

// MoveAndCollide moves the collider of node by movement, stopping at the solid colliders
// matching its mask. Each pass sweeps the shape over the remaining movement, places it at
// the earliest contact and pushes it out along the penetration normal. With sliding enabled
// the rest of the movement continues along the contact surface, otherwise it is dropped.
// The new transform is written back to the scene and the tree leaf refit.
func (s *PhysicsSystem) MoveAndCollide(scene Scene, node NodeID, movement mgl64.Vec3) CollisionResult {
	var result CollisionResult

	tag, ok := s.tags[node]
	if !ok {
		s.logger.Warn("move of a node without collider", "node", node)
		return result
	}
	container, _ := s.container(tag.Type)
	collider, _ := container.Collider(tag)

	transform := scene.GlobalTransform(node)

	// areas never collide
	if tag.Type == TypeArea {
		transform.Position = transform.Position.Add(movement)
		result.MoveDistance = movement.Len()
		s.place(scene, node, container, tag, collider, transform)
		return result
	}

	remaining := movement
	for range s.cfg.MaxIterations {
		if remaining.LenSqr() < minMovementSqr {
			break
		}

		c, found := s.findContact(scene, tag, collider, transform, remaining)
		if !found {
			transform.Position = transform.Position.Add(remaining)
			result.MoveDistance += remaining.Len()
			break
		}

		transform.Position = c.position
		result.MoveDistance += c.collision.TimeOfImpact * remaining.Len()
		result.add(c.collision)

		normal := c.collision.Normal
		if normal.Dot(Up) > s.cfg.GroundedThreshold {
			result.Grounded = true
			result.GroundNormal = normal
		}
		s.Events.record(makePairKey(node, c.collision.OtherNode, false))

		if !s.cfg.Slide {
			break
		}
		rest := remaining.Mul(1 - c.fraction)
		remaining = rest.Sub(normal.Mul(rest.Dot(normal)))
	}

	s.place(scene, node, container, tag, collider, transform)
	return result
}

// place writes the transform back and refits the leaf when it moved
func (s *PhysicsSystem) place(scene Scene, node NodeID, container *ColliderContainer, tag ColliderTag, collider Collider, transform actor.Transform) {
	scene.SetGlobalTransform(node, transform)
	if transform.Equal(collider.Transform()) {
		return
	}

	collider.Place(transform)
	container.Tree.Update(tag, collider.Layer(), collider.AABB(transform))
}

// findContact returns the earliest contact of the shape moving by movement. Ties on the time
// of impact keep the deepest penetration.
func (s *PhysicsSystem) findContact(scene Scene, tag ColliderTag, collider Collider, transform actor.Transform, movement mgl64.Vec3) (contact, bool) {
	shape := collider.Shape(transform)
	var swept actor.Convex = shape
	if movement.LenSqr() > 0 {
		swept = shape.Sweep(movement)
	}
	aabb := swept.AABB()

	s.candidates.Reset()
	s.colliders.Tree.QueryByShape(tag, collider.Mask(), aabb, &s.candidates)
	if s.candidates.Len() == 0 {
		return contact{}, false
	}

	var best contact
	found := false
	consider := func(other actor.Convex, otherTag ColliderTag) {
		if !intersects(swept, other) {
			return
		}
		c, ok := s.resolve(collider, transform, other, movement)
		if !ok {
			return
		}
		c.collision.Other = otherTag
		c.collision.OtherNode = s.Node(otherTag)

		if !found || c.collision.TimeOfImpact < best.collision.TimeOfImpact ||
			(c.collision.TimeOfImpact == best.collision.TimeOfImpact && c.depth > best.depth) {
			best = c
			found = true
		}
	}

	for _, otherTag := range s.candidates.Meshes {
		mesh, ok := s.colliders.Meshes.Get(otherTag.ID)
		if !ok {
			continue
		}
		s.triangles = mesh.CollectTriangles(aabb, s.triangles[:0])
		for _, tri := range s.triangles {
			consider(tri, otherTag)
		}
	}
	for _, group := range [][]ColliderTag{s.candidates.Spheres, s.candidates.Boxes, s.candidates.Capsules} {
		for _, otherTag := range group {
			other, ok := s.colliders.Collider(otherTag)
			if !ok {
				continue
			}
			consider(other.Shape(scene.GlobalTransform(s.Node(otherTag))), otherTag)
		}
	}

	return best, found
}

// resolve finds when shape first touches other over movement and computes the penetration
// just past that point, where the shape barely overlaps, so the push out never crosses a
// thin obstacle. A shape already overlapping at the start is resolved where it stands.
func (s *PhysicsSystem) resolve(collider Collider, transform actor.Transform, other actor.Convex, movement mgl64.Vec3) (contact, bool) {
	toi, hit := s.timeOfImpact(collider.Shape(transform), other, movement)
	// one more bisection step past the first overlap keeps the placed shape overlapping
	fraction := min(1, hit+(hit-toi))

	start := transform.Position
	placed := transform
	placed.Position = start.Add(movement.Mul(fraction))

	result := NarrowPhase(collider.Shape(placed), other, start, start.Add(movement), s.solver)
	if !result.Collided {
		return contact{}, false
	}

	impulse := result.Normal.Mul(result.Depth)
	return contact{
		collision: Collision{
			Normal:       result.Normal,
			Impulse:      impulse,
			TimeOfImpact: toi,
			Collided:     true,
		},
		depth:    result.Depth,
		fraction: fraction,
		position: placed.Position.Add(impulse),
	}, true
}

// timeOfImpact bisects the movement fraction at which shape starts touching other.
// It returns the last separated fraction and the first overlapping one.
// A shape already overlapping other gives 0.
func (s *PhysicsSystem) timeOfImpact(shape actor.Sweepable, other actor.Convex, movement mgl64.Vec3) (float64, float64) {
	if movement.LenSqr() == 0 || intersects(shape, other) {
		return 0, 0
	}

	lo, hi := 0.0, 1.0
	for range s.cfg.TOISteps {
		mid := (lo + hi) / 2
		if intersects(shape.Sweep(movement.Mul(mid)), other) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo, hi
}
