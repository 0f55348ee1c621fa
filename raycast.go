package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// RayHit describes the closest surface struck by a ray
type RayHit struct {
	Position mgl64.Vec3
	// Normal faces the ray origin
	Normal   mgl64.Vec3
	Distance float64
	Tag      ColliderTag
	Node     NodeID
}

// Raycast returns the closest solid collider hit within maxDistance whose layer matches mask.
// The collider of ignore is skipped. Colliders are tested where they were last placed.
func (s *PhysicsSystem) Raycast(origin, direction mgl64.Vec3, maxDistance float64, mask CollisionLayer, ignore ColliderTag) (RayHit, bool) {
	if direction.LenSqr() == 0 || maxDistance < 0 {
		return RayHit{}, false
	}
	direction = direction.Normalize()

	s.rayTags = s.colliders.Tree.QueryRaycast(origin, direction, maxDistance, mask, s.rayTags[:0])

	var hit RayHit
	found := false
	closest := maxDistance

	accept := func(distance float64, normal mgl64.Vec3, tag ColliderTag) {
		if distance > closest {
			return
		}
		if normal.Dot(direction) > 0 {
			normal = normal.Mul(-1)
		}
		closest = distance
		found = true
		hit = RayHit{
			Position: origin.Add(direction.Mul(distance)),
			Normal:   normal,
			Distance: distance,
			Tag:      tag,
			Node:     s.Node(tag),
		}
	}

	for _, tag := range s.rayTags {
		if tag == ignore {
			continue
		}
		collider, ok := s.colliders.Collider(tag)
		if !ok {
			continue
		}
		transform := collider.Transform()

		switch c := collider.(type) {
		case *MeshCollider:
			for _, tri := range c.Triangles() {
				if t, ok := actor.RayTriangle(origin, direction, tri); ok {
					accept(t, tri.Normal(), tag)
				}
			}
		case *BoxCollider:
			hull := c.Hull(transform)
			for _, indices := range actor.BoxTriangles {
				tri := actor.Triangle{A: hull.Vertices[indices[0]], B: hull.Vertices[indices[1]], C: hull.Vertices[indices[2]]}
				if t, ok := actor.RayTriangle(origin, direction, tri); ok {
					accept(t, tri.Normal(), tag)
				}
			}
		case *SphereCollider:
			sphere := c.Sphere(transform)
			if t, ok := actor.RaySphere(origin, direction, sphere); ok {
				normal := origin.Add(direction.Mul(t)).Sub(sphere.Center)
				if t == 0 || normal.LenSqr() == 0 {
					normal = direction.Mul(-1)
				}
				accept(t, normal.Normalize(), tag)
			}
		case *CapsuleCollider:
			capsule := c.Capsule(transform)
			if t, ok := actor.RayCapsule(origin, direction, capsule); ok {
				normal := actor.CapsuleNormal(origin.Add(direction.Mul(t)), capsule)
				if t == 0 {
					normal = direction.Mul(-1)
				}
				accept(t, normal, tag)
			}
		}
	}

	return hit, found
}
