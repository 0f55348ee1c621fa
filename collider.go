package plume

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Collider is the capability shared by every collider shape: producing a world space
// support shape and its AABB under a node transform.
type Collider interface {
	Layer() CollisionLayer
	Mask() CollisionLayer

	// Shape returns the world space shape used by the narrow phase
	Shape(transform actor.Transform) actor.Sweepable
	AABB(transform actor.Transform) actor.AABB

	Descriptor() ColliderDescriptor

	// Place records the transform the collider is indexed with
	Place(transform actor.Transform)
	Transform() actor.Transform

	state() *colliderState
}

type colliderState struct {
	layer CollisionLayer
	mask  CollisionLayer

	transform actor.Transform

	// the tree leaf must pick the new layer on the next update
	layerChanged bool
	// the debug line mesh must be regenerated
	changed bool
}

func (s *colliderState) Layer() CollisionLayer { return s.layer }
func (s *colliderState) Mask() CollisionLayer  { return s.mask }

func (s *colliderState) Transform() actor.Transform { return s.transform }

func (s *colliderState) Place(transform actor.Transform) {
	s.transform = transform
}

func (s *colliderState) state() *colliderState { return s }

func (s *colliderState) setLayer(layer CollisionLayer) {
	s.layer = layer
	s.layerChanged = true
}

// MeshCollider is a triangle soup. Triangles are given in local space, the collider
// keeps a world space copy for the transform it was last placed with.
type MeshCollider struct {
	colliderState

	vertices []mgl64.Vec3

	cache []actor.Triangle
	aabbs []actor.AABB
	aabb  actor.AABB
}

// NewMeshCollider validates the triangle list, three vertices per triangle
func NewMeshCollider(vertices []mgl64.Vec3, transform actor.Transform) (*MeshCollider, error) {
	c := &MeshCollider{colliderState: colliderState{transform: transform}}
	if err := c.SetTriangles(vertices); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *MeshCollider) SetTriangles(vertices []mgl64.Vec3) error {
	if len(vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertices", ErrInvalidTriangles, len(vertices))
	}
	if len(vertices)/3 > MaxTriangles {
		return fmt.Errorf("%w: %d triangles, at most %d", ErrCapacity, len(vertices)/3, MaxTriangles)
	}

	c.vertices = slices.Clone(vertices)
	c.updateTriangleCache()
	c.changed = true

	return nil
}

// Vertices returns the local space triangle list
func (c *MeshCollider) Vertices() []mgl64.Vec3 {
	return c.vertices
}

// Triangles returns the world space triangles
func (c *MeshCollider) Triangles() []actor.Triangle {
	return c.cache
}

// Place moves the world space triangles to transform
func (c *MeshCollider) Place(transform actor.Transform) {
	if transform.Equal(c.transform) {
		return
	}
	c.transform = transform
	c.updateTriangleCache()
}

func (c *MeshCollider) updateTriangleCache() {
	n := len(c.vertices) / 3
	c.cache = c.cache[:0]
	c.aabbs = c.aabbs[:0]

	m := c.transform.Matrix()
	for i := range n {
		tri := actor.Triangle{
			A: mgl64.TransformCoordinate(c.vertices[3*i], m),
			B: mgl64.TransformCoordinate(c.vertices[3*i+1], m),
			C: mgl64.TransformCoordinate(c.vertices[3*i+2], m),
		}
		c.cache = append(c.cache, tri)
		c.aabbs = append(c.aabbs, tri.AABB())
	}

	if n == 0 {
		c.aabb = actor.AABB{}
		return
	}
	c.aabb = c.aabbs[0]
	for _, box := range c.aabbs[1:] {
		c.aabb = c.aabb.Union(box)
	}
}

// CollectTriangles appends the world space triangles whose AABB intersects aabb
func (c *MeshCollider) CollectTriangles(aabb actor.AABB, out []actor.Triangle) []actor.Triangle {
	for i, box := range c.aabbs {
		if box.Intersects(aabb) {
			out = append(out, c.cache[i])
		}
	}
	return out
}

// Shape returns the convex hull of the mesh vertices
func (c *MeshCollider) Shape(transform actor.Transform) actor.Sweepable {
	if transform.Equal(c.transform) {
		vertices := make([]mgl64.Vec3, 0, 3*len(c.cache))
		for _, tri := range c.cache {
			vertices = append(vertices, tri.A, tri.B, tri.C)
		}
		return actor.ConvexHull{Vertices: vertices}
	}

	m := transform.Matrix()
	vertices := make([]mgl64.Vec3, len(c.vertices))
	for i, v := range c.vertices {
		vertices[i] = mgl64.TransformCoordinate(v, m)
	}
	return actor.ConvexHull{Vertices: vertices}
}

func (c *MeshCollider) AABB(transform actor.Transform) actor.AABB {
	if transform.Equal(c.transform) {
		return c.aabb
	}
	return c.Shape(transform).AABB()
}

type SphereCollider struct {
	colliderState
	base actor.Sphere
}

func NewSphereCollider(sphere actor.Sphere, transform actor.Transform) *SphereCollider {
	return &SphereCollider{base: sphere, colliderState: colliderState{transform: transform, changed: true}}
}

// BaseShape returns the local space sphere
func (c *SphereCollider) BaseShape() actor.Sphere { return c.base }

func (c *SphereCollider) SetBaseShape(sphere actor.Sphere) {
	c.base = sphere
	c.changed = true
}

// Sphere places the local sphere, the radius follows the largest scale component
func (c *SphereCollider) Sphere(transform actor.Transform) actor.Sphere {
	return actor.Sphere{
		Center: transform.Apply(c.base.Center),
		Radius: c.base.Radius * transform.MaxScale(),
	}
}

func (c *SphereCollider) Shape(transform actor.Transform) actor.Sweepable {
	return c.Sphere(transform)
}

func (c *SphereCollider) AABB(transform actor.Transform) actor.AABB {
	return c.Sphere(transform).AABB()
}

type BoxCollider struct {
	colliderState
	base actor.Box
}

func NewBoxCollider(box actor.Box, transform actor.Transform) *BoxCollider {
	return &BoxCollider{base: box, colliderState: colliderState{transform: transform, changed: true}}
}

func (c *BoxCollider) BaseShape() actor.Box { return c.base }

func (c *BoxCollider) SetBaseShape(box actor.Box) {
	c.base = box
	c.changed = true
}

// Hull returns the 8 transformed corners
func (c *BoxCollider) Hull(transform actor.Transform) actor.ConvexHull {
	return c.base.Hull(transform)
}

func (c *BoxCollider) Shape(transform actor.Transform) actor.Sweepable {
	return c.Hull(transform)
}

func (c *BoxCollider) AABB(transform actor.Transform) actor.AABB {
	return c.Hull(transform).AABB()
}

type CapsuleCollider struct {
	colliderState
	base actor.Capsule
}

func NewCapsuleCollider(capsule actor.Capsule, transform actor.Transform) *CapsuleCollider {
	return &CapsuleCollider{base: capsule, colliderState: colliderState{transform: transform, changed: true}}
}

func (c *CapsuleCollider) BaseShape() actor.Capsule { return c.base }

func (c *CapsuleCollider) SetBaseShape(capsule actor.Capsule) {
	c.base = capsule
	c.changed = true
}

// Capsule places both segment ends, the radius follows the largest scale component
func (c *CapsuleCollider) Capsule(transform actor.Transform) actor.Capsule {
	return actor.Capsule{
		Start:  transform.Apply(c.base.Start),
		End:    transform.Apply(c.base.End),
		Radius: c.base.Radius * transform.MaxScale(),
	}
}

func (c *CapsuleCollider) Shape(transform actor.Transform) actor.Sweepable {
	return c.Capsule(transform)
}

func (c *CapsuleCollider) AABB(transform actor.Transform) actor.AABB {
	return c.Capsule(transform).AABB()
}

// ColliderMap stores the colliders of one shape, keyed by an incrementing ColliderID
type ColliderMap[T any] struct {
	colliders map[ColliderID]*T
	nextID    int
}

func newColliderMap[T any]() ColliderMap[T] {
	return ColliderMap[T]{colliders: make(map[ColliderID]*T)}
}

func (m *ColliderMap[T]) insert(collider *T) (ColliderID, error) {
	if m.nextID > int(^ColliderID(0)) {
		return 0, fmt.Errorf("%w: every id has been used", ErrCapacity)
	}

	id := ColliderID(m.nextID)
	m.nextID++
	m.colliders[id] = collider

	return id, nil
}

func (m *ColliderMap[T]) Get(id ColliderID) (*T, bool) {
	c, ok := m.colliders[id]
	return c, ok
}

func (m *ColliderMap[T]) remove(id ColliderID) bool {
	if _, ok := m.colliders[id]; !ok {
		return false
	}
	delete(m.colliders, id)
	return true
}

func (m *ColliderMap[T]) Len() int {
	return len(m.colliders)
}

// IDs returns the ids in increasing order
func (m *ColliderMap[T]) IDs() []ColliderID {
	return slices.Sorted(maps.Keys(m.colliders))
}

func (m *ColliderMap[T]) clear() {
	clear(m.colliders)
	m.nextID = 0
}

// ColliderContainer groups the colliders of one type with the tree indexing them.
// The physics system owns two: solid colliders and areas.
type ColliderContainer struct {
	Type ColliderType

	Meshes   ColliderMap[MeshCollider]
	Spheres  ColliderMap[SphereCollider]
	Boxes    ColliderMap[BoxCollider]
	Capsules ColliderMap[CapsuleCollider]

	Tree *DynamicAABBTree
}

func NewColliderContainer(colliderType ColliderType, margin float64) *ColliderContainer {
	return &ColliderContainer{
		Type:     colliderType,
		Meshes:   newColliderMap[MeshCollider](),
		Spheres:  newColliderMap[SphereCollider](),
		Boxes:    newColliderMap[BoxCollider](),
		Capsules: newColliderMap[CapsuleCollider](),
		Tree:     NewDynamicAABBTree(margin),
	}
}

// add stores the collider and inserts its leaf
func (c *ColliderContainer) add(collider Collider, transform actor.Transform) (ColliderTag, error) {
	tag := ColliderTag{Type: c.Type}
	var id ColliderID
	var err error

	switch col := collider.(type) {
	case *MeshCollider:
		tag.Shape = ShapeMesh
		id, err = c.Meshes.insert(col)
	case *SphereCollider:
		tag.Shape = ShapeSphere
		id, err = c.Spheres.insert(col)
	case *BoxCollider:
		tag.Shape = ShapeBox
		id, err = c.Boxes.insert(col)
	case *CapsuleCollider:
		tag.Shape = ShapeCapsule
		id, err = c.Capsules.insert(col)
	default:
		return ColliderTag{}, fmt.Errorf("%w: %T", ErrInvalidShape, collider)
	}
	if err != nil {
		return ColliderTag{}, fmt.Errorf("adding %s %s: %w", c.Type, tag.Shape, err)
	}
	tag.ID = id

	collider.Place(transform)
	s := collider.state()
	s.layerChanged = false
	c.Tree.Insert(tag, s.layer, collider.AABB(transform))

	return tag, nil
}

// Collider returns the collider of tag
func (c *ColliderContainer) Collider(tag ColliderTag) (Collider, bool) {
	if tag.Type != c.Type {
		return nil, false
	}

	switch tag.Shape {
	case ShapeMesh:
		if col, ok := c.Meshes.Get(tag.ID); ok {
			return col, true
		}
	case ShapeSphere:
		if col, ok := c.Spheres.Get(tag.ID); ok {
			return col, true
		}
	case ShapeBox:
		if col, ok := c.Boxes.Get(tag.ID); ok {
			return col, true
		}
	case ShapeCapsule:
		if col, ok := c.Capsules.Get(tag.ID); ok {
			return col, true
		}
	}
	return nil, false
}

func (c *ColliderContainer) remove(tag ColliderTag) bool {
	if tag.Type != c.Type {
		return false
	}

	var removed bool
	switch tag.Shape {
	case ShapeMesh:
		removed = c.Meshes.remove(tag.ID)
	case ShapeSphere:
		removed = c.Spheres.remove(tag.ID)
	case ShapeBox:
		removed = c.Boxes.remove(tag.ID)
	case ShapeCapsule:
		removed = c.Capsules.remove(tag.ID)
	}

	if removed {
		c.Tree.Remove(tag)
	}
	return removed
}

// Tags returns every tag, ordered by shape then id
func (c *ColliderContainer) Tags() []ColliderTag {
	tags := make([]ColliderTag, 0, c.Len())
	appendTags := func(shape ColliderShape, ids []ColliderID) {
		for _, id := range ids {
			tags = append(tags, ColliderTag{ID: id, Shape: shape, Type: c.Type})
		}
	}

	appendTags(ShapeMesh, c.Meshes.IDs())
	appendTags(ShapeSphere, c.Spheres.IDs())
	appendTags(ShapeBox, c.Boxes.IDs())
	appendTags(ShapeCapsule, c.Capsules.IDs())

	return tags
}

func (c *ColliderContainer) Len() int {
	return c.Meshes.Len() + c.Spheres.Len() + c.Boxes.Len() + c.Capsules.Len()
}

func (c *ColliderContainer) clear() {
	c.Meshes.clear()
	c.Spheres.clear()
	c.Boxes.clear()
	c.Capsules.clear()
	c.Tree.Clear()
}

func compareTags(a, b ColliderTag) int {
	return cmp.Or(
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.Shape, b.Shape),
		cmp.Compare(a.ID, b.ID),
	)
}
