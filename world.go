package plume

import (
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/config"
	"github.com/akmonengine/plume/epa"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene gives the physics system access to the node transforms it resolves movement for
type Scene interface {
	GlobalTransform(node NodeID) actor.Transform
	SetGlobalTransform(node NodeID, transform actor.Transform)
}

// PhysicsSystem owns every collider of a scene, split in two containers: solid colliders,
// which block MoveAndCollide, and areas, which only report overlaps.
// It is not safe for concurrent use; every call happens on the simulation thread.
type PhysicsSystem struct {
	cfg    config.PhysicsConfig
	logger *slog.Logger
	solver epa.Solver

	colliders *ColliderContainer
	areas     *ColliderContainer

	tags  map[NodeID]ColliderTag
	nodes map[ColliderTag]NodeID

	// rebuilt from scratch on every Update
	overlaps map[NodeID][]NodeID

	Events Events

	lineMeshes map[ColliderTag]MeshID

	// scratch buffers reused between calls
	candidates ShapeCandidates
	triangles  []actor.Triangle
	updates    []TreeUpdate
	placements []placement
	rayTags    []ColliderTag
	queryTags  []ColliderTag
}

// NewPhysicsSystem creates an empty system. A nil logger logs through slog.Default().
func NewPhysicsSystem(cfg config.PhysicsConfig, logger *slog.Logger) *PhysicsSystem {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.MaxIterations = min(max(cfg.MaxIterations, 1), MaxCollisionIter)
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	return &PhysicsSystem{
		cfg:    cfg,
		logger: logger,
		solver: epa.Solver{
			MaxIterations: cfg.EPAIterations,
			TravelBias:    cfg.EPATravelBias,
			Epsilon:       cfg.PenetrationEpsilon,
		},
		colliders:  NewColliderContainer(TypeCollider, cfg.FatMargin),
		areas:      NewColliderContainer(TypeArea, cfg.FatMargin),
		tags:       make(map[NodeID]ColliderTag),
		nodes:      make(map[ColliderTag]NodeID),
		overlaps:   make(map[NodeID][]NodeID),
		Events:     NewEvents(),
		lineMeshes: make(map[ColliderTag]MeshID),
	}
}

// Colliders returns the solid colliders container
func (s *PhysicsSystem) Colliders() *ColliderContainer { return s.colliders }

// Areas returns the areas container
func (s *PhysicsSystem) Areas() *ColliderContainer { return s.areas }

func (s *PhysicsSystem) container(colliderType ColliderType) (*ColliderContainer, error) {
	switch colliderType {
	case TypeCollider:
		return s.colliders, nil
	case TypeArea:
		return s.areas, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidShape, colliderType)
}

// AddMeshCollider attaches a triangle soup to node. vertices holds 3 local space points per triangle.
func (s *PhysicsSystem) AddMeshCollider(node NodeID, colliderType ColliderType, vertices []mgl64.Vec3, transform actor.Transform) (ColliderTag, error) {
	mesh, err := NewMeshCollider(vertices, transform)
	if err != nil {
		s.logger.Error("invalid mesh collider", "node", node, "vertices", len(vertices), "triangles", len(vertices)/3, "error", err)
		return ColliderTag{}, err
	}
	return s.attach(node, colliderType, mesh, transform)
}

func (s *PhysicsSystem) AddSphereCollider(node NodeID, colliderType ColliderType, sphere actor.Sphere, transform actor.Transform) (ColliderTag, error) {
	return s.attach(node, colliderType, NewSphereCollider(sphere, transform), transform)
}

func (s *PhysicsSystem) AddBoxCollider(node NodeID, colliderType ColliderType, box actor.Box, transform actor.Transform) (ColliderTag, error) {
	return s.attach(node, colliderType, NewBoxCollider(box, transform), transform)
}

func (s *PhysicsSystem) AddCapsuleCollider(node NodeID, colliderType ColliderType, capsule actor.Capsule, transform actor.Transform) (ColliderTag, error) {
	return s.attach(node, colliderType, NewCapsuleCollider(capsule, transform), transform)
}

// AddCollider attaches the collider described by d, keeping its layer and mask
func (s *PhysicsSystem) AddCollider(node NodeID, d ColliderDescriptor, transform actor.Transform) (ColliderTag, error) {
	collider, err := newCollider(d, transform)
	if err != nil {
		s.logger.Error("invalid collider descriptor", "node", node, "shape", d.Shape, "error", err)
		return ColliderTag{}, err
	}
	return s.insert(node, d.Type, collider, transform)
}

// attach gives a new collider the default filtering before inserting it
func (s *PhysicsSystem) attach(node NodeID, colliderType ColliderType, collider Collider, transform actor.Transform) (ColliderTag, error) {
	state := collider.state()
	state.layer = CollisionLayer(s.cfg.DefaultLayer)
	state.mask = CollisionLayer(s.cfg.DefaultMask)

	return s.insert(node, colliderType, collider, transform)
}

func (s *PhysicsSystem) insert(node NodeID, colliderType ColliderType, collider Collider, transform actor.Transform) (ColliderTag, error) {
	if node < 0 {
		return ColliderTag{}, fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	if tag, ok := s.tags[node]; ok {
		s.logger.Warn("node already has a collider", "node", node, "tag", tag)
		return ColliderTag{}, fmt.Errorf("%w: node %d has %s", ErrNodeHasCollider, node, tag)
	}

	container, err := s.container(colliderType)
	if err != nil {
		return ColliderTag{}, err
	}

	tag, err := container.add(collider, transform)
	if err != nil {
		s.logger.Error("collider not added", "node", node, "type", colliderType, "error", err)
		return ColliderTag{}, err
	}

	s.tags[node] = tag
	s.nodes[tag] = node
	s.logger.Debug("collider added", "node", node, "tag", tag)

	return tag, nil
}

// Collider returns the collider of tag
func (s *PhysicsSystem) Collider(tag ColliderTag) (Collider, bool) {
	container, err := s.container(tag.Type)
	if err != nil {
		return nil, false
	}
	return container.Collider(tag)
}

// Tag returns the tag of the collider attached to node
func (s *PhysicsSystem) Tag(node NodeID) (ColliderTag, bool) {
	tag, ok := s.tags[node]
	return tag, ok
}

// Node returns the node tag is attached to, NoNode if unknown
func (s *PhysicsSystem) Node(tag ColliderTag) NodeID {
	if node, ok := s.nodes[tag]; ok {
		return node
	}
	return NoNode
}

// Descriptor returns the persistent description of the collider of tag
func (s *PhysicsSystem) Descriptor(tag ColliderTag) (ColliderDescriptor, bool) {
	collider, ok := s.Collider(tag)
	if !ok {
		return ColliderDescriptor{}, false
	}
	d := collider.Descriptor()
	d.Type = tag.Type
	return d, true
}

// RemoveCollider detaches the collider of tag from its node and from the tree
func (s *PhysicsSystem) RemoveCollider(tag ColliderTag) error {
	container, err := s.container(tag.Type)
	if err != nil {
		return err
	}
	if !container.remove(tag) {
		s.logger.Warn("unknown collider", "tag", tag)
		return fmt.Errorf("%w: %s", ErrUnknownCollider, tag)
	}

	node := s.nodes[tag]
	delete(s.nodes, tag)
	delete(s.tags, node)
	delete(s.lineMeshes, tag)
	s.dropOverlaps(node)
	s.Events.forget(node)

	s.logger.Debug("collider removed", "node", node, "tag", tag)
	return nil
}

// RemoveNode detaches the collider of node, if any
func (s *PhysicsSystem) RemoveNode(node NodeID) error {
	tag, ok := s.tags[node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	return s.RemoveCollider(tag)
}

// dropOverlaps removes node from the adjacency lists until the next Update rebuilds them
func (s *PhysicsSystem) dropOverlaps(node NodeID) {
	for _, other := range s.overlaps[node] {
		s.overlaps[other] = slices.DeleteFunc(s.overlaps[other], func(n NodeID) bool { return n == node })
	}
	delete(s.overlaps, node)
}

// SetLayer changes the layer of tag. The tree leaf picks it on the next Update.
func (s *PhysicsSystem) SetLayer(tag ColliderTag, layer CollisionLayer) error {
	collider, ok := s.Collider(tag)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollider, tag)
	}
	collider.state().setLayer(layer)
	return nil
}

// SetMask changes the layers tag collides with
func (s *PhysicsSystem) SetMask(tag ColliderTag, mask CollisionLayer) error {
	collider, ok := s.Collider(tag)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollider, tag)
	}
	collider.state().mask = mask
	return nil
}

func (s *PhysicsSystem) Layer(tag ColliderTag) (CollisionLayer, bool) {
	collider, ok := s.Collider(tag)
	if !ok {
		return 0, false
	}
	return collider.Layer(), true
}

func (s *PhysicsSystem) Mask(tag ColliderTag) (CollisionLayer, bool) {
	collider, ok := s.Collider(tag)
	if !ok {
		return 0, false
	}
	return collider.Mask(), true
}

// Update refits the tree leaves of every collider whose transform changed since the
// previous tick, or whose layer changed, then rebuilds the area overlaps and sends
// the buffered events.
func (s *PhysicsSystem) Update(transforms, history []actor.Transform) {
	s.updateContainer(s.colliders, transforms, history)
	s.updateContainer(s.areas, transforms, history)

	s.updateAreas()
	s.Events.flush()
}

type placement struct {
	collider  Collider
	transform actor.Transform
}

func (s *PhysicsSystem) updateContainer(container *ColliderContainer, transforms, history []actor.Transform) {
	s.updates = s.updates[:0]
	s.placements = s.placements[:0]

	for _, tag := range container.Tags() {
		node := s.nodes[tag]
		if int(node) >= len(transforms) {
			s.logger.Warn("node outside of the transform cache", "node", node, "tag", tag, "transforms", len(transforms))
			continue
		}

		collider, _ := container.Collider(tag)
		state := collider.state()
		transform := transforms[node]

		moved := int(node) >= len(history) || !transform.Equal(history[node]) || !transform.Equal(collider.Transform())
		if !moved && !state.layerChanged {
			continue
		}

		state.layerChanged = false
		s.updates = append(s.updates, TreeUpdate{Tag: tag, Layer: state.layer})
		s.placements = append(s.placements, placement{collider: collider, transform: transform})
	}

	if len(s.updates) == 0 {
		return
	}

	// mesh placements rebuild their triangle cache
	task(s.cfg.Workers, s.placements, func(p placement) {
		p.collider.Place(p.transform)
	})
	for i, p := range s.placements {
		s.updates[i].AABB = p.collider.AABB(p.transform)
	}

	changed := container.Tree.UpdateBatch(s.updates)
	s.logger.Debug("tree updated", "type", container.Type, "refits", len(s.updates), "reinserted", changed)
}

// updateAreas rebuilds the overlap graph: every area is tested against the colliders and
// the other areas matching its mask.
func (s *PhysicsSystem) updateAreas() {
	for node := range s.overlaps {
		s.overlaps[node] = s.overlaps[node][:0]
	}

	seen := make(map[pairKey]struct{})
	for _, tag := range s.areas.Tags() {
		area, _ := s.areas.Collider(tag)
		aabb := area.AABB(area.Transform())

		s.queryTags = s.colliders.Tree.Query(tag, area.Mask(), aabb, s.queryTags[:0])
		s.queryTags = s.areas.Tree.Query(tag, area.Mask(), aabb, s.queryTags)

		node := s.nodes[tag]
		for _, otherTag := range s.queryTags {
			otherNode := s.nodes[otherTag]
			if otherNode == node {
				continue
			}
			pair := makePairKey(node, otherNode, true)
			if _, ok := seen[pair]; ok {
				continue
			}

			other, _ := s.Collider(otherTag)
			if !s.overlapping(area, other) {
				continue
			}

			seen[pair] = struct{}{}
			s.overlaps[pair.nodeA] = append(s.overlaps[pair.nodeA], pair.nodeB)
			s.overlaps[pair.nodeB] = append(s.overlaps[pair.nodeB], pair.nodeA)
			s.Events.record(pair)
		}
	}

	for node, list := range s.overlaps {
		if len(list) == 0 {
			delete(s.overlaps, node)
			continue
		}
		slices.Sort(list)
	}
}

// overlapping runs the narrow phase between two placed colliders. Meshes are tested
// triangle by triangle.
func (s *PhysicsSystem) overlapping(a, b Collider) bool {
	aabb := a.AABB(a.Transform())
	if !aabb.Intersects(b.AABB(b.Transform())) {
		return false
	}

	piecesA := s.pieces(a, b.AABB(b.Transform()), nil)
	piecesB := s.pieces(b, aabb, nil)
	for _, pa := range piecesA {
		for _, pb := range piecesB {
			if intersects(pa, pb) {
				return true
			}
		}
	}
	return false
}

// pieces returns the convex parts of a placed collider near aabb
func (s *PhysicsSystem) pieces(c Collider, aabb actor.AABB, out []actor.Convex) []actor.Convex {
	mesh, ok := c.(*MeshCollider)
	if !ok {
		return append(out, c.Shape(c.Transform()))
	}

	s.triangles = mesh.CollectTriangles(aabb, s.triangles[:0])
	for _, tri := range s.triangles {
		out = append(out, tri)
	}
	return out
}

// Overlaps returns the nodes overlapping node after the last Update, in increasing order.
// The slice is owned by the system and valid until the next Update.
func (s *PhysicsSystem) Overlaps(node NodeID) []NodeID {
	return s.overlaps[node]
}

// OverlapCount returns the number of nodes having at least one overlap
func (s *PhysicsSystem) OverlapCount() int {
	return len(s.overlaps)
}

// Subscribe adds a listener for area and collision events, sent at the end of Update
func (s *PhysicsSystem) Subscribe(eventType EventType, listener EventListener) {
	s.Events.Subscribe(eventType, listener)
}

// Clear removes every collider and area
func (s *PhysicsSystem) Clear() {
	s.colliders.clear()
	s.areas.clear()
	clear(s.tags)
	clear(s.nodes)
	clear(s.overlaps)
	clear(s.lineMeshes)
	s.Events.reset()
}

// Nodes returns the nodes having a collider, in increasing order
func (s *PhysicsSystem) Nodes() []NodeID {
	return slices.Sorted(maps.Keys(s.tags))
}
