package plume

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// StorageMagic prefixes every saved collider set ("PLME")
const StorageMagic uint32 = 0x504C4D45

// ColliderDescriptor is the persistent description of a collider: its shape in local
// space, its type and its filtering. Only the field matching Shape is meaningful.
type ColliderDescriptor struct {
	Shape ColliderShape
	Type  ColliderType
	Layer CollisionLayer
	Mask  CollisionLayer

	Vertices []mgl64.Vec3
	Sphere   actor.Sphere
	Box      actor.Box
	Capsule  actor.Capsule
}

func (c *MeshCollider) Descriptor() ColliderDescriptor {
	return ColliderDescriptor{Shape: ShapeMesh, Layer: c.layer, Mask: c.mask, Vertices: slices.Clone(c.vertices)}
}

func (c *SphereCollider) Descriptor() ColliderDescriptor {
	return ColliderDescriptor{Shape: ShapeSphere, Layer: c.layer, Mask: c.mask, Sphere: c.base}
}

func (c *BoxCollider) Descriptor() ColliderDescriptor {
	return ColliderDescriptor{Shape: ShapeBox, Layer: c.layer, Mask: c.mask, Box: c.base}
}

func (c *CapsuleCollider) Descriptor() ColliderDescriptor {
	return ColliderDescriptor{Shape: ShapeCapsule, Layer: c.layer, Mask: c.mask, Capsule: c.base}
}

// newCollider builds the collider described by d, placed at transform
func newCollider(d ColliderDescriptor, transform actor.Transform) (Collider, error) {
	var collider Collider
	switch d.Shape {
	case ShapeMesh:
		mesh, err := NewMeshCollider(d.Vertices, transform)
		if err != nil {
			return nil, err
		}
		collider = mesh
	case ShapeSphere:
		collider = NewSphereCollider(d.Sphere, transform)
	case ShapeBox:
		collider = NewBoxCollider(d.Box, transform)
	case ShapeCapsule:
		collider = NewCapsuleCollider(d.Capsule, transform)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidShape, d.Shape)
	}

	s := collider.state()
	s.layer = d.Layer
	s.mask = d.Mask
	return collider, nil
}

// storageHeader starts the stream written by Save
type storageHeader struct {
	Magic uint32
	Count uint32
}

// storageEntry precedes the shape payload of each collider
type storageEntry struct {
	Node  int32
	Shape uint8
	Type  uint8
	Layer uint16
	Mask  uint16
}

// Save writes every collider and area with its node, little endian.
// Colliders come first, each container ordered by shape then id.
func (s *PhysicsSystem) Save(w io.Writer) error {
	tags := append(s.colliders.Tags(), s.areas.Tags()...)

	header := storageHeader{Magic: StorageMagic, Count: uint32(len(tags))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tag := range tags {
		d, _ := s.Descriptor(tag)
		entry := storageEntry{
			Node:  int32(s.nodes[tag]),
			Shape: uint8(d.Shape),
			Type:  uint8(d.Type),
			Layer: uint16(d.Layer),
			Mask:  uint16(d.Mask),
		}
		if err := binary.Write(w, binary.LittleEndian, entry); err != nil {
			return fmt.Errorf("writing %s: %w", tag, err)
		}
		if err := writePayload(w, d); err != nil {
			return fmt.Errorf("writing %s: %w", tag, err)
		}
	}

	return nil
}

func writePayload(w io.Writer, d ColliderDescriptor) error {
	switch d.Shape {
	case ShapeMesh:
		if err := binary.Write(w, binary.LittleEndian, uint32(len(d.Vertices))); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, d.Vertices)
	case ShapeSphere:
		return binary.Write(w, binary.LittleEndian, d.Sphere)
	case ShapeBox:
		return binary.Write(w, binary.LittleEndian, d.Box)
	case ShapeCapsule:
		return binary.Write(w, binary.LittleEndian, d.Capsule)
	}
	return fmt.Errorf("%w: %s", ErrInvalidShape, d.Shape)
}

// Load replaces every collider with the ones read from r. Each node is placed with
// its entry in transforms; the tree and all lookups are rebuilt.
func (s *PhysicsSystem) Load(r io.Reader, transforms []actor.Transform) error {
	var header storageHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if header.Magic != StorageMagic {
		return fmt.Errorf("%w: %#x", ErrBadMagic, header.Magic)
	}

	s.Clear()

	for i := range header.Count {
		var entry storageEntry
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}

		d := ColliderDescriptor{
			Shape: ColliderShape(entry.Shape),
			Type:  ColliderType(entry.Type),
			Layer: CollisionLayer(entry.Layer),
			Mask:  CollisionLayer(entry.Mask),
		}
		if err := readPayload(r, &d); err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}

		node := NodeID(entry.Node)
		if node < 0 || int(node) >= len(transforms) {
			return fmt.Errorf("%w: entry %d references node %d of %d", ErrUnknownNode, i, node, len(transforms))
		}
		if _, err := s.AddCollider(node, d, transforms[node]); err != nil {
			return fmt.Errorf("loading entry %d: %w", i, err)
		}
	}

	s.logger.Debug("colliders loaded", "count", header.Count)
	return nil
}

func readPayload(r io.Reader, d *ColliderDescriptor) error {
	switch d.Shape {
	case ShapeMesh:
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return err
		}
		if count%3 != 0 || count/3 > MaxTriangles {
			return fmt.Errorf("%w: %d vertices", ErrInvalidTriangles, count)
		}
		d.Vertices = make([]mgl64.Vec3, count)
		return binary.Read(r, binary.LittleEndian, d.Vertices)
	case ShapeSphere:
		return binary.Read(r, binary.LittleEndian, &d.Sphere)
	case ShapeBox:
		return binary.Read(r, binary.LittleEndian, &d.Box)
	case ShapeCapsule:
		return binary.Read(r, binary.LittleEndian, &d.Capsule)
	}
	return fmt.Errorf("%w: %s", ErrInvalidShape, d.Shape)
}
