package plume

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const circleSegments = 64

// MeshID identifies a line mesh uploaded to a Renderer
type MeshID string

// Renderer receives the wireframes of the colliders, as line lists in local space
type Renderer interface {
	UploadLineMesh(lines []mgl64.Vec3) MeshID
	UpdateLineMesh(id MeshID, lines []mgl64.Vec3)
}

// LineData is one collider wireframe to draw with Transform
type LineData struct {
	MeshID    MeshID
	Transform mgl64.Mat4
	Tag       ColliderTag
	Node      NodeID
	Selected  bool
}

type ColliderRenderData struct {
	Lines []LineData
}

// CollectRenderData uploads the wireframe of every collider and area whose shape changed,
// and returns what to draw this frame. When selected is a node with a collider, only that
// collider is returned.
func (s *PhysicsSystem) CollectRenderData(renderer Renderer, transforms []actor.Transform, selected NodeID) ColliderRenderData {
	var data ColliderRenderData

	if tag, ok := s.tags[selected]; ok {
		if line, ok := s.lineData(renderer, tag, transforms); ok {
			line.Selected = true
			data.Lines = append(data.Lines, line)
		}
		return data
	}

	for _, container := range [2]*ColliderContainer{s.colliders, s.areas} {
		for _, tag := range container.Tags() {
			if line, ok := s.lineData(renderer, tag, transforms); ok {
				data.Lines = append(data.Lines, line)
			}
		}
	}

	return data
}

func (s *PhysicsSystem) lineData(renderer Renderer, tag ColliderTag, transforms []actor.Transform) (LineData, bool) {
	node := s.nodes[tag]
	if int(node) >= len(transforms) {
		s.logger.Warn("node outside of the transform cache", "node", node, "tag", tag, "transforms", len(transforms))
		return LineData{}, false
	}
	collider, ok := s.Collider(tag)
	if !ok {
		return LineData{}, false
	}

	state := collider.state()
	id, uploaded := s.lineMeshes[tag]
	switch {
	case !uploaded:
		id = renderer.UploadLineMesh(wireframe(collider))
		s.lineMeshes[tag] = id
	case state.changed:
		renderer.UpdateLineMesh(id, wireframe(collider))
	}
	state.changed = false

	return LineData{MeshID: id, Transform: transforms[node].Matrix(), Tag: tag, Node: node}, true
}

// wireframe returns the local space line list of a collider, two vertices per segment
func wireframe(collider Collider) []mgl64.Vec3 {
	switch c := collider.(type) {
	case *MeshCollider:
		return meshLines(c.Vertices())
	case *SphereCollider:
		return sphereLines(c.BaseShape())
	case *BoxCollider:
		return boxLines(c.BaseShape())
	case *CapsuleCollider:
		return capsuleLines(c.BaseShape())
	}
	return nil
}

func meshLines(vertices []mgl64.Vec3) []mgl64.Vec3 {
	lines := make([]mgl64.Vec3, 0, 2*len(vertices))
	for i := 0; i+2 < len(vertices); i += 3 {
		a, b, c := vertices[i], vertices[i+1], vertices[i+2]
		lines = append(lines, a, b, b, c, c, a)
	}
	return lines
}

func boxLines(box actor.Box) []mgl64.Vec3 {
	corners := box.Corners()
	lines := make([]mgl64.Vec3, 0, 2*len(actor.BoxEdges))
	for _, edge := range actor.BoxEdges {
		lines = append(lines, corners[edge[0]], corners[edge[1]])
	}
	return lines
}

// arc appends segments of the circle of center and radius spanned by u and v,
// from angle from to angle to
func arc(lines []mgl64.Vec3, center, u, v mgl64.Vec3, radius, from, to float64, segments int) []mgl64.Vec3 {
	point := func(angle float64) mgl64.Vec3 {
		return center.Add(u.Mul(radius * math.Cos(angle))).Add(v.Mul(radius * math.Sin(angle)))
	}

	step := (to - from) / float64(segments)
	for i := range segments {
		lines = append(lines, point(from+float64(i)*step), point(from+float64(i+1)*step))
	}
	return lines
}

// sphereLines draws the three great circles
func sphereLines(sphere actor.Sphere) []mgl64.Vec3 {
	x, y, z := mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}

	lines := make([]mgl64.Vec3, 0, 3*2*circleSegments)
	lines = arc(lines, sphere.Center, x, y, sphere.Radius, 0, 2*math.Pi, circleSegments)
	lines = arc(lines, sphere.Center, y, z, sphere.Radius, 0, 2*math.Pi, circleSegments)
	lines = arc(lines, sphere.Center, z, x, sphere.Radius, 0, 2*math.Pi, circleSegments)
	return lines
}

// capsuleLines draws a ring at each end, 4 side lines and the half circles of both caps
// in the two planes containing the axis
func capsuleLines(capsule actor.Capsule) []mgl64.Vec3 {
	axis := capsule.End.Sub(capsule.Start)
	if axis.LenSqr() < 1e-12 {
		return sphereLines(actor.Sphere{Center: capsule.Start, Radius: capsule.Radius})
	}
	axis = axis.Normalize()

	u := axis.Cross(mgl64.Vec3{1, 0, 0})
	if u.LenSqr() < 1e-6 {
		u = axis.Cross(mgl64.Vec3{0, 0, 1})
	}
	u = u.Normalize()
	v := axis.Cross(u)
	r := capsule.Radius

	lines := make([]mgl64.Vec3, 0, 2*(2*circleSegments+4+2*circleSegments))
	lines = arc(lines, capsule.Start, u, v, r, 0, 2*math.Pi, circleSegments)
	lines = arc(lines, capsule.End, u, v, r, 0, 2*math.Pi, circleSegments)

	for _, side := range [4]mgl64.Vec3{u, v, u.Mul(-1), v.Mul(-1)} {
		lines = append(lines, capsule.Start.Add(side.Mul(r)), capsule.End.Add(side.Mul(r)))
	}

	half := circleSegments / 2
	for _, side := range [2]mgl64.Vec3{u, v} {
		lines = arc(lines, capsule.End, side, axis, r, 0, math.Pi, half)
		lines = arc(lines, capsule.Start, side, axis.Mul(-1), r, 0, math.Pi, half)
	}

	return lines
}
