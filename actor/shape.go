package actor

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Convex is the capability GJK and EPA need from a shape: its furthest point
// along a direction, and the box enclosing it.
type Convex interface {
	// Support returns the point of the shape maximizing the dot product with direction
	Support(direction mgl64.Vec3) mgl64.Vec3
	AABB() AABB
}

// Sweepable shapes can be stretched over a movement, giving the convex hull
// of the shape at its start and end positions.
type Sweepable interface {
	Convex
	Sweep(translation mgl64.Vec3) Convex
}

// defaultDirection replaces a zero direction
var defaultDirection = mgl64.Vec3{1, 0, 0}

func normalizeOrDefault(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() == 0 {
		return defaultDirection
	}
	return direction.Normalize()
}

// furthest returns the point with the largest projection, the first one on ties
func furthest(direction mgl64.Vec3, points ...mgl64.Vec3) mgl64.Vec3 {
	best := points[0]
	bestDot := best.Dot(direction)
	for _, p := range points[1:] {
		if d := p.Dot(direction); d > bestDot {
			best = p
			bestDot = d
		}
	}
	return best
}

// Triangle is a single mesh face, in world space
type Triangle struct {
	A, B, C mgl64.Vec3
}

// Support returns the vertex with the largest projection. Ties resolve in order a, b, c.
func (t Triangle) Support(direction mgl64.Vec3) mgl64.Vec3 {
	da := t.A.Dot(direction)
	db := t.B.Dot(direction)
	dc := t.C.Dot(direction)

	if da >= db && da >= dc {
		return t.A
	}
	if db >= dc {
		return t.B
	}
	return t.C
}

func (t Triangle) AABB() AABB {
	return AABBFromPoints(t.A, t.B, t.C)
}

// Normal returns the unit normal following the a, b, c winding, or zero for a degenerate triangle
func (t Triangle) Normal() mgl64.Vec3 {
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A))
	if n.LenSqr() < 1e-20 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

func (t Triangle) Sweep(translation mgl64.Vec3) Convex {
	return SweptTriangle{Triangle: t, Translation: translation}
}

// SweptTriangle is the hull of a triangle and its translated copy
type SweptTriangle struct {
	Triangle    Triangle
	Translation mgl64.Vec3
}

func (s SweptTriangle) Support(direction mgl64.Vec3) mgl64.Vec3 {
	start := s.Triangle.Support(direction)
	end := start.Add(s.Translation)
	if end.Dot(direction) > start.Dot(direction) {
		return end
	}
	return start
}

func (s SweptTriangle) AABB() AABB {
	return s.Triangle.AABB().Sweep(s.Translation)
}

type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func (s Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return s.Center.Add(normalizeOrDefault(direction).Mul(s.Radius))
}

func (s Sphere) AABB() AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

func (s Sphere) Sweep(translation mgl64.Vec3) Convex {
	return SweptSphere{Start: s.Center, End: s.Center.Add(translation), Radius: s.Radius}
}

// SweptSphere covers a sphere moving from Start to End
type SweptSphere struct {
	Start, End mgl64.Vec3
	Radius     float64
}

func (s SweptSphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	center := furthest(direction, s.Start, s.End)
	return center.Add(normalizeOrDefault(direction).Mul(s.Radius))
}

func (s SweptSphere) AABB() AABB {
	return Sphere{Center: s.Start, Radius: s.Radius}.AABB().
		Union(Sphere{Center: s.End, Radius: s.Radius}.AABB())
}

// Capsule is the set of points within Radius of the segment Start-End
type Capsule struct {
	Start, End mgl64.Vec3
	Radius     float64
}

func (c Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	center := furthest(direction, c.Start, c.End)
	return center.Add(normalizeOrDefault(direction).Mul(c.Radius))
}

func (c Capsule) AABB() AABB {
	return Sphere{Center: c.Start, Radius: c.Radius}.AABB().
		Union(Sphere{Center: c.End, Radius: c.Radius}.AABB())
}

func (c Capsule) Sweep(translation mgl64.Vec3) Convex {
	return SweptCapsule{Capsule: c, Translation: translation}
}

// SweptCapsule is the hull of a capsule and its translated copy
type SweptCapsule struct {
	Capsule     Capsule
	Translation mgl64.Vec3
}

func (s SweptCapsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	c := s.Capsule
	center := furthest(direction, c.Start, c.End, c.Start.Add(s.Translation), c.End.Add(s.Translation))
	return center.Add(normalizeOrDefault(direction).Mul(c.Radius))
}

func (s SweptCapsule) AABB() AABB {
	return s.Capsule.AABB().Sweep(s.Translation)
}

// ConvexHull is a discrete set of points, the shape being their convex hull
type ConvexHull struct {
	Vertices []mgl64.Vec3
}

func (h ConvexHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if len(h.Vertices) == 0 {
		return mgl64.Vec3{}
	}
	return furthest(direction, h.Vertices...)
}

func (h ConvexHull) AABB() AABB {
	return AABBFromPoints(h.Vertices...)
}

func (h ConvexHull) Sweep(translation mgl64.Vec3) Convex {
	return SweptHull{Hull: h, Translation: translation}
}

// SweptHull is the hull of a ConvexHull and its translated copy
type SweptHull struct {
	Hull        ConvexHull
	Translation mgl64.Vec3
}

func (s SweptHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	start := s.Hull.Support(direction)
	end := start.Add(s.Translation)
	if end.Dot(direction) > start.Dot(direction) {
		return end
	}
	return start
}

func (s SweptHull) AABB() AABB {
	return s.Hull.AABB().Sweep(s.Translation)
}

// Box is an oriented box described in local space by its full Dimensions around Center
type Box struct {
	Dimensions mgl64.Vec3
	Center     mgl64.Vec3
}

// Corners returns the 8 local space corners
func (b Box) Corners() [8]mgl64.Vec3 {
	h := b.Dimensions.Mul(0.5)
	c := b.Center

	return [8]mgl64.Vec3{
		{c[0] - h[0], c[1] - h[1], c[2] - h[2]},
		{c[0] + h[0], c[1] - h[1], c[2] - h[2]},
		{c[0] - h[0], c[1] + h[1], c[2] - h[2]},
		{c[0] + h[0], c[1] + h[1], c[2] - h[2]},
		{c[0] - h[0], c[1] - h[1], c[2] + h[2]},
		{c[0] + h[0], c[1] - h[1], c[2] + h[2]},
		{c[0] - h[0], c[1] + h[1], c[2] + h[2]},
		{c[0] + h[0], c[1] + h[1], c[2] + h[2]},
	}
}

// Hull transforms the corners into world space
func (b Box) Hull(transform Transform) ConvexHull {
	corners := b.Corners()
	m := transform.Matrix()

	vertices := make([]mgl64.Vec3, len(corners))
	for i, corner := range corners {
		vertices[i] = mgl64.TransformCoordinate(corner, m)
	}

	return ConvexHull{Vertices: vertices}
}
