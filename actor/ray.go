package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const rayEpsilon = 1e-9

// BoxTriangles indexes Box.Corners into the 12 triangles of the box surface
var BoxTriangles = [12][3]int{
	{0, 4, 6}, {0, 6, 2}, // -x
	{1, 3, 7}, {1, 7, 5}, // +x
	{0, 1, 5}, {0, 5, 4}, // -y
	{2, 6, 7}, {2, 7, 3}, // +y
	{0, 2, 3}, {0, 3, 1}, // -z
	{4, 5, 7}, {4, 7, 6}, // +z
}

// BoxEdges indexes Box.Corners into the 12 edges of the box
var BoxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// RayTriangle intersects a ray with a two-sided triangle (Möller-Trumbore).
// It returns the distance along the normalized direction.
func RayTriangle(origin, direction mgl64.Vec3, tri Triangle) (float64, bool) {
	e1 := tri.B.Sub(tri.A)
	e2 := tri.C.Sub(tri.A)

	p := direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	invDet := 1.0 / det

	s := origin.Sub(tri.A)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(e1)
	v := direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := e2.Dot(q) * invDet
	if t < 0 {
		return 0, false
	}

	return t, true
}

// RaySphere returns the first non negative distance at which a normalized ray enters the sphere.
// A ray starting inside the sphere hits at distance 0.
func RaySphere(origin, direction mgl64.Vec3, sphere Sphere) (float64, bool) {
	oc := origin.Sub(sphere.Center)
	b := oc.Dot(direction)
	c := oc.Dot(oc) - sphere.Radius*sphere.Radius

	if c <= 0 {
		return 0, true
	}
	if b > 0 {
		return 0, false
	}

	h := b*b - c
	if h < 0 {
		return 0, false
	}

	return -b - math.Sqrt(h), true
}

// RayCapsule intersects a normalized ray with a capsule: the cylinder body first, then the end caps
func RayCapsule(origin, direction mgl64.Vec3, capsule Capsule) (float64, bool) {
	ba := capsule.End.Sub(capsule.Start)
	baba := ba.Dot(ba)
	if baba < rayEpsilon {
		return RaySphere(origin, direction, Sphere{Center: capsule.Start, Radius: capsule.Radius})
	}

	oa := origin.Sub(capsule.Start)
	bard := ba.Dot(direction)
	baoa := ba.Dot(oa)
	rdoa := direction.Dot(oa)
	oaoa := oa.Dot(oa)

	a := baba - bard*bard
	b := baba*rdoa - baoa*bard
	c := baba*oaoa - baoa*baoa - capsule.Radius*capsule.Radius*baba

	if a > rayEpsilon {
		h := b*b - a*c
		if h >= 0 {
			t := (-b - math.Sqrt(h)) / a
			y := baoa + t*bard
			if t >= 0 && y > 0 && y < baba {
				return t, true
			}
		}
	}

	best := math.Inf(1)
	for _, center := range [2]mgl64.Vec3{capsule.Start, capsule.End} {
		if t, ok := RaySphere(origin, direction, Sphere{Center: center, Radius: capsule.Radius}); ok && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}

	return best, true
}

// CapsuleNormal returns the outward normal of the capsule surface at point
func CapsuleNormal(point mgl64.Vec3, capsule Capsule) mgl64.Vec3 {
	ba := capsule.End.Sub(capsule.Start)
	h := 0.0
	if l := ba.Dot(ba); l > rayEpsilon {
		h = mgl64.Clamp(point.Sub(capsule.Start).Dot(ba)/l, 0, 1)
	}
	return normalizeOrDefault(point.Sub(capsule.Start.Add(ba.Mul(h))))
}
