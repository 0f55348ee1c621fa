package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// parallelEpsilon below which a ray direction component is treated as axis-parallel
const parallelEpsilon = 1e-5

// AABB represents an axis-aligned bounding box.
// Min is lower or equal to Max on every axis.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// AABBFromPoints returns the smallest box enclosing all the points
func AABBFromPoints(points ...mgl64.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.Extend(p)
	}

	return box
}

// Extend grows the box so it contains the point
func (a AABB) Extend(p mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], p[0]), math.Min(a.Min[1], p[1]), math.Min(a.Min[2], p[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], p[0]), math.Max(a.Max[1], p[1]), math.Max(a.Max[2], p[2])},
	}
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Intersects checks if two AABBs overlap.
// Boxes that only share a face, an edge or a corner do not intersect.
func (a AABB) Intersects(other AABB) bool {
	return a.Max.X() > other.Min.X() && a.Min.X() < other.Max.X() &&
		a.Max.Y() > other.Min.Y() && a.Min.Y() < other.Max.Y() &&
		a.Max.Z() > other.Min.Z() && a.Min.Z() < other.Max.Z()
}

// Contains reports whether other lies entirely inside a, bounds included
func (a AABB) Contains(other AABB) bool {
	return a.Min.X() <= other.Min.X() && a.Min.Y() <= other.Min.Y() && a.Min.Z() <= other.Min.Z() &&
		a.Max.X() >= other.Max.X() && a.Max.Y() >= other.Max.Y() && a.Max.Z() >= other.Max.Z()
}

// Union returns the componentwise min/max of both boxes
func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], other.Min[0]), math.Min(a.Min[1], other.Min[1]), math.Min(a.Min[2], other.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], other.Max[0]), math.Max(a.Max[1], other.Max[1]), math.Max(a.Max[2], other.Max[2])},
	}
}

// Area returns the total surface area, used as the tree cost heuristic
func (a AABB) Area() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

func (a AABB) Volume() float64 {
	d := a.Max.Sub(a.Min)
	return d[0] * d[1] * d[2]
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half size on each axis
func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Expand grows the box by margin on every side
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Translate moves the box without changing its size
func (a AABB) Translate(v mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(v), Max: a.Max.Add(v)}
}

// Sweep returns the box covering a at its current place and after translation
func (a AABB) Sweep(translation mgl64.Vec3) AABB {
	return a.Union(a.Translate(translation))
}

// IntersectRay tests the ray origin + t*direction, t in [0, maxDistance], with the slab method.
// direction does not need to be normalized, maxDistance is expressed in units of direction.
func (a AABB) IntersectRay(origin, direction mgl64.Vec3, maxDistance float64) bool {
	tMin := 0.0
	tMax := maxDistance

	for i := 0; i < 3; i++ {
		if math.Abs(direction[i]) < parallelEpsilon {
			// parallel to the slab, the origin must already be inside it
			if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
				return false
			}
			continue
		}

		inv := 1.0 / direction[i]
		t1 := (a.Min[i] - origin[i]) * inv
		t2 := (a.Max[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}

	return true
}
