// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) algorithm for collision detection.
//
// GJK detects whether two convex shapes overlap by testing if their Minkowski difference
// contains the origin. The algorithm builds a simplex incrementally, converging toward
// the origin in typically 3-6 iterations.
//
// Any pair of shapes works as long as both implement actor.Convex: swept shapes
// (a shape stretched over a movement) are queried exactly like static ones, which is
// how moving colliders are tested against the world without a dedicated CCD pass.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"math"
	"sync"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds the simplex refinement loop
const MaxIterations = 64

// InitialDirection is the first search direction
var InitialDirection = mgl64.Vec3{1, 0, 0}

// Simplex represents a set of 1-4 points in the Minkowski difference space.
// The most recent support point is always Points[Count-1].
// Size progression: 1 point → 2 points (line) → 3 points (triangle) → 4 points (tetrahedron)
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport computes a support point in the Minkowski difference (A - B).
//
// Returns:
//
//	Support point: furthestPoint(A, direction) - furthestPoint(B, -direction)
//
// This is the fundamental query that makes GJK work for any convex shape - shapes only
// need to implement a Support() function, not expose their full geometry.
func MinkowskiSupport(a, b actor.Convex, direction mgl64.Vec3) mgl64.Vec3 {
	supportA := a.Support(direction)
	supportB := b.Support(direction.Mul(-1))
	return supportA.Sub(supportB)
}

// GJK performs collision detection between two convex shapes.
//
// Algorithm overview:
//  1. Start with the search direction {1, 0, 0}
//  2. Get first support point in Minkowski difference
//  3. Iteratively refine simplex toward origin
//  4. If origin is enclosed by a tetrahedron → collision
//  5. If a support point does not pass the origin → no collision
//
// Shapes whose Minkowski difference only touches the origin are reported as separated.
// On collision the simplex always holds 4 points, which EPA uses as its initial polytope.
func GJK(a, b actor.Convex, simplex *Simplex) bool {
	direction := InitialDirection

	simplex.Points[0] = MinkowskiSupport(a, b, direction)
	simplex.Count = 1

	direction = simplex.Points[0].Mul(-1)
	if direction.LenSqr() < 1e-16 {
		// the origin lies on the boundary of the difference
		return false
	}

	for i := 0; i < MaxIterations; i++ {
		newPoint := MinkowskiSupport(a, b, direction)

		// The new point does not pass the origin: the origin cannot be reached.
		if newPoint.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = newPoint
		simplex.Count++

		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	return false
}

// containsOrigin tests if the simplex contains the origin and refines the simplex.
//
// Behavior by simplex dimension:
//   - 2 points (line): keep the closest point or the edge
//   - 3 points (triangle): keep the closest edge or the face
//   - 4 points (tetrahedron): origin inside, or reduce to the face it lies beyond
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// perpendicular returns any vector orthogonal to v
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(v.X()) < 0.57735 {
		return v.Cross(mgl64.Vec3{1, 0, 0})
	}
	return v.Cross(mgl64.Vec3{0, 1, 0})
}

// line handles the line simplex case (2 points: A and B).
// A line never contains the origin for our purpose: we need a full tetrahedron for EPA.
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-12 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	// Origin is closest to point A alone
	if ab.Dot(ao) <= 0 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	abPerp := ab.Cross(ao).Cross(ab)
	if abPerp.LenSqr() < 1e-12 {
		// Origin lies on the segment, any side direction grows the simplex into a triangle
		abPerp = perpendicular(ab)
	}

	*direction = abPerp
	return false
}

// triangle handles the triangle simplex case (3 points: A, B, C).
//
// Degenerate case: If points are collinear (flat triangle), treats as line instead.
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2] // Most recent point
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)

	abc := ab.Cross(ac)

	if abc.LenSqr() < 1e-14 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	// Region AB (edge)
	if ab.Cross(abc).Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	// Region AC (edge)
	if abc.Cross(ac).Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// Below, swap to keep the orientation consistent for the tetrahedron
		simplex.Points[0] = b
		simplex.Points[1] = c
		simplex.Points[2] = a
		*direction = abc.Mul(-1)
	}

	return false
}

// tetrahedron handles the tetrahedron simplex case (4 points: A, B, C, D).
//
// Tests on which side of each face touching A the origin lies. Face normals are oriented
// away from the opposite vertex. The face BCD was already tested by the triangle step.
// An origin exactly on a face counts as enclosed.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3] // Most recent point
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	// Face ABC (opposite to D)
	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}

	// Face ACD (opposite to B)
	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}

	// Face ADB (opposite to C)
	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	// Flat tetrahedron, drop the oldest point
	if math.Abs(ab.Dot(ac.Cross(ad))) < 1e-14 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if abc.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if acd.Dot(ao) > 0 {
		simplex.Points[0] = d
		simplex.Points[1] = c
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	if adb.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = d
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	return true
}
