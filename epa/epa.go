// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects a collision to determine:
//   - Penetration depth (how far shapes overlap)
//   - Separation normal (direction that pushes the first shape out of the second)
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the
// boundary of the Minkowski difference, looking for the face that best separates the shapes.
//
// Unlike textbook EPA, face selection is biased toward the direction of travel of the
// first shape: when the first shape is swept over a movement from start to dest,
// faces that push it back along its path are preferred over faces of similar distance
// that would push it sideways or through the obstacle. With a zero travel the
// selection is the usual minimum distance.
//
// The expansion is capped at a handful of iterations: movement resolution runs EPA
// again on the next iteration, so a coarse but stable estimate is preferred over
// an exact but slow one.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultMaxIterations limits polytope expansion
	DefaultMaxIterations = 5

	// DefaultTravelBias is the largest discount applied to faces facing the direction of travel
	DefaultTravelBias = 0.25

	// DefaultEpsilon is added to the penetration depth so that a resolved shape ends up
	// strictly separated instead of touching
	DefaultEpsilon = 0.001

	// ConvergenceTolerance defines when EPA has converged: the new support point
	// improves the face distance by less than this threshold.
	ConvergenceTolerance = 1e-6

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	NormalSnapThreshold = 1e-8

	polytopeInitialCapacity = 16
)

var ErrDegenerate = errors.New("epa: degenerate polytope")

// Penetration describes how to separate the first shape from the second:
// translating it by Normal * Depth resolves the overlap.
type Penetration struct {
	Normal mgl64.Vec3
	Depth  float64
}

// Solver holds the EPA tuning
type Solver struct {
	MaxIterations int
	TravelBias    float64
	Epsilon       float64
}

func DefaultSolver() Solver {
	return Solver{
		MaxIterations: DefaultMaxIterations,
		TravelBias:    DefaultTravelBias,
		Epsilon:       DefaultEpsilon,
	}
}

// EPA runs the default solver
func EPA(a, b actor.Convex, simplex *gjk.Simplex, start, dest mgl64.Vec3) (Penetration, error) {
	return DefaultSolver().Solve(a, b, simplex, start, dest)
}

// Solve computes the penetration of a into b.
//
// Algorithm overview:
//  1. Start with simplex from GJK (tetrahedron containing origin)
//  2. Build initial polytope faces from simplex
//  3. Select the face with the best score (distance biased by the travel start → dest)
//  4. Get support point in face normal direction
//  5. If it does not improve the face, or is already a vertex → done
//  6. Otherwise, expand polytope by adding support point
//  7. Repeat from step 3, at most MaxIterations times
//
// The returned normal is the negated polytope normal: it points from b toward a,
// and the depth includes the solver epsilon.
func (s Solver) Solve(a, b actor.Convex, simplex *gjk.Simplex, start, dest mgl64.Vec3) (Penetration, error) {
	polytope := polytopePool.Get().(*Polytope)
	defer polytopePool.Put(polytope)
	polytope.Reset()

	if err := polytope.BuildInitialFaces(simplex); err != nil {
		return Penetration{}, errors.Join(ErrDegenerate, err)
	}

	travelDir := dest.Sub(start)
	if travelDir.LenSqr() > 1e-12 {
		travelDir = travelDir.Normalize()
	} else {
		travelDir = mgl64.Vec3{}
	}

	for i := 0; i < s.MaxIterations; i++ {
		closestIndex := polytope.ClosestFaceIndex(travelDir, s.TravelBias)
		if closestIndex < 0 {
			return Penetration{}, ErrDegenerate
		}
		closest := polytope.faces[closestIndex]

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		if support.Dot(closest.Normal)-closest.Distance < ConvergenceTolerance || polytope.HasVertex(support) {
			break
		}

		polytope.AddPoint(support, closestIndex)
	}

	closestIndex := polytope.ClosestFaceIndex(travelDir, s.TravelBias)
	if closestIndex < 0 {
		return Penetration{}, ErrDegenerate
	}
	face := polytope.faces[closestIndex]

	return Penetration{
		Normal: face.Normal.Mul(-1),
		Depth:  face.Distance + s.Epsilon,
	}, nil
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero.
//
// This improves numerical stability for axis-aligned collisions (box on ground)
// by preventing tiny floating-point errors from causing jitter in tangent directions.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	x, y, z := normal[0], normal[1], normal[2]

	if math.Abs(x) < NormalSnapThreshold {
		x = 0
	}
	if math.Abs(y) < NormalSnapThreshold {
		y = 0
	}
	if math.Abs(z) < NormalSnapThreshold {
		z = 0
	}

	clamped := mgl64.Vec3{x, y, z}
	length := clamped.Len()
	if length < 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}

	return clamped.Mul(1.0 / length)
}
