package epa

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Face struct {
	Points   [3]mgl64.Vec3 // Triangle vertices
	Normal   mgl64.Vec3    // Unit normal, pointing out of the polytope
	Distance float64       // Distance from the origin to the face plane
}

// degenerate faces keep their edges in the polytope but are never selected
func (f *Face) degenerate() bool {
	return math.IsInf(f.Distance, 1)
}

// score ranks faces for selection, the lowest wins.
// Faces whose normal follows the direction of travel resolve the penetration by
// pushing the shape back where it came from, their distance is discounted by up to bias.
func (f *Face) score(travelDir mgl64.Vec3, bias float64) float64 {
	alignment := f.Normal.Dot(travelDir)
	if alignment <= 0 {
		return f.Distance
	}
	return f.Distance * (1 - bias*alignment)
}

// newFace creates a Face whose normal points away from inside, a point known to be
// inside the polytope (the opposite vertex or the centroid).
func newFace(p0, p1, p2, inside mgl64.Vec3) Face {
	face := Face{Points: [3]mgl64.Vec3{p0, p1, p2}}

	normal := p1.Sub(p0).Cross(p2.Sub(p0))
	length := normal.Len()
	if length < 1e-12 {
		face.Distance = math.Inf(1)
		return face
	}
	normal = normal.Mul(1.0 / length)

	if normal.Dot(inside.Sub(p0)) > 0 {
		normal = normal.Mul(-1)
	}

	face.Normal = snapNormalToAxis(normal)
	face.Distance = math.Max(p0.Dot(face.Normal), 0)

	return face
}
