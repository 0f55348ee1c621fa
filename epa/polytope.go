package epa

import (
	"fmt"
	"math"
	"sync"

	"github.com/akmonengine/plume/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Polytope holds the expanding hull of the Minkowski difference.
// Buffers are reused between solves through polytopePool.
type Polytope struct {
	faces []Face

	// distinct vertices, used for the centroid and to detect repeated support points
	vertices []mgl64.Vec3

	// horizon edges, normalized so A < B lexicographically
	edges []EdgeEntry

	visibleIndices []int
}

// EdgeEntry represents an edge with occurrence counting for horizon detection.
// An edge is on the horizon if it appears exactly once (count == 1).
type EdgeEntry struct {
	A, B  mgl64.Vec3
	Count int
}

var polytopePool = sync.Pool{
	New: func() interface{} {
		return &Polytope{
			faces:          make([]Face, 0, polytopeInitialCapacity),
			vertices:       make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			edges:          make([]EdgeEntry, 0, polytopeInitialCapacity),
			visibleIndices: make([]int, 0, polytopeInitialCapacity),
		}
	},
}

// Reset prepares the polytope for reuse
func (p *Polytope) Reset() {
	p.faces = p.faces[:0]
	p.vertices = p.vertices[:0]
	p.edges = p.edges[:0]
	p.visibleIndices = p.visibleIndices[:0]
}

// BuildInitialFaces creates the 4 faces of the GJK tetrahedron, each oriented away from its opposite vertex
func (p *Polytope) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("invalid simplex count: %d (expected 4)", simplex.Count)
	}

	p0, p1, p2, p3 := simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3]

	p.faces = append(p.faces,
		newFace(p0, p1, p2, p3),
		newFace(p0, p2, p3, p1),
		newFace(p0, p3, p1, p2),
		newFace(p1, p3, p2, p0),
	)
	for _, v := range simplex.Points {
		p.addVertex(v)
	}

	if p.ClosestFaceIndex(mgl64.Vec3{}, 0) < 0 {
		return fmt.Errorf("degenerate initial polytope")
	}

	return nil
}

// ClosestFaceIndex returns the index of the best scored face, -1 if none can be selected
func (p *Polytope) ClosestFaceIndex(travelDir mgl64.Vec3, bias float64) int {
	closestIndex := -1
	best := math.Inf(1)

	for i := range p.faces {
		face := &p.faces[i]
		if face.degenerate() {
			continue
		}
		if s := face.score(travelDir, bias); s < best {
			best = s
			closestIndex = i
		}
	}

	return closestIndex
}

// HasVertex reports whether point is already a vertex of the polytope
func (p *Polytope) HasVertex(point mgl64.Vec3) bool {
	for _, v := range p.vertices {
		if vec3Equal(v, point) {
			return true
		}
	}
	return false
}

func (p *Polytope) addVertex(point mgl64.Vec3) {
	if !p.HasVertex(point) {
		p.vertices = append(p.vertices, point)
	}
}

func (p *Polytope) centroid() mgl64.Vec3 {
	sum := mgl64.Vec3{}
	for _, v := range p.vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1.0 / float64(len(p.vertices)))
}

// findVisibleFaces populates visibleIndices with faces the support point lies in front of
func (p *Polytope) findVisibleFaces(support mgl64.Vec3) {
	p.visibleIndices = p.visibleIndices[:0]

	for i := range p.faces {
		face := &p.faces[i]
		if face.degenerate() {
			continue
		}
		if support.Sub(face.Points[0]).Dot(face.Normal) > 0 {
			p.visibleIndices = append(p.visibleIndices, i)
		}
	}
}

// findHorizonEdges counts the edges of the visible faces. Edges shared by two visible
// faces are interior to the hole, the ones seen once form its horizon.
func (p *Polytope) findHorizonEdges() {
	p.edges = p.edges[:0]

	for _, faceIdx := range p.visibleIndices {
		face := &p.faces[faceIdx]

		edges := [3][2]mgl64.Vec3{
			{face.Points[0], face.Points[1]},
			{face.Points[1], face.Points[2]},
			{face.Points[2], face.Points[0]},
		}

		for _, edge := range edges {
			edgeA, edgeB := edge[0], edge[1]
			if compareVec3(edgeA, edgeB) > 0 {
				edgeA, edgeB = edgeB, edgeA
			}

			if edgeIdx := p.findEdgeIndex(edgeA, edgeB); edgeIdx >= 0 {
				p.edges[edgeIdx].Count++
			} else {
				p.edges = append(p.edges, EdgeEntry{A: edgeA, B: edgeB, Count: 1})
			}
		}
	}
}

// findEdgeIndex performs linear search, edge counts stay small
func (p *Polytope) findEdgeIndex(edgeA, edgeB mgl64.Vec3) int {
	for i := range p.edges {
		if vec3Equal(p.edges[i].A, edgeA) && vec3Equal(p.edges[i].B, edgeB) {
			return i
		}
	}
	return -1
}

// removeVisibleFaces removes the visible faces, highest index first so swap-with-last stays valid
func (p *Polytope) removeVisibleFaces() {
	indices := p.visibleIndices
	for i := 0; i < len(indices)-1; i++ {
		for j := i + 1; j < len(indices); j++ {
			if indices[i] < indices[j] {
				indices[i], indices[j] = indices[j], indices[i]
			}
		}
	}

	for _, idx := range indices {
		last := len(p.faces) - 1
		p.faces[idx] = p.faces[last]
		p.faces = p.faces[:last]
	}
}

// AddPoint expands the polytope with a support point:
//  1. Finds the faces visible from the support point
//  2. Identifies the horizon edges of the visible region
//  3. Removes visible faces
//  4. Connects each horizon edge to the support point
func (p *Polytope) AddPoint(support mgl64.Vec3, closestIndex int) {
	p.findVisibleFaces(support)
	if len(p.visibleIndices) == 0 {
		p.visibleIndices = append(p.visibleIndices, closestIndex)
	}

	p.findHorizonEdges()
	p.removeVisibleFaces()

	p.addVertex(support)
	centroid := p.centroid()

	for i := range p.edges {
		edge := &p.edges[i]
		if edge.Count != 1 {
			continue
		}
		p.faces = append(p.faces, newFace(edge.A, edge.B, support, centroid))
	}
}

// compareVec3 orders vectors lexicographically
func compareVec3(a, b mgl64.Vec3) int {
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// vec3Equal performs exact equality, support points are reproduced bit for bit
func vec3Equal(a, b mgl64.Vec3) bool {
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2]
}
