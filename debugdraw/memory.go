// Package debugdraw holds renderer sinks for the collider wireframes of a plume.PhysicsSystem.
package debugdraw

import (
	"slices"

	"github.com/akmonengine/plume"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// LineMesh is an uploaded wireframe, two vertices per segment
type LineMesh struct {
	Lines   []mgl64.Vec3
	Version int
}

// MemoryRenderer keeps the uploaded line meshes in memory. The viewer draws from it,
// tests inspect it.
type MemoryRenderer struct {
	meshes map[plume.MeshID]*LineMesh
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{meshes: make(map[plume.MeshID]*LineMesh)}
}

func makeMeshID() plume.MeshID {
	return plume.MeshID(uuid.NewString())
}

func (r *MemoryRenderer) UploadLineMesh(lines []mgl64.Vec3) plume.MeshID {
	id := makeMeshID()
	r.meshes[id] = &LineMesh{Lines: slices.Clone(lines)}
	return id
}

// UpdateLineMesh replaces the lines of id. Unknown ids are ignored.
func (r *MemoryRenderer) UpdateLineMesh(id plume.MeshID, lines []mgl64.Vec3) {
	mesh, ok := r.meshes[id]
	if !ok {
		return
	}
	mesh.Lines = slices.Clone(lines)
	mesh.Version++
}

func (r *MemoryRenderer) Mesh(id plume.MeshID) (*LineMesh, bool) {
	mesh, ok := r.meshes[id]
	return mesh, ok
}

func (r *MemoryRenderer) Len() int {
	return len(r.meshes)
}

// Segment is a world space line
type Segment struct {
	Start, End mgl64.Vec3
	Tag        plume.ColliderTag
	Selected   bool
}

// Segments places every line of data in world space
func (r *MemoryRenderer) Segments(data plume.ColliderRenderData) []Segment {
	var segments []Segment
	for _, line := range data.Lines {
		mesh, ok := r.meshes[line.MeshID]
		if !ok {
			continue
		}
		for i := 0; i+1 < len(mesh.Lines); i += 2 {
			segments = append(segments, Segment{
				Start:    mgl64.TransformCoordinate(mesh.Lines[i], line.Transform),
				End:      mgl64.TransformCoordinate(mesh.Lines[i+1], line.Transform),
				Tag:      line.Tag,
				Selected: line.Selected,
			})
		}
	}
	return segments
}
