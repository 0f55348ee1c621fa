package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position, a rotation and a scale in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Matrix returns the model matrix, translation * rotation * scale
func (t Transform) Matrix() mgl64.Mat4 {
	translation := mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translation.Mul4(t.Rotation.Normalize().Mat4()).Mul4(scale)
}

// Apply transforms a local point into world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	scaled := mgl64.Vec3{point[0] * t.Scale[0], point[1] * t.Scale[1], point[2] * t.Scale[2]}
	return t.Rotation.Normalize().Rotate(scaled).Add(t.Position)
}

// MaxScale returns the largest scale component, used to scale radii
func (t Transform) MaxScale() float64 {
	return max(t.Scale[0], t.Scale[1], t.Scale[2])
}

// Equal reports an exact match, used to detect moved nodes between two ticks
func (t Transform) Equal(other Transform) bool {
	return t.Position == other.Position &&
		t.Rotation.W == other.Rotation.W && t.Rotation.V == other.Rotation.V &&
		t.Scale == other.Scale
}
