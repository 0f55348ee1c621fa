package gjk

import (
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Test helper functions

func createSphere(position mgl64.Vec3, radius float64) actor.Sphere {
	return actor.Sphere{Center: position, Radius: radius}
}

func createBox(position mgl64.Vec3, dimensions mgl64.Vec3) actor.ConvexHull {
	transform := actor.NewTransform()
	transform.Position = position
	return actor.Box{Dimensions: dimensions}.Hull(transform)
}

// MinkowskiSupport tests

func TestMinkowskiSupport(t *testing.T) {
	t.Run("two separated spheres along x-axis", func(t *testing.T) {
		a := createSphere(mgl64.Vec3{0, 0, 0}, 1.0)
		b := createSphere(mgl64.Vec3{3, 0, 0}, 1.0)

		support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})

		// max(A.x) - min(B.x) = 1 - 2 = -1
		if support.X() != -1.0 {
			t.Errorf("Expected support.X = -1, got %v", support.X())
		}
	})

	t.Run("two overlapping spheres", func(t *testing.T) {
		a := createSphere(mgl64.Vec3{0, 0, 0}, 1.0)
		b := createSphere(mgl64.Vec3{1.5, 0, 0}, 1.0)

		support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})

		// max(A.x) - min(B.x) = 1 - 0.5 = 0.5
		if support.X() != 0.5 {
			t.Errorf("Expected support.X = 0.5, got %v", support.X())
		}
	})

	t.Run("box against sphere", func(t *testing.T) {
		a := createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})
		b := createSphere(mgl64.Vec3{0, 5, 0}, 1.0)

		support := MinkowskiSupport(a, b, mgl64.Vec3{0, 1, 0})

		// max(A.y) - min(B.y) = 1 - 4 = -3
		if support.Y() != -3.0 {
			t.Errorf("Expected support.Y = -3, got %v", support.Y())
		}
	})
}

// GJK tests

func TestGJK(t *testing.T) {
	tests := []struct {
		name     string
		a, b     actor.Convex
		expected bool
	}{
		{
			name:     "separated spheres",
			a:        createSphere(mgl64.Vec3{0, 0, 0}, 1),
			b:        createSphere(mgl64.Vec3{3, 0, 0}, 1),
			expected: false,
		},
		{
			name:     "overlapping spheres on the x axis",
			a:        createSphere(mgl64.Vec3{0, 0, 0}, 1),
			b:        createSphere(mgl64.Vec3{1.5, 0, 0}, 1),
			expected: true,
		},
		{
			name:     "overlapping spheres off axis",
			a:        createSphere(mgl64.Vec3{0, 0, 0}, 1),
			b:        createSphere(mgl64.Vec3{0.7, 0.9, -0.3}, 0.8),
			expected: true,
		},
		{
			name:     "concentric spheres",
			a:        createSphere(mgl64.Vec3{2, 2, 2}, 1),
			b:        createSphere(mgl64.Vec3{2, 2, 2}, 0.5),
			expected: true,
		},
		{
			name:     "separated spheres on a diagonal",
			a:        createSphere(mgl64.Vec3{0, 0, 0}, 1),
			b:        createSphere(mgl64.Vec3{1.5, 1.5, 1.5}, 1),
			expected: false,
		},
		{
			name:     "overlapping boxes",
			a:        createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}),
			b:        createBox(mgl64.Vec3{0.8, 0.3, 0.1}, mgl64.Vec3{1, 1, 1}),
			expected: true,
		},
		{
			name:     "separated boxes",
			a:        createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}),
			b:        createBox(mgl64.Vec3{0, 1.5, 0}, mgl64.Vec3{1, 1, 1}),
			expected: false,
		},
		{
			name:     "boxes touching on a face",
			a:        createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}),
			b:        createBox(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 1}),
			expected: false,
		},
		{
			name:     "sphere inside a large box",
			a:        createSphere(mgl64.Vec3{0.2, 0.1, 0}, 0.5),
			b:        createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{4, 4, 4}),
			expected: true,
		},
		{
			name: "sphere resting into a floor triangle",
			a:    createSphere(mgl64.Vec3{0, 0.4, 0}, 0.5),
			b: actor.Triangle{
				A: mgl64.Vec3{-2, 0, -2},
				B: mgl64.Vec3{0, 0, 2},
				C: mgl64.Vec3{2, 0, -2},
			},
			expected: true,
		},
		{
			name: "sphere above a floor triangle",
			a:    createSphere(mgl64.Vec3{0, 0.6, 0}, 0.5),
			b: actor.Triangle{
				A: mgl64.Vec3{-2, 0, -2},
				B: mgl64.Vec3{0, 0, 2},
				C: mgl64.Vec3{2, 0, -2},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := &Simplex{}
			got := GJK(tt.a, tt.b, simplex)
			if got != tt.expected {
				t.Fatalf("GJK = %v, want %v", got, tt.expected)
			}
			if got && simplex.Count != 4 {
				t.Errorf("a collision must leave a tetrahedron, got %d points", simplex.Count)
			}

			// the test is symmetric
			if reversed := GJK(tt.b, tt.a, &Simplex{}); reversed != tt.expected {
				t.Errorf("GJK(b, a) = %v, want %v", reversed, tt.expected)
			}
		})
	}
}

func TestGJKSweptShapes(t *testing.T) {
	wall := createBox(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{4, 4, 0.2})
	sphere := createSphere(mgl64.Vec3{0, 0, 0}, 0.5)

	t.Run("static sphere does not reach the wall", func(t *testing.T) {
		if GJK(sphere, wall, &Simplex{}) {
			t.Errorf("expected no collision")
		}
	})

	t.Run("movement through the wall is caught", func(t *testing.T) {
		swept := sphere.Sweep(mgl64.Vec3{0, 0, 10})
		if !GJK(swept, wall, &Simplex{}) {
			t.Errorf("expected the swept sphere to hit the wall")
		}
	})

	t.Run("movement parallel to the wall", func(t *testing.T) {
		swept := sphere.Sweep(mgl64.Vec3{3, 0, 0})
		if GJK(swept, wall, &Simplex{}) {
			t.Errorf("expected no collision")
		}
	})

	t.Run("swept box", func(t *testing.T) {
		box := createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		if !GJK(box.Sweep(mgl64.Vec3{0, 0, 6}), wall, &Simplex{}) {
			t.Errorf("expected the swept box to hit the wall")
		}
	})
}

func TestSimplexPool(t *testing.T) {
	simplex := SimplexPool.Get().(*Simplex)
	simplex.Count = 3
	simplex.Reset()
	if simplex.Count != 0 {
		t.Errorf("Reset should empty the simplex")
	}
	SimplexPool.Put(simplex)
}
