package filters

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/implicit"
)

// TestClipPlane verifies that clipping keeps only the positive half space
func TestClipPlane(t *testing.T) {
	sphere := uvSphere(r3.Vec{}, 10, 16, 32)
	plane := implicit.Plane{Normal: r3.Vec{X: 1}}

	clipped := Clip(sphere, plane, 0)
	if clipped.IsEmpty() {
		t.Fatal("Expected half sphere, got empty mesh")
	}
	if clipped.TriangleCount() >= sphere.TriangleCount() {
		t.Errorf("Expected fewer triangles than %d, got %d", sphere.TriangleCount(), clipped.TriangleCount())
	}
	for i, p := range clipped.Points {
		if p.X < -1e-9 {
			t.Fatalf("Point %d at x=%f is on the clipped side", i, p.X)
		}
	}
	b := clipped.Bounds()
	if math.Abs(b.Max.X-10) > 1e-9 || math.Abs(b.Min.X) > 1e-9 {
		t.Errorf("Unexpected x range [%f, %f]", b.Min.X, b.Max.X)
	}
}

// TestClipValue verifies the clip value shifts the kept region
func TestClipValue(t *testing.T) {
	sphere := uvSphere(r3.Vec{}, 10, 12, 24)
	plane := implicit.Plane{Normal: r3.Vec{Z: 1}}

	if all := Clip(sphere, plane, -100); all.TriangleCount() != sphere.TriangleCount() {
		t.Errorf("Expected all %d triangles kept, got %d", sphere.TriangleCount(), all.TriangleCount())
	}
	if none := Clip(sphere, plane, 100); !none.IsEmpty() {
		t.Errorf("Expected empty mesh, got %d points", none.PointCount())
	}

	top := Clip(sphere, plane, 5)
	for i, p := range top.Points {
		if p.Z < 5-1e-9 {
			t.Fatalf("Point %d at z=%f is below the clip value", i, p.Z)
		}
	}
}

// TestClipSphereFunction verifies clipping with an implicit sphere keeps the outside
func TestClipSphereFunction(t *testing.T) {
	mesh := uvSphere(r3.Vec{}, 10, 16, 32)
	fn := implicit.Sphere{Center: r3.Vec{X: 10}, Radius: 6}

	clipped := Clip(mesh, fn, 1)
	if clipped.IsEmpty() || clipped.TriangleCount() >= mesh.TriangleCount() {
		t.Fatalf("Expected a partially clipped mesh, got %d triangles", clipped.TriangleCount())
	}
	// Boundary points sit on chords of the quadratic level set, so they may
	// dip below the clip value by up to a quarter of the squared edge length
	for i, p := range clipped.Points {
		if v := fn.Evaluate(p); v < 1-4 {
			t.Fatalf("Point %d has function value %f, want >= 1", i, v)
		}
	}
}

// TestClipInterpolatesScalars verifies scalars follow the new boundary points
func TestClipInterpolatesScalars(t *testing.T) {
	mesh := uvSphere(r3.Vec{}, 10, 10, 20)
	mesh.ScalarName = "Height"
	for _, p := range mesh.Points {
		mesh.Scalars = append(mesh.Scalars, p.Z)
	}

	clipped := Clip(mesh, implicit.Plane{Normal: r3.Vec{Z: 1}}, 2.5)
	if len(clipped.Scalars) != clipped.PointCount() {
		t.Fatalf("Expected %d scalars, got %d", clipped.PointCount(), len(clipped.Scalars))
	}
	if clipped.ScalarName != "Height" {
		t.Errorf("Expected scalar name Height, got %q", clipped.ScalarName)
	}
	// A linear field is reproduced exactly by edge interpolation
	for i, p := range clipped.Points {
		if math.Abs(clipped.Scalars[i]-p.Z) > 1e-9 {
			t.Fatalf("Scalar %d = %f, want %f", i, clipped.Scalars[i], p.Z)
		}
	}
}

// TestClipPreservesWinding verifies split triangles keep the outward orientation
func TestClipPreservesWinding(t *testing.T) {
	mesh := uvSphere(r3.Vec{}, 10, 16, 32)
	clipped := Clip(mesh, implicit.Plane{Normal: r3.Vec{X: 1, Y: 1, Z: 1}}, 0.3)

	for i, tri := range clipped.Triangles {
		n := clipped.TriangleNormal(i)
		if n == (r3.Vec{}) {
			continue
		}
		centroid := r3.Scale(1.0/3, r3.Add(clipped.Points[tri[0]], r3.Add(clipped.Points[tri[1]], clipped.Points[tri[2]])))
		if r3.Dot(n, centroid) < 0 {
			t.Fatalf("Triangle %d faces inward", i)
		}
	}
}

func TestClipEmpty(t *testing.T) {
	if out := Clip(&models.Mesh{}, implicit.Plane{Normal: r3.Vec{Z: 1}}, 0); !out.IsEmpty() {
		t.Errorf("Expected empty output, got %d points", out.PointCount())
	}
}

// TestClipVertexOnLevel verifies a kept vertex lying exactly on the level is
// reused as the boundary point and produces no zero-area triangles
func TestClipVertexOnLevel(t *testing.T) {
	mesh := &models.Mesh{
		Points: []r3.Vec{
			// Only the tip touches x=1
			{X: 1}, {Y: 1}, {Y: -1},
			// One kept, one on the level, one dropped
			{X: 2}, {X: 1, Y: 1}, {},
		},
		Triangles: [][3]int{{0, 1, 2}, {3, 4, 5}},
	}

	clipped := Clip(mesh, implicit.Plane{Normal: r3.Vec{X: 1}}, 1)
	if clipped.TriangleCount() != 1 {
		t.Fatalf("Expected 1 triangle, got %d", clipped.TriangleCount())
	}
	if clipped.PointCount() != 3 {
		t.Errorf("Expected 3 points, got %d: %v", clipped.PointCount(), clipped.Points)
	}

	seen := make(map[r3.Vec]bool)
	for i, p := range clipped.Points {
		if seen[p] {
			t.Errorf("Point %d at %v is duplicated", i, p)
		}
		seen[p] = true
	}
	for i := range clipped.Triangles {
		if r3.Norm(r3.Cross(
			r3.Sub(clipped.Points[clipped.Triangles[i][1]], clipped.Points[clipped.Triangles[i][0]]),
			r3.Sub(clipped.Points[clipped.Triangles[i][2]], clipped.Points[clipped.Triangles[i][0]]),
		)) == 0 {
			t.Errorf("Triangle %d has zero area", i)
		}
	}
	if !seen[r3.Vec{X: 1}] || !seen[r3.Vec{X: 1, Y: 1}] || !seen[r3.Vec{X: 2}] {
		t.Errorf("Unexpected boundary points %v", clipped.Points)
	}
}
