package isosurface

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/implicit"
)

// createSphereVolume fills a size^3 volume with 100 - 10*distance from the
// center, so the 50 level set is a sphere of radius 5
func createSphereVolume(size int) *models.Volume {
	vol := models.NewVolume(size, size, size)
	center := float64(size-1) / 2.0

	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
				vol.Set(x, y, z, math.Max(0, 100-10*dist))
			}
		}
	}
	return vol
}

// TestMarchingCubesSphere verifies the extracted surface of a spherical field
func TestMarchingCubesSphere(t *testing.T) {
	size := 20
	vol := createSphereVolume(size)
	center := float64(size-1) / 2.0

	mesh, err := NewMarchingCubes(vol, 50).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// A sphere with this resolution should have at least 100 triangles
	if mesh.TriangleCount() < 100 {
		t.Errorf("Expected at least 100 triangles for sphere, got %d", mesh.TriangleCount())
	}

	// Every vertex should lie close to the radius 5 level set
	c := r3.Vec{X: center, Y: center, Z: center}
	for i, p := range mesh.Points {
		d := r3.Norm(r3.Sub(p, c))
		if math.Abs(d-5) > 0.5 {
			t.Fatalf("Vertex %d at distance %f from center, want ~5", i, d)
		}
	}

	// Normals should point away from the center
	inward := 0
	for i := range mesh.Triangles {
		tri := mesh.Triangles[i]
		centroid := r3.Scale(1.0/3, r3.Add(mesh.Points[tri[0]], r3.Add(mesh.Points[tri[1]], mesh.Points[tri[2]])))
		if r3.Dot(mesh.TriangleNormal(i), r3.Sub(centroid, c)) < 0 {
			inward++
		}
	}
	if inward > mesh.TriangleCount()/20 {
		t.Errorf("%d of %d triangle normals point inward", inward, mesh.TriangleCount())
	}
}

// TestMarchingCubesWeldsVertices verifies the soup is merged into shared points
func TestMarchingCubesWeldsVertices(t *testing.T) {
	mesh, err := NewMarchingCubes(createSphereVolume(16), 50).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// A closed welded surface has far fewer points than 3 per triangle
	if mesh.PointCount() >= 2*mesh.TriangleCount() {
		t.Errorf("Expected welded mesh, got %d points for %d triangles",
			mesh.PointCount(), mesh.TriangleCount())
	}
	for i, tri := range mesh.Triangles {
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			t.Fatalf("Triangle %d is degenerate: %v", i, tri)
		}
	}
}

// TestMarchingCubesDeterministic verifies repeated runs give identical counts
func TestMarchingCubesDeterministic(t *testing.T) {
	vol := createSphereVolume(18)

	first, err := NewMarchingCubes(vol, 50).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := NewMarchingCubes(vol, 50).Extract()
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if again.PointCount() != first.PointCount() || again.TriangleCount() != first.TriangleCount() {
			t.Errorf("Run %d: got %d points/%d triangles, want %d/%d", i,
				again.PointCount(), again.TriangleCount(), first.PointCount(), first.TriangleCount())
		}
	}
}

// TestMarchingCubesNoMatch verifies a threshold above every voxel gives an empty mesh
func TestMarchingCubesNoMatch(t *testing.T) {
	mesh, err := NewMarchingCubes(createSphereVolume(10), 500).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Errorf("Expected empty mesh, got %d points", mesh.PointCount())
	}
}

// TestMarchingCubesSpacing verifies that voxel spacing scales the surface
func TestMarchingCubesSpacing(t *testing.T) {
	vol := createSphereVolume(16)
	vol.VoxelSize.Z = 2

	mesh, err := NewMarchingCubes(vol, 50).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	size := mesh.Bounds().Size()

	// The sphere becomes an ellipsoid twice as tall as it is wide
	ratio := size.Z / size.X
	if ratio < 1.7 || ratio > 2.3 {
		t.Errorf("Expected z/x extent ratio ~2, got %f (%v)", ratio, size)
	}
}

// TestMarchingCubesTooSmall verifies flat volumes are rejected
func TestMarchingCubesTooSmall(t *testing.T) {
	if _, err := NewMarchingCubes(models.NewVolume(4, 4, 1), 1).Extract(); err == nil {
		t.Error("Expected error for single-slice volume, got nil")
	}
}

// TestSphereSurface verifies the sampled reference sphere
func TestSphereSurface(t *testing.T) {
	s := implicit.Sphere{Center: r3.Vec{X: 80, Y: 20, Z: 120}, Radius: 60}
	bounds := BoundsFromArray([6]float64{0, 160, -60, 100, 40, 200})

	mesh, err := SphereSurface(s, bounds, 40)
	if err != nil {
		t.Fatalf("SphereSurface failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("Expected sphere surface, got empty mesh")
	}

	cell := 160.0 / 40
	for i, p := range mesh.Points {
		d := r3.Norm(r3.Sub(p, s.Center))
		if math.Abs(d-s.Radius) > cell {
			t.Fatalf("Vertex %d at distance %f, want %f within %f", i, d, s.Radius, cell)
		}
	}

	if _, err := SphereSurface(s, bounds, 1); err == nil {
		t.Error("Expected error for a single sample, got nil")
	}
	if _, err := SphereSurface(s, models.EmptyBounds(), 10); err == nil {
		t.Error("Expected error for empty bounds, got nil")
	}
}

// BenchmarkMarchingCubes benchmarks the extraction of a 32^3 sphere
func BenchmarkMarchingCubes(b *testing.B) {
	vol := createSphereVolume(32)

	// Reset timer before the actual benchmark
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := NewMarchingCubes(vol, 50).Extract(); err != nil {
			b.Fatal(err)
		}
	}
}
