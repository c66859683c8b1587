package isosurface

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/implicit"
)

// boundedSDF samples an SDF3 over a caller-chosen box instead of its own
// bounding box.
type boundedSDF struct {
	sdf.SDF3
	bb sdf.Box3
}

func (b boundedSDF) BoundingBox() sdf.Box3 { return b.bb }

// SphereSurface contours the boundary of s sampled over bounds with samples
// cells along the longest side. Coarse sampling gives a faceted sphere, as
// the reference rendering expects.
func SphereSurface(s implicit.Sphere, bounds models.Bounds, samples int) (*models.Mesh, error) {
	if samples < 2 {
		return nil, fmt.Errorf("sphere needs at least 2 samples, got %d", samples)
	}
	if bounds.IsEmpty() {
		return nil, fmt.Errorf("sphere sampling bounds are empty")
	}

	sphere, err := sdf.Sphere3D(s.Radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	m := sdf.Translate3d(v3.Vec{X: s.Center.X, Y: s.Center.Y, Z: s.Center.Z})
	shape := boundedSDF{
		SDF3: sdf.Transform3D(sphere, m),
		bb: sdf.Box3{
			Min: v3.Vec{X: bounds.Min.X, Y: bounds.Min.Y, Z: bounds.Min.Z},
			Max: v3.Vec{X: bounds.Max.X, Y: bounds.Max.Y, Z: bounds.Max.Z},
		},
	}

	renderer := render.NewMarchingCubesUniform(samples)
	triangles := render.ToTriangles(shape, renderer)

	w := newWelder(bounds.Size())
	for _, tri := range triangles {
		w.add(tri[0], tri[1], tri[2])
	}
	return w.mesh, nil
}

// BoundsFromArray converts [xmin, xmax, ymin, ymax, zmin, zmax] to a box
func BoundsFromArray(b [6]float64) models.Bounds {
	return models.Bounds{
		Min: r3.Vec{X: b[0], Y: b[2], Z: b[4]},
		Max: r3.Vec{X: b[1], Y: b[3], Z: b[5]},
	}
}
