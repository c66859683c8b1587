// Package stl writes triangle meshes as binary STL files through the sdfx
// STL writer.
package stl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"kneescan/internal/models"
)

// FromMesh converts the triangles of an indexed mesh to sdfx triangles.
// Lines and scalars are ignored.
func FromMesh(mesh *models.Mesh) []*sdf.Triangle3 {
	if mesh.IsEmpty() {
		return nil
	}

	triangles := make([]*sdf.Triangle3, 0, mesh.TriangleCount())
	for _, t := range mesh.Triangles {
		var tri sdf.Triangle3
		for k, idx := range t {
			p := mesh.Points[idx]
			tri[k] = v3.Vec{X: p.X, Y: p.Y, Z: p.Z}
		}
		triangles = append(triangles, &tri)
	}
	return triangles
}

// SaveMesh writes the triangles of mesh to filename, creating its directory
func SaveMesh(filename string, mesh *models.Mesh) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %v", err)
		}
	}

	if err := render.SaveSTL(filename, FromMesh(mesh)); err != nil {
		return fmt.Errorf("failed to write STL file %s: %v", filename, err)
	}
	return nil
}
