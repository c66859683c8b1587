// Package isosurface extracts polygonal surfaces from volumes and implicit
// shapes using the marching cubes renderer of sdfx.
package isosurface

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
)

// Compile-time interface check.
var _ sdf.SDF3 = (*volumeField)(nil)

// volumeField presents a volume as a signed field whose zero set is the
// iso-surface. Samples above the iso-value are inside (negative).
type volumeField struct {
	vol     *models.Volume
	iso     float64
	outside float64
	bb      sdf.Box3
}

func newVolumeField(vol *models.Volume, iso float64) *volumeField {
	b := vol.Bounds()
	return &volumeField{
		vol:     vol,
		iso:     iso,
		outside: math.Abs(iso) + 1,
		bb: sdf.Box3{
			Min: v3.Vec{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
			Max: v3.Vec{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
		},
	}
}

// Evaluate returns iso - value, and a positive constant off the lattice so
// surfaces touching the volume boundary are closed.
func (f *volumeField) Evaluate(p v3.Vec) float64 {
	value, ok := f.vol.Sample(r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	if !ok {
		return f.outside
	}
	return f.iso - value
}

// BoundingBox returns the world bounds of the volume
func (f *volumeField) BoundingBox() sdf.Box3 {
	return f.bb
}

// MarchingCubes extracts the iso-surface of a volume at a fixed threshold
type MarchingCubes struct {
	vol   *models.Volume
	iso   float64
	cells int
}

// NewMarchingCubes creates an extractor for vol at the iso-value iso.
// The sampling pitch follows the finest voxel spacing.
func NewMarchingCubes(vol *models.Volume, iso float64) *MarchingCubes {
	size := vol.Bounds().Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	pitch := math.Min(vol.VoxelSize.X, math.Min(vol.VoxelSize.Y, vol.VoxelSize.Z))

	cells := 1
	if pitch > 0 && longest > 0 {
		cells = int(math.Ceil(longest/pitch - 1e-9))
	}
	if cells < 1 {
		cells = 1
	}
	return &MarchingCubes{vol: vol, iso: iso, cells: cells}
}

// SetCells overrides the number of sampling cells along the longest axis
func (mc *MarchingCubes) SetCells(cells int) {
	if cells > 0 {
		mc.cells = cells
	}
}

// Extract runs marching cubes and returns the welded surface mesh.
// A threshold that matches no voxel yields an empty mesh.
func (mc *MarchingCubes) Extract() (*models.Mesh, error) {
	if mc.vol.Width < 2 || mc.vol.Height < 2 || mc.vol.Depth < 2 {
		return nil, fmt.Errorf("volume %dx%dx%d is too small to contour",
			mc.vol.Width, mc.vol.Height, mc.vol.Depth)
	}

	field := newVolumeField(mc.vol, mc.iso)
	renderer := render.NewMarchingCubesUniform(mc.cells)
	triangles := render.ToTriangles(field, renderer)

	w := newWelder(mc.vol.Bounds().Size())
	for _, tri := range triangles {
		w.add(tri[0], tri[1], tri[2])
	}
	return w.mesh, nil
}

// welder merges the triangle soup into an indexed mesh. Vertices computed
// from both ends of a shared cube edge differ in the last bits, so points
// are keyed on a fine quantization of their coordinates.
type welder struct {
	mesh  *models.Mesh
	index map[[3]int64]int
	quant float64
}

func newWelder(extent r3.Vec) *welder {
	scale := math.Max(extent.X, math.Max(extent.Y, extent.Z))
	if scale <= 0 {
		scale = 1
	}
	return &welder{
		mesh:  &models.Mesh{},
		index: make(map[[3]int64]int),
		quant: scale * 1e-9,
	}
}

func (w *welder) vertex(p v3.Vec) int {
	key := [3]int64{
		int64(math.Round(p.X / w.quant)),
		int64(math.Round(p.Y / w.quant)),
		int64(math.Round(p.Z / w.quant)),
	}
	if idx, ok := w.index[key]; ok {
		return idx
	}
	idx := len(w.mesh.Points)
	w.mesh.Points = append(w.mesh.Points, r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	w.index[key] = idx
	return idx
}

func (w *welder) add(a, b, c v3.Vec) {
	ia, ib, ic := w.vertex(a), w.vertex(b), w.vertex(c)
	// Drop triangles collapsed by welding
	if ia == ib || ib == ic || ia == ic {
		return
	}
	w.mesh.Triangles = append(w.mesh.Triangles, [3]int{ia, ib, ic})
}
