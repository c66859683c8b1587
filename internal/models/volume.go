package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Volume represents a 3D scalar grid loaded from a scanner file
type Volume struct {
	// Data is the 3D volume data as a 1D array in x-fastest order
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}

	// Origin is the world position of voxel (0,0,0)
	Origin r3.Vec
}

// NewVolume allocates a zeroed volume with unit spacing
func NewVolume(width, height, depth int) *Volume {
	v := &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1, 1, 1
	return v
}

// Index returns the offset of voxel (x, y, z) in Data
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the sample at voxel (x, y, z)
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a sample at voxel (x, y, z)
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Extent returns the index extent as [xmin, xmax, ymin, ymax, zmin, zmax]
func (v *Volume) Extent() [6]int {
	return [6]int{0, v.Width - 1, 0, v.Height - 1, 0, v.Depth - 1}
}

// Spacing returns the voxel size as a vector
func (v *Volume) Spacing() r3.Vec {
	return r3.Vec{X: v.VoxelSize.X, Y: v.VoxelSize.Y, Z: v.VoxelSize.Z}
}

// Bounds returns the world-space bounding box of the sample lattice
func (v *Volume) Bounds() Bounds {
	return Bounds{
		Min: v.Origin,
		Max: r3.Vec{
			X: v.Origin.X + float64(v.Width-1)*v.VoxelSize.X,
			Y: v.Origin.Y + float64(v.Height-1)*v.VoxelSize.Y,
			Z: v.Origin.Z + float64(v.Depth-1)*v.VoxelSize.Z,
		},
	}
}

// Sample returns the trilinearly interpolated value at world position p.
// The second result is false when p lies outside the lattice.
func (v *Volume) Sample(p r3.Vec) (float64, bool) {
	fx := (p.X - v.Origin.X) / v.VoxelSize.X
	fy := (p.Y - v.Origin.Y) / v.VoxelSize.Y
	fz := (p.Z - v.Origin.Z) / v.VoxelSize.Z
	if fx < 0 || fy < 0 || fz < 0 ||
		fx > float64(v.Width-1) || fy > float64(v.Height-1) || fz > float64(v.Depth-1) {
		return 0, false
	}

	x0, y0, z0 := int(fx), int(fy), int(fz)
	x1, y1, z1 := min(x0+1, v.Width-1), min(y0+1, v.Height-1), min(z0+1, v.Depth-1)
	tx, ty, tz := fx-float64(x0), fy-float64(y0), fz-float64(z0)

	c00 := v.At(x0, y0, z0)*(1-tx) + v.At(x1, y0, z0)*tx
	c10 := v.At(x0, y1, z0)*(1-tx) + v.At(x1, y1, z0)*tx
	c01 := v.At(x0, y0, z1)*(1-tx) + v.At(x1, y0, z1)*tx
	c11 := v.At(x0, y1, z1)*(1-tx) + v.At(x1, y1, z1)*tx

	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty
	return c0*(1-tz) + c1*tz, true
}
