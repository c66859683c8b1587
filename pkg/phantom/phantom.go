// Package phantom generates synthetic knee-like CT volumes: two bones
// meeting at a joint inside a cylinder of soft tissue. The volumes stand in
// for scanner data in tests and demos.
package phantom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/slc"
)

// Options controls the generated volume
type Options struct {
	// Width, Height and Depth are the voxel counts
	Width, Height, Depth int

	// Spacing is the voxel size along x, y and z
	Spacing [3]float64

	// SkinValue is the sample value of soft tissue
	SkinValue float64

	// BoneValue is the sample value of bone
	BoneValue float64
}

// DefaultOptions returns a phantom sized so that the default clip sphere
// cuts into the front of the skin near the joint
func DefaultOptions() Options {
	return Options{
		Width:     64,
		Height:    64,
		Depth:     60,
		Spacing:   [3]float64{2.5, 2.5, 3},
		SkinValue: 60,
		BoneValue: 110,
	}
}

// Coarse returns options for a lower resolution phantom covering the same
// world extent as DefaultOptions
func Coarse() Options {
	o := DefaultOptions()
	o.Width, o.Height, o.Depth = 33, 33, 31
	o.Spacing = [3]float64{5, 5, 6}
	return o
}

// Anatomy holds the world geometry derived from Options
type Anatomy struct {
	Center       r3.Vec
	TissueRadius float64
	TissueZ      [2]float64
	BoneRadius   float64
	JointZ       float64
	Gap          float64
	Ramp         float64
}

// Anatomy returns the world geometry of the phantom
func (o Options) Anatomy() Anatomy {
	w := float64(o.Width-1) * o.Spacing[0]
	h := float64(o.Height-1) * o.Spacing[1]
	d := float64(o.Depth-1) * o.Spacing[2]
	side := math.Min(w, h)

	return Anatomy{
		Center:       r3.Vec{X: w / 2, Y: h / 2, Z: d / 2},
		TissueRadius: 0.35 * side,
		TissueZ:      [2]float64{0.04 * d, 0.96 * d},
		BoneRadius:   0.12 * side,
		JointZ:       0.6 * d,
		Gap:          0.03 * d,
		Ramp:         1.5 * math.Max(o.Spacing[0], math.Max(o.Spacing[1], o.Spacing[2])),
	}
}

// Validate checks that the options describe a usable volume
func (o Options) Validate() error {
	if o.Width < 8 || o.Height < 8 || o.Depth < 8 {
		return fmt.Errorf("phantom needs at least 8 voxels per axis, got %dx%dx%d", o.Width, o.Height, o.Depth)
	}
	for i, s := range o.Spacing {
		if s <= 0 {
			return fmt.Errorf("phantom spacing %d must be positive, got %g", i, s)
		}
	}
	if o.SkinValue <= 0 || o.BoneValue <= o.SkinValue || o.BoneValue > 255 {
		return fmt.Errorf("phantom values must satisfy 0 < skin < bone <= 255, got %g and %g", o.SkinValue, o.BoneValue)
	}
	return nil
}

// Generate builds the phantom volume
func Generate(o Options) (*models.Volume, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	vol := models.NewVolume(o.Width, o.Height, o.Depth)
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = o.Spacing[0], o.Spacing[1], o.Spacing[2]

	a := o.Anatomy()
	boneExtra := o.BoneValue - o.SkinValue

	for z := 0; z < o.Depth; z++ {
		for y := 0; y < o.Height; y++ {
			for x := 0; x < o.Width; x++ {
				p := r3.Vec{
					X: float64(x) * o.Spacing[0],
					Y: float64(y) * o.Spacing[1],
					Z: float64(z) * o.Spacing[2],
				}
				v := o.SkinValue*ramp(a.tissueDistance(p), a.Ramp) + boneExtra*ramp(a.boneDistance(p), a.Ramp)
				vol.Set(x, y, z, v)
			}
		}
	}
	return vol, nil
}

// Save generates the phantom and writes it as an SLC file
func Save(path string, o Options, compress bool) error {
	vol, err := Generate(o)
	if err != nil {
		return err
	}
	return slc.Save(path, vol, compress)
}

// tissueDistance approximates the signed distance to a finite cylinder
func (a Anatomy) tissueDistance(p r3.Vec) float64 {
	r := math.Hypot(p.X-a.Center.X, p.Y-a.Center.Y)
	return math.Max(r-a.TissueRadius, math.Max(a.TissueZ[0]-p.Z, p.Z-a.TissueZ[1]))
}

// boneDistance returns the signed distance to the union of femur, condyles
// and tibia
func (a Anatomy) boneDistance(p r3.Vec) float64 {
	axis := func(z float64) r3.Vec { return r3.Vec{X: a.Center.X, Y: a.Center.Y, Z: z} }
	top := a.TissueZ[1] - a.Ramp
	bottom := a.TissueZ[0] + a.Ramp

	femurEnd := a.JointZ + a.Gap/2 + a.BoneRadius
	tibiaEnd := a.JointZ - a.Gap/2 - a.BoneRadius
	d := math.Min(
		capsule(p, axis(femurEnd), axis(top-a.BoneRadius), a.BoneRadius),
		capsule(p, axis(bottom+a.BoneRadius), axis(tibiaEnd), a.BoneRadius),
	)

	// Two condyles flaring out at the end of the femur
	cr := 0.6 * a.BoneRadius
	cz := a.JointZ + a.Gap/2 + cr
	for _, dx := range []float64{-0.55 * a.BoneRadius, 0.55 * a.BoneRadius} {
		c := r3.Vec{X: a.Center.X + dx, Y: a.Center.Y, Z: cz}
		d = math.Min(d, r3.Norm(r3.Sub(p, c))-cr)
	}
	return d
}

// capsule returns the signed distance to the segment ab inflated by r
func capsule(p, a, b r3.Vec, r float64) float64 {
	ab := r3.Sub(b, a)
	t := 0.0
	if l := r3.Dot(ab, ab); l > 0 {
		t = math.Max(0, math.Min(1, r3.Dot(r3.Sub(p, a), ab)/l))
	}
	return r3.Norm(r3.Sub(p, r3.Add(a, r3.Scale(t, ab)))) - r
}

// ramp goes from 1 inside to 0 outside over a band of width w around d = 0
func ramp(d, w float64) float64 {
	return math.Max(0, math.Min(1, 0.5-d/w))
}
