package scene

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/cache"
	"kneescan/pkg/colormap"
	"kneescan/pkg/config"
	"kneescan/pkg/filters"
	"kneescan/pkg/implicit"
	"kneescan/pkg/isosurface"
)

// Surface colors
var (
	SkinColor    = [3]float64{0.95, 0.64, 0.64}
	BoneColor    = [3]float64{0.9, 0.9, 0.9}
	SphereColor  = [3]float64{1, 1, 1}
	OutlineColor = [3]float64{0, 0, 0}
)

// Group names, also shown as viewport labels
const (
	TubeName            = "Banded rings"
	SemiTransparentName = "Semi-transparent skin"
	NormalName          = "Sphere clip"
	ColorBonesName      = "Bone to skin distance"
	OutlineName         = "Outline"
)

// CameraFromConfig builds the initial camera shared by all viewports
func CameraFromConfig(cfg *config.Config) *Camera {
	c := NewCamera()
	c.Position = vec(cfg.Camera.Position)
	c.Elevation(cfg.Camera.Elevation)
	c.Azimuth(cfg.Camera.Azimuth)
	c.SetRoll(cfg.Camera.Roll)
	c.FocalPoint = vec(cfg.Camera.FocalPoint)
	return c
}

// ClipSphere returns the implicit sphere used to open the skin
func ClipSphere(cfg *config.Config) implicit.Sphere {
	return implicit.Sphere{Center: vec(cfg.ClipSphere.Center), Radius: cfg.ClipSphere.Radius}
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func boneActor(bone *models.Mesh) *Actor {
	a := NewActor("bone", bone)
	a.Property.Color = BoneColor
	return a
}

// Outline returns the black bounding box of the volume
func Outline(vol *models.Volume) *Group {
	a := NewActor("outline", filters.Outline(vol.Bounds()))
	a.Property.Color = OutlineColor

	g := NewGroup(OutlineName)
	g.AddPart(a)
	return g
}

// Tube cuts the skin with horizontal planes about every cfg.Bands.Spacing
// units, thickens the cut curves into tubes and shows them with the bone.
// The number of planes follows the volume's z extent and spacing. An empty
// skin gives an empty tube actor.
func Tube(vol *models.Volume, bone, skin *models.Mesh, cfg *config.Config) (*Group, error) {
	cut := &models.Mesh{}
	if !skin.IsEmpty() {
		b := skin.Bounds()
		center := b.Center()

		plane := implicit.Plane{
			Origin: r3.Vec{X: center.X, Y: center.Y, Z: b.Min.Z},
			Normal: r3.Vec{Z: 1},
		}
		high := plane.Evaluate(r3.Vec{X: center.X, Y: center.Y, Z: b.Max.Z})

		n := filters.BandCount(vol.Extent()[5], vol.VoxelSize.Z, cfg.Bands.Spacing)
		cut = filters.Cut(skin, plane, filters.GenerateValues(n, 0, high))
	}

	tubes, err := filters.Tube(cut, cfg.Bands.TubeRadius, cfg.Bands.TubeSides)
	if err != nil {
		return nil, fmt.Errorf("failed to build skin tubes: %w", err)
	}

	skinActor := NewActor("skin tubes", tubes)
	skinActor.Property.Color = SkinColor

	g := NewGroup(TubeName)
	g.AddPart(skinActor)
	g.AddPart(boneActor(bone))
	return g, nil
}

// SemiTransparent clips the skin with the configured sphere and draws its
// back faces opaque and its front faces translucent over the bone.
func SemiTransparent(bone, skin *models.Mesh, cfg *config.Config) (*Group, error) {
	clipped := filters.Clip(skin, ClipSphere(cfg), cfg.ClipSphere.Value)

	back := NewActor("skin back", clipped)
	back.Property.Color = SkinColor
	back.Property.FrontfaceCulling = true

	front := NewActor("skin front", clipped)
	front.Property.Color = SkinColor
	front.Property.BackfaceCulling = true
	front.Property.Opacity = cfg.FrontOpacity

	g := NewGroup(SemiTransparentName)
	g.AddPart(back)
	g.AddPart(front)
	g.AddPart(boneActor(bone))
	return g, nil
}

// Normal clips the skin with the configured sphere and shows the sphere
// boundary itself faintly.
func Normal(bone, skin *models.Mesh, cfg *config.Config) (*Group, error) {
	sphere := ClipSphere(cfg)
	clipped := filters.Clip(skin, sphere, cfg.ClipSphere.Value)

	surface, err := isosurface.SphereSurface(sphere,
		isosurface.BoundsFromArray(cfg.ReferenceSphere.Bounds), cfg.ReferenceSphere.Samples)
	if err != nil {
		return nil, fmt.Errorf("failed to sample reference sphere: %w", err)
	}

	skinActor := NewActor("skin", clipped)
	skinActor.Property.Color = SkinColor

	sphereActor := NewActor("sphere", surface)
	sphereActor.Property.Color = SphereColor
	sphereActor.Property.Opacity = cfg.ReferenceSphere.Opacity

	g := NewGroup(NormalName)
	g.AddPart(skinActor)
	g.AddPart(boneActor(bone))
	g.AddPart(sphereActor)
	return g, nil
}

// ColorBones colors the bone by its distance to the skin, blue for far and
// red for close. The field is read from store when it matches the inputs and
// computed and saved otherwise. Without a bone or skin surface there is no
// field and the bone is shown plain.
func ColorBones(ctx context.Context, bone, skin *models.Mesh, store *cache.Store, opts filters.DistanceOptions) (*Group, error) {
	if bone.IsEmpty() || skin.IsEmpty() || skin.TriangleCount() == 0 {
		g := NewGroup(ColorBonesName)
		g.AddPart(boneActor(bone))
		return g, nil
	}

	key := cache.DistanceKey(bone, skin, opts.Neighbors, opts.Signed)
	field, _, err := store.GetOrCompute(key, func() (*models.Mesh, error) {
		return filters.Distance(ctx, bone, skin, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute bone distances: %w", err)
	}

	lo, hi, ok := field.ScalarRange()
	if !ok {
		return nil, fmt.Errorf("distance field has no scalars")
	}
	lut := colormap.BlueToRed()
	if err := lut.Build(); err != nil {
		return nil, err
	}

	a := NewActor("bone distance", field)
	a.Property.Color = BoneColor
	a.Property.ScalarVisibility = true
	a.Property.LUT = lut
	a.Property.ScalarRange = [2]float64{lo, hi}

	g := NewGroup(ColorBonesName)
	g.AddPart(a)
	return g, nil
}

// DistanceOptions converts the distance settings of cfg
func DistanceOptions(cfg *config.Config) filters.DistanceOptions {
	return filters.DistanceOptions{
		Neighbors: cfg.Distance.Neighbors,
		Signed:    cfg.Distance.Signed,
		NumCores:  cfg.Distance.NumCores,
	}
}
