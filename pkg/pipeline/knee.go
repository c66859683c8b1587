package pipeline

import (
	"context"
	"fmt"

	"kneescan/internal/models"
	"kneescan/pkg/cache"
	"kneescan/pkg/config"
	"kneescan/pkg/isosurface"
	"kneescan/pkg/scene"
	"kneescan/pkg/slc"
)

// Stage names of the knee graph
const (
	StageVolume          = "volume"
	StageSkin            = "skin"
	StageBone            = "bone"
	StageOutline         = "outline"
	StageTube            = "tube"
	StageSemiTransparent = "semiTransparent"
	StageNormal          = "normal"
	StageColorBones      = "colorBones"
)

// Variants lists the displayed stages in viewport order
var Variants = []string{StageTube, StageSemiTransparent, StageNormal, StageColorBones}

// BuildKnee wires the knee visualization: the volume at path is loaded,
// skin and bone are extracted once and shared by the four variants.
func BuildKnee(cfg *config.Config, path string, store *cache.Store) (*Graph, error) {
	stages := []Stage{
		{Name: StageVolume, Run: func(ctx context.Context, _ []any) (any, error) {
			return slc.Load(path)
		}},
		{Name: StageSkin, Inputs: []string{StageVolume}, Run: surface(cfg.SkinThreshold)},
		{Name: StageBone, Inputs: []string{StageVolume}, Run: surface(cfg.BoneThreshold)},
		{Name: StageOutline, Inputs: []string{StageVolume}, Run: func(ctx context.Context, in []any) (any, error) {
			vol, err := input[*models.Volume](in, 0)
			if err != nil {
				return nil, err
			}
			return scene.Outline(vol), nil
		}},
		{Name: StageTube, Inputs: []string{StageVolume, StageBone, StageSkin}, Run: func(ctx context.Context, in []any) (any, error) {
			vol, err := input[*models.Volume](in, 0)
			if err != nil {
				return nil, err
			}
			bone, skin, err := boneAndSkin(in[1:])
			if err != nil {
				return nil, err
			}
			return scene.Tube(vol, bone, skin, cfg)
		}},
		{Name: StageSemiTransparent, Inputs: []string{StageBone, StageSkin}, Run: func(ctx context.Context, in []any) (any, error) {
			bone, skin, err := boneAndSkin(in)
			if err != nil {
				return nil, err
			}
			return scene.SemiTransparent(bone, skin, cfg)
		}},
		{Name: StageNormal, Inputs: []string{StageBone, StageSkin}, Run: func(ctx context.Context, in []any) (any, error) {
			bone, skin, err := boneAndSkin(in)
			if err != nil {
				return nil, err
			}
			return scene.Normal(bone, skin, cfg)
		}},
		{Name: StageColorBones, Inputs: []string{StageBone, StageSkin}, Run: func(ctx context.Context, in []any) (any, error) {
			bone, skin, err := boneAndSkin(in)
			if err != nil {
				return nil, err
			}
			return scene.ColorBones(ctx, bone, skin, store, scene.DistanceOptions(cfg))
		}},
	}

	g := New()
	g.Verbose = cfg.Output.Verbose
	for _, s := range stages {
		if err := g.Add(s.Name, s.Inputs, s.Run); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func surface(iso float64) RunFunc {
	return func(ctx context.Context, in []any) (any, error) {
		vol, err := input[*models.Volume](in, 0)
		if err != nil {
			return nil, err
		}
		mesh, err := isosurface.NewMarchingCubes(vol, iso).Extract()
		if err != nil {
			return nil, err
		}
		if mesh.IsEmpty() {
			fmt.Printf("Warning: no surface at iso-value %g\n", iso)
		}
		return mesh, nil
	}
}

func boneAndSkin(in []any) (*models.Mesh, *models.Mesh, error) {
	bone, err := input[*models.Mesh](in, 0)
	if err != nil {
		return nil, nil, err
	}
	skin, err := input[*models.Mesh](in, 1)
	if err != nil {
		return nil, nil, err
	}
	return bone, skin, nil
}

// Window materializes the variants and the outline and tiles them into
// a window sharing the configured camera.
func Window(ctx context.Context, g *Graph, cfg *config.Config) (*scene.Window, error) {
	groups := make([]*scene.Group, 0, len(Variants))
	for _, name := range Variants {
		grp, err := Get[*scene.Group](ctx, g, name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, grp)
	}
	outline, err := Get[*scene.Group](ctx, g, StageOutline)
	if err != nil {
		return nil, err
	}

	return scene.Layout(groups, []*scene.Group{outline}, scene.CameraFromConfig(cfg), scene.LayoutOptions{
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		Title:       cfg.Window.Title,
		Cols:        cfg.ViewportLayout.Cols,
		Backgrounds: cfg.ViewportLayout.Backgrounds,
	})
}
