package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"kneescan/internal/models"
	"kneescan/pkg/cache"
	"kneescan/pkg/config"
	"kneescan/pkg/filters"
	"kneescan/pkg/pipeline"
	"kneescan/pkg/render"
	"kneescan/pkg/stl"
	"kneescan/pkg/visualization"
	"kneescan/pkg/window"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "kneescan.yaml", "YAML configuration file (defaults are used when missing)")
	snapshot := flag.String("snapshot", "", "Render the four views to this PNG or JPEG file and exit")
	exportDir := flag.String("export-dir", "", "Directory to write skin.stl and bone.stl")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save volume slices along all axes")
	slicesDir := flag.String("slices-dir", "volume_slices", "Directory to save extracted slices")
	numCores := flag.Int("cores", 0, "Number of CPU cores for the distance field (default: from config)")
	cachePath := flag.String("cache", "", "Distance field cache file (default: from config)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the -config path and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file.slc>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	input := flag.Arg(0)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *numCores > 0 {
		cfg.Distance.NumCores = *numCores
	}
	if *cachePath != "" {
		cfg.Distance.CachePath = *cachePath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("KNEE CT SURFACE VISUALIZATION")
	fmt.Println("================================")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := cache.NewStore(cfg.Distance.CachePath)
	store.Verbose = cfg.Output.Verbose
	graph, err := pipeline.BuildKnee(cfg, input, store)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	// The volume is loaded before anything is rendered
	fmt.Printf("Loading volume: %s\n", input)
	vol, err := pipeline.Get[*models.Volume](ctx, graph, pipeline.StageVolume)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	fmt.Printf("Volume: %dx%dx%d voxels, spacing %.3gx%.3gx%.3g\n",
		vol.Width, vol.Height, vol.Depth, vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z)

	fmt.Println("Running visualization pipeline...")
	startTime := time.Now()
	if err := graph.MaterializeAll(ctx); err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	fmt.Printf("Pipeline completed in %.2f seconds\n", time.Since(startTime).Seconds())

	skin, err := pipeline.Get[*models.Mesh](ctx, graph, pipeline.StageSkin)
	if err != nil {
		log.Fatalf("Failed to get skin surface: %v", err)
	}
	bone, err := pipeline.Get[*models.Mesh](ctx, graph, pipeline.StageBone)
	if err != nil {
		log.Fatalf("Failed to get bone surface: %v", err)
	}
	fmt.Printf("- Skin: %d points, %d triangles\n", skin.PointCount(), skin.TriangleCount())
	fmt.Printf("- Bone: %d points, %d triangles\n", bone.PointCount(), bone.TriangleCount())

	win, err := pipeline.Window(ctx, graph, cfg)
	if err != nil {
		log.Fatalf("Failed to lay out views: %v", err)
	}
	if len(win.Viewports) == len(pipeline.Variants) {
		field := win.Viewports[len(win.Viewports)-1].Groups[0].Parts[0].Mesh
		if s, ok := filters.Summarize(field); ok {
			fmt.Printf("- Bone to skin distance: min %.2f, max %.2f, mean %.2f (std %.2f)\n",
				s.Min, s.Max, s.Mean, s.StdDev)
			if cfg.Distance.Signed && s.Inside < field.PointCount() {
				fmt.Printf("Warning: %d bone points lie outside the skin\n", field.PointCount()-s.Inside)
			}
		}
	}

	if *exportDir != "" {
		fmt.Printf("\nExporting surfaces to: %s\n", *exportDir)
		for name, mesh := range map[string]*models.Mesh{"skin.stl": skin, "bone.stl": bone} {
			if err := stl.SaveMesh(filepath.Join(*exportDir, name), mesh); err != nil {
				log.Printf("Warning: Failed to export %s: %v", name, err)
			}
		}
	}

	if *extractSlices {
		fmt.Println("\nExtracting volume slices along all axes...")
		viewer := visualization.NewViewer(vol)
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}

	renderer := render.New()
	if *snapshot != "" {
		if err := render.Save(*snapshot, renderer.RenderWindow(win)); err != nil {
			log.Fatalf("Failed to save snapshot: %v", err)
		}
		fmt.Printf("Snapshot saved to: %s\n", *snapshot)
		return
	}

	fmt.Println("\nOpening window (left drag rotates, right drag zooms, middle drag pans, r resets, q quits)")
	if err := window.Run(win, renderer, window.Options{SnapshotPath: "kneescan.png"}); err != nil {
		log.Fatalf("Window failed: %v", err)
	}
}
