package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"kneescan/pkg/phantom"
)

func main() {
	output := flag.String("output", "knee.slc", "Output SLC filename")
	coarse := flag.Bool("coarse", false, "Write the low resolution phantom")
	compress := flag.Bool("compress", true, "Run-length encode the slices")
	width := flag.Int("width", 0, "Override the number of voxels along x")
	height := flag.Int("height", 0, "Override the number of voxels along y")
	depth := flag.Int("depth", 0, "Override the number of voxels along z")
	flag.Parse()

	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	opts := phantom.DefaultOptions()
	if *coarse {
		opts = phantom.Coarse()
	}
	if *width > 0 {
		opts.Width = *width
	}
	if *height > 0 {
		opts.Height = *height
	}
	if *depth > 0 {
		opts.Depth = *depth
	}

	if err := phantom.Save(*output, opts, *compress); err != nil {
		log.Fatalf("Failed to write phantom: %v", err)
	}
	fmt.Printf("Phantom %dx%dx%d (spacing %gx%gx%g) saved to: %s\n",
		opts.Width, opts.Height, opts.Depth, opts.Spacing[0], opts.Spacing[1], opts.Spacing[2], *output)
}
