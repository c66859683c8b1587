package visualization

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
)

// createGradientVolume fills a volume with x + 10y + 40z so every voxel
// value identifies its position
func createGradientVolume(width, height, depth int) *models.Volume {
	vol := models.NewVolume(width, height, depth)
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = 0.5, 0.5, 2
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(x, y, z, float64(x+10*y+40*z))
			}
		}
	}
	return vol
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 8, 4, 5
	viewer := NewViewer(createGradientVolume(width, height, depth))

	tests := []struct {
		axis         string
		pos          int
		wantW, wantH int
		px, py       int
		wantValue    uint8
	}{
		{axis: "z", pos: 2, wantW: width, wantH: height, px: 3, py: 1, wantValue: 3 + 10 + 80},
		{axis: "Z", pos: 4, wantW: width, wantH: height, px: 7, py: 3, wantValue: 7 + 30 + 160},
		{axis: "x", pos: 5, wantW: depth, wantH: height, px: 2, py: 3, wantValue: 5 + 30 + 80},
		{axis: "y", pos: 1, wantW: width, wantH: depth, px: 6, py: 3, wantValue: 6 + 10 + 120},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s%d", tt.axis, tt.pos), func(t *testing.T) {
			img, err := viewer.ExtractSlice(tt.axis, tt.pos)
			if err != nil {
				t.Fatalf("Failed to extract slice: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Expected slice dimensions %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
			if got := img.GrayAt(tt.px, tt.py).Y; got != tt.wantValue {
				t.Errorf("Pixel (%d,%d) = %d, want %d", tt.px, tt.py, got, tt.wantValue)
			}
		})
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestExtractSliceClamps verifies values outside the byte range saturate
func TestExtractSliceClamps(t *testing.T) {
	vol := models.NewVolume(2, 1, 1)
	vol.Set(0, 0, 0, -20)
	vol.Set(1, 0, 0, 300)

	img, err := NewViewer(vol).ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	if img.GrayAt(0, 0).Y != 0 || img.GrayAt(1, 0).Y != 255 {
		t.Errorf("Expected clamped values 0 and 255, got %d and %d", img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y)
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	width, height, depth := 10, 10, 5
	vol := createGradientVolume(width, height, depth)
	viewer := NewViewer(vol)

	startX, startY, startZ := 2, 3, 1
	sizeX, sizeY, sizeZ := 4, 3, 2

	region, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if region.Width != sizeX || region.Height != sizeY || region.Depth != sizeZ {
		t.Fatalf("Expected region %dx%dx%d, got %dx%dx%d",
			sizeX, sizeY, sizeZ, region.Width, region.Height, region.Depth)
	}
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				want := vol.At(startX+x, startY+y, startZ+z)
				if got := region.At(x, y, z); got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f", x, y, z, want, got)
				}
			}
		}
	}

	// The region keeps its place in the world
	wantOrigin := r3.Vec{X: 1, Y: 1.5, Z: 2}
	if region.Origin != wantOrigin {
		t.Errorf("Expected origin %v, got %v", wantOrigin, region.Origin)
	}
	if region.VoxelSize != vol.VoxelSize {
		t.Errorf("Expected voxel size %v, got %v", vol.VoxelSize, region.VoxelSize)
	}

	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}
	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}
	if _, err := viewer.ExtractRegion(width-1, 0, 0, 2, 1, 1); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	// Skip this test in short mode
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, depth := 5, 5, 3
	viewer := NewViewer(createGradientVolume(width, height, depth))

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
