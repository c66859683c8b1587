// Package visualization extracts 2D slices and sub-volumes from a scan so
// that the raw data behind the surfaces can be inspected.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"kneescan/internal/models"
)

// Viewer gives slice access to a volume whose samples lie in [0, 255]
type Viewer struct {
	vol *models.Volume
}

// NewViewer creates a viewer for vol
func NewViewer(vol *models.Volume) *Viewer {
	return &Viewer{vol: vol}
}

// sliceCount returns the number of slices along axis
func (v *Viewer) sliceCount(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return v.vol.Width, nil
	case "y", "Y":
		return v.vol.Height, nil
	case "z", "Z":
		return v.vol.Depth, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ExtractSlice returns the plane of voxels at position along axis. X slices
// are laid out as (z, y), Y slices as (x, z) and Z slices as (x, y).
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray, error) {
	n, err := v.sliceCount(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= n {
		return nil, fmt.Errorf("position %d outside [0, %d) along %s", position, n, axis)
	}

	vol := v.vol
	var img *image.Gray
	switch axis {
	case "x", "X":
		img = image.NewGray(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray(z, y, gray(vol.At(position, y, z)))
			}
		}
	case "y", "Y":
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, z, gray(vol.At(x, position, z)))
			}
		}
	default:
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, y, gray(vol.At(x, y, position)))
			}
		}
	}
	return img, nil
}

func gray(v float64) color.Gray {
	return color.Gray{Y: uint8(math.Max(0, math.Min(255, math.Round(v))))}
}

// ExtractRegion copies a box of voxels into a new volume that keeps the
// spacing and the world position of the source.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*models.Volume, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	vol := v.vol
	if startX+sizeX > vol.Width || startY+sizeY > vol.Height || startZ+sizeZ > vol.Depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := models.NewVolume(sizeX, sizeY, sizeZ)
	region.VoxelSize = vol.VoxelSize
	region.Origin.X = vol.Origin.X + float64(startX)*vol.VoxelSize.X
	region.Origin.Y = vol.Origin.Y + float64(startY)*vol.VoxelSize.Y
	region.Origin.Z = vol.Origin.Z + float64(startZ)*vol.VoxelSize.Z

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			// Rows are contiguous in both volumes
			src := vol.Index(startX, startY+y, startZ+z)
			dst := region.Index(0, y, z)
			copy(region.Data[dst:dst+sizeX], vol.Data[src:src+sizeX])
		}
	}
	return region, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	n, err := v.sliceCount(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
