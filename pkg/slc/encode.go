package slc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"kneescan/internal/models"
)

// Save writes the volume to path, creating parent directories
func Save(path string, v *models.Volume, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, v, compress); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode writes the volume as an SLC stream. Samples are clamped to 0..255.
func Encode(w io.Writer, v *models.Volume, compress bool) error {
	bw := bufio.NewWriter(w)

	compression := Uncompressed
	if compress {
		compression = RunLength
	}

	fmt.Fprintf(bw, "%d\n", Magic)
	fmt.Fprintf(bw, "%d %d %d %d\n", v.Width, v.Height, v.Depth, 8)
	fmt.Fprintf(bw, "%g %g %g\n", v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z)
	fmt.Fprintf(bw, "%d %d %d %d\n", 0, 0, 0, compression)

	// Empty icon
	fmt.Fprintf(bw, "%d %d X\n", 0, 0)

	planeSize := v.Width * v.Height
	plane := make([]byte, planeSize)
	for z := 0; z < v.Depth; z++ {
		for i := range plane {
			plane[i] = toByte(v.Data[z*planeSize+i])
		}

		if !compress {
			if _, err := bw.Write(plane); err != nil {
				return err
			}
			continue
		}

		data := encodeRLE(plane)
		fmt.Fprintf(bw, "%d X\n", len(data))
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func toByte(v float64) byte {
	return byte(math.Max(0, math.Min(255, math.Round(v))))
}

// encodeRLE produces repeat runs for stretches of equal bytes and literal
// runs otherwise, terminated by a zero control byte.
func encodeRLE(plane []byte) []byte {
	var out []byte
	i := 0
	for i < len(plane) {
		// Measure the repeat run starting at i
		j := i + 1
		for j < len(plane) && plane[j] == plane[i] && j-i < 0x7f {
			j++
		}
		if j-i >= 3 {
			out = append(out, byte(j-i), plane[i])
			i = j
			continue
		}

		// Collect literals until a repeat of three begins
		start := i
		for i < len(plane) && i-start < 0x7f {
			if i+2 < len(plane) && plane[i] == plane[i+1] && plane[i] == plane[i+2] {
				break
			}
			i++
		}
		out = append(out, byte(i-start)|0x80)
		out = append(out, plane[start:i]...)
	}
	return append(out, 0)
}
