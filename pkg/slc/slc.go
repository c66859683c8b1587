// Package slc reads and writes SLC ("sliced object") voxel files, the scanner
// volume format of the knee dataset. Voxels are 8-bit, stored slice by slice
// either raw or run-length encoded.
package slc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"kneescan/internal/models"
)

// Magic is the number every SLC file starts with
const Magic = 11111

// Compression schemes for slice data
const (
	Uncompressed = 0
	RunLength    = 1
)

// ErrFormat is returned for files that are not valid SLC data
var ErrFormat = errors.New("slc: invalid format")

// Header holds the ASCII header fields of an SLC file
type Header struct {
	Width, Height, Depth int
	BitsPerVoxel         int
	Spacing              [3]float64
	UnitType             int
	DataOrigin           int
	DataModification     int
	Compression          int
}

// Load reads the SLC file at path into a volume
func Load(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume: %w", err)
	}
	defer file.Close()

	vol, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vol, nil
}

// Decode parses an SLC stream
func Decode(r io.Reader) (*models.Volume, error) {
	br := bufio.NewReader(r)

	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	// Skip over the icon: three planes of width*height bytes
	iconW, iconH, err := readSizeX(br)
	if err != nil {
		return nil, fmt.Errorf("%w: icon header: %v", ErrFormat, err)
	}
	if _, err := br.Discard(3 * iconW * iconH); err != nil {
		return nil, fmt.Errorf("%w: icon data: %v", ErrFormat, err)
	}

	vol := models.NewVolume(hdr.Width, hdr.Height, hdr.Depth)
	vol.VoxelSize.X = hdr.Spacing[0]
	vol.VoxelSize.Y = hdr.Spacing[1]
	vol.VoxelSize.Z = hdr.Spacing[2]

	planeSize := hdr.Width * hdr.Height
	plane := make([]byte, planeSize)

	// Read in data plane by plane
	for z := 0; z < hdr.Depth; z++ {
		switch hdr.Compression {
		case Uncompressed:
			if _, err := io.ReadFull(br, plane); err != nil {
				return nil, fmt.Errorf("%w: slice %d: %v", ErrFormat, z, err)
			}
		case RunLength:
			size, err := readCompressedSize(br)
			if err != nil {
				return nil, fmt.Errorf("%w: slice %d size: %v", ErrFormat, z, err)
			}
			compressed := make([]byte, size)
			if _, err := io.ReadFull(br, compressed); err != nil {
				return nil, fmt.Errorf("%w: slice %d: %v", ErrFormat, z, err)
			}
			if err := decodeRLE(compressed, plane); err != nil {
				return nil, fmt.Errorf("%w: slice %d: %v", ErrFormat, z, err)
			}
		}

		offset := z * planeSize
		for i, b := range plane {
			vol.Data[offset+i] = float64(b)
		}
	}

	return vol, nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	var hdr Header
	var magic int
	if _, err := fmt.Fscan(br, &magic); err != nil || magic != Magic {
		return hdr, fmt.Errorf("%w: bad magic number", ErrFormat)
	}
	if _, err := fmt.Fscan(br, &hdr.Width, &hdr.Height, &hdr.Depth, &hdr.BitsPerVoxel); err != nil {
		return hdr, fmt.Errorf("%w: dimensions: %v", ErrFormat, err)
	}
	if _, err := fmt.Fscan(br, &hdr.Spacing[0], &hdr.Spacing[1], &hdr.Spacing[2]); err != nil {
		return hdr, fmt.Errorf("%w: spacing: %v", ErrFormat, err)
	}
	if _, err := fmt.Fscan(br, &hdr.UnitType, &hdr.DataOrigin, &hdr.DataModification, &hdr.Compression); err != nil {
		return hdr, fmt.Errorf("%w: data description: %v", ErrFormat, err)
	}

	if hdr.Width <= 0 || hdr.Height <= 0 || hdr.Depth <= 0 {
		return hdr, fmt.Errorf("%w: dimensions %dx%dx%d", ErrFormat, hdr.Width, hdr.Height, hdr.Depth)
	}
	if hdr.BitsPerVoxel != 8 {
		return hdr, fmt.Errorf("%w: only 8 bits per voxel supported, got %d", ErrFormat, hdr.BitsPerVoxel)
	}
	if hdr.Compression != Uncompressed && hdr.Compression != RunLength {
		return hdr, fmt.Errorf("%w: unknown compression %d", ErrFormat, hdr.Compression)
	}
	for i, s := range hdr.Spacing {
		if s <= 0 {
			return hdr, fmt.Errorf("%w: spacing[%d] = %g", ErrFormat, i, s)
		}
	}
	return hdr, nil
}

// readSizeX reads "w h X" and the separator byte that follows the X
func readSizeX(br *bufio.Reader) (int, int, error) {
	var w, h int
	if _, err := fmt.Fscan(br, &w, &h); err != nil {
		return 0, 0, err
	}
	if err := expectX(br); err != nil {
		return 0, 0, err
	}
	if w < 0 || h < 0 {
		return 0, 0, fmt.Errorf("negative size %dx%d", w, h)
	}
	return w, h, nil
}

func readCompressedSize(br *bufio.Reader) (int, error) {
	var size int
	if _, err := fmt.Fscan(br, &size); err != nil {
		return 0, err
	}
	if err := expectX(br); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("negative size %d", size)
	}
	return size, nil
}

// expectX skips blanks up to the X marker, then drops the single
// separator byte written after it. Binary data starts on the next byte.
func expectX(br *bufio.Reader) error {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case 'X':
			if _, err := br.ReadByte(); err != nil {
				return fmt.Errorf("missing separator after X: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("expected X, got %q", c)
		}
	}
}

// decodeRLE expands one run-length encoded plane into dst
func decodeRLE(src, dst []byte) error {
	in, out := 0, 0
	for in < len(src) {
		c := src[in]
		in++
		count := int(c & 0x7f)
		if count == 0 {
			break
		}
		if out+count > len(dst) {
			return fmt.Errorf("run overflows plane")
		}
		if c&0x80 != 0 {
			// Literal run
			if in+count > len(src) {
				return fmt.Errorf("truncated literal run")
			}
			copy(dst[out:out+count], src[in:in+count])
			in += count
		} else {
			if in >= len(src) {
				return fmt.Errorf("truncated repeat run")
			}
			v := src[in]
			in++
			for i := 0; i < count; i++ {
				dst[out+i] = v
			}
		}
		out += count
	}
	if out != len(dst) {
		return fmt.Errorf("plane has %d of %d voxels", out, len(dst))
	}
	return nil
}
