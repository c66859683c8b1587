package slc

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kneescan/internal/models"
)

// createTestVolume builds a small volume with runs and noise in every slice
func createTestVolume() *models.Volume {
	v := models.NewVolume(7, 5, 4)
	v.VoxelSize.X = 0.5
	v.VoxelSize.Y = 0.75
	v.VoxelSize.Z = 1.5
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				value := 0.0
				if x > 2 {
					value = float64(10 * (z + 1))
				}
				if (x+y)%3 == 0 {
					value = float64(x*y + z)
				}
				v.Set(x, y, z, value)
			}
		}
	}
	return v
}

// TestEncodeDecode verifies raw and run-length encoded volumes read back unchanged
func TestEncodeDecode(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "raw"
		if compress {
			name = "rle"
		}
		t.Run(name, func(t *testing.T) {
			want := createTestVolume()

			var buf bytes.Buffer
			if err := Encode(&buf, want, compress); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			got, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if got.Width != want.Width || got.Height != want.Height || got.Depth != want.Depth {
				t.Fatalf("Expected %dx%dx%d, got %dx%dx%d",
					want.Width, want.Height, want.Depth, got.Width, got.Height, got.Depth)
			}
			if got.VoxelSize != want.VoxelSize {
				t.Errorf("Expected spacing %v, got %v", want.VoxelSize, got.VoxelSize)
			}
			if diff := cmp.Diff(want.Data, got.Data); diff != "" {
				t.Errorf("Voxel mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestDecodeRLE checks the literal and repeat run rules
func TestDecodeRLE(t *testing.T) {
	src := []byte{
		0x03, 7, // three sevens
		0x82, 1, 2, // literal 1, 2
		0x01, 9, // one nine
		0x00,
	}
	dst := make([]byte, 6)
	if err := decodeRLE(src, dst); err != nil {
		t.Fatalf("decodeRLE failed: %v", err)
	}
	want := []byte{7, 7, 7, 1, 2, 9}
	if !bytes.Equal(dst, want) {
		t.Errorf("Expected %v, got %v", want, dst)
	}

	// Short plane is an error
	if err := decodeRLE([]byte{0x02, 5, 0x00}, make([]byte, 4)); err == nil {
		t.Error("Expected error for short plane, got nil")
	}

	// Overflow is an error
	if err := decodeRLE([]byte{0x05, 5, 0x00}, make([]byte, 4)); err == nil {
		t.Error("Expected error for overflowing run, got nil")
	}
}

// TestEncodeRLELongRuns verifies runs longer than a control byte can hold
func TestEncodeRLELongRuns(t *testing.T) {
	plane := make([]byte, 1000)
	for i := 500; i < len(plane); i++ {
		plane[i] = byte(i % 251)
	}
	dst := make([]byte, len(plane))
	if err := decodeRLE(encodeRLE(plane), dst); err != nil {
		t.Fatalf("decodeRLE failed: %v", err)
	}
	if !bytes.Equal(plane, dst) {
		t.Error("Run-length round trip changed the plane")
	}
}

// TestDecodeInvalid verifies malformed headers are rejected with ErrFormat
func TestDecodeInvalid(t *testing.T) {
	tests := map[string]string{
		"bad magic":       "12345\n1 1 1 8\n1 1 1\n0 0 0 0\n0 0 X",
		"16 bit":          "11111\n1 1 1 16\n1 1 1\n0 0 0 0\n0 0 X\x00\x00",
		"zero dims":       "11111\n0 1 1 8\n1 1 1\n0 0 0 0\n0 0 X",
		"bad compression": "11111\n1 1 1 8\n1 1 1\n0 0 0 7\n0 0 X\x00",
		"zero spacing":    "11111\n1 1 1 8\n0 1 1\n0 0 0 0\n0 0 X\x00",
		"truncated":       "11111\n4 4 1 8\n1 1 1\n0 0 0 0\n0 0 X\x00\x00",
		"missing X":       "11111\n1 1 1 8\n1 1 1\n0 0 0 0\n0 0 Y\x00",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(input))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Expected ErrFormat, got %v", err)
			}
		})
	}
}

// TestDecodeSkipsIcon verifies icon bytes are not mistaken for voxels
func TestDecodeSkipsIcon(t *testing.T) {
	input := "11111\n2 1 1 8\n1 1 2\n0 0 0 0\n1 1 X\n" + "\x01\x02\x03" + "\x0a\x14"
	vol, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff([]float64{10, 20}, vol.Data); diff != "" {
		t.Errorf("Voxel mismatch (-want +got):\n%s", diff)
	}
	if vol.VoxelSize.Z != 2 {
		t.Errorf("Expected z spacing 2, got %f", vol.VoxelSize.Z)
	}
}

// TestDecodeScannerLayout verifies a run-length encoded file as scanners
// write it: one separator byte after every X, then an icon of three planes
func TestDecodeScannerLayout(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("11111\n2 2 2 8\n1 1 1\n0 0 0 1\n")
	// Icon bytes that would parse as header text if not skipped
	buf.WriteString("1 1 X\n" + "X\n9")
	for _, v := range []byte{30, 90} {
		buf.WriteString("3 X\n")
		buf.Write([]byte{0x04, v, 0x00})
	}

	vol, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []float64{30, 30, 30, 30, 90, 90, 90, 90}
	if diff := cmp.Diff(want, vol.Data); diff != "" {
		t.Errorf("Voxel mismatch (-want +got):\n%s", diff)
	}
}

// TestEncodeWritesSeparator verifies encoded markers are followed by a newline
func TestEncodeWritesSeparator(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, createTestVolume(), true); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("0 0 X\n")) {
		t.Error("Expected icon marker followed by a newline")
	}
	if got, want := bytes.Count(buf.Bytes(), []byte(" X\n")), 1+createTestVolume().Depth; got < want {
		t.Errorf("Found %d markers with separators, want at least %d", got, want)
	}
}

// TestLoadMissingFile verifies a missing path is reported as not existing
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.slc"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
}

// TestSaveLoad verifies the file helpers round trip through disk
func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "vol.slc")
	want := createTestVolume()
	if err := Save(path, want, true); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(want.Data, got.Data); diff != "" {
		t.Errorf("Voxel mismatch (-want +got):\n%s", diff)
	}
}
