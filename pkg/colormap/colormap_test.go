package colormap

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		h, s, v float64
		want    [3]float64
	}{
		{0, 1, 1, [3]float64{1, 0, 0}},
		{1.0 / 3, 1, 1, [3]float64{0, 1, 0}},
		{2.0 / 3, 1, 1, [3]float64{0, 0, 1}},
		{0.5, 0, 0.5, [3]float64{0.5, 0.5, 0.5}},
		{1, 1, 1, [3]float64{1, 0, 0}},
	}

	for _, tt := range tests {
		r, g, b := HSVToRGB(tt.h, tt.s, tt.v)
		got := [3]float64{r, g, b}
		for k := range got {
			if d := got[k] - tt.want[k]; d > 1e-9 || d < -1e-9 {
				t.Errorf("HSVToRGB(%g, %g, %g) = %v, want %v", tt.h, tt.s, tt.v, got, tt.want)
				break
			}
		}
	}
}

// TestBlueToRed verifies the distance table runs from blue to red
func TestBlueToRed(t *testing.T) {
	lut := BlueToRed()
	if err := lut.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if lut.Len() != 256 {
		t.Fatalf("Expected 256 colors, got %d", lut.Len())
	}

	if diff := cmp.Diff(color.RGBA{B: 255, A: 255}, lut.Map(-10, -10, 30)); diff != "" {
		t.Errorf("Low end mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(color.RGBA{R: 255, A: 255}, lut.Map(30, -10, 30)); diff != "" {
		t.Errorf("High end mismatch (-want +got):\n%s", diff)
	}

	// The middle of the range is green
	mid := lut.Map(10, -10, 30)
	if mid.G < 200 || mid.R > 100 || mid.B > 100 {
		t.Errorf("Expected green in the middle, got %v", mid)
	}
}

func TestIndexClamps(t *testing.T) {
	lut := New()

	tests := []struct {
		v    float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{0.5, 128},
		{0.999, 255},
		{1, 255},
		{42, 255},
	}
	for _, tt := range tests {
		if got := lut.Index(tt.v, 0, 1); got != tt.want {
			t.Errorf("Index(%g) = %d, want %d", tt.v, got, tt.want)
		}
	}

	if got := lut.Index(3, 5, 5); got != 0 {
		t.Errorf("Index over an empty range = %d, want 0", got)
	}
}

func TestAlphaPremultiplied(t *testing.T) {
	lut := New()
	lut.NumColors = 2
	lut.AlphaRange = [2]float64{0.5, 0.5}
	if err := lut.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if diff := cmp.Diff(color.RGBA{R: 128, A: 128}, lut.Color(0)); diff != "" {
		t.Errorf("Premultiplied color mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRejectsEmptyTable(t *testing.T) {
	lut := New()
	lut.NumColors = 0
	if err := lut.Build(); err == nil {
		t.Error("Expected error for zero colors, got nil")
	}
}
