// Package colormap maps scalar values to colors through a lookup table built
// by interpolating hue, saturation, value and alpha ranges.
package colormap

import (
	"fmt"
	"image/color"
	"math"
)

// LookupTable is a linear HSVA color table
type LookupTable struct {
	HueRange        [2]float64
	SaturationRange [2]float64
	ValueRange      [2]float64
	AlphaRange      [2]float64
	NumColors       int

	table []color.RGBA
}

// New returns the default table: 256 colors from red to blue at full
// saturation and value
func New() *LookupTable {
	return &LookupTable{
		HueRange:        [2]float64{0, 2.0 / 3.0},
		SaturationRange: [2]float64{1, 1},
		ValueRange:      [2]float64{1, 1},
		AlphaRange:      [2]float64{1, 1},
		NumColors:       256,
	}
}

// BlueToRed returns a table running from blue at the low end to red at the
// high end, used to show distances as far (blue) to close (red).
func BlueToRed() *LookupTable {
	lut := New()
	lut.HueRange = [2]float64{2.0 / 3.0, 0}
	return lut
}

// Build fills the table from the configured ranges
func (l *LookupTable) Build() error {
	if l.NumColors < 1 {
		return fmt.Errorf("lookup table needs at least one color, got %d", l.NumColors)
	}

	l.table = make([]color.RGBA, l.NumColors)
	for i := range l.table {
		t := 0.0
		if l.NumColors > 1 {
			t = float64(i) / float64(l.NumColors-1)
		}
		h := lerp(l.HueRange, t)
		s := lerp(l.SaturationRange, t)
		v := lerp(l.ValueRange, t)
		a := lerp(l.AlphaRange, t)

		r, g, b := HSVToRGB(h, s, v)
		l.table[i] = color.RGBA{
			R: toByte(r * a),
			G: toByte(g * a),
			B: toByte(b * a),
			A: toByte(a),
		}
	}
	return nil
}

// Len returns the number of built colors
func (l *LookupTable) Len() int {
	return len(l.table)
}

// Color returns entry i of the built table
func (l *LookupTable) Color(i int) color.RGBA {
	l.ensureBuilt()
	return l.table[i]
}

// Index returns the table entry for v over the scalar range [lo, hi].
// Values outside the range clamp to the ends.
func (l *LookupTable) Index(v, lo, hi float64) int {
	l.ensureBuilt()
	n := len(l.table)
	if math.IsNaN(v) || hi <= lo {
		return 0
	}
	idx := int(math.Floor((v - lo) / (hi - lo) * float64(n)))
	return max(0, min(n-1, idx))
}

// Map returns the color of v over the scalar range [lo, hi]. Colors are
// alpha-premultiplied.
func (l *LookupTable) Map(v, lo, hi float64) color.RGBA {
	idx := l.Index(v, lo, hi)
	return l.table[idx]
}

func (l *LookupTable) ensureBuilt() {
	if len(l.table) == 0 {
		if err := l.Build(); err != nil {
			// A zero-sized table still maps to black
			l.table = []color.RGBA{{A: 255}}
		}
	}
}

// HSVToRGB converts hue, saturation and value in [0, 1] to RGB in [0, 1]
func HSVToRGB(h, s, v float64) (r, g, b float64) {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	h *= 6
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func lerp(r [2]float64, t float64) float64 {
	return r[0] + t*(r[1]-r[0])
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
