package filters

import (
	"kneescan/internal/models"
)

// Outline returns the twelve edges of the box as two-point lines
func Outline(b models.Bounds) *models.Mesh {
	out := &models.Mesh{}
	if b.IsEmpty() {
		return out
	}

	// Corner i takes Max on axis k when bit k of i is set
	for i := 0; i < 8; i++ {
		p := b.Min
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		out.Points = append(out.Points, p)
	}

	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				out.Lines = append(out.Lines, []int{i, i | bit})
			}
		}
	}
	return out
}
