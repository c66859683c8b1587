package filters

import (
	"math"

	"kneescan/internal/models"
	"kneescan/pkg/implicit"
)

// CutScalarName labels the contour value carried by cut output points
const CutScalarName = "CutValue"

// GenerateValues returns n evenly spaced contour values from lo to hi.
// A single value is lo.
func GenerateValues(n int, lo, hi float64) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	values := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range values {
		values[i] = lo + float64(i)*step
	}
	return values
}

// BandCount returns the number of cutting planes needed to cover voxels
// samples of the given spacing at one plane per interval: floor(n*s/i) + 1.
func BandCount(voxels int, spacing, interval float64) int {
	return int(math.Floor(float64(voxels)*spacing/interval)) + 1
}

// Cut intersects mesh with the level sets fn = v for every v in values and
// returns the intersection curves as polylines. Each output point carries
// the contour value it belongs to.
func Cut(mesh *models.Mesh, fn implicit.Function, values []float64) *models.Mesh {
	out := &models.Mesh{ScalarName: CutScalarName}
	if mesh.IsEmpty() {
		return out
	}

	base := make([]float64, len(mesh.Points))
	for i, p := range mesh.Points {
		base[i] = fn.Evaluate(p)
	}

	level := make([]float64, len(mesh.Points))
	for _, v := range values {
		for i := range base {
			level[i] = base[i] - v
		}

		first := len(out.Points)
		// Scalars are appended below; point() must not interpolate source scalars
		src := &models.Mesh{Points: mesh.Points}
		edges := newEdgePoints(src, out, level, nil)

		var segments [][2]int
		for _, tri := range mesh.Triangles {
			var crossing [2]int
			n := 0
			for k := 0; k < 3 && n < 2; k++ {
				a, b := tri[k], tri[(k+1)%3]
				if (level[a] >= 0) != (level[b] >= 0) {
					crossing[n] = edges.point(a, b)
					n++
				}
			}
			if n == 2 && crossing[0] != crossing[1] {
				segments = append(segments, crossing)
			}
		}

		for i := first; i < len(out.Points); i++ {
			out.Scalars = append(out.Scalars, v)
		}
		out.Lines = append(out.Lines, joinSegments(segments, first, len(out.Points))...)
	}

	return out
}

// joinSegments chains segments over the point range [lo, hi) into
// polylines. Open chains are started from their free ends first; closed
// loops repeat their first point at the end.
func joinSegments(segments [][2]int, lo, hi int) [][]int {
	adj := make([][]int, hi-lo)
	for s, seg := range segments {
		adj[seg[0]-lo] = append(adj[seg[0]-lo], s)
		adj[seg[1]-lo] = append(adj[seg[1]-lo], s)
	}
	used := make([]bool, len(segments))

	var lines [][]int
	walk := func(start int) {
		for {
			// Find an unused segment at start
			s := -1
			for _, cand := range adj[start-lo] {
				if !used[cand] {
					s = cand
					break
				}
			}
			if s < 0 {
				return
			}

			line := []int{start}
			cur := start
			for s >= 0 {
				used[s] = true
				next := segments[s][0]
				if next == cur {
					next = segments[s][1]
				}
				line = append(line, next)
				cur = next

				s = -1
				for _, cand := range adj[cur-lo] {
					if !used[cand] {
						s = cand
						break
					}
				}
			}
			lines = append(lines, line)
		}
	}

	// Free ends first so open curves are not split in the middle
	for p := lo; p < hi; p++ {
		if len(adj[p-lo])%2 == 1 {
			walk(p)
		}
	}
	for p := lo; p < hi; p++ {
		walk(p)
	}
	return lines
}
