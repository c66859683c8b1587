package filters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
)

// Tube sweeps a circle of the given radius along every polyline of mesh and
// returns the tube walls as triangles with outward winding. Ends are left
// open. Polylines shorter than two distinct points are skipped.
func Tube(mesh *models.Mesh, radius float64, sides int) (*models.Mesh, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("tube radius must be positive, got %g", radius)
	}
	if sides < 3 {
		return nil, fmt.Errorf("tube needs at least 3 sides, got %d", sides)
	}

	out := &models.Mesh{}
	if mesh.IsEmpty() {
		return out, nil
	}

	angles := make([][2]float64, sides)
	for k := range angles {
		theta := 2 * math.Pi * float64(k) / float64(sides)
		angles[k] = [2]float64{math.Cos(theta), math.Sin(theta)}
	}

	for _, line := range mesh.Lines {
		pts := dedupe(mesh.Points, line)
		if len(pts) < 2 {
			continue
		}

		normal := perpendicular(tangent(pts, 0))
		prevRing := -1
		for i := range pts {
			t := tangent(pts, i)

			// Parallel transport of the frame normal
			normal = r3.Sub(normal, r3.Scale(r3.Dot(normal, t), t))
			if r3.Norm(normal) < 1e-12 {
				normal = perpendicular(t)
			}
			normal = r3.Unit(normal)
			binormal := r3.Cross(t, normal)

			ring := len(out.Points)
			for _, cs := range angles {
				offset := r3.Add(r3.Scale(cs[0]*radius, normal), r3.Scale(cs[1]*radius, binormal))
				out.Points = append(out.Points, r3.Add(pts[i], offset))
			}

			if prevRing >= 0 {
				for k := 0; k < sides; k++ {
					k1 := (k + 1) % sides
					a0, a1 := prevRing+k, prevRing+k1
					c0, c1 := ring+k, ring+k1
					out.Triangles = append(out.Triangles,
						[3]int{a0, a1, c0},
						[3]int{a1, c1, c0},
					)
				}
			}
			prevRing = ring
		}
	}

	return out, nil
}

// dedupe resolves a polyline to coordinates, dropping repeated points
func dedupe(points []r3.Vec, line []int) []r3.Vec {
	pts := make([]r3.Vec, 0, len(line))
	for _, idx := range line {
		p := points[idx]
		if len(pts) > 0 && r3.Norm(r3.Sub(p, pts[len(pts)-1])) < 1e-12 {
			continue
		}
		pts = append(pts, p)
	}
	return pts
}

// tangent returns the unit direction of the polyline at point i, averaging
// the adjacent segments at interior points.
func tangent(pts []r3.Vec, i int) r3.Vec {
	var d r3.Vec
	switch {
	case i == 0:
		d = r3.Sub(pts[1], pts[0])
	case i == len(pts)-1:
		d = r3.Sub(pts[i], pts[i-1])
	default:
		d = r3.Add(r3.Unit(r3.Sub(pts[i], pts[i-1])), r3.Unit(r3.Sub(pts[i+1], pts[i])))
		if r3.Norm(d) < 1e-12 {
			d = r3.Sub(pts[i+1], pts[i])
		}
	}
	return r3.Unit(d)
}

// perpendicular returns a unit vector orthogonal to t
func perpendicular(t r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	if math.Abs(t.X) > 0.9 {
		axis = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(t, axis))
}
