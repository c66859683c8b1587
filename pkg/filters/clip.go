// Package filters implements the mesh operations of the visualization
// pipeline: clipping and cutting with implicit functions, tube generation,
// bone-to-skin distance fields and bounding box outlines.
package filters

import (
	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/implicit"
)

// edgeKey identifies a mesh edge independent of direction
type edgeKey struct{ lo, hi int }

func newEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// edgePoints interpolates and caches level-set crossings on edges so that
// neighbouring triangles share the generated points.
type edgePoints struct {
	src    *models.Mesh
	dst    *models.Mesh
	values []float64
	cache  map[edgeKey]int

	// keep maps a source vertex lying on the level to its index in dst.
	// When nil the vertex is copied once.
	keep func(int) int
}

func newEdgePoints(src, dst *models.Mesh, values []float64, keep func(int) int) *edgePoints {
	return &edgePoints{src: src, dst: dst, values: values, cache: make(map[edgeKey]int), keep: keep}
}

// point returns the index in dst of the zero crossing on edge (a, b).
// Interpolation always runs from the lower index so the result does not
// depend on which triangle asks first. An endpoint lying on the level is
// the crossing itself and is shared by every edge touching it.
func (e *edgePoints) point(a, b int) int {
	key := newEdgeKey(a, b)
	if idx, ok := e.cache[key]; ok {
		return idx
	}

	va, vb := e.values[key.lo], e.values[key.hi]
	t := 0.0
	if va != vb {
		t = va / (va - vb)
	}
	switch t {
	case 0:
		return e.vertex(key.lo)
	case 1:
		return e.vertex(key.hi)
	}
	pa, pb := e.src.Points[key.lo], e.src.Points[key.hi]

	idx := len(e.dst.Points)
	e.dst.Points = append(e.dst.Points, r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa))))
	if len(e.src.Scalars) == len(e.src.Points) {
		sa, sb := e.src.Scalars[key.lo], e.src.Scalars[key.hi]
		e.dst.Scalars = append(e.dst.Scalars, sa+t*(sb-sa))
	}
	e.cache[key] = idx
	return idx
}

func (e *edgePoints) vertex(i int) int {
	if e.keep != nil {
		return e.keep(i)
	}
	key := edgeKey{lo: i, hi: i}
	if idx, ok := e.cache[key]; ok {
		return idx
	}
	idx := len(e.dst.Points)
	e.dst.Points = append(e.dst.Points, e.src.Points[i])
	if len(e.src.Scalars) == len(e.src.Points) {
		e.dst.Scalars = append(e.dst.Scalars, e.src.Scalars[i])
	}
	e.cache[key] = idx
	return idx
}

// degenerate reports whether a triangle repeats a point index
func degenerate(t [3]int) bool {
	return t[0] == t[1] || t[1] == t[2] || t[2] == t[0]
}

// Clip keeps the part of mesh where fn is greater than value. Triangles
// crossing the level set are split along the interpolated boundary.
// Vertices lying exactly on the level are reused, never duplicated, and
// pieces that collapse to zero area are dropped. Lines are dropped.
func Clip(mesh *models.Mesh, fn implicit.Function, value float64) *models.Mesh {
	out := &models.Mesh{ScalarName: mesh.ScalarName}
	if mesh.IsEmpty() {
		return out
	}

	values := make([]float64, len(mesh.Points))
	for i, p := range mesh.Points {
		values[i] = fn.Evaluate(p) - value
	}

	hasScalars := len(mesh.Scalars) == len(mesh.Points)
	remap := make([]int, len(mesh.Points))
	for i := range remap {
		remap[i] = -1
	}
	keep := func(i int) int {
		if remap[i] < 0 {
			remap[i] = len(out.Points)
			out.Points = append(out.Points, mesh.Points[i])
			if hasScalars {
				out.Scalars = append(out.Scalars, mesh.Scalars[i])
			}
		}
		return remap[i]
	}
	edges := newEdgePoints(mesh, out, values, keep)
	add := func(t [3]int) {
		if !degenerate(t) {
			out.Triangles = append(out.Triangles, t)
		}
	}

	for _, tri := range mesh.Triangles {
		inside := 0
		for _, idx := range tri {
			if values[idx] >= 0 {
				inside++
			}
		}

		switch inside {
		case 0:
			continue
		case 3:
			out.Triangles = append(out.Triangles, [3]int{keep(tri[0]), keep(tri[1]), keep(tri[2])})
		case 1:
			// Rotate so the kept vertex comes first, preserving winding
			a, b, c := rotateTo(tri, func(i int) bool { return values[i] >= 0 })
			if values[a] == 0 {
				continue
			}
			add([3]int{keep(a), edges.point(a, b), edges.point(a, c)})
		case 2:
			// Rotate so the dropped vertex comes last
			c, a, b := rotateTo(tri, func(i int) bool { return values[i] < 0 })
			if values[a] == 0 && values[b] == 0 {
				continue
			}
			ka, kb := keep(a), keep(b)
			bc, ca := edges.point(b, c), edges.point(c, a)
			add([3]int{ka, kb, bc})
			add([3]int{ka, bc, ca})
		}
	}

	return out
}

// rotateTo returns the vertices of tri cyclically rotated so that the first
// one satisfies pred.
func rotateTo(tri [3]int, pred func(int) bool) (int, int, int) {
	switch {
	case pred(tri[0]):
		return tri[0], tri[1], tri[2]
	case pred(tri[1]):
		return tri[1], tri[2], tri[0]
	default:
		return tri[2], tri[0], tri[1]
	}
}
