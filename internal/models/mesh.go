package models

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Bounds is an axis-aligned bounding box
type Bounds struct {
	Min, Max r3.Vec
}

// EmptyBounds returns a box that any Extend call replaces
func EmptyBounds() Bounds {
	inf := math.Inf(1)
	return Bounds{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether no point has been added to the box
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to contain p
func (b Bounds) Extend(p r3.Vec) Bounds {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both boxes
func (b Bounds) Union(o Bounds) Bounds {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the midpoint of the box
func (b Bounds) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Size returns the edge lengths of the box
func (b Bounds) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Mesh is an indexed polygonal dataset. Triangles and Lines index into Points.
// Scalars, when present, holds one value per point.
type Mesh struct {
	Points    []r3.Vec
	Triangles [][3]int
	Lines     [][]int
	Scalars   []float64

	// ScalarName labels Scalars when the mesh is serialized
	ScalarName string
}

// PointCount returns the number of points.
func (m *Mesh) PointCount() int {
	return len(m.Points)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Points) == 0
}

// Bounds returns the bounding box of all points.
func (m *Mesh) Bounds() Bounds {
	b := EmptyBounds()
	if m == nil {
		return b
	}
	for _, p := range m.Points {
		b = b.Extend(p)
	}
	return b
}

// ScalarRange returns the minimum and maximum point scalar.
// ok is false when the mesh carries no scalars.
func (m *Mesh) ScalarRange() (lo, hi float64, ok bool) {
	if m == nil || len(m.Scalars) == 0 {
		return 0, 0, false
	}
	return floats.Min(m.Scalars), floats.Max(m.Scalars), true
}

// Clone returns a deep copy of the mesh
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Points:     append([]r3.Vec(nil), m.Points...),
		Triangles:  append([][3]int(nil), m.Triangles...),
		Scalars:    append([]float64(nil), m.Scalars...),
		ScalarName: m.ScalarName,
	}
	for _, l := range m.Lines {
		c.Lines = append(c.Lines, append([]int(nil), l...))
	}
	return c
}

// TriangleNormal returns the unit normal of triangle i following its winding.
// Degenerate triangles return the zero vector.
func (m *Mesh) TriangleNormal(i int) r3.Vec {
	t := m.Triangles[i]
	a, b, c := m.Points[t[0]], m.Points[t[1]], m.Points[t[2]]
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// PointNormals returns area-weighted vertex normals
func (m *Mesh) PointNormals() []r3.Vec {
	normals := make([]r3.Vec, len(m.Points))
	for _, t := range m.Triangles {
		a, b, c := m.Points[t[0]], m.Points[t[1]], m.Points[t[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, idx := range t {
			normals[idx] = r3.Add(normals[idx], n)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	return normals
}
