// Package implicit holds the implicit functions used to clip and cut meshes.
package implicit

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Function is a scalar field over space
type Function interface {
	Evaluate(p r3.Vec) float64
}

// Sphere is zero on its surface, negative inside and positive outside.
// The value is the squared distance to the center minus the squared radius.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

// Evaluate implements Function
func (s Sphere) Evaluate(p r3.Vec) float64 {
	d := r3.Sub(p, s.Center)
	return r3.Dot(d, d) - s.Radius*s.Radius
}

// Plane evaluates the signed distance along Normal from Origin
type Plane struct {
	Origin r3.Vec
	Normal r3.Vec
}

// Evaluate implements Function
func (pl Plane) Evaluate(p r3.Vec) float64 {
	return r3.Dot(pl.Normal, r3.Sub(p, pl.Origin))
}

// Func adapts an ordinary function to Function
type Func func(p r3.Vec) float64

// Evaluate implements Function
func (f Func) Evaluate(p r3.Vec) float64 { return f(p) }
