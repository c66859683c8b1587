package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
)

// Camera is a perspective camera looking from Position at FocalPoint.
// Angles are in degrees and rotations follow the right-hand rule.
type Camera struct {
	Position   r3.Vec
	FocalPoint r3.Vec
	ViewUp     r3.Vec

	// ViewAngle is the vertical field of view
	ViewAngle float64

	// ClippingRange holds the near and far plane distances
	ClippingRange [2]float64
}

// Frame is the orthonormal camera basis. Normal points from the focal
// point towards the camera.
type Frame struct {
	Right, Up, Normal r3.Vec
}

// NewCamera returns a camera at (0, 0, 1) looking at the origin with +y up
func NewCamera() *Camera {
	return &Camera{
		Position:      r3.Vec{Z: 1},
		ViewUp:        r3.Vec{Y: 1},
		ViewAngle:     30,
		ClippingRange: [2]float64{0.01, 1000.01},
	}
}

// Clone returns an independent copy of the camera
func (c *Camera) Clone() *Camera {
	cp := *c
	return &cp
}

// Distance returns the distance from the position to the focal point
func (c *Camera) Distance() float64 {
	return r3.Norm(r3.Sub(c.FocalPoint, c.Position))
}

// DirectionOfProjection returns the unit vector from the position to the focal point
func (c *Camera) DirectionOfProjection() r3.Vec {
	d := r3.Sub(c.FocalPoint, c.Position)
	if r3.Norm(d) == 0 {
		return r3.Vec{Z: -1}
	}
	return r3.Unit(d)
}

// Frame returns the camera basis with the view up orthogonalized
func (c *Camera) Frame() Frame {
	normal := r3.Scale(-1, c.DirectionOfProjection())
	right := r3.Cross(c.ViewUp, normal)
	if r3.Norm(right) < 1e-12 {
		// View up parallel to the view direction; pick any perpendicular
		right = r3.Cross(r3.Vec{X: normal.Z, Y: normal.X, Z: normal.Y}, normal)
	}
	right = r3.Unit(right)
	return Frame{Right: right, Up: r3.Cross(normal, right), Normal: normal}
}

// Azimuth rotates the position about the view up vector centered at the focal point
func (c *Camera) Azimuth(angle float64) {
	c.Position = r3.Add(c.FocalPoint, rotate(r3.Sub(c.Position, c.FocalPoint), c.ViewUp, angle))
}

// Elevation rotates the position about the horizontal camera axis centered
// at the focal point. The view up vector is left unchanged.
func (c *Camera) Elevation(angle float64) {
	axis := r3.Scale(-1, c.Frame().Right)
	c.Position = r3.Add(c.FocalPoint, rotate(r3.Sub(c.Position, c.FocalPoint), axis, angle))
}

// Roll rotates the view up vector about the direction of projection
func (c *Camera) Roll(angle float64) {
	c.ViewUp = rotate(c.ViewUp, c.DirectionOfProjection(), angle)
}

// GetRoll returns the rotation of the camera about the direction of
// projection, measured as the last of a Y, X, Z Euler decomposition of the
// camera orientation.
func (c *Camera) GetRoll() float64 {
	f := c.Frame()
	x2, y2, z2 := f.Normal.X, f.Normal.Y, f.Normal.Z
	x3, y3, z3 := f.Up.X, f.Up.Y, f.Up.Z

	cosTheta, sinTheta := 1.0, 0.0
	if d1 := math.Hypot(x2, z2); d1 > 1e-12 {
		cosTheta, sinTheta = z2/d1, x2/d1
	}
	d := math.Sqrt(x2*x2 + y2*y2 + z2*z2)
	cosPhi, sinPhi := math.Hypot(x2, z2)/d, y2/d

	x3p := x3*cosTheta - z3*sinTheta
	y3p := -sinPhi*sinTheta*x3 + cosPhi*y3 - sinPhi*cosTheta*z3
	return math.Atan2(x3p, y3p) * 180 / math.Pi
}

// SetRoll rolls the camera to an absolute angle
func (c *Camera) SetRoll(angle float64) {
	c.Roll(angle - c.GetRoll())
}

// OrthogonalizeViewUp replaces the view up with its component perpendicular
// to the view direction
func (c *Camera) OrthogonalizeViewUp() {
	c.ViewUp = c.Frame().Up
}

// Zoom narrows the view angle by factor
func (c *Camera) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.ViewAngle = math.Max(0.01, math.Min(179, c.ViewAngle/factor))
}

// Dolly moves the camera towards the focal point, dividing the distance by factor
func (c *Camera) Dolly(factor float64) {
	if factor <= 0 {
		return
	}
	d := c.Distance() / factor
	c.Position = r3.Sub(c.FocalPoint, r3.Scale(d, c.DirectionOfProjection()))
}

// Pan translates both position and focal point within the view plane
func (c *Camera) Pan(dx, dy float64) {
	f := c.Frame()
	shift := r3.Add(r3.Scale(dx, f.Right), r3.Scale(dy, f.Up))
	c.Position = r3.Add(c.Position, shift)
	c.FocalPoint = r3.Add(c.FocalPoint, shift)
}

// Reset keeps the view direction and moves the camera so that a sphere
// around b fills the view angle. Empty bounds leave the camera unchanged.
func (c *Camera) Reset(b models.Bounds) {
	if b.IsEmpty() {
		return
	}
	center := b.Center()
	radius := r3.Norm(b.Size()) / 2
	if radius == 0 {
		radius = 0.5
	}
	distance := radius / math.Sin(c.ViewAngle*math.Pi/360)

	normal := r3.Scale(-1, c.DirectionOfProjection())
	if up := r3.Unit(c.ViewUp); math.Abs(r3.Dot(up, normal)) > 0.999 {
		c.ViewUp = r3.Vec{X: -c.ViewUp.Z, Y: c.ViewUp.X, Z: c.ViewUp.Y}
	}

	c.FocalPoint = center
	c.Position = r3.Add(center, r3.Scale(distance, normal))
	c.ResetClippingRange(b)
}

// ResetClippingRange fits the near and far planes around b
func (c *Camera) ResetClippingRange(b models.Bounds) {
	if b.IsEmpty() {
		return
	}
	dop := c.DirectionOfProjection()
	near, far := math.Inf(1), math.Inf(-1)
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
		d := r3.Dot(r3.Sub(p, c.Position), dop)
		near = math.Min(near, d)
		far = math.Max(far, d)
	}

	// Leave a margin and keep the near plane in front of the camera
	pad := 0.01 * (far - near)
	near -= pad
	far += pad
	if near < 0.001*far {
		near = 0.001 * far
	}
	c.ClippingRange = [2]float64{near, far}
}

// Project maps a world point to normalized device coordinates in [-1, 1]
// for a viewport of the given width/height aspect. depth is the distance
// along the view direction; ok is false for points behind the near plane.
func (c *Camera) Project(p r3.Vec, aspect float64) (x, y, depth float64, ok bool) {
	f := c.Frame()
	rel := r3.Sub(p, c.Position)
	depth = -r3.Dot(rel, f.Normal)
	if depth < c.ClippingRange[0] {
		return 0, 0, depth, false
	}
	scale := 1 / math.Tan(c.ViewAngle*math.Pi/360)
	x = scale * r3.Dot(rel, f.Right) / (depth * aspect)
	y = scale * r3.Dot(rel, f.Up) / depth
	return x, y, depth, true
}

// rotate returns v rotated by angle degrees about axis (Rodrigues)
func rotate(v, axis r3.Vec, angle float64) r3.Vec {
	if r3.Norm(axis) == 0 {
		return v
	}
	k := r3.Unit(axis)
	theta := angle * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	return r3.Add(
		r3.Add(r3.Scale(cos, v), r3.Scale(sin, r3.Cross(k, v))),
		r3.Scale(r3.Dot(k, v)*(1-cos), k),
	)
}
