// Package interact turns pointer gestures into camera motion. It has no
// windowing dependency so that the mapping can be tested on its own.
package interact

import (
	"math"

	"kneescan/pkg/scene"
)

// Mode is the gesture in progress
type Mode int

const (
	None Mode = iota
	Rotate
	Pan
	Dolly
)

func (m Mode) String() string {
	switch m {
	case Rotate:
		return "rotate"
	case Pan:
		return "pan"
	case Dolly:
		return "dolly"
	default:
		return "none"
	}
}

// Trackball moves the camera of the viewport under the pointer: dragging
// rotates it about the focal point, pans it or dollies it towards the
// focal point. Coordinates are window pixels with y pointing down.
type Trackball struct {
	Window *scene.Window

	// MotionFactor scales every gesture
	MotionFactor float64

	mode Mode
	vp   *scene.Viewport
	x, y int
}

// NewTrackball returns a trackball with the usual motion factor of 10
func NewTrackball(win *scene.Window) *Trackball {
	return &Trackball{Window: win, MotionFactor: 10}
}

// Mode returns the gesture in progress
func (t *Trackball) Mode() Mode {
	return t.mode
}

// Start begins a gesture at (x, y). It reports false when no viewport with
// a camera is under the pointer.
func (t *Trackball) Start(m Mode, x, y int) bool {
	vp := t.Window.ViewportAt(x, y)
	if vp == nil || vp.Camera == nil || m == None {
		return false
	}
	t.mode, t.vp, t.x, t.y = m, vp, x, y
	return true
}

// End finishes the current gesture
func (t *Trackball) End() {
	t.mode, t.vp = None, nil
}

// Move continues the gesture to (x, y) and reports whether the camera moved
func (t *Trackball) Move(x, y int) bool {
	if t.mode == None {
		return false
	}
	dx, dy := float64(x-t.x), float64(y-t.y)
	t.x, t.y = x, y
	if dx == 0 && dy == 0 {
		return false
	}

	cam := t.vp.Camera
	rect := t.Window.PixelRect(t.vp)
	w, h := float64(rect.Dx()), float64(rect.Dy())

	switch t.mode {
	case Rotate:
		cam.Azimuth(-20 / w * dx * t.MotionFactor)
		cam.Elevation(20 / h * dy * t.MotionFactor)
		cam.OrthogonalizeViewUp()
	case Pan:
		// World units per pixel at the focal plane
		scale := 2 * cam.Distance() * math.Tan(cam.ViewAngle*math.Pi/360) / h
		cam.Pan(-dx*scale, dy*scale)
	case Dolly:
		cam.Dolly(math.Pow(1.1, -t.MotionFactor*dy/(h/2)))
	}
	cam.ResetClippingRange(t.vp.Bounds())
	return true
}

// Wheel dollies the camera under (x, y) by steps notches, forward being
// positive
func (t *Trackball) Wheel(x, y int, steps float64) bool {
	vp := t.Window.ViewportAt(x, y)
	if vp == nil || vp.Camera == nil || steps == 0 {
		return false
	}
	vp.Camera.Dolly(math.Pow(1.1, 0.2*t.MotionFactor*steps))
	vp.Camera.ResetClippingRange(vp.Bounds())
	return true
}

// Reset frames the content of the viewport under (x, y), or of the first
// viewport when the pointer is outside the window
func (t *Trackball) Reset(x, y int) bool {
	vp := t.Window.ViewportAt(x, y)
	if vp == nil && len(t.Window.Viewports) > 0 {
		vp = t.Window.Viewports[0]
	}
	if vp == nil || vp.Camera == nil {
		return false
	}
	vp.ResetCamera()
	return true
}
