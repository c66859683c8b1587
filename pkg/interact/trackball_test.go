package interact

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/scene"
)

// testWindow has two 200x100 viewports side by side sharing one camera
// that looks at a unit box from z = 10
func testWindow() (*scene.Window, *scene.Camera) {
	g := scene.NewGroup("box")
	g.AddPart(scene.NewActor("box", &models.Mesh{
		Points: []r3.Vec{{X: -1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: 1}},
		Lines:  [][]int{{0, 1}},
	}))

	cam := scene.NewCamera()
	cam.Position = r3.Vec{Z: 10}
	win := &scene.Window{Width: 400, Height: 100}
	win.Viewports = []*scene.Viewport{
		{Rect: [4]float64{0, 0, 0.5, 1}, Groups: []*scene.Group{g}, Camera: cam},
		{Rect: [4]float64{0.5, 0, 1, 1}, Groups: []*scene.Group{g}, Camera: cam},
	}
	return win, cam
}

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestTrackballRotate(t *testing.T) {
	win, cam := testWindow()
	tb := NewTrackball(win)

	want := cam.Clone()
	// 50 pixels across a 200 pixel viewport is -50 degrees of azimuth
	want.Azimuth(-50)
	want.Elevation(0)
	want.OrthogonalizeViewUp()

	if !tb.Start(Rotate, 100, 50) {
		t.Fatal("Start should find the left viewport")
	}
	if tb.Mode() != Rotate {
		t.Errorf("Mode %v, want rotate", tb.Mode())
	}
	if !tb.Move(150, 50) {
		t.Fatal("Move should change the camera")
	}
	if !near(cam.Position, want.Position) {
		t.Errorf("Position %v, want %v", cam.Position, want.Position)
	}
	if math.Abs(cam.Distance()-10) > 1e-9 {
		t.Errorf("Rotation changed the distance to %f", cam.Distance())
	}

	// Dragging down by a tenth of the height tilts the camera up by 20 degrees
	before := cam.Clone()
	tb.Move(150, 60)
	before.Elevation(20)
	before.OrthogonalizeViewUp()
	if !near(cam.Position, before.Position) {
		t.Errorf("Position %v, want %v", cam.Position, before.Position)
	}

	if tb.Move(150, 60) {
		t.Error("Move without motion should report no change")
	}
	tb.End()
	if tb.Move(10, 10) {
		t.Error("Move after End should do nothing")
	}
}

func TestTrackballPan(t *testing.T) {
	win, cam := testWindow()
	tb := NewTrackball(win)

	tb.Start(Pan, 300, 50)
	tb.Move(310, 50)
	tb.End()

	// The scene follows the pointer, so the camera moves left
	if cam.FocalPoint.X >= 0 || cam.FocalPoint.Y != 0 {
		t.Errorf("Focal point %v, want negative x", cam.FocalPoint)
	}
	if cam.Position.X != cam.FocalPoint.X || cam.Position.Z != 10 {
		t.Errorf("Pan changed the view direction: position %v", cam.Position)
	}
	wantShift := 10 * 2 * 10 * math.Tan(15*math.Pi/180) / 100
	if math.Abs(-cam.FocalPoint.X-wantShift) > 1e-9 {
		t.Errorf("Shift %f, want %f", -cam.FocalPoint.X, wantShift)
	}
}

func TestTrackballDolly(t *testing.T) {
	win, cam := testWindow()
	tb := NewTrackball(win)

	// Dragging up by half the height moves in by 1.1^10
	tb.Start(Dolly, 100, 80)
	tb.Move(100, 30)
	if want := 10 / math.Pow(1.1, 10); math.Abs(cam.Distance()-want) > 1e-9 {
		t.Errorf("Distance %f, want %f", cam.Distance(), want)
	}
	tb.End()

	d := cam.Distance()
	if !tb.Wheel(100, 50, 1) {
		t.Fatal("Wheel should dolly the camera")
	}
	if want := d / math.Pow(1.1, 2); math.Abs(cam.Distance()-want) > 1e-9 {
		t.Errorf("Distance after wheel %f, want %f", cam.Distance(), want)
	}
	if tb.Wheel(100, 50, 0) || tb.Wheel(-5, 50, 1) {
		t.Error("Wheel without steps or outside the window should do nothing")
	}
}

func TestTrackballReset(t *testing.T) {
	win, cam := testWindow()
	tb := NewTrackball(win)

	tb.Start(Pan, 100, 50)
	tb.Move(140, 20)
	tb.End()

	if !tb.Reset(-1, -1) {
		t.Fatal("Reset should fall back to the first viewport")
	}
	if !near(cam.FocalPoint, r3.Vec{}) {
		t.Errorf("Focal point %v, want the box center", cam.FocalPoint)
	}
}

func TestTrackballStartOutside(t *testing.T) {
	win, _ := testWindow()
	tb := NewTrackball(win)
	if tb.Start(Rotate, 500, 50) {
		t.Error("Start outside the window should fail")
	}
	if tb.Start(None, 100, 50) {
		t.Error("Start without a mode should fail")
	}
	if tb.Mode() != None {
		t.Errorf("Mode %v, want none", tb.Mode())
	}
}
