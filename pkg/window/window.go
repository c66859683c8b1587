// Package window shows a rendered scene in a desktop window and forwards
// mouse and keyboard input to a trackball camera.
//
// Left drag rotates, middle or shift+left drag pans, right drag and the
// wheel dolly. 'r' resets the camera under the pointer, 'p' saves a
// snapshot and 'q' or Escape closes the window.
package window

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"kneescan/pkg/interact"
	"kneescan/pkg/render"
	"kneescan/pkg/scene"
)

// Options controls the window behaviour
type Options struct {
	// SnapshotPath is where 'p' saves the current frame; empty disables it
	SnapshotPath string
}

// Run opens a window showing win and blocks until it closes
func Run(win *scene.Window, r *render.Renderer, opts Options) error {
	g := &game{
		win:       win,
		renderer:  r,
		trackball: interact.NewTrackball(win),
		opts:      opts,
		dirty:     true,
	}
	ebiten.SetWindowTitle(win.Title)
	ebiten.SetWindowSize(win.Width, win.Height)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type game struct {
	win       *scene.Window
	renderer  *render.Renderer
	trackball *interact.Trackball
	opts      Options

	img   *image.RGBA
	frame *ebiten.Image
	dirty bool
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	x, y := ebiten.CursorPosition()
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && shift:
		g.trackball.Start(interact.Pan, x, y)
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.trackball.Start(interact.Rotate, x, y)
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonMiddle):
		g.trackball.Start(interact.Pan, x, y)
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight):
		g.trackball.Start(interact.Dolly, x, y)
	}

	if g.trackball.Mode() != interact.None {
		if g.trackball.Move(x, y) {
			g.dirty = true
		}
		if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) &&
			!ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) &&
			!ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
			g.trackball.End()
		}
	}

	if _, wy := ebiten.Wheel(); wy != 0 && g.trackball.Wheel(x, y, wy) {
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) && g.trackball.Reset(x, y) {
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) && g.opts.SnapshotPath != "" && g.img != nil {
		if err := render.Save(g.opts.SnapshotPath, g.img); err != nil {
			fmt.Printf("Warning: failed to save snapshot: %v\n", err)
		} else {
			fmt.Printf("Snapshot saved to: %s\n", g.opts.SnapshotPath)
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.dirty || g.img == nil {
		g.img = g.renderer.RenderWindow(g.win)
		if g.frame == nil {
			g.frame = ebiten.NewImage(g.win.Width, g.win.Height)
		}
		g.frame.WritePixels(g.img.Pix)
		g.dirty = false
	}
	screen.DrawImage(g.frame, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.win.Width, g.win.Height
}
