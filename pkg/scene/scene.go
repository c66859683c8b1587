// Package scene describes what is drawn: actors with display properties,
// groups of actors, cameras and the viewports of a window.
package scene

import (
	"fmt"
	"image"
	"math"

	"kneescan/internal/models"
	"kneescan/pkg/colormap"
)

// Property holds the display settings of an actor
type Property struct {
	// Color is the RGB surface color in [0, 1]
	Color [3]float64

	Opacity float64

	// BackfaceCulling hides triangles facing away from the camera
	BackfaceCulling bool

	// FrontfaceCulling hides triangles facing the camera
	FrontfaceCulling bool

	// ScalarVisibility colors points by their scalars through LUT
	ScalarVisibility bool
	LUT              *colormap.LookupTable
	ScalarRange      [2]float64

	// LineWidth is the pixel width of lines
	LineWidth float64
}

// DefaultProperty returns an opaque white property
func DefaultProperty() Property {
	return Property{
		Color:     [3]float64{1, 1, 1},
		Opacity:   1,
		LineWidth: 1,
	}
}

// IsTranslucent reports whether the actor needs blending
func (p Property) IsTranslucent() bool {
	return p.Opacity < 1
}

// Actor is a mesh drawn with a property
type Actor struct {
	Name     string
	Mesh     *models.Mesh
	Property Property
}

// NewActor creates an actor with the default property
func NewActor(name string, mesh *models.Mesh) *Actor {
	return &Actor{Name: name, Mesh: mesh, Property: DefaultProperty()}
}

// Visible reports whether the actor has anything to draw
func (a *Actor) Visible() bool {
	return a != nil && !a.Mesh.IsEmpty() && a.Property.Opacity > 0
}

// Group is a named set of actors shown together
type Group struct {
	Name  string
	Parts []*Actor
}

// NewGroup creates an empty group
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// AddPart appends an actor to the group
func (g *Group) AddPart(a *Actor) {
	g.Parts = append(g.Parts, a)
}

// Len returns the number of actors in the group
func (g *Group) Len() int {
	return len(g.Parts)
}

// Bounds returns the union of the bounds of all visible parts
func (g *Group) Bounds() models.Bounds {
	b := models.EmptyBounds()
	for _, a := range g.Parts {
		if a.Visible() {
			b = b.Union(a.Mesh.Bounds())
		}
	}
	return b
}

// Viewport is a region of the window with its own content and background.
// Rect is [xmin, ymin, xmax, ymax] in normalized window coordinates with y
// pointing up, so (0, 0.5, 0.5, 1) is the top-left quarter.
type Viewport struct {
	Rect       [4]float64
	Background [3]float64
	Groups     []*Group
	Camera     *Camera
}

// Label returns the name of the first group, used as the viewport title
func (v *Viewport) Label() string {
	if len(v.Groups) == 0 {
		return ""
	}
	return v.Groups[0].Name
}

// Bounds returns the union of the bounds of all groups
func (v *Viewport) Bounds() models.Bounds {
	b := models.EmptyBounds()
	for _, g := range v.Groups {
		b = b.Union(g.Bounds())
	}
	return b
}

// ResetCamera frames the viewport content with its camera
func (v *Viewport) ResetCamera() {
	if v.Camera != nil {
		v.Camera.Reset(v.Bounds())
	}
}

// Window is a set of viewports drawn into one pixel surface
type Window struct {
	Width, Height int
	Title         string
	Viewports     []*Viewport
}

// PixelRect returns the pixel rectangle of vp with y pointing down
func (w *Window) PixelRect(vp *Viewport) image.Rectangle {
	x0 := int(math.Round(vp.Rect[0] * float64(w.Width)))
	x1 := int(math.Round(vp.Rect[2] * float64(w.Width)))
	y0 := int(math.Round((1 - vp.Rect[3]) * float64(w.Height)))
	y1 := int(math.Round((1 - vp.Rect[1]) * float64(w.Height)))
	return image.Rect(x0, y0, x1, y1)
}

// ViewportAt returns the viewport containing pixel (x, y), or nil
func (w *Window) ViewportAt(x, y int) *Viewport {
	pt := image.Pt(x, y)
	for _, vp := range w.Viewports {
		if pt.In(w.PixelRect(vp)) {
			return vp
		}
	}
	return nil
}

// ResetCameras frames every viewport in order
func (w *Window) ResetCameras() {
	for _, vp := range w.Viewports {
		vp.ResetCamera()
	}
}

// LayoutOptions controls how Layout tiles the window
type LayoutOptions struct {
	Width, Height int
	Title         string

	// Cols is the number of viewports per row; rows follow from the group count
	Cols int

	// Backgrounds holds one tint per viewport
	Backgrounds [][3]float64
}

// Layout tiles one viewport per group, filling rows from the top left.
// Every viewport also shows the shared groups and looks through camera,
// which is reset to each viewport's content in turn.
func Layout(groups []*Group, shared []*Group, camera *Camera, opts LayoutOptions) (*Window, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("layout needs at least one group")
	}
	if opts.Cols < 1 {
		return nil, fmt.Errorf("layout needs at least one column, got %d", opts.Cols)
	}
	if len(opts.Backgrounds) < len(groups) {
		return nil, fmt.Errorf("layout needs %d backgrounds, got %d", len(groups), len(opts.Backgrounds))
	}
	if camera == nil {
		camera = NewCamera()
	}

	rows := (len(groups) + opts.Cols - 1) / opts.Cols
	w := &Window{Width: opts.Width, Height: opts.Height, Title: opts.Title}
	for i, g := range groups {
		col, row := i%opts.Cols, i/opts.Cols
		x := float64(col) / float64(opts.Cols)
		y := 1 - float64(row+1)/float64(rows)

		vp := &Viewport{
			Rect:       [4]float64{x, y, x + 1/float64(opts.Cols), y + 1/float64(rows)},
			Background: opts.Backgrounds[i],
			Groups:     append([]*Group{g}, shared...),
			Camera:     camera,
		}
		vp.ResetCamera()
		w.Viewports = append(w.Viewports, vp)
	}
	return w, nil
}
