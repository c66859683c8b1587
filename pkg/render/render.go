// Package render draws a scene window into an image with the fauxgl
// software rasterizer: per-vertex headlight shading, face culling and
// back-to-front blending of translucent actors.
package render

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fogleman/fauxgl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
	"kneescan/pkg/scene"
)

// Renderer holds the lighting and annotation settings
type Renderer struct {
	// Ambient is the share of light that does not depend on orientation
	Ambient float64

	// Labels draws the viewport label in the top-left corner
	Labels bool
}

// New returns a renderer with labels and a mostly diffuse light
func New() *Renderer {
	return &Renderer{Ambient: 0.25, Labels: true}
}

// RenderWindow draws every viewport of win into a new image. Viewports
// cover disjoint pixels and are drawn concurrently.
func (r *Renderer) RenderWindow(win *scene.Window) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, win.Width, win.Height))
	var g errgroup.Group
	for _, vp := range win.Viewports {
		g.Go(func() error {
			r.Render(img, win.PixelRect(vp), vp)
			return nil
		})
	}
	g.Wait()
	return img
}

// Render draws vp into the rect part of dst
func (r *Renderer) Render(dst *image.RGBA, rect image.Rectangle, vp *scene.Viewport) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}

	dc := fauxgl.NewContext(rect.Dx(), rect.Dy())
	bg := vp.Background
	dc.ClearColorBufferWith(fauxgl.Color{R: bg[0], G: bg[1], B: bg[2], A: 1})

	if cam := vp.Camera; cam != nil {
		var opaque, translucent []*scene.Actor
		for _, g := range vp.Groups {
			for _, a := range g.Parts {
				switch {
				case !a.Visible():
				case a.Property.IsTranslucent():
					translucent = append(translucent, a)
				default:
					opaque = append(opaque, a)
				}
			}
		}

		// Far translucent actors first
		slices.SortStableFunc(translucent, func(a, b *scene.Actor) int {
			da := r3.Norm(r3.Sub(a.Mesh.Bounds().Center(), cam.Position))
			db := r3.Norm(r3.Sub(b.Mesh.Bounds().Center(), cam.Position))
			return cmp.Compare(db, da)
		})

		matrix := viewProjection(cam, float64(rect.Dx())/float64(rect.Dy()))
		for _, a := range opaque {
			r.drawActor(dc, matrix, cam, a)
		}
		for _, a := range translucent {
			r.drawActor(dc, matrix, cam, a)
		}
	}

	draw.Draw(dst, rect, dc.Image(), image.Point{}, draw.Src)
	if r.Labels {
		drawLabel(dst, rect, vp.Label())
	}
}

// viewProjection maps world coordinates to clip space for cam
func viewProjection(cam *scene.Camera, aspect float64) fauxgl.Matrix {
	near, far := cam.ClippingRange[0], cam.ClippingRange[1]
	if near <= 0 {
		near = 0.01
	}
	if far <= near {
		far = near + 1000
	}
	view := fauxgl.LookAt(vector(cam.Position), vector(cam.FocalPoint), vector(cam.ViewUp))
	return fauxgl.Perspective(cam.ViewAngle, aspect, near, far).Mul(view)
}

func vector(v r3.Vec) fauxgl.Vector {
	return fauxgl.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// lineBias pulls lines slightly in front of coincident surfaces
const lineBias = -1e-5

func (r *Renderer) drawActor(dc *fauxgl.Context, matrix fauxgl.Matrix, cam *scene.Camera, a *scene.Actor) {
	mesh := a.Mesh
	prop := a.Property
	opacity := math.Min(1, prop.Opacity)

	dc.Shader = &headlightShader{
		matrix:  matrix,
		eye:     vector(cam.Position),
		ambient: r.Ambient,
		opacity: opacity,
	}
	dc.WriteDepth = opacity >= 1
	dc.AlphaBlend = true
	dc.FrontFace = fauxgl.FaceCCW
	switch {
	case prop.BackfaceCulling && prop.FrontfaceCulling:
		return
	case prop.BackfaceCulling:
		dc.Cull = fauxgl.CullBack
	case prop.FrontfaceCulling:
		dc.Cull = fauxgl.CullFront
	default:
		dc.Cull = fauxgl.CullNone
	}

	verts := vertices(mesh, prop)
	if len(mesh.Triangles) > 0 {
		tris := make([]*fauxgl.Triangle, len(mesh.Triangles))
		for i, tri := range mesh.Triangles {
			tris[i] = fauxgl.NewTriangle(verts[tri[0]], verts[tri[1]], verts[tri[2]])
		}

		if opacity < 1 {
			// Blend far triangles first, one at a time to keep the order
			dist := func(t *fauxgl.Triangle) float64 {
				c := t.V1.Position.Add(t.V2.Position).Add(t.V3.Position).DivScalar(3)
				return c.Distance(vector(cam.Position))
			}
			slices.SortStableFunc(tris, func(p, q *fauxgl.Triangle) int {
				return cmp.Compare(dist(q), dist(p))
			})
			for _, t := range tris {
				dc.DrawTriangle(t)
			}
		} else {
			dc.DrawTriangles(tris)
		}
	}

	if len(mesh.Lines) > 0 {
		// Lines are never culled and not lit
		dc.Cull = fauxgl.CullNone
		dc.LineWidth = math.Max(1, prop.LineWidth)
		dc.DepthBias = lineBias
		for _, line := range mesh.Lines {
			for k := 0; k+1 < len(line); k++ {
				p, q := verts[line[k]], verts[line[k+1]]
				p.Normal, q.Normal = fauxgl.Vector{}, fauxgl.Vector{}
				dc.DrawLine(fauxgl.NewLine(p, q))
			}
		}
		dc.DepthBias = 0
	}
}

// vertices converts the mesh points with their base colors and, for
// surfaces, their normals
func vertices(mesh *models.Mesh, prop scene.Property) []fauxgl.Vertex {
	useScalars := prop.ScalarVisibility && prop.LUT != nil && len(mesh.Scalars) == len(mesh.Points)

	var normals []r3.Vec
	if len(mesh.Triangles) > 0 {
		normals = mesh.PointNormals()
	}

	out := make([]fauxgl.Vertex, len(mesh.Points))
	for i, p := range mesh.Points {
		base := prop.Color
		if useScalars {
			c := prop.LUT.Map(mesh.Scalars[i], prop.ScalarRange[0], prop.ScalarRange[1])
			base = [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
		}
		v := fauxgl.Vertex{
			Position: vector(p),
			Color:    fauxgl.Color{R: base[0], G: base[1], B: base[2], A: 1},
		}
		if normals != nil {
			v.Normal = vector(normals[i])
		}
		out[i] = v
	}
	return out
}

// headlightShader lights vertices from the camera position on both sides
// of a surface. Vertices without a normal keep their color.
type headlightShader struct {
	matrix  fauxgl.Matrix
	eye     fauxgl.Vector
	ambient float64
	opacity float64
}

func (s *headlightShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = s.matrix.MulPositionW(v.Position)
	if v.Normal != (fauxgl.Vector{}) {
		light := s.eye.Sub(v.Position).Normalize()
		k := s.ambient + (1-s.ambient)*math.Abs(v.Normal.Normalize().Dot(light))
		if math.IsNaN(k) {
			// Degenerate triangle
			k = s.ambient
		}
		v.Color = fauxgl.Color{R: v.Color.R * k, G: v.Color.G * k, B: v.Color.B * k, A: v.Color.A}
	}
	return v
}

// Fragment snaps the color to 8-bit levels. fauxgl truncates when it
// stores a color, so every channel is nudged to the middle of its level.
func (s *headlightShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	level := func(x float64) float64 {
		return (math.Round(255*math.Max(0, math.Min(1, x))) + 0.5) / 255
	}
	return fauxgl.Color{R: level(v.Color.R), G: level(v.Color.G), B: level(v.Color.B), A: level(s.opacity)}
}

func drawLabel(dst draw.Image, rect image.Rectangle, text string) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(rect.Min.X+6, rect.Min.Y+16),
	}
	d.DrawString(text)
}

// Save writes img as PNG or JPEG depending on the file extension
func Save(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
	if err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}
