// Package vtkio reads and writes meshes in the legacy ASCII VTK polydata
// format.
package vtkio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
)

// Version is the legacy file format header written by Write
const Version = "# vtk DataFile Version 3.0"

// ErrFormat is returned for files that are not ASCII VTK polydata
var ErrFormat = errors.New("vtkio: invalid legacy VTK polydata")

// Write serializes mesh with the given title line. Titles longer than 255
// characters or containing newlines are rejected.
func Write(w io.Writer, mesh *models.Mesh, title string) error {
	if len(title) > 255 || strings.ContainsAny(title, "\r\n") {
		return fmt.Errorf("vtkio: invalid title %q", title)
	}
	if mesh == nil {
		mesh = &models.Mesh{}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Version)
	fmt.Fprintln(bw, title)
	fmt.Fprintln(bw, "ASCII")
	fmt.Fprintln(bw, "DATASET POLYDATA")

	fmt.Fprintf(bw, "POINTS %d double\n", len(mesh.Points))
	for _, p := range mesh.Points {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}

	if len(mesh.Lines) > 0 {
		size := 0
		for _, l := range mesh.Lines {
			size += len(l) + 1
		}
		fmt.Fprintf(bw, "LINES %d %d\n", len(mesh.Lines), size)
		for _, l := range mesh.Lines {
			writeCell(bw, l)
		}
	}

	if len(mesh.Triangles) > 0 {
		fmt.Fprintf(bw, "POLYGONS %d %d\n", len(mesh.Triangles), 4*len(mesh.Triangles))
		for _, t := range mesh.Triangles {
			writeCell(bw, t[:])
		}
	}

	if len(mesh.Scalars) > 0 {
		if len(mesh.Scalars) != len(mesh.Points) {
			return fmt.Errorf("vtkio: %d scalars for %d points", len(mesh.Scalars), len(mesh.Points))
		}
		name := mesh.ScalarName
		if name == "" {
			name = "scalars"
		}
		fmt.Fprintf(bw, "POINT_DATA %d\n", len(mesh.Points))
		fmt.Fprintf(bw, "SCALARS %s double 1\n", strings.ReplaceAll(name, " ", "_"))
		fmt.Fprintln(bw, "LOOKUP_TABLE default")
		for _, s := range mesh.Scalars {
			fmt.Fprintln(bw, formatFloat(s))
		}
	}

	return bw.Flush()
}

// WriteFile writes mesh to path, replacing any existing file
func WriteFile(path string, mesh *models.Mesh, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create VTK file: %w", err)
	}
	if err := Write(f, mesh, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCell(w *bufio.Writer, ids []int) {
	w.WriteString(strconv.Itoa(len(ids)))
	for _, id := range ids {
		w.WriteByte(' ')
		w.WriteString(strconv.Itoa(id))
	}
	w.WriteByte('\n')
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Read parses a legacy ASCII polydata file and returns the mesh and its
// title line. Polygons with more than three vertices are fan-triangulated;
// vertex cells are ignored.
func Read(r io.Reader) (*models.Mesh, string, error) {
	br := bufio.NewReader(r)

	version, err := readLine(br)
	if err != nil {
		return nil, "", err
	}
	if !strings.HasPrefix(version, "# vtk DataFile Version") {
		return nil, "", fmt.Errorf("%w: bad version line %q", ErrFormat, version)
	}
	title, err := readLine(br)
	if err != nil {
		return nil, "", err
	}
	encoding, err := readLine(br)
	if err != nil {
		return nil, "", err
	}
	if !strings.EqualFold(strings.TrimSpace(encoding), "ASCII") {
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", ErrFormat, encoding)
	}

	s := &scanner{r: br}
	if kw, _ := s.word(); !strings.EqualFold(kw, "DATASET") {
		return nil, "", fmt.Errorf("%w: expected DATASET, got %q", ErrFormat, kw)
	}
	if kind, _ := s.word(); !strings.EqualFold(kind, "POLYDATA") {
		return nil, "", fmt.Errorf("%w: dataset %q is not POLYDATA", ErrFormat, kind)
	}

	mesh := &models.Mesh{}
	for {
		kw, err := s.word()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}

		switch strings.ToUpper(kw) {
		case "POINTS":
			n := s.int()
			s.word() // data type
			mesh.Points = make([]r3.Vec, n)
			for i := range mesh.Points {
				mesh.Points[i] = r3.Vec{X: s.float(), Y: s.float(), Z: s.float()}
			}
		case "VERTICES":
			n, _ := s.int(), s.int()
			for i := 0; i < n; i++ {
				s.cell()
			}
		case "LINES":
			n, _ := s.int(), s.int()
			for i := 0; i < n; i++ {
				mesh.Lines = append(mesh.Lines, s.cell())
			}
		case "POLYGONS":
			n, _ := s.int(), s.int()
			for i := 0; i < n; i++ {
				ids := s.cell()
				for k := 1; k+1 < len(ids); k++ {
					mesh.Triangles = append(mesh.Triangles, [3]int{ids[0], ids[k], ids[k+1]})
				}
			}
		case "POINT_DATA":
			s.int()
		case "SCALARS":
			name, _ := s.word()
			s.word() // data type
			// The component count is optional and LOOKUP_TABLE follows
			next, _ := s.word()
			if !strings.EqualFold(next, "LOOKUP_TABLE") {
				if c, err := strconv.Atoi(next); err != nil || c != 1 {
					return nil, "", fmt.Errorf("%w: only single component scalars are supported", ErrFormat)
				}
				next, _ = s.word()
			}
			if !strings.EqualFold(next, "LOOKUP_TABLE") {
				return nil, "", fmt.Errorf("%w: expected LOOKUP_TABLE, got %q", ErrFormat, next)
			}
			s.word() // table name
			mesh.ScalarName = name
			mesh.Scalars = make([]float64, len(mesh.Points))
			for i := range mesh.Scalars {
				mesh.Scalars[i] = s.float()
			}
		default:
			return nil, "", fmt.Errorf("%w: unsupported section %q", ErrFormat, kw)
		}

		if s.err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrFormat, s.err)
		}
	}

	if err := validate(mesh); err != nil {
		return nil, "", err
	}
	return mesh, title, nil
}

// ReadFile reads a mesh from path
func ReadFile(path string) (*models.Mesh, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open VTK file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func validate(mesh *models.Mesh) error {
	n := len(mesh.Points)
	check := func(id int) error {
		if id < 0 || id >= n {
			return fmt.Errorf("%w: point index %d out of range [0, %d)", ErrFormat, id, n)
		}
		return nil
	}
	for _, l := range mesh.Lines {
		for _, id := range l {
			if err := check(id); err != nil {
				return err
			}
		}
	}
	for _, t := range mesh.Triangles {
		for _, id := range t {
			if err := check(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: truncated header", ErrFormat)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// scanner reads whitespace separated tokens and keeps the first error
type scanner struct {
	r   *bufio.Reader
	err error
}

func (s *scanner) word() (string, error) {
	var w string
	_, err := fmt.Fscan(s.r, &w)
	return w, err
}

func (s *scanner) int() int {
	if s.err != nil {
		return 0
	}
	var v int
	if _, err := fmt.Fscan(s.r, &v); err != nil {
		s.err = err
	}
	return v
}

func (s *scanner) float() float64 {
	if s.err != nil {
		return 0
	}
	w, err := s.word()
	if err != nil {
		s.err = err
		return 0
	}
	v, err := strconv.ParseFloat(w, 64)
	if err != nil {
		s.err = err
	}
	return v
}

func (s *scanner) cell() []int {
	n := s.int()
	if n < 0 {
		s.err = fmt.Errorf("negative cell size %d", n)
		return nil
	}
	ids := make([]int, 0, n)
	for i := 0; i < n && s.err == nil; i++ {
		ids = append(ids, s.int())
	}
	return ids
}
