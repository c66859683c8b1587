package filters

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"kneescan/internal/models"
)

// DistanceScalarName labels the distance field on the output mesh
const DistanceScalarName = "Distance"

// DistanceOptions controls the bone-to-skin distance computation
type DistanceOptions struct {
	// Neighbors is the number of nearest target vertices whose incident
	// triangles are searched first for every source point
	Neighbors int

	// Signed makes points behind the target surface negative
	Signed bool

	// NumCores specifies how many goroutines share the work
	NumCores int
}

// DefaultDistanceOptions returns signed distances over 8 neighbours on all cores
func DefaultDistanceOptions() DistanceOptions {
	return DistanceOptions{Neighbors: 8, Signed: true, NumCores: runtime.NumCPU()}
}

// surfacePoint is a target vertex stored in the KD-tree
type surfacePoint struct {
	r3.Vec
	index int
}

// Compare implements the kdtree.Comparable interface
func (p surfacePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(surfacePoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p surfacePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p surfacePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(surfacePoint)
	d := r3.Sub(p.Vec, q.Vec)
	return r3.Dot(d, d)
}

// surfacePoints is a collection of surfacePoint that satisfies kdtree.Interface
type surfacePoints []surfacePoint

func (p surfacePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p surfacePoints) Len() int                              { return len(p) }
func (p surfacePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p surfacePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{surfacePoints: p, Dim: d}, kdtree.MedianOfMedians(pointPlane{surfacePoints: p, Dim: d}))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for surfacePoints
type pointPlane struct {
	surfacePoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.surfacePoints[i].X < p.surfacePoints[j].X
	case 1:
		return p.surfacePoints[i].Y < p.surfacePoints[j].Y
	case 2:
		return p.surfacePoints[i].Z < p.surfacePoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{surfacePoints: p.surfacePoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.surfacePoints[i], p.surfacePoints[j] = p.surfacePoints[j], p.surfacePoints[i]
}

// Distance computes, for every point of source, the shortest distance to the
// target surface and returns a copy of source carrying it as point scalars.
// The triangles around the opts.Neighbors nearest target vertices are tried
// first. The search then widens to every vertex within the found distance
// plus the longest target edge, so the result is exact and Neighbors only
// trades tree queries against triangle tests.
// With Signed set, points on the back side of the closest target triangle
// (inside a closed, outward-wound surface) are negative.
func Distance(ctx context.Context, source, target *models.Mesh, opts DistanceOptions) (*models.Mesh, error) {
	if source.IsEmpty() {
		return nil, fmt.Errorf("distance source mesh is empty")
	}
	if target.IsEmpty() || target.TriangleCount() == 0 {
		return nil, fmt.Errorf("distance target mesh has no triangles")
	}
	if opts.Neighbors < 1 {
		opts.Neighbors = 1
	}
	if opts.NumCores < 1 {
		opts.NumCores = 1
	}

	// Index the target vertices and the triangles touching each of them
	pts := make(surfacePoints, len(target.Points))
	for i, p := range target.Points {
		pts[i] = surfacePoint{Vec: p, index: i}
	}
	tree := kdtree.New(pts, false)

	incident := make([][]int, len(target.Points))
	for t, tri := range target.Triangles {
		for _, idx := range tri {
			incident[idx] = append(incident[idx], t)
		}
	}
	normals := make([]r3.Vec, len(target.Triangles))
	maxEdge := 0.0
	for t, tri := range target.Triangles {
		normals[t] = target.TriangleNormal(t)
		for k := range tri {
			edge := r3.Norm(r3.Sub(target.Points[tri[k]], target.Points[tri[(k+1)%3]]))
			maxEdge = math.Max(maxEdge, edge)
		}
	}

	out := source.Clone()
	out.Scalars = make([]float64, len(source.Points))
	out.ScalarName = DistanceScalarName

	// Process the points in parallel chunks, one goroutine per core
	chunk := (len(source.Points) + opts.NumCores - 1) / opts.NumCores
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumCores)

	for start := 0; start < len(source.Points); start += chunk {
		start := start
		end := min(start+chunk, len(source.Points))
		g.Go(func() error {
			seen := make(map[int]struct{})
			for i := start; i < end; i++ {
				if (i-start)%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				p := source.Points[i]

				best := math.Inf(1)
				bestTri := -1
				var bestPoint r3.Vec
				clear(seen)
				visit := func(v int) {
					for _, t := range incident[v] {
						if _, ok := seen[t]; ok {
							continue
						}
						seen[t] = struct{}{}

						tri := target.Triangles[t]
						q := closestPointOnTriangle(p, target.Points[tri[0]], target.Points[tri[1]], target.Points[tri[2]])
						if d := r3.Norm(r3.Sub(p, q)); d < best {
							best, bestTri, bestPoint = d, t, q
						}
					}
				}

				keeper := kdtree.NewNKeeper(opts.Neighbors)
				tree.NearestSet(keeper, surfacePoint{Vec: p})

				nearest, farthest := math.Inf(1), 0.0
				found := 0
				for _, item := range keeper.Heap {
					// Skip the sentinel value
					if item.Comparable == nil {
						continue
					}
					found++
					nearest = math.Min(nearest, item.Dist)
					farthest = math.Max(farthest, item.Dist)
					visit(item.Comparable.(surfacePoint).index)
				}

				// A triangle closer than best has every vertex within
				// best+maxEdge of p. Search that ball when the neighbours
				// stop short of it.
				if bestTri >= 0 && found == opts.Neighbors {
					if reach := best + maxEdge; farthest < reach*reach {
						wide := kdtree.NewDistKeeper(reach * reach)
						tree.NearestSet(wide, surfacePoint{Vec: p})
						for _, item := range wide.Heap {
							if item.Comparable != nil {
								visit(item.Comparable.(surfacePoint).index)
							}
						}
					}
				}

				if bestTri < 0 {
					// Isolated vertices only; fall back to the vertex distance
					best = math.Sqrt(nearest)
				} else if opts.Signed && r3.Dot(r3.Sub(p, bestPoint), normals[bestTri]) < 0 {
					best = -best
				}
				out.Scalars[i] = best
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("distance computation aborted: %w", err)
	}
	return out, nil
}

// DistanceSummary describes a distance field
type DistanceSummary struct {
	Min, Max     float64
	Mean, StdDev float64

	// Inside counts the points with a negative distance
	Inside int
}

// Summarize returns the statistics of the scalars of field. ok is false
// when field carries no scalars.
func Summarize(field *models.Mesh) (s DistanceSummary, ok bool) {
	if field == nil || len(field.Scalars) == 0 {
		return s, false
	}
	s.Min = floats.Min(field.Scalars)
	s.Max = floats.Max(field.Scalars)
	s.Mean, s.StdDev = stat.MeanStdDev(field.Scalars, nil)
	for _, v := range field.Scalars {
		if v < 0 {
			s.Inside++
		}
	}
	return s, true
}

// closestPointOnTriangle returns the point of triangle abc nearest to p
func closestPointOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)
	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab))
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
