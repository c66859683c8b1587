package filters

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"kneescan/internal/models"
)

// uvSphere builds a closed latitude/longitude sphere with outward winding
func uvSphere(center r3.Vec, radius float64, stacks, slices int) *models.Mesh {
	m := &models.Mesh{}
	m.Points = append(m.Points, r3.Add(center, r3.Vec{Z: radius}))

	for i := 1; i < stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		for j := 0; j < slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			p := r3.Vec{
				X: radius * math.Sin(phi) * math.Cos(theta),
				Y: radius * math.Sin(phi) * math.Sin(theta),
				Z: radius * math.Cos(phi),
			}
			m.Points = append(m.Points, r3.Add(center, p))
		}
	}
	south := len(m.Points)
	m.Points = append(m.Points, r3.Add(center, r3.Vec{Z: -radius}))

	ring := func(i, j int) int { return 1 + (i-1)*slices + j%slices }
	for j := 0; j < slices; j++ {
		m.Triangles = append(m.Triangles, [3]int{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < stacks-1; i++ {
		for j := 0; j < slices; j++ {
			a0, a1 := ring(i, j), ring(i, j+1)
			c0, c1 := ring(i+1, j), ring(i+1, j+1)
			m.Triangles = append(m.Triangles, [3]int{a0, c0, c1}, [3]int{a0, c1, a1})
		}
	}
	for j := 0; j < slices; j++ {
		m.Triangles = append(m.Triangles, [3]int{ring(stacks-1, j), south, ring(stacks-1, j+1)})
	}
	return m
}
