// Package marching implements per-cell marching cubes: corner classification
// against an isosurface threshold and table-driven triangulation.
package marching

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Sentinel terminates a TriangleTable row.
	Sentinel = -1

	// DegenerateEpsilon is the smallest density difference along an edge that
	// is still interpolated linearly. Closer densities fall back to the midpoint.
	DegenerateEpsilon = 1e-6

	cornerCount = 8
	edgeCount   = 12
)

var (
	// ErrNotDrawable reports a cell that lies entirely on one side of the isosurface.
	ErrNotDrawable = errors.New("cell is not drawable")
	// ErrCellUsed reports a second classification of the same cell.
	ErrCellUsed = errors.New("cell already classified")
	// ErrCellUnclassified reports triangulation before classification.
	ErrCellUnclassified = errors.New("cell not classified")
)

// Case is the 8-bit classification of a cell. Bit i is set when corner i has a
// density strictly below the isosurface threshold.
type Case uint8

const (
	CaseEmpty Case = 0
	CaseFull  Case = 255
)

// Drawable reports whether the isosurface passes through the cell.
func (c Case) Drawable() bool {
	return c != CaseEmpty && c != CaseFull
}

// Sampler evaluates the scalar density field.
type Sampler interface {
	Density(p mgl32.Vec3) float32
}

// Corners returns the corner positions of the cell at origin with edge length size.
func Corners(origin mgl32.Vec3, size float32) [cornerCount]mgl32.Vec3 {
	var corners [cornerCount]mgl32.Vec3
	for i, offset := range CornerOffsets {
		corners[i] = origin.Add(mgl32.Vec3(offset).Mul(size))
	}
	return corners
}

// Sample evaluates the field at every corner.
func Sample(corners [cornerCount]mgl32.Vec3, field Sampler) [cornerCount]float32 {
	var densities [cornerCount]float32
	for i, corner := range corners {
		densities[i] = field.Density(corner)
	}
	return densities
}

// Classify computes the case index for corner densities. A density equal to
// isoLevel does not set its bit.
func Classify(densities [cornerCount]float32, isoLevel float32) Case {
	var c Case
	for i, d := range densities {
		if d < isoLevel {
			c |= 1 << i
		}
	}
	return c
}

// CrossedEdges lists, in ascending order, the edges the isosurface crosses for c.
func CrossedEdges(c Case) []int {
	mask := EdgeTable[c]
	edges := make([]int, 0, edgeCount)
	for i := 0; i < edgeCount; i++ {
		if mask&(1<<i) != 0 {
			edges = append(edges, i)
		}
	}
	return edges
}

// TriangleEdges lists the triangle edge sequence for c; its length is a
// multiple of three.
func TriangleEdges(c Case) []int {
	row := TriangleTable[c]
	edges := make([]int, 0, len(row))
	for i := 0; i+2 < len(row) && row[i] != Sentinel; i += 3 {
		edges = append(edges, int(row[i]), int(row[i+1]), int(row[i+2]))
	}
	return edges
}

// Midpoint returns the mean of a and b.
func Midpoint(a, b mgl32.Vec3) mgl32.Vec3 {
	return a.Add(b).Mul(0.5)
}

// Interpolate places the isosurface crossing on segment ab from the densities
// at its ends. Nearly equal densities fall back to the midpoint.
func Interpolate(a, b mgl32.Vec3, densityA, densityB, isoLevel float32) mgl32.Vec3 {
	delta := densityB - densityA
	if math.Abs(float64(delta)) < DegenerateEpsilon {
		return Midpoint(a, b)
	}
	t := (isoLevel - densityA) / delta
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(b.Sub(a).Mul(t))
}

// Triangulation is the surface fragment of one cell.
type Triangulation struct {
	// Vertices holds one crossing point per crossed edge, in CrossedEdges order.
	Vertices []mgl32.Vec3
	// Triangles holds three crossing points per triangle, in winding order.
	Triangles []mgl32.Vec3
}

// Triangulate builds the surface fragment for a classified cell. It returns
// ErrNotDrawable for empty and full cells.
func Triangulate(c Case, corners [cornerCount]mgl32.Vec3, densities [cornerCount]float32, isoLevel float32, useMidpoint bool) (Triangulation, error) {
	if !c.Drawable() {
		return Triangulation{}, ErrNotDrawable
	}

	edges := CrossedEdges(c)
	var crossing [edgeCount]mgl32.Vec3
	vertices := make([]mgl32.Vec3, len(edges))
	for i, edge := range edges {
		a, b := EdgeCorners[edge][0], EdgeCorners[edge][1]
		if useMidpoint {
			vertices[i] = Midpoint(corners[a], corners[b])
		} else {
			vertices[i] = Interpolate(corners[a], corners[b], densities[a], densities[b], isoLevel)
		}
		crossing[edge] = vertices[i]
	}

	triEdges := TriangleEdges(c)
	triangles := make([]mgl32.Vec3, len(triEdges))
	for i, edge := range triEdges {
		triangles[i] = crossing[edge]
	}

	return Triangulation{Vertices: vertices, Triangles: triangles}, nil
}

type cellPhase uint8

const (
	phaseNew cellPhase = iota
	phaseClassified
	phaseDone
)

// Cell is one cube of the sampling grid. It is single use: Classify once,
// then Triangulate once.
type Cell struct {
	corners   [cornerCount]mgl32.Vec3
	densities [cornerCount]float32
	caseIndex Case
	phase     cellPhase
}

// NewCell returns an unclassified cell with its minimum corner at origin.
func NewCell(origin mgl32.Vec3, unitSize int) *Cell {
	return &Cell{
		corners: Corners(origin, float32(unitSize)),
	}
}

// Classify samples the field at the corners and records the case index.
func (c *Cell) Classify(isoLevel float32, field Sampler) error {
	if c.phase != phaseNew {
		return ErrCellUsed
	}
	c.densities = Sample(c.corners, field)
	c.caseIndex = Classify(c.densities, isoLevel)
	c.phase = phaseClassified
	return nil
}

// Case returns the case index recorded by Classify.
func (c *Cell) Case() Case {
	return c.caseIndex
}

// Densities returns the sampled corner densities.
func (c *Cell) Densities() [cornerCount]float32 {
	return c.densities
}

// Triangulate produces the cell's surface fragment. isoLevel must match the
// value passed to Classify.
func (c *Cell) Triangulate(isoLevel float32, useMidpoint bool) (Triangulation, error) {
	switch c.phase {
	case phaseNew:
		return Triangulation{}, ErrCellUnclassified
	case phaseDone:
		return Triangulation{}, ErrCellUsed
	}
	c.phase = phaseDone
	return Triangulate(c.caseIndex, c.corners, c.densities, isoLevel, useMidpoint)
}
