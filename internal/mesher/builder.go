package mesher

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/marching"
)

// builder accumulates cell fragments into one indexed mesh. Positions are
// deduplicated by exact equality; indices are assigned in insertion order.
type builder struct {
	lookup   map[mgl32.Vec3]uint32
	vertices []mgl32.Vec3
	indices  []uint32
	cells    int
	maxCells int
}

func newBuilder(maxCells int) *builder {
	return &builder{
		lookup:   make(map[mgl32.Vec3]uint32),
		maxCells: maxCells,
	}
}

// insert returns the index of v, assigning the next one if v is new.
func (b *builder) insert(v mgl32.Vec3) uint32 {
	if idx, ok := b.lookup[v]; ok {
		return idx
	}
	idx := uint32(len(b.vertices))
	b.lookup[v] = idx
	b.vertices = append(b.vertices, v)
	return idx
}

// add merges one drawable cell. It fails once the cell budget is reached.
func (b *builder) add(tri marching.Triangulation) error {
	for _, v := range tri.Vertices {
		b.insert(v)
	}
	for _, v := range tri.Triangles {
		b.indices = append(b.indices, b.lookup[v])
	}
	b.cells++
	if b.cells >= b.maxCells {
		return fmt.Errorf("%w: %d drawable cells reached the budget of %d", ErrTooManyVertices, b.cells, b.maxCells)
	}
	return nil
}

func (b *builder) finish() *Mesh {
	return &Mesh{
		Vertices: b.vertices,
		Indices:  b.indices,
		Normals:  recalculateNormals(b.vertices, b.indices),
	}
}
