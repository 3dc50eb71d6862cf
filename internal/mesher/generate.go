// Package mesher turns the terrain density field into an indexed chunk mesh
// with marching cubes.
package mesher

import (
	"context"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/marching"
)

// Options tune a chunk build without changing the mesh it produces.
type Options struct {
	// MaxCells is the drawable cell budget. Zero selects DefaultMaxCells.
	MaxCells int
	// Workers bounds the pool used by GenerateParallel. Zero selects GOMAXPROCS.
	Workers int
	// Logger receives progress lines. Nil disables progress logging.
	Logger *log.Logger
}

func (o Options) budget() (int, error) {
	switch {
	case o.MaxCells < 0:
		return 0, fmt.Errorf("%w: cell budget cannot be negative, got %d", ErrInvalidConfiguration, o.MaxCells)
	case o.MaxCells == 0:
		return DefaultMaxCells, nil
	default:
		return o.MaxCells, nil
	}
}

// Generate walks the chunk grid, triangulates every cell and merges the
// fragments into one mesh. It fails with ErrInvalidConfiguration before the
// walk and with ErrTooManyVertices once the cell budget is reached; no partial
// mesh is returned in either case.
func Generate(p Params, opts Options) (*Mesh, error) {
	return GenerateContext(context.Background(), p, opts)
}

// GenerateContext is Generate with cancellation, checked once per x-slab.
func GenerateContext(ctx context.Context, p Params, opts Options) (*Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	maxCells, err := opts.budget()
	if err != nil {
		return nil, err
	}

	field := p.Field()
	b := newBuilder(maxCells)
	progress := newProgressLogger(opts.Logger, cellsPerAxis(p.Chunk.Width, p.UnitVoxelSize))

	for x := 0; x < p.Chunk.Width; x += p.UnitVoxelSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fragments, err := triangulateSlab(p, field, x)
		if err != nil {
			return nil, err
		}
		for _, fragment := range fragments {
			if err := b.add(fragment); err != nil {
				return nil, err
			}
		}
		progress.advance()
	}
	progress.finish()

	return b.finish(), nil
}

// triangulateSlab processes every cell with origin x, in (y, z) order, and
// returns the fragments of the drawable ones.
func triangulateSlab(p Params, field marching.Sampler, x int) ([]marching.Triangulation, error) {
	var fragments []marching.Triangulation
	for y := 0; y < p.Chunk.Height; y += p.UnitVoxelSize {
		for z := 0; z < p.Chunk.Depth; z += p.UnitVoxelSize {
			cell := marching.NewCell(mgl32.Vec3{float32(x), float32(y), float32(z)}, p.UnitVoxelSize)
			if err := cell.Classify(p.IsoLevel, field); err != nil {
				return nil, err
			}
			if !cell.Case().Drawable() {
				continue
			}
			fragment, err := cell.Triangulate(p.IsoLevel, p.UseMidpoint)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, fragment)
		}
	}
	return fragments, nil
}

type progressLogger struct {
	logger   *log.Logger
	total    int
	done     int
	next     int
	complete bool
}

func newProgressLogger(logger *log.Logger, total int) *progressLogger {
	p := &progressLogger{logger: logger, total: total, next: 10}
	if logger != nil {
		logger.Printf("chunk generation progress: 0%%")
	}
	return p
}

func (p *progressLogger) advance() {
	p.done++
	if p.logger == nil || p.total <= 0 {
		return
	}
	progress := p.done * 100 / p.total
	if progress < p.next {
		return
	}
	if progress > 100 {
		progress = 100
	}
	p.logger.Printf("chunk generation progress: %d%%", progress)
	if progress >= 100 {
		p.complete = true
		p.next = 110
		return
	}
	p.next = (progress/10 + 1) * 10
}

func (p *progressLogger) finish() {
	if p.logger != nil && !p.complete {
		p.logger.Printf("chunk generation progress: 100%%")
	}
}
