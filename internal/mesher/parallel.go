package mesher

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"

	"voxelterrain/internal/marching"
)

// GenerateParallel triangulates x-slabs on a worker pool and merges them in
// grid order, so the mesh and any budget error match Generate exactly.
func GenerateParallel(ctx context.Context, p Params, opts Options) (*Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	maxCells, err := opts.budget()
	if err != nil {
		return nil, err
	}

	slabs := cellsPerAxis(p.Chunk.Width, p.UnitVoxelSize)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > slabs {
		workers = slabs
	}

	field := p.Field()
	results := make([][]marching.Triangulation, slabs)
	errs := make([]error, slabs)

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	progress := newProgressLogger(opts.Logger, slabs)
	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
	)
	for i := 0; i < slabs; i++ {
		i := i
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = triangulateSlab(p, field, i*p.UnitVoxelSize)
			progressMu.Lock()
			progress.advance()
			progressMu.Unlock()
		})
	}
	wg.Wait()

	b := newBuilder(maxCells)
	for i, fragments := range results {
		if errs[i] != nil {
			return nil, errs[i]
		}
		for _, fragment := range fragments {
			if err := b.add(fragment); err != nil {
				return nil, err
			}
		}
	}
	progress.finish()

	return b.finish(), nil
}
