package terrain

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"voxelterrain/internal/mesher"
	"voxelterrain/internal/noise"
	"voxelterrain/internal/storage"
)

type countingGenerator struct {
	calls atomic.Int32
	inner Generator
}

func (g *countingGenerator) Generate(ctx context.Context, p mesher.Params) (*mesher.Mesh, error) {
	g.calls.Add(1)
	return g.inner.Generate(ctx, p)
}

func testParams() mesher.Params {
	return mesher.Params{
		Chunk:         mesher.Dimensions{Width: 16, Height: 24, Depth: 16},
		UnitVoxelSize: 2,
		FloorOffset:   10,
		Seed:          14,
		Octaves: []noise.Octave{
			{Frequency: 0.08, Amplitude: 4},
			{Frequency: 0.16, Amplitude: 2},
		},
		UseMidpoint: false,
	}
}

func newTestManager(gen Generator) *Manager {
	return NewManager(storage.NewMemoryStore(), gen, log.New(io.Discard, "", 0))
}

func TestManagerCachesMeshes(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{inner: MesherGenerator{}}
	mgr := newTestManager(gen)

	first, err := mgr.Mesh(ctx, testParams())
	if err != nil {
		t.Fatalf("first mesh: %v", err)
	}
	second, err := mgr.Mesh(ctx, testParams())
	if err != nil {
		t.Fatalf("second mesh: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached mesh differs from the built one")
	}
	if calls := gen.calls.Load(); calls != 1 {
		t.Fatalf("expected a single build, got %d", calls)
	}
	if stats := mgr.Stats(); stats != (Stats{Hits: 1, Builds: 1}) {
		t.Fatalf("unexpected stats %#v", stats)
	}
}

func TestManagerRegenerateAlwaysBuilds(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{inner: MesherGenerator{}}
	mgr := newTestManager(gen)

	built, err := mgr.Mesh(ctx, testParams())
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	rebuilt, err := mgr.Regenerate(ctx, testParams())
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if calls := gen.calls.Load(); calls != 2 {
		t.Fatalf("expected two builds, got %d", calls)
	}
	if !reflect.DeepEqual(built, rebuilt) {
		t.Fatalf("regeneration with identical inputs must be deterministic")
	}
}

func TestManagerReseed(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(nil)

	original, err := mgr.Mesh(ctx, testParams())
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	reseeded, params, err := mgr.Reseed(ctx, testParams(), 99)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if params.Seed != 99 {
		t.Fatalf("expected seed 99, got %d", params.Seed)
	}
	if reflect.DeepEqual(original.Vertices, reseeded.Vertices) {
		t.Fatalf("reseeding did not change the terrain")
	}

	cached, err := mgr.Mesh(ctx, params)
	if err != nil {
		t.Fatalf("mesh after reseed: %v", err)
	}
	if !reflect.DeepEqual(cached, reseeded) {
		t.Fatalf("reseeded mesh was not stored")
	}
}

func TestManagerEvict(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{inner: MesherGenerator{}}
	mgr := newTestManager(gen)

	if _, err := mgr.Mesh(ctx, testParams()); err != nil {
		t.Fatalf("mesh: %v", err)
	}
	if err := mgr.Evict(ctx, testParams()); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if _, err := mgr.Mesh(ctx, testParams()); err != nil {
		t.Fatalf("mesh after evict: %v", err)
	}
	if calls := gen.calls.Load(); calls != 2 {
		t.Fatalf("expected a rebuild after eviction, got %d builds", calls)
	}
}

func TestManagerConcurrentCallersShareOneBuild(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{inner: MesherGenerator{Options: mesher.Options{Workers: 2}}}
	mgr := newTestManager(gen)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.Mesh(ctx, testParams()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent mesh: %v", err)
	}
	if calls := gen.calls.Load(); calls != 1 {
		t.Fatalf("expected one build, got %d", calls)
	}
	if len(mgr.locks) != 0 {
		t.Fatalf("build locks leaked: %d", len(mgr.locks))
	}
}

func TestManagerPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(nil)

	bad := testParams()
	bad.UnitVoxelSize = 0
	if _, err := mgr.Mesh(ctx, bad); !errors.Is(err, mesher.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}

	huge := testParams()
	huge.Chunk = mesher.Dimensions{Width: 250, Height: 1, Depth: 250}
	huge.UnitVoxelSize = 1
	huge.Octaves = nil
	huge.FloorOffset = 0.5
	if _, err := mgr.Regenerate(ctx, huge); !errors.Is(err, mesher.ErrTooManyVertices) {
		t.Fatalf("expected ErrTooManyVertices, got %v", err)
	}
	if stats := mgr.Stats(); stats.Builds != 0 {
		t.Fatalf("failed builds must not be counted: %#v", stats)
	}
}

func TestMesherGeneratorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{0, 2} {
		gen := MesherGenerator{Options: mesher.Options{Workers: workers}}
		if _, err := gen.Generate(ctx, testParams()); !errors.Is(err, context.Canceled) {
			t.Fatalf("workers %d: expected context.Canceled, got %v", workers, err)
		}
	}
}
