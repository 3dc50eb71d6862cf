// Package terrain serves chunk meshes, building them on demand and keeping
// the results in a mesh store.
package terrain

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"voxelterrain/internal/mesher"
	"voxelterrain/internal/storage"
)

// Generator builds the mesh of one chunk.
type Generator interface {
	Generate(ctx context.Context, p mesher.Params) (*mesher.Mesh, error)
}

// MesherGenerator builds meshes with the chunk mesher. A positive worker
// count selects the parallel path.
type MesherGenerator struct {
	Options mesher.Options
}

func (g MesherGenerator) Generate(ctx context.Context, p mesher.Params) (*mesher.Mesh, error) {
	if g.Options.Workers > 0 {
		return mesher.GenerateParallel(ctx, p, g.Options)
	}
	return mesher.GenerateContext(ctx, p, g.Options)
}

// Stats counts store hits and mesh builds.
type Stats struct {
	Hits   uint64
	Builds uint64
}

// Manager hands out chunk meshes keyed by their parameter fingerprint.
type Manager struct {
	store     storage.Store
	generator Generator
	logger    *log.Logger

	// per-key build locks
	mu    sync.Mutex
	locks map[string]*keyLock

	hits   atomic.Uint64
	builds atomic.Uint64
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store storage.Store, generator Generator, logger *log.Logger) *Manager {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	if generator == nil {
		generator = MesherGenerator{}
	}
	if logger == nil {
		logger = log.New(log.Writer(), "terrain ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Manager{
		store:     store,
		generator: generator,
		logger:    logger,
		locks:     make(map[string]*keyLock),
	}
}

// Mesh returns the stored mesh for p, building and storing it first when the
// store has none.
func (m *Manager) Mesh(ctx context.Context, p mesher.Params) (*mesher.Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	key := p.Key()
	unlock := m.lock(key)
	defer unlock()

	mesh, ok, err := m.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load chunk mesh: %w", err)
	}
	if ok {
		m.hits.Add(1)
		return mesh, nil
	}
	return m.build(ctx, key, p)
}

// Regenerate rebuilds the mesh for p from scratch and replaces the stored
// copy.
func (m *Manager) Regenerate(ctx context.Context, p mesher.Params) (*mesher.Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	key := p.Key()
	unlock := m.lock(key)
	defer unlock()
	return m.build(ctx, key, p)
}

// Reseed regenerates the chunk described by p with a different seed. The
// returned params carry the new seed.
func (m *Manager) Reseed(ctx context.Context, p mesher.Params, seed int64) (*mesher.Mesh, mesher.Params, error) {
	p.Seed = seed
	mesh, err := m.Regenerate(ctx, p)
	if err != nil {
		return nil, p, err
	}
	return mesh, p, nil
}

// Evict drops the stored mesh for p.
func (m *Manager) Evict(ctx context.Context, p mesher.Params) error {
	key := p.Key()
	unlock := m.lock(key)
	defer unlock()
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("evict chunk mesh: %w", err)
	}
	return nil
}

func (m *Manager) Stats() Stats {
	return Stats{
		Hits:   m.hits.Load(),
		Builds: m.builds.Load(),
	}
}

func (m *Manager) build(ctx context.Context, key string, p mesher.Params) (*mesher.Mesh, error) {
	mesh, err := m.generator.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	m.builds.Add(1)
	if err := m.store.Save(ctx, key, mesh); err != nil {
		return nil, fmt.Errorf("store chunk mesh: %w", err)
	}
	m.logger.Printf("built chunk mesh %s: %d vertices, %d triangles", key, len(mesh.Vertices), mesh.TriangleCount())
	return mesh, nil
}

func (m *Manager) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
