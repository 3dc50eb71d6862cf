package storage

import (
	"context"
	"sync"

	"voxelterrain/internal/mesher"
)

// MemoryStore keeps meshes in a map. Meshes are copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	meshes map[string]*mesher.Mesh
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meshes: make(map[string]*mesher.Mesh),
	}
}

func (m *MemoryStore) Load(ctx context.Context, key string) (*mesher.Mesh, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	mesh, ok := m.meshes[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return mesh.Clone(), true, nil
}

func (m *MemoryStore) Save(ctx context.Context, key string, mesh *mesher.Mesh) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dup := mesh.Clone()
	m.mu.Lock()
	m.meshes[key] = dup
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.meshes, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored meshes.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.meshes)
}

func (m *MemoryStore) Close() error {
	return nil
}
