// Package storage persists generated chunk meshes keyed by their parameter
// fingerprint.
package storage

import (
	"context"
	"errors"
	"fmt"

	"voxelterrain/internal/mesher"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverDisk   = "disk"
	DriverSQLite = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Store provides persistent storage for chunk meshes.
type Store interface {
	// Load returns the mesh saved under key. The boolean is false when no
	// mesh is stored.
	Load(ctx context.Context, key string) (*mesher.Mesh, bool, error)
	Save(ctx context.Context, key string, mesh *mesher.Mesh) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the store selected by driver. Disk and SQLite stores live at
// path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverDisk:
		return OpenDiskStore(path)
	case DriverSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("open mesh store: %w: %q", ErrUnknownDriver, driver)
	}
}
