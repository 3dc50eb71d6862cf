package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voxelterrain/internal/codec"
	"voxelterrain/internal/mesher"
)

// MeshRecord is the database row of one stored mesh.
type MeshRecord struct {
	ID        string `gorm:"primaryKey"` // parameter fingerprint
	Vertices  int
	Triangles int
	Data      []byte // protobuf wire encoded mesh
	UpdatedAt time.Time
}

// SQLiteStore persists meshes in a SQLite database through gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens (or creates) the database at path and migrates the
// mesh table.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open mesh store: sqlite store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mesh store directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open mesh store: %w", err)
	}
	if err := db.AutoMigrate(&MeshRecord{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate mesh store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (*mesher.Mesh, bool, error) {
	var record MeshRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load mesh %s: %w", key, err)
	}
	mesh, err := codec.UnmarshalMesh(record.Data)
	if err != nil {
		return nil, false, fmt.Errorf("decode mesh %s: %w", key, err)
	}
	return mesh, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, mesh *mesher.Mesh) error {
	if mesh == nil {
		return errors.New("save mesh: mesh is nil")
	}
	record := MeshRecord{
		ID:        key,
		Vertices:  len(mesh.Vertices),
		Triangles: mesh.TriangleCount(),
		Data:      codec.MarshalMesh(mesh),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("save mesh %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&MeshRecord{}, "id = ?", key).Error; err != nil {
		return fmt.Errorf("delete mesh %s: %w", key, err)
	}
	return nil
}

// Count reports the number of stored meshes.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&MeshRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count meshes: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return closeDB(s.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
