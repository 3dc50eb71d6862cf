package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"voxelterrain/internal/codec"
	"voxelterrain/internal/mesher"
)

const (
	diskOpDelete byte = 0
	diskOpSet    byte = 1

	// op, key length, payload length
	diskHeaderSize = 1 + 2 + 4
)

type diskRecordMeta struct {
	offset int64
	keyLen uint16
	size   uint32
}

// DiskStore is an append-only record log. Every Save and Delete appends a
// record; the key index is rebuilt by scanning the log on open, so the last
// record for a key wins.
type DiskStore struct {
	file    *os.File
	mu      sync.RWMutex
	records map[string]diskRecordMeta
}

// OpenDiskStore opens or creates the log at path.
func OpenDiskStore(path string) (*DiskStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open mesh store: disk store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mesh store directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open mesh store: %w", err)
	}
	store := &DiskStore{
		file:    f,
		records: make(map[string]diskRecordMeta),
	}
	if err := store.loadIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return store, nil
}

func (s *DiskStore) loadIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind mesh log: %w", err)
	}

	header := make([]byte, diskHeaderSize)
	var offset int64
	for {
		if _, err := io.ReadFull(s.file, header); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("truncated mesh record header: %w", err)
			}
			return fmt.Errorf("read mesh record header: %w", err)
		}
		op := header[0]
		keyLen := binary.LittleEndian.Uint16(header[1:3])
		size := binary.LittleEndian.Uint32(header[3:7])

		key := make([]byte, keyLen)
		if _, err := io.ReadFull(s.file, key); err != nil {
			return fmt.Errorf("read mesh record key: %w", err)
		}
		recordOffset := offset
		offset += int64(diskHeaderSize) + int64(keyLen) + int64(size)

		if _, err := s.file.Seek(int64(size), io.SeekCurrent); err != nil {
			return fmt.Errorf("seek past payload: %w", err)
		}
		if op == diskOpSet {
			s.records[string(key)] = diskRecordMeta{offset: recordOffset, keyLen: keyLen, size: size}
		} else {
			delete(s.records, string(key))
		}
	}

	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat mesh log: %w", err)
	}
	if info.Size() < offset {
		return fmt.Errorf("truncated mesh record payload: log is %d bytes, records need %d", info.Size(), offset)
	}
	return nil
}

func (s *DiskStore) Load(ctx context.Context, key string) (*mesher.Mesh, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	meta, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	payload := make([]byte, meta.size)
	at := meta.offset + diskHeaderSize + int64(meta.keyLen)
	if _, err := s.file.ReadAt(payload, at); err != nil {
		return nil, false, fmt.Errorf("read payload at %d: %w", at, err)
	}
	mesh, err := codec.UnmarshalMesh(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode mesh %s: %w", key, err)
	}
	return mesh, true, nil
}

func (s *DiskStore) Save(ctx context.Context, key string, mesh *mesher.Mesh) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mesh == nil {
		return errors.New("save mesh: mesh is nil")
	}
	payload := codec.MarshalMesh(mesh)
	record, err := encodeRecord(diskOpSet, key, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset, err := s.appendLocked(record)
	if err != nil {
		return err
	}
	s.records[key] = diskRecordMeta{offset: offset, keyLen: uint16(len(key)), size: uint32(len(payload))}
	return nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record, err := encodeRecord(diskOpDelete, key, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.appendLocked(record); err != nil {
		return err
	}
	delete(s.records, key)
	return nil
}

func encodeRecord(op byte, key string, payload []byte) ([]byte, error) {
	if len(key) > math.MaxUint16 {
		return nil, fmt.Errorf("mesh key of %d bytes is too long", len(key))
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("mesh payload of %d bytes is too large", len(payload))
	}
	record := make([]byte, diskHeaderSize, diskHeaderSize+len(key)+len(payload))
	record[0] = op
	binary.LittleEndian.PutUint16(record[1:3], uint16(len(key)))
	binary.LittleEndian.PutUint32(record[3:7], uint32(len(payload)))
	record = append(record, key...)
	record = append(record, payload...)
	return record, nil
}

// appendLocked writes record at the end of the log and returns its offset.
// s.mu must be held.
func (s *DiskStore) appendLocked(record []byte) (int64, error) {
	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek mesh log end: %w", err)
	}
	if _, err := s.file.Write(record); err != nil {
		return 0, fmt.Errorf("write mesh record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync mesh log: %w", err)
	}
	return offset, nil
}

// Keys returns the stored keys in sorted order.
func (s *DiskStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
