package mesher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"voxelterrain/internal/noise"
)

// DefaultMaxCells is the drawable cell budget of one chunk mesh, the largest
// vertex count the rendering target accepts for a single mesh.
const DefaultMaxCells = 60000

var (
	// ErrInvalidConfiguration reports parameters rejected before the grid walk.
	ErrInvalidConfiguration = errors.New("invalid mesh configuration")
	// ErrTooManyVertices reports a chunk that exceeds the cell budget.
	ErrTooManyVertices = errors.New("too many vertices for mesh (try lowering the chunk size or raising the unit voxel size)")
)

// Dimensions is the chunk extent in grid units.
type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Depth  int `json:"depth" yaml:"depth"`
}

// Params are the inputs of one chunk build.
type Params struct {
	Chunk         Dimensions
	UnitVoxelSize int
	IsoLevel      float32
	FloorOffset   float32
	Seed          int64
	Octaves       []noise.Octave
	UseMidpoint   bool
}

// Validate rejects non-positive chunk dimensions and voxel sizes.
func (p Params) Validate() error {
	if p.Chunk.Width <= 0 || p.Chunk.Height <= 0 || p.Chunk.Depth <= 0 {
		return fmt.Errorf("%w: chunk dimensions must be positive, got %dx%dx%d",
			ErrInvalidConfiguration, p.Chunk.Width, p.Chunk.Height, p.Chunk.Depth)
	}
	if p.UnitVoxelSize <= 0 {
		return fmt.Errorf("%w: unit voxel size must be positive, got %d", ErrInvalidConfiguration, p.UnitVoxelSize)
	}
	return nil
}

// Field returns the density field described by the parameters.
func (p Params) Field() noise.Field {
	return noise.NewField(p.Seed, p.FloorOffset, p.Octaves)
}

// Key fingerprints every input that affects the produced mesh.
func (p Params) Key() string {
	buf := make([]byte, 0, 64+8*len(p.Octaves))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Chunk.Width))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Chunk.Height))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Chunk.Depth))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.UnitVoxelSize))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.IsoLevel))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(p.FloorOffset))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Seed))
	if p.UseMidpoint {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Octaves)))
	for _, octave := range p.Octaves {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(octave.Frequency))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(octave.Amplitude))
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:16])
}

// cellsPerAxis is the number of grid steps along an axis of length extent.
func cellsPerAxis(extent, step int) int {
	return (extent + step - 1) / step
}
