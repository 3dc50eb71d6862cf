package config

import (
	"fmt"

	"voxelterrain/internal/mesher"
)

// Limits bounds mesher parameters supplied at runtime. The unit voxel size and
// floor offset are clamped the way Config.Clamp clamps them; oversized chunks
// are rejected.
type Limits struct {
	MaxExtent int
}

// Apply returns p clamped into range, or ErrInvalidConfiguration when a chunk
// dimension exceeds MaxExtent. A zero MaxExtent selects
// DefaultMaxChunkExtent.
func (l Limits) Apply(p mesher.Params) (mesher.Params, error) {
	maxExtent := l.MaxExtent
	if maxExtent <= 0 {
		maxExtent = DefaultMaxChunkExtent
	}
	if p.Chunk.Width > maxExtent || p.Chunk.Height > maxExtent || p.Chunk.Depth > maxExtent {
		return p, fmt.Errorf("%w: chunk %dx%dx%d exceeds the maximum extent of %d",
			mesher.ErrInvalidConfiguration, p.Chunk.Width, p.Chunk.Height, p.Chunk.Depth, maxExtent)
	}
	p.UnitVoxelSize = clampInt(p.UnitVoxelSize, MinUnitVoxelSize, MaxUnitVoxelSize)
	p.FloorOffset = clampFloat(p.FloorOffset, MinFloorOffset, MaxFloorOffset)
	return p, nil
}
