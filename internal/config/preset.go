package config

import (
	"fmt"
	"os"

	"voxelterrain/internal/noise"
)

// Preset is a reusable biome: a floor offset and its octave ladder.
type Preset struct {
	Name        string         `json:"name" yaml:"name"`
	FloorOffset float32        `json:"floorOffset" yaml:"floorOffset"`
	Octaves     []noise.Octave `json:"octaves" yaml:"octaves"`
}

// LoadPreset reads a biome preset from a JSON or YAML file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	var preset Preset
	if err := decode(path, data, &preset); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if len(preset.Octaves) == 0 {
		return nil, fmt.Errorf("preset %q defines no octaves", path)
	}
	return &preset, nil
}

// ApplyPreset replaces the terrain octaves and floor offset with the preset's.
func (c *Config) ApplyPreset(p *Preset) {
	if p == nil {
		return
	}
	c.Terrain.FloorOffset = p.FloorOffset
	c.Terrain.Octaves = make([]noise.Octave, len(p.Octaves))
	copy(c.Terrain.Octaves, p.Octaves)
}
