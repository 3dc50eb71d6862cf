package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxelterrain/internal/mesher"
	"voxelterrain/internal/noise"
)

// Duration wraps time.Duration so configuration files can use human readable
// strings such as "150ms" while still accepting numeric nanoseconds.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string representation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode integer: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration: decode string: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Bounds the configuration layer keeps user input within. The mesher itself
// never clamps.
const (
	MinUnitVoxelSize = 1
	MaxUnitVoxelSize = 20
	MinFloorOffset   = -100
	MaxFloorOffset   = 100

	DefaultMaxChunkExtent = 512
)

// Config captures everything needed to build and serve terrain chunk meshes.
type Config struct {
	Terrain TerrainConfig `json:"terrain" yaml:"terrain"`
	Chunk   ChunkConfig   `json:"chunk" yaml:"chunk"`
	Mesh    MeshConfig    `json:"mesh" yaml:"mesh"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

type TerrainConfig struct {
	Seed        int64          `json:"seed" yaml:"seed"`
	IsoLevel    float32        `json:"isoLevel" yaml:"isoLevel"`
	FloorOffset float32        `json:"floorOffset" yaml:"floorOffset"`
	Octaves     []noise.Octave `json:"octaves" yaml:"octaves"`
}

type ChunkConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Depth  int `json:"depth" yaml:"depth"`
	// MaxExtent caps every chunk dimension, including ones requested over
	// the network.
	MaxExtent int `json:"maxExtent" yaml:"maxExtent"`
}

type MeshConfig struct {
	UnitVoxelSize int  `json:"unitVoxelSize" yaml:"unitVoxelSize"`
	UseMidpoint   bool `json:"useMidpoint" yaml:"useMidpoint"`
	MaxCells      int  `json:"maxCells" yaml:"maxCells"` // drawable cell budget per chunk
	Workers       int  `json:"workers" yaml:"workers"`   // 0 builds on the calling goroutine
}

type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"` // memory, disk or sqlite
	Path   string `json:"path" yaml:"path"`
}

type ServerConfig struct {
	Listen       string   `json:"listen" yaml:"listen"`
	ReadTimeout  Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

// DefaultOctaves is the stock frequency/amplitude ladder.
func DefaultOctaves() []noise.Octave {
	return []noise.Octave{
		{Frequency: 0.02, Amplitude: 64},
		{Frequency: 0.04, Amplitude: 32},
		{Frequency: 0.08, Amplitude: 16},
		{Frequency: 0.16, Amplitude: 8},
		{Frequency: 0.32, Amplitude: 4},
		{Frequency: 0.64, Amplitude: 2},
	}
}

// Load reads configuration from a JSON or YAML file, chosen by extension. An
// empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			Seed:        14,
			IsoLevel:    0,
			FloorOffset: 16,
			Octaves:     DefaultOctaves(),
		},
		Chunk: ChunkConfig{
			Width:     150,
			Height:    64,
			Depth:     150,
			MaxExtent: DefaultMaxChunkExtent,
		},
		Mesh: MeshConfig{
			UnitVoxelSize: 2,
			UseMidpoint:   true,
			MaxCells:      mesher.DefaultMaxCells,
			Workers:       0,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Server: ServerConfig{
			Listen:       ":8085",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
	}
}

func (c *Config) Validate() error {
	if c.Chunk.Width <= 0 || c.Chunk.Height <= 0 || c.Chunk.Depth <= 0 {
		return errors.New("chunk dimensions must be positive")
	}
	if c.Chunk.MaxExtent <= 0 {
		return errors.New("chunk.maxExtent must be positive")
	}
	if c.Chunk.Width > c.Chunk.MaxExtent || c.Chunk.Height > c.Chunk.MaxExtent || c.Chunk.Depth > c.Chunk.MaxExtent {
		return fmt.Errorf("chunk dimensions cannot exceed chunk.maxExtent (%d)", c.Chunk.MaxExtent)
	}
	if c.Mesh.UnitVoxelSize <= 0 {
		return errors.New("mesh.unitVoxelSize must be positive")
	}
	if c.Mesh.MaxCells < 0 {
		return errors.New("mesh.maxCells cannot be negative")
	}
	if c.Mesh.Workers < 0 {
		return errors.New("mesh.workers cannot be negative")
	}
	for i, octave := range c.Terrain.Octaves {
		if octave.Frequency < 0 {
			return fmt.Errorf("terrain.octaves[%d].frequency cannot be negative", i)
		}
	}
	switch c.Storage.Driver {
	case "memory":
	case "disk", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path must be set for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen must be set")
	}
	return nil
}

// Clamp keeps the unit voxel size and floor offset within their practical
// ranges.
func (c *Config) Clamp() {
	c.Mesh.UnitVoxelSize = clampInt(c.Mesh.UnitVoxelSize, MinUnitVoxelSize, MaxUnitVoxelSize)
	c.Terrain.FloorOffset = clampFloat(c.Terrain.FloorOffset, MinFloorOffset, MaxFloorOffset)
}

// Limits returns the bounds applied to chunk parameters that do not come from
// this file.
func (c *Config) Limits() Limits {
	return Limits{MaxExtent: c.Chunk.MaxExtent}
}

// MesherParams converts the configuration into mesher inputs.
func (c *Config) MesherParams() mesher.Params {
	octaves := make([]noise.Octave, len(c.Terrain.Octaves))
	copy(octaves, c.Terrain.Octaves)
	return mesher.Params{
		Chunk: mesher.Dimensions{
			Width:  c.Chunk.Width,
			Height: c.Chunk.Height,
			Depth:  c.Chunk.Depth,
		},
		UnitVoxelSize: c.Mesh.UnitVoxelSize,
		IsoLevel:      c.Terrain.IsoLevel,
		FloorOffset:   c.Terrain.FloorOffset,
		Seed:          c.Terrain.Seed,
		Octaves:       octaves,
		UseMidpoint:   c.Mesh.UseMidpoint,
	}
}

// MesherOptions converts the configuration into mesher tuning options.
func (c *Config) MesherOptions() mesher.Options {
	return mesher.Options{
		MaxCells: c.Mesh.MaxCells,
		Workers:  c.Mesh.Workers,
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
