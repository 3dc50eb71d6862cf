package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"voxelterrain/internal/mesher"
	"voxelterrain/internal/noise"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
	if err := cfg.MesherParams().Validate(); err != nil {
		t.Fatalf("default mesher params should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "non positive chunk dimensions",
			mutate: func(cfg *Config) {
				cfg.Chunk.Depth = 0
			},
			wantErr: "chunk dimensions must be positive",
		},
		{
			name: "non positive max extent",
			mutate: func(cfg *Config) {
				cfg.Chunk.MaxExtent = 0
			},
			wantErr: "chunk.maxExtent must be positive",
		},
		{
			name: "chunk larger than max extent",
			mutate: func(cfg *Config) {
				cfg.Chunk.Height = DefaultMaxChunkExtent + 1
			},
			wantErr: "chunk dimensions cannot exceed chunk.maxExtent (512)",
		},
		{
			name: "non positive voxel size",
			mutate: func(cfg *Config) {
				cfg.Mesh.UnitVoxelSize = 0
			},
			wantErr: "mesh.unitVoxelSize must be positive",
		},
		{
			name: "negative cell budget",
			mutate: func(cfg *Config) {
				cfg.Mesh.MaxCells = -1
			},
			wantErr: "mesh.maxCells cannot be negative",
		},
		{
			name: "negative workers",
			mutate: func(cfg *Config) {
				cfg.Mesh.Workers = -2
			},
			wantErr: "mesh.workers cannot be negative",
		},
		{
			name: "negative octave frequency",
			mutate: func(cfg *Config) {
				cfg.Terrain.Octaves[2].Frequency = -0.1
			},
			wantErr: "terrain.octaves[2].frequency cannot be negative",
		},
		{
			name: "unknown storage driver",
			mutate: func(cfg *Config) {
				cfg.Storage.Driver = "redis"
			},
			wantErr: `storage.driver "redis" is not supported`,
		},
		{
			name: "disk storage without path",
			mutate: func(cfg *Config) {
				cfg.Storage.Driver = "disk"
			},
			wantErr: `storage.path must be set for driver "disk"`,
		},
		{
			name: "missing listen address",
			mutate: func(cfg *Config) {
				cfg.Server.Listen = ""
			},
			wantErr: "server.listen must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Terrain.Seed = 99
	cfg.Server.Listen = ":9999"
	cfg.Server.WriteTimeout = Duration(750 * time.Millisecond)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Terrain.FloorOffset = -12
	cfg.Terrain.Octaves = []noise.Octave{{Frequency: 0.05, Amplitude: 10}}
	cfg.Storage = StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "meshes.db")}
	cfg.Server.ReadTimeout = Duration(2 * time.Second)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := "terrain:\n  seed: 7\nserver:\n  readTimeout: 1500000000\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Terrain.Seed != 7 {
		t.Fatalf("expected seed 7, got %d", got.Terrain.Seed)
	}
	if got.Server.ReadTimeout.Duration() != 1500*time.Millisecond {
		t.Fatalf("unexpected read timeout %v", got.Server.ReadTimeout.Duration())
	}
	if got.Chunk != Default().Chunk {
		t.Fatalf("chunk defaults lost: %#v", got.Chunk)
	}
	if !reflect.DeepEqual(got.Terrain.Octaves, DefaultOctaves()) {
		t.Fatalf("octave defaults lost: %#v", got.Terrain.Octaves)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Chunk.Width = 0

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: chunk dimensions must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{name: "string", input: `"250ms"`, want: 250 * time.Millisecond},
		{name: "integer nanoseconds", input: `1000`, want: time.Microsecond},
		{name: "empty string", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tt.input), &d); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if d.Duration() != tt.want {
				t.Fatalf("got %v want %v", d.Duration(), tt.want)
			}
		})
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("expected invalid duration to fail")
	}
}

func TestClamp(t *testing.T) {
	cfg := Default()
	cfg.Mesh.UnitVoxelSize = 45
	cfg.Terrain.FloorOffset = -250
	cfg.Clamp()
	if cfg.Mesh.UnitVoxelSize != MaxUnitVoxelSize {
		t.Fatalf("voxel size not clamped: %d", cfg.Mesh.UnitVoxelSize)
	}
	if cfg.Terrain.FloorOffset != MinFloorOffset {
		t.Fatalf("floor offset not clamped: %v", cfg.Terrain.FloorOffset)
	}

	cfg.Mesh.UnitVoxelSize = 0
	cfg.Terrain.FloorOffset = 40
	cfg.Clamp()
	if cfg.Mesh.UnitVoxelSize != MinUnitVoxelSize || cfg.Terrain.FloorOffset != 40 {
		t.Fatalf("unexpected clamp result: voxel %d floor %v", cfg.Mesh.UnitVoxelSize, cfg.Terrain.FloorOffset)
	}
}

func TestMesherParamsCopiesOctaves(t *testing.T) {
	cfg := Default()
	params := cfg.MesherParams()
	want := mesher.Params{
		Chunk:         mesher.Dimensions{Width: 150, Height: 64, Depth: 150},
		UnitVoxelSize: 2,
		IsoLevel:      0,
		FloorOffset:   16,
		Seed:          14,
		Octaves:       DefaultOctaves(),
		UseMidpoint:   true,
	}
	if !reflect.DeepEqual(params, want) {
		t.Fatalf("params mismatch:\nwant: %#v\n got: %#v", want, params)
	}

	params.Octaves[0].Amplitude = 1
	if cfg.Terrain.Octaves[0].Amplitude != 64 {
		t.Fatalf("mesher params alias the configuration octaves")
	}

	opts := cfg.MesherOptions()
	if opts.MaxCells != mesher.DefaultMaxCells || opts.Workers != 0 {
		t.Fatalf("unexpected options %#v", opts)
	}
}

func TestPresetLoadAndApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mountains.yaml")
	body := "name: mountains\nfloorOffset: -20\noctaves:\n  - frequency: 0.01\n    amplitude: 90\n  - frequency: 0.05\n    amplitude: 12\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	preset, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	if preset.Name != "mountains" || len(preset.Octaves) != 2 {
		t.Fatalf("unexpected preset %#v", preset)
	}

	cfg := Default()
	cfg.ApplyPreset(preset)
	if cfg.Terrain.FloorOffset != -20 {
		t.Fatalf("floor offset not applied: %v", cfg.Terrain.FloorOffset)
	}
	want := []noise.Octave{{Frequency: 0.01, Amplitude: 90}, {Frequency: 0.05, Amplitude: 12}}
	if !reflect.DeepEqual(cfg.Terrain.Octaves, want) {
		t.Fatalf("octaves not applied: %#v", cfg.Terrain.Octaves)
	}
	preset.Octaves[0].Amplitude = 0
	if cfg.Terrain.Octaves[0].Amplitude != 90 {
		t.Fatalf("applied octaves alias the preset")
	}
}

func TestLoadPresetRequiresOctaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flat.json")
	if err := os.WriteFile(path, []byte(`{"name":"flat","floorOffset":3}`), 0o600); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	if _, err := LoadPreset(path); err == nil {
		t.Fatalf("expected preset without octaves to fail")
	}
}
