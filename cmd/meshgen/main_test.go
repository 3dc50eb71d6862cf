package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"voxelterrain/internal/codec"
	"voxelterrain/internal/config"
	"voxelterrain/internal/mesher"
)

func writeSmallConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Chunk.Width, cfg.Chunk.Height, cfg.Chunk.Depth = 16, 32, 16
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRunWritesOBJToStdout(t *testing.T) {
	cfgPath := writeSmallConfig(t, t.TempDir())

	var out bytes.Buffer
	if err := run([]string{"-config", cfgPath}, &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.HasPrefix(text, "# ") {
		t.Fatalf("missing obj header: %q", text[:min(len(text), 40)])
	}
	if !strings.Contains(text, "\nv ") || !strings.Contains(text, "\nvn ") || !strings.Contains(text, "\nf ") {
		t.Fatalf("obj output lacks vertex, normal or face records")
	}
}

func TestRunWritesMeshFileMatchingSequentialBuild(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeSmallConfig(t, dir)
	outPath := filepath.Join(dir, "chunk.mesh")

	args := []string{"-config", cfgPath, "-format", "mesh", "-seed", "3", "-parallel", "4", "-out", outPath}
	if err := run(args, io.Discard, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got, err := codec.UnmarshalMesh(data)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Terrain.Seed = 3
	want, err := mesher.Generate(cfg.MesherParams(), mesher.Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parallel cli output differs from a sequential build")
	}
}

func TestRunAppliesPreset(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeSmallConfig(t, dir)
	presetPath := filepath.Join(dir, "flat.yaml")
	preset := "name: flat\nfloorOffset: 5.5\noctaves:\n  - frequency: 0\n    amplitude: 0\n"
	if err := os.WriteFile(presetPath, []byte(preset), 0o600); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	outPath := filepath.Join(dir, "flat.mesh")

	if err := run([]string{"-config", cfgPath, "-preset", presetPath, "-format", "mesh", "-out", outPath}, io.Discard, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	mesh, err := codec.UnmarshalMesh(data)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	min, max := mesh.Bounds()
	if min.Y() != max.Y() {
		t.Fatalf("flat preset produced a non planar surface: %v..%v", min, max)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := run([]string{"-format", "stl"}, io.Discard, quietLogger()); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
	if err := run([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}, io.Discard, quietLogger()); err == nil {
		t.Fatalf("expected missing config to fail")
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Chunk.Width, cfg.Chunk.Height, cfg.Chunk.Depth = 250, 1, 250
	cfg.Mesh.UnitVoxelSize = 1
	cfg.Terrain.FloorOffset = 0.5
	cfg.Terrain.Octaves = nil
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "huge.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err = run([]string{"-config", path}, io.Discard, quietLogger())
	if !errors.Is(err, mesher.ErrTooManyVertices) {
		t.Fatalf("expected ErrTooManyVertices, got %v", err)
	}
}
