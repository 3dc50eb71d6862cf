package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"voxelterrain/internal/codec"
	"voxelterrain/internal/config"
	"voxelterrain/internal/mesher"
)

func main() {
	logger := log.New(os.Stderr, "meshgen ", log.LstdFlags)
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(args []string, stdout io.Writer, logger *log.Logger) error {
	fs := flag.NewFlagSet("meshgen", flag.ContinueOnError)
	var (
		cfgPath    string
		presetPath string
		seed       int64
		outPath    string
		format     string
		workers    int
	)
	fs.StringVar(&cfgPath, "config", "", "path to mesh configuration file (json or yaml)")
	fs.StringVar(&presetPath, "preset", "", "path to a biome preset overriding octaves and floor offset")
	fs.Int64Var(&seed, "seed", 0, "terrain seed (defaults to the configured seed)")
	fs.StringVar(&outPath, "out", "-", "output file, - for stdout")
	fs.StringVar(&format, "format", "obj", "output format: obj or mesh")
	fs.IntVar(&workers, "parallel", 0, "worker count for parallel generation, 0 builds sequentially")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if format != "obj" && format != "mesh" {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if presetPath != "" {
		preset, err := config.LoadPreset(presetPath)
		if err != nil {
			return err
		}
		cfg.ApplyPreset(preset)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Terrain.Seed = seed
		case "parallel":
			cfg.Mesh.Workers = workers
		}
	})
	cfg.Clamp()

	params := cfg.MesherParams()
	opts := cfg.MesherOptions()
	opts.Logger = logger

	var mesh *mesher.Mesh
	if opts.Workers > 0 {
		mesh, err = mesher.GenerateParallel(context.Background(), params, opts)
	} else {
		mesh, err = mesher.Generate(params, opts)
	}
	if err != nil {
		return fmt.Errorf("generate chunk mesh: %w", err)
	}
	logger.Printf("generated %d vertices, %d triangles (seed %d)", len(mesh.Vertices), mesh.TriangleCount(), params.Seed)

	write := func(w io.Writer) error {
		if format == "mesh" {
			_, err := w.Write(codec.MarshalMesh(mesh))
			return err
		}
		return codec.WriteOBJ(w, mesh)
	}

	if outPath == "-" {
		if err := write(stdout); err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		return nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", format, err)
	}
	return f.Close()
}
