package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxelterrain/internal/config"
	"voxelterrain/internal/network"
	"voxelterrain/internal/storage"
	"voxelterrain/internal/terrain"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to mesh server configuration file")
	flag.Parse()

	if _, err := writeConfigFromEnv(cfgPath); err != nil {
		log.Fatalf("sync config from environment: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Clamp()

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		log.Fatalf("open mesh store: %v", err)
	}
	defer store.Close()

	logger := log.New(log.Writer(), "meshserver ", log.LstdFlags|log.Lmicroseconds)
	opts := cfg.MesherOptions()
	opts.Logger = logger
	manager := terrain.NewManager(store, terrain.MesherGenerator{Options: opts}, logger)
	srv := network.NewServer(manager, cfg.MesherParams(), network.Options{
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		Limits:       cfg.Limits(),
		Logger:       logger,
	})

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.Run(ctx, cfg.Server.Listen); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
