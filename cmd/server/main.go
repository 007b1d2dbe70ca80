package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Gather/internal/adapters/http"
	"github.com/dkeye/Gather/internal/app"
	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/config"
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/logging"
	"github.com/dkeye/Gather/internal/world"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console logger until the configured one is in place.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logs, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logs.Close()

	m, err := loadWorld(cfg.World)
	if err != nil {
		log.Fatal().Err(err).Str("map", cfg.World.MapPath).Msg("failed to load world map")
	}
	w, h := m.Bounds()
	log.Info().Float64("width", w).Float64("height", h).Msg("world ready")

	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.PolicyFromName(cfg.Policy.Backpressure), &app.Metrics{}, orch.Options{
		Spawner:   core.NewSpawner(m, cfg.Spawn.Attempts, core.DefaultSpawn, nil),
		Zones:     m,
		AutoZone:  cfg.Mesh.AutoZone,
		QueueSize: cfg.QueueSize,
	})
	go func() {
		if err := o.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("orchestrator stopped")
		}
	}()

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Gather server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func loadWorld(cfg config.WorldConfig) (*world.Map, error) {
	if cfg.MapPath == "" {
		return world.Open(cfg.Width, cfg.Height), nil
	}
	return world.Load(cfg.MapPath)
}
