// Command server runs the knowledge service's HTTP façade: subscription,
// collection, resource, and query CRUD plus resource upload, grounded on
// the teacher's cmd/agentd main.go startup sequence (load env, init logger,
// load config, init OTel, build dependencies, serve).
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"knowledgeservice/internal/bootstrap"
	"knowledgeservice/internal/config"
	"knowledgeservice/internal/httpapi"
	"knowledgeservice/internal/observability"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		// Logger isn't initialized yet; this is a startup-time fatal.
		panic(err)
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without tracing")
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	runtime, metricsHandler, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("server: bootstrap failed")
	}
	defer runtime.Close()

	if cfg.Obs.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metricsHandler)
			if err := http.ListenAndServe(cfg.Obs.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("server: metrics listener stopped")
			}
		}()
	}

	server := httpapi.NewServer(runtime.Registry)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server: graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server: listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server: listen failed")
	}
}
