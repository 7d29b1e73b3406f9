package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/qvox/qvox-server/internal/component"
	"github.com/qvox/qvox-server/internal/config"
	"github.com/qvox/qvox-server/internal/engine"
	"github.com/qvox/qvox-server/internal/service/logger"
	taskmanager "github.com/qvox/qvox-server/internal/task_manager"
	"github.com/qvox/qvox-server/internal/telemetry"
	"github.com/qvox/qvox-server/internal/web"
)

func main() {
	ctx := context.Background()

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger.Init(cfg.SERVICE_NAME)

	if cfg.TRACE_URL != "" {
		shutdownTelemetry, err := telemetry.Init(ctx, cfg.SERVICE_NAME, cfg.TRACE_URL)
		if err != nil {
			log.Fatalf("error initialising telemetry: %v", err)
		}
		defer shutdownTelemetry(ctx)
	}

	engineCfg, err := config.GetEngineConfig()
	if err != nil {
		log.Fatalf("engine config error: %v", err)
	}

	webCfg, err := config.GetWebConfig()
	if err != nil {
		log.Fatalf("web config error: %v", err)
	}

	cache, err := component.GetCache(cfg.CACHE_TYPE)
	if err != nil {
		log.Fatalf("cache initialization error: %v", err)
	}

	storage, err := component.GetStorage(cfg.STORAGE_TYPE)
	if err != nil {
		log.Fatalf("storage initialization error: %v", err)
	}

	backend, err := component.GetSynthesizer(engineCfg.DEVICE)
	if err != nil {
		log.Fatalf("synthesizer initialization error: %v", err)
	}

	eng := engine.New(backend, engineCfg.MODELS, engineCfg.MODEL_SIZE)
	tasks := taskmanager.NewManager()

	server := web.NewServer(eng, storage, cache, tasks, webCfg)

	srv := &http.Server{
		Addr:              cfg.HTTP_ADDR,
		Handler:           server.Router(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Log.Info().Str("addr", cfg.HTTP_ADDR).Msg("HTTP server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info().Msg("trying to shutdown server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}

	// No new work can arrive; stop what is still running.
	tasks.CancelAll()

	shutdownCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	shutdown := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(shutdownCtx)
		}()
	}
	shutdown(cache.ShutDown)
	shutdown(storage.ShutDown)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info().Msg("server shutdown gracefully.")
	case <-shutdownCtx.Done():
		logger.Log.Info().Msg("server graceful shutdown timedout..")
	}
}
