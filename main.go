package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"web/rentmap/api"
	"web/rentmap/cluster"
	"web/rentmap/config"
	"web/rentmap/listing"
	"web/rentmap/logger"
	"web/rentmap/runner"
)

func main() {
	cfg := config.Load()
	log := logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	exportPath := flag.String("export", "", "write the loaded pins to this file (.zst archive or JSON) and exit")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	pins, err := listing.Load(ctx, cfg)
	cancel()
	if err != nil {
		log.Error("pins_load_failed", "err", err)
		os.Exit(1)
	}

	if *exportPath != "" {
		if err := exportPins(*exportPath, pins); err != nil {
			log.Error("pins_export_failed", "path", *exportPath, "err", err)
			os.Exit(1)
		}
		log.Info("pins_exported", "path", *exportPath, "count", len(pins))
		return
	}

	store, err := runner.OpenSnapshotStore(cfg)
	if err != nil {
		log.Error("snapshot_store_failed", "backend", cfg.SnapshotBackend, "err", err)
		os.Exit(1)
	}
	opts := runner.OptionsFromConfig(cfg)
	opts.Store = store

	sessionRunner, err := runner.NewSessionRunner(pins, opts)
	if err != nil {
		log.Error("runner_init_failed", "err", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    *addr,
		Handler: api.NewServer(sessionRunner).Router(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("http_listen", "addr", *addr, "pins", len(pins), "strategy", opts.Cluster.Strategy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", "err", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutdown")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_failed", "err", err)
	}
	if err := sessionRunner.Shutdown(shutdownCtx); err != nil {
		log.Error("runner_shutdown_failed", "err", err)
	}
}

func exportPins(path string, pins cluster.PinSet) error {
	if strings.HasSuffix(path, ".zst") {
		return cluster.SavePinsCompressed(path, pins)
	}
	return cluster.SavePinsFile(path, pins)
}
