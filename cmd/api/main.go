package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"web/rentmap/api"
	"web/rentmap/config"
	"web/rentmap/logger"
	"web/rentmap/runner"
)

func main() {
	cfg := config.Load()
	log := logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	runnerAddr := flag.String("runner", cfg.RunnerAddr, "Session runner gRPC address")
	flag.Parse()

	// Connect to session runner
	client, err := runner.Dial(*runnerAddr)
	if err != nil {
		log.Error("runner_dial_failed", "addr", *runnerAddr, "err", err)
		os.Exit(1)
	}
	defer client.Shutdown()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    *addr,
		Handler: api.NewServer(client).Router(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("http_listen", "addr", *addr, "runner", *runnerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", "err", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("http_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http_shutdown_failed", "err", err)
	}
}
