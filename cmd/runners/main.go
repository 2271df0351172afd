package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"web/rentmap/config"
	"web/rentmap/listing"
	"web/rentmap/logger"
	"web/rentmap/runner"
)

func main() {
	cfg := config.Load()
	log := logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	port := flag.Int("port", cfg.GRPCPort, "The gRPC server port")
	maxSessions := flag.Int("max-sessions", cfg.MaxSessions, "Maximum number of sessions to keep in memory")
	flag.Parse()
	cfg.MaxSessions = *maxSessions

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	pins, err := listing.Load(ctx, cfg)
	cancel()
	if err != nil {
		log.Error("pins_load_failed", "err", err)
		os.Exit(1)
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

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Error("listen_failed", "port", *port, "err", err)
		os.Exit(1)
	}

	s := grpc.NewServer()
	runner.RegisterSessionService(s, sessionRunner)

	// Enable reflection for debugging
	reflection.Register(s)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("grpc_shutdown")
		s.GracefulStop()
	}()

	log.Info("grpc_listen", "port", *port, "pins", len(pins), "max_sessions", cfg.MaxSessions)
	if err := s.Serve(lis); err != nil {
		log.Error("grpc_serve_failed", "err", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	sessionRunner.Shutdown(shutdownCtx)
}
