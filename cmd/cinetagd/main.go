package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cinetag/internal/config"
	"cinetag/internal/ipc"
	"cinetag/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := buildDaemon(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, socketPath(cfg), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("cinetagd shutting down")
}
