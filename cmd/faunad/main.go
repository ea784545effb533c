package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"fauna/internal/config"
	"fauna/internal/daemon"
	"fauna/internal/logging"
	"fauna/internal/queue"
	"fauna/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to the fauna config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
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

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	mgr := worker.NewManager(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("faunad shutting down")
}
