package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iurnickita/primelabel/internal/archive"
	"github.com/iurnickita/primelabel/internal/artifact"
	"github.com/iurnickita/primelabel/internal/config"
	"github.com/iurnickita/primelabel/internal/handler"
	"github.com/iurnickita/primelabel/internal/logger"
	"github.com/iurnickita/primelabel/internal/service"
	"github.com/iurnickita/primelabel/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	artifacts, err := artifact.NewArtifacts(ctx, cfg.Artifact)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	archive, err := archive.NewArchive(ctx, cfg.Archive)
	if err != nil {
		return err
	}

	service, err := service.NewService(cfg.Service, store, zaplog,
		service.WithArtifacts(artifacts),
		service.WithArchive(archive),
	)
	if err != nil {
		return err
	}

	if cfg.Service.SyncInterval > 0 {
		zaplog.Info("background sync enabled", zap.Duration("interval", cfg.Service.SyncInterval))
		go service.RunSync(ctx, cfg.Service.SyncInterval)
	}

	return handler.Serve(ctx, cfg.Handler, service, zaplog)
}
