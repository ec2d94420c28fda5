package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kinshuk1456/summit-checkin-app/internal/catalog"
	"github.com/kinshuk1456/summit-checkin-app/internal/config"
	"github.com/kinshuk1456/summit-checkin-app/internal/httpapi"
	"github.com/kinshuk1456/summit-checkin-app/internal/logger"
	"github.com/kinshuk1456/summit-checkin-app/internal/mirror"
	"github.com/kinshuk1456/summit-checkin-app/internal/repository"
	"github.com/kinshuk1456/summit-checkin-app/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "summit-checkin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting summit-checkin service",
		zap.String("ledger_driver", cfg.Ledger.Driver),
		zap.String("rooms_csv", cfg.Catalog.Path),
	)

	repo, err := openLedger(cfg, log)
	if err != nil {
		log.Fatal("Failed to open check-in ledger", zap.Error(err))
	}
	defer repo.Close()

	rooms := catalog.NewCache(cfg.Catalog.Path, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mirrorWorker *mirror.Worker
	if cfg.Mirror.Enabled {
		if target := mirrorTarget(cfg, log); target != nil {
			mirrorWorker = mirror.NewWorker(target, cfg.Mirror.QueueSize, log)
			go mirrorWorker.Run(ctx)
		}
	}

	svc := service.NewCheckinService(repo, rooms, mirrorWorker, cfg, log)

	router := httpapi.NewRouter(log)
	router.RegisterCheckinRoutes(httpapi.NewCheckinHandler(svc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", zap.Error(err))
	}
	log.Info("Service stopped")
}

// openLedger picks the persistence backend from config. SQLite is the
// default; postgres suits multi-kiosk events; memory is for local dev.
func openLedger(cfg *config.Config, log *zap.Logger) (repository.CheckinsRepo, error) {
	switch cfg.Ledger.Driver {
	case "sqlite":
		return repository.NewSQLiteCheckins(cfg.Ledger.SQLitePath)
	case "postgres":
		db, err := repository.OpenPostgres(&cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresCheckins(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
		return repo, nil
	case "memory":
		log.Warn("Using in-memory ledger, check-ins will not survive a restart")
		return repository.NewMemoryCheckins(), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
}

func mirrorTarget(cfg *config.Config, log *zap.Logger) mirror.Target {
	switch cfg.Mirror.Target {
	case "workbook":
		log.Info("Mirroring check-ins to workbook", zap.String("path", cfg.Mirror.WorkbookPath))
		return mirror.NewWorkbookTarget(cfg.Mirror.WorkbookPath)
	case "webhook":
		if cfg.Mirror.WebhookURL == "" {
			log.Warn("Mirror target webhook selected but MIRROR_WEBHOOK_URL is empty, mirroring disabled")
			return nil
		}
		log.Info("Mirroring check-ins to webhook", zap.String("url", cfg.Mirror.WebhookURL))
		return mirror.NewWebhookTarget(cfg.Mirror.WebhookURL)
	default:
		log.Warn("Unknown mirror target, mirroring disabled", zap.String("target", cfg.Mirror.Target))
		return nil
	}
}
