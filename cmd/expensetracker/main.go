package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/export"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
	"expensetracker/internal/services"
)

const (
	cacheSweepInterval = 5 * time.Minute
	shutdownTimeout    = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	bucketMode, err := report.ParseBucketMode(cfg.ReportBucketMode)
	if err != nil {
		logger.Error("Invalid report bucket mode", log.FieldError, err)
		os.Exit(1)
	}

	sessions := auth.NewSessionStore(cfg.SessionCapacity, cfg.SessionTTL)
	caches := cache.NewManager(logger)
	caches.Register("sessions", sessions.Cleaner())
	caches.Start(ctx, cacheSweepInterval)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:    be.Store,
		Records:  services.NewRecordService(be.Store, be.Publisher, logger),
		Reports:  report.NewService(be.Store, bucketMode, report.WithLogger(logger)),
		Auth:     auth.NewService(be.Store, cfg.DefaultCurrency, auth.WithLogger(logger)),
		Sessions: sessions,
		Exporter: export.NewExporter(cfg.PDFFontPath, logger),
		Caches:   caches,
		Logger:   logger,

		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      cfg.SecureCookies,
		BlockSuspicious:    cfg.BlockSuspicious,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting expensetracker server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"bucket_mode", cfg.ReportBucketMode,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
