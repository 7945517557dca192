package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"ecotachos/config"
	"ecotachos/internal/api"
	"ecotachos/internal/container"
	"ecotachos/internal/domain/port"
	"ecotachos/internal/infrastructure/export"
	"ecotachos/internal/infrastructure/storage"
	"ecotachos/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// База детекций и тачо
	db, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.URL, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := storage.MigrateUp(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		version, _, _ := storage.MigrateVersion(db)
		logger.Info("storage.migrated", "version", version)
	}

	var actuations port.ActuationStore
	switch cfg.ActuationStore {
	case config.ActuationSQL:
		actuations = storage.NewSQLActuationStore(db)
	default:
		actuations = storage.NewMemoryActuationStore()
	}

	backends, err := container.BuildBackends(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build inference backends: %v", err)
	}
	for _, b := range backends {
		logger.Info("backend.configured", "type", b.Kind(), "target", b.Info().Target)
		if c, ok := b.(interface{ Close() error }); ok {
			defer c.Close()
		}
	}

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:      storage.NewMemoryUserRepository(),
		Codec:      vision.NewCodec(),
		Backends:   backends,
		Actuations: actuations,
		Detections: storage.NewSQLDetectionRepository(db),
		Bins:       storage.NewSQLBinRepository(db),
		Exporter:   export.NewXLSXExporter(logger),
		Family:     cfg.AIBackend,
		Logger:     logger,
	})

	var wg sync.WaitGroup

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(appContainer, cfg.ClassifyTimeout, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http.listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Бот необязателен: без токена работает только HTTP API
	if cfg.TelegramToken != "" {
		bot, err := api.NewBot(cfg.TelegramToken, appContainer, cfg.ClassifyTimeout, logger)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("bot.running")
			if err := bot.Run(ctx); err != nil {
				logger.Error("bot.stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown_error", "error", err)
	}

	wg.Wait()
	logger.Info("graceful shutdown complete")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
