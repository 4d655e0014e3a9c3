package main

import (
	"Whisper/internal/config"
	"Whisper/internal/handlers"
	"Whisper/internal/middleware"
	"Whisper/internal/render"
	"Whisper/internal/repo"
	"Whisper/internal/service"
	"Whisper/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	//context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	store, objects, err := newObjectStore(cfg)
	if err != nil {
		sugar.Fatalw("failed to initialize object storage", "backend", cfg.StorageBackend, "error", err)
	}

	renderer, err := render.NewRenderer(render.DefaultTheme(), time.Local)
	if err != nil {
		sugar.Fatalw("failed to initialize renderer", "error", err)
	}
	encoder := render.NewFFmpegEncoder(cfg.FFmpegPath, cfg.FFprobePath)

	userRepo := repo.NewUserRepository(gormDB)
	messageRepo := repo.NewMessageRepository(gormDB)
	maxAudioBytes := int64(cfg.AudioMaxSizeMB) * 1024 * 1024

	userService := service.NewUserService(userRepo)
	messageService := service.NewMessageService(userRepo, messageRepo, store, maxAudioBytes, sugar)
	exportService := service.NewExportService(messageService, renderer, encoder, cfg.VideoFPS, cfg.ExportTimeout, sugar)

	h := handlers.NewHandler(userService, messageService, exportService, objects, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"PublicURL", cfg.PublicURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"StorageBackend", cfg.StorageBackend,
		"VideoFPS", cfg.VideoFPS,
		"ExportTimeout", cfg.ExportTimeout,
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	case <-ctx.Done():
		sugar.Infow("Shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Graceful shutdown failed", "error", err)
		}
	}
}

// newObjectStore выбирает бэкенд хранения аудио. Второе значение - store для /objects/*,
// nil когда объекты раздаёт сам бэкенд.
func newObjectStore(cfg *config.Config) (storage.ObjectStore, storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case "supabase":
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, nil, errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
		}
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket), nil, nil
	case "fs":
		fsStore, err := storage.NewFSStore(cfg.StorageDir, cfg.PublicURL+"/objects")
		if err != nil {
			return nil, nil, err
		}
		return fsStore, fsStore, nil
	default:
		return nil, nil, errors.New("unknown storage backend " + cfg.StorageBackend)
	}
}
