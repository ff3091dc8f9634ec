package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vidgate/vidgate/internal/api/handler"
	"github.com/vidgate/vidgate/internal/api/middleware"
	"github.com/vidgate/vidgate/internal/config"
	"github.com/vidgate/vidgate/internal/domain/repository"
	"github.com/vidgate/vidgate/internal/infrastructure/cache"
	"github.com/vidgate/vidgate/internal/infrastructure/chunkstore"
	"github.com/vidgate/vidgate/internal/infrastructure/queue"
	"github.com/vidgate/vidgate/internal/infrastructure/state"
	"github.com/vidgate/vidgate/internal/infrastructure/storage"
	"github.com/vidgate/vidgate/internal/infrastructure/telegram"
	"github.com/vidgate/vidgate/internal/infrastructure/youtube"
	"github.com/vidgate/vidgate/internal/transcoder"
	"github.com/vidgate/vidgate/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Transfer.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Durable state: the snapshot store owns both record and session maps.
	store := state.NewStore(cfg.Transfer.StateFile)
	sessions, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load state snapshot: %w", err)
	}

	chunks, err := chunkstore.NewDisk(cfg.Transfer.UploadDir, store)
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	chunks.Restore(sessions)
	logger.Info("state restored", slog.Int("sessions", len(sessions)))

	// Infrastructure clients.
	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	if cfg.Publish.MaxConcurrent > 0 {
		queueCfg.Prefetch = cfg.Publish.MaxConcurrent
	}
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	messenger := telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.Telegram.Token,
		Timeout: cfg.Telegram.Timeout,
	})

	tokenSource, err := youtube.NewTokenSource(ctx, cfg.YouTube.CredentialsJSON)
	if err != nil {
		return fmt.Errorf("failed to build platform credentials: %w", err)
	}
	platform, err := youtube.NewClient(ctx, tokenSource, youtube.ClientConfig{
		SegmentSize: int(cfg.Publish.SegmentSize),
	})
	if err != nil {
		return fmt.Errorf("failed to build platform client: %w", err)
	}

	var dedup repository.UpdateDedup
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		dedup = cache.NewRedisUpdateDedup(redisClient, cache.DefaultUpdateTTL)
		logger.Info("connected to Redis")
	}

	var archiver repository.Archiver
	if cfg.Archive.Enabled {
		archiveClient, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to archive storage: %w", err)
		}
		archiver = archiveClient
		logger.Info("connected to archive storage")
	}

	tc := transcoder.NewFFmpegTranscoder(transcoder.DefaultFFmpegConfig())

	// Services.
	transferSvc := usecase.NewTransferService(chunks, store, messenger, usecase.TransferServiceConfig{
		ApprovalChatID: cfg.Telegram.ChatID,
	})
	approvalSvc := usecase.NewApprovalService(store, queueClient, messenger, dedup, cfg.Telegram.ChatID)
	publishSvc := usecase.NewPublishService(store, platform, messenger, archiver, tc, usecase.PublishServiceConfig{
		PollInterval:        cfg.Publish.PollInterval,
		PollTimeout:         cfg.Publish.PollTimeout,
		WatchURLBase:        "https://youtu.be/",
		AnnounceChatID:      cfg.Telegram.AnnounceChatID,
		AnnounceMinDuration: cfg.Publish.AnnounceMinDuration,
		CategoryID:          cfg.YouTube.CategoryID,
		Tags:                splitTags(cfg.YouTube.Tags),
	})
	janitorCfg := usecase.DefaultJanitorServiceConfig()
	janitorCfg.StaleAge = cfg.Janitor.StaleAge
	janitorCfg.ReaperInterval = cfg.Janitor.ReaperInterval
	janitorCfg.ReminderInterval = cfg.Janitor.ReminderInterval
	janitorCfg.ChatID = cfg.Telegram.ChatID
	janitorSvc := usecase.NewJanitorService(store, messenger, janitorCfg)

	if cfg.Telegram.PublicURL != "" {
		url := strings.TrimRight(cfg.Telegram.PublicURL, "/") + "/telegram/webhook"
		if err := messenger.RegisterWebhook(ctx, url, cfg.Telegram.WebhookSecret); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		logger.Info("webhook registered", slog.String("url", url))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      setupRouter(logger, store, transferSvc, approvalSvc, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting publish consumer")
		err := queueClient.ConsumePublishTasks(gctx, func(task repository.PublishTask) error {
			logger.Info("processing publish task", slog.String("video_id", task.VideoID))
			return publishSvc.Process(gctx, task)
		})
		if err != nil && gctx.Err() == nil {
			return fmt.Errorf("consumer error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := janitorSvc.RunReaper(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := janitorSvc.RunReminder(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(
	logger *slog.Logger,
	store *state.Store,
	transferSvc usecase.TransferService,
	approvalSvc usecase.ApprovalService,
	cfg *config.Config,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	healthHandler := handler.NewHealthHandler(store)
	uploadHandler := handler.NewUploadHandler(transferSvc, cfg.Transfer.MaxChunkSize)
	webhookHandler := handler.NewWebhookHandler(approvalSvc, cfg.Telegram.WebhookSecret)
	videoHandler := handler.NewVideoHandler(store, approvalSvc, cfg.Janitor.StaleAge)

	r.Get("/health", healthHandler.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/upload/status", uploadHandler.ResumeStatus)
	r.Post("/upload/chunk", uploadHandler.SubmitChunk)

	r.Post("/telegram/webhook", webhookHandler.Receive)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/videos", videoHandler.List)
		r.Get("/status", videoHandler.Status)
		r.Delete("/videos/{id}", videoHandler.Delete)
		r.Post("/videos/{id}/notify", videoHandler.Notify)
		r.Post("/videos/cleanup", videoHandler.Cleanup)
		r.Post("/videos/cleanup/stale", videoHandler.CleanupStale)
	})

	return r
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
