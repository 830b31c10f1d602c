package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/media_gateway/internal/cache"
	"github.com/italolelis/media_gateway/internal/cleanup"
	"github.com/italolelis/media_gateway/internal/config"
	"github.com/italolelis/media_gateway/internal/extractor"
	"github.com/italolelis/media_gateway/internal/extractor/ytdlp"
	"github.com/italolelis/media_gateway/internal/http/rest"
	"github.com/italolelis/media_gateway/internal/job"
	"github.com/italolelis/media_gateway/internal/logctx"
	"github.com/italolelis/media_gateway/internal/notifier"
	"github.com/italolelis/media_gateway/internal/ratelimit"
	"github.com/italolelis/media_gateway/internal/retry"
	"github.com/italolelis/media_gateway/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "media_gateway"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("media gateway starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Extraction Engine
	engine := extractor.NewInstrumented(ytdlp.NewClient(cfg.YTDLPPath), tel)

	policy := retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		Backoff:     retry.Linear(cfg.RetryBackoff),
	}

	extractionClient := extractor.NewClient(engine, policy)

	// =========================================================================
	// Start Download Manager
	manager := job.NewManager(engine, policy, cfg.DownloadDir, cfg.MaxParallel, tel)

	setupNotifications(ctx, manager, cfg)
	setupCleanup(ctx, manager, cfg)

	// =========================================================================
	// Start API Service

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	server := setupServer(ctx, extractionClient, manager, tel, cfg)

	go func() {
		logger.Info("Initializing API support", "host", cfg.Web.BindAddress)
		serverErrors <- server.ListenAndServe()
	}()

	logger.Info("waiting for requests...",
		"download_dir", cfg.DownloadDir,
		"max_parallel", cfg.MaxParallel,
		"cache_ttl", cfg.CacheTTL.String(),
		"retention", cfg.KeepDownloadedFor.String(),
	)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	}
}

func setupNotifications(ctx context.Context, manager *job.Manager, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	if cfg.DiscordWebhookURL == "" {
		return
	}

	notif := &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL}

	go func() {
		for event := range manager.OnJobFinished {
			logger.Info("download job finished", "job_id", event.ID, "filename", event.Filename)

			if notifyErr := notif.Notify(ctx,
				"✅ Download finished: "+event.Filename+" ("+event.ID+")",
			); notifyErr != nil {
				logger.Error("failed to send notification", "job_id", event.ID, "err", notifyErr)
			}
		}
	}()

	go func() {
		for event := range manager.OnJobFailed {
			logger.Error("download job failed", "job_id", event.ID, "job_error", event.Error)

			if notifyErr := notif.Notify(ctx,
				"❌ Download failed: "+event.Error+" ("+event.ID+")",
			); notifyErr != nil {
				logger.Error("failed to send notification", "job_id", event.ID, "err", notifyErr)
			}
		}
	}()
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(
	ctx context.Context,
	extractionClient *extractor.Client,
	manager *job.Manager,
	tel *telemetry.Telemetry,
	cfg *config.Config,
) *http.Server {
	handler := rest.NewMediaHandler(
		cfg.APIKey,
		extractionClient,
		manager,
		cache.New(cfg.CacheTTL),
		ratelimit.New(cfg.RateLimit, cfg.RateWindow),
		tel,
	)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)
	r.Use(telemetry.HTTPLogging)

	r.Handle("/metrics", tel.Handler())
	r.Mount("/", handler.Routes())

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      otelhttp.NewHandler(r, serviceName),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func setupCleanup(ctx context.Context, manager *job.Manager, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("cleanup goroutine shutting down.")

				return
			case <-ticker.C:
				if err := cleanup.SweepFinishedJobs(ctx, manager, cfg.KeepDownloadedFor); err != nil {
					logger.Error("failed to sweep finished jobs", "err", err)
				}
			}
		}
	}()
}
