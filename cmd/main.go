package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mshafei721/shorty-captioner/internal/compose"
	"github.com/mshafei721/shorty-captioner/internal/config"
	"github.com/mshafei721/shorty-captioner/internal/httpapi"
	"github.com/mshafei721/shorty-captioner/internal/jobs"
	"github.com/mshafei721/shorty-captioner/internal/persistence"
	"github.com/mshafei721/shorty-captioner/internal/storage"
	"github.com/mshafei721/shorty-captioner/internal/transcribe"
	"github.com/mshafei721/shorty-captioner/pkg/log"
)

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.LogLevel))

	media, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatal("Failed to open upload storage: %v", err)
	}

	transcriber, err := transcribe.NewClient(transcribe.Config{
		APIURL:       cfg.Transcribe.APIURL,
		APIKey:       cfg.Transcribe.APIKey,
		Language:     cfg.Transcribe.Language,
		PollInterval: cfg.Transcribe.PollInterval,
		PollAttempts: cfg.Transcribe.PollAttempts,
	})
	if err != nil {
		log.Fatal("Failed to create transcription client: %v", err)
	}

	composer, err := compose.NewClient(compose.Config{
		APIURL:       cfg.Compose.APIURL,
		APIKey:       cfg.Compose.APIKey,
		PollInterval: cfg.Compose.PollInterval,
		PollAttempts: cfg.Compose.PollAttempts,
	})
	if err != nil {
		log.Fatal("Failed to create composition client: %v", err)
	}

	orchestratorOpts := []jobs.Option{
		jobs.WithCleanupDelay(cfg.Jobs.CleanupDelay),
	}
	if cfg.Jobs.DBPath != "" {
		persister, err := persistence.NewSQLiteStore(cfg.Jobs.DBPath)
		if err != nil {
			log.Fatal("Failed to open job database: %v", err)
		}
		defer persister.Close()
		orchestratorOpts = append(orchestratorOpts, jobs.WithPersister(persister))
	}

	orchestrator := jobs.NewOrchestrator(jobs.NewMemoryStore(), transcriber, composer, media, orchestratorOpts...)
	defer orchestrator.Stop()

	reaperCron := cron.New()
	if _, err := reaperCron.AddFunc(cfg.Jobs.ReaperCron, func() {
		orchestrator.ReapTerminalJobs(cfg.Jobs.Retention)
	}); err != nil {
		log.Fatal("Invalid reaper schedule %q: %v", cfg.Jobs.ReaperCron, err)
	}

	server := httpapi.NewServer(orchestrator, httpapi.WithResolver(media))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, reaperCron, server); err != nil {
		log.Fatal("Server error: %v", err)
	}
	log.Info("Shutdown complete")
}

// runWithComponents starts the reaper cron and the HTTP server, then blocks
// until the context is cancelled or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, cronEngine cronEngine, httpSrv httpServer) error {
	cronEngine.Start()
	defer cronEngine.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.HTTP.Addr)
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
