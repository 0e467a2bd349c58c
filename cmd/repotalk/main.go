package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	gitadapter "github.com/ericfisherdev/repotalk/internal/adapter/driven/git"
	githubadapter "github.com/ericfisherdev/repotalk/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/repotalk/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/repotalk/internal/adapter/driving/http"
	"github.com/ericfisherdev/repotalk/internal/application"
	"github.com/ericfisherdev/repotalk/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	repoStore := sqliteadapter.NewRepoRepo(db)
	messageStore := sqliteadapter.NewMessageRepo(db)
	pusher := gitadapter.NewPusher(cfg.GitRepoPath, cfg.DBPath, cfg.GitRemote, cfg.GitBranch)

	// 6. Create and start the sync scheduler when a GitHub token is
	// configured. Without one the app serves local messages only.
	var syncSvc *application.SyncService
	if cfg.HasGitHubToken() {
		ghClient := githubadapter.NewClient(cfg.GitHubToken)
		syncSvc = application.NewSyncService(ghClient, messageStore, repoStore, cfg.SyncInterval)
		go syncSvc.Start(ctx)
		slog.Info("sync scheduler started", "interval", cfg.SyncInterval)
	} else {
		slog.Info("no github token configured, remote syncing disabled")
	}

	// 7. Create the command/query façade and HTTP handler.
	msgSvc := application.NewMessageService(messageStore, repoStore, pusher, syncSvc)
	handler := httphandler.NewHandler(msgSvc, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("repotalk started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
