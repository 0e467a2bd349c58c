// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
	"github.com/ericfisherdev/repotalk/internal/domain/port/driven"
)

// ErrSchedulerStopped reports that the sync loop has exited and can no longer
// service refresh requests.
var ErrSchedulerStopped = errors.New("sync scheduler stopped")

// refreshRequest represents an out-of-band sync trigger for one repository.
type refreshRequest struct {
	repoURL string
	done    chan error
}

// SyncService runs the periodic synchronization loop: per tracked
// repository it fetches new remote content since the watermark, merges it
// into the message store, and advances the watermark. Repository failures
// are isolated: one failing repository never aborts the cycle for others.
type SyncService struct {
	source   driven.SourceClient
	messages driven.MessageStore
	repos    driven.RepoStore
	interval time.Duration

	refreshCh chan refreshRequest
	stopped   chan struct{}
	now       func() time.Time
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	source driven.SourceClient,
	messages driven.MessageStore,
	repos driven.RepoStore,
	interval time.Duration,
) *SyncService {
	return &SyncService{
		source:    source,
		messages:  messages,
		repos:     repos,
		interval:  interval,
		refreshCh: make(chan refreshRequest),
		stopped:   make(chan struct{}),
		now:       time.Now,
	}
}

// Start begins the sync loop. It runs an immediate cycle, then ticks on the
// configured interval, and services out-of-band refresh requests between
// ticks. Start blocks until the context is canceled; cancellation is
// observed within one select, not one interval.
func (s *SyncService) Start(ctx context.Context) {
	defer close(s.stopped)

	if err := s.syncAll(ctx); err != nil {
		slog.Error("initial sync cycle failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.syncAll(ctx); err != nil {
				slog.Error("sync cycle failed", "error", err)
			}
		case req := <-s.refreshCh:
			req.done <- s.handleRefresh(ctx, req)
		}
	}
}

// SyncRepo triggers an immediate sync for one repository, bypassing the
// interval. Newly registered repositories use this so content populates
// promptly instead of after a full interval. It blocks until the sync
// completes, the context is canceled, or the scheduler exits.
func (s *SyncService) SyncRepo(ctx context.Context, repoURL string) error {
	done := make(chan error, 1)
	req := refreshRequest{repoURL: repoURL, done: done}

	select {
	case s.refreshCh <- req:
	case <-s.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-s.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncAll runs one full tick over all active repositories, sequentially.
func (s *SyncService) syncAll(ctx context.Context) error {
	start := time.Now()

	repos, err := s.repos.ListAll(ctx, true)
	if err != nil {
		return err
	}

	var syncErrors int
	for _, repo := range repos {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// The seeded local repository has no remote to pull from.
		if repo.URL == model.LocalRepositoryURL {
			continue
		}

		if err := s.syncRepo(ctx, repo); err != nil {
			slog.Error("repository sync failed", "repo", repo.URL, "error", err)
			syncErrors++
		}
	}

	slog.Info("sync cycle complete",
		"repos", len(repos),
		"errors", syncErrors,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// syncRepo fetches and merges new content for a single repository. The
// watermark advances inside the same store transaction as the batch; on any
// error it stays untouched so the same window is retried next cycle.
func (s *SyncService) syncRepo(ctx context.Context, repo model.Repository) error {
	// Ingestion time, captured before the fetch so the next window
	// overlaps the fetch duration instead of leaving a gap. The dedup key
	// absorbs the overlap.
	syncedAt := s.now().UTC()

	items, err := s.source.FetchSince(ctx, repo.URL, repo.LastSynced)
	if err != nil {
		return err
	}

	inserted, err := s.messages.AppendBatch(ctx, repo.ID, items, syncedAt)
	if err != nil {
		return err
	}

	slog.Info("repository synced",
		"repo", repo.URL,
		"fetched", len(items),
		"inserted", inserted,
	)

	return nil
}

// handleRefresh dispatches an out-of-band refresh request.
func (s *SyncService) handleRefresh(ctx context.Context, req refreshRequest) error {
	repo, err := s.repos.GetByURL(ctx, req.repoURL)
	if err != nil {
		return err
	}
	if repo == nil {
		return driven.ErrRepoNotFound
	}

	return s.syncRepo(ctx, *repo)
}
