package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
	"github.com/ericfisherdev/repotalk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// AddOrGet inserts a repository and returns its id. If a repository with the
// same url already exists, the existing id is returned and no row is created.
func (r *RepoRepo) AddOrGet(ctx context.Context, name, url string) (int64, error) {
	const insert = `INSERT INTO repositories (name, url) VALUES (?, ?) ON CONFLICT(url) DO NOTHING`

	if _, err := r.db.Writer.ExecContext(ctx, insert, name, url); err != nil {
		return 0, fmt.Errorf("add repository %s: %w", url, err)
	}

	var id int64
	err := r.db.Writer.QueryRowContext(ctx, `SELECT id FROM repositories WHERE url = ?`, url).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get repository id for %s: %w", url, err)
	}

	return id, nil
}

// GetByURL retrieves a repository by its url. Returns nil, nil if it does
// not exist.
func (r *RepoRepo) GetByURL(ctx context.Context, url string) (*model.Repository, error) {
	const query = `SELECT id, name, url, last_synced, is_active FROM repositories WHERE url = ?`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", url, err)
	}

	return repo, nil
}

// ListAll returns all repositories ordered by id. With activeOnly set,
// soft-deactivated repositories are excluded.
func (r *RepoRepo) ListAll(ctx context.Context, activeOnly bool) ([]model.Repository, error) {
	query := `SELECT id, name, url, last_synced, is_active FROM repositories`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// SetWatermark records the last successful sync time for a repository.
func (r *RepoRepo) SetWatermark(ctx context.Context, id int64, syncedAt time.Time) error {
	const query = `UPDATE repositories SET last_synced = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, syncedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("set watermark for repository %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set watermark for repository %d: %w", id, driven.ErrRepoNotFound)
	}

	return nil
}

// SetActive flips the soft-deactivation flag for a repository.
func (r *RepoRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE repositories SET is_active = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set active for repository %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set active for repository %d: %w", id, driven.ErrRepoNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var lastSynced sql.NullString
	var isActive int

	err := s.Scan(&repo.ID, &repo.Name, &repo.URL, &lastSynced, &isActive)
	if err != nil {
		return nil, err
	}

	if lastSynced.Valid {
		t, err := parseTime(lastSynced.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_synced: %w", err)
		}
		repo.LastSynced = &t
	}
	repo.IsActive = isActive != 0

	return &repo, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
