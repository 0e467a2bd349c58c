package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
)

// Sentinel errors returned by RepoStore implementations.
var (
	// ErrRepoNotFound indicates the requested repository does not exist.
	ErrRepoNotFound = errors.New("repository not found")
)

// RepoStore defines the driven port for repository persistence.
//
// AddOrGet is idempotent on url: if a repository with the same url already
// exists its id is returned and no row is created.
// SetWatermark records the last successful sync time; only the sync
// scheduler calls it outside of AppendBatch.
// SetActive soft-deactivates or reactivates a repository; rows are never
// hard-deleted.
type RepoStore interface {
	AddOrGet(ctx context.Context, name, url string) (int64, error)
	GetByURL(ctx context.Context, url string) (*model.Repository, error)
	ListAll(ctx context.Context, activeOnly bool) ([]model.Repository, error)
	SetWatermark(ctx context.Context, id int64, syncedAt time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
}
