package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
)

// MessageStore defines the driven port for message persistence.
//
// AppendBatch merges one sync cycle's normalized items for a repository and
// advances the repository's last_synced watermark to syncedAt, all in a
// single transaction: either everything commits or nothing does. Items whose
// (repository_id, url) pair is already stored are skipped, so re-running a
// sync over an overlapping window is idempotent. It returns the number of
// rows actually inserted.
//
// AppendLocal inserts one locally authored message into the seeded local
// repository and returns its id. Local messages carry no url and are always
// appended.
//
// Page returns one page of messages plus the total match count, read
// consistently: the total always agrees with the page it accompanies even
// while batches commit concurrently. List and Count are the unpaired
// building blocks.
type MessageStore interface {
	AppendBatch(ctx context.Context, repositoryID int64, items []model.SourceItem, syncedAt time.Time) (int, error)
	AppendLocal(ctx context.Context, content, author string, timestamp time.Time) (int64, error)
	List(ctx context.Context, filter model.MessageFilter) ([]model.Message, error)
	Count(ctx context.Context, filter model.MessageFilter) (int, error)
	Page(ctx context.Context, filter model.MessageFilter) ([]model.Message, int, error)
}
