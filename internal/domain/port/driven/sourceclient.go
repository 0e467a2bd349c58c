package driven

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
)

// SourceFetchError reports that a repository's remote content could not be
// retrieved. The two retrieval paths fail independently; implementations
// return this error only when no path produced items.
type SourceFetchError struct {
	RepoURL        string
	IssuesErr      error
	DiscussionsErr error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetching %s: issues: %v; discussions: %v", e.RepoURL, e.IssuesErr, e.DiscussionsErr)
}

func (e *SourceFetchError) Unwrap() error {
	if e.IssuesErr != nil {
		return e.IssuesErr
	}
	return e.DiscussionsErr
}

// SourceClient defines the driven port for pulling discussion-like content
// from one external repository.
//
// FetchSince returns normalized items from both the issue-thread path and
// the discussion path, newest first. since narrows the issue-thread listing
// to items updated after the watermark; nil means fetch everything. The
// discussion path has no since cursor and always returns the most recent
// window. Implementations may block while waiting out a rate-limit reset.
type SourceClient interface {
	FetchSince(ctx context.Context, repoURL string, since *time.Time) ([]model.SourceItem, error)
}
