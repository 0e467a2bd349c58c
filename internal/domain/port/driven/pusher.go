package driven

import (
	"context"
	"fmt"
)

// PushError reports which step of the stage/commit/push sequence failed.
// Push failures are always non-fatal: the store write that preceded the
// push is never rolled back.
type PushError struct {
	Step string // "add", "status", "commit", or "push"
	Err  error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("git %s: %v", e.Step, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }

// ArtifactPusher defines the driven port for committing the store's durable
// artifact to a version-controlled remote. Push returns a human-readable
// status ("pushed" or "nothing to commit") on success.
type ArtifactPusher interface {
	Push(ctx context.Context) (string, error)
}
