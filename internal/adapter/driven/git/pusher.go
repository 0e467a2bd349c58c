// Package git implements the ArtifactPusher port by shelling out to the git
// binary, mirroring how the store file is actually backed up in deployment.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ArtifactPusher = (*Pusher)(nil)

// Pusher commits and pushes the store's durable artifact to a
// version-controlled remote. Every failure is reported as a typed PushError;
// callers treat it as a warning, never as fatal.
type Pusher struct {
	repoPath     string
	artifactPath string
	remote       string
	branch       string

	// run executes a git subcommand and returns its combined output.
	// Injectable for tests.
	run func(ctx context.Context, dir string, args ...string) (string, error)
	now func() time.Time
}

// NewPusher creates a Pusher that stages artifactPath inside the repository
// at repoPath and pushes to remote/branch.
func NewPusher(repoPath, artifactPath, remote, branch string) *Pusher {
	return &Pusher{
		repoPath:     repoPath,
		artifactPath: artifactPath,
		remote:       remote,
		branch:       branch,
		run:          runGit,
		now:          time.Now,
	}
}

// Push stages the artifact, commits it with a timestamped message, and
// pushes. When the artifact has not changed since the last commit, Push
// short-circuits and reports success.
func (p *Pusher) Push(ctx context.Context) (string, error) {
	if out, err := p.run(ctx, p.repoPath, "add", p.artifactPath); err != nil {
		return "", &driven.PushError{Step: "add", Err: fmt.Errorf("%w: %s", err, out)}
	}

	status, err := p.run(ctx, p.repoPath, "status", "--porcelain", "--", p.artifactPath)
	if err != nil {
		return "", &driven.PushError{Step: "status", Err: fmt.Errorf("%w: %s", err, status)}
	}
	if strings.TrimSpace(status) == "" {
		slog.Info("nothing to push", "artifact", p.artifactPath)
		return "nothing to commit", nil
	}

	commitMsg := fmt.Sprintf("Add new messages - %s", p.now().UTC().Format(time.RFC3339))
	if out, err := p.run(ctx, p.repoPath, "commit", "-m", commitMsg); err != nil {
		return "", &driven.PushError{Step: "commit", Err: fmt.Errorf("%w: %s", err, out)}
	}

	if out, err := p.run(ctx, p.repoPath, "push", p.remote, p.branch); err != nil {
		return "", &driven.PushError{Step: "push", Err: fmt.Errorf("%w: %s", err, out)}
	}

	slog.Info("artifact pushed", "artifact", p.artifactPath, "remote", p.remote, "branch", p.branch)
	return "pushed", nil
}

// runGit executes git with the given arguments in dir.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s failed: %w", args[0], err)
	}

	return string(output), nil
}
