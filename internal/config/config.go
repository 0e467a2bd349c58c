// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken  string
	SyncInterval time.Duration
	ListenAddr   string
	DBPath       string
	GitRepoPath  string
	GitRemote    string
	GitBranch    string
}

// HasGitHubToken returns true when a GitHub token is configured. Without a
// token the sync scheduler still runs but every remote fetch will fail with
// an auth error, so the composition root skips starting it.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from the environment, after loading a .env file
// if one is present in the working directory. REPOTALK_GITHUB_TOKEN is
// optional; without it the app serves local messages only. Optional
// variables with defaults: REPOTALK_SYNC_INTERVAL (5m), REPOTALK_LISTEN_ADDR
// (127.0.0.1:8080), REPOTALK_DB_PATH (repotalk.db), REPOTALK_GIT_REPO_PATH
// (.), REPOTALK_GIT_REMOTE (origin), REPOTALK_GIT_BRANCH (main).
func Load() (*Config, error) {
	// Missing .env is fine; real env vars win over file values.
	_ = godotenv.Load()

	token := os.Getenv("REPOTALK_GITHUB_TOKEN")

	syncInterval := 5 * time.Minute
	if v, ok := os.LookupEnv("REPOTALK_SYNC_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REPOTALK_SYNC_INTERVAL has invalid duration %q: %w", v, err)
		}
		syncInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("REPOTALK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "repotalk.db"
	if v, ok := os.LookupEnv("REPOTALK_DB_PATH"); ok {
		dbPath = v
	}

	gitRepoPath := "."
	if v, ok := os.LookupEnv("REPOTALK_GIT_REPO_PATH"); ok {
		gitRepoPath = v
	}

	gitRemote := "origin"
	if v, ok := os.LookupEnv("REPOTALK_GIT_REMOTE"); ok {
		gitRemote = v
	}

	gitBranch := "main"
	if v, ok := os.LookupEnv("REPOTALK_GIT_BRANCH"); ok {
		gitBranch = v
	}

	return &Config{
		GitHubToken:  token,
		SyncInterval: syncInterval,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		GitRepoPath:  gitRepoPath,
		GitRemote:    gitRemote,
		GitBranch:    gitBranch,
	}, nil
}
