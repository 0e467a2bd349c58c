package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every REPOTALK_ env var that Load() reads.
var allConfigKeys = []string{
	"REPOTALK_GITHUB_TOKEN",
	"REPOTALK_SYNC_INTERVAL",
	"REPOTALK_LISTEN_ADDR",
	"REPOTALK_DB_PATH",
	"REPOTALK_GIT_REPO_PATH",
	"REPOTALK_GIT_REMOTE",
	"REPOTALK_GIT_BRANCH",
}

// isolateConfigEnv saves and unsets all REPOTALK_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REPOTALK_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("REPOTALK_SYNC_INTERVAL", "10m")
	t.Setenv("REPOTALK_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("REPOTALK_DB_PATH", "/tmp/test.db")
	t.Setenv("REPOTALK_GIT_REPO_PATH", "/tmp/repo")
	t.Setenv("REPOTALK_GIT_REMOTE", "backup")
	t.Setenv("REPOTALK_GIT_BRANCH", "master")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "/tmp/repo", cfg.GitRepoPath)
	assert.Equal(t, "backup", cfg.GitRemote)
	assert.Equal(t, "master", cfg.GitBranch)
	assert.True(t, cfg.HasGitHubToken())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "repotalk.db", cfg.DBPath)
	assert.Equal(t, ".", cfg.GitRepoPath)
	assert.Equal(t, "origin", cfg.GitRemote)
	assert.Equal(t, "main", cfg.GitBranch)
}

// A missing token is not an error; remote syncing is simply disabled.
func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.GitHubToken)
	assert.False(t, cfg.HasGitHubToken())
}

func TestLoad_InvalidSyncInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REPOTALK_SYNC_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPOTALK_SYNC_INTERVAL")
}
