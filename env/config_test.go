package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("T_INT", "42")
	t.Setenv("T_BAD_INT", "forty")
	t.Setenv("T_BOOL", "true")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_LIST", "admin, viewer,,")
	t.Setenv("T_EMPTY", "  ")

	assert.Equal(t, 42, GetEnv("T_INT", 1))
	assert.Equal(t, 1, GetEnv("T_BAD_INT", 1))
	assert.True(t, GetEnv("T_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnv("T_DUR", time.Second))
	assert.Equal(t, []string{"admin", "viewer"}, GetEnv("T_LIST", []string{}))
	assert.Equal(t, "fallback", GetEnv("T_EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("T_UNSET_KEY", "fallback"))
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
mongo:
  database: from_yaml
redis:
  enabled: true
  channel: yaml-channel
`), 0o600))
	t.Setenv("MONGO_DB", "from_env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "from_env", cfg.Mongo.Database)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "yaml-channel", cfg.Redis.Channel)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, []string{"admin", "viewer"}, cfg.SubmissionRoles)
	assert.True(t, cfg.InsecureJWT())
}

func TestLoad_Validation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PUSH_ENABLED", "true")

	_, err := Load("")
	assert.ErrorContains(t, err, "VAPID")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
