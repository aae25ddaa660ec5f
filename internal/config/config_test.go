package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/invoices.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Batch.WindowSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Batch.PausePoll)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
batch:
  window_size: 3
storage:
  temp_dir: /var/tmp/ingest
  upload_dir: /var/lib/ingest/uploads
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Batch.WindowSize)
	assert.Equal(t, "/var/tmp/ingest", cfg.Storage.TempDir)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout, "unset keys keep their defaults")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Batch.WindowSize = 0
	assert.Error(t, cfg.Validate())

	cfg.Batch.WindowSize = 5
	cfg.Storage.UploadDir = cfg.Storage.TempDir
	assert.Error(t, cfg.Validate())
}
