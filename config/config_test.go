package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	websync "github.com/1120026847/web-sync"
	"github.com/1120026847/web-sync/config"
	"github.com/1120026847/web-sync/keybackend"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WEBSYNC_STORAGE_BUCKET", "notes")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)

	assert.Empty(t, cfg.Storage.Endpoint)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, "notes", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.PathStyle)
	assert.Equal(t, websync.DefaultRelayTimeout, cfg.Storage.Timeout)
	assert.Equal(t, keybackend.SourceNone, cfg.Storage.Keys.Source())

	assert.Equal(t, "sync_data/notepad.txt", cfg.Layout.NotepadKey)
	assert.Equal(t, "uploads/", cfg.Layout.UploadPrefix)
	assert.Equal(t, 15*time.Minute, cfg.Grants.UploadExpiry)
	assert.Equal(t, time.Hour, cfg.Grants.DownloadExpiry)
	assert.Equal(t, int64(1<<20), cfg.Notepad.MaxBytes)
	assert.Equal(t, 10, cfg.Catalog.MaxPages)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  port: 9000
  shutdown_timeout: 5s
  cors:
    allowed_origins: ["https://notes.example.com"]
    max_age: 600
storage:
  endpoint: https://acct.r2.cloudflarestorage.com
  region: auto
  bucket: sync
  public_base_url: https://files.example.com
  timeout: 10s
  keys:
    access_key: AKIAEXAMPLE
    secret_key: secret
layout:
  notepad_key: shared/pad.txt
  upload_prefix: inbox/
grants:
  upload_expiry: 5m
  download_expiry: 24h
notepad:
  max_bytes: 4096
catalog:
  max_pages: 3
metrics:
  enabled: false
log:
  level: debug
env: production
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://notes.example.com"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, 600, cfg.Server.CORS.MaxAge)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", cfg.Storage.Endpoint)
	assert.Equal(t, "auto", cfg.Storage.Region)
	assert.Equal(t, "sync", cfg.Storage.Bucket)
	assert.Equal(t, "https://files.example.com", cfg.Storage.PublicBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "AKIAEXAMPLE", cfg.Storage.Keys.AccessKey)
	assert.Equal(t, "secret", cfg.Storage.Keys.SecretKey)
	assert.Equal(t, "shared/pad.txt", cfg.Layout.NotepadKey)
	assert.Equal(t, "inbox/", cfg.Layout.UploadPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Grants.UploadExpiry)
	assert.Equal(t, 24*time.Hour, cfg.Grants.DownloadExpiry)
	assert.Equal(t, int64(4096), cfg.Notepad.MaxBytes)
	assert.Equal(t, 3, cfg.Catalog.MaxPages)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.IsProduction())

	gw := cfg.GatewayConfig()
	assert.Equal(t, "shared/pad.txt", gw.NotepadKey)
	assert.Equal(t, "inbox/", gw.Issuer.UploadPrefix)
	assert.Equal(t, 5*time.Minute, gw.Issuer.UploadExpiry)

	bucket := cfg.BucketConfig()
	assert.Equal(t, "sync", bucket.Bucket)
	assert.Equal(t, "https://files.example.com", bucket.PublicBaseURL)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	basePath := writeConfig(t, "base.yaml", `
server:
  port: 8080
storage:
  bucket: sync
  region: eu-central-1
log:
  level: info
`)
	overridePath := writeConfig(t, "override.yaml", `
server:
  port: 9000
storage:
  path_style: true
`)

	cfg, err := config.Load([]string{basePath, overridePath}, nil)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Storage.PathStyle)

	// Preserved values from base
	assert.Equal(t, "sync", cfg.Storage.Bucket)
	assert.Equal(t, "eu-central-1", cfg.Storage.Region)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("WEBSYNC_SERVER_PORT", "9090")
	t.Setenv("WEBSYNC_STORAGE_BUCKET", "env-bucket")
	t.Setenv("WEBSYNC_STORAGE_KEYS_ACCESS_KEY", "ENVKEY")
	t.Setenv("WEBSYNC_STORAGE_KEYS_SECRET_KEY", "envsecret")
	t.Setenv("WEBSYNC_GRANTS_DOWNLOAD_EXPIRY", "2h")
	t.Setenv("WEBSYNC_ENV", "prod")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-bucket", cfg.Storage.Bucket)
	assert.Equal(t, keybackend.SourceInline, cfg.Storage.Keys.Source())
	assert.Equal(t, "ENVKEY", cfg.Storage.Keys.AccessKey)
	assert.Equal(t, 2*time.Hour, cfg.Grants.DownloadExpiry)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Flags(t *testing.T) {
	t.Setenv("WEBSYNC_STORAGE_BUCKET", "from-env")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	flags.String("bucket", "", "")
	flags.Bool("path-style", false, "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--port=7000", "--bucket=from-flag", "--path-style"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-flag", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.PathStyle)
	assert.Equal(t, "info", cfg.Log.Level, "unset flags do not override")
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing bucket", content: "storage:\n  region: us-east-1\n"},
		{name: "port out of range", content: "server:\n  port: 70000\nstorage:\n  bucket: b\n"},
		{name: "log level", content: "storage:\n  bucket: b\nlog:\n  level: verbose\n"},
		{name: "endpoint not a url", content: "storage:\n  bucket: b\n  endpoint: not a url\n"},
		{name: "upload prefix without slash", content: "storage:\n  bucket: b\nlayout:\n  upload_prefix: uploads\n"},
		{name: "grant too long", content: "storage:\n  bucket: b\ngrants:\n  download_expiry: 200h\n"},
		{name: "grant too short", content: "storage:\n  bucket: b\ngrants:\n  upload_expiry: 0s\n"},
		{name: "zero notepad limit", content: "storage:\n  bucket: b\nnotepad:\n  max_bytes: 0\n"},
		{name: "notepad under uploads", content: "storage:\n  bucket: b\nlayout:\n  notepad_key: uploads/pad.txt\n"},
		{name: "notepad key traversal", content: "storage:\n  bucket: b\nlayout:\n  notepad_key: ../pad.txt\n"},
		{name: "conflicting keys", content: "storage:\n  bucket: b\n  keys:\n    access_key: a\n    secret_key: s\n    profile: p\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)

			_, err := config.Load([]string{path}, nil)

			assert.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_ConflictingKeysWrapsSentinel(t *testing.T) {
	path := writeConfig(t, "config.yaml", "storage:\n  bucket: b\n  keys:\n    file: /etc/keys.json\n    profile: p\n")

	_, err := config.Load([]string{path}, nil)

	assert.ErrorIs(t, err, keybackend.ErrConflictingSources)
}

func TestLoad_MissingConfigFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("WEBSYNC_STORAGE_BUCKET", "notes")

	cfg, err := config.Load([]string{filepath.Join(t.TempDir(), "absent.yaml")}, nil)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
