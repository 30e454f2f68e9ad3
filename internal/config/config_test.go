package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/signal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  environment: test
database:
  type: memory
storage:
  type: memory
auth:
  jwks_url: https://auth.example.test/.well-known/jwks.json
signal:
  type: noop
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test_", cfg.Database.TablePrefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Visibility.CacheTTL)
	assert.Equal(t, 64, cfg.Visibility.MaxAncestorHops)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  type: memory
auth:
  jwks_url: https://auth.example.test/jwks.json
`)
	t.Setenv("PORTAL_SERVER_PORT", "7000")
	t.Setenv("PORTAL_VISIBILITY_CACHE_TTL", "2s")
	t.Setenv("PORTAL_STORAGE_TYPE", "memory")
	t.Setenv("PORTAL_SIGNAL_TYPE", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Visibility.CacheTTL)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "debug", cfg.Logging.Level, "dev defaults to debug")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Database: DatabaseConfig{Type: "memory"},
			Auth:     AuthConfig{JWKSURL: "https://auth.example.test/jwks.json"},
		}
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"postgres without url", func(c *Config) { c.Database.Type = "postgres" }, "URL"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "Environment"},
		{"bad storage type", func(c *Config) { c.Storage.Type = "ftp" }, "Type"},
		{"missing jwks", func(c *Config) { c.Auth.JWKSURL = "" }, "JWKSURL"},
		{"min above max conns", func(c *Config) { c.Database.MinConns = 100 }, "MinConns"},
		{"memory db in prod", func(c *Config) { c.Server.Environment = "prod" }, "memory store"},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateMirror(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	mirror, err := CreateMirror(ctx, &StorageConfig{Type: "local", Local: map[string]any{"root": t.TempDir()}}, logger)
	require.NoError(t, err)
	require.NoError(t, mirror.MakeDir(ctx, "enterprises/acme"))
	ok, err := mirror.Exists(ctx, "enterprises/acme")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = CreateMirror(ctx, &StorageConfig{Type: "memory"}, logger)
	assert.NoError(t, err)

	_, err = CreateMirror(ctx, &StorageConfig{Type: "s3", S3: map[string]any{"region": "eu-west-1"}}, logger)
	assert.ErrorContains(t, err, "bucket is required")

	_, err = CreateMirror(ctx, &StorageConfig{Type: "ftp"}, logger)
	assert.Error(t, err)
}

func TestS3LoadOptions(t *testing.T) {
	var cfg S3MirrorConfig
	require.NoError(t, decodeOptions(map[string]any{
		"region":            "eu-west-1",
		"bucket":            "docs",
		"access_key_id":     "AKIA",
		"secret_access_key": "secret",
		"max_retries":       "3",
	}, &cfg))

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Len(t, s3LoadOptions(&cfg), 3)
}

func TestCreateSignal(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	sig, err := CreateSignal(&SignalConfig{Type: "badger", Badger: map[string]any{"path": t.TempDir()}}, logger)
	require.NoError(t, err)
	defer sig.Close()

	sig.Increment(ctx, signal.EnterpriseKey(1))
	v, err := sig.Value(ctx, signal.EnterpriseKey(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	_, err = CreateSignal(&SignalConfig{Type: "carrier-pigeon"}, logger)
	assert.Error(t, err)
}

func TestSetupLogFile(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, "server-2020-01-0"+string(rune('1'+i))+"T00-00-00.log")
		require.NoError(t, os.WriteFile(name, nil, 0o644))
	}

	f, err := SetupLogFile(dir, 2)
	require.NoError(t, err)
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "server-*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, f.Name())
}
