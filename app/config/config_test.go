package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/address-validator/internal/swisspost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "https://api.post.ch/OAuth/token", cfg.SwissPost.TokenURL)
	assert.Equal(t, "https://dcapi.apis.post.ch/address/v1", cfg.SwissPost.BaseURL)
	assert.Equal(t, "DCAPI_ADDRESS_VALIDATE DCAPI_ADDRESS_AUTOCOMPLETE", cfg.SwissPost.Scope)
	assert.Equal(t, 10*time.Second, cfg.SwissPost.LookupTimeout)
	assert.Equal(t, 15*time.Second, cfg.SwissPost.ValidationTimeout)
	assert.Equal(t, 30*time.Second, cfg.SwissPost.RefreshMargin)
	assert.Equal(t, 300*time.Second, cfg.SwissPost.TokenLifetime)
	assert.Equal(t, 0, cfg.Cache.LookupSize)
	assert.Equal(t, time.Hour, cfg.Cache.LookupTTL)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 500, cfg.Batch.MaxSize)
	assert.Equal(t, 100, cfg.Batch.MaxJobs)
	assert.Equal(t, time.Hour, cfg.Batch.JobRetention)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
app:
  port: "9090"
  env: production
swisspost:
  client_id: from-file
  lookup_timeout: 3s
  rate_limit: 5
cache:
  lookup_size: 128
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(yaml), 0o600))

	t.Setenv("SWISSPOST_CLIENT_ID", " from-env ")
	t.Setenv("SWISSPOST_CLIENT_SECRET", "secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "from-env", cfg.SwissPost.ClientID)
	assert.Equal(t, "secret", cfg.SwissPost.ClientSecret)
	assert.Equal(t, 3*time.Second, cfg.SwissPost.LookupTimeout)
	assert.Equal(t, 5.0, cfg.SwissPost.RateLimit)
	assert.Equal(t, 128, cfg.Cache.LookupSize)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.NoError(t, cfg.Validate())

	oauth := cfg.OAuth()
	assert.Equal(t, "from-env", oauth.ClientID)
	assert.Equal(t, 30*time.Second, oauth.RefreshMargin)
	assert.Equal(t, 3*time.Second, cfg.Client().LookupTimeout)
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	err = cfg.Validate()
	assert.ErrorIs(t, err, swisspost.ErrConfig)
	assert.Equal(t, []string{"SWISSPOST_CLIENT_ID", "SWISSPOST_CLIENT_SECRET"}, cfg.MissingCredentials())
}

func TestLoad_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("app: [unclosed"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}
