package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 15*time.Minute, cfg.UploadCredentialTTL)
	assert.Equal(t, 5*time.Minute, cfg.DownloadCredentialTTL)
	assert.Equal(t, time.Hour, cfg.CredentialTTLCeiling)
	assert.Contains(t, cfg.AllowedContentTypes, "image/png")
	assert.Equal(t, []string{"shared/"}, cfg.TierPatterns["Regular"])
	assert.Equal(t, []string{"shared/", "premium/"}, cfg.TierPatterns["Premium"])
}

func TestParseJson_PartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr_http": ":9090",
		"upload_credential_ttl": "30m",
		"max_upload_bytes": 5242880,
		"tier_patterns": {"Regular": ["public/"], "Premium": ["public/", "vip/"]}
	}`), 0o600))

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"test", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, 30*time.Minute, cfg.UploadCredentialTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"public/", "vip/"}, cfg.TierPatterns["Premium"])

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.DownloadCredentialTTL)
	assert.Equal(t, "assets", cfg.S3Bucket)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("ENDPOINT_ADDR_HTTP", ":7070")
	t.Setenv("S3_BUCKET", "prod-assets")
	t.Setenv("DOWNLOAD_CREDENTIAL_TTL", "2m")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, "prod-assets", cfg.S3Bucket)
	assert.Equal(t, 2*time.Minute, cfg.DownloadCredentialTTL)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 15*time.Minute, cfg.UploadCredentialTTL)
}

func TestParseEnv_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")
	t.Setenv("UPLOAD_CREDENTIAL_TTL", "-5m")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 15*time.Minute, cfg.UploadCredentialTTL)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"test", "-a", ":6060", "-b", "flag-bucket", "-t", "30", "-m", "2097152", "-x", "ignored"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":6060", cfg.EndpointAddrHTTP)
	assert.Equal(t, "flag-bucket", cfg.S3Bucket)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
}
