package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables, reading an optional
// .env file first. Unset variables leave the current value in place.
func parseEnv(config *Config) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	envString(&config.EndpointAddrHTTP, "ENDPOINT_ADDR_HTTP")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_VALIDITY_DURATION")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.PublicBaseURL, "PUBLIC_BASE_URL")
	envInt64(&config.MaxUploadBytes, "MAX_UPLOAD_BYTES")
	envDuration(&config.UploadCredentialTTL, "UPLOAD_CREDENTIAL_TTL")
	envDuration(&config.DownloadCredentialTTL, "DOWNLOAD_CREDENTIAL_TTL")
	envDuration(&config.CredentialTTLCeiling, "CREDENTIAL_TTL_CEILING")
	envString(&config.UploadKeyPrefix, "UPLOAD_KEY_PREFIX")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
