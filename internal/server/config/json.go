package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/apetrov/assetgate/internal/flagx"
	"github.com/apetrov/assetgate/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, the non-zero fields are copied
// into the runtime Config struct, so a partial file only overrides what it
// actually sets.
type JsonConfig struct {
	EndpointAddrHTTP            string              `json:"endpoint_addr_http"`
	DatabaseDSN                 string              `json:"database_dsn"`
	SecretKey                   string              `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration      `json:"access_token_validity_duration"`
	S3AccessKey                 string              `json:"s3_access_key"`
	S3SecretKey                 string              `json:"s3_secret_key"`
	S3Bucket                    string              `json:"s3_bucket"`
	S3Region                    string              `json:"s3_region"`
	S3BaseEndpoint              string              `json:"s3_base_endpoint"`
	PublicBaseURL               string              `json:"public_base_url"`
	MaxUploadBytes              int64               `json:"max_upload_bytes"`
	AllowedContentTypes         []string            `json:"allowed_content_types"`
	UploadCredentialTTL         timex.Duration      `json:"upload_credential_ttl"`
	DownloadCredentialTTL       timex.Duration      `json:"download_credential_ttl"`
	CredentialTTLCeiling        timex.Duration      `json:"credential_ttl_ceiling"`
	SignTimeout                 timex.Duration      `json:"sign_timeout"`
	ListTimeout                 timex.Duration      `json:"list_timeout"`
	MintConcurrency             int                 `json:"mint_concurrency"`
	UploadKeyPrefix             string              `json:"upload_key_prefix"`
	TierPatterns                map[string][]string `json:"tier_patterns"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. An unreadable or
// invalid file panics, since running with half-applied config is worse than
// not starting.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setDuration(&config.UploadCredentialTTL, c.UploadCredentialTTL)
	setDuration(&config.DownloadCredentialTTL, c.DownloadCredentialTTL)
	setDuration(&config.CredentialTTLCeiling, c.CredentialTTLCeiling)
	setDuration(&config.SignTimeout, c.SignTimeout)
	setDuration(&config.ListTimeout, c.ListTimeout)
	setString(&config.UploadKeyPrefix, c.UploadKeyPrefix)

	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.MintConcurrency > 0 {
		config.MintConcurrency = c.MintConcurrency
	}
	if len(c.AllowedContentTypes) > 0 {
		config.AllowedContentTypes = c.AllowedContentTypes
	}
	if len(c.TierPatterns) > 0 {
		config.TierPatterns = c.TierPatterns
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
