package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	AWSAccessKey string
	AWSSecretKey string
	CDNURL       string
	DatabaseURL  string
	AdminToken   string
	LogFile      string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		S3Bucket:     getEnv("R2_BUCKET_NAME", ""),
		S3Region:     getEnv("R2_REGION", "auto"),
		S3Endpoint:   getEnv("R2_ENDPOINT", ""),
		AWSAccessKey: getEnv("R2_ACCESS_KEY_ID", ""),
		AWSSecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		CDNURL:       getEnv("R2_CDN_URL", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AdminToken:   getEnv("ADMIN_API_TOKEN", ""),
		LogFile:      getEnv("LOG_FILE", ""),
	}
}

// minPartSizeBytes is the smallest part the store accepts for every part
// except the last one.
const minPartSizeBytes = 5 * 1024 * 1024

// UploadOptions are the upload tunables. Thresholds are deployment
// configuration, not data: InlineMaxMB must stay under the host's
// request-body ceiling.
type UploadOptions struct {
	InlineMaxMB       int64 `yaml:"inline_max_mb"`
	SinglePutMaxMB    int64 `yaml:"single_put_max_mb"`
	PartSizeMB        int64 `yaml:"part_size_mb"`
	PresignTTLSeconds int64 `yaml:"presign_ttl_seconds"`
	PartRetries       int   `yaml:"part_retries"`
	PartRetryDelayMS  int   `yaml:"part_retry_delay_ms"`
}

type UploadConfig struct {
	Upload UploadOptions `yaml:"upload"`
}

func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		InlineMaxMB:       4,
		SinglePutMaxMB:    32,
		PartSizeMB:        5,
		PresignTTLSeconds: 900,
		PartRetries:       4,
		PartRetryDelayMS:  1000,
	}
}

// LoadUploadConfig reads the YAML tunables file, falling back to defaults
// when the file does not exist.
func LoadUploadConfig() (*UploadConfig, error) {
	configPath := getEnv("UPLOAD_CONFIG_PATH", "upload-config.yaml")

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &UploadConfig{Upload: DefaultUploadOptions()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload config: %w", err)
	}

	config := UploadConfig{Upload: DefaultUploadOptions()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse upload config: %w", err)
	}
	if config.Upload.PartSizeBytes() < minPartSizeBytes {
		return nil, fmt.Errorf("part_size_mb below the 5 MiB store minimum")
	}
	if config.Upload.InlineMaxMB > config.Upload.SinglePutMaxMB {
		return nil, fmt.Errorf("inline_max_mb exceeds single_put_max_mb")
	}

	return &config, nil
}

func (o UploadOptions) InlineMaxBytes() int64    { return o.InlineMaxMB * 1024 * 1024 }
func (o UploadOptions) SinglePutMaxBytes() int64 { return o.SinglePutMaxMB * 1024 * 1024 }
func (o UploadOptions) PartSizeBytes() int64     { return o.PartSizeMB * 1024 * 1024 }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
