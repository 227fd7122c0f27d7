package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	// APIPort is the listen address for the HTTP API, e.g. ":8081"
	APIPort string

	// S3Bucket is the bucket holding source assets and rendered edits
	S3Bucket string

	// S3Region overrides the AWS region; empty uses the default chain
	S3Region string

	// S3Profile selects a named shared credentials profile
	S3Profile string

	// S3UsePathStyle forces path-style addressing for S3-compatible stores
	S3UsePathStyle bool

	// RedisURL enables the job status registry when set, e.g. "redis://localhost:6379/0"
	RedisURL string

	// Verbose enables debug logging
	Verbose bool
}

// Load reads configuration from .env (if present) and the environment.
func Load() Config {
	// Missing .env is fine; real deployments set env vars directly
	_ = godotenv.Load()

	return Config{
		APIPort:        getEnv("API_PORT", ":8081"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("AWS_REGION", ""),
		S3Profile:      getEnv("AWS_PROFILE", ""),
		S3UsePathStyle: getEnv("S3_USE_PATH_STYLE", "") == "true",
		RedisURL:       getEnv("REDIS_URL", ""),
		Verbose:        getEnv("VERBOSE", "") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
