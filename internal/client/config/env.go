package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays cfg with BRIEFLY_* environment variables. When envFile
// exists it is loaded first; variables already set in the process win over
// the file. Malformed durations or booleans are ignored.
func parseEnv(cfg *Config, envFile string) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		}
	}

	setString(&cfg.ServerURL, "BRIEFLY_SERVER_URL")
	setDuration(&cfg.RequestTimeout, "BRIEFLY_REQUEST_TIMEOUT")
	setString(&cfg.DatabasePath, "BRIEFLY_DB")
	setBool(&cfg.Ephemeral, "BRIEFLY_EPHEMERAL")
	setString(&cfg.DownloadDir, "BRIEFLY_DOWNLOAD_DIR")
	setString(&cfg.LogLevel, "BRIEFLY_LOG_LEVEL")
	setString(&cfg.SessionSecret, "BRIEFLY_SESSION_SECRET")

	setString(&cfg.S3.Bucket, "BRIEFLY_S3_BUCKET")
	setString(&cfg.S3.Region, "BRIEFLY_S3_REGION")
	setString(&cfg.S3.Endpoint, "BRIEFLY_S3_ENDPOINT")
	setString(&cfg.S3.AccessKey, "BRIEFLY_S3_ACCESS_KEY")
	setString(&cfg.S3.SecretKey, "BRIEFLY_S3_SECRET_KEY")
	setString(&cfg.S3.Prefix, "BRIEFLY_S3_PREFIX")
	setDuration(&cfg.S3.LinkTTL, "BRIEFLY_S3_LINK_TTL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
