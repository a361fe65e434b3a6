package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/briefly/internal/flagx"
	"github.com/dmitrijs2005/briefly/internal/timex"
)

// JsonS3Config is the "s3" object of the JSON file.
type JsonS3Config struct {
	Bucket    string         `json:"bucket"`
	Region    string         `json:"region"`
	Endpoint  string         `json:"endpoint"`
	AccessKey string         `json:"access_key"`
	SecretKey string         `json:"secret_key"`
	Prefix    string         `json:"prefix"`
	LinkTTL   timex.Duration `json:"link_ttl"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. After
// parsing, non-zero values are copied into the runtime Config.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	DatabasePath   string         `json:"database_path"`
	Ephemeral      *bool          `json:"ephemeral"`
	DownloadDir    string         `json:"download_dir"`
	LogLevel       string         `json:"log_level"`
	SessionSecret  string         `json:"session_secret"`
	S3             JsonS3Config   `json:"s3"`
}

// parseJson overlays cfg with values loaded from the JSON file named by
// -c/-config. It does nothing when no file is given and panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	overlay(&cfg.ServerURL, jc.ServerURL)
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	overlay(&cfg.DatabasePath, jc.DatabasePath)
	if jc.Ephemeral != nil {
		cfg.Ephemeral = *jc.Ephemeral
	}
	overlay(&cfg.DownloadDir, jc.DownloadDir)
	overlay(&cfg.LogLevel, jc.LogLevel)
	overlay(&cfg.SessionSecret, jc.SessionSecret)

	overlay(&cfg.S3.Bucket, jc.S3.Bucket)
	overlay(&cfg.S3.Region, jc.S3.Region)
	overlay(&cfg.S3.Endpoint, jc.S3.Endpoint)
	overlay(&cfg.S3.AccessKey, jc.S3.AccessKey)
	overlay(&cfg.S3.SecretKey, jc.S3.SecretKey)
	overlay(&cfg.S3.Prefix, jc.S3.Prefix)
	if jc.S3.LinkTTL.Duration != 0 {
		cfg.S3.LinkTTL = jc.S3.LinkTTL.Duration
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
