package config

import "time"

// S3Config enables the object-storage download sink when Bucket is set.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	LinkTTL   time.Duration
}

// Enabled reports whether downloads should go to a bucket instead of the
// local download directory.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Config holds runtime settings for the Briefly CLI.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	DatabasePath   string
	Ephemeral      bool
	DownloadDir    string
	LogLevel       string
	// SessionSecret, when set, seals the persisted session at rest.
	SessionSecret string
	S3            S3Config
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 30 * time.Second
	c.DatabasePath = "briefly.db"
	c.DownloadDir = "download"
	c.LogLevel = "info"
	c.S3.Region = "us-east-1"
	c.S3.LinkTTL = 15 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, ".env")
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
