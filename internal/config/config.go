package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	BaseURL         string // Mesonet web interface root
	DataDir         string // geoinfo.csv and mts_files/ live here
	HTTPAddr        string // empty disables the health/metrics server
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DownloadAttempts int
	DownloadTimeout  time.Duration
	ParseCacheSize   int // in-memory LRU of parsed day files

	// Kafka sink configuration. Publishing is enabled when brokers are set.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// InfluxDB sink configuration. Enabled when URL is set.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// SQLite archive configuration. Enabled when path is set.
	SQLitePath string
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	attempts, err := parsePositiveInt("DOWNLOAD_ATTEMPTS", 2)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("PARSE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:         envOrDefault("MESONET_BASE_URL", "http://www.mesonet.org/index.php/"),
		DataDir:         envOrDefault("DATA_DIR", "data"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DownloadAttempts: attempts,
		DownloadTimeout:  downloadTimeout,
		ParseCacheSize:   cacheSize,

		KafkaBrokers:   parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "mesonet-observations"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envOrDefault("INFLUX_ORG", "mesonet"),
		InfluxBucket: envOrDefault("INFLUX_BUCKET", "mesonet"),

		SQLitePath: os.Getenv("SQLITE_PATH"),
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("MESONET_BASE_URL is required")
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_SINK_TOPIC is empty")
	}
	if cfg.InfluxURL != "" && cfg.InfluxToken == "" {
		return nil, errors.New("INFLUX_URL is set but INFLUX_TOKEN is empty")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the Kafka sink should be wired up.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// InfluxEnabled reports whether the InfluxDB sink should be wired up.
func (c *Config) InfluxEnabled() bool { return c.InfluxURL != "" }

// ArchiveEnabled reports whether the SQLite archive should be wired up.
func (c *Config) ArchiveEnabled() bool { return c.SQLitePath != "" }

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
