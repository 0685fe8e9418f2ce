// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig     `envPrefix:"SHELFMARK_"`
	Logger  LoggerConfig  `envPrefix:"SHELFMARK_"`
	Data    DataConfig    `envPrefix:"SHELFMARK_"`
	Server  ServerConfig  `envPrefix:"SHELFMARK_SERVER_"`
	Archive ArchiveConfig `envPrefix:"SHELFMARK_ARCHIVE_"`
	Gemini  GeminiConfig  `envPrefix:"SHELFMARK_GEMINI_"`
	Ingest  IngestConfig  `envPrefix:"SHELFMARK_INGEST_"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// DataConfig holds the base directory for all persistent state: the catalog
// database, the enrichment cache, the search index, and downloaded assets.
type DataConfig struct {
	BasePath string `env:"DATA_PATH"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name        string        `env:"NAME" envDefault:"Shelfmark Server"`
	Port        string        `env:"PORT" envDefault:"8080"`
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	// WriteTimeout must cover a whole ingestion batch: trigger responses
	// hold the connection until the run finishes, and the archive's
	// rate-limited pacing puts that in the minutes.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30m"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// ArchiveConfig holds configuration for the public-domain archive the
// ingestion pipeline pulls from.
type ArchiveConfig struct {
	// BaseURL is the archive root, e.g. https://archive.org
	BaseURL string `env:"BASE_URL" envDefault:"https://archive.org"`
	// Source names the archive in ingestion state and run logs.
	Source string `env:"SOURCE" envDefault:"internetarchive"`
	// Collection scopes the paged search.
	Collection string `env:"COLLECTION" envDefault:"gutenberg"`
	// MinDelay is the minimum delay between calls to the archive (1-3s is polite).
	MinDelay        time.Duration `env:"MIN_DELAY" envDefault:"2s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"60s"`
	// MaxAssetBytes caps a single asset download (default 100 MiB).
	MaxAssetBytes int64 `env:"MAX_ASSET_BYTES" envDefault:"104857600"`
}

// GeminiConfig holds configuration for the AI classification and description
// service. An empty APIKey disables enrichment; ingestion still runs.
type GeminiConfig struct {
	APIKey         string        `env:"API_KEY"`
	BaseURL        string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Model          string        `env:"MODEL" envDefault:"gemini-2.0-flash"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

// IngestConfig holds ingestion pipeline defaults.
type IngestConfig struct {
	// BatchSize is the default page size when a trigger does not supply one.
	BatchSize int `env:"BATCH_SIZE" envDefault:"15"`
	// EnrichmentTTL bounds how long cached AI responses are reused.
	EnrichmentTTL time.Duration `env:"ENRICHMENT_TTL" envDefault:"720h"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	environment := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for persistent data")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found). Real
	// environment variables win over .env entries.
	_ = loadEnvFile(*envFile)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Flags override everything.
	if *environment != "" {
		cfg.App.Environment = *environment
	}
	if *logLevel != "" {
		cfg.Logger.Level = *logLevel
	}
	if *dataPath != "" {
		cfg.Data.BasePath = *dataPath
	}
	if *serverName != "" {
		cfg.Server.Name = *serverName
	}
	if *serverPort != "" {
		cfg.Server.Port = *serverPort
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Archive.BaseURL == "" {
		return errors.New("archive base URL is required")
	}
	if c.Archive.Source == "" {
		return errors.New("archive source name is required")
	}
	if c.Archive.MinDelay < 0 {
		return fmt.Errorf("archive min delay must not be negative: %s", c.Archive.MinDelay)
	}

	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest batch size must be at least 1: %d", c.Ingest.BatchSize)
	}

	return nil
}

// DatabasePath returns the sqlite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.BasePath, "shelfmark.db")
}

// CachePath returns the badger enrichment cache directory.
func (c *Config) CachePath() string {
	return filepath.Join(c.Data.BasePath, "cache", "enrichment")
}

// IndexPath returns the bleve search index directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Data.BasePath, "index")
}

// AssetsPath returns the directory for downloaded book assets.
func (c *Config) AssetsPath() string {
	return filepath.Join(c.Data.BasePath, "assets")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute, defaulting to
// ~/Shelfmark/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Shelfmark", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
