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
)

// WatchMode selects the directory-watch strategy.
type WatchMode string

// Supported watch modes.
const (
	WatchModeNative  WatchMode = "native"  // OS notifications via fsnotify
	WatchModePolling WatchMode = "polling" // Interval directory scans
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Library  LibraryConfig
	Monitor  MonitorConfig
	Caption  CaptionConfig
	Server   ServerConfig
	Metadata MetadataConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// LibraryConfig holds the meme library configuration.
type LibraryConfig struct {
	// DataPath is the directory that holds the images and that the
	// monitor watches for new files.
	DataPath string
}

// MonitorConfig holds the file monitor configuration.
type MonitorConfig struct {
	// Extensions is the set of accepted file extensions (lowercase, with dot).
	Extensions []string
	// Debounce is how long to wait after a creation event before
	// verifying the file (lets the writer finish).
	Debounce time.Duration
	// MaxInFlight bounds pending+processing files; admissions beyond
	// this are dropped and counted.
	MaxInFlight int
	// WatchMode selects native notifications or polling.
	WatchMode WatchMode
	// PollInterval is the scan interval when WatchMode is polling.
	PollInterval time.Duration
	// Workers is the size of the debounce/verify worker pool.
	Workers int
}

// CaptionConfig holds the caption service client configuration.
type CaptionConfig struct {
	// URL is the base URL of the vision-model caption service.
	URL string
	// Timeout bounds a single caption request.
	Timeout time.Duration
	// RequestsPerSecond rate-limits outbound caption requests.
	RequestsPerSecond float64
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	// UploadRPS rate-limits uploads per client IP.
	UploadRPS   float64
	UploadBurst int
}

// MetadataConfig holds metadata storage configuration (catalog db, search index).
type MetadataConfig struct {
	BasePath string
}

// DefaultExtensions is the accepted image extension set when none is configured.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Directory holding the meme library")
	metadataPath := flag.String("metadata-path", "", "Base path for metadata storage")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")

	monitorExtensions := flag.String("monitor-extensions", "", "Comma-separated accepted extensions (default: .jpg,.jpeg,.png,.gif,.bmp,.webp)")
	monitorDebounce := flag.String("monitor-debounce", "", "Debounce duration before verifying new files (default: 1s)")
	monitorMaxInFlight := flag.String("monitor-max-in-flight", "", "Max files pending+processing before dropping (default: 100)")
	monitorWatchMode := flag.String("monitor-watch-mode", "", "Watch mode: native or polling (default: native)")
	monitorPollInterval := flag.String("monitor-poll-interval", "", "Poll interval for polling mode (default: 2s)")
	monitorWorkers := flag.String("monitor-workers", "", "Debounce/verify worker count (default: 4)")

	captionURL := flag.String("caption-url", "", "Base URL of the caption service")
	captionTimeout := flag.String("caption-timeout", "", "Caption request timeout (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Library: LibraryConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Monitor: MonitorConfig{
			Extensions:  parseExtensions(getConfigValue(*monitorExtensions, "MONITOR_EXTENSIONS", "")),
			MaxInFlight: getIntConfigValue(*monitorMaxInFlight, "MONITOR_MAX_IN_FLIGHT", 100),
			WatchMode:   WatchMode(getConfigValue(*monitorWatchMode, "MONITOR_WATCH_MODE", string(WatchModeNative))),
			Workers:     getIntConfigValue(*monitorWorkers, "MONITOR_WORKERS", 4),
		},
		Caption: CaptionConfig{
			URL:               getConfigValue(*captionURL, "CAPTION_URL", "http://localhost:2020"),
			RequestsPerSecond: getFloatConfigValue("", "CAPTION_RPS", 1.0),
		},
		Server: ServerConfig{
			Name:        getConfigValue(*serverName, "SERVER_NAME", "MemeVault Server"),
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			UploadRPS:   getFloatConfigValue("", "UPLOAD_RPS", 2.0),
			UploadBurst: getIntConfigValue("", "UPLOAD_BURST", 5),
		},
		Metadata: MetadataConfig{
			BasePath: getConfigValue(*metadataPath, "METADATA_PATH", ""),
		},
	}

	// Parse durations.
	var err error
	if cfg.Monitor.Debounce, err = parseDurationValue(*monitorDebounce, "MONITOR_DEBOUNCE", "1s"); err != nil {
		return nil, err
	}
	if cfg.Monitor.PollInterval, err = parseDurationValue(*monitorPollInterval, "MONITOR_POLL_INTERVAL", "2s"); err != nil {
		return nil, err
	}
	if cfg.Caption.Timeout, err = parseDurationValue(*captionTimeout, "CAPTION_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Server.ReadTimeout, err = parseDurationValue("", "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue("", "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue("", "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	// Expand and validate paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandMetadataPath(); err != nil {
		return nil, fmt.Errorf("invalid metadata path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

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

	if c.Library.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Metadata.BasePath == "" {
		return errors.New("metadata base path cannot be empty after expansion")
	}

	switch c.Monitor.WatchMode {
	case WatchModeNative, WatchModePolling:
	default:
		return fmt.Errorf("invalid watch mode: %s (must be native or polling)", c.Monitor.WatchMode)
	}

	if c.Monitor.MaxInFlight <= 0 {
		return fmt.Errorf("monitor max in-flight must be positive, got %d", c.Monitor.MaxInFlight)
	}
	if c.Monitor.Workers <= 0 {
		return fmt.Errorf("monitor workers must be positive, got %d", c.Monitor.Workers)
	}
	if c.Monitor.Debounce < 0 {
		return errors.New("monitor debounce cannot be negative")
	}

	for _, ext := range c.Monitor.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid extension %q: must start with a dot", ext)
		}
	}

	return nil
}

// parseExtensions splits a comma-separated extension list, normalizing
// entries to lowercase. Empty input yields the default image set.
func parseExtensions(raw string) []string {
	if raw == "" {
		out := make([]string, len(DefaultExtensions))
		copy(out, DefaultExtensions)
		return out
	}

	parts := strings.Split(raw, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		exts = append(exts, p)
	}
	return exts
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/MemeVault/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "MemeVault", "data")

	expanded, err := expandPath(c.Library.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Library.DataPath = expanded
	return nil
}

// expandMetadataPath expands ~ and makes the path absolute.
// Defaults to ~/MemeVault/metadata.
func (c *Config) expandMetadataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "MemeVault", "metadata")

	expanded, err := expandPath(c.Metadata.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(strings.ReplaceAll(envKey, "_", " ")), raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
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

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
