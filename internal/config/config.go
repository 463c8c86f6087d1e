// Package config loads and validates the forestwatch.json project
// configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "forestwatch.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"

	// DefaultUploadDir is the default temp upload directory.
	DefaultUploadDir = "uploads"
)

// Config represents the complete forestwatch.json configuration.
type Config struct {
	// Name is the project name shown in logs and page titles.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Upload contains upload storage settings.
	Upload UploadConfig `json:"upload,omitempty"`

	// Analysis contains analysis pipeline settings.
	Analysis AnalysisConfig `json:"analysis,omitempty"`

	// Logging contains log output settings.
	Logging LoggingConfig `json:"logging,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to serve on.
	Port int `json:"port,omitempty"`

	// ReadTimeout is the request read timeout (e.g. "15s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout is the response write timeout (e.g. "30s").
	WriteTimeout string `json:"writeTimeout,omitempty"`
}

// UploadConfig contains upload storage settings.
type UploadConfig struct {
	// Dir is the directory for temp uploads (DiskStore).
	Dir string `json:"dir,omitempty"`

	// MaxFileSizeMB caps uploads in megabytes.
	MaxFileSizeMB int64 `json:"maxFileSizeMB,omitempty"`

	// S3Bucket, if set, switches storage to S3.
	S3Bucket string `json:"s3Bucket,omitempty"`

	// S3Prefix is the key prefix inside the bucket.
	S3Prefix string `json:"s3Prefix,omitempty"`
}

// AnalysisConfig contains analysis pipeline settings.
type AnalysisConfig struct {
	// Latency is the simulated processing time (e.g. "2s").
	Latency string `json:"latency,omitempty"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Name: "forestwatch",
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  "15s",
			WriteTimeout: "30s",
		},
		Upload: UploadConfig{
			Dir:           DefaultUploadDir,
			MaxFileSizeMB: 16,
		},
		Analysis: AnalysisConfig{
			Latency: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from the given path. An empty path
// searches the current directory and its parents for ConfigFileName.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		found, err := find()
		if err != nil {
			return cfg, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.configPath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// find walks up from the working directory looking for ConfigFileName.
func find() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Upload.MaxFileSizeMB < 0 {
		return fmt.Errorf("config: negative upload size limit %d", c.Upload.MaxFileSizeMB)
	}
	if c.Analysis.Latency != "" {
		if _, err := time.ParseDuration(c.Analysis.Latency); err != nil {
			return fmt.Errorf("config: invalid analysis latency %q: %w", c.Analysis.Latency, err)
		}
	}
	for _, d := range []string{c.Server.ReadTimeout, c.Server.WriteTimeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("config: invalid timeout %q: %w", d, err)
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	return nil
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	host := c.Server.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Server.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// MaxFileSize returns the upload cap in bytes.
func (c *Config) MaxFileSize() int64 {
	mb := c.Upload.MaxFileSizeMB
	if mb <= 0 {
		mb = 16
	}
	return mb << 20
}

// AnalysisLatency returns the parsed simulated latency.
func (c *Config) AnalysisLatency() time.Duration {
	d, err := time.ParseDuration(c.Analysis.Latency)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return parseDurationOr(c.Server.ReadTimeout, 15*time.Second)
}

// WriteTimeout returns the parsed server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return parseDurationOr(c.Server.WriteTimeout, 30*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Path returns where the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// Save writes the configuration to the given path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	c.configPath = path
	return nil
}
