package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the configuration for the extraction server
type Config struct {
	ServerHost     string   `json:"server_host" env:"SERVER_HOST"`
	ServerPort     int      `json:"server_port" env:"SERVER_PORT"`
	TrustedProxies []string `json:"trusted_proxies,omitempty" env:"TRUSTED_PROXIES" envSeparator:","`

	ClipsDir      string `json:"clips_dir" env:"CLIPS_DIR"`
	ClipExtension string `json:"clip_extension" env:"CLIP_EXTENSION"`
	MaxClipFiles  int    `json:"max_clip_files" env:"MAX_CLIP_FILES"`
	// ClipsBaseURL prefixes the video_url of clip responses. Clips are served
	// from ClipsDir by an external file server mounted at this path.
	ClipsBaseURL  string `json:"clips_base_url" env:"CLIPS_BASE_URL"`

	FFmpegPath         string `json:"ffmpeg_path" env:"FFMPEG_PATH"`
	ExecTimeoutSeconds int    `json:"exec_timeout_seconds" env:"EXEC_TIMEOUT_SECONDS"`
	KillGraceSeconds   int    `json:"kill_grace_seconds" env:"KILL_GRACE_SECONDS"`

	// MaxConcurrent caps simultaneous extractions, 0 means unlimited
	MaxConcurrent int  `json:"max_concurrent" env:"MAX_CONCURRENT"`
	ErrorImage    bool `json:"error_image" env:"ERROR_IMAGE"`
	// FileFallback re-encodes local file clips once when stream copy fails
	FileFallback  bool `json:"file_fallback" env:"FILE_FALLBACK"`

	DatabasePath string `json:"database_path" env:"DATABASE_PATH"`
	LogPath      string `json:"log_path" env:"LOG_PATH"`
	LogLevel     string `json:"log_level" env:"LOG_LEVEL"`
	LogConsole   bool   `json:"log_console" env:"LOG_CONSOLE"`

	MetricsEnabled  bool   `json:"metrics_enabled" env:"METRICS_ENABLED"`
	TracingEndpoint string `json:"tracing_endpoint,omitempty" env:"TRACING_ENDPOINT"`
	ServiceName     string `json:"service_name" env:"SERVICE_NAME"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerHost:         "0.0.0.0",
		ServerPort:         3000,
		ClipsDir:           "clips",
		ClipExtension:      "mp4",
		MaxClipFiles:       100,
		ClipsBaseURL:       "/clips/",
		FFmpegPath:         "ffmpeg",
		ExecTimeoutSeconds: 30,
		KillGraceSeconds:   2,
		MaxConcurrent:      0,
		ErrorImage:         true,
		FileFallback:       true,
		DatabasePath:       "framegrab.db",
		LogPath:            "logs",
		LogLevel:           "info",
		LogConsole:         true,
		MetricsEnabled:     true,
		ServiceName:        "framegrab",
	}
}

// LoadConfig loads the configuration from a JSON file. A missing file is not an
// error, the defaults are returned instead.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// ApplyEnvironment overrides values from the process environment. Variables
// from dotenvPath are loaded first but never replace ones already set.
func (c *Config) ApplyEnvironment(dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Load reads the JSON file at path and then applies environment overrides
func Load(path, dotenvPath string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvironment(dotenvPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	if c.ClipsDir == "" {
		return fmt.Errorf("clips directory must not be empty")
	}
	if c.ClipExtension == "" || strings.ContainsAny(c.ClipExtension, "./\\") {
		return fmt.Errorf("invalid clip extension: %q", c.ClipExtension)
	}
	if c.MaxClipFiles <= 0 {
		return fmt.Errorf("max clip files must be positive: %d", c.MaxClipFiles)
	}
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path must not be empty")
	}
	if c.ExecTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid exec timeout: %d", c.ExecTimeoutSeconds)
	}
	if c.KillGraceSeconds <= 0 {
		return fmt.Errorf("invalid kill grace: %d", c.KillGraceSeconds)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent must not be negative: %d", c.MaxConcurrent)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	return nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}

	return nil
}

// EnsureDirectories creates the clip output directory
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.ClipsDir, 0755); err != nil {
		return fmt.Errorf("failed to create clips directory: %w", err)
	}
	return nil
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.KillGraceSeconds) * time.Second
}
