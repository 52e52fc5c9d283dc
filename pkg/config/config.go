// Package config provides configuration management for faceclock.
// It loads configuration from YAML files with sensible defaults, then
// applies FACECLOCK_* environment overrides for deployment-time values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all faceclock configuration.
type Config struct {
	Services ServicesConfig `yaml:"services"`
	Camera   CameraConfig   `yaml:"camera"`
	Presence PresenceConfig `yaml:"presence"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Geo      GeoConfig      `yaml:"geolocation"`
	Notify   NotifyConfig   `yaml:"notification"`
	Auth     AuthConfig     `yaml:"auth"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServicesConfig holds the base URLs of the backing services.
// CompareURL may be empty, in which case pairwise comparison runs locally.
type ServicesConfig struct {
	HRBaseURL      string `yaml:"hr_base_url"`
	EmbeddingURL   string `yaml:"embedding_url"`
	CompareURL     string `yaml:"compare_url"`
	RequestTimeout int    `yaml:"request_timeout"` // seconds
}

// CameraConfig holds camera settings.
type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// PresenceConfig holds presence monitoring settings.
type PresenceConfig struct {
	SampleInterval int     `yaml:"sample_interval"` // seconds
	OffDebounce    int     `yaml:"off_debounce"`    // seconds
	DetectionBias  float64 `yaml:"detection_bias"`  // stub source miss rate
}

// MatcherConfig holds face matching settings.
type MatcherConfig struct {
	MinSimilarity    float64 `yaml:"min_similarity"`
	ParallelCompares int     `yaml:"parallel_compares"` // 0 = sequential
}

// GeoConfig holds geolocation settings. Lat and Lng are the kiosk's
// installation site; when unset, records carry the (0,0) sentinel.
type GeoConfig struct {
	Enabled bool    `yaml:"enabled"`
	Timeout int     `yaml:"timeout"` // seconds
	Lat     float64 `yaml:"lat"`
	Lng     float64 `yaml:"lng"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	ResetAfter int `yaml:"reset_after"` // seconds
}

// AuthConfig holds operator identity settings.
type AuthConfig struct {
	Email        string `yaml:"email"`
	TokenPath    string `yaml:"token_path"`
	EncryptToken bool   `yaml:"encrypt_token"`
}

// ServerConfig holds the local HTTP surface settings.
type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Services: ServicesConfig{
			HRBaseURL:      "http://localhost:8080",
			EmbeddingURL:   "http://localhost:5000/generate-embedding",
			CompareURL:     "http://localhost:5000/compare-embeddings",
			RequestTimeout: 15,
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
		},
		Presence: PresenceConfig{
			SampleInterval: 2,
			OffDebounce:    3,
			DetectionBias:  0.2,
		},
		Matcher: MatcherConfig{
			MinSimilarity:    0.75,
			ParallelCompares: 0,
		},
		Geo: GeoConfig{
			Enabled: true,
			Timeout: 5,
		},
		Notify: NotifyConfig{
			ResetAfter: 3,
		},
		Auth: AuthConfig{
			TokenPath:    filepath.Join(homeDir, ".local/share/faceclock/token"),
			EncryptToken: true,
		},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8790",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/faceclock/faceclock.log"),
		},
	}
}

// Load loads configuration from the specified file and applies
// environment overrides.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	config.applyEnv()
	return config, nil
}

// LoadDefault tries to load configuration from default locations.
// A .env file in the working directory is honored for local development;
// its absence is not an error.
func LoadDefault() (*Config, error) {
	_ = godotenv.Load()

	if _, err := os.Stat("/etc/faceclock/faceclock.yaml"); err == nil {
		return Load("/etc/faceclock/faceclock.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}

	userConfig := filepath.Join(homeDir, ".config/faceclock/faceclock.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies FACECLOCK_* environment overrides for the values that
// change per deployment.
func (c *Config) applyEnv() {
	if v := os.Getenv("FACECLOCK_HR_BASE_URL"); v != "" {
		c.Services.HRBaseURL = v
	}
	if v := os.Getenv("FACECLOCK_EMBEDDING_URL"); v != "" {
		c.Services.EmbeddingURL = v
	}
	if v := os.Getenv("FACECLOCK_COMPARE_URL"); v != "" {
		c.Services.CompareURL = v
	}
	if v := os.Getenv("FACECLOCK_EMAIL"); v != "" {
		c.Auth.Email = v
	}
	if v := os.Getenv("FACECLOCK_TOKEN_PATH"); v != "" {
		c.Auth.TokenPath = v
	}
	if v := os.Getenv("FACECLOCK_LISTEN"); v != "" {
		c.Server.Listen = v
	}
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Camera.Device = ExpandPath(c.Camera.Device)
	c.Auth.TokenPath = ExpandPath(c.Auth.TokenPath)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Services.HRBaseURL == "" {
		return fmt.Errorf("services.hr_base_url must be set")
	}
	if c.Services.EmbeddingURL == "" {
		return fmt.Errorf("services.embedding_url must be set")
	}
	if c.Services.RequestTimeout <= 0 {
		return fmt.Errorf("services.request_timeout must be positive, got %d", c.Services.RequestTimeout)
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	if c.Presence.SampleInterval <= 0 {
		return fmt.Errorf("presence.sample_interval must be positive, got %d", c.Presence.SampleInterval)
	}
	if c.Presence.OffDebounce <= 0 {
		return fmt.Errorf("presence.off_debounce must be positive, got %d", c.Presence.OffDebounce)
	}
	if c.Presence.DetectionBias < 0 || c.Presence.DetectionBias > 1 {
		return fmt.Errorf("presence.detection_bias must be between 0 and 1, got %f", c.Presence.DetectionBias)
	}

	if c.Matcher.MinSimilarity < 0 || c.Matcher.MinSimilarity > 1 {
		return fmt.Errorf("matcher.min_similarity must be between 0 and 1, got %f", c.Matcher.MinSimilarity)
	}
	if c.Matcher.ParallelCompares < 0 {
		return fmt.Errorf("matcher.parallel_compares must not be negative, got %d", c.Matcher.ParallelCompares)
	}

	if c.Geo.Timeout <= 0 {
		return fmt.Errorf("geolocation.timeout must be positive, got %d", c.Geo.Timeout)
	}
	if c.Notify.ResetAfter <= 0 {
		return fmt.Errorf("notification.reset_after must be positive, got %d", c.Notify.ResetAfter)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// Timeout returns the per-request timeout for service calls.
func (s ServicesConfig) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// SampleEvery returns the presence sampling interval.
func (p PresenceConfig) SampleEvery() time.Duration {
	return time.Duration(p.SampleInterval) * time.Second
}

// Debounce returns the camera-off debounce window.
func (p PresenceConfig) Debounce() time.Duration {
	return time.Duration(p.OffDebounce) * time.Second
}

// Budget returns the geolocation time budget.
func (g GeoConfig) Budget() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

// ResetDelay returns how long a notification stays up before the session
// resets.
func (n NotifyConfig) ResetDelay() time.Duration {
	return time.Duration(n.ResetAfter) * time.Second
}
