package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rubiojr/edstream/pkg/client"
	"github.com/rubiojr/edstream/pkg/stream"
)

//go:embed config.toml.sample
var configTemplate string

const DefaultHost = "us.edstem.org"

type Config struct {
	Token      string           `toml:"token,omitempty"`
	Host       string           `toml:"host"`
	BaseURL    string           `toml:"base_url,omitempty"`
	Courses    []string         `toml:"courses"`
	Debug      bool             `toml:"debug"`
	StorageDir string           `toml:"storage_dir"`
	Stream     StreamConfig     `toml:"stream"`
	Dispatch   DispatchConfig   `toml:"dispatch"`
	TokenCache TokenCacheConfig `toml:"token_cache"`
}

type StreamConfig struct {
	Backoff          Duration `toml:"backoff"`
	MaxAuthAttempts  int      `toml:"max_auth_attempts"`
	Heartbeat        Duration `toml:"heartbeat"`
	SentRetention    Duration `toml:"sent_retention"`
	SentCapacity     int      `toml:"sent_capacity"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	WriteTimeout     Duration `toml:"write_timeout"`
}

type DispatchConfig struct {
	// MaxConcurrent bounds listeners running at once per event; 0 is unbounded.
	MaxConcurrent int `toml:"max_concurrent"`
}

type TokenCacheConfig struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Path    string `toml:"path,omitempty"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	c := &Config{StorageDir: storageDir}
	c.applyDefaults()
	return c, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	s := &c.Stream
	if s.Backoff.Duration == 0 {
		s.Backoff = Duration{stream.DefaultBackoff}
	}
	if s.MaxAuthAttempts == 0 {
		s.MaxAuthAttempts = stream.DefaultMaxAuthAttempts
	}
	if s.Heartbeat.Duration == 0 {
		s.Heartbeat = Duration{stream.DefaultHeartbeat}
	}
	if s.SentRetention.Duration == 0 {
		s.SentRetention = Duration{stream.DefaultSentRetention}
	}
	if s.SentCapacity == 0 {
		s.SentCapacity = stream.DefaultSentCapacity
	}
	if s.HandshakeTimeout.Duration == 0 {
		s.HandshakeTimeout = Duration{stream.DefaultHandshakeTimeout}
	}
	if s.WriteTimeout.Duration == 0 {
		s.WriteTimeout = Duration{stream.DefaultWriteTimeout}
	}
	if c.TokenCache.Enabled == nil {
		enabled := true
		c.TokenCache.Enabled = &enabled
	}
	if c.TokenCache.Path == "" && c.StorageDir != "" {
		c.TokenCache.Path = filepath.Join(c.StorageDir, "tokens.db")
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	for _, id := range c.Courses {
		if _, err := client.ParseCourseID(id); err != nil {
			return fmt.Errorf("config: courses: %w", err)
		}
	}
	if c.Stream.MaxAuthAttempts < 0 {
		return fmt.Errorf("config: stream.max_auth_attempts must be positive")
	}
	if c.Stream.SentCapacity < 0 {
		return fmt.Errorf("config: stream.sent_capacity must be positive")
	}
	if c.Dispatch.MaxConcurrent < 0 {
		return fmt.Errorf("config: dispatch.max_concurrent must be zero or positive")
	}
	if c.BaseURL != "" {
		if _, err := stream.EndpointFor(c.BaseURL); err != nil {
			return fmt.Errorf("config: base_url: %w", err)
		}
	}
	return nil
}

// TokenCacheEnabled reports whether the stream token is persisted.
func (c *Config) TokenCacheEnabled() bool {
	return c.TokenCache.Enabled == nil || *c.TokenCache.Enabled
}

// APIBaseURL returns base_url or the https URL for host.
func (c *Config) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	return "https://" + host
}

// ClientOptions maps the configuration onto client options. The token store
// is left to the caller.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		BaseURL:          c.APIBaseURL(),
		Token:            c.Token,
		Backoff:          c.Stream.Backoff.Duration,
		MaxAuthAttempts:  c.Stream.MaxAuthAttempts,
		Heartbeat:        c.Stream.Heartbeat.Duration,
		HandshakeTimeout: c.Stream.HandshakeTimeout.Duration,
		WriteTimeout:     c.Stream.WriteTimeout.Duration,
		SentRetention:    c.Stream.SentRetention.Duration,
		SentCapacity:     c.Stream.SentCapacity,
		MaxConcurrent:    c.Dispatch.MaxConcurrent,
	}
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0600)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/edstream", storageDir, 1)
	return template, nil
}

// AddCourse appends a course id unless it is already listed.
func (c *Config) AddCourse(id string) error {
	if _, err := client.ParseCourseID(id); err != nil {
		return err
	}
	for _, existing := range c.Courses {
		if existing == id {
			return nil
		}
	}
	c.Courses = append(c.Courses, id)
	return nil
}

// GetDefaultStorageDir returns the default storage directory for the token cache
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "edstream")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for edstream
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "edstream")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
