package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen   = "127.0.0.1:8080"
	DefaultBaseURL  = "https://raw.githubusercontent.com/tech-conferences/confs.tech/master/conferences"
	DefaultRefresh  = "0 * * * *"
	DefaultType     = "javascript"
	DefaultCacheDir = "./var/conference-cache"

	javascriptBaseURL = "https://raw.githubusercontent.com/tech-conferences/javascript-conferences/master/conferences"
)

// TypeConfig describes one technology listing.
type TypeConfig struct {
	// Key is the lowercase identifier used in URLs and file names (e.g. "ios").
	Key string `yaml:"key" json:"key"`
	// Name is the display name (e.g. "iOS / Swift").
	Name string `yaml:"name" json:"name"`
	// BaseURL overrides DefaultBaseURL for this type when set.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SnapshotConfig controls PNG captures of the listing page.
type SnapshotConfig struct {
	// Enabled captures a snapshot after each scheduled refresh.
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone in which conference dates are read
	// and "now" is evaluated.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string used to reload
	// conference data in the background.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds HTTP cache entries for fetched conference files.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// FetchTimeoutSeconds bounds a single HTTP request.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// DefaultType is served at "/".
	DefaultType string `yaml:"default_type" json:"default_type"`

	// DefaultBaseURL is used for types without their own BaseURL.
	DefaultBaseURL string `yaml:"default_base_url" json:"default_base_url"`

	// Types lists the known technology listings.
	Types []TypeConfig `yaml:"types" json:"types"`

	// YearOffset is added to the current year to get the first year fetched.
	// The default of -1 keeps last year's file so that late-year
	// conferences remain visible in January.
	YearOffset *int `yaml:"year_offset,omitempty" json:"year_offset,omitempty"`

	// YearSpan is how many consecutive years are fetched.
	YearSpan int `yaml:"year_span" json:"year_span"`

	// AddConferenceURL is linked from every year heading.
	AddConferenceURL string `yaml:"add_conference_url" json:"add_conference_url"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultTypes returns the built-in technology table.
func DefaultTypes() []TypeConfig {
	return []TypeConfig{
		{Key: "javascript", Name: "JavaScript", BaseURL: javascriptBaseURL},
		{Key: "css", Name: "CSS"},
		{Key: "ux", Name: "Design / UX"},
		{Key: "ruby", Name: "Ruby"},
		{Key: "ios", Name: "iOS / Swift"},
		{Key: "android", Name: "Android"},
		{Key: "php", Name: "PHP"},
		{Key: "general", Name: "General"},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	offset := -1
	return &Config{
		Listen:              DefaultListen,
		Timezone:            "UTC",
		LogLevel:            "info",
		RefreshCron:         DefaultRefresh,
		CacheDir:            DefaultCacheDir,
		FetchTimeoutSeconds: 15,
		DefaultType:         DefaultType,
		DefaultBaseURL:      DefaultBaseURL,
		Types:               DefaultTypes(),
		YearOffset:          &offset,
		YearSpan:            2,
		AddConferenceURL:    "https://github.com/tech-conferences/confs.tech/issues/new",
		Snapshot: SnapshotConfig{
			Path:   "./var/preview.png",
			Width:  1280,
			Height: 1600,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = def.FetchTimeoutSeconds
	}
	if c.DefaultBaseURL == "" {
		c.DefaultBaseURL = def.DefaultBaseURL
	}
	c.DefaultBaseURL = strings.TrimRight(c.DefaultBaseURL, "/")

	if len(c.Types) == 0 {
		c.Types = def.Types
	}
	for i := range c.Types {
		c.Types[i].Key = strings.ToLower(strings.TrimSpace(c.Types[i].Key))
		c.Types[i].BaseURL = strings.TrimRight(c.Types[i].BaseURL, "/")
		if c.Types[i].Name == "" {
			c.Types[i].Name = c.Types[i].Key
		}
	}

	c.DefaultType = strings.ToLower(c.DefaultType)
	if c.DefaultType == "" {
		c.DefaultType = c.Types[0].Key
	}

	if c.YearOffset == nil {
		c.YearOffset = def.YearOffset
	}
	if c.YearSpan <= 0 {
		c.YearSpan = def.YearSpan
	}
	if c.AddConferenceURL == "" {
		c.AddConferenceURL = def.AddConferenceURL
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = def.Snapshot.Path
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = def.Snapshot.Width
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = def.Snapshot.Height
	}
}

// BaseURLs returns the per-type base URL overrides keyed by type key.
func (c *Config) BaseURLs() map[string]string {
	out := make(map[string]string, len(c.Types))
	for _, t := range c.Types {
		if t.BaseURL != "" {
			out[t.Key] = t.BaseURL
		}
	}
	return out
}

// TypeName returns the display name of key, or key itself when unknown.
func (c *Config) TypeName(key string) string {
	key = strings.ToLower(key)
	for _, t := range c.Types {
		if t.Key == key {
			return t.Name
		}
	}
	return key
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".confcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
