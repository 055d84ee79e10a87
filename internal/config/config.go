package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the studio settings read from config.yaml.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Drafts  DraftsConfig  `yaml:"drafts"`
	Studio  StudioConfig  `yaml:"studio"`
	Export  ExportConfig  `yaml:"export"`
	Assets  AssetsConfig  `yaml:"assets"`
}

// APIConfig points at the storefront backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Token is used only when the secret store holds none.
	Token   string `yaml:"token,omitempty"`
	Retries int    `yaml:"retries"`
	Timeout string `yaml:"timeout"`
}

// StorageConfig selects the local database. An empty DSN means the SQLite
// file under DataDir.
type StorageConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn,omitempty"`
	DataDir string `yaml:"data_dir"`
}

// DraftsConfig optionally moves drafts to a shared MongoDB database.
type DraftsConfig struct {
	MongoURI      string `yaml:"mongo_uri,omitempty"`
	MongoDatabase string `yaml:"mongo_database"`
	Autosave      string `yaml:"autosave"`
}

type StudioConfig struct {
	HistoryLimit int    `yaml:"history_limit"`
	FlushDelay   string `yaml:"flush_delay"`
}

type ExportConfig struct {
	MinDimension int    `yaml:"min_dimension"`
	ThumbnailMax int    `yaml:"thumbnail_max"`
	Dir          string `yaml:"dir"`
}

type AssetsConfig struct {
	Dir          string `yaml:"dir"`
	CacheSize    int    `yaml:"cache_size"`
	MaxImageSize int64  `yaml:"max_image_bytes"`
}

// DefaultPath is ~/.config/studio/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "studio", "config.yaml")
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "studio")
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
			Retries: 2,
			Timeout: "30s",
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: dataDir,
		},
		Drafts: DraftsConfig{
			MongoDatabase: "studio",
			Autosave:      "@every 30s",
		},
		Studio: StudioConfig{
			HistoryLimit: 40,
			FlushDelay:   "150ms",
		},
		Export: ExportConfig{
			MinDimension: 4000,
			ThumbnailMax: 480,
			Dir:          filepath.Join(home, "Downloads"),
		},
		Assets: AssetsConfig{
			Dir:          filepath.Join(dataDir, "assets"),
			CacheSize:    64,
			MaxImageSize: 32 << 20,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STUDIO_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("STUDIO_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("STUDIO_DB_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("STUDIO_DB_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("STUDIO_ASSET_DIR"); v != "" {
		c.Assets.Dir = v
	}
	if v := os.Getenv("STUDIO_MONGO_URI"); v != "" {
		c.Drafts.MongoURI = v
	}
	if v := os.Getenv("STUDIO_MONGO_DB"); v != "" {
		c.Drafts.MongoDatabase = v
	}
}

// SQLitePath is the database file used when no DSN is configured.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Storage.DataDir, "studio.db")
}

func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 30*time.Second)
}

func (c *Config) GetFlushDelay() time.Duration {
	return parseDuration(c.Studio.FlushDelay, 150*time.Millisecond)
}

// Validate checks the fields that have no usable fallback.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (set STUDIO_API_URL)")
	}
	switch c.Storage.Driver {
	case "", "sqlite", "sqlite3":
	default:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	}
	if c.Studio.HistoryLimit < 0 {
		return fmt.Errorf("studio.history_limit must not be negative")
	}
	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
