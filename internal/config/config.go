// Package config loads and persists application configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Version    int              `toml:"version"`
	Server     ServerConfig     `toml:"server"`
	Scraping   ScrapingConfig   `toml:"scraping"`
	Batch      BatchConfig      `toml:"batch"`
	Classifier ClassifierConfig `toml:"classifier"`
	Stats      StatsConfig      `toml:"stats"`
	Refresh    RefreshConfig    `toml:"refresh"`
	Email      EmailConfig      `toml:"email"`
}

type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	// StorePath and ImageDir default to the data directory when empty.
	StorePath string `toml:"store_path"`
	ImageDir  string `toml:"image_dir"`
}

type ScrapingConfig struct {
	Headless           bool `toml:"headless"`
	LoadTimeoutSeconds int  `toml:"load_timeout_seconds"`
	SettleWaitSeconds  int  `toml:"settle_wait_seconds"`
}

type BatchConfig struct {
	MinDelaySeconds int `toml:"min_delay_seconds"`
	MaxDelaySeconds int `toml:"max_delay_seconds"`
	CooldownEvery   int `toml:"cooldown_every"`
	CooldownSeconds int `toml:"cooldown_seconds"`
	PenaltySeconds  int `toml:"penalty_seconds"`
}

// Classifier providers: "clipd" talks to a local CLIP inference daemon,
// "anthropic" scores prompts through the Claude vision API.
const (
	ProviderClipd     = "clipd"
	ProviderAnthropic = "anthropic"
)

type ClassifierConfig struct {
	Provider string `toml:"provider"`
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
}

type StatsConfig struct {
	// WatchKeywords are domain terms ranked alongside hashtags in the
	// keyword report.
	WatchKeywords []string `toml:"watch_keywords"`
}

type RefreshConfig struct {
	Enabled bool `toml:"enabled"`
	// Schedule is a cron expression for retrying incompletely analyzed posts.
	Schedule string `toml:"schedule"`
	Timezone string `toml:"timezone"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Scraping: ScrapingConfig{
			Headless:           true,
			LoadTimeoutSeconds: 60,
			SettleWaitSeconds:  4,
		},
		Batch: BatchConfig{
			MinDelaySeconds: 5,
			MaxDelaySeconds: 12,
			CooldownEvery:   50,
			CooldownSeconds: 300,
			PenaltySeconds:  20,
		},
		Classifier: ClassifierConfig{
			Provider: ProviderClipd,
			Endpoint: "http://localhost:8090",
			Model:    "clip-vit-base-patch32",
		},
		Stats: StatsConfig{
			WatchKeywords: []string{
				"コミケ", "夏コミ", "冬コミ", "アコスタ", "acosta", "池ハロ",
				"となコス", "超会議", "ラグコス", "ワンフェス", "ホココス",
				"ストフェス", "スタジオ", "studio", "撮影会", "宅コス",
				"自撮り", "セルフィー",
			},
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Schedule: "0 */6 * * *",
			Timezone: "Asia/Tokyo",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
	}
}

// ApplyEnv overrides secret-bearing fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("POSTLENS_CLASSIFIER_API_KEY"); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv("POSTLENS_SMTP_PASS"); v != "" {
		c.Email.SMTPPass = v
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "postlens"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding the record store and downloaded images.
func DataDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "postlens"), nil
}

// Load reads config from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

// ResolvePaths fills empty store/image paths from the data directory.
func (c *Config) ResolvePaths() error {
	if c.Server.StorePath != "" && c.Server.ImageDir != "" {
		return nil
	}

	dataDir, err := DataDir()
	if err != nil {
		return err
	}
	if c.Server.StorePath == "" {
		c.Server.StorePath = filepath.Join(dataDir, "records.json")
	}
	if c.Server.ImageDir == "" {
		c.Server.ImageDir = filepath.Join(dataDir, "images")
	}
	return nil
}
