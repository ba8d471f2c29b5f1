// Package config loads the sync layer's consumed configuration: the
// API token, target repository, refresh cadence and pagination
// bounds. Values come from a TOML file with environment overrides; a
// .env file is honored for the token.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
)

const (
	minPerPage = 1
	maxPerPage = 100

	minRecentItems = 1
	maxRecentItems = 1000
)

// Config holds everything the sync layer consumes. The credential
// store and UI own these values in the editor integration; here they
// are read once and threaded through the components that need them.
type Config struct {
	Token string `toml:"token"`
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`

	// Repos lists the selectable repositories for the repo-switch
	// command.
	Repos []string `toml:"repos"`

	CacheDir string `toml:"cache_dir"`

	RefreshMinutes int `toml:"refresh_minutes"`
	ItemsPerPage   int `toml:"items_per_page"`
	MaxRecentItems int `toml:"max_recent_items"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		RefreshMinutes: 5,
		ItemsPerPage:   25,
		MaxRecentItems: 50,
	}
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".ghsync.toml"
	}
	return filepath.Join(home, ".ghsync.toml")
}

func defaultCacheDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "cache"
	}
	return filepath.Join(home, ".ghsync", "cache")
}

// Load reads path (DefaultPath when empty), applies environment
// overrides and clamps bounds. A missing file is not an error.
func Load(path string) (*Config, error) {
	// Populates the process env from a .env file if one exists, so
	// GITHUB_TOKEN never has to live in the config file.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to parse config %s: %v", path, err)
		}
		logrus.Debugf("config: no file at %s, using defaults", path)
	}

	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("GITHUB_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("GITHUB_REPO"); v != "" {
		cfg.Repo = v
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}

	cfg.Clamp()
	return cfg, nil
}

// Clamp forces the pagination and refresh knobs into their documented
// bounds: items-per-page 1-100, max-recent-items 1-1000, refresh
// interval at least one minute.
func (c *Config) Clamp() {
	if c.ItemsPerPage < minPerPage {
		c.ItemsPerPage = minPerPage
	}
	if c.ItemsPerPage > maxPerPage {
		c.ItemsPerPage = maxPerPage
	}
	if c.MaxRecentItems < minRecentItems {
		c.MaxRecentItems = minRecentItems
	}
	if c.MaxRecentItems > maxRecentItems {
		c.MaxRecentItems = maxRecentItems
	}
	if c.RefreshMinutes < 1 {
		c.RefreshMinutes = 1
	}
}

// RepoDir is the repository's directory name inside the cache root.
func (c *Config) RepoDir() string {
	return fmt.Sprintf("%s-%s", c.Owner, c.Repo)
}

// Interval is the auto-refresh period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

// Ready reports whether enough configuration is present to talk to
// the API. Refresh paths skip silently when not ready.
func (c *Config) Ready() bool {
	return c.Token != "" && c.Owner != "" && c.Repo != ""
}

// Validate rejects configurations that can never work.
func (c *Config) Validate() error {
	if len(c.Token) < 1 {
		return errors.New("github token cannot be empty")
	}
	if len(c.Owner) < 1 {
		return errors.New("repository owner cannot be empty")
	}
	if len(c.Repo) < 1 {
		return errors.New("repository name cannot be empty")
	}
	return nil
}
