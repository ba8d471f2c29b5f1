package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_OWNER", "")
	t.Setenv("GITHUB_REPO", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.NilError(t, err)
	assert.Equal(t, 25, cfg.ItemsPerPage)
	assert.Equal(t, 50, cfg.MaxRecentItems)
	assert.Equal(t, 5*time.Minute, cfg.Interval())
	assert.Assert(t, !cfg.Ready())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghsync.toml")
	body := `
owner = "octocat"
repo = "hello-world"
token = "from-file"
items_per_page = 30
max_recent_items = 90
refresh_minutes = 10
repos = ["hello-world", "spoon-knife"]
`
	assert.NilError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("GITHUB_TOKEN", "from-env")
	t.Setenv("GITHUB_OWNER", "")
	t.Setenv("GITHUB_REPO", "")

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, "octocat", cfg.Owner)
	assert.Equal(t, "hello-world", cfg.Repo)
	assert.Equal(t, "from-env", cfg.Token) // env wins over file
	assert.Equal(t, 30, cfg.ItemsPerPage)
	assert.Equal(t, 10*time.Minute, cfg.Interval())
	assert.Equal(t, 2, len(cfg.Repos))
	assert.Assert(t, cfg.Ready())
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghsync.toml")
	assert.NilError(t, os.WriteFile(path, []byte("owner = [broken"), 0o600))

	_, err := Load(path)
	assert.Assert(t, err != nil)
}

func TestClampBounds(t *testing.T) {
	tests := []struct {
		name          string
		perPage       int
		maxRecent     int
		wantPerPage   int
		wantMaxRecent int
	}{
		{"below minimum", 0, -5, 1, 1},
		{"above maximum", 500, 5000, 100, 1000},
		{"in range", 25, 50, 25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ItemsPerPage: tt.perPage, MaxRecentItems: tt.maxRecent, RefreshMinutes: 5}
			cfg.Clamp()
			assert.Equal(t, tt.wantPerPage, cfg.ItemsPerPage)
			assert.Equal(t, tt.wantMaxRecent, cfg.MaxRecentItems)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Token: "t", Owner: "o", Repo: "r"}
	assert.NilError(t, cfg.Validate())

	cfg.Token = ""
	assert.ErrorContains(t, cfg.Validate(), "token")
}
