// Package diskcache stores JSON snapshots under one directory per
// repository. The disk tier is advisory, never authoritative: every
// read or write failure is logged and swallowed, and malformed
// content is treated the same as an absent file.
package diskcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Cache reads and writes blobs scoped to a single owner-repo
// directory. Concurrent writers to the same name may race; writes go
// through a temp file and rename, so last-write-wins with no torn
// files.
type Cache struct {
	dir string
}

// New creates a cache rooted at root/{owner}-{repo}. The directory is
// created lazily on first save.
func New(root, owner, repo string) *Cache {
	return &Cache{dir: filepath.Join(root, fmt.Sprintf("%s-%s", owner, repo))}
}

// Dir returns the repository-scoped cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Save serializes v and writes it under name. Failures are logged and
// dropped.
func (c *Cache) Save(name string, v interface{}) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		logrus.Warnf("cache: failed to create %s: %v", c.dir, err)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		logrus.Warnf("cache: failed to encode %s: %v", name, err)
		return
	}

	path := filepath.Join(c.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		logrus.Warnf("cache: write failed for %s: %v", name, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		logrus.Warnf("cache: rename failed for %s: %v", name, err)
	}
}

// Load reads name into v and reports whether a usable snapshot was
// found.
func (c *Cache) Load(name string, v interface{}) bool {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logrus.Warnf("cache: discarding corrupt snapshot %s: %v", name, err)
		return false
	}
	return true
}
