package store

import (
	"os"
	"path/filepath"
)

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "memocal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "memocal")
}

// CachePath returns the path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "memocal.db")
}
