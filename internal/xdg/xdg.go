// Package xdg provides helpers to resolve XDG Base Directory paths for castline.
// Configuration lives under XDG_CONFIG_HOME and the persistent query cache
// under XDG_CACHE_HOME, each falling back to the conventional home-relative
// location when the variable is unset.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "castline"

// ConfigDir returns the XDG config directory for castline.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/castline when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the XDG cache directory for castline.
// It falls back to ~/.cache/castline when XDG_CACHE_HOME is unset.
func CacheDir() (string, error) {
	return ensure("XDG_CACHE_HOME", ".cache")
}

func ensure(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
