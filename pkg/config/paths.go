package config

import (
	"os"
	"path/filepath"
)

// AppName names the application's directories.
const AppName = "legacylink"

// Dir returns the config directory ($XDG_CONFIG_HOME/legacylink, or
// ~/.config/legacylink).
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the cache directory ($XDG_CACHE_HOME/legacylink, or
// ~/.cache/legacylink).
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DataDir returns the data directory ($XDG_DATA_HOME/legacylink, or
// ~/.local/share/legacylink).
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}
