// Package config loads LegacyLink settings from a TOML file and the
// environment.
//
// A missing file is not an error: [Load] returns [Default] with environment
// overrides applied. Precedence, lowest first: defaults, file, LEGACYLINK_*
// environment variables, command-line flags (applied by the CLI).
//
//	[store]
//	backend = "sqlite"
//	path = "~/.local/share/legacylink/trees.db"
//
//	[layout]
//	order = "desc"
//	siblings = true
//
//	[server]
//	addr = ":8080"
//
//	[auth]
//	secret = "change-me"
//	ttl = "24h"
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/legacylink/legacylink/pkg/errors"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

var (
	validStores = []string{StoreMemory, StoreFile, StoreSQLite, StoreMongo, StoreRedis}
	validCaches = []string{CacheFile, CacheRedis, CacheNone}
)

// Duration is a time.Duration written as a Go duration string ("24h").
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the full settings tree.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Layout LayoutConfig `toml:"layout"`
	Server ServerConfig `toml:"server"`
	Auth   AuthConfig   `toml:"auth"`
}

// StoreConfig selects and configures the roster store.
type StoreConfig struct {
	Backend string `toml:"backend"`
	// Path is the directory (file) or database file (sqlite).
	Path string `toml:"path,omitempty"`
	// DSN overrides Path for sqlite.
	DSN        string `toml:"dsn,omitempty"`
	URI        string `toml:"uri,omitempty"`
	Database   string `toml:"database,omitempty"`
	Collection string `toml:"collection,omitempty"`
	Addr       string `toml:"addr,omitempty"`
	Password   string `toml:"password,omitempty"`
	DB         int    `toml:"db,omitempty"`
	KeyPrefix  string `toml:"key_prefix,omitempty"`
}

// CacheConfig selects and configures the render cache.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir,omitempty"`
	Addr     string   `toml:"addr,omitempty"`
	Password string   `toml:"password,omitempty"`
	DB       int      `toml:"db,omitempty"`
	TTL      Duration `toml:"ttl"`
}

// LayoutConfig holds default layout options.
type LayoutConfig struct {
	NodeWidth  float64 `toml:"node_width"`
	NodeHeight float64 `toml:"node_height"`
	Spacing    float64 `toml:"spacing"`
	RowHeight  float64 `toml:"row_height"`
	Margin     float64 `toml:"margin"`
	Order      string  `toml:"order"`
	Siblings   bool    `toml:"siblings"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	CORSOrigins  []string `toml:"cors_origins"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// AuthConfig configures login and token issuing.
type AuthConfig struct {
	Secret   string   `toml:"secret"`
	TTL      Duration `toml:"ttl"`
	Provider string   `toml:"provider"`
	// Disabled serves every API request as a local user.
	Disabled bool `toml:"disabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:    StoreFile,
			Database:   AppName,
			Collection: "trees",
			Addr:       "localhost:6379",
			KeyPrefix:  AppName + ":",
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Addr:    "localhost:6379",
			TTL:     Duration{7 * 24 * time.Hour},
		},
		Layout: LayoutConfig{
			NodeWidth:  120,
			NodeHeight: 60,
			Spacing:    40,
			RowHeight:  150,
			Margin:     20,
			Order:      "desc",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
		},
		Auth: AuthConfig{
			TTL:      Duration{24 * time.Hour},
			Provider: "email",
		},
	}
}

// Load reads path over the defaults and applies the environment. An empty
// path means [DefaultPath]. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.expandPaths()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from LEGACYLINK_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup("LEGACYLINK_" + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *Duration) error {
		if v, ok := lookup("LEGACYLINK_" + name); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "LEGACYLINK_%s", name)
			}
		}
		return nil
	}

	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_PATH", &c.Store.Path)
	str("STORE_DSN", &c.Store.DSN)
	str("STORE_URI", &c.Store.URI)
	str("STORE_ADDR", &c.Store.Addr)
	str("STORE_PASSWORD", &c.Store.Password)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_DIR", &c.Cache.Dir)
	str("CACHE_ADDR", &c.Cache.Addr)
	str("SERVER_ADDR", &c.Server.Addr)
	str("AUTH_SECRET", &c.Auth.Secret)
	if v, ok := lookup("LEGACYLINK_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("LEGACYLINK_AUTH_DISABLED"); ok {
		c.Auth.Disabled = v == "1" || strings.EqualFold(v, "true")
	}
	if err := dur("CACHE_TTL", &c.Cache.TTL); err != nil {
		return err
	}
	return dur("AUTH_TTL", &c.Auth.TTL)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandPaths resolves a leading ~ in path settings.
func (c *Config) expandPaths() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, p := range []*string{&c.Store.Path, &c.Store.DSN, &c.Cache.Dir} {
		if *p == "~" || strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, strings.TrimPrefix(*p, "~"))
		}
	}
}

// Validate checks enumerations and required fields.
func (c *Config) Validate() error {
	if !slices.Contains(validStores, c.Store.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid store backend: %q (must be one of: %s)",
			c.Store.Backend, strings.Join(validStores, ", "))
	}
	if !slices.Contains(validCaches, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid cache backend: %q (must be one of: %s)",
			c.Cache.Backend, strings.Join(validCaches, ", "))
	}
	if c.Store.Backend == StoreMongo && c.Store.URI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "store backend mongo requires uri")
	}
	switch strings.ToLower(c.Layout.Order) {
	case "", "asc", "ascending", "desc", "descending":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid layout order: %q (must be one of: asc, desc)", c.Layout.Order)
	}
	if c.Layout.NodeWidth < 0 || c.Layout.NodeHeight < 0 || c.Layout.RowHeight < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout sizes must not be negative")
	}
	if c.Auth.TTL.Duration < 0 || c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "ttl must not be negative")
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the configuration to path with 0600 permissions, creating the
// parent directory.
func (c Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
