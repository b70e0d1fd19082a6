// Package cli implements the legacylink command-line interface.
//
// Commands operate on one family tree at a time, selected with --tree and
// kept in the store configured in config.toml. Members can be referenced
// by id, by a unique id prefix, or by their exact name.
//
// # Commands
//
//   - member add|list|show|edit|remove, link, unlink: edit the tree
//   - relation, relations: kinship labels
//   - layout, render, export: generational layout and its renderings
//   - search, stats, validate, browse: inspect the tree
//   - import, backup: move trees in and out of files
//   - serve: run the HTTP API
//   - login, logout, whoami: local sessions
//   - cache, config, completion, version: housekeeping
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/cache"
	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/pipeline"
	"github.com/legacylink/legacylink/pkg/store"
)

const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// stdout receives command output and stdin feeds "import -". Tests swap
// them for buffers.
var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	tree       string
	verbose    bool
	noCache    bool

	cfg    config.Config
	runner *pipeline.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// pipelineRunner opens the configured store and cache on first use.
func (c *CLI) pipelineRunner(ctx context.Context) (*pipeline.Runner, error) {
	if c.runner != nil {
		return c.runner, nil
	}
	rosters, err := store.Open(ctx, c.cfg.Store)
	if err != nil {
		return nil, err
	}
	cc, err := c.openCache(ctx)
	if err != nil {
		_ = rosters.Close()
		return nil, err
	}
	c.runner = pipeline.NewRunner(rosters, cc, nil, c.Logger)
	c.runner.TTL = c.cfg.Cache.TTL.Duration
	return c.runner, nil
}

// openCache returns the configured cache. A file cache that cannot be
// created degrades to no caching.
func (c *CLI) openCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.cfg.Cache.Addr,
			Password: c.cfg.Cache.Password,
			DB:       c.cfg.Cache.DB,
			Prefix:   appName + ":cache:",
		})
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache disabled", "dir", dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// Close releases the store and cache opened by commands.
func (c *CLI) Close() error {
	if c.runner == nil {
		return nil
	}
	err := c.runner.Close()
	c.runner = nil
	return err
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, else the XDG one
// (~/.cache/legacylink/).
func (c *CLI) cacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return config.CacheDir()
}

func (c *CLI) sessionDir() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// =============================================================================
// Tree Helpers
// =============================================================================

func (c *CLI) loadTree(cmd *cobra.Command) (*pipeline.Runner, *family.Roster, error) {
	r, err := c.pipelineRunner(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	roster, err := r.Load(cmd.Context(), c.tree)
	if err != nil {
		return nil, nil, err
	}
	return r, roster, nil
}

func (c *CLI) mutateTree(cmd *cobra.Command, fn func(*family.Roster) error) (*family.Roster, error) {
	r, err := c.pipelineRunner(cmd.Context())
	if err != nil {
		return nil, err
	}
	return r.Mutate(cmd.Context(), c.tree, fn)
}

// layoutOptions seeds pipeline options from the config's layout section.
func (c *CLI) layoutOptions() pipeline.Options {
	opts := pipeline.OptionsFromConfig(c.cfg.Layout)
	opts.Tree = c.tree
	opts.Logger = c.Logger
	return opts
}

// checkTree validates the --tree flag before any store is opened.
func (c *CLI) checkTree() error {
	if c.tree == "" {
		c.tree = pipeline.DefaultTree
	}
	return errors.ValidateTreeID(c.tree)
}
