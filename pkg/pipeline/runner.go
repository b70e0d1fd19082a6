package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/legacylink/legacylink/pkg/cache"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
	"github.com/legacylink/legacylink/pkg/kinship"
	"github.com/legacylink/legacylink/pkg/layout"
	"github.com/legacylink/legacylink/pkg/observability"
	"github.com/legacylink/legacylink/pkg/store"
)

// Runner encapsulates pipeline execution with storage and caching.
// Both CLI and API use it so that loading, caching and rendering behave
// the same everywhere.
//
// The Runner holds no pipeline results. Multiple goroutines can use the
// same Runner; [Runner.Mutate] calls are serialized.
type Runner struct {
	Store  store.RosterStore
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL, when set, caps the lifetime of every cache entry.
	TTL time.Duration

	mu sync.Mutex
}

// NewRunner creates a runner. A nil store is an in-memory store, a nil
// cache disables caching, and a nil keyer is a DefaultKeyer.
func NewRunner(s store.RosterStore, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if s == nil {
		s = store.NewMemory()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:  s,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// =============================================================================
// Full pipeline
// =============================================================================

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	loadStart := time.Now()
	roster, err := r.Load(ctx, opts.Tree)
	if err != nil {
		return nil, err
	}
	result.Roster = roster
	result.RosterHash = RosterHash(roster)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Members = roster.Len()

	r.Logger.Info("loaded tree",
		"tree", opts.Tree,
		"members", roster.Len(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	res, layoutHit, err := r.LayoutWithCacheInfo(ctx, roster, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Connections = len(res.Connections)
	result.Stats.Generations = len(res.Generations)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"nodes", len(res.Nodes),
		"generations", len(res.Generations),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, roster, res, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// =============================================================================
// Storage
// =============================================================================

// Load reads a tree. A tree that was never saved is an empty roster.
func (r *Runner) Load(ctx context.Context, treeID string) (*family.Roster, error) {
	start := time.Now()
	roster, err := r.Store.Load(ctx, treeID)
	n := 0
	if roster != nil {
		n = roster.Len()
	}
	observability.Pipeline().OnLoadComplete(ctx, treeID, n, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

// Save replaces a tree.
func (r *Runner) Save(ctx context.Context, treeID string, roster *family.Roster) error {
	start := time.Now()
	err := r.Store.Save(ctx, treeID, roster)
	observability.Pipeline().OnSaveComplete(ctx, treeID, roster.Len(), time.Since(start), err)
	if err == nil {
		r.Logger.Debug("saved tree", "tree", treeID, "members", roster.Len())
	}
	return err
}

// Mutate loads a tree, applies fn and saves the result. When fn fails
// nothing is saved. Calls on one Runner are serialized, so concurrent
// edits through the same Runner do not lose updates.
func (r *Runner) Mutate(ctx context.Context, treeID string, fn func(*family.Roster) error) (*family.Roster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster, err := r.Load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	if err := fn(roster); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, treeID, roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// Import combines a parsed roster with the stored tree and saves it. The
// returned issues describe integrity problems that remain after import.
func (r *Runner) Import(ctx context.Context, treeID string, incoming *family.Roster, mode ImportMode) (*family.Roster, []family.Issue, error) {
	var issues []family.Issue
	roster, err := r.Mutate(ctx, treeID, func(stored *family.Roster) error {
		combined, found, err := Combine(stored, incoming, mode)
		if err != nil {
			return err
		}
		*stored = *combined
		issues = found
		return nil
	})
	return roster, issues, err
}

// =============================================================================
// Layout
// =============================================================================

// LayoutWithCacheInfo computes a layout with caching and reports whether it
// came from cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, roster *family.Roster, opts Options) (layout.Result, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Result{}, false, err
	}
	key := r.Keyer.LayoutKey(RosterHash(roster), opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, ok := r.cacheGet(ctx, cache.KeyTypeLayout, key); ok {
			if cached, err := graph.UnmarshalLayout(data); err == nil {
				return cached, true, nil
			}
			// Undecodable entries fall through to recompute.
		}
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, roster.Len())
	start := time.Now()
	res := GenerateLayout(roster, opts)
	hooks.OnLayoutComplete(ctx, len(res.Nodes), time.Since(start), nil)

	if data, err := graph.MarshalLayout(res); err == nil {
		r.cacheSet(ctx, cache.KeyTypeLayout, key, data, cache.TTLLayout)
	}
	return res, false, nil
}

// Layout is LayoutWithCacheInfo without the cache hit info.
func (r *Runner) Layout(ctx context.Context, roster *family.Roster, opts Options) (layout.Result, error) {
	res, _, err := r.LayoutWithCacheInfo(ctx, roster, opts)
	return res, err
}

// =============================================================================
// Render
// =============================================================================

// RenderWithCacheInfo generates artifacts with caching. The hit flag is true
// only when every format came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, roster *family.Roster, res layout.Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutData, err := graph.MarshalLayout(res)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	// Artifacts show member payload the layout omits (dates, biographies),
	// so the key covers both.
	base := cache.Hash([]byte(RosterHash(roster) + ":" + cache.Hash(layoutData)))

	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := !opts.Refresh
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(base, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, ok := r.cacheGet(ctx, cache.KeyTypeArtifact, key); ok {
				artifacts[format] = data
				continue
			}
		}
		allCached = false

		data, err := RenderFormat(ctx, format, roster.Members, res, opts)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data
		r.cacheSet(ctx, cache.KeyTypeArtifact, key, data, cache.TTLArtifact)
	}
	return artifacts, allCached, nil
}

// Render is RenderWithCacheInfo without the cache hit info.
func (r *Runner) Render(ctx context.Context, roster *family.Roster, res layout.Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, roster, res, opts)
	return artifacts, err
}

// =============================================================================
// Relationships
// =============================================================================

// Relations returns what every other member is to personID, cached per
// roster content.
func (r *Runner) Relations(ctx context.Context, roster *family.Roster, personID string) ([]kinship.Pair, error) {
	if !roster.Has(personID) {
		return nil, errors.New(errors.ErrCodeMemberNotFound, "member %q not found", personID)
	}
	key := r.Keyer.RelationsKey(RosterHash(roster), personID)
	if data, ok := r.cacheGet(ctx, cache.KeyTypeRelations, key); ok {
		var pairs []kinship.Pair
		if err := json.Unmarshal(data, &pairs); err == nil {
			return pairs, nil
		}
	}

	pairs, err := kinship.NewResolver(roster.Members).All(personID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(pairs); err == nil {
		r.cacheSet(ctx, cache.KeyTypeRelations, key, data, cache.TTLRelations)
	}
	return pairs, nil
}

// =============================================================================
// Helpers
// =============================================================================

// RosterHash is the content hash of a roster's members.
func RosterHash(roster *family.Roster) string {
	data, err := graph.MarshalRoster("", roster)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

func (r *Runner) cacheGet(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) cacheSet(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if r.TTL > 0 && r.TTL < ttl {
		ttl = r.TTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases the store and the cache. The first error is returned.
func (r *Runner) Close() error {
	var storeErr, cacheErr error
	if r.Store != nil {
		storeErr = r.Store.Close()
	}
	if r.Cache != nil {
		cacheErr = r.Cache.Close()
	}
	if storeErr != nil {
		return storeErr
	}
	return cacheErr
}
