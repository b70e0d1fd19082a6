// Package store persists family trees.
//
// A tree is a [family.Roster] stored under a tree id. Every backend writes
// the whole roster on [RosterStore.Save] (last write wins) and returns an
// empty roster from [RosterStore.Load] when nothing is stored yet, so a new
// tree needs no explicit creation step.
//
// Backends:
//
//   - [Memory]: process memory, for tests and the API without persistence
//   - [File]: one JSON document per tree in a directory
//   - [SQLite]: a single database file (pure Go driver)
//   - [Mongo]: one document per tree in a collection
//   - [Redis]: one JSON value per tree plus a set of tree ids
//
// [Open] builds a backend from a [config.StoreConfig].
package store

import (
	"context"
	"path/filepath"

	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
)

// RosterStore loads and saves whole family trees.
type RosterStore interface {
	// Load returns the stored roster, or an empty roster when treeID has
	// never been saved.
	Load(ctx context.Context, treeID string) (*family.Roster, error)
	// Save replaces the stored roster.
	Save(ctx context.Context, treeID string, r *family.Roster) error
	// List returns the stored tree ids in ascending order.
	List(ctx context.Context) ([]string, error)
	// Delete removes a tree. Deleting a missing tree is not an error.
	Delete(ctx context.Context, treeID string) error
	Close() error
}

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (RosterStore, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return NewMemory(), nil
	case "", config.StoreFile:
		dir := cfg.Path
		if dir == "" {
			d, err := config.DataDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(d, "trees")
		}
		return NewFile(dir)
	case config.StoreSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		if dsn == "" {
			d, err := config.DataDir()
			if err != nil {
				return nil, err
			}
			dsn = filepath.Join(d, "trees.db")
		}
		return NewSQLite(ctx, dsn)
	case config.StoreMongo:
		return NewMongo(ctx, MongoOptions{
			URI:        cfg.URI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
	case config.StoreRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.KeyPrefix,
		})
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
}

func checkTree(treeID string) error {
	return errors.ValidateTreeID(treeID)
}

func emptyRoster() *family.Roster {
	return &family.Roster{Members: []family.Member{}}
}

func storageErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeStorage, err, format, args...)
}
