package store

import (
	"context"
	"errors"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/legacylink/legacylink/pkg/cache"
	llerrors "github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
)

// RedisOptions configures [NewRedis].
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; "legacylink:" when empty.
	Prefix string
}

// Redis stores each tree as a JSON document under <prefix>tree:<id> and
// keeps the tree ids in the set <prefix>trees.
type Redis struct {
	client redis.Cmdable
	closer func() error
	prefix string
}

// NewRedis connects and pings, retrying transient failures.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	err := cache.RetryWithBackoff(ctx, func() error {
		return cache.ClassifyRedisError(client.Ping(ctx).Err())
	})
	if err != nil {
		client.Close()
		return nil, llerrors.Wrap(llerrors.ErrCodeStorage, err, "redis ping %s", opts.Addr)
	}
	s := NewRedisFromClient(client, opts.Prefix)
	s.closer = client.Close
	return s, nil
}

// NewRedisFromClient wraps an existing client. Close does not close it.
func NewRedisFromClient(client redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = "legacylink:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) treeKey(treeID string) string { return s.prefix + "tree:" + treeID }
func (s *Redis) indexKey() string             { return s.prefix + "trees" }

func (s *Redis) Load(ctx context.Context, treeID string) (*family.Roster, error) {
	if err := checkTree(treeID); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.treeKey(treeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return emptyRoster(), nil
	}
	if err != nil {
		return nil, llerrors.Wrap(llerrors.ErrCodeStorage, err, "load tree %s", treeID)
	}
	doc, err := graph.UnmarshalRoster(data)
	if err != nil {
		return nil, storageErr(err, "decode tree %s", treeID)
	}
	return doc.Roster(), nil
}

func (s *Redis) Save(ctx context.Context, treeID string, r *family.Roster) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	data, err := graph.MarshalRoster(treeID, r)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.treeKey(treeID), data, 0).Err(); err != nil {
		return llerrors.Wrap(llerrors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	if err := s.client.SAdd(ctx, s.indexKey(), treeID).Err(); err != nil {
		return llerrors.Wrap(llerrors.ErrCodeStorage, err, "index tree %s", treeID)
	}
	return nil
}

func (s *Redis) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, llerrors.Wrap(llerrors.ErrCodeStorage, err, "list trees")
	}
	if ids == nil {
		ids = []string{}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Redis) Delete(ctx context.Context, treeID string) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.treeKey(treeID)).Err(); err != nil {
		return llerrors.Wrap(llerrors.ErrCodeStorage, err, "delete tree %s", treeID)
	}
	if err := s.client.SRem(ctx, s.indexKey(), treeID).Err(); err != nil {
		return llerrors.Wrap(llerrors.ErrCodeStorage, err, "unindex tree %s", treeID)
	}
	return nil
}

func (s *Redis) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

var _ RosterStore = (*Redis)(nil)
