package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.pingTimeout())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
		prefix: cfg.prefix(),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Caption operations

func (s *Storage) SaveCaptionSet(ctx context.Context, set *model.CaptionSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}

	// Set + index update in one transaction
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.captionSetKey(set.Page), data, s.cfg.CaptionTTL)
	pipe.SAdd(ctx, s.pagesIndexKey(), string(set.Page))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetCaptionSet(ctx context.Context, page model.Page) (*model.CaptionSet, error) {
	data, err := s.client.Get(ctx, s.captionSetKey(page)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCaptionsNotFound
		}
		return nil, err
	}

	var set model.CaptionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Storage) DeleteCaptionSet(ctx context.Context, page model.Page) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.captionSetKey(page))
	pipe.SRem(ctx, s.pagesIndexKey(), string(page))
	_, err := pipe.Exec(ctx)
	return err
}

// ListPages returns the indexed pages whose caption set still exists.
// Index entries left behind by expired sets are pruned.
func (s *Storage) ListPages(ctx context.Context) ([]model.Page, error) {
	members, err := s.client.SMembers(ctx, s.pagesIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []model.Page{}, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, m := range members {
		exists[i] = pipe.Exists(ctx, s.captionSetKey(model.Page(m)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	pages := make([]model.Page, 0, len(members))
	var stale []interface{}
	for i, m := range members {
		if exists[i].Val() > 0 {
			pages = append(pages, model.Page(m))
		} else {
			stale = append(stale, m)
		}
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.pagesIndexKey(), stale...).Err(); err != nil {
			return nil, err
		}
	}

	slices.Sort(pages)
	return pages, nil
}
