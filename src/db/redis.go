package db

import (
	"RainMatrix/src/types"
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const redisKeyPrefix = "rainmatrix:page:"

// RedisStore keeps pages under keys that expire after the TTL, so
// retention needs no pruning.
type RedisStore struct {
	client *redis.Client
	opts   CacheOptions
}

var _ types.PageCache = (*RedisStore)(nil)

func OpenRedis(ctx context.Context, addr string, opts CacheOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "connect redis cache")
	}
	return NewRedisStore(client, opts), nil
}

func NewRedisStore(client *redis.Client, opts CacheOptions) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults()}
}

func RedisKey(key types.CacheKey) string {
	return redisKeyPrefix + strings.Join([]string{
		key.QueryDate, key.TargetDate, key.TZ, key.Country, key.Model, key.PlacesSig,
	}, "|")
}

func (s *RedisStore) Get(ctx context.Context, key types.CacheKey) (string, bool, error) {
	html, err := s.client.Get(ctx, RedisKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get")
	}
	return html, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key types.CacheKey, html string) error {
	if err := s.client.Set(ctx, RedisKey(key), html, s.opts.TTL).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *RedisStore) Prune(context.Context) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, errors.Wrap(err, "redis del")
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, errors.Wrap(err, "redis scan")
	}
	return deleted, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
