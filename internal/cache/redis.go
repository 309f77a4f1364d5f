package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkpost/internal/db"
	"github.com/redis/go-redis/v9"
)

const (
	postKeyPrefix  = "inkpost:post:"
	listKey        = "inkpost:posts"
	defaultPostTTL = 10 * time.Minute
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache implements PostCache on top of go-redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, opts RedisOptions, log *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("connected to Redis", slog.String("address", opts.Addr), slog.Int("db", opts.DB))
	return NewRedisCacheWithClient(client, opts.TTL, log), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultPostTTL
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

// Close closes the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetPost(ctx context.Context, slug string) (*db.Post, error) {
	var post db.Post
	if err := c.get(ctx, PostKey(slug), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *RedisCache) SetPost(ctx context.Context, post *db.Post) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}
	return c.set(ctx, PostKey(post.Slug), post)
}

func (c *RedisCache) DeletePost(ctx context.Context, slug string) error {
	return c.del(ctx, PostKey(slug))
}

func (c *RedisCache) GetList(ctx context.Context) ([]db.PostSummary, error) {
	var posts []db.PostSummary
	if err := c.get(ctx, listKey, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *RedisCache) SetList(ctx context.Context, posts []db.PostSummary) error {
	return c.set(ctx, listKey, posts)
}

func (c *RedisCache) DeleteList(ctx context.Context) error {
	return c.del(ctx, listKey)
}

// PostKey is the Redis key holding the post published under slug.
func PostKey(slug string) string {
	return postKeyPrefix + slug
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		c.log.Warn("dropping undecodable cache entry", slog.String("key", key), slog.String("error", err.Error()))
		_ = c.client.Del(ctx, key).Err()
		return ErrMiss
	}
	return nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (c *RedisCache) del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}
