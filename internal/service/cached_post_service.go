package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/inkpost/internal/cache"
	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/logger"
)

// CacheMetrics receives read-through cache outcomes.
type CacheMetrics interface {
	CacheHit(kind string)
	CacheMiss(kind string)
}

// CachedPostService decorates Posts with a read-through cache. Writes go to
// the wrapped service first and invalidate the affected keys afterwards.
// Cache failures are logged and never fail the request.
type CachedPostService struct {
	next    Posts
	cache   cache.PostCache
	log     *slog.Logger
	metrics CacheMetrics
}

func NewCachedPostService(next Posts, c cache.PostCache, log *slog.Logger, metrics CacheMetrics) *CachedPostService {
	if log == nil {
		log = logger.Discard()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &CachedPostService{next: next, cache: c, log: log, metrics: metrics}
}

func (d *CachedPostService) List(ctx context.Context) ([]db.PostSummary, error) {
	cached, err := d.cache.GetList(ctx)
	if err == nil {
		d.metrics.CacheHit("list")
		return cached, nil
	}
	d.observeMiss(ctx, "list", err)

	posts, err := d.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.cache.SetList(ctx, posts); err != nil {
		d.log.WarnContext(ctx, "failed to cache post list", slog.String("error", err.Error()))
	}
	return posts, nil
}

func (d *CachedPostService) GetBySlug(ctx context.Context, slug string) (*db.Post, error) {
	cached, err := d.cache.GetPost(ctx, slug)
	if err == nil {
		d.metrics.CacheHit("post")
		return cached, nil
	}
	d.observeMiss(ctx, "post", err)

	post, err := d.next.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := d.cache.SetPost(ctx, post); err != nil {
		d.log.WarnContext(ctx, "failed to cache post", slog.String("slug", slug), slog.String("error", err.Error()))
	}
	return post, nil
}

func (d *CachedPostService) Create(ctx context.Context, input PostInput) (*db.Post, error) {
	post, err := d.next.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx)
	return post, nil
}

func (d *CachedPostService) Update(ctx context.Context, slug string, input PostInput) (*db.Post, error) {
	post, err := d.next.Update(ctx, slug, input)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, slug, post.Slug)
	return post, nil
}

func (d *CachedPostService) Delete(ctx context.Context, slug string) error {
	if err := d.next.Delete(ctx, slug); err != nil {
		return err
	}
	d.invalidate(ctx, slug)
	return nil
}

func (d *CachedPostService) invalidate(ctx context.Context, slugs ...string) {
	if err := d.cache.DeleteList(ctx); err != nil {
		d.log.WarnContext(ctx, "failed to invalidate post list cache", slog.String("error", err.Error()))
	}
	for _, slug := range slugs {
		if err := d.cache.DeletePost(ctx, slug); err != nil {
			d.log.WarnContext(ctx, "failed to invalidate post cache", slog.String("slug", slug), slog.String("error", err.Error()))
		}
	}
}

func (d *CachedPostService) observeMiss(ctx context.Context, kind string, err error) {
	d.metrics.CacheMiss(kind)
	if !errors.Is(err, cache.ErrMiss) {
		d.log.WarnContext(ctx, "failed to read from cache", slog.String("kind", kind), slog.String("error", err.Error()))
	}
}
