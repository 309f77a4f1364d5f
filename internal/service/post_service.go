package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/logger"
	"gorm.io/gorm"
)

// Posts is the contract shared by PostService and its caching decorator.
type Posts interface {
	List(ctx context.Context) ([]db.PostSummary, error)
	GetBySlug(ctx context.Context, slug string) (*db.Post, error)
	Create(ctx context.Context, input PostInput) (*db.Post, error)
	Update(ctx context.Context, slug string, input PostInput) (*db.Post, error)
	Delete(ctx context.Context, slug string) error
}

// PostService wraps post related database operations.
type PostService struct {
	db       *gorm.DB
	reserver *SlugReserver
	log      *slog.Logger
	metrics  SlugMetrics
}

// PostOption customises a PostService.
type PostOption func(*postOptions)

type postOptions struct {
	policy    SlugPolicy
	maxSuffix int
	log       *slog.Logger
	metrics   SlugMetrics
}

// WithSlugPolicy sets the collision policy and the highest suffix tried.
func WithSlugPolicy(policy SlugPolicy, maxSuffix int) PostOption {
	return func(o *postOptions) {
		o.policy = policy
		o.maxSuffix = maxSuffix
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(log *slog.Logger) PostOption {
	return func(o *postOptions) {
		o.log = log
	}
}

// WithMetrics records slug collisions.
func WithMetrics(m SlugMetrics) PostOption {
	return func(o *postOptions) {
		o.metrics = m
	}
}

// NewPostService creates a PostService instance. Without options it rejects
// duplicate slugs and discards logs.
func NewPostService(gdb *gorm.DB, opts ...PostOption) *PostService {
	o := postOptions{policy: SlugPolicyReject, maxSuffix: defaultMaxSuffix}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	if o.metrics == nil {
		o.metrics = noopMetrics{}
	}

	return &PostService{
		db:       gdb,
		reserver: NewSlugReserver(gdb, o.policy, o.maxSuffix, o.log, o.metrics),
		log:      o.log,
		metrics:  o.metrics,
	}
}

// SlugPolicy returns the collision policy in effect.
func (s *PostService) SlugPolicy() SlugPolicy {
	return s.reserver.Policy()
}

// List returns post summaries ordered by created time descending.
func (s *PostService) List(ctx context.Context) ([]db.PostSummary, error) {
	summaries := make([]db.PostSummary, 0)
	if err := s.db.WithContext(ctx).
		Model(&db.Post{}).
		Select("id", "title", "slug", "created_at", "updated_at").
		Order("created_at desc").
		Order("id desc").
		Find(&summaries).Error; err != nil {
		return nil, s.translate("list posts", err)
	}
	return summaries, nil
}

// GetBySlug fetches a post by its public slug.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, s.translate("get post", err)
	}
	return &post, nil
}

// Create validates input, reserves a slug derived from the title and inserts
// the post.
func (s *PostService) Create(ctx context.Context, input PostInput) (*db.Post, error) {
	prepared, err := preparePost(input)
	if err != nil {
		return nil, err
	}

	finalSlug, err := s.reserver.Reserve(ctx, prepared.Candidate, "")
	if err != nil {
		return nil, s.translate("reserve slug", err)
	}

	post := db.Post{
		Title:   prepared.Title,
		Content: prepared.Content,
		Slug:    finalSlug,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, s.translate("create post", err)
	}

	s.log.Info("post created", slog.String("post_id", post.ID), slog.String("slug", post.Slug))
	return &post, nil
}

// Update applies updates to the post currently published under slug. The slug
// is only recomputed when the trimmed title differs from the stored one.
func (s *PostService) Update(ctx context.Context, slug string, input PostInput) (*db.Post, error) {
	prepared, err := preparePost(input)
	if err != nil {
		return nil, err
	}

	var existing db.Post
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error; err != nil {
		return nil, s.translate("load post", err)
	}

	if prepared.Title != existing.Title {
		finalSlug, err := s.reserver.Reserve(ctx, prepared.Candidate, existing.ID)
		if err != nil {
			return nil, s.translate("reserve slug", err)
		}
		existing.Title = prepared.Title
		existing.Slug = finalSlug
	}
	existing.Content = prepared.Content

	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, s.translate("update post", err)
	}

	if existing.Slug != slug {
		s.log.Info("post slug changed", slog.String("post_id", existing.ID), slog.String("from", slug), slog.String("to", existing.Slug))
	}
	return &existing, nil
}

// Delete permanently removes a post by slug together with its view statistics.
func (s *PostService) Delete(ctx context.Context, slug string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Select("id").Where("slug = ?", slug).First(&post).Error; err != nil {
			return err
		}

		if err := tx.Where("post_id = ?", post.ID).Delete(&db.PostVisit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&db.PostStatistic{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", post.ID).Delete(&db.Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		return s.translate("delete post", err)
	}

	s.log.Info("post deleted", slog.String("slug", slug))
	return nil
}

// translate maps storage errors onto the service error set. Unexpected
// failures are logged here and wrapped with ErrStorage.
func (s *PostService) translate(op string, err error) error {
	var verr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPostNotFound), errors.Is(err, ErrSlugConflict), errors.As(err, &verr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrPostNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		s.metrics.SlugConflict("unique_index")
		return ErrSlugConflict
	default:
		s.log.Error("post storage failure", slog.String("op", op), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}
