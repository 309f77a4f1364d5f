package service

import (
	"context"
	"log/slog"

	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/logger"
	"github.com/inkpost/internal/slug"
	"gorm.io/gorm"
)

// SlugPolicy decides what happens when a candidate slug is already taken.
type SlugPolicy string

const (
	// SlugPolicyReject fails the write with ErrSlugConflict.
	SlugPolicyReject SlugPolicy = "reject"
	// SlugPolicySuffix appends -2, -3, ... until a free slug is found.
	SlugPolicySuffix SlugPolicy = "suffix"

	defaultMaxSuffix = 50
)

// SlugMetrics receives slug collision events.
type SlugMetrics interface {
	SlugConflict(policy string)
	SlugSuffixed()
}

// SlugReserver checks candidate slugs against the posts table. The unique
// index on posts.slug still has the final word when two writers race.
type SlugReserver struct {
	db        *gorm.DB
	policy    SlugPolicy
	maxSuffix int
	log       *slog.Logger
	metrics   SlugMetrics
}

// NewSlugReserver creates a reserver. maxSuffix is the highest numeric
// suffix tried under SlugPolicySuffix.
func NewSlugReserver(gdb *gorm.DB, policy SlugPolicy, maxSuffix int, log *slog.Logger, metrics SlugMetrics) *SlugReserver {
	if policy != SlugPolicySuffix {
		policy = SlugPolicyReject
	}
	if maxSuffix < 2 {
		maxSuffix = defaultMaxSuffix
	}
	if maxSuffix > slug.MaxSuffix {
		maxSuffix = slug.MaxSuffix
	}
	if log == nil {
		log = logger.Discard()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SlugReserver{db: gdb, policy: policy, maxSuffix: maxSuffix, log: log, metrics: metrics}
}

// Policy returns the active collision policy.
func (r *SlugReserver) Policy() SlugPolicy {
	return r.policy
}

// Reserve returns the slug to persist for candidate. excludeID is the post
// being edited, whose own slug never counts as a collision.
func (r *SlugReserver) Reserve(ctx context.Context, candidate, excludeID string) (string, error) {
	taken, err := r.taken(ctx, candidate, excludeID)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	if r.policy == SlugPolicyReject {
		r.log.Debug("slug taken", slog.String("slug", candidate))
		r.metrics.SlugConflict(string(r.policy))
		return "", ErrSlugConflict
	}

	for n := 2; n <= r.maxSuffix; n++ {
		next := slug.WithSuffix(candidate, n)
		taken, err := r.taken(ctx, next, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			r.log.Debug("slug disambiguated", slog.String("candidate", candidate), slog.String("slug", next))
			r.metrics.SlugSuffixed()
			return next, nil
		}
	}

	r.log.Warn("no free slug suffix left", slog.String("candidate", candidate), slog.Int("max_suffix", r.maxSuffix))
	r.metrics.SlugConflict(string(r.policy))
	return "", ErrSlugConflict
}

func (r *SlugReserver) taken(ctx context.Context, candidate, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&db.Post{}).Where("slug = ?", candidate)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type noopMetrics struct{}

func (noopMetrics) SlugConflict(string) {}
func (noopMetrics) SlugSuffixed()       {}
func (noopMetrics) CacheHit(string)     {}
func (noopMetrics) CacheMiss(string)    {}
