// Package cache keeps rendered post lookups out of the database on hot paths.
package cache

import (
	"context"
	"errors"

	"github.com/inkpost/internal/db"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = errors.New("cache miss")

// PostCache stores single posts by slug and the post summary list.
type PostCache interface {
	GetPost(ctx context.Context, slug string) (*db.Post, error)
	SetPost(ctx context.Context, post *db.Post) error
	DeletePost(ctx context.Context, slug string) error
	GetList(ctx context.Context) ([]db.PostSummary, error)
	SetList(ctx context.Context, posts []db.PostSummary) error
	DeleteList(ctx context.Context) error
}
