package cache

import (
	"context"
	"sync"

	"github.com/inkpost/internal/db"
)

// Memory is a process-local PostCache used in tests and single-node setups
// without Redis. Entries never expire.
type Memory struct {
	mu    sync.RWMutex
	posts map[string]db.Post
	list  []db.PostSummary
	has   bool
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{posts: make(map[string]db.Post)}
}

func (m *Memory) GetPost(_ context.Context, slug string) (*db.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	post, ok := m.posts[slug]
	if !ok {
		return nil, ErrMiss
	}
	return &post, nil
}

func (m *Memory) SetPost(_ context.Context, post *db.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.Slug] = *post
	return nil
}

func (m *Memory) DeletePost(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, slug)
	return nil
}

func (m *Memory) GetList(_ context.Context) ([]db.PostSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.has {
		return nil, ErrMiss
	}
	return append([]db.PostSummary(nil), m.list...), nil
}

func (m *Memory) SetList(_ context.Context, posts []db.PostSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append([]db.PostSummary(nil), posts...)
	m.has = true
	return nil
}

func (m *Memory) DeleteList(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = nil
	m.has = false
	return nil
}
