package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmptyEditorContent is what the rich-text editor submits for an empty document.
const EmptyEditorContent = "<p><br></p>"

// Post 定义了文章模型。删除为物理删除，不带 DeletedAt 字段。
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Slug      string    `gorm:"size:255;not null;uniqueIndex:idx_posts_slug" json:"slug"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the opaque identifier on insert.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Edited reports whether the post changed after it was created.
func (p Post) Edited() bool {
	return !p.UpdatedAt.Equal(p.CreatedAt)
}

// PostSummary is the list projection of a post.
type PostSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Edited reports whether the post changed after it was created.
func (s PostSummary) Edited() bool {
	return !s.UpdatedAt.Equal(s.CreatedAt)
}
