package models

import "time"

// Post is a blog or announcement entry. Body holds sanitized HTML.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Body        string     `gorm:"type:text" json:"body"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPublished reports whether the post is visible to anonymous readers.
func (p Post) IsPublished(reference time.Time) bool {
	return p.PublishedAt != nil && !p.PublishedAt.After(reference)
}
