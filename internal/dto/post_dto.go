package dto

import (
	"time"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// PostCreateRequest describes the payload for creating a blog post.
type PostCreateRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=255"`
	Slug    string `json:"slug" validate:"required,min=3,max=255"`
	Body    string `json:"body" validate:"required"`
	Publish bool   `json:"publish"`
}

// PostUpdateRequest is a partial post update.
type PostUpdateRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=3,max=255"`
	Body    *string `json:"body"`
	Publish *bool   `json:"publish"`
}

// PostResponse serializes a blog post.
type PostResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Body        string     `json:"body"`
	AuthorID    uint       `json:"author_id"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewPostResponse converts a post model into a DTO.
func NewPostResponse(model models.Post) PostResponse {
	return PostResponse{
		ID:          model.ID,
		Title:       model.Title,
		Slug:        model.Slug,
		Body:        model.Body,
		AuthorID:    model.AuthorID,
		PublishedAt: model.PublishedAt,
		CreatedAt:   model.CreatedAt,
	}
}

// NewPostResponseSlice converts post models into DTOs.
func NewPostResponseSlice(posts []models.Post) []PostResponse {
	responses := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		responses = append(responses, NewPostResponse(post))
	}

	return responses
}
