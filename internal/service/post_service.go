package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

// ErrPostNotFound indicates a blog post could not be located.
var ErrPostNotFound = errors.New("post not found")

// PostService manages blog and announcement content.
type PostService interface {
	ListPublished(ctx context.Context) ([]dto.PostResponse, error)
	GetBySlug(ctx context.Context, slug string) (dto.PostResponse, error)
	Create(ctx context.Context, actor Principal, payload dto.PostCreateRequest) (dto.PostResponse, error)
	Update(ctx context.Context, actor Principal, id uint, payload dto.PostUpdateRequest) (dto.PostResponse, error)
	Delete(ctx context.Context, actor Principal, id uint) error
}

type postService struct {
	posts     repository.PostRepository
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPostService constructs a PostService instance. Post bodies pass through
// a UGC sanitization policy before persisting.
func NewPostService(postRepo repository.PostRepository, validate *validator.Validate, logger zerolog.Logger) PostService {
	return &postService{
		posts:     postRepo,
		validator: validate,
		policy:    bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "post_service").Logger(),
		now:       time.Now,
	}
}

func (s *postService) ListPublished(ctx context.Context) ([]dto.PostResponse, error) {
	posts, err := s.posts.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewPostResponseSlice(posts), nil
}

func (s *postService) GetBySlug(ctx context.Context, slug string) (dto.PostResponse, error) {
	post, err := s.posts.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, ErrPostNotFound
		}
		return dto.PostResponse{}, err
	}

	return dto.NewPostResponse(post), nil
}

func (s *postService) Create(ctx context.Context, actor Principal, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	post := models.Post{
		Title:    strings.TrimSpace(payload.Title),
		Slug:     strings.TrimSpace(payload.Slug),
		Body:     s.policy.Sanitize(payload.Body),
		AuthorID: actor.ID,
	}

	if payload.Publish {
		publishedAt := s.now()
		post.PublishedAt = &publishedAt
	}

	if err := s.posts.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	s.logger.Info().Uint("post_id", post.ID).Uint("author_id", actor.ID).Msg("post created")

	return dto.NewPostResponse(post), nil
}

func (s *postService) Update(ctx context.Context, actor Principal, id uint, payload dto.PostUpdateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, ErrPostNotFound
		}
		return dto.PostResponse{}, err
	}

	if payload.Title != nil {
		post.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Body != nil {
		post.Body = s.policy.Sanitize(*payload.Body)
	}
	if payload.Publish != nil {
		if *payload.Publish && post.PublishedAt == nil {
			publishedAt := s.now()
			post.PublishedAt = &publishedAt
		}
		if !*payload.Publish {
			post.PublishedAt = nil
		}
	}

	if err := s.posts.Update(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	return dto.NewPostResponse(post), nil
}

func (s *postService) Delete(ctx context.Context, actor Principal, id uint) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	s.logger.Info().Uint("post_id", id).Uint("deleted_by", actor.ID).Msg("post deleted")

	return nil
}
