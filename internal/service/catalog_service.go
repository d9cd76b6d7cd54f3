package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

// Catalog sentinel errors.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrNotCourseOwner = errors.New("course belongs to another teacher")
)

// CatalogService serves the public course and program catalog.
type CatalogService interface {
	ListCourses(ctx context.Context, principal Principal, search string) ([]dto.CourseResponse, error)
	GetCourse(ctx context.Context, principal Principal, id uint) (dto.CourseResponse, error)
	CreateCourse(ctx context.Context, actor Principal, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	UpdateCourse(ctx context.Context, actor Principal, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	DeleteCourse(ctx context.Context, actor Principal, id uint) error
	ListPrograms(ctx context.Context, principal Principal) ([]dto.ProgramResponse, error)
	GetProgram(ctx context.Context, id uint) (dto.ProgramResponse, error)
}

type catalogService struct {
	courses   repository.CourseRepository
	programs  repository.ProgramRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCatalogService constructs a CatalogService instance.
func NewCatalogService(courseRepo repository.CourseRepository, programRepo repository.ProgramRepository, validate *validator.Validate, logger zerolog.Logger) CatalogService {
	return &catalogService{
		courses:   courseRepo,
		programs:  programRepo,
		validator: validate,
		logger:    logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) ListCourses(ctx context.Context, principal Principal, search string) ([]dto.CourseResponse, error) {
	filter := repository.CourseFilter{
		Search:        search,
		PublishedOnly: !principal.IsStaff(),
	}

	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *catalogService) GetCourse(ctx context.Context, principal Principal, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	if !course.Published && !principal.IsStaff() {
		return dto.CourseResponse{}, ErrCourseNotFound
	}

	return dto.NewCourseResponse(course), nil
}

func (s *catalogService) CreateCourse(ctx context.Context, actor Principal, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: payload.Description,
		TeacherID:   actor.ID,
		Published:   payload.Published,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Uint("teacher_id", actor.ID).Msg("course created")

	return dto.NewCourseResponse(course), nil
}

func (s *catalogService) UpdateCourse(ctx context.Context, actor Principal, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.ID {
		return dto.CourseResponse{}, ErrNotCourseOwner
	}

	if payload.Title != nil {
		course.Title = *payload.Title
	}
	if payload.Description != nil {
		course.Description = *payload.Description
	}
	if payload.Published != nil {
		course.Published = *payload.Published
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *catalogService) DeleteCourse(ctx context.Context, actor Principal, id uint) error {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.ID {
		return ErrNotCourseOwner
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	s.logger.Info().Uint("course_id", id).Uint("deleted_by", actor.ID).Msg("course deleted")

	return nil
}

func (s *catalogService) ListPrograms(ctx context.Context, principal Principal) ([]dto.ProgramResponse, error) {
	programs, err := s.programs.List(ctx, !principal.IsStaff())
	if err != nil {
		return nil, err
	}

	return dto.NewProgramResponseSlice(programs), nil
}

func (s *catalogService) GetProgram(ctx context.Context, id uint) (dto.ProgramResponse, error) {
	program, err := s.programs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgramResponse{}, ErrProgramNotFound
		}
		return dto.ProgramResponse{}, err
	}

	return dto.NewProgramResponse(program), nil
}
