package dto

import (
	"time"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a catalog course.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Slug        string `json:"slug" validate:"required,min=3,max=255"`
	Description string `json:"description"`
	Published   bool   `json:"published"`
}

// CourseUpdateRequest is a partial course update.
type CourseUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description"`
	Published   *bool   `json:"published"`
}

// CourseResponse serializes a course.
type CourseResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	TeacherID   uint      `json:"teacher_id"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LessonResponse serializes a lesson inside a semester listing.
type LessonResponse struct {
	ID              uint   `json:"id"`
	Position        int    `json:"position"`
	Title           string `json:"title"`
	VideoURL        string `json:"video_url"`
	DurationMinutes int    `json:"duration_minutes"`
}

// SemesterResponse serializes a semester with its ordered lessons.
type SemesterResponse struct {
	ID      uint             `json:"id"`
	Number  int              `json:"number"`
	Title   string           `json:"title"`
	Lessons []LessonResponse `json:"lessons"`
}

// ProgramResponse serializes a program, optionally with semesters.
type ProgramResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Description string             `json:"description"`
	Published   bool               `json:"published"`
	Semesters   []SemesterResponse `json:"semesters,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewCourseResponse converts a course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:          model.ID,
		Title:       model.Title,
		Slug:        model.Slug,
		Description: model.Description,
		TeacherID:   model.TeacherID,
		Published:   model.Published,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}

// NewProgramResponse converts a program model into a DTO.
func NewProgramResponse(model models.Program) ProgramResponse {
	semesters := make([]SemesterResponse, 0, len(model.Semesters))
	for _, semester := range model.Semesters {
		lessons := make([]LessonResponse, 0, len(semester.Lessons))
		for _, lesson := range semester.Lessons {
			lessons = append(lessons, LessonResponse{
				ID:              lesson.ID,
				Position:        lesson.Position,
				Title:           lesson.Title,
				VideoURL:        lesson.VideoURL,
				DurationMinutes: lesson.DurationMinutes,
			})
		}
		semesters = append(semesters, SemesterResponse{
			ID:      semester.ID,
			Number:  semester.Number,
			Title:   semester.Title,
			Lessons: lessons,
		})
	}

	return ProgramResponse{
		ID:          model.ID,
		Title:       model.Title,
		Slug:        model.Slug,
		Description: model.Description,
		Published:   model.Published,
		Semesters:   semesters,
		CreatedAt:   model.CreatedAt,
	}
}

// NewProgramResponseSlice converts program models into DTOs without nested
// semesters.
func NewProgramResponseSlice(programs []models.Program) []ProgramResponse {
	responses := make([]ProgramResponse, 0, len(programs))
	for _, program := range programs {
		item := program
		item.Semesters = nil
		responses = append(responses, NewProgramResponse(item))
	}

	return responses
}
