package dto

import (
	"encoding/json"
	"time"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// QuestionPayload carries one question when creating or updating an exam.
type QuestionPayload struct {
	Type          string   `json:"type" validate:"required,oneof=mcq short long"`
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options" validate:"omitempty,dive,required"`
	CorrectAnswer string   `json:"correct_answer"`
	Marks         int      `json:"marks" validate:"required,gt=0"`
}

// ExamCreateRequest describes the payload for creating a new exam.
type ExamCreateRequest struct {
	Title           string            `json:"title" validate:"required,min=3,max=255"`
	CourseID        *uint             `json:"course_id" validate:"omitempty,gt=0"`
	SemesterID      *uint             `json:"semester_id" validate:"omitempty,gt=0"`
	TotalMarks      int               `json:"total_marks" validate:"required,gt=0"`
	PassMarks       int               `json:"pass_marks" validate:"required,gte=0"`
	DurationMinutes int               `json:"duration_minutes" validate:"required,gt=0"`
	HasTiming       bool              `json:"has_timing"`
	StartTime       *time.Time        `json:"start_time"`
	EndTime         *time.Time        `json:"end_time"`
	Questions       []QuestionPayload `json:"questions" validate:"required,min=1,dive"`
}

// ExamUpdateRequest is a partial update; only provided fields are mutated.
type ExamUpdateRequest struct {
	Title           *string            `json:"title" validate:"omitempty,min=3,max=255"`
	TotalMarks      *int               `json:"total_marks" validate:"omitempty,gt=0"`
	PassMarks       *int               `json:"pass_marks" validate:"omitempty,gte=0"`
	DurationMinutes *int               `json:"duration_minutes" validate:"omitempty,gt=0"`
	HasTiming       *bool              `json:"has_timing"`
	StartTime       *time.Time         `json:"start_time"`
	EndTime         *time.Time         `json:"end_time"`
	Status          *string            `json:"status" validate:"omitempty,oneof=draft published completed"`
	Questions       *[]QuestionPayload `json:"questions" validate:"omitempty,min=1,dive"`
}

// QuestionResponse serializes a question. CorrectAnswer and Options are
// omitted or stripped depending on the viewer.
type QuestionResponse struct {
	ID            uint     `json:"id"`
	Position      int      `json:"position"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Marks         int      `json:"marks"`
}

// ExamResponse serializes an exam definition.
type ExamResponse struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	CourseID        *uint              `json:"course_id"`
	SemesterID      *uint              `json:"semester_id"`
	CreatedBy       uint               `json:"created_by"`
	TotalMarks      int                `json:"total_marks"`
	PassMarks       int                `json:"pass_marks"`
	DurationMinutes int                `json:"duration_minutes"`
	HasTiming       bool               `json:"has_timing"`
	StartTime       *time.Time         `json:"start_time"`
	EndTime         *time.Time         `json:"end_time"`
	Status          string             `json:"status"`
	Questions       []QuestionResponse `json:"questions"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// IssueExamResponse is returned when a learner opens an exam.
type IssueExamResponse struct {
	Exam             ExamResponse        `json:"exam"`
	AlreadySubmitted bool                `json:"already_submitted"`
	Result           *ExamResultResponse `json:"result,omitempty"`
}

// NewExamResponse converts an exam model into a DTO. When stripAnswers is
// set, correct answers are removed so a learner cannot see them before
// submitting.
func NewExamResponse(model models.Exam, stripAnswers bool) ExamResponse {
	questions := make([]QuestionResponse, 0, len(model.Questions))
	for _, q := range model.Questions {
		question := QuestionResponse{
			ID:       q.ID,
			Position: q.Position,
			Type:     q.Type,
			Prompt:   q.Prompt,
			Marks:    q.Marks,
		}
		if len(q.Options) > 0 {
			var options []string
			if err := json.Unmarshal(q.Options, &options); err == nil {
				question.Options = options
			}
		}
		if !stripAnswers {
			question.CorrectAnswer = q.CorrectAnswer
		}
		questions = append(questions, question)
	}

	return ExamResponse{
		ID:              model.ID,
		Title:           model.Title,
		CourseID:        model.CourseID,
		SemesterID:      model.SemesterID,
		CreatedBy:       model.CreatedBy,
		TotalMarks:      model.TotalMarks,
		PassMarks:       model.PassMarks,
		DurationMinutes: model.DurationMinutes,
		HasTiming:       model.HasTiming,
		StartTime:       model.StartTime,
		EndTime:         model.EndTime,
		Status:          model.Status,
		Questions:       questions,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
