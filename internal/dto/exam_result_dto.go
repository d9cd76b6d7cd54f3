package dto

import (
	"time"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// AnswerPayload is one submitted answer; the slice order must match the
// exam's question order.
type AnswerPayload struct {
	Answer string `json:"answer"`
}

// ExamSubmitRequest is the body for submitting an attempt.
type ExamSubmitRequest struct {
	Answers []AnswerPayload `json:"answers" validate:"required,min=1,dive"`
}

// ManualGradeAward assigns marks to one ungraded answer position.
type ManualGradeAward struct {
	Position int `json:"position" validate:"gte=0"`
	Marks    int `json:"marks" validate:"gte=0"`
}

// ManualGradeRequest finishes grading a result that contains short/long
// answers.
type ManualGradeRequest struct {
	Awards []ManualGradeAward `json:"awards" validate:"required,min=1,dive"`
}

// AnswerResponse serializes one answer row.
type AnswerResponse struct {
	Position  int    `json:"position"`
	Answer    string `json:"answer"`
	Marks     *int   `json:"marks"`
	IsCorrect *bool  `json:"is_correct"`
}

// ExamResultResponse serializes an attempt. Passed is only authoritative
// once the result is fully graded; Provisional flags partially graded
// scores.
type ExamResultResponse struct {
	ID            uint             `json:"id"`
	StudentID     uint             `json:"student_id"`
	ExamID        uint             `json:"exam_id"`
	CourseID      *uint            `json:"course_id"`
	SemesterID    *uint            `json:"semester_id"`
	TotalMarks    int              `json:"total_marks"`
	ObtainedMarks int              `json:"obtained_marks"`
	Percentage    int              `json:"percentage"`
	Status        string           `json:"status"`
	AttemptNumber int              `json:"attempt_number"`
	IsLatest      bool             `json:"is_latest"`
	CanRetake     bool             `json:"can_retake"`
	Passed        bool             `json:"passed"`
	Provisional   bool             `json:"provisional"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	GradedAt      *time.Time       `json:"graded_at"`
	Answers       []AnswerResponse `json:"answers"`
}

// NewExamResultResponse converts a result model into a DTO using the exam's
// pass marks for the pass/fail verdict.
func NewExamResultResponse(model models.ExamResult, passMarks int) ExamResultResponse {
	answers := make([]AnswerResponse, 0, len(model.Answers))
	for _, a := range model.Answers {
		answers = append(answers, AnswerResponse{
			Position:  a.Position,
			Answer:    a.Answer,
			Marks:     a.Marks,
			IsCorrect: a.IsCorrect,
		})
	}

	return ExamResultResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		ExamID:        model.ExamID,
		CourseID:      model.CourseID,
		SemesterID:    model.SemesterID,
		TotalMarks:    model.TotalMarks,
		ObtainedMarks: model.ObtainedMarks,
		Percentage:    model.Percentage,
		Status:        model.Status,
		AttemptNumber: model.AttemptNumber,
		IsLatest:      model.IsLatest,
		CanRetake:     model.CanRetake,
		Passed:        model.Passed(passMarks),
		Provisional:   !model.IsGraded(),
		SubmittedAt:   model.SubmittedAt,
		GradedAt:      model.GradedAt,
		Answers:       answers,
	}
}
