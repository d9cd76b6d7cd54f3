package dto

import (
	"time"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// RetakeCreateRequest opens a retake request for a failed exam.
type RetakeCreateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=2000"`
}

// RetakeDecisionRequest approves or rejects a pending request.
type RetakeDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

// RetakeFilter describes query string filters for listing requests.
type RetakeFilter struct {
	ExamID *uint   `query:"exam_id"`
	Status *string `query:"status" validate:"omitempty,oneof=pending approved rejected"`
}

// RetakeResponse serializes a retake request.
type RetakeResponse struct {
	ID           uint       `json:"id"`
	ExamID       uint       `json:"exam_id"`
	StudentID    uint       `json:"student_id"`
	ExamResultID uint       `json:"exam_result_id"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	DecidedBy    *uint      `json:"decided_by"`
	DecidedAt    *time.Time `json:"decided_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewRetakeResponse converts a retake request model into a DTO.
func NewRetakeResponse(model models.RetakeRequest) RetakeResponse {
	return RetakeResponse{
		ID:           model.ID,
		ExamID:       model.ExamID,
		StudentID:    model.StudentID,
		ExamResultID: model.ExamResultID,
		Reason:       model.Reason,
		Status:       model.Status,
		DecidedBy:    model.DecidedBy,
		DecidedAt:    model.DecidedAt,
		CreatedAt:    model.CreatedAt,
	}
}

// NewRetakeResponseSlice converts retake request models into DTOs.
func NewRetakeResponseSlice(requests []models.RetakeRequest) []RetakeResponse {
	responses := make([]RetakeResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, NewRetakeResponse(request))
	}

	return responses
}
