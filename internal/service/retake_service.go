package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

// Retake workflow sentinel errors.
var (
	ErrRetakeNotFound       = errors.New("retake request not found")
	ErrNoResultToRetake     = errors.New("no submitted attempt to retake")
	ErrRetakeAlreadyOpen    = errors.New("a pending retake request already exists")
	ErrRetakeNotNeeded      = errors.New("latest attempt already allows a retake")
	ErrRetakeOnPassedExam   = errors.New("passed exams cannot be retaken")
	ErrRetakeResultUngraded = errors.New("attempt is still being graded")
	ErrRetakeNotPending     = errors.New("retake request was already decided")
)

// RetakeService drives the NoRequest -> Pending -> Approved/Rejected cycle.
type RetakeService interface {
	Request(ctx context.Context, principal Principal, examID uint, payload dto.RetakeCreateRequest) (dto.RetakeResponse, error)
	List(ctx context.Context, principal Principal, filter dto.RetakeFilter) ([]dto.RetakeResponse, error)
	Decide(ctx context.Context, actor Principal, requestID uint, payload dto.RetakeDecisionRequest) (dto.RetakeResponse, error)
}

type retakeService struct {
	retakes   repository.RetakeRepository
	results   repository.ExamResultRepository
	exams     repository.ExamRepository
	validator *validator.Validate
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRetakeService constructs a RetakeService instance.
func NewRetakeService(retakeRepo repository.RetakeRepository, resultRepo repository.ExamResultRepository, examRepo repository.ExamRepository, validate *validator.Validate, events EventPublisher, logger zerolog.Logger) RetakeService {
	return &retakeService{
		retakes:   retakeRepo,
		results:   resultRepo,
		exams:     examRepo,
		validator: validate,
		events:    events,
		logger:    logger.With().Str("component", "retake_service").Logger(),
		now:       time.Now,
	}
}

func (s *retakeService) Request(ctx context.Context, principal Principal, examID uint, payload dto.RetakeCreateRequest) (dto.RetakeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RetakeResponse{}, err
	}

	if !principal.IsStudent() {
		return dto.RetakeResponse{}, ErrStudentOnly
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RetakeResponse{}, ErrExamNotFound
		}
		return dto.RetakeResponse{}, err
	}

	latest, err := s.results.GetLatest(ctx, principal.ID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RetakeResponse{}, ErrNoResultToRetake
		}
		return dto.RetakeResponse{}, err
	}

	if latest.CanRetake {
		return dto.RetakeResponse{}, ErrRetakeNotNeeded
	}
	if !latest.IsGraded() {
		return dto.RetakeResponse{}, ErrRetakeResultUngraded
	}
	if latest.Passed(exam.PassMarks) {
		return dto.RetakeResponse{}, ErrRetakeOnPassedExam
	}

	if _, err := s.retakes.GetPending(ctx, principal.ID, examID); err == nil {
		return dto.RetakeResponse{}, ErrRetakeAlreadyOpen
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RetakeResponse{}, err
	}

	request := models.RetakeRequest{
		ExamID:       examID,
		StudentID:    principal.ID,
		ExamResultID: latest.ID,
		Reason:       payload.Reason,
		Status:       models.RetakeStatusPending,
	}

	if err := s.retakes.Create(ctx, &request); err != nil {
		return dto.RetakeResponse{}, err
	}

	if s.events != nil {
		s.events.Publish(ctx, EventRetakeRequested, map[string]interface{}{
			"request_id": request.ID,
			"exam_id":    examID,
			"student_id": principal.ID,
		})
	}

	s.logger.Info().Uint("request_id", request.ID).Uint("exam_id", examID).Uint("student_id", principal.ID).Msg("retake requested")

	return dto.NewRetakeResponse(request), nil
}

func (s *retakeService) List(ctx context.Context, principal Principal, filter dto.RetakeFilter) ([]dto.RetakeResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.RetakeFilter{
		ExamID: filter.ExamID,
		Status: filter.Status,
	}

	// Students only ever see their own requests.
	if !principal.IsStaff() {
		studentID := principal.ID
		repoFilter.StudentID = &studentID
	}

	requests, err := s.retakes.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewRetakeResponseSlice(requests), nil
}

func (s *retakeService) Decide(ctx context.Context, actor Principal, requestID uint, payload dto.RetakeDecisionRequest) (dto.RetakeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RetakeResponse{}, err
	}

	request, err := s.retakes.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RetakeResponse{}, ErrRetakeNotFound
		}
		return dto.RetakeResponse{}, err
	}

	if !request.IsPending() {
		return dto.RetakeResponse{}, ErrRetakeNotPending
	}

	switch payload.Action {
	case "approve":
		request.Status = models.RetakeStatusApproved
		// Re-opens the submission path for the blocked attempt.
		if err := s.results.SetCanRetake(ctx, request.ExamResultID, true); err != nil {
			return dto.RetakeResponse{}, err
		}
	case "reject":
		request.Status = models.RetakeStatusRejected
	}

	decidedBy := actor.ID
	decidedAt := s.now()
	request.DecidedBy = &decidedBy
	request.DecidedAt = &decidedAt

	if err := s.retakes.Update(ctx, &request); err != nil {
		return dto.RetakeResponse{}, err
	}

	if s.events != nil {
		s.events.Publish(ctx, EventRetakeDecided, map[string]interface{}{
			"request_id": request.ID,
			"exam_id":    request.ExamID,
			"student_id": request.StudentID,
			"status":     request.Status,
			"decided_by": actor.ID,
		})
	}

	s.logger.Info().Uint("request_id", request.ID).Str("status", request.Status).Uint("decided_by", actor.ID).Msg("retake decided")

	return dto.NewRetakeResponse(request), nil
}
