package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/observability"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

// Exam engine sentinel errors, mapped to HTTP statuses by the handlers.
var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrResultNotFound      = errors.New("exam result not found")
	ErrStudentOnly         = errors.New("only students may submit exams")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrExamNotActive       = errors.New("exam is not active")
	ErrAnswerCountMismatch = errors.New("answer count does not match question count")
	ErrNotExamOwner        = errors.New("exam belongs to another teacher")
	ErrExamNotDraft        = errors.New("only draft exams can be deleted by teachers")
	ErrExamOwnership       = errors.New("exam must belong to exactly one of a course or a semester")
	ErrPassMarksTooHigh    = errors.New("pass marks cannot exceed total marks")
	ErrInvalidQuestion     = errors.New("invalid question definition")
	ErrInvalidTimeWindow   = errors.New("timed exams require a valid start/end window")
	ErrMarksExceedQuestion = errors.New("awarded marks exceed the question's marks")
	ErrGradingIncomplete   = errors.New("every ungraded answer must receive marks")
)

// ProgressTracker is notified after exam result writes so cached progress
// aggregates and semester completion records stay current.
type ProgressTracker interface {
	ExamResultRecorded(ctx context.Context, studentID, semesterID uint)
}

// ExamService orchestrates the exam issue/submit/grade workflows.
type ExamService interface {
	Issue(ctx context.Context, principal Principal, examID uint) (dto.IssueExamResponse, error)
	Submit(ctx context.Context, principal Principal, examID uint, payload dto.ExamSubmitRequest) (dto.ExamResultResponse, error)
	GradeResult(ctx context.Context, actor Principal, resultID uint, payload dto.ManualGradeRequest) (dto.ExamResultResponse, error)
	ListResults(ctx context.Context, actor Principal, examID uint) ([]dto.ExamResultResponse, error)
	Create(ctx context.Context, actor Principal, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	Update(ctx context.Context, actor Principal, examID uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	Delete(ctx context.Context, actor Principal, examID uint) error
}

type examService struct {
	exams     repository.ExamRepository
	results   repository.ExamResultRepository
	validator *validator.Validate
	events    EventPublisher
	progress  ProgressTracker
	logger    zerolog.Logger
	now       func() time.Time
}

// NewExamService constructs an ExamService instance.
func NewExamService(examRepo repository.ExamRepository, resultRepo repository.ExamResultRepository, validate *validator.Validate, events EventPublisher, progress ProgressTracker, logger zerolog.Logger) ExamService {
	return &examService{
		exams:     examRepo,
		results:   resultRepo,
		validator: validate,
		events:    events,
		progress:  progress,
		logger:    logger.With().Str("component", "exam_service").Logger(),
		now:       time.Now,
	}
}

func (s *examService) Issue(ctx context.Context, principal Principal, examID uint) (dto.IssueExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.IssueExamResponse{}, ErrExamNotFound
		}
		return dto.IssueExamResponse{}, err
	}

	var latest *models.ExamResult
	if result, err := s.results.GetLatest(ctx, principal.ID, examID); err == nil {
		latest = &result
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.IssueExamResponse{}, err
	}

	// Correct answers stay hidden while the student can still submit,
	// including after a retake approval re-opens the exam.
	submissionOpen := latest == nil || latest.CanRetake
	stripAnswers := principal.IsStudent() && submissionOpen

	response := dto.IssueExamResponse{
		Exam:             dto.NewExamResponse(exam, stripAnswers),
		AlreadySubmitted: latest != nil && !latest.CanRetake,
	}
	if latest != nil {
		result := dto.NewExamResultResponse(*latest, exam.PassMarks)
		response.Result = &result
	}

	return response, nil
}

func (s *examService) Submit(ctx context.Context, principal Principal, examID uint, payload dto.ExamSubmitRequest) (dto.ExamResultResponse, error) {
	tracer := otel.Tracer("github.com/noor-academy/manhaj-api/internal/service/exam")
	ctx, span := tracer.Start(ctx, "exam.submit")
	span.SetAttributes(
		attribute.Int64("exam.id", int64(examID)),
		attribute.Int64("exam.student_id", int64(principal.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ExamResultResponse{}, err
	}

	if !principal.IsStudent() {
		return dto.ExamResultResponse{}, ErrStudentOnly
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResultResponse{}, ErrExamNotFound
		}
		return dto.ExamResultResponse{}, err
	}

	if latest, err := s.results.GetLatest(ctx, principal.ID, examID); err == nil {
		if !latest.CanRetake {
			observability.ExamSubmissions().WithLabelValues("rejected").Inc()
			return dto.ExamResultResponse{}, ErrAlreadySubmitted
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ExamResultResponse{}, err
	}

	submittedAt := s.now()
	if !exam.IsActiveAt(submittedAt) {
		observability.ExamSubmissions().WithLabelValues("rejected").Inc()
		return dto.ExamResultResponse{}, ErrExamNotActive
	}

	if len(payload.Answers) != len(exam.Questions) {
		return dto.ExamResultResponse{}, ErrAnswerCountMismatch
	}

	answers, obtained := gradeAnswers(exam.Questions, payload.Answers)

	result := models.ExamResult{
		StudentID:     principal.ID,
		ExamID:        exam.ID,
		CourseID:      exam.CourseID,
		SemesterID:    exam.SemesterID,
		TotalMarks:    exam.TotalMarks,
		ObtainedMarks: obtained,
		Percentage:    percentageOf(obtained, exam.TotalMarks),
		Status:        models.ResultStatusSubmitted,
		SubmittedAt:   submittedAt,
		Answers:       answers,
	}

	if exam.FullyAutoGradable() {
		result.Status = models.ResultStatusGraded
		gradedAt := submittedAt
		result.GradedAt = &gradedAt
	}

	if err := s.results.CreateAttempt(ctx, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_create_failed")
		return dto.ExamResultResponse{}, err
	}

	observability.ExamSubmissions().WithLabelValues(result.Status).Inc()

	if exam.SemesterID != nil && s.progress != nil {
		s.progress.ExamResultRecorded(ctx, principal.ID, *exam.SemesterID)
	}

	if s.events != nil {
		s.events.Publish(ctx, EventExamSubmitted, map[string]interface{}{
			"exam_id":        exam.ID,
			"student_id":     principal.ID,
			"attempt_number": result.AttemptNumber,
			"status":         result.Status,
			"obtained_marks": result.ObtainedMarks,
		})
	}

	s.logger.Info().
		Uint("exam_id", exam.ID).
		Uint("student_id", principal.ID).
		Int("attempt", result.AttemptNumber).
		Str("status", result.Status).
		Msg("exam submitted")

	span.SetAttributes(
		attribute.Int("exam.attempt_number", result.AttemptNumber),
		attribute.String("exam.result_status", result.Status),
	)

	return dto.NewExamResultResponse(result, exam.PassMarks), nil
}

func (s *examService) GradeResult(ctx context.Context, actor Principal, resultID uint, payload dto.ManualGradeRequest) (dto.ExamResultResponse, error) {
	tracer := otel.Tracer("github.com/noor-academy/manhaj-api/internal/service/exam")
	ctx, span := tracer.Start(ctx, "exam.grade")
	span.SetAttributes(
		attribute.Int64("grading.result_id", int64(resultID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	start := s.now()
	defer func() {
		observability.GradingLatency().Observe(time.Since(start).Seconds())
	}()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ExamResultResponse{}, err
	}

	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResultResponse{}, ErrResultNotFound
		}
		return dto.ExamResultResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, result.ExamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResultResponse{}, ErrExamNotFound
		}
		return dto.ExamResultResponse{}, err
	}

	questionAt := make(map[int]models.Question, len(exam.Questions))
	for i, question := range exam.Questions {
		questionAt[i] = question
	}

	answerAt := make(map[int]*models.ExamAnswer, len(result.Answers))
	for i := range result.Answers {
		answerAt[result.Answers[i].Position] = &result.Answers[i]
	}

	for _, award := range payload.Awards {
		question, ok := questionAt[award.Position]
		if !ok {
			return dto.ExamResultResponse{}, ErrInvalidQuestion
		}
		if question.Type == models.QuestionTypeMCQ {
			// objective answers were scored at submission time
			return dto.ExamResultResponse{}, ErrInvalidQuestion
		}
		if award.Marks > question.Marks {
			return dto.ExamResultResponse{}, ErrMarksExceedQuestion
		}
		answer, ok := answerAt[award.Position]
		if !ok {
			return dto.ExamResultResponse{}, ErrInvalidQuestion
		}

		marks := award.Marks
		correct := marks == question.Marks
		answer.Marks = &marks
		answer.IsCorrect = &correct
	}

	for _, answer := range result.Answers {
		if answer.Marks == nil {
			return dto.ExamResultResponse{}, ErrGradingIncomplete
		}
	}

	result.ObtainedMarks = sumAwardedMarks(result.Answers)
	result.Percentage = percentageOf(result.ObtainedMarks, result.TotalMarks)
	result.Status = models.ResultStatusGraded
	gradedAt := s.now()
	result.GradedAt = &gradedAt

	if err := s.results.Update(ctx, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_update_failed")
		return dto.ExamResultResponse{}, err
	}

	if result.SemesterID != nil && s.progress != nil {
		s.progress.ExamResultRecorded(ctx, result.StudentID, *result.SemesterID)
	}

	if s.events != nil {
		s.events.Publish(ctx, EventResultGraded, map[string]interface{}{
			"result_id":      result.ID,
			"exam_id":        result.ExamID,
			"student_id":     result.StudentID,
			"obtained_marks": result.ObtainedMarks,
			"graded_by":      actor.ID,
		})
	}

	s.logger.Info().
		Uint("result_id", result.ID).
		Uint("graded_by", actor.ID).
		Int("obtained_marks", result.ObtainedMarks).
		Msg("result graded")

	return dto.NewExamResultResponse(result, exam.PassMarks), nil
}

// ListResults returns every attempt recorded for an exam, newest first.
func (s *examService) ListResults(ctx context.Context, actor Principal, examID uint) ([]dto.ExamResultResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ExamResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, dto.NewExamResultResponse(result, exam.PassMarks))
	}

	s.logger.Debug().Uint("exam_id", examID).Uint("actor_id", actor.ID).Int("count", len(responses)).Msg("results listed")

	return responses, nil
}

func (s *examService) Create(ctx context.Context, actor Principal, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	if err := validateExamShape(payload.CourseID, payload.SemesterID, payload.TotalMarks, payload.PassMarks, payload.HasTiming, payload.StartTime, payload.EndTime, payload.Questions); err != nil {
		return dto.ExamResponse{}, err
	}

	questions, err := buildQuestions(payload.Questions)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	exam := models.Exam{
		Title:           payload.Title,
		CourseID:        payload.CourseID,
		SemesterID:      payload.SemesterID,
		CreatedBy:       actor.ID,
		TotalMarks:      payload.TotalMarks,
		PassMarks:       payload.PassMarks,
		DurationMinutes: payload.DurationMinutes,
		HasTiming:       payload.HasTiming,
		StartTime:       payload.StartTime,
		EndTime:         payload.EndTime,
		Status:          models.ExamStatusDraft,
		Questions:       questions,
	}

	if !exam.HasTiming {
		exam.StartTime = nil
		exam.EndTime = nil
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Uint("created_by", actor.ID).Msg("exam created")

	return dto.NewExamResponse(exam, false), nil
}

func (s *examService) Update(ctx context.Context, actor Principal, examID uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	if !actor.IsAdmin() && exam.CreatedBy != actor.ID {
		return dto.ExamResponse{}, ErrNotExamOwner
	}

	if payload.Title != nil {
		exam.Title = *payload.Title
	}
	if payload.TotalMarks != nil {
		exam.TotalMarks = *payload.TotalMarks
	}
	if payload.PassMarks != nil {
		exam.PassMarks = *payload.PassMarks
	}
	if payload.DurationMinutes != nil {
		exam.DurationMinutes = *payload.DurationMinutes
	}
	if payload.HasTiming != nil {
		exam.HasTiming = *payload.HasTiming
	}
	if payload.StartTime != nil {
		exam.StartTime = payload.StartTime
	}
	if payload.EndTime != nil {
		exam.EndTime = payload.EndTime
	}
	if payload.Status != nil {
		exam.Status = *payload.Status
	}

	// Disabling timing clears the window rather than retaining stale bounds.
	if !exam.HasTiming {
		exam.StartTime = nil
		exam.EndTime = nil
	}

	questionPayloads := questionPayloadsOf(exam.Questions)
	if payload.Questions != nil {
		questionPayloads = *payload.Questions
	}

	if err := validateExamShape(exam.CourseID, exam.SemesterID, exam.TotalMarks, exam.PassMarks, exam.HasTiming, exam.StartTime, exam.EndTime, questionPayloads); err != nil {
		return dto.ExamResponse{}, err
	}

	if payload.Questions != nil {
		questions, err := buildQuestions(*payload.Questions)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		if err := s.exams.ReplaceQuestions(ctx, exam.ID, questions); err != nil {
			return dto.ExamResponse{}, err
		}
		exam.Questions = nil
	}

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	updated, err := s.exams.GetByID(ctx, exam.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Uint("updated_by", actor.ID).Msg("exam updated")

	return dto.NewExamResponse(updated, false), nil
}

func (s *examService) Delete(ctx context.Context, actor Principal, examID uint) error {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	if !actor.IsAdmin() {
		if exam.CreatedBy != actor.ID {
			return ErrNotExamOwner
		}
		if !exam.IsDraft() {
			return ErrExamNotDraft
		}
	}

	if err := s.exams.Delete(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	s.logger.Info().Uint("exam_id", examID).Uint("deleted_by", actor.ID).Msg("exam deleted")

	return nil
}

func validateExamShape(courseID, semesterID *uint, totalMarks, passMarks int, hasTiming bool, startTime, endTime *time.Time, questions []dto.QuestionPayload) error {
	if (courseID == nil) == (semesterID == nil) {
		return ErrExamOwnership
	}

	if passMarks > totalMarks {
		return ErrPassMarksTooHigh
	}

	if hasTiming {
		if startTime == nil || endTime == nil || !endTime.After(*startTime) {
			return ErrInvalidTimeWindow
		}
	}

	for _, question := range questions {
		switch question.Type {
		case models.QuestionTypeMCQ:
			if len(question.Options) < 2 || question.CorrectAnswer == "" {
				return ErrInvalidQuestion
			}
			found := false
			for _, option := range question.Options {
				if option == question.CorrectAnswer {
					found = true
					break
				}
			}
			if !found {
				return ErrInvalidQuestion
			}
		case models.QuestionTypeShort, models.QuestionTypeLong:
			if len(question.Options) > 0 || question.CorrectAnswer != "" {
				return ErrInvalidQuestion
			}
		default:
			return ErrInvalidQuestion
		}
	}

	return nil
}

func buildQuestions(payloads []dto.QuestionPayload) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(payloads))
	for i, payload := range payloads {
		question := models.Question{
			Position:      i,
			Type:          payload.Type,
			Prompt:        payload.Prompt,
			CorrectAnswer: payload.CorrectAnswer,
			Marks:         payload.Marks,
		}
		if len(payload.Options) > 0 {
			encoded, err := json.Marshal(payload.Options)
			if err != nil {
				return nil, err
			}
			question.Options = encoded
		}
		questions = append(questions, question)
	}

	return questions, nil
}

func questionPayloadsOf(questions []models.Question) []dto.QuestionPayload {
	payloads := make([]dto.QuestionPayload, 0, len(questions))
	for _, question := range questions {
		payload := dto.QuestionPayload{
			Type:          question.Type,
			Prompt:        question.Prompt,
			CorrectAnswer: question.CorrectAnswer,
			Marks:         question.Marks,
		}
		if len(question.Options) > 0 {
			var options []string
			if err := json.Unmarshal(question.Options, &options); err == nil {
				payload.Options = options
			}
		}
		payloads = append(payloads, payload)
	}

	return payloads
}
