package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/observability"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

// Progression gate sentinel errors.
var (
	ErrProgramNotFound  = errors.New("program not found")
	ErrSemesterNotFound = errors.New("semester not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrNotEnrolled      = errors.New("not enrolled in this program")
	ErrLessonLocked     = errors.New("lesson is locked")
)

// ProgressionService decides whether a student may access semesters and
// lessons, and aggregates per-semester progress.
type ProgressionService interface {
	Enroll(ctx context.Context, principal Principal, programID uint) (dto.EnrollmentResponse, error)
	CanAccessSemester(ctx context.Context, principal Principal, programID uint, semesterNumber int) (dto.SemesterAccessResponse, error)
	LessonAccess(ctx context.Context, principal Principal, semesterID, lessonID uint) (dto.LessonAccessResponse, error)
	Progress(ctx context.Context, principal Principal, semesterID uint) (dto.SemesterProgressResponse, error)
	CompleteLesson(ctx context.Context, principal Principal, lessonID uint) (dto.LessonAccessResponse, error)
	InvalidateProgress(ctx context.Context, studentID, semesterID uint)
	ExamResultRecorded(ctx context.Context, studentID, semesterID uint)
}

type progressionService struct {
	programs    repository.ProgramRepository
	enrollments repository.EnrollmentRepository
	exams       repository.ExamRepository
	results     repository.ExamResultRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressionService builds the progression gate.
func NewProgressionService(programRepo repository.ProgramRepository, enrollmentRepo repository.EnrollmentRepository, examRepo repository.ExamRepository, resultRepo repository.ExamResultRepository, cache *redis.Client, ttl time.Duration, events EventPublisher, logger zerolog.Logger) ProgressionService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &progressionService{
		programs:    programRepo,
		enrollments: enrollmentRepo,
		exams:       examRepo,
		results:     resultRepo,
		cache:       cache,
		cacheTTL:    ttl,
		events:      events,
		logger:      logger.With().Str("component", "progression_service").Logger(),
		now:         time.Now,
	}
}

func (s *progressionService) Enroll(ctx context.Context, principal Principal, programID uint) (dto.EnrollmentResponse, error) {
	if !principal.IsStudent() {
		return dto.EnrollmentResponse{}, ErrStudentOnly
	}

	if _, err := s.programs.GetByID(ctx, programID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrProgramNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	// Enrolling twice is a no-op returning the existing record.
	if existing, err := s.enrollments.Get(ctx, principal.ID, programID); err == nil {
		return enrollmentResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.EnrollmentResponse{}, err
	}

	enrollment := models.Enrollment{
		StudentID:          principal.ID,
		ProgramID:          programID,
		CurrentSemester:    1,
		CompletedSemesters: []byte("[]"),
	}

	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("student_id", principal.ID).Uint("program_id", programID).Msg("student enrolled")

	return enrollmentResponse(enrollment), nil
}

// CanAccessSemester applies the semester gate: the first semester is always
// open to enrolled students, the current semester is open, and completed
// semesters stay open for review. Admins bypass the gate entirely.
func (s *progressionService) CanAccessSemester(ctx context.Context, principal Principal, programID uint, semesterNumber int) (dto.SemesterAccessResponse, error) {
	if _, err := s.programs.GetSemesterByNumber(ctx, programID, semesterNumber); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SemesterAccessResponse{}, ErrSemesterNotFound
		}
		return dto.SemesterAccessResponse{}, err
	}

	if principal.IsAdmin() {
		return dto.SemesterAccessResponse{CanAccess: true}, nil
	}

	enrollment, err := s.enrollments.Get(ctx, principal.ID, programID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SemesterAccessResponse{}, ErrNotEnrolled
		}
		return dto.SemesterAccessResponse{}, err
	}

	if semesterNumber == 1 || semesterNumber == enrollment.CurrentSemester {
		return dto.SemesterAccessResponse{CanAccess: true}, nil
	}

	if _, done := enrollment.CompletedSet()[semesterNumber]; done {
		return dto.SemesterAccessResponse{CanAccess: true}, nil
	}

	return dto.SemesterAccessResponse{
		CanAccess: false,
		Reason:    "complete the previous semester first",
	}, nil
}

// LessonAccess applies the strict complete-in-order policy: a lesson is
// locked when it sits more than one position past the highest completed
// lesson. Locked verdicts carry the first unlocked lesson to redirect to.
// A lesson addressed through the wrong semester is treated as not found.
func (s *progressionService) LessonAccess(ctx context.Context, principal Principal, semesterID, lessonID uint) (dto.LessonAccessResponse, error) {
	lesson, semester, err := s.lessonContext(ctx, lessonID)
	if err != nil {
		return dto.LessonAccessResponse{}, err
	}

	if semester.ID != semesterID {
		return dto.LessonAccessResponse{}, ErrLessonNotFound
	}

	return s.evaluateLessonAccess(ctx, principal, lesson, semester)
}

func (s *progressionService) evaluateLessonAccess(ctx context.Context, principal Principal, lesson models.Lesson, semester models.Semester) (dto.LessonAccessResponse, error) {
	if principal.IsAdmin() {
		return dto.LessonAccessResponse{CanAccess: true}, nil
	}

	semesterAccess, err := s.CanAccessSemester(ctx, principal, semester.ProgramID, semester.Number)
	if err != nil {
		return dto.LessonAccessResponse{}, err
	}
	if !semesterAccess.CanAccess {
		return dto.LessonAccessResponse{Locked: true, Reason: semesterAccess.Reason}, nil
	}

	lessonIndex := -1
	lessonIDs := make([]uint, 0, len(semester.Lessons))
	for i, item := range semester.Lessons {
		lessonIDs = append(lessonIDs, item.ID)
		if item.ID == lesson.ID {
			lessonIndex = i
		}
	}
	if lessonIndex < 0 {
		return dto.LessonAccessResponse{}, ErrLessonNotFound
	}

	completed, err := s.enrollments.CompletedLessonIDs(ctx, principal.ID, lessonIDs)
	if err != nil {
		return dto.LessonAccessResponse{}, err
	}

	lastCompletedIndex := -1
	for i, item := range semester.Lessons {
		if _, done := completed[item.ID]; done {
			lastCompletedIndex = i
		}
	}

	if lessonIndex > lastCompletedIndex+1 {
		firstUnlocked := semester.Lessons[lastCompletedIndex+1].ID
		return dto.LessonAccessResponse{
			Locked:     true,
			Reason:     "complete earlier lessons first",
			RedirectTo: &firstUnlocked,
		}, nil
	}

	return dto.LessonAccessResponse{CanAccess: true}, nil
}

// Progress aggregates completed lessons and passed exams for a semester,
// with a Redis read-through cache.
func (s *progressionService) Progress(ctx context.Context, principal Principal, semesterID uint) (dto.SemesterProgressResponse, error) {
	cacheKey := progressCacheKey(principal.ID, semesterID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.SemesterProgressResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.ProgressCacheRequests().WithLabelValues("hit").Inc()
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
		observability.ProgressCacheRequests().WithLabelValues("miss").Inc()
	}

	semester, err := s.programs.GetSemester(ctx, semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SemesterProgressResponse{}, ErrSemesterNotFound
		}
		return dto.SemesterProgressResponse{}, err
	}

	lessonIDs := make([]uint, 0, len(semester.Lessons))
	for _, lesson := range semester.Lessons {
		lessonIDs = append(lessonIDs, lesson.ID)
	}

	completed, err := s.enrollments.CompletedLessonIDs(ctx, principal.ID, lessonIDs)
	if err != nil {
		return dto.SemesterProgressResponse{}, err
	}

	semesterFilter := semesterID
	exams, err := s.exams.List(ctx, repository.ExamFilter{SemesterID: &semesterFilter})
	if err != nil {
		return dto.SemesterProgressResponse{}, err
	}

	passMarksByExam := make(map[uint]int, len(exams))
	for _, exam := range exams {
		passMarksByExam[exam.ID] = exam.PassMarks
	}

	latest, err := s.results.ListLatestBySemester(ctx, principal.ID, semesterID)
	if err != nil {
		return dto.SemesterProgressResponse{}, err
	}

	examsPassed := 0
	for _, result := range latest {
		if passMarks, ok := passMarksByExam[result.ExamID]; ok && result.Passed(passMarks) {
			examsPassed++
		}
	}

	response := dto.SemesterProgressResponse{
		LessonsCompleted: len(completed),
		TotalLessons:     len(semester.Lessons),
		ExamsPassed:      examsPassed,
		TotalExams:       len(exams),
	}

	// Every lesson and exam weighs the same in the overall figure.
	totalUnits := response.TotalLessons + response.TotalExams
	response.OverallPercentage = percentageOf(response.LessonsCompleted+response.ExamsPassed, totalUnits)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store progress cache")
			}
		}
	}

	return response, nil
}

// CompleteLesson records completion of an unlocked lesson and re-evaluates
// semester completion for the enrollment.
func (s *progressionService) CompleteLesson(ctx context.Context, principal Principal, lessonID uint) (dto.LessonAccessResponse, error) {
	if !principal.IsStudent() {
		return dto.LessonAccessResponse{}, ErrStudentOnly
	}

	lesson, semester, err := s.lessonContext(ctx, lessonID)
	if err != nil {
		return dto.LessonAccessResponse{}, err
	}

	access, err := s.evaluateLessonAccess(ctx, principal, lesson, semester)
	if err != nil {
		return dto.LessonAccessResponse{}, err
	}
	if access.Locked {
		return access, ErrLessonLocked
	}

	progress := models.LessonProgress{
		StudentID:   principal.ID,
		LessonID:    lesson.ID,
		CompletedAt: s.now(),
	}
	if err := s.enrollments.MarkLessonCompleted(ctx, &progress); err != nil {
		return dto.LessonAccessResponse{}, err
	}

	s.InvalidateProgress(ctx, principal.ID, semester.ID)

	if s.events != nil {
		s.events.Publish(ctx, EventLessonCompleted, map[string]interface{}{
			"lesson_id":   lesson.ID,
			"semester_id": semester.ID,
			"student_id":  principal.ID,
		})
	}

	if err := s.refreshSemesterCompletion(ctx, principal.ID, semester); err != nil {
		s.logger.Warn().Err(err).Uint("semester_id", semester.ID).Msg("failed to refresh semester completion")
	}

	return dto.LessonAccessResponse{CanAccess: true}, nil
}

// InvalidateProgress drops the cached aggregate for one (student, semester).
func (s *progressionService) InvalidateProgress(ctx context.Context, studentID, semesterID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, progressCacheKey(studentID, semesterID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate progress cache")
	}
}

// ExamResultRecorded reacts to an exam result write for a semester: it drops
// the cached aggregate and re-evaluates semester completion, so a semester
// whose last outstanding unit was the exam unlocks its successor.
func (s *progressionService) ExamResultRecorded(ctx context.Context, studentID, semesterID uint) {
	s.InvalidateProgress(ctx, studentID, semesterID)

	semester, err := s.programs.GetSemester(ctx, semesterID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("semester_id", semesterID).Msg("failed to load semester after result write")
		return
	}

	if err := s.refreshSemesterCompletion(ctx, studentID, semester); err != nil {
		s.logger.Warn().Err(err).Uint("semester_id", semesterID).Msg("failed to refresh semester completion")
	}
}

// refreshSemesterCompletion marks the semester completed on the enrollment
// once every lesson is done and every exam is passed.
func (s *progressionService) refreshSemesterCompletion(ctx context.Context, studentID uint, semester models.Semester) error {
	progress, err := s.Progress(ctx, Principal{ID: studentID, Role: models.RoleStudent}, semester.ID)
	if err != nil {
		return err
	}

	if progress.LessonsCompleted < progress.TotalLessons || progress.ExamsPassed < progress.TotalExams {
		return nil
	}

	enrollment, err := s.enrollments.Get(ctx, studentID, semester.ProgramID)
	if err != nil {
		return err
	}

	if err := enrollment.MarkCompleted(semester.Number); err != nil {
		return err
	}

	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		return err
	}

	s.logger.Info().Uint("student_id", studentID).Int("semester", semester.Number).Msg("semester completed")

	return nil
}

func (s *progressionService) lessonContext(ctx context.Context, lessonID uint) (models.Lesson, models.Semester, error) {
	lesson, err := s.programs.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lesson{}, models.Semester{}, ErrLessonNotFound
		}
		return models.Lesson{}, models.Semester{}, err
	}

	semester, err := s.programs.GetSemester(ctx, lesson.SemesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lesson{}, models.Semester{}, ErrSemesterNotFound
		}
		return models.Lesson{}, models.Semester{}, err
	}

	return lesson, semester, nil
}

func enrollmentResponse(model models.Enrollment) dto.EnrollmentResponse {
	set := model.CompletedSet()
	completed := make([]int, 0, len(set))
	for number := range set {
		completed = append(completed, number)
	}
	sort.Ints(completed)

	return dto.EnrollmentResponse{
		ID:                 model.ID,
		StudentID:          model.StudentID,
		ProgramID:          model.ProgramID,
		CurrentSemester:    model.CurrentSemester,
		CompletedSemesters: completed,
	}
}

func progressCacheKey(studentID, semesterID uint) string {
	return fmt.Sprintf("progress:semester:%d:student:%d", semesterID, studentID)
}
