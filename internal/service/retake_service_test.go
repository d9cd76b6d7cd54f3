package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

func newRetakeService(t *testing.T, db *gorm.DB) (*retakeService, *fakeEvents) {
	t.Helper()

	events := &fakeEvents{}
	svc := NewRetakeService(
		repository.NewRetakeRepository(db),
		repository.NewExamResultRepository(db),
		repository.NewExamRepository(db),
		testValidator(),
		events,
		testLogger(),
	).(*retakeService)

	return svc, events
}

func submitFailedAttempt(t *testing.T, db *gorm.DB, exam models.Exam, student Principal) dto.ExamResultResponse {
	t.Helper()

	examSvc, _, _ := newExamService(t, db)
	result, err := examSvc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "wrong"}, {Answer: "wrong"}},
	})
	require.NoError(t, err)
	require.False(t, result.Passed)

	return result
}

func TestRetakeServiceRequestLifecycle(t *testing.T) {
	db := setupServiceDB(t)
	svc, events := newRetakeService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}

	_, err := svc.Request(context.Background(), student, exam.ID, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrNoResultToRetake)

	failed := submitFailedAttempt(t, db, exam, student)

	request, err := svc.Request(context.Background(), student, exam.ID, dto.RetakeCreateRequest{Reason: "I was unwell"})
	require.NoError(t, err)
	require.Equal(t, models.RetakeStatusPending, request.Status)
	require.Equal(t, failed.ID, request.ExamResultID)
	require.Contains(t, events.names(), EventRetakeRequested)

	_, err = svc.Request(context.Background(), student, exam.ID, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrRetakeAlreadyOpen)

	teacher := Principal{ID: 10, Role: models.RoleTeacher}
	decided, err := svc.Decide(context.Background(), teacher, request.ID, dto.RetakeDecisionRequest{Action: "approve"})
	require.NoError(t, err)
	require.Equal(t, models.RetakeStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	require.Equal(t, teacher.ID, *decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	require.Contains(t, events.names(), EventRetakeDecided)

	latest, err := repository.NewExamResultRepository(db).GetLatest(context.Background(), student.ID, exam.ID)
	require.NoError(t, err)
	require.True(t, latest.CanRetake, "approval re-opens the submission path")

	_, err = svc.Decide(context.Background(), teacher, request.ID, dto.RetakeDecisionRequest{Action: "reject"})
	require.ErrorIs(t, err, ErrRetakeNotPending)

	_, err = svc.Request(context.Background(), student, exam.ID, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrRetakeNotNeeded)
}

func TestRetakeServiceRequestGuards(t *testing.T) {
	db := setupServiceDB(t)
	svc, _ := newRetakeService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}

	_, err := svc.Request(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, exam.ID, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrStudentOnly)

	_, err = svc.Request(context.Background(), student, 9999, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrExamNotFound)

	examSvc, _, _ := newExamService(t, db)
	passed, err := examSvc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "A"}},
	})
	require.NoError(t, err)
	require.True(t, passed.Passed)

	_, err = svc.Request(context.Background(), student, exam.ID, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrRetakeOnPassedExam)
}

func TestRetakeServiceRequestWaitsForGrading(t *testing.T) {
	db := setupServiceDB(t)
	svc, _ := newRetakeService(t, db)
	exam := seedMixedExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	examSvc, _, _ := newExamService(t, db)
	_, err := examSvc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "wrong"}, {Answer: "essay"}},
	})
	require.NoError(t, err)

	_, err = svc.Request(context.Background(), student, exam.ID, dto.RetakeCreateRequest{})
	require.ErrorIs(t, err, ErrRetakeResultUngraded)
}

func TestRetakeServiceListScopesStudents(t *testing.T) {
	db := setupServiceDB(t)
	svc, _ := newRetakeService(t, db)
	exam := seedMCQExam(t, db)

	first := Principal{ID: 7, Role: models.RoleStudent}
	second := Principal{ID: 8, Role: models.RoleStudent}

	submitFailedAttempt(t, db, exam, first)
	submitFailedAttempt(t, db, exam, second)

	_, err := svc.Request(context.Background(), first, exam.ID, dto.RetakeCreateRequest{})
	require.NoError(t, err)
	_, err = svc.Request(context.Background(), second, exam.ID, dto.RetakeCreateRequest{})
	require.NoError(t, err)

	own, err := svc.List(context.Background(), first, dto.RetakeFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, first.ID, own[0].StudentID)

	all, err := svc.List(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, dto.RetakeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending := models.RetakeStatusPending
	filtered, err := svc.List(context.Background(), Principal{ID: 1, Role: models.RoleAdmin}, dto.RetakeFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
}
