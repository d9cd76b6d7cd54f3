package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
)

func newExamService(t *testing.T, db *gorm.DB) (*examService, *fakeEvents, *fakeProgress) {
	t.Helper()

	events := &fakeEvents{}
	progress := &fakeProgress{}
	svc := NewExamService(
		repository.NewExamRepository(db),
		repository.NewExamResultRepository(db),
		testValidator(),
		events,
		progress,
		testLogger(),
	).(*examService)

	return svc, events, progress
}

func seedMCQExam(t *testing.T, db *gorm.DB) models.Exam {
	t.Helper()

	exam := models.Exam{
		Title:           "Fiqh Midterm",
		CourseID:        ptrUint(1),
		CreatedBy:       10,
		TotalMarks:      100,
		PassMarks:       50,
		DurationMinutes: 60,
		Status:          models.ExamStatusPublished,
		Questions: []models.Question{
			{Position: 0, Type: models.QuestionTypeMCQ, Prompt: "First pillar?", Options: datatypes.JSON(`["A","B","C"]`), CorrectAnswer: "B", Marks: 50},
			{Position: 1, Type: models.QuestionTypeMCQ, Prompt: "Second pillar?", Options: datatypes.JSON(`["A","B","C"]`), CorrectAnswer: "A", Marks: 50},
		},
	}
	require.NoError(t, db.Create(&exam).Error)
	return exam
}

func seedMixedExam(t *testing.T, db *gorm.DB) models.Exam {
	t.Helper()

	exam := models.Exam{
		Title:           "Tafsir Final",
		CourseID:        ptrUint(1),
		CreatedBy:       10,
		TotalMarks:      100,
		PassMarks:       50,
		DurationMinutes: 90,
		Status:          models.ExamStatusPublished,
		Questions: []models.Question{
			{Position: 0, Type: models.QuestionTypeMCQ, Prompt: "Choose one", Options: datatypes.JSON(`["A","B"]`), CorrectAnswer: "B", Marks: 40},
			{Position: 1, Type: models.QuestionTypeLong, Prompt: "Explain", Marks: 60},
		},
	}
	require.NoError(t, db.Create(&exam).Error)
	return exam
}

func TestExamServiceSubmitAutoGradesObjectiveExam(t *testing.T) {
	db := setupServiceDB(t)
	svc, events, progress := newExamService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	result, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "C"}},
	})
	require.NoError(t, err)

	require.Equal(t, models.ResultStatusGraded, result.Status)
	require.Equal(t, 50, result.ObtainedMarks)
	require.Equal(t, 50, result.Percentage)
	require.True(t, result.Passed)
	require.False(t, result.Provisional)
	require.NotNil(t, result.GradedAt)
	require.Equal(t, 1, result.AttemptNumber)
	require.True(t, result.IsLatest)
	require.False(t, result.CanRetake)

	require.Len(t, result.Answers, 2)
	require.NotNil(t, result.Answers[0].IsCorrect)
	require.True(t, *result.Answers[0].IsCorrect)
	require.Equal(t, 50, *result.Answers[0].Marks)
	require.False(t, *result.Answers[1].IsCorrect)
	require.Equal(t, 0, *result.Answers[1].Marks)

	require.Equal(t, []string{EventExamSubmitted}, events.names())
	require.Empty(t, progress.calls, "course exams do not touch semester progress")
}

func TestExamServiceSubmitMixedExamStaysProvisional(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMixedExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	result, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "long essay text"}},
	})
	require.NoError(t, err)

	require.Equal(t, models.ResultStatusSubmitted, result.Status)
	require.Equal(t, 40, result.ObtainedMarks)
	require.True(t, result.Provisional)
	require.False(t, result.Passed, "pass verdict is withheld until grading completes")
	require.Nil(t, result.GradedAt)
	require.Nil(t, result.Answers[1].Marks)
	require.Nil(t, result.Answers[1].IsCorrect)
}

func TestExamServiceSubmitRejectsDuplicateAttempt(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	payload := dto.ExamSubmitRequest{Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "A"}}}

	_, err := svc.Submit(context.Background(), student, exam.ID, payload)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), student, exam.ID, payload)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestExamServiceSubmitGuards(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMCQExam(t, db)

	payload := dto.ExamSubmitRequest{Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "A"}}}

	_, err := svc.Submit(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, exam.ID, payload)
	require.ErrorIs(t, err, ErrStudentOnly)

	_, err = svc.Submit(context.Background(), Principal{ID: 7, Role: models.RoleStudent}, 9999, payload)
	require.ErrorIs(t, err, ErrExamNotFound)

	_, err = svc.Submit(context.Background(), Principal{ID: 7, Role: models.RoleStudent}, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}},
	})
	require.ErrorIs(t, err, ErrAnswerCountMismatch)
}

func TestExamServiceSubmitHonorsTimeWindow(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	exam := models.Exam{
		Title:           "Timed Quiz",
		CourseID:        ptrUint(1),
		CreatedBy:       10,
		TotalMarks:      10,
		PassMarks:       5,
		DurationMinutes: 30,
		HasTiming:       true,
		StartTime:       &start,
		EndTime:         &end,
		Status:          models.ExamStatusPublished,
		Questions: []models.Question{
			{Position: 0, Type: models.QuestionTypeMCQ, Prompt: "Pick", Options: datatypes.JSON(`["A","B"]`), CorrectAnswer: "A", Marks: 10},
		},
	}
	require.NoError(t, db.Create(&exam).Error)

	student := Principal{ID: 7, Role: models.RoleStudent}
	payload := dto.ExamSubmitRequest{Answers: []dto.AnswerPayload{{Answer: "A"}}}

	svc.now = func() time.Time { return end.Add(time.Minute) }
	_, err := svc.Submit(context.Background(), student, exam.ID, payload)
	require.ErrorIs(t, err, ErrExamNotActive)

	svc.now = func() time.Time { return start.Add(time.Minute) }
	result, err := svc.Submit(context.Background(), student, exam.ID, payload)
	require.NoError(t, err)
	require.Equal(t, 10, result.ObtainedMarks)
}

func TestExamServiceApprovedRetakeCreatesSecondAttempt(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	first, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "C"}, {Answer: "C"}},
	})
	require.NoError(t, err)
	require.False(t, first.Passed)

	results := repository.NewExamResultRepository(db)
	require.NoError(t, results.SetCanRetake(context.Background(), first.ID, true))

	second, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "A"}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, second.AttemptNumber)
	require.True(t, second.IsLatest)
	require.Equal(t, 100, second.ObtainedMarks)
	require.False(t, second.CanRetake, "a fresh attempt starts blocked again")

	var supersededLatest bool
	require.NoError(t, db.Model(&models.ExamResult{}).
		Select("is_latest").
		Where("id = ?", first.ID).
		Scan(&supersededLatest).Error)
	require.False(t, supersededLatest)
}

func TestExamServiceGradeResultFinishesMixedExam(t *testing.T) {
	db := setupServiceDB(t)
	svc, events, _ := newExamService(t, db)
	exam := seedMixedExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	submitted, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "essay"}},
	})
	require.NoError(t, err)

	teacher := Principal{ID: 10, Role: models.RoleTeacher}

	_, err = svc.GradeResult(context.Background(), teacher, submitted.ID, dto.ManualGradeRequest{
		Awards: []dto.ManualGradeAward{{Position: 0, Marks: 10}},
	})
	require.ErrorIs(t, err, ErrInvalidQuestion, "objective answers cannot be re-awarded")

	_, err = svc.GradeResult(context.Background(), teacher, submitted.ID, dto.ManualGradeRequest{
		Awards: []dto.ManualGradeAward{{Position: 1, Marks: 70}},
	})
	require.ErrorIs(t, err, ErrMarksExceedQuestion)

	graded, err := svc.GradeResult(context.Background(), teacher, submitted.ID, dto.ManualGradeRequest{
		Awards: []dto.ManualGradeAward{{Position: 1, Marks: 30}},
	})
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusGraded, graded.Status)
	require.Equal(t, 70, graded.ObtainedMarks)
	require.Equal(t, 70, graded.Percentage)
	require.True(t, graded.Passed)
	require.False(t, graded.Provisional)
	require.NotNil(t, graded.GradedAt)

	require.Contains(t, events.names(), EventResultGraded)
}

func TestExamServiceGradeResultRequiresEveryAnswer(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)

	exam := models.Exam{
		Title:           "Essay Exam",
		CourseID:        ptrUint(1),
		CreatedBy:       10,
		TotalMarks:      20,
		PassMarks:       10,
		DurationMinutes: 60,
		Status:          models.ExamStatusPublished,
		Questions: []models.Question{
			{Position: 0, Type: models.QuestionTypeShort, Prompt: "Define", Marks: 10},
			{Position: 1, Type: models.QuestionTypeShort, Prompt: "Compare", Marks: 10},
		},
	}
	require.NoError(t, db.Create(&exam).Error)

	student := Principal{ID: 7, Role: models.RoleStudent}
	submitted, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "one"}, {Answer: "two"}},
	})
	require.NoError(t, err)

	teacher := Principal{ID: 10, Role: models.RoleTeacher}
	_, err = svc.GradeResult(context.Background(), teacher, submitted.ID, dto.ManualGradeRequest{
		Awards: []dto.ManualGradeAward{{Position: 0, Marks: 10}},
	})
	require.ErrorIs(t, err, ErrGradingIncomplete)
}

func TestExamServiceIssueStripsAnswersForFirstTimeStudents(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}

	issued, err := svc.Issue(context.Background(), student, exam.ID)
	require.NoError(t, err)
	require.False(t, issued.AlreadySubmitted)
	require.Nil(t, issued.Result)
	for _, question := range issued.Exam.Questions {
		require.Empty(t, question.CorrectAnswer)
	}

	_, err = svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "A"}},
	})
	require.NoError(t, err)

	after, err := svc.Issue(context.Background(), student, exam.ID)
	require.NoError(t, err)
	require.True(t, after.AlreadySubmitted)
	require.NotNil(t, after.Result)
	require.Equal(t, "B", after.Exam.Questions[0].CorrectAnswer)

	teacher, err := svc.Issue(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, exam.ID)
	require.NoError(t, err)
	require.Equal(t, "B", teacher.Exam.Questions[0].CorrectAnswer)
}

func TestExamServiceIssueHidesAnswersWhileRetakeOpen(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMCQExam(t, db)

	student := Principal{ID: 7, Role: models.RoleStudent}
	failed, err := svc.Submit(context.Background(), student, exam.ID, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "C"}, {Answer: "C"}},
	})
	require.NoError(t, err)
	require.False(t, failed.Passed)

	require.NoError(t, repository.NewExamResultRepository(db).SetCanRetake(context.Background(), failed.ID, true))

	// an approved retake re-opens the submission, so answers go dark again
	reopened, err := svc.Issue(context.Background(), student, exam.ID)
	require.NoError(t, err)
	require.False(t, reopened.AlreadySubmitted)
	for _, question := range reopened.Exam.Questions {
		require.Empty(t, question.CorrectAnswer)
	}
}

func TestExamServiceListResultsReturnsEveryAttempt(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)
	exam := seedMCQExam(t, db)

	for _, studentID := range []uint{7, 8} {
		_, err := svc.Submit(context.Background(), Principal{ID: studentID, Role: models.RoleStudent}, exam.ID, dto.ExamSubmitRequest{
			Answers: []dto.AnswerPayload{{Answer: "B"}, {Answer: "A"}},
		})
		require.NoError(t, err)
	}

	teacher := Principal{ID: 10, Role: models.RoleTeacher}
	results, err := svc.ListResults(context.Background(), teacher, exam.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		require.True(t, result.Passed)
	}

	_, err = svc.ListResults(context.Background(), teacher, 9999)
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestExamServiceCreateValidatesShape(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)

	teacher := Principal{ID: 10, Role: models.RoleTeacher}
	base := dto.ExamCreateRequest{
		Title:           "Aqeedah Quiz",
		CourseID:        ptrUint(1),
		TotalMarks:      10,
		PassMarks:       5,
		DurationMinutes: 30,
		Questions: []dto.QuestionPayload{
			{Type: models.QuestionTypeMCQ, Prompt: "Pick", Options: []string{"A", "B"}, CorrectAnswer: "A", Marks: 10},
		},
	}

	created, err := svc.Create(context.Background(), teacher, base)
	require.NoError(t, err)
	require.Equal(t, models.ExamStatusDraft, created.Status)
	require.Len(t, created.Questions, 1)

	tooHigh := base
	tooHigh.PassMarks = 20
	_, err = svc.Create(context.Background(), teacher, tooHigh)
	require.ErrorIs(t, err, ErrPassMarksTooHigh)

	bothOwners := base
	bothOwners.SemesterID = ptrUint(2)
	_, err = svc.Create(context.Background(), teacher, bothOwners)
	require.ErrorIs(t, err, ErrExamOwnership)

	badQuestion := base
	badQuestion.Questions = []dto.QuestionPayload{
		{Type: models.QuestionTypeMCQ, Prompt: "Pick", Options: []string{"A", "B"}, CorrectAnswer: "Z", Marks: 10},
	}
	_, err = svc.Create(context.Background(), teacher, badQuestion)
	require.ErrorIs(t, err, ErrInvalidQuestion)

	timed := base
	timed.HasTiming = true
	_, err = svc.Create(context.Background(), teacher, timed)
	require.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestExamServiceUpdateClearsWindowWhenTimingDisabled(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	exam := models.Exam{
		Title:           "Timed Quiz",
		CourseID:        ptrUint(1),
		CreatedBy:       10,
		TotalMarks:      10,
		PassMarks:       5,
		DurationMinutes: 30,
		HasTiming:       true,
		StartTime:       &start,
		EndTime:         &end,
		Status:          models.ExamStatusDraft,
		Questions: []models.Question{
			{Position: 0, Type: models.QuestionTypeMCQ, Prompt: "Pick", Options: datatypes.JSON(`["A","B"]`), CorrectAnswer: "A", Marks: 10},
		},
	}
	require.NoError(t, db.Create(&exam).Error)

	owner := Principal{ID: 10, Role: models.RoleTeacher}
	hasTiming := false
	updated, err := svc.Update(context.Background(), owner, exam.ID, dto.ExamUpdateRequest{HasTiming: &hasTiming})
	require.NoError(t, err)
	require.False(t, updated.HasTiming)
	require.Nil(t, updated.StartTime)
	require.Nil(t, updated.EndTime)

	_, err = svc.Update(context.Background(), Principal{ID: 99, Role: models.RoleTeacher}, exam.ID, dto.ExamUpdateRequest{Title: ptrString("Renamed Quiz")})
	require.ErrorIs(t, err, ErrNotExamOwner)
}

func TestExamServiceDeletePermissions(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, _ := newExamService(t, db)

	draft := seedMCQExam(t, db)
	require.NoError(t, db.Model(&models.Exam{}).Where("id = ?", draft.ID).Update("status", models.ExamStatusDraft).Error)

	_, err := svc.Issue(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, draft.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), Principal{ID: 99, Role: models.RoleTeacher}, draft.ID), ErrNotExamOwner)
	require.NoError(t, svc.Delete(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, draft.ID))

	published := seedMCQExam(t, db)
	require.ErrorIs(t, svc.Delete(context.Background(), Principal{ID: 10, Role: models.RoleTeacher}, published.ID), ErrExamNotDraft)
	require.NoError(t, svc.Delete(context.Background(), Principal{ID: 1, Role: models.RoleAdmin}, published.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), Principal{ID: 1, Role: models.RoleAdmin}, published.ID), ErrExamNotFound)
}
