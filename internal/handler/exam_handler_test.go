package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/config"
	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/handler"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/repository"
	"github.com/noor-academy/manhaj-api/internal/router"
	"github.com/noor-academy/manhaj-api/internal/service"
)

var handlerDBCounter int64

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// testAuth reads the acting user from request headers so one app instance
// can serve requests for different principals.
func testAuth(c *fiber.Ctx) error {
	if raw := c.Get("X-Test-User"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			c.Locals("user_id", uint(id))
		}
	}
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupExamApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	name := fmt.Sprintf("handler_test_%d", atomic.AddInt64(&handlerDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Exam{},
		&models.Question{},
		&models.ExamResult{},
		&models.ExamAnswer{},
		&models.RetakeRequest{},
		&models.User{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewExamResultRepository(db)
	retakeRepo := repository.NewRetakeRepository(db)

	examService := service.NewExamService(examRepo, resultRepo, validate, nil, nil, logger)
	retakeService := service.NewRetakeService(retakeRepo, resultRepo, examRepo, validate, nil, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Manhaj Test", JWTSecret: "secret"}, router.Dependencies{
		ExamHandler:   handler.NewExamHandler(examService, logger),
		RetakeHandler: handler.NewRetakeHandler(retakeService, logger),
		JWTMiddleware: testAuth,
	})

	return app, db
}

func seedHandlerExam(t *testing.T, db *gorm.DB) models.Exam {
	t.Helper()

	exam := models.Exam{
		Title:           "Hadith Quiz",
		CourseID:        func() *uint { v := uint(1); return &v }(),
		CreatedBy:       10,
		TotalMarks:      100,
		PassMarks:       50,
		DurationMinutes: 45,
		Status:          models.ExamStatusPublished,
		Questions: []models.Question{
			{Position: 0, Type: models.QuestionTypeMCQ, Prompt: "Pick", Options: datatypes.JSON(`["A","B"]`), CorrectAnswer: "B", Marks: 100},
		},
	}
	require.NoError(t, db.Create(&exam).Error)
	return exam
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, userID uint, role string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) apiEnvelope {
	t.Helper()

	var envelope apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func TestExamHandlerSubmitFlow(t *testing.T) {
	app, db := setupExamApp(t)
	exam := seedHandlerExam(t, db)

	path := fmt.Sprintf("/api/v1/exams/%d", exam.ID)
	body := dto.ExamSubmitRequest{Answers: []dto.AnswerPayload{{Answer: "B"}}}

	resp := doJSON(t, app, fiber.MethodPost, path, body, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.True(t, envelope.Success)

	var result dto.ExamResultResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	require.Equal(t, models.ResultStatusGraded, result.Status)
	require.Equal(t, 100, result.ObtainedMarks)
	require.True(t, result.Passed)

	// second submission is rejected
	resp = doJSON(t, app, fiber.MethodPost, path, body, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	envelope = decodeEnvelope(t, resp)
	require.False(t, envelope.Success)
	require.Equal(t, "exam already submitted", envelope.Message)
}

func TestExamHandlerIssueNotFound(t *testing.T) {
	app, _ := setupExamApp(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/v1/exams/9999", nil, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestExamHandlerIssueStripsAnswersForStudents(t *testing.T) {
	app, db := setupExamApp(t)
	exam := seedHandlerExam(t, db)

	resp := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/v1/exams/%d", exam.ID), nil, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	var issued dto.IssueExamResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &issued))
	require.False(t, issued.AlreadySubmitted)
	require.Empty(t, issued.Exam.Questions[0].CorrectAnswer)
}

func TestExamHandlerCreateRequiresStaffRole(t *testing.T) {
	app, _ := setupExamApp(t)

	courseID := uint(1)
	body := dto.ExamCreateRequest{
		Title:           "New Exam",
		CourseID:        &courseID,
		TotalMarks:      10,
		PassMarks:       5,
		DurationMinutes: 30,
		Questions: []dto.QuestionPayload{
			{Type: models.QuestionTypeMCQ, Prompt: "Pick", Options: []string{"A", "B"}, CorrectAnswer: "A", Marks: 10},
		},
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/exams", body, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/api/v1/exams", body, 10, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	var exam dto.ExamResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &exam))
	require.Equal(t, models.ExamStatusDraft, exam.Status)
}

func TestExamHandlerListResultsRequiresStaffRole(t *testing.T) {
	app, db := setupExamApp(t)
	exam := seedHandlerExam(t, db)

	submitBody := dto.ExamSubmitRequest{Answers: []dto.AnswerPayload{{Answer: "B"}}}
	resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/exams/%d", exam.ID), submitBody, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	listPath := fmt.Sprintf("/api/v1/exams/%d/results", exam.ID)

	resp = doJSON(t, app, fiber.MethodGet, listPath, nil, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, listPath, nil, 10, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	var results []dto.ExamResultResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &results))
	require.Len(t, results, 1)
	require.Equal(t, uint(7), results[0].StudentID)
}

func TestRetakeHandlerWorkflow(t *testing.T) {
	app, db := setupExamApp(t)
	exam := seedHandlerExam(t, db)

	submitPath := fmt.Sprintf("/api/v1/exams/%d", exam.ID)
	resp := doJSON(t, app, fiber.MethodPost, submitPath, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "A"}},
	}, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	requestPath := fmt.Sprintf("/api/v1/exams/%d/retake-requests", exam.ID)
	resp = doJSON(t, app, fiber.MethodPost, requestPath, dto.RetakeCreateRequest{Reason: "want another try"}, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	var request dto.RetakeResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &request))
	require.Equal(t, models.RetakeStatusPending, request.Status)

	// students cannot decide requests
	decidePath := fmt.Sprintf("/api/v1/retake-requests/%d", request.ID)
	resp = doJSON(t, app, fiber.MethodPatch, decidePath, dto.RetakeDecisionRequest{Action: "approve"}, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPatch, decidePath, dto.RetakeDecisionRequest{Action: "approve"}, 10, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// the student may now submit a second attempt
	resp = doJSON(t, app, fiber.MethodPost, submitPath, dto.ExamSubmitRequest{
		Answers: []dto.AnswerPayload{{Answer: "B"}},
	}, 7, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	envelope = decodeEnvelope(t, resp)
	var second dto.ExamResultResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &second))
	require.Equal(t, 2, second.AttemptNumber)
	require.True(t, second.Passed)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupExamApp(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/v1/health", nil, 0, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.True(t, envelope.Success)
	require.Equal(t, "service healthy", envelope.Message)
}
