package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/middleware"
	"github.com/noor-academy/manhaj-api/internal/service"
	"github.com/noor-academy/manhaj-api/internal/utils"
)

// ExamHandler serves the exam lifecycle endpoints.
type ExamHandler struct {
	service service.ExamService
	logger  zerolog.Logger
}

// NewExamHandler constructs the handler instance.
func NewExamHandler(service service.ExamService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		service: service,
		logger:  logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register wires the exam routes onto the authenticated group. Staff routes
// carry an extra role guard.
func (h *ExamHandler) Register(router fiber.Router, staffOnly fiber.Handler) {
	router.Get("/exams/:id", h.issue)
	router.Post("/exams/:id", middleware.RateLimit("exam-submit", 30, time.Minute), h.submit)
	router.Post("/exams", staffOnly, h.create)
	router.Put("/exams/:id", staffOnly, h.update)
	router.Delete("/exams/:id", staffOnly, h.delete)
	router.Get("/exams/:id/results", staffOnly, h.listResults)
	router.Post("/exams/results/:id/grade", staffOnly, h.gradeResult)
}

func (h *ExamHandler) issue(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	principal := principalFromContext(c)
	issued, err := h.service.Issue(c.UserContext(), principal, examID)
	if err != nil {
		return h.handleError(c, err, "failed to issue exam")
	}

	return utils.SendSuccess(c, "exam retrieved", issued)
}

func (h *ExamHandler) submit(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ExamSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	principal := principalFromContext(c)
	ctx := middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
	result, err := h.service.Submit(ctx, principal, examID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to submit exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam submitted", result)
}

func (h *ExamHandler) listResults(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := principalFromContext(c)
	results, err := h.service.ListResults(c.UserContext(), actor, examID)
	if err != nil {
		return h.handleError(c, err, "failed to list results")
	}

	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *ExamHandler) gradeResult(c *fiber.Ctx) error {
	resultID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ManualGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	result, err := h.service.GradeResult(c.UserContext(), actor, resultID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to grade result")
	}

	return utils.SendSuccess(c, "result graded", result)
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	exam, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		return h.handleError(c, err, "failed to create exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *ExamHandler) update(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	exam, err := h.service.Update(c.UserContext(), actor, examID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update exam")
	}

	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *ExamHandler) delete(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := principalFromContext(c)
	if err := h.service.Delete(c.UserContext(), actor, examID); err != nil {
		return h.handleError(c, err, "failed to delete exam")
	}

	return utils.SendSuccess(c, "exam deleted", fiber.Map{"id": examID})
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "result not found")
	case errors.Is(err, service.ErrStudentOnly),
		errors.Is(err, service.ErrNotExamOwner):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrExamNotActive),
		errors.Is(err, service.ErrAnswerCountMismatch),
		errors.Is(err, service.ErrExamNotDraft),
		errors.Is(err, service.ErrExamOwnership),
		errors.Is(err, service.ErrPassMarksTooHigh),
		errors.Is(err, service.ErrInvalidQuestion),
		errors.Is(err, service.ErrInvalidTimeWindow),
		errors.Is(err, service.ErrMarksExceedQuestion),
		errors.Is(err, service.ErrGradingIncomplete):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
