package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/middleware"
	"github.com/noor-academy/manhaj-api/internal/service"
	"github.com/noor-academy/manhaj-api/internal/utils"
)

// RetakeHandler serves the retake request workflow.
type RetakeHandler struct {
	service service.RetakeService
	logger  zerolog.Logger
}

// NewRetakeHandler constructs the handler instance.
func NewRetakeHandler(service service.RetakeService, logger zerolog.Logger) *RetakeHandler {
	return &RetakeHandler{
		service: service,
		logger:  logger.With().Str("component", "retake_handler").Logger(),
	}
}

// Register wires the retake routes onto the authenticated group.
func (h *RetakeHandler) Register(router fiber.Router, staffOnly fiber.Handler) {
	router.Post("/exams/:id/retake-requests", h.request)
	router.Get("/retake-requests", h.list)
	router.Patch("/retake-requests/:id", staffOnly, h.decide)
}

func (h *RetakeHandler) request(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RetakeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	principal := principalFromContext(c)
	ctx := middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
	request, err := h.service.Request(ctx, principal, examID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to open retake request")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "retake requested", request)
}

func (h *RetakeHandler) list(c *fiber.Ctx) error {
	filter := dto.RetakeFilter{}
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam_id")
	}
	filter.ExamID = examID
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}

	principal := principalFromContext(c)
	requests, err := h.service.List(c.UserContext(), principal, filter)
	if err != nil {
		return h.handleError(c, err, "failed to list retake requests")
	}

	return utils.SendSuccess(c, "retake requests retrieved", requests)
}

func (h *RetakeHandler) decide(c *fiber.Ctx) error {
	requestID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RetakeDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	request, err := h.service.Decide(c.UserContext(), actor, requestID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to decide retake request")
	}

	return utils.SendSuccess(c, "retake request decided", request)
}

func (h *RetakeHandler) handleError(c *fiber.Ctx, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrRetakeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "retake request not found")
	case errors.Is(err, service.ErrStudentOnly):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNoResultToRetake),
		errors.Is(err, service.ErrRetakeAlreadyOpen),
		errors.Is(err, service.ErrRetakeNotNeeded),
		errors.Is(err, service.ErrRetakeOnPassedExam),
		errors.Is(err, service.ErrRetakeResultUngraded),
		errors.Is(err, service.ErrRetakeNotPending):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
