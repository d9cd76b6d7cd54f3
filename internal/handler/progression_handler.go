package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noor-academy/manhaj-api/internal/middleware"
	"github.com/noor-academy/manhaj-api/internal/service"
	"github.com/noor-academy/manhaj-api/internal/utils"
)

// ProgressionHandler serves the enrollment and progression gate endpoints.
type ProgressionHandler struct {
	service service.ProgressionService
	logger  zerolog.Logger
}

// NewProgressionHandler constructs the handler instance.
func NewProgressionHandler(service service.ProgressionService, logger zerolog.Logger) *ProgressionHandler {
	return &ProgressionHandler{
		service: service,
		logger:  logger.With().Str("component", "progression_handler").Logger(),
	}
}

// Register wires the progression routes onto the authenticated group.
func (h *ProgressionHandler) Register(router fiber.Router) {
	router.Post("/programs/:id/enroll", h.enroll)
	router.Get("/programs/:programId/semesters/:number/access", h.semesterAccess)
	router.Get("/semesters/:id/lessons/:lessonId/access", h.lessonAccess)
	router.Get("/semesters/:id/progress", h.progress)
	router.Post("/lessons/:id/complete", h.completeLesson)
}

func (h *ProgressionHandler) enroll(c *fiber.Ctx) error {
	programID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	principal := principalFromContext(c)
	enrollment, err := h.service.Enroll(c.UserContext(), principal, programID)
	if err != nil {
		return h.handleError(c, err, "failed to enroll")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrolled", enrollment)
}

func (h *ProgressionHandler) semesterAccess(c *fiber.Ctx) error {
	programID, err := parseUintParam(c, "programId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	number, err := parseUintParam(c, "number")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid semester number")
	}

	principal := principalFromContext(c)
	access, err := h.service.CanAccessSemester(c.UserContext(), principal, programID, int(number))
	if err != nil {
		return h.handleError(c, err, "failed to check semester access")
	}

	return utils.SendSuccess(c, "semester access evaluated", access)
}

func (h *ProgressionHandler) lessonAccess(c *fiber.Ctx) error {
	semesterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	principal := principalFromContext(c)
	access, err := h.service.LessonAccess(c.UserContext(), principal, semesterID, lessonID)
	if err != nil {
		return h.handleError(c, err, "failed to check lesson access")
	}

	return utils.SendSuccess(c, "lesson access evaluated", access)
}

func (h *ProgressionHandler) progress(c *fiber.Ctx) error {
	semesterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	principal := principalFromContext(c)
	progress, err := h.service.Progress(c.UserContext(), principal, semesterID)
	if err != nil {
		return h.handleError(c, err, "failed to compute progress")
	}

	if progress.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}

	return utils.SendSuccess(c, "progress retrieved", progress)
}

func (h *ProgressionHandler) completeLesson(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	principal := principalFromContext(c)
	ctx := middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
	access, err := h.service.CompleteLesson(ctx, principal, lessonID)
	if err != nil {
		return h.handleError(c, err, "failed to complete lesson")
	}

	return utils.SendSuccess(c, "lesson completed", access)
}

func (h *ProgressionHandler) handleError(c *fiber.Ctx, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrProgramNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "program not found")
	case errors.Is(err, service.ErrSemesterNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "semester not found")
	case errors.Is(err, service.ErrLessonNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "lesson not found")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStudentOnly):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrLessonLocked):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
