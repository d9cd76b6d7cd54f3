package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/service"
	"github.com/noor-academy/manhaj-api/internal/utils"
)

// CatalogHandler serves the course and program catalog.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs the handler instance.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// RegisterPublic wires the read-only catalog routes.
func (h *CatalogHandler) RegisterPublic(router fiber.Router) {
	router.Get("/courses", h.listCourses)
	router.Get("/courses/:id", h.getCourse)
	router.Get("/programs", h.listPrograms)
	router.Get("/programs/:id", h.getProgram)
}

// RegisterStaff wires the catalog management routes.
func (h *CatalogHandler) RegisterStaff(router fiber.Router) {
	router.Post("/courses", h.createCourse)
	router.Put("/courses/:id", h.updateCourse)
	router.Delete("/courses/:id", h.deleteCourse)
}

func (h *CatalogHandler) listCourses(c *fiber.Ctx) error {
	principal := principalFromContext(c)
	search := strings.TrimSpace(c.Query("search"))

	courses, err := h.service.ListCourses(c.UserContext(), principal, search)
	if err != nil {
		return h.handleError(c, err, "failed to list courses")
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CatalogHandler) getCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	principal := principalFromContext(c)
	course, err := h.service.GetCourse(c.UserContext(), principal, id)
	if err != nil {
		return h.handleError(c, err, "failed to fetch course")
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CatalogHandler) createCourse(c *fiber.Ctx) error {
	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	course, err := h.service.CreateCourse(c.UserContext(), actor, payload)
	if err != nil {
		return h.handleError(c, err, "failed to create course")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CatalogHandler) updateCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.CourseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	course, err := h.service.UpdateCourse(c.UserContext(), actor, id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update course")
	}

	return utils.SendSuccess(c, "course updated", course)
}

func (h *CatalogHandler) deleteCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := principalFromContext(c)
	if err := h.service.DeleteCourse(c.UserContext(), actor, id); err != nil {
		return h.handleError(c, err, "failed to delete course")
	}

	return utils.SendSuccess(c, "course deleted", fiber.Map{"id": id})
}

func (h *CatalogHandler) listPrograms(c *fiber.Ctx) error {
	principal := principalFromContext(c)
	programs, err := h.service.ListPrograms(c.UserContext(), principal)
	if err != nil {
		return h.handleError(c, err, "failed to list programs")
	}

	return utils.SendSuccess(c, "programs retrieved", programs)
}

func (h *CatalogHandler) getProgram(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	program, err := h.service.GetProgram(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err, "failed to fetch program")
	}

	return utils.SendSuccess(c, "program retrieved", program)
}

func (h *CatalogHandler) handleError(c *fiber.Ctx, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrProgramNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "program not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
