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

// PostHandler serves the announcement blog endpoints.
type PostHandler struct {
	service service.PostService
	logger  zerolog.Logger
}

// NewPostHandler constructs the handler instance.
func NewPostHandler(service service.PostService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service: service,
		logger:  logger.With().Str("component", "post_handler").Logger(),
	}
}

// RegisterPublic wires the read-only blog routes.
func (h *PostHandler) RegisterPublic(router fiber.Router) {
	router.Get("/posts", h.list)
	router.Get("/posts/:slug", h.get)
}

// RegisterStaff wires the blog management routes.
func (h *PostHandler) RegisterStaff(router fiber.Router) {
	router.Post("/posts", h.create)
	router.Put("/posts/:id", h.update)
	router.Delete("/posts/:id", h.delete)
}

func (h *PostHandler) list(c *fiber.Ctx) error {
	posts, err := h.service.ListPublished(c.UserContext())
	if err != nil {
		return h.handleError(c, err, "failed to list posts")
	}

	return utils.SendSuccess(c, "posts retrieved", posts)
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid slug")
	}

	post, err := h.service.GetBySlug(c.UserContext(), slug)
	if err != nil {
		return h.handleError(c, err, "failed to fetch post")
	}

	return utils.SendSuccess(c, "post retrieved", post)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	post, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		return h.handleError(c, err, "failed to create post")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.PostUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := principalFromContext(c)
	post, err := h.service.Update(c.UserContext(), actor, id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update post")
	}

	return utils.SendSuccess(c, "post updated", post)
}

func (h *PostHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := principalFromContext(c)
	if err := h.service.Delete(c.UserContext(), actor, id); err != nil {
		return h.handleError(c, err, "failed to delete post")
	}

	return utils.SendSuccess(c, "post deleted", fiber.Map{"id": id})
}

func (h *PostHandler) handleError(c *fiber.Ctx, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "post not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(logMessage)
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
