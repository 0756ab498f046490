package mockapi

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-web/internal/domain"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

// Handler exposes the auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the endpoints under prefix, e.g. /api.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	authGroup := router.Group("/auth")
	authGroup.Post("/login", h.Login)
	authGroup.Post("/register", h.Register)

	protected := authGroup.Group("", BearerAuth(h.svc))
	protected.Get("/me", h.Me)
	protected.Post("/logout", h.Logout)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req domain.Credentials
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.svc.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.svc.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"user": user})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return c.JSON(user)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.svc.Logout(c.UserContext(), tokenFromContext(c))
	return c.SendStatus(http.StatusNoContent)
}

// ErrorHandler renders errors in the exchange API envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		err = apperrors.NewDomainError("HTTP_ERROR", fiberErr.Message, fiberErr.Code, nil)
	}
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
			"details": domainErr.Details,
		},
	})
}
