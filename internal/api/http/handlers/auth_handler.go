package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/api/dto"
	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/session"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

// AuthHandler serves the login, registration and logout flows of a browser.
type AuthHandler struct {
	logger *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{logger: logger.Named("auth_handler")}
}

// LoginForm handles GET /login.
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return h.form(c, "login", []string{"email", "password"})
}

// RegisterForm handles GET /register.
func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return h.form(c, "register", []string{"name", "email", "password", "confirmPassword"})
}

func (h *AuthHandler) form(c *fiber.Ctx, name string, fields []string) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.FormResponse{
		Form:          name,
		Fields:        fields,
		From:          c.Query("from"),
		Session:       dto.NewSessionView(b.State.Snapshot()),
		Notifications: drain(b),
	})
}

// Login handles POST /login. Success redirects to the preserved location or
// the dashboard. A malformed form answers 400 and refused credentials 401,
// both with the queued notification.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	from := req.From
	if from == "" {
		from = c.Query("from")
	}

	ok, nav := b.State.Login(c.UserContext(), req.Credentials(), from)
	if !ok {
		status := http.StatusUnauthorized
		errs := session.FieldErrors(session.ValidateCredentials(req.Credentials()))
		if len(errs) > 0 {
			status = http.StatusBadRequest
		}
		return c.Status(status).JSON(dto.FailureResponse{
			Errors:        errs,
			Notifications: drain(b),
		})
	}
	return navigate(c, nav)
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	var req domain.Registration
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ok, nav := b.State.Register(c.UserContext(), req)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(dto.FailureResponse{
			Errors:        session.FieldErrors(session.ValidateRegistration(req)),
			Notifications: drain(b),
		})
	}
	return navigate(c, nav)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	return navigate(c, b.State.Logout(c.UserContext()))
}

// Session handles GET /session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"session":       dto.NewSessionView(b.State.Snapshot()),
		"notifications": drain(b),
	})
}

// navigate executes a transition's navigation command. Form posts are
// answered with 303 so the browser follows with a GET.
func navigate(c *fiber.Ctx, nav *domain.Navigation) error {
	if nav == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Redirect(nav.Path, http.StatusSeeOther)
}
