package mockapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-web/internal/domain"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

const (
	userKey  = "auth_user"
	tokenKey = "auth_token"
)

// BearerAuth validates bearer tokens and loads the caller.
func BearerAuth(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperrors.NewUnauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return apperrors.NewUnauthorized("invalid authorization header")
		}

		user, err := svc.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			return err
		}

		c.Locals(userKey, user)
		c.Locals(tokenKey, parts[1])
		return c.Next()
	}
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(userKey).(*domain.User)
	return user, ok && user != nil
}

func tokenFromContext(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}
