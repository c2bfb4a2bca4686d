package handlers

import (
	"strings"

	"bookstore/internal/apperr"
	applog "bookstore/internal/log"
	"bookstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequireUser accepts only requests carrying a valid bearer token. The caller's id
// goes into fiber locals for logging and the identity into the request context.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		scheme, token, found := strings.Cut(h, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			applog.Security(c, "auth.token.missing", nil)
			return renderErr(c, "auth.token.missing",
				apperr.Auth("auth.require", "Authorization header with Bearer token required", nil))
		}
		id, err := auth.Verify(token)
		if err != nil {
			applog.Security(c, "auth.token.reject", map[string]any{"reason": apperr.Message(err)})
			return renderErr(c, "auth.token.reject", err)
		}
		c.Locals(applog.LocalUserID, id.ID)
		c.SetUserContext(services.WithIdentity(c.UserContext(), id))
		return c.Next()
	}
}
