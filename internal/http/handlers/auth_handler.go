package handlers

import (
	"bookstore/internal/apperr"
	"bookstore/internal/log"
	"bookstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type credentials struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Username *string `json:"username"`
}

// parseBody decodes a JSON body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("request.body", "Request body must be valid JSON")
	}
	return nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in credentials
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "auth.register.fail", err)
	}
	p, err := h.Auth.Register(c.UserContext(), in.Email, in.Password, in.Username)
	if err != nil {
		if k := apperr.KindOf(err); k != apperr.KindServer {
			log.Security(c, "auth.register.fail", map[string]any{"email": in.Email, "reason": k.String()})
		}
		return renderErr(c, "auth.register.fail", err)
	}
	log.Audit(c, "auth.register.success", map[string]any{"user_id": p.ID})
	return render(c, fiber.StatusCreated, "User registered successfully", p)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in credentials
	if err := parseBody(c, &in); err != nil {
		return renderErr(c, "auth.login.fail", err)
	}
	res, err := h.Auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			log.Security(c, "auth.login.fail", map[string]any{"email": in.Email})
		}
		return renderErr(c, "auth.login.fail", err)
	}
	c.Locals(log.LocalUserID, res.User.ID)
	log.Audit(c, "auth.login.success", map[string]any{"email": res.User.Email})
	return render(c, fiber.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := h.Auth.Profile(c.UserContext())
	if err != nil {
		return renderErr(c, "auth.me.fail", err)
	}
	return render(c, fiber.StatusOK, "Profile retrieved successfully", p)
}
