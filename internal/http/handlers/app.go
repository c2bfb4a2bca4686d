package handlers

import (
	"log"
	"time"

	"bookstore/internal/config"
	applog "bookstore/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const BodyLimit = 1 << 20 // 1 MiB

// NewApp wires middleware and routes. It does not listen.
func NewApp(deps *Deps, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "bookstore",
		BodyLimit:    BodyLimit,
		ErrorHandler: ErrorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(Trace())
	app.Use(logger.New(logger.Config{
		Output: log.Writer(),
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(helmet.New())
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.global.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(envelope{Message: "Too many requests, please try again later"})
			},
		}))
	}

	// ---------- Routes ----------
	app.Get("/health-check", func(c *fiber.Ctx) error {
		return render(c, fiber.StatusOK, "Hello World!", fiber.Map{"date": time.Now().UTC().Format(time.RFC3339)})
	})

	auth := app.Group("/auth")
	auth.Post("/register", deps.AuthHandler.Register)
	loginChain := []fiber.Handler{}
	if cfg.LoginRateLimitMax > 0 {
		loginChain = append(loginChain, limiter.New(limiter.Config{
			Max:        cfg.LoginRateLimitMax,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP() + "|login"
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.login.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(envelope{Message: "Too many login attempts, please try again later"})
			},
		}))
	}
	auth.Post("/login", append(loginChain, deps.AuthHandler.Login)...)
	auth.Get("/me", RequireUser(deps.AuthSvc), deps.AuthHandler.Me)

	books := app.Group("/books")
	books.Post("/", deps.BookHandler.Create)
	books.Get("/", deps.BookHandler.List)
	books.Get("/:id", deps.BookHandler.Get)
	books.Patch("/:id", deps.BookHandler.Update)
	books.Delete("/:id", deps.BookHandler.Delete)

	genres := app.Group("/genre")
	genres.Post("/", deps.GenreHandler.Create)
	genres.Get("/", deps.GenreHandler.List)
	genres.Get("/:id", deps.GenreHandler.Get)
	genres.Patch("/:id", deps.GenreHandler.Update)
	genres.Delete("/:id", deps.GenreHandler.Delete)

	tx := app.Group("/transactions", RequireUser(deps.AuthSvc))
	tx.Post("/", deps.TransactionHandler.Create)
	tx.Get("/", deps.TransactionHandler.List)
	tx.Get("/statistics", deps.TransactionHandler.Statistics)
	tx.Get("/:id", deps.TransactionHandler.Get)

	// 404
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(envelope{Message: "Route not found"})
	})
	return app
}
