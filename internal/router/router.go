package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prepai/prepai-go-api/internal/config"
	"github.com/prepai/prepai-go-api/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	InterviewHandler *handler.InterviewHandler
	AnswerHandler    *handler.AnswerHandler
	ReportHandler    *handler.ReportHandler
	JWTMiddleware    fiber.Handler
	SubmitLimiter    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtMiddleware))
	}

	if deps.InterviewHandler != nil {
		interviews := api.Group("/interviews", jwtMiddleware)
		deps.InterviewHandler.Register(interviews)
	}

	if deps.AnswerHandler != nil {
		answers := api.Group("/answers", jwtMiddleware)
		if deps.SubmitLimiter != nil {
			answers.Use(deps.SubmitLimiter)
		}
		deps.AnswerHandler.Register(answers)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware)
		deps.ReportHandler.Register(reports)
	}
}
