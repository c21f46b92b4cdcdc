package handlers

import (
	"github.com/kataras/iris/v12"
	"github.com/relayhq/relay-server/internal/config"
	"github.com/relayhq/relay-server/internal/middleware"
	"github.com/relayhq/relay-server/internal/repositories"
	"github.com/relayhq/relay-server/internal/services"
	"github.com/relayhq/relay-server/pkg/clock"
)

// RegisterRoutes mounts the API surface. Every mutating route runs behind the
// auth middleware (the engine only ever sees a resolved caller id) and the
// rate limiter.
func RegisterRoutes(
	app *iris.Application,
	cfg *config.Config,
	svc *services.RequestService,
	users *repositories.UserRepository,
	clk clock.Clock,
) {
	requestHandler := NewRequestHandler(svc, clk)
	profileHandler := NewProfileHandler(users)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerUser, cfg.RateLimitPerIP, cfg.GetRateLimitWindow())

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	api := app.Party("/api")
	api.Use(middleware.Auth(cfg.JWTSecret))
	api.Use(middleware.RateLimit(limiter))

	api.Post("/requests", requestHandler.Create)
	api.Get("/requests", requestHandler.List)
	api.Post("/requests/refine", requestHandler.RefineDraft)
	api.Get("/requests/{id:uuid}", requestHandler.Get)
	api.Post("/requests/{id:uuid}/responses", requestHandler.SubmitResponse)
	api.Post("/requests/{id:uuid}/outcomes", requestHandler.LogOutcome)

	api.Get("/profile", profileHandler.Get)
	api.Put("/profile", profileHandler.Upsert)
}
