package bootstrap

import (
	"context"
	"strings"
	"time"

	"swipe_server/adapter/in/http"
	"swipe_server/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
)

// NewAPI builds the fiber app over already-initialized dependencies.
// The returned cleanup stops background middleware state.
func NewAPI(deps *Dependencies) (*fiber.App, func()) {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:    1 * 1024 * 1024, // 1MB
		ServerHeader: "",
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())         // 1. Panic recovery
	app.Use(middleware.RequestID())       // 2. Request ID
	app.Use(middleware.SecurityHeaders()) // 3. Security headers
	app.Use(middleware.RequestLogger())   // 4. Request logging

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(etag.New())

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID," + http.AccessTokenHeader,
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	health := http.NewHealthHandler()
	if deps.SQLDB != nil {
		health.WithCheck("postgres", deps.SQLDB)
	}
	if deps.Redis != nil {
		rdb := deps.Redis
		health.WithCheck("redis", http.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	health.Register(app)

	cleanup := func() {}
	cardHandler := http.NewCardHandler(deps.CardService)
	if cfg.ApplyRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.ApplyRateLimit, time.Minute)
		cardHandler.WithApplyLimiter(limiter.Handler())
		cleanup = limiter.Stop
	}

	api := app.Group("/api")
	cardHandler.Register(api)

	return app, cleanup
}
