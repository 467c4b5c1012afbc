package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/umoja-bank/umoja_bank/internal/auth"
	"github.com/umoja-bank/umoja_bank/internal/bank"
	"github.com/umoja-bank/umoja_bank/internal/config"
	"github.com/umoja-bank/umoja_bank/internal/funding"
	"github.com/umoja-bank/umoja_bank/internal/identity"
	"github.com/umoja-bank/umoja_bank/internal/ledger"
	"github.com/umoja-bank/umoja_bank/internal/middleware"
	"github.com/umoja-bank/umoja_bank/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	var bankRepo bank.Repository
	if d.DB != nil {
		bankRepo = bank.NewPostgresRepository(d.DB)
	} else {
		bankRepo = bank.NewMemoryRepository()
	}
	notifier := notification.NewLoggerNotifier(d.Logger)
	bankSvc := bank.NewService(bankRepo, ledgerBackend, notifier)

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)

	fundingSvc, err := funding.NewService(context.Background(), ledgerBackend, nil)
	if err != nil {
		return err
	}

	bankHandler := bank.NewHandler(bankSvc)
	fundingHandler := funding.NewHandler(fundingSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, ledgerBackend, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter, jwtmw)

	// Protected routes
	protected := api.Group("", jwtmw)
	RegisterMemberRoutes(protected, fundingHandler, identityRepo)
	RegisterAccountRoutes(protected, bankHandler)

	return nil
}
