package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja_bank/internal/config"
	"github.com/umoja-bank/umoja_bank/internal/identity"
)

// newLogoutApp builds a logout endpoint with a registered user. When
// authenticated is true the test middleware installs the user's id the way
// the JWT middleware would.
func newLogoutApp(t *testing.T, authenticated bool) (*fiber.App, identity.Repository, identity.User) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo)
	user, err := ids.Register(context.Background(), identity.Credentials{Phone: "+237650000001", PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	cfg := config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	h := NewHandler(ids, NewService(cfg, repo))

	app := fiber.New()
	app.Post("/auth/logout", func(c *fiber.Ctx) error {
		if authenticated {
			c.Locals("user_id", user.ID)
		}
		return c.Next()
	}, h.Logout)

	return app, repo, user
}

func TestLogoutBumpsCallerTokenVersion(t *testing.T) {
	app, repo, user := newLogoutApp(t, true)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/auth/logout", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	fetched, err := repo.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("expected token version %d, got %d", user.TokenVersion+1, fetched.TokenVersion)
	}
}

func TestLogoutWithoutIdentityIsRejected(t *testing.T) {
	app, repo, user := newLogoutApp(t, false)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/auth/logout", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}

	fetched, err := repo.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.TokenVersion != user.TokenVersion {
		t.Fatalf("token version changed without an authenticated caller: %d", fetched.TokenVersion)
	}
}
