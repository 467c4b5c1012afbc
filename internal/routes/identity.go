package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja_bank/internal/identity"
	"github.com/umoja-bank/umoja_bank/internal/ledger"
)

// RegisterIdentityRoutes wires identity endpoints and provisions the member
// float ledger account on registration.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, ledgerBackend ledger.Ledger, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Phone    string `json:"phone"`
			PIN      string `json:"pin"`
			DeviceID string `json:"device_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := ledgerBackend.EnsureAccount(c.UserContext(), ledger.MemberFloatCode(user.ID)); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("user_id", user.ID),
				slog.String("phone", user.Phone),
				slog.Int("status", http.StatusCreated),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id":   user.ID,
			"phone":     user.Phone,
			"tier":      user.Tier,
			"device_id": user.DeviceID,
		})
	})

	// Plain authenticate (no tokens) remains for service-to-service checks
	r.Post("/identity/authenticate", func(c *fiber.Ctx) error {
		var req struct {
			Phone    string `json:"phone"`
			PIN      string `json:"pin"`
			DeviceID string `json:"device_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Authenticate(c.UserContext(), identity.Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user_id":   user.ID,
			"phone":     user.Phone,
			"tier":      user.Tier,
			"device_id": user.DeviceID,
		})
	})
}
