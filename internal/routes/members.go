package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja_bank/internal/funding"
	"github.com/umoja-bank/umoja_bank/internal/identity"
)

// RegisterMemberRoutes exposes the caller's profile and member float endpoints.
func RegisterMemberRoutes(r fiber.Router, h *funding.Handler, idRepo identity.Repository) {
	me := r.Group("/members/me")

	me.Get("", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		user, err := idRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user_id":       user.ID,
			"phone":         user.Phone,
			"tier":          user.Tier,
			"device_id":     user.DeviceID,
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
		})
	})

	me.Get("/float", h.Float)
	me.Post("/fund/card", h.CardIn)
	me.Post("/withdraw/card", h.CardOut)
}
