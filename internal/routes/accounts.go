package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja_bank/internal/bank"
)

// RegisterAccountRoutes wires joint-account and withdrawal-request endpoints.
func RegisterAccountRoutes(r fiber.Router, h *bank.Handler) {
	accounts := r.Group("/accounts")
	accounts.Post("", h.Create)
	accounts.Get("", h.List)
	accounts.Get("/:accountId", h.Get)
	accounts.Get("/:accountId/balance", h.Balance)
	accounts.Post("/:accountId/deposits", h.Deposit)
	accounts.Post("/:accountId/withdrawals", h.RequestWithdrawal)
	accounts.Get("/:accountId/withdrawals/:requestId/approvals", h.Approvals)
	accounts.Post("/:accountId/withdrawals/:requestId/approvals", h.Approve)
	accounts.Post("/:accountId/withdrawals/:requestId/execute", h.Execute)
	accounts.Post("/:accountId/withdrawals/:requestId/cancel", h.Cancel)
}
