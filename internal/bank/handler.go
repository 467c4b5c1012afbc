package bank

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja_bank/internal/ledger"
)

// Handler exposes joint-account HTTP endpoints. The caller identity is taken
// from the user_id local installed by the JWT middleware.
type Handler struct {
	service *Service
}

// NewHandler builds a joint-account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createAccountRequest struct {
	CoOwners []string `json:"co_owners"`
}

type amountRequest struct {
	Amount     int64  `json:"amount_cfa"`
	ClientTxID string `json:"client_tx_id"`
}

type requestResponse struct {
	AccountID int64  `json:"account_id"`
	RequestID int64  `json:"request_id"`
	Requester string `json:"requester"`
	Amount    int64  `json:"amount_cfa"`
	Approvals int    `json:"approvals"`
	Threshold int    `json:"threshold"`
	Status    string `json:"status"`
}

func toRequestResponse(r WithdrawalRequest) requestResponse {
	return requestResponse{
		AccountID: r.AccountID,
		RequestID: r.ID,
		Requester: string(r.Requester),
		Amount:    r.Amount,
		Approvals: len(r.Approvals),
		Threshold: r.Threshold,
		Status:    string(r.Status),
	}
}

// Create opens a joint account owned by the caller plus the listed co-owners.
func (h *Handler) Create(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	coOwners := make([]Identity, 0, len(req.CoOwners))
	for _, owner := range req.CoOwners {
		coOwners = append(coOwners, Identity(owner))
	}

	id, err := h.service.CreateAccount(c.UserContext(), caller, coOwners)
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"account_id": id})
}

// List returns the ids of every account the caller owns, in creation order.
func (h *Handler) List(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	ids, err := h.service.Accounts(c.UserContext(), caller)
	if err != nil {
		return mapServiceError(err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account_ids": ids})
}

// Get returns the account metadata, owner set included.
func (h *Handler) Get(c *fiber.Ctx) error {
	accountID, err := pathID(c, "accountId")
	if err != nil {
		return err
	}
	account, err := h.service.Account(c.UserContext(), accountID)
	if err != nil {
		return mapServiceError(err)
	}
	owners := make([]string, 0, len(account.Owners))
	for _, owner := range account.Owners {
		owners = append(owners, string(owner))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": account.ID,
		"owners":     owners,
		"created_at": account.CreatedAt,
	})
}

// Balance returns the joint balance for an account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	accountID, err := pathID(c, "accountId")
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), accountID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account_id": accountID, "balance_cfa": balance})
}

// Deposit funds the joint account from the caller's member float.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	accountID, err := pathID(c, "accountId")
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Deposit(c.UserContext(), DepositInput{
		Caller:     caller,
		AccountID:  accountID,
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance_cfa":    res.Balance,
		"completed_at":   res.CompletedAt,
	})
}

// RequestWithdrawal files a withdrawal request against the joint account.
func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	accountID, err := pathID(c, "accountId")
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	request, err := h.service.RequestWithdrawal(c.UserContext(), caller, accountID, req.Amount)
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusCreated).JSON(toRequestResponse(request))
}

// Approve records the caller's approval on a pending request.
func (h *Handler) Approve(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	accountID, requestID, err := requestPath(c)
	if err != nil {
		return err
	}

	request, err := h.service.ApproveWithdrawal(c.UserContext(), caller, accountID, requestID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(toRequestResponse(request))
}

// Approvals returns the current approval count and status of a request.
func (h *Handler) Approvals(c *fiber.Ctx) error {
	accountID, requestID, err := requestPath(c)
	if err != nil {
		return err
	}
	request, err := h.service.Request(c.UserContext(), accountID, requestID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": accountID,
		"request_id": requestID,
		"approvals":  len(request.Approvals),
		"threshold":  request.Threshold,
		"status":     string(request.Status),
	})
}

// Execute pays out an approved withdrawal to the requester's float.
func (h *Handler) Execute(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	accountID, requestID, err := requestPath(c)
	if err != nil {
		return err
	}
	var req amountRequest
	_ = c.BodyParser(&req) // body optional, only client_tx_id is read

	res, err := h.service.ExecuteWithdrawal(c.UserContext(), ExecuteInput{
		Caller:     caller,
		AccountID:  accountID,
		RequestID:  requestID,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance_cfa":    res.Balance,
		"completed_at":   res.CompletedAt,
	})
}

// Cancel retires a pending or approved withdrawal request.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	accountID, requestID, err := requestPath(c)
	if err != nil {
		return err
	}

	if err := h.service.CancelWithdrawal(c.UserContext(), caller, accountID, requestID); err != nil {
		return mapServiceError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": string(StatusCancelled)})
}

func callerIdentity(c *fiber.Ctx) (Identity, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "missing caller identity")
	}
	return Identity(uid), nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func requestPath(c *fiber.Ctx) (int64, int64, error) {
	accountID, err := pathID(c, "accountId")
	if err != nil {
		return 0, 0, err
	}
	requestID, err := pathID(c, "requestId")
	if err != nil {
		return 0, 0, err
	}
	return accountID, requestID, nil
}

// mapServiceError translates the service taxonomy into HTTP status codes.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrRequestNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrNotAuthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidOwnerSet), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSelfApproval), errors.Is(err, ErrDuplicateApproval),
		errors.Is(err, ErrRequestNotPending), errors.Is(err, ErrRequestNotApproved):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, "duplicate transaction")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
