package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/umoja-bank/umoja_bank/internal/ledger"
)

// Service coordinates card funding of member float accounts using the ledger
// and acquirer connector. The float is the external balance joint-account
// deposits draw from and withdrawals pay out to.
type Service struct {
	ledger   ledger.Ledger
	acquirer Acquirer
}

// NewService prepares a funding service ensuring the card suspense account exists.
func NewService(ctx context.Context, ledgerBackend ledger.Ledger, acquirer Acquirer) (*Service, error) {
	if acquirer == nil {
		acquirer = StaticAcquirer{}
	}
	if err := ledgerBackend.EnsureAccount(ctx, ledger.CardSuspenseAccountCode); err != nil {
		return nil, err
	}
	return &Service{ledger: ledgerBackend, acquirer: acquirer}, nil
}

// CardInInput captures the required data for a card top-up of a member float.
type CardInInput struct {
	UserID     string
	Amount     int64
	ClientTxID string
	CardNumber string
	Expiry     string
	CVV        string
}

// CardOutInput captures the required data for a card payout from a member float.
type CardOutInput struct {
	UserID     string
	Amount     int64
	ClientTxID string
	CardNumber string
}

// Result represents the domain outcome of a card operation.
type Result struct {
	TransactionID     string
	Status            string
	FloatBalance      int64
	AcquirerReference string
	CompletedAt       time.Time
}

// CardIn authorizes and records a card top-up into the member's float.
func (s *Service) CardIn(ctx context.Context, input CardInInput) (Result, error) {
	if err := validateCardNumber(input.CardNumber); err != nil {
		return Result{}, err
	}
	if input.Amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	floatCode := ledger.MemberFloatCode(input.UserID)
	if err := s.ledger.EnsureAccount(ctx, floatCode); err != nil {
		return Result{}, err
	}

	decision, err := s.acquirer.AuthorizeCardIn(ctx, CardInAuthorization{
		CardNumber: input.CardNumber,
		Expiry:     input.Expiry,
		CVV:        input.CVV,
		Amount:     input.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	ledgerResult, err := s.ledger.CardIn(ctx, floatCode, input.ClientTxID, input.Amount)
	return toResult(ledgerResult, decision, err)
}

// CardOut authorizes and records a payout from the member's float to the provided card.
func (s *Service) CardOut(ctx context.Context, input CardOutInput) (Result, error) {
	if err := validateCardNumber(input.CardNumber); err != nil {
		return Result{}, err
	}
	if input.Amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	decision, err := s.acquirer.AuthorizeCardOut(ctx, CardOutAuthorization{
		CardNumber: input.CardNumber,
		Amount:     input.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	ledgerResult, err := s.ledger.CardOut(ctx, ledger.MemberFloatCode(input.UserID), input.ClientTxID, input.Amount)
	return toResult(ledgerResult, decision, err)
}

// FloatBalance returns the member's current float balance.
func (s *Service) FloatBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := s.ledger.Balance(ctx, ledger.MemberFloatCode(userID))
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownAccount) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

func toResult(ledgerResult ledger.FundingResult, decision AuthorizationDecision, err error) (Result, error) {
	res := Result{
		TransactionID:     ledgerResult.TransactionID,
		Status:            ledgerResult.Status,
		FloatBalance:      ledgerResult.FloatBalance,
		AcquirerReference: decision.Reference,
		CompletedAt:       time.Now().UTC(),
	}
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) || errors.Is(err, ledger.ErrInsufficientFunds) {
			return res, err
		}
		return Result{}, err
	}
	return res, nil
}

func validateCardNumber(card string) error {
	digits := strings.ReplaceAll(card, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("card number must be between 12 and 19 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("card number must be numeric")
		}
	}
	return nil
}
