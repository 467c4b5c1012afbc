package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrUnknownAccount indicates a posting referenced an account code that was
	// never provisioned with EnsureAccount.
	ErrUnknownAccount = errors.New("unknown ledger account")
)

const (
	// FundingStatusPendingSettlement indicates a card transaction awaiting settlement confirmation.
	FundingStatusPendingSettlement = "pending_settlement"
	// FundingStatusCompleted represents a settled transaction.
	FundingStatusCompleted = "completed"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// FundingResult captures the outcome of a card funding transaction against a
// member float account.
type FundingResult struct {
	TransactionID string
	FloatBalance  int64
	Status        string
}

// Ledger is the transfer primitive every balance mutation goes through.
// Postings are synchronous and atomic: a failed call leaves every account
// balance untouched.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	CardIn(ctx context.Context, floatCode, clientTxID string, amount int64) (FundingResult, error)
	CardOut(ctx context.Context, floatCode, clientTxID string, amount int64) (FundingResult, error)
}
