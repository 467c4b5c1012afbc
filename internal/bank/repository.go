package bank

import "context"

// Repository persists joint accounts and their withdrawal requests. It is the
// account registry: implementations must keep the owner index and the account
// set consistent (an account is visible under every owner or not at all), and
// must assign account ids monotonically and request ids as a per-account
// sequence starting at 0.
type Repository interface {
	// CreateAccount stores a new account and returns its assigned id.
	// The owner set is validated by the service before this is called.
	CreateAccount(ctx context.Context, account Account) (int64, error)

	// GetAccount returns the account or ErrAccountNotFound.
	GetAccount(ctx context.Context, id int64) (Account, error)

	// AccountsForOwner returns the ids of every account the identity owns,
	// in creation order. An unknown identity yields an empty slice.
	AccountsForOwner(ctx context.Context, owner Identity) ([]int64, error)

	// DeleteAccount removes an account together with its owner index
	// entries. The service uses it to unwind a registration whose ledger
	// provisioning failed, so the registry never exposes an account that
	// has no balance behind it.
	DeleteAccount(ctx context.Context, id int64) error

	// CreateRequest stores a new withdrawal request and returns its assigned
	// per-account id. Returns ErrAccountNotFound for an unknown account.
	CreateRequest(ctx context.Context, request WithdrawalRequest) (int64, error)

	// GetRequest returns the request or ErrRequestNotFound /
	// ErrAccountNotFound.
	GetRequest(ctx context.Context, accountID, requestID int64) (WithdrawalRequest, error)

	// AddApproval records an approval on a request. Duplicate and
	// self-approval screening happens in the service.
	AddApproval(ctx context.Context, accountID, requestID int64, owner Identity) error

	// SetRequestStatus moves a request to the given status.
	SetRequestStatus(ctx context.Context, accountID, requestID int64, status RequestStatus) error
}
