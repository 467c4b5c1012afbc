package bank

import "errors"

// Every precondition violation fails the call before any write; callers can
// match these with errors.Is.
var (
	// ErrInvalidOwnerSet indicates the owner list is empty, exceeds MaxOwners,
	// or contains duplicates (the creator included).
	ErrInvalidOwnerSet = errors.New("invalid owner set")

	// ErrNotOwner indicates the caller does not belong to the account's owner set.
	ErrNotOwner = errors.New("caller is not an account owner")

	// ErrAccountNotFound indicates no joint account exists with the given id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRequestNotFound indicates no withdrawal request exists with the given id.
	ErrRequestNotFound = errors.New("withdrawal request not found")

	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance indicates the amount exceeds the relevant balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSelfApproval indicates a requester tried to approve their own request.
	ErrSelfApproval = errors.New("requester cannot approve own request")

	// ErrDuplicateApproval indicates the caller already approved this request.
	ErrDuplicateApproval = errors.New("approval already recorded")

	// ErrRequestNotPending indicates the request already left the Pending state.
	ErrRequestNotPending = errors.New("request is not pending")

	// ErrRequestNotApproved indicates execution of a request that is not Approved.
	ErrRequestNotApproved = errors.New("request is not approved")

	// ErrNotAuthorized indicates the caller may not act on this request.
	ErrNotAuthorized = errors.New("caller is not authorized")

	// ErrTransferFailed wraps an external ledger rejection; no account or
	// request state changed.
	ErrTransferFailed = errors.New("ledger transfer failed")
)
