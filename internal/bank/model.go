package bank

import "time"

// Identity is the opaque, already-authenticated caller identifier. It is the
// user id issued at registration and is only ever compared, never parsed.
type Identity string

// MaxOwners caps the owner set of a joint account.
const MaxOwners = 4

// RequestStatus tracks the lifecycle of a withdrawal request.
// Pending -> Approved -> Executed, with Cancelled reachable from
// Pending and Approved. Executed and Cancelled are terminal.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusExecuted  RequestStatus = "executed"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == StatusExecuted || s == StatusCancelled
}

// Account is a jointly owned balance. The owner set is fixed at creation and
// holds 1 to MaxOwners distinct identities; the balance itself lives in the
// ledger under the account's joint code.
type Account struct {
	ID        int64
	Owners    []Identity
	CreatedAt time.Time
}

// IsOwner reports whether id belongs to the account's owner set.
func (a Account) IsOwner(id Identity) bool {
	for _, owner := range a.Owners {
		if owner == id {
			return true
		}
	}
	return false
}

// Threshold is the number of distinct non-requester approvals a withdrawal
// from this account needs: every owner except the requester.
func (a Account) Threshold() int {
	return len(a.Owners) - 1
}

// WithdrawalRequest is a proposed debit against one joint account, pending
// approval by the other owners. Request ids form a per-account sequence
// starting at 0.
type WithdrawalRequest struct {
	ID        int64
	AccountID int64
	Requester Identity
	Amount    int64
	Approvals []Identity
	Threshold int
	Status    RequestStatus
	CreatedAt time.Time
}

// ApprovedBy reports whether the given owner already approved this request.
func (r WithdrawalRequest) ApprovedBy(id Identity) bool {
	for _, approver := range r.Approvals {
		if approver == id {
			return true
		}
	}
	return false
}
