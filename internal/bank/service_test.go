package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/umoja-bank/umoja_bank/internal/ledger"
)

const (
	alice = Identity("alice")
	bob   = Identity("bob")
	carol = Identity("carol")
	dave  = Identity("dave")
	eve   = Identity("eve")
)

func newTestService(t *testing.T) (*Service, ledger.Ledger) {
	t.Helper()
	led := ledger.NewInMemory()
	return NewService(NewMemoryRepository(), led, nil), led
}

func seedFloat(l ledger.Ledger, id Identity, amount int64) {
	ledger.SeedBalance(l, ledger.MemberFloatCode(string(id)), amount)
}

func TestCreateAccountSoleOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateAccount(ctx, alice, nil)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	ids, err := svc.Accounts(ctx, alice)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected [%d], got %v", id, ids)
	}
}

func TestCreateAccountRegistersEveryOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateAccount(ctx, alice, []Identity{bob, carol, dave})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	for _, owner := range []Identity{alice, bob, carol, dave} {
		ids, err := svc.Accounts(ctx, owner)
		if err != nil {
			t.Fatalf("accounts for %s: %v", owner, err)
		}
		if len(ids) != 1 || ids[0] != id {
			t.Fatalf("owner %s: expected [%d], got %v", owner, id, ids)
		}
	}
}

func TestCreateAccountPreservesCreationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	second, _ := svc.CreateAccount(ctx, alice, []Identity{carol})

	ids, err := svc.Accounts(ctx, alice)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(ids) != 2 || ids[0] != first || ids[1] != second {
		t.Fatalf("expected [%d %d], got %v", first, second, ids)
	}
}

// brokenLedger fails to provision accounts, standing in for an unreachable
// ledger backend.
type brokenLedger struct {
	ledger.Ledger
}

func (brokenLedger) EnsureAccount(context.Context, string) error {
	return errors.New("ledger unavailable")
}

func TestCreateAccountUnwindsOnLedgerFailure(t *testing.T) {
	svc := NewService(NewMemoryRepository(), brokenLedger{}, nil)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, alice, []Identity{bob}); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The registration must be rolled back for every owner.
	for _, owner := range []Identity{alice, bob} {
		ids, err := svc.Accounts(ctx, owner)
		if err != nil {
			t.Fatalf("accounts for %s: %v", owner, err)
		}
		if len(ids) != 0 {
			t.Fatalf("failed create left account registered for %s: %v", owner, ids)
		}
	}

	// A retry after the backend recovers gets a working account.
	working := NewService(NewMemoryRepository(), ledger.NewInMemory(), nil)
	if _, err := working.CreateAccount(ctx, alice, []Identity{bob}); err != nil {
		t.Fatalf("create after recovery: %v", err)
	}
}

func TestCreateAccountRejectsInvalidOwnerSets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string][]Identity{
		"creator repeated":   {alice},
		"duplicate co-owner": {bob, bob},
		"five owners":        {bob, carol, dave, eve},
		"empty identity":     {bob, ""},
	}

	for name, coOwners := range cases {
		if _, err := svc.CreateAccount(ctx, alice, coOwners); !errors.Is(err, ErrInvalidOwnerSet) {
			t.Fatalf("%s: expected ErrInvalidOwnerSet, got %v", name, err)
		}
	}

	// No account may be registered by a failed create.
	ids, _ := svc.Accounts(ctx, alice)
	if len(ids) != 0 {
		t.Fatalf("registry changed by failed create: %v", ids)
	}
}

func TestDepositMovesFundsFromCallerFloat(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 100)

	res, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.Balance != 100 {
		t.Fatalf("expected joint balance 100, got %d", res.Balance)
	}

	floatBal, err := led.Balance(ctx, ledger.MemberFloatCode(string(alice)))
	if err != nil {
		t.Fatalf("float balance: %v", err)
	}
	if floatBal != 0 {
		t.Fatalf("expected caller float 0 after deposit, got %d", floatBal)
	}
}

func TestDepositByNonOwner(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, nil)
	seedFloat(led, bob, 500)

	if _, err := svc.Deposit(ctx, DepositInput{Caller: bob, AccountID: id, Amount: 100}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	balance, err := svc.Balance(ctx, id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("rejected deposit must not change balance, got %d", balance)
	}
}

func TestDepositValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, nil)

	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: -5}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: 999, Amount: 10}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRequestWithdrawalExceedingBalance(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 100)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := svc.RequestWithdrawal(ctx, alice, id, 101); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, alice, id, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, carol, id, 10); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestRequestIDsFormPerAccountSequence(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 1_000)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 1_000}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	for want := int64(0); want < 3; want++ {
		req, err := svc.RequestWithdrawal(ctx, alice, id, 100)
		if err != nil {
			t.Fatalf("request %d: %v", want, err)
		}
		if req.ID != want {
			t.Fatalf("expected request id %d, got %d", want, req.ID)
		}
	}
}

func TestTwoOwnerApprovalFlow(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 100)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	req, err := svc.RequestWithdrawal(ctx, alice, id, 100)
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if req.ID != 0 {
		t.Fatalf("expected request id 0, got %d", req.ID)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.Threshold != 1 {
		t.Fatalf("expected threshold 1, got %d", req.Threshold)
	}

	updated, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Fatalf("expected approved after threshold, got %s", updated.Status)
	}

	count, err := svc.Approvals(ctx, id, req.ID)
	if err != nil {
		t.Fatalf("approvals: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 approval, got %d", count)
	}

	// Execution pays out to the requester and terminates the request.
	res, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: alice, AccountID: id, RequestID: req.ID})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Balance != 0 {
		t.Fatalf("expected joint balance 0 after payout, got %d", res.Balance)
	}

	floatBal, _ := led.Balance(ctx, ledger.MemberFloatCode(string(alice)))
	if floatBal != 100 {
		t.Fatalf("expected requester float 100 after payout, got %d", floatBal)
	}

	stored, err := svc.Request(ctx, id, req.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if stored.Status != StatusExecuted {
		t.Fatalf("expected executed, got %s", stored.Status)
	}

	if _, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: alice, AccountID: id, RequestID: req.ID}); !errors.Is(err, ErrRequestNotApproved) {
		t.Fatalf("second execute: expected ErrRequestNotApproved, got %v", err)
	}
}

func TestApprovalRejections(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob, carol})
	seedFloat(led, alice, 300)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 300}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	req, err := svc.RequestWithdrawal(ctx, alice, id, 200)
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}

	if _, err := svc.ApproveWithdrawal(ctx, alice, id, req.ID); !errors.Is(err, ErrSelfApproval) {
		t.Fatalf("expected ErrSelfApproval, got %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, dave, id, req.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	if _, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID); !errors.Is(err, ErrDuplicateApproval) {
		t.Fatalf("expected ErrDuplicateApproval, got %v", err)
	}

	if _, err := svc.ApproveWithdrawal(ctx, bob, id, 42); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestThreeOwnerThreshold(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob, carol})
	seedFloat(led, alice, 100)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	req, _ := svc.RequestWithdrawal(ctx, alice, id, 50)
	if req.Threshold != 2 {
		t.Fatalf("expected threshold 2, got %d", req.Threshold)
	}

	afterFirst, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID)
	if err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if afterFirst.Status != StatusPending {
		t.Fatalf("one of two approvals must leave request pending, got %s", afterFirst.Status)
	}

	afterSecond, err := svc.ApproveWithdrawal(ctx, carol, id, req.ID)
	if err != nil {
		t.Fatalf("second approval: %v", err)
	}
	if afterSecond.Status != StatusApproved {
		t.Fatalf("expected approved after second approval, got %s", afterSecond.Status)
	}
}

func TestSoleOwnerRequestIsImmediatelyApproved(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, nil)
	seedFloat(led, alice, 80)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 80}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	req, err := svc.RequestWithdrawal(ctx, alice, id, 80)
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("sole-owner request must be approved on creation, got %s", req.Status)
	}

	if _, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: alice, AccountID: id, RequestID: req.ID}); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestExecuteRevalidatesBalance(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 100)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Two requests against the same balance; only the first can be paid out.
	first, _ := svc.RequestWithdrawal(ctx, alice, id, 100)
	second, _ := svc.RequestWithdrawal(ctx, alice, id, 100)
	if _, err := svc.ApproveWithdrawal(ctx, bob, id, first.ID); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, bob, id, second.ID); err != nil {
		t.Fatalf("approve second: %v", err)
	}

	if _, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: alice, AccountID: id, RequestID: first.ID}); err != nil {
		t.Fatalf("execute first: %v", err)
	}
	if _, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: alice, AccountID: id, RequestID: second.ID}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on drained account, got %v", err)
	}

	// The failed execution must not consume the request.
	stored, _ := svc.Request(ctx, id, second.ID)
	if stored.Status != StatusApproved {
		t.Fatalf("failed execute must leave request approved, got %s", stored.Status)
	}
}

func TestExecuteByNonRequester(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 50)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 50}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	req, _ := svc.RequestWithdrawal(ctx, alice, id, 50)
	if _, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: bob, AccountID: id, RequestID: req.ID}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestExecutePendingRequest(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 50)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 50}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	req, _ := svc.RequestWithdrawal(ctx, alice, id, 50)

	if _, err := svc.ExecuteWithdrawal(ctx, ExecuteInput{Caller: alice, AccountID: id, RequestID: req.ID}); !errors.Is(err, ErrRequestNotApproved) {
		t.Fatalf("expected ErrRequestNotApproved, got %v", err)
	}
}

func TestCancelWithdrawal(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 100)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	req, _ := svc.RequestWithdrawal(ctx, alice, id, 100)

	if err := svc.CancelWithdrawal(ctx, carol, id, req.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for outsider, got %v", err)
	}

	// Any co-owner may cancel, not only the requester.
	if err := svc.CancelWithdrawal(ctx, bob, id, req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stored, _ := svc.Request(ctx, id, req.ID)
	if stored.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}
	if balance, _ := svc.Balance(ctx, id); balance != 100 {
		t.Fatalf("cancel must not touch the balance, got %d", balance)
	}

	if err := svc.CancelWithdrawal(ctx, alice, id, req.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending on cancelled request, got %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending on approval of cancelled request, got %v", err)
	}
}

func TestReadsAreIdempotent(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, []Identity{bob})
	seedFloat(led, alice, 100)
	if _, err := svc.Deposit(ctx, DepositInput{Caller: alice, AccountID: id, Amount: 100}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	req, _ := svc.RequestWithdrawal(ctx, alice, id, 40)
	if _, err := svc.ApproveWithdrawal(ctx, bob, id, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	firstIDs, _ := svc.Accounts(ctx, alice)
	firstCount, _ := svc.Approvals(ctx, id, req.ID)
	for i := 0; i < 3; i++ {
		ids, _ := svc.Accounts(ctx, alice)
		if len(ids) != len(firstIDs) || ids[0] != firstIDs[0] {
			t.Fatalf("accounts changed without mutation: %v vs %v", ids, firstIDs)
		}
		count, _ := svc.Approvals(ctx, id, req.ID)
		if count != firstCount {
			t.Fatalf("approvals changed without mutation: %d vs %d", count, firstCount)
		}
	}
}

func TestApprovalsUnknownRequest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, _ := svc.CreateAccount(ctx, alice, nil)

	if _, err := svc.Approvals(ctx, id, 0); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if _, err := svc.Approvals(ctx, 999, 0); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
