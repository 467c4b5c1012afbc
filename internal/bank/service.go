package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/umoja-bank/umoja_bank/internal/ledger"
	"github.com/umoja-bank/umoja_bank/internal/notification"
)

const (
	kindJointDeposit = "joint_deposit"
	kindJointPayout  = "joint_payout"
)

// Service orchestrates the joint-account registry, withdrawal requests and
// the external ledger. Every mutation of one account runs under that
// account's lock, so no call ever observes a partially applied peer; all
// precondition checks happen before the first write, and the ledger posting
// (which is atomic on its own) happens before any request state transition is
// recorded.
type Service struct {
	repo     Repository
	ledger   ledger.Ledger
	notifier notification.Notifier

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService builds the joint-account service.
func NewService(repo Repository, ledgerBackend ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledgerBackend,
		notifier: notifier,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Service) accountLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// CreateAccount registers a joint account owned by the creator plus coOwners.
// The combined owner set must hold 1 to MaxOwners distinct identities.
func (s *Service) CreateAccount(ctx context.Context, creator Identity, coOwners []Identity) (int64, error) {
	owners, err := buildOwnerSet(creator, coOwners)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateAccount(ctx, Account{Owners: owners, CreatedAt: time.Now().UTC()})
	if err != nil {
		return 0, err
	}

	// Unwind the registration if the ledger account cannot be provisioned,
	// so a failed create leaves no account behind and a retry starts clean.
	if err := s.ledger.EnsureAccount(ctx, ledger.JointAccountCode(id)); err != nil {
		if delErr := s.repo.DeleteAccount(ctx, id); delErr != nil {
			return 0, fmt.Errorf("%w: %v (unwind failed: %v)", ErrTransferFailed, err, delErr)
		}
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return id, nil
}

func buildOwnerSet(creator Identity, coOwners []Identity) ([]Identity, error) {
	if creator == "" {
		return nil, ErrInvalidOwnerSet
	}
	if 1+len(coOwners) > MaxOwners {
		return nil, ErrInvalidOwnerSet
	}

	owners := make([]Identity, 0, 1+len(coOwners))
	owners = append(owners, creator)
	seen := map[Identity]struct{}{creator: {}}
	for _, owner := range coOwners {
		if owner == "" {
			return nil, ErrInvalidOwnerSet
		}
		if _, dup := seen[owner]; dup {
			return nil, ErrInvalidOwnerSet
		}
		seen[owner] = struct{}{}
		owners = append(owners, owner)
	}
	return owners, nil
}

// Accounts lists every account id the identity owns, in creation order.
func (s *Service) Accounts(ctx context.Context, owner Identity) ([]int64, error) {
	return s.repo.AccountsForOwner(ctx, owner)
}

// Account returns the account metadata.
func (s *Service) Account(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// Balance returns the joint balance held in the ledger.
func (s *Service) Balance(ctx context.Context, accountID int64) (int64, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}
	return s.ledger.Balance(ctx, ledger.JointAccountCode(accountID))
}

// DepositInput captures the data needed to fund a joint account from the
// caller's member float.
type DepositInput struct {
	Caller     Identity
	AccountID  int64
	Amount     int64
	ClientTxID string
}

// DepositResult describes the ledger outcome of a deposit.
type DepositResult struct {
	TransactionID string
	Balance       int64
	CompletedAt   time.Time
}

// Deposit moves funds from the caller's float into the joint account. Only
// owners may deposit.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (DepositResult, error) {
	if input.Amount <= 0 {
		return DepositResult{}, ErrInvalidAmount
	}

	account, err := s.repo.GetAccount(ctx, input.AccountID)
	if err != nil {
		return DepositResult{}, err
	}
	if !account.IsOwner(input.Caller) {
		return DepositResult{}, ErrNotOwner
	}

	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	lock := s.accountLock(input.AccountID)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.ledger.Transfer(ctx, ledger.MemberFloatCode(string(input.Caller)),
		ledger.JointAccountCode(input.AccountID), kindJointDeposit, input.ClientTxID, input.Amount)
	if err != nil {
		return DepositResult{}, mapLedgerError(err)
	}

	s.notifyOwners(ctx, account, input.Caller, notification.KindDepositReceived,
		fmt.Sprintf("Account %d received a deposit of %d from a co-owner", input.AccountID, input.Amount))

	return DepositResult{TransactionID: res.TransactionID, Balance: res.ToBalance, CompletedAt: time.Now().UTC()}, nil
}

// RequestWithdrawal files a pending withdrawal against the joint account.
// Filing does not reserve the balance; sufficiency is re-checked at
// execution time. The approval threshold (owners minus the requester) is
// captured on the request; a sole-owner request needs no approvals and is
// created directly in the Approved state.
func (s *Service) RequestWithdrawal(ctx context.Context, caller Identity, accountID, amount int64) (WithdrawalRequest, error) {
	if amount <= 0 {
		return WithdrawalRequest{}, ErrInvalidAmount
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return WithdrawalRequest{}, err
	}
	if !account.IsOwner(caller) {
		return WithdrawalRequest{}, ErrNotOwner
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.ledger.Balance(ctx, ledger.JointAccountCode(accountID))
	if err != nil {
		return WithdrawalRequest{}, mapLedgerError(err)
	}
	if amount > balance {
		return WithdrawalRequest{}, ErrInsufficientBalance
	}

	request := WithdrawalRequest{
		AccountID: accountID,
		Requester: caller,
		Amount:    amount,
		Threshold: account.Threshold(),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if request.Threshold == 0 {
		request.Status = StatusApproved
	}

	request.ID, err = s.repo.CreateRequest(ctx, request)
	if err != nil {
		return WithdrawalRequest{}, err
	}

	s.notifyOwners(ctx, account, caller, notification.KindWithdrawalRequested,
		fmt.Sprintf("Withdrawal request %d for %d filed on account %d", request.ID, amount, accountID))

	return request, nil
}

// ApproveWithdrawal records the caller's approval. Reaching the threshold
// moves the request from Pending to Approved.
func (s *Service) ApproveWithdrawal(ctx context.Context, caller Identity, accountID, requestID int64) (WithdrawalRequest, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return WithdrawalRequest{}, err
	}
	if !account.IsOwner(caller) {
		return WithdrawalRequest{}, ErrNotOwner
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	request, err := s.repo.GetRequest(ctx, accountID, requestID)
	if err != nil {
		return WithdrawalRequest{}, err
	}
	if caller == request.Requester {
		return WithdrawalRequest{}, ErrSelfApproval
	}
	if request.ApprovedBy(caller) {
		return WithdrawalRequest{}, ErrDuplicateApproval
	}
	if request.Status != StatusPending {
		return WithdrawalRequest{}, ErrRequestNotPending
	}

	if err := s.repo.AddApproval(ctx, accountID, requestID, caller); err != nil {
		return WithdrawalRequest{}, err
	}
	request.Approvals = append(request.Approvals, caller)

	if len(request.Approvals) >= request.Threshold {
		if err := s.repo.SetRequestStatus(ctx, accountID, requestID, StatusApproved); err != nil {
			return WithdrawalRequest{}, err
		}
		request.Status = StatusApproved

		s.notify(ctx, request.Requester, notification.KindWithdrawalApproved,
			fmt.Sprintf("Withdrawal request %d on account %d is fully approved", requestID, accountID))
	}

	return request, nil
}

// Approvals returns the number of distinct approvals recorded on a request.
func (s *Service) Approvals(ctx context.Context, accountID, requestID int64) (int, error) {
	request, err := s.repo.GetRequest(ctx, accountID, requestID)
	if err != nil {
		return 0, err
	}
	return len(request.Approvals), nil
}

// Request returns the withdrawal request as stored.
func (s *Service) Request(ctx context.Context, accountID, requestID int64) (WithdrawalRequest, error) {
	return s.repo.GetRequest(ctx, accountID, requestID)
}

// ExecuteInput captures the data needed to pay out an approved withdrawal.
type ExecuteInput struct {
	Caller     Identity
	AccountID  int64
	RequestID  int64
	ClientTxID string
}

// ExecuteResult describes the ledger outcome of an executed withdrawal.
type ExecuteResult struct {
	TransactionID string
	Balance       int64
	CompletedAt   time.Time
}

// ExecuteWithdrawal pays an approved request out to the requester's float.
// Only the requester may execute. Balance sufficiency is re-validated by the
// ledger since deposits or other withdrawals may have moved it since filing.
func (s *Service) ExecuteWithdrawal(ctx context.Context, input ExecuteInput) (ExecuteResult, error) {
	if _, err := s.repo.GetAccount(ctx, input.AccountID); err != nil {
		return ExecuteResult{}, err
	}

	lock := s.accountLock(input.AccountID)
	lock.Lock()
	defer lock.Unlock()

	request, err := s.repo.GetRequest(ctx, input.AccountID, input.RequestID)
	if err != nil {
		return ExecuteResult{}, err
	}
	if request.Status != StatusApproved {
		return ExecuteResult{}, ErrRequestNotApproved
	}
	if input.Caller != request.Requester {
		return ExecuteResult{}, ErrNotAuthorized
	}

	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	res, err := s.ledger.Transfer(ctx, ledger.JointAccountCode(input.AccountID),
		ledger.MemberFloatCode(string(request.Requester)), kindJointPayout, input.ClientTxID, request.Amount)
	if err != nil {
		return ExecuteResult{}, mapLedgerError(err)
	}

	if err := s.repo.SetRequestStatus(ctx, input.AccountID, input.RequestID, StatusExecuted); err != nil {
		return ExecuteResult{}, err
	}

	s.notify(ctx, request.Requester, notification.KindWithdrawalExecuted,
		fmt.Sprintf("Withdrawal request %d on account %d paid out %d", input.RequestID, input.AccountID, request.Amount))

	return ExecuteResult{TransactionID: res.TransactionID, Balance: res.FromBalance, CompletedAt: time.Now().UTC()}, nil
}

// CancelWithdrawal retires a Pending or Approved request with no balance
// effect. The requester or any owner may cancel.
func (s *Service) CancelWithdrawal(ctx context.Context, caller Identity, accountID, requestID int64) error {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	request, err := s.repo.GetRequest(ctx, accountID, requestID)
	if err != nil {
		return err
	}
	if request.Status.Terminal() {
		return ErrRequestNotPending
	}
	if !account.IsOwner(caller) && caller != request.Requester {
		return ErrNotAuthorized
	}

	return s.repo.SetRequestStatus(ctx, accountID, requestID, StatusCancelled)
}

// mapLedgerError translates transfer-primitive failures into the service's
// error taxonomy.
func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientBalance
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
}

func (s *Service) notifyOwners(ctx context.Context, account Account, actor Identity, kind, body string) {
	if s.notifier == nil {
		return
	}
	for _, owner := range account.Owners {
		if owner == actor {
			continue
		}
		s.notify(ctx, owner, kind, body)
	}
}

func (s *Service) notify(ctx context.Context, to Identity, kind, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: string(to), Body: body})
}
