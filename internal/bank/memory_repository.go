package bank

import (
	"context"
	"sync"
)

type storedAccount struct {
	account  Account
	requests []WithdrawalRequest
}

type memoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	accounts   map[int64]*storedAccount
	ownerIndex map[Identity][]int64
}

// NewMemoryRepository constructs an in-memory registry for tests and
// development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		accounts:   make(map[int64]*storedAccount),
		ownerIndex: make(map[Identity][]int64),
	}
}

func (r *memoryRepository) CreateAccount(_ context.Context, account Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	account.ID = r.nextID
	account.Owners = append([]Identity(nil), account.Owners...)

	r.accounts[account.ID] = &storedAccount{account: account}
	for _, owner := range account.Owners {
		r.ownerIndex[owner] = append(r.ownerIndex[owner], account.ID)
	}
	return account.ID, nil
}

func (r *memoryRepository) GetAccount(_ context.Context, id int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return copyAccount(stored.account), nil
}

func (r *memoryRepository) DeleteAccount(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(r.accounts, id)
	for _, owner := range stored.account.Owners {
		ids := r.ownerIndex[owner]
		for i, accountID := range ids {
			if accountID == id {
				r.ownerIndex[owner] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(r.ownerIndex[owner]) == 0 {
			delete(r.ownerIndex, owner)
		}
	}
	return nil
}

func (r *memoryRepository) AccountsForOwner(_ context.Context, owner Identity) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.ownerIndex[owner]
	return append([]int64(nil), ids...), nil
}

func (r *memoryRepository) CreateRequest(_ context.Context, request WithdrawalRequest) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[request.AccountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	request.ID = int64(len(stored.requests))
	request.Approvals = append([]Identity(nil), request.Approvals...)
	stored.requests = append(stored.requests, request)
	return request.ID, nil
}

func (r *memoryRepository) GetRequest(_ context.Context, accountID, requestID int64) (WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	request, _, err := r.findRequest(accountID, requestID)
	if err != nil {
		return WithdrawalRequest{}, err
	}
	return copyRequest(*request), nil
}

func (r *memoryRepository) AddApproval(_ context.Context, accountID, requestID int64, owner Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, _, err := r.findRequest(accountID, requestID)
	if err != nil {
		return err
	}
	request.Approvals = append(request.Approvals, owner)
	return nil
}

func (r *memoryRepository) SetRequestStatus(_ context.Context, accountID, requestID int64, status RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, _, err := r.findRequest(accountID, requestID)
	if err != nil {
		return err
	}
	request.Status = status
	return nil
}

// findRequest must be called with the repository lock held.
func (r *memoryRepository) findRequest(accountID, requestID int64) (*WithdrawalRequest, *storedAccount, error) {
	stored, ok := r.accounts[accountID]
	if !ok {
		return nil, nil, ErrAccountNotFound
	}
	if requestID < 0 || requestID >= int64(len(stored.requests)) {
		return nil, nil, ErrRequestNotFound
	}
	return &stored.requests[requestID], stored, nil
}

func copyAccount(a Account) Account {
	a.Owners = append([]Identity(nil), a.Owners...)
	return a
}

func copyRequest(r WithdrawalRequest) WithdrawalRequest {
	r.Approvals = append([]Identity(nil), r.Approvals...)
	return r
}
