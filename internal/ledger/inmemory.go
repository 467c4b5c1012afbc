package ledger

import (
	"context"
	"fmt"
	"sync"
)

type inMemoryLedger struct {
	mu        sync.RWMutex
	balances  map[string]int64
	transfers map[string]TransactionResult
	fundingTx map[string]FundingResult
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and development mode.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:  make(map[string]int64),
		transfers: make(map[string]TransactionResult),
		fundingTx: make(map[string]FundingResult),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrUnknownAccount
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	txID := kind + ":" + clientTxID
	if res, exists := l.transfers[txID]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrUnknownAccount
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, ErrUnknownAccount
	}

	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	l.balances[fromCode] = fromBalance - amount
	l.balances[toCode] = toBalance + amount

	res := TransactionResult{
		TransactionID: txID,
		FromBalance:   fromBalance - amount,
		ToBalance:     toBalance + amount,
	}
	l.transfers[txID] = res
	return res, nil
}

func (l *inMemoryLedger) CardIn(_ context.Context, floatCode, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, fmt.Errorf("amount must be positive")
	}
	return l.cardPosting("card_in", floatCode, clientTxID, amount)
}

func (l *inMemoryLedger) CardOut(_ context.Context, floatCode, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, fmt.Errorf("amount must be positive")
	}
	return l.cardPosting("card_out", floatCode, clientTxID, -amount)
}

// cardPosting applies a signed card movement against the float, balanced by
// the card suspense account. A negative delta is a payout and must be covered
// by the float balance.
func (l *inMemoryLedger) cardPosting(kind, floatCode, clientTxID string, delta int64) (FundingResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.fundingTx[key]; exists {
		return res, ErrDuplicateTransaction
	}

	floatBalance, ok := l.balances[floatCode]
	if !ok {
		return FundingResult{}, ErrUnknownAccount
	}
	if delta < 0 && floatBalance < -delta {
		return FundingResult{}, ErrInsufficientFunds
	}

	floatBalance += delta
	l.balances[floatCode] = floatBalance
	l.balances[CardSuspenseAccountCode] -= delta

	res := FundingResult{
		TransactionID: key,
		FloatBalance:  floatBalance,
		Status:        FundingStatusPendingSettlement,
	}
	l.fundingTx[key] = res
	return res, nil
}
