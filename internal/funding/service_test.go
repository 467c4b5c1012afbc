package funding

import (
	"context"
	"errors"
	"testing"

	"github.com/umoja-bank/umoja_bank/internal/ledger"
)

func newTestService(t *testing.T) (*Service, ledger.Ledger) {
	t.Helper()
	backend := ledger.NewInMemory()
	svc, err := NewService(context.Background(), backend, StaticAcquirer{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, backend
}

func TestCardInCreditsFloat(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	result, err := svc.CardIn(ctx, CardInInput{
		UserID:     "user-1",
		Amount:     5_000,
		ClientTxID: "tx-1",
		CardNumber: "4242424242424242",
		Expiry:     "12/27",
		CVV:        "123",
	})
	if err != nil {
		t.Fatalf("card in: %v", err)
	}
	if result.FloatBalance != 5_000 {
		t.Fatalf("expected float balance 5000 got %d", result.FloatBalance)
	}
	if result.AcquirerReference == "" {
		t.Fatal("expected acquirer reference to be set")
	}

	balance, err := backend.Balance(ctx, ledger.MemberFloatCode("user-1"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5_000 {
		t.Fatalf("expected ledger balance 5000 got %d", balance)
	}
}

func TestCardInDuplicateClientTxID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := CardInInput{
		UserID:     "user-1",
		Amount:     2_000,
		ClientTxID: "tx-dup",
		CardNumber: "4242424242424242",
		Expiry:     "12/27",
		CVV:        "123",
	}
	if _, err := svc.CardIn(ctx, input); err != nil {
		t.Fatalf("first card in: %v", err)
	}

	result, err := svc.CardIn(ctx, input)
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate transaction error got %v", err)
	}
	if result.FloatBalance != 2_000 {
		t.Fatalf("duplicate should not change balance, got %d", result.FloatBalance)
	}
}

func TestCardInRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CardIn(ctx, CardInInput{UserID: "user-1", Amount: 1_000, CardNumber: "12ab"}); err == nil {
		t.Fatal("expected error for malformed card number")
	}
	if _, err := svc.CardIn(ctx, CardInInput{UserID: "user-1", Amount: 0, CardNumber: "4242424242424242"}); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
}

func TestCardOutDebitsFloat(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	if err := backend.EnsureAccount(ctx, ledger.MemberFloatCode("user-2")); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	ledger.SeedBalance(backend, ledger.MemberFloatCode("user-2"), 10_000)

	result, err := svc.CardOut(ctx, CardOutInput{
		UserID:     "user-2",
		Amount:     4_000,
		ClientTxID: "payout-1",
		CardNumber: "4242424242424242",
	})
	if err != nil {
		t.Fatalf("card out: %v", err)
	}
	if result.FloatBalance != 6_000 {
		t.Fatalf("expected float balance 6000 got %d", result.FloatBalance)
	}
}

func TestCardOutInsufficientFloat(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	if err := backend.EnsureAccount(ctx, ledger.MemberFloatCode("user-3")); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	ledger.SeedBalance(backend, ledger.MemberFloatCode("user-3"), 500)

	_, err := svc.CardOut(ctx, CardOutInput{
		UserID:     "user-3",
		Amount:     1_000,
		ClientTxID: "payout-2",
		CardNumber: "4242424242424242",
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds error got %v", err)
	}
}

func TestFloatBalanceUnknownUserIsZero(t *testing.T) {
	svc, _ := newTestService(t)

	balance, err := svc.FloatBalance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("float balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance got %d", balance)
	}
}
