package asset

import (
	"context"
	"testing"
)

func TestTransferFromConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	l := New("pool")
	l.Mint("farmer", 100)
	l.Approve("farmer", 60)

	if err := l.TransferFrom(ctx, "farmer", 40); err != nil {
		t.Fatalf("transfer from: %v", err)
	}

	got, _ := l.BalanceOf(ctx, "pool")
	if got != 40 {
		t.Errorf("pool balance = %d, want 40", got)
	}
	got, _ = l.BalanceOf(ctx, "farmer")
	if got != 60 {
		t.Errorf("farmer balance = %d, want 60", got)
	}

	// Remaining allowance is 20, so pulling 30 must fail.
	if err := l.TransferFrom(ctx, "farmer", 30); err == nil {
		t.Fatal("expected allowance error, got nil")
	}
}

func TestTransferFromRequiresBalance(t *testing.T) {
	ctx := context.Background()
	l := New("pool")
	l.Mint("farmer", 10)
	l.Approve("farmer", 100)

	if err := l.TransferFrom(ctx, "farmer", 50); err == nil {
		t.Fatal("expected balance error, got nil")
	}
}

func TestTransferFromPool(t *testing.T) {
	ctx := context.Background()
	l := New("pool")
	l.Mint("pool", 100)

	if err := l.Transfer(ctx, "farmer", 30); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, _ := l.BalanceOf(ctx, "farmer")
	if got != 30 {
		t.Errorf("farmer balance = %d, want 30", got)
	}

	if err := l.Transfer(ctx, "farmer", 1000); err == nil {
		t.Fatal("expected pool balance error, got nil")
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	l := New("pool")
	l.Mint("pool", 100)

	if err := l.Transfer(ctx, "farmer", 0); err == nil {
		t.Error("transfer of 0 should fail")
	}
	if err := l.TransferFrom(ctx, "farmer", -5); err == nil {
		t.Error("transfer from of -5 should fail")
	}
}
