package bank

import (
	"errors"
	"math/big"
	"testing"

	"popmarket/native/access"
)

type stubRoles struct {
	admins map[[20]byte]bool
}

func (s *stubRoles) HasRole(role string, addr []byte) bool {
	if role != access.RoleAdmin {
		return false
	}
	var key [20]byte
	copy(key[:], addr)
	return s.admins[key]
}

func newTestLedger() (*Ledger, [20]byte) {
	admin := [20]byte{0x01}
	return NewLedger(&stubRoles{admins: map[[20]byte]bool{admin: true}}), admin
}

func TestMint(t *testing.T) {
	ledger, admin := newTestLedger()
	holder := [20]byte{0x02}
	if err := ledger.Mint(holder, holder, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.Mint(admin, holder, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Mint(admin, holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := ledger.BalanceOf(holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected balance 100, got %s", got)
	}
}

func TestTransfer(t *testing.T) {
	ledger, admin := newTestLedger()
	from := [20]byte{0x02}
	to := [20]byte{0x03}
	if err := ledger.Mint(admin, from, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(from, to, big.NewInt(150)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(from, to, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := ledger.BalanceOf(from); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected 60 remaining, got %s", got)
	}
	if got := ledger.BalanceOf(to); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected 40 received, got %s", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger, admin := newTestLedger()
	owner := [20]byte{0x02}
	spender := [20]byte{0x03}
	dest := [20]byte{0x04}
	if err := ledger.Mint(admin, owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, dest, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(30)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, dest, big.NewInt(20)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if got := ledger.Allowance(owner, spender); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected allowance 10 left, got %s", got)
	}
	if err := ledger.TransferFrom(spender, owner, dest, big.NewInt(20)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance exhausted, got %v", err)
	}
	// A failed balance check must not consume allowance.
	if err := ledger.Approve(owner, spender, big.NewInt(500)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, dest, big.NewInt(200)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := ledger.Allowance(owner, spender); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected allowance untouched on failed transfer, got %s", got)
	}
}
