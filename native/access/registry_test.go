package access

import (
	"bytes"
	"errors"
	"testing"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestRoleGrantRevoke(t *testing.T) {
	admin := newTestAddress(0x01)
	verifier := newTestAddress(0x02)
	stranger := newTestAddress(0x03)
	reg := NewRegistry(admin)

	if !reg.HasRole(RoleAdmin, admin[:]) {
		t.Fatalf("expected bootstrap admin role")
	}
	if err := reg.GrantRole(stranger, RoleVerifier, verifier); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.GrantRole(admin, "ROLE_UNKNOWN", verifier); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if err := reg.GrantRole(admin, RoleVerifier, verifier); err != nil {
		t.Fatalf("grant role: %v", err)
	}
	if !reg.HasRole(RoleVerifier, verifier[:]) {
		t.Fatalf("expected verifier role granted")
	}
	if err := reg.RevokeRole(admin, RoleVerifier, verifier); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	if reg.HasRole(RoleVerifier, verifier[:]) {
		t.Fatalf("expected verifier role revoked")
	}
	if reg.HasRole(RoleAdmin, verifier[:5]) {
		t.Fatalf("expected short address rejected")
	}
}

func TestVerifiedSellerToggle(t *testing.T) {
	admin := newTestAddress(0x01)
	verifier := newTestAddress(0x02)
	seller := newTestAddress(0x04)
	reg := NewRegistry(admin)
	if err := reg.GrantRole(admin, RoleVerifier, verifier); err != nil {
		t.Fatalf("grant role: %v", err)
	}

	if err := reg.SetVerifiedSeller(seller, seller, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.SetVerifiedSeller(verifier, seller, true); err != nil {
		t.Fatalf("verifier should be able to verify sellers: %v", err)
	}
	if !reg.IsVerifiedSeller(seller) {
		t.Fatalf("expected verified seller")
	}
	if err := reg.SetVerifiedSeller(admin, seller, false); err != nil {
		t.Fatalf("unset verified seller: %v", err)
	}
	if reg.IsVerifiedSeller(seller) {
		t.Fatalf("expected verification removed")
	}
}

func TestBlacklist(t *testing.T) {
	admin := newTestAddress(0x01)
	target := newTestAddress(0x05)
	reg := NewRegistry(admin)
	if err := reg.SetBlacklisted(target, target, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.SetBlacklisted(admin, target, true); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if !reg.IsBlacklisted(target) {
		t.Fatalf("expected blacklisted")
	}
	if err := reg.SetBlacklisted(admin, target, false); err != nil {
		t.Fatalf("unblacklist: %v", err)
	}
	if reg.IsBlacklisted(target) {
		t.Fatalf("expected removed from blacklist")
	}
}

func TestPauseSwitches(t *testing.T) {
	admin := newTestAddress(0x01)
	reg := NewRegistry(admin)
	if err := reg.SetPaused(admin, "market", true); err != nil {
		t.Fatalf("pause module: %v", err)
	}
	if !reg.IsPaused("market") {
		t.Fatalf("expected market paused")
	}
	if reg.IsPaused("custody") {
		t.Fatalf("expected custody unaffected")
	}
	if err := reg.SetPaused(admin, "", true); err != nil {
		t.Fatalf("global pause: %v", err)
	}
	if !reg.Paused() || !reg.IsPaused("custody") {
		t.Fatalf("expected global pause to cover every module")
	}
	if err := reg.SetPaused(admin, "", false); err != nil {
		t.Fatalf("global unpause: %v", err)
	}
	if !reg.IsPaused("market") {
		t.Fatalf("expected module pause to survive global unpause")
	}
	if err := reg.SetPaused(admin, "market", false); err != nil {
		t.Fatalf("unpause module: %v", err)
	}
	if reg.IsPaused("market") {
		t.Fatalf("expected market unpaused")
	}
}
