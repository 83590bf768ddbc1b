package access

import (
	"errors"
	"sync"
)

// Role identifiers recognised by the marketplace modules.
const (
	RoleAdmin    = "ROLE_ADMIN"
	RoleVerifier = "ROLE_VERIFIER"
)

var (
	ErrUnauthorized = errors.New("access: unauthorized")
	ErrUnknownRole  = errors.New("access: unknown role")
)

var knownRoles = map[string]struct{}{
	RoleAdmin:    {},
	RoleVerifier: {},
}

// Registry is the capability-check oracle consumed by every marketplace
// module: role membership, the global blacklist, the verified-seller set and
// per-module pause switches. It is injected into consumers as an explicit
// handle; there is no global instance.
type Registry struct {
	mu              sync.Mutex
	roles           map[string]map[[20]byte]bool
	blacklist       map[[20]byte]bool
	verifiedSellers map[[20]byte]bool
	paused          map[string]bool
	globalPause     bool
}

// NewRegistry creates a registry with the supplied address holding ROLE_ADMIN.
func NewRegistry(admin [20]byte) *Registry {
	r := &Registry{
		roles:           make(map[string]map[[20]byte]bool),
		blacklist:       make(map[[20]byte]bool),
		verifiedSellers: make(map[[20]byte]bool),
		paused:          make(map[string]bool),
	}
	r.roles[RoleAdmin] = map[[20]byte]bool{admin: true}
	return r
}

func (r *Registry) isAdmin(addr [20]byte) bool {
	members, ok := r.roles[RoleAdmin]
	return ok && members[addr]
}

// GrantRole adds the address to the role's member set. Only admins may grant.
func (r *Registry) GrantRole(caller [20]byte, role string, addr [20]byte) error {
	if _, ok := knownRoles[role]; !ok {
		return ErrUnknownRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAdmin(caller) {
		return ErrUnauthorized
	}
	members, ok := r.roles[role]
	if !ok {
		members = make(map[[20]byte]bool)
		r.roles[role] = members
	}
	members[addr] = true
	return nil
}

// RevokeRole removes the address from the role's member set. Only admins may
// revoke.
func (r *Registry) RevokeRole(caller [20]byte, role string, addr [20]byte) error {
	if _, ok := knownRoles[role]; !ok {
		return ErrUnknownRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAdmin(caller) {
		return ErrUnauthorized
	}
	if members, ok := r.roles[role]; ok {
		delete(members, addr)
	}
	return nil
}

// SetVerifiedSeller toggles the verified flag for a seller. Admin or verifier
// gated.
func (r *Registry) SetVerifiedSeller(caller [20]byte, seller [20]byte, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAdmin(caller) && !r.hasRoleLocked(RoleVerifier, caller) {
		return ErrUnauthorized
	}
	if verified {
		r.verifiedSellers[seller] = true
	} else {
		delete(r.verifiedSellers, seller)
	}
	return nil
}

// SetBlacklisted toggles the global blacklist entry for an address. Admin
// gated.
func (r *Registry) SetBlacklisted(caller [20]byte, addr [20]byte, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAdmin(caller) {
		return ErrUnauthorized
	}
	if blocked {
		r.blacklist[addr] = true
	} else {
		delete(r.blacklist, addr)
	}
	return nil
}

// SetPaused toggles the pause switch for a named module. An empty module name
// toggles the global switch covering every module. Admin gated.
func (r *Registry) SetPaused(caller [20]byte, module string, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAdmin(caller) {
		return ErrUnauthorized
	}
	if module == "" {
		r.globalPause = paused
		return nil
	}
	if paused {
		r.paused[module] = true
	} else {
		delete(r.paused, module)
	}
	return nil
}

func (r *Registry) hasRoleLocked(role string, addr [20]byte) bool {
	members, ok := r.roles[role]
	return ok && members[addr]
}

// HasRole reports whether the address is a member of the role. The byte-slice
// signature matches the state-backed oracles consumed by the engines.
func (r *Registry) HasRole(role string, addr []byte) bool {
	if len(addr) != 20 {
		return false
	}
	var key [20]byte
	copy(key[:], addr)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasRoleLocked(role, key)
}

// IsVerifiedSeller reports whether the address passed seller verification.
func (r *Registry) IsVerifiedSeller(addr [20]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verifiedSellers[addr]
}

// IsBlacklisted reports whether the address is on the global deny-list.
func (r *Registry) IsBlacklisted(addr [20]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blacklist[addr]
}

// Paused reports the global pause switch.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalPause
}

// IsPaused implements the common.PauseView interface consumed by the engine
// guards.
func (r *Registry) IsPaused(module string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.globalPause {
		return true
	}
	return r.paused[module]
}
