package catalog

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"popmarket/native/access"
	"popmarket/native/subscription"
)

var (
	ErrUnauthorized = errors.New("catalog: unauthorized")
	ErrInvalidSKU   = errors.New("catalog: invalid sku")
	ErrSKUExists    = errors.New("catalog: sku already registered")
	ErrSKUNotFound  = errors.New("catalog: sku not found")
	ErrNilToken     = errors.New("catalog: nil proof token")
)

// ProofToken is the custody surface the catalog binds each SKU to. The
// marketplace resolves a listing's SKU to this handle and performs all token
// custody through it. Conformance is checked at compile time by the consumers;
// no runtime probing.
type ProofToken interface {
	IsSizeAvailable(size string) bool
	SellerInventory(seller [20]byte, size string) uint64
	LockTokens(seller, buyer [20]byte, size string, qty uint64) error
	ReleaseTokensToBuyer(seller, buyer [20]byte, size string, qty uint64) error
	ReturnTokensToSeller(seller, buyer [20]byte, size string, qty uint64) error
}

// SKU is a product identity composed of size variants tracked by its bound
// proof token.
type SKU struct {
	ID        uint64
	Brand     string
	Model     string
	BasePrice *big.Int
}

// Clone returns a deep copy of the SKU record.
func (s *SKU) Clone() *SKU {
	if s == nil {
		return nil
	}
	clone := *s
	if s.BasePrice != nil {
		clone.BasePrice = new(big.Int).Set(s.BasePrice)
	} else {
		clone.BasePrice = big.NewInt(0)
	}
	return &clone
}

func sanitizeSKU(s *SKU) (*SKU, error) {
	if s == nil {
		return nil, ErrInvalidSKU
	}
	clone := s.Clone()
	clone.Brand = strings.TrimSpace(clone.Brand)
	clone.Model = strings.TrimSpace(clone.Model)
	if clone.ID == 0 {
		return nil, fmt.Errorf("%w: id required", ErrInvalidSKU)
	}
	if clone.Brand == "" || clone.Model == "" {
		return nil, fmt.Errorf("%w: brand and model required", ErrInvalidSKU)
	}
	if clone.BasePrice.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative base price", ErrInvalidSKU)
	}
	return clone, nil
}

type roleView interface {
	HasRole(role string, addr []byte) bool
}

type entry struct {
	sku        *SKU
	token      ProofToken
	tierAccess [subscription.NumTiers]bool
}

// Registry is the SKU validity oracle: existence, size validity (via the bound
// proof token), base price and tier access.
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	roles   roleView
}

// NewRegistry creates a catalog registry gated by the supplied role oracle.
func NewRegistry(roles roleView) *Registry {
	return &Registry{
		entries: make(map[uint64]*entry),
		roles:   roles,
	}
}

func (r *Registry) isAdmin(caller [20]byte) bool {
	return r.roles != nil && r.roles.HasRole(access.RoleAdmin, caller[:])
}

// RegisterSKU persists a new SKU record together with its proof token binding.
// Admin gated.
func (r *Registry) RegisterSKU(caller [20]byte, sku *SKU, token ProofToken) error {
	sanitized, err := sanitizeSKU(sku)
	if err != nil {
		return err
	}
	if token == nil {
		return ErrNilToken
	}
	if !r.isAdmin(caller) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sanitized.ID]; ok {
		return ErrSKUExists
	}
	r.entries[sanitized.ID] = &entry{sku: sanitized, token: token}
	return nil
}

// SetTierAccess toggles whether holders of the tier may trade the SKU. Admin
// gated.
func (r *Registry) SetTierAccess(caller [20]byte, skuID uint64, tier subscription.Tier, allowed bool) error {
	if !tier.Valid() {
		return subscription.ErrInvalidTier
	}
	if !r.isAdmin(caller) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[skuID]
	if !ok {
		return ErrSKUNotFound
	}
	e.tierAccess[tier] = allowed
	return nil
}

// SKUExists reports whether the SKU is registered.
func (r *Registry) SKUExists(skuID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[skuID]
	return ok
}

// SKUGet returns a copy of the SKU record.
func (r *Registry) SKUGet(skuID uint64) (*SKU, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[skuID]
	if !ok {
		return nil, false
	}
	return e.sku.Clone(), true
}

// TokenFor resolves the proof token bound to the SKU.
func (r *Registry) TokenFor(skuID uint64) (ProofToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[skuID]
	if !ok {
		return nil, false
	}
	return e.token, true
}

// TierAllowed reports whether the tier grants trading access to the SKU.
func (r *Registry) TierAllowed(skuID uint64, tier subscription.Tier) bool {
	if !tier.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[skuID]
	if !ok {
		return false
	}
	return e.tierAccess[tier]
}
