package custody

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"popmarket/core/events"
	"popmarket/native/access"
	nativecommon "popmarket/native/common"
)

const moduleName = "custody"

var (
	ErrUnauthorized        = errors.New("custody: unauthorized")
	ErrInvalidSize         = errors.New("custody: size not available")
	ErrInvalidQuantity     = errors.New("custody: quantity must be positive")
	ErrInsufficientBalance = errors.New("custody: insufficient balance")
	ErrInsufficientEscrow  = errors.New("custody: insufficient escrow balance")
)

type roleView interface {
	HasRole(role string, addr []byte) bool
}

// Token is the semi-fungible proof-of-purchase ledger for a single SKU. Units
// are held either directly by an address (tradable inventory) or by the
// contract's own escrow account while a listing or order is in flight. Lock
// moves units from the seller into escrow; the two release operations move
// them from escrow to the named destination. Each operation is atomic with its
// balance check.
type Token struct {
	mu       sync.Mutex
	skuID    uint64
	escrow   [20]byte
	sizes    map[string]bool
	balances map[[20]byte]map[string]uint64
	escrowed map[[20]byte]map[string]uint64
	roles    roleView
	emitter  events.Emitter
	pauses   nativecommon.PauseView
}

// NewToken constructs the custody ledger for a SKU. The contract escrow
// account address is derived deterministically from the SKU identifier.
func NewToken(skuID uint64, roles roleView) *Token {
	return &Token{
		skuID:    skuID,
		escrow:   escrowAccount(skuID),
		sizes:    make(map[string]bool),
		balances: make(map[[20]byte]map[string]uint64),
		escrowed: make(map[[20]byte]map[string]uint64),
		roles:    roles,
		emitter:  events.NoopEmitter{},
	}
}

func escrowAccount(skuID uint64) [20]byte {
	var addr [20]byte
	h := ethcrypto.Keccak256([]byte(fmt.Sprintf("popmarket/custody-escrow/%d", skuID)))
	copy(addr[:], h[12:])
	return addr
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (t *Token) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

func (t *Token) SetPauses(p nativecommon.PauseView) {
	if t == nil {
		return
	}
	t.pauses = p
}

func (t *Token) emit(evt events.Event) {
	if t == nil || t.emitter == nil || evt == nil {
		return
	}
	t.emitter.Emit(evt)
}

// SKU returns the SKU identifier this ledger is bound to.
func (t *Token) SKU() uint64 { return t.skuID }

// EscrowAccount returns the contract-held escrow account address.
func (t *Token) EscrowAccount() [20]byte { return t.escrow }

// AddSize registers a size variant. Admin gated.
func (t *Token) AddSize(caller [20]byte, size string) error {
	trimmed := strings.TrimSpace(size)
	if trimmed == "" {
		return ErrInvalidSize
	}
	if t.roles == nil || !t.roles.HasRole(access.RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sizes[trimmed] = true
	return nil
}

// Mint credits freshly minted units to the recipient's tradable balance.
// Admin gated.
func (t *Token) Mint(caller [20]byte, to [20]byte, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if t.roles == nil || !t.roles.HasRole(access.RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return err
	}
	t.mu.Lock()
	if !t.sizes[size] {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	t.creditLocked(t.balances, to, size, qty)
	t.mu.Unlock()
	t.emit(events.CustodyMinted{SKU: t.skuID, To: to, Size: size, Qty: qty, Minter: caller})
	return nil
}

// IsSizeAvailable reports whether the size variant exists.
func (t *Token) IsSizeAvailable(size string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sizes[size]
}

// SellerInventory returns the seller's directly-held tradable balance for the
// size.
func (t *Token) SellerInventory(seller [20]byte, size string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[seller][size]
}

// EscrowedInventory returns the units currently escrow-held on behalf of the
// seller for the size.
func (t *Token) EscrowedInventory(seller [20]byte, size string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.escrowed[seller][size]
}

// LockTokens moves qty units from the seller's tradable balance into the
// contract escrow account. The buyer is recorded only for symmetry with the
// release operations and may be the zero address at listing time.
func (t *Token) LockTokens(seller, buyer [20]byte, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return err
	}
	t.mu.Lock()
	if !t.sizes[size] {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if t.balances[seller][size] < qty {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	t.debitLocked(t.balances, seller, size, qty)
	t.creditLocked(t.escrowed, seller, size, qty)
	t.mu.Unlock()
	t.emit(events.CustodyLocked{SKU: t.skuID, Seller: seller, Size: size, Qty: qty})
	return nil
}

// ReleaseTokensToBuyer moves qty escrow-held units to the buyer's tradable
// balance on verified delivery.
func (t *Token) ReleaseTokensToBuyer(seller, buyer [20]byte, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return err
	}
	t.mu.Lock()
	if !t.sizes[size] {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if t.escrowed[seller][size] < qty {
		t.mu.Unlock()
		return ErrInsufficientEscrow
	}
	t.debitLocked(t.escrowed, seller, size, qty)
	t.creditLocked(t.balances, buyer, size, qty)
	t.mu.Unlock()
	t.emit(events.CustodyReleased{SKU: t.skuID, Seller: seller, Buyer: buyer, Size: size, Qty: qty})
	return nil
}

// ReturnTokensToSeller moves qty escrow-held units back to the seller's
// tradable balance on cancellation.
func (t *Token) ReturnTokensToSeller(seller, buyer [20]byte, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if err := nativecommon.Guard(t.pauses, moduleName); err != nil {
		return err
	}
	t.mu.Lock()
	if !t.sizes[size] {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if t.escrowed[seller][size] < qty {
		t.mu.Unlock()
		return ErrInsufficientEscrow
	}
	t.debitLocked(t.escrowed, seller, size, qty)
	t.creditLocked(t.balances, seller, size, qty)
	t.mu.Unlock()
	t.emit(events.CustodyReturned{SKU: t.skuID, Seller: seller, Size: size, Qty: qty})
	return nil
}

func (t *Token) creditLocked(ledger map[[20]byte]map[string]uint64, addr [20]byte, size string, qty uint64) {
	bySize, ok := ledger[addr]
	if !ok {
		bySize = make(map[string]uint64)
		ledger[addr] = bySize
	}
	bySize[size] += qty
}

func (t *Token) debitLocked(ledger map[[20]byte]map[string]uint64, addr [20]byte, size string, qty uint64) {
	bySize := ledger[addr]
	bySize[size] -= qty
	if bySize[size] == 0 {
		delete(bySize, size)
	}
}
