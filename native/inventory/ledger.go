package inventory

import (
	"errors"
	"sync"
	"time"

	"popmarket/core/events"
	"popmarket/native/access"
	nativecommon "popmarket/native/common"
)

const moduleName = "inventory"

var (
	ErrUnauthorized        = errors.New("inventory: unauthorized")
	ErrInvalidQuantity     = errors.New("inventory: quantity must be positive")
	ErrNotFound            = errors.New("inventory: record not found")
	ErrExceedsQuantity     = errors.New("inventory: verified quantity exceeds raw quantity")
	ErrInsufficientReserve = errors.New("inventory: insufficient verified quantity")
)

type roleView interface {
	HasRole(role string, addr []byte) bool
}

type key struct {
	seller [20]byte
	sku    uint64
	size   string
}

// Record tracks raw and verified stock for one (seller, sku, size) triple.
// Verified is the currently reservable pool; VerifiedCap is the quantity the
// verifier attested, which Release never restores beyond.
type Record struct {
	Quantity             uint64
	Verified             uint64
	VerifiedCap          uint64
	LastVerificationTime int64
	IsVerified           bool
}

// Ledger tracks per-seller, per-SKU, per-size quantities with a
// verified/unverified split and a reservation mechanism used to back
// marketplace listings without re-verifying on every trade.
type Ledger struct {
	mu      sync.Mutex
	records map[key]*Record
	roles   roleView
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewLedger constructs an inventory ledger gated by the supplied role oracle.
func NewLedger(roles roleView) *Ledger {
	return &Ledger{
		records: make(map[key]*Record),
		roles:   roles,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) SetPauses(p nativecommon.PauseView) {
	if l == nil {
		return
	}
	l.pauses = p
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

func (l *Ledger) emit(evt events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(evt)
}

func (l *Ledger) hasRole(role string, addr [20]byte) bool {
	return l.roles != nil && l.roles.HasRole(role, addr[:])
}

// Add sets the raw quantity for the seller's stock and resets verification.
// Sellers register their own stock.
func (l *Ledger) Add(seller [20]byte, sku uint64, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	l.mu.Lock()
	l.records[key{seller, sku, size}] = &Record{Quantity: qty}
	l.mu.Unlock()
	l.emit(events.InventoryAdded{Seller: seller, SKU: sku, Size: size, Qty: qty})
	return nil
}

// Verify attests a verified sub-quantity of the raw stock. Verifier gated; the
// attested quantity may not exceed the raw quantity.
func (l *Ledger) Verify(caller [20]byte, seller [20]byte, sku uint64, size string, qty uint64) error {
	if !l.hasRole(access.RoleVerifier, caller) {
		return ErrUnauthorized
	}
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	l.mu.Lock()
	rec, ok := l.records[key{seller, sku, size}]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	if qty > rec.Quantity {
		l.mu.Unlock()
		return ErrExceedsQuantity
	}
	now := l.nowFn()
	rec.Verified = qty
	rec.VerifiedCap = qty
	rec.LastVerificationTime = now
	rec.IsVerified = qty > 0
	l.mu.Unlock()
	l.emit(events.InventoryVerified{Seller: seller, SKU: sku, Size: size, Qty: qty, VerifiedAt: now})
	return nil
}

// Reserve moves qty units out of the verified pool to back a listing. Admin
// gated.
func (l *Ledger) Reserve(caller [20]byte, seller [20]byte, sku uint64, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if !l.hasRole(access.RoleAdmin, caller) {
		return ErrUnauthorized
	}
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	l.mu.Lock()
	rec, ok := l.records[key{seller, sku, size}]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	if rec.Verified < qty {
		l.mu.Unlock()
		return ErrInsufficientReserve
	}
	rec.Verified -= qty
	l.mu.Unlock()
	l.emit(events.InventoryReserved{Seller: seller, SKU: sku, Size: size, Qty: qty})
	return nil
}

// Release restores qty units to the verified pool, clamped so the pool never
// exceeds the quantity the verifier originally attested. Admin gated.
func (l *Ledger) Release(caller [20]byte, seller [20]byte, sku uint64, size string, qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if !l.hasRole(access.RoleAdmin, caller) {
		return ErrUnauthorized
	}
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	l.mu.Lock()
	rec, ok := l.records[key{seller, sku, size}]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	restored := rec.Verified + qty
	if restored > rec.VerifiedCap {
		restored = rec.VerifiedCap
	}
	released := restored - rec.Verified
	rec.Verified = restored
	l.mu.Unlock()
	l.emit(events.InventoryReleased{Seller: seller, SKU: sku, Size: size, Qty: released})
	return nil
}

// Get returns a copy of the record for the triple.
func (l *Ledger) Get(seller [20]byte, sku uint64, size string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key{seller, sku, size}]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// VerifiedQuantity returns the currently reservable verified quantity.
func (l *Ledger) VerifiedQuantity(seller [20]byte, sku uint64, size string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key{seller, sku, size}]
	if !ok {
		return 0
	}
	return rec.Verified
}
