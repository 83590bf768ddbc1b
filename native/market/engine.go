package market

import (
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"popmarket/core/events"
	"popmarket/core/types"
	"popmarket/native/catalog"
	nativecommon "popmarket/native/common"
	"popmarket/native/subscription"
	"popmarket/observability/metrics"
)

const moduleName = "market"

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id uint64) (*Listing, bool)
	OrderPut(*Order) error
	OrderGet(id uint64) (*Order, bool)
	BidPut(*Bid) error
	BidGet(id uint64) (*Bid, bool)
	NextListingID() uint64
	NextOrderID() uint64
	NextBidID() uint64
	OrderEscrow(id uint64) *big.Int
	SetOrderEscrow(id uint64, amount *big.Int) error
	OwedFunds(addr [20]byte) *big.Int
	SetOwedFunds(addr [20]byte, amount *big.Int) error
	LockedInventory(listingID uint64) uint64
	SetLockedInventory(listingID uint64, qty uint64) error
	BidderBlocked(listingID uint64, bidder [20]byte) bool
	SetBidderBlocked(listingID uint64, bidder [20]byte, blocked bool) error
	OrderFeesPaid(id uint64) bool
	SetOrderFeesPaid(id uint64) error
	AccumulatedFees() *big.Int
	SetAccumulatedFees(amount *big.Int) error
	MarketPaused() bool
	SetMarketPaused(paused bool) error
}

// AccessOracle is the capability-check surface the engine consumes.
type AccessOracle interface {
	HasRole(role string, addr []byte) bool
	IsVerifiedSeller(addr [20]byte) bool
	IsBlacklisted(addr [20]byte) bool
	Paused() bool
}

// CatalogOracle resolves SKU validity, tier access and the proof token bound
// to each SKU.
type CatalogOracle interface {
	SKUExists(skuID uint64) bool
	TokenFor(skuID uint64) (catalog.ProofToken, bool)
	TierAllowed(skuID uint64, tier subscription.Tier) bool
}

// SubscriptionView answers whether a user is entitled to trade.
type SubscriptionView interface {
	GetSubscription(user [20]byte) (subscription.Subscription, bool)
}

// FundsLedger is the stablecoin surface the engine settles through. The
// engine's vault address acts as the spender for funding pulls and as the
// source for withdrawals.
type FundsLedger interface {
	BalanceOf(addr [20]byte) *big.Int
	Allowance(owner, spender [20]byte) *big.Int
	TransferFrom(spender, owner, to [20]byte, amount *big.Int) error
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine owns the listing, order, bid and escrow state of the marketplace and
// drives the order state machine: Created is the only non-terminal state and
// the only exits are confirmDelivery (Delivered) and cancelOrder (Cancelled).
// All collaborators are injected explicitly; there is no global instance.
type Engine struct {
	state     engineState
	access    AccessOracle
	catalog   CatalogOracle
	subs      SubscriptionView
	funds     FundsLedger
	vault     [20]byte
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	lock      nativecommon.CallLock
	nowFn     func() int64
	telemetry *metrics.MarketMetrics
}

// NewEngine creates a marketplace engine with a no-op emitter. Collaborators
// are configured via the Set* methods before first use.
func NewEngine() *Engine {
	return &Engine{
		vault:     vaultAddress(),
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		telemetry: metrics.Market(),
	}
}

func vaultAddress() [20]byte {
	var addr [20]byte
	h := ethcrypto.Keccak256([]byte("popmarket/market-vault"))
	copy(addr[:], h[12:])
	return addr
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAccess configures the capability-check oracle.
func (e *Engine) SetAccess(oracle AccessOracle) { e.access = oracle }

// SetCatalog configures the SKU validity oracle.
func (e *Engine) SetCatalog(oracle CatalogOracle) { e.catalog = oracle }

// SetSubscriptions configures the entitlement oracle.
func (e *Engine) SetSubscriptions(view SubscriptionView) { e.subs = view }

// SetFunds configures the stablecoin ledger used for settlement.
func (e *Engine) SetFunds(ledger FundsLedger) { e.funds = ledger }

// SetPauses configures the per-module pause view consulted by every mutating
// entry point.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Vault returns the contract-held settlement address.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// guardMutating covers every state-mutating entry point: module pause map,
// the access oracle's global pause and the market-local pause flag. View
// functions are never guarded.
func (e *Engine) guardMutating() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.access != nil && e.access.Paused() {
		return nativecommon.ErrModulePaused
	}
	if e.state.MarketPaused() {
		return nativecommon.ErrModulePaused
	}
	return nil
}

// checkEntitlement enforces the two-stage subscription gate: an active
// subscription at all, then a tier permitted for the SKU. The two failures are
// distinct kinds so clients can show precise remediation.
func (e *Engine) checkEntitlement(user [20]byte, skuID uint64) error {
	if e.subs == nil {
		return ErrSubscriptionRequired
	}
	sub, ok := e.subs.GetSubscription(user)
	if !ok || !sub.Active {
		return ErrSubscriptionRequired
	}
	if e.catalog == nil || !e.catalog.TierAllowed(skuID, sub.Tier) {
		return ErrInsufficientSubscriptionTier
	}
	return nil
}

// pullFunds moves amount from the payer into the vault. Balance and allowance
// are checked explicitly before the transfer so the caller receives precise
// error attribution.
func (e *Engine) pullFunds(payer [20]byte, amount *big.Int) error {
	if e.funds == nil {
		return errNilFunds
	}
	if e.funds.BalanceOf(payer).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if e.funds.Allowance(payer, e.vault).Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	return e.funds.TransferFrom(e.vault, payer, e.vault, amount)
}

// CreateListing locks exactly one custody unit and inserts an active listing.
// The caller must be a verified, non-blacklisted seller with verified
// inventory for the size. If the custody lock fails no listing is created.
func (e *Engine) CreateListing(caller [20]byte, skuID uint64, size string, price *big.Int, kind ListingKind, minBidPrice *big.Int) (*Listing, error) {
	if err := e.lock.Enter(); err != nil {
		return nil, err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	if e.catalog == nil {
		return nil, errNilCatalog
	}
	if e.access == nil || !e.access.IsVerifiedSeller(caller) || e.access.IsBlacklisted(caller) {
		return nil, ErrUnauthorized
	}
	listing := &Listing{
		SKU:         skuID,
		Size:        size,
		Price:       price,
		Seller:      caller,
		CreatedAt:   e.now(),
		Active:      true,
		Kind:        kind,
		MinBidPrice: minBidPrice,
	}
	sanitized, err := SanitizeListing(listing)
	if err != nil {
		return nil, err
	}
	token, ok := e.catalog.TokenFor(skuID)
	if !ok {
		return nil, ErrInvalidListing
	}
	if !token.IsSizeAvailable(sanitized.Size) {
		return nil, ErrInvalidListing
	}
	if token.SellerInventory(caller, sanitized.Size) == 0 {
		return nil, ErrInvalidListing
	}
	if err := token.LockTokens(caller, [20]byte{}, sanitized.Size, 1); err != nil {
		return nil, err
	}
	sanitized.ID = e.state.NextListingID()
	if err := e.state.ListingPut(sanitized); err != nil {
		return nil, err
	}
	if err := e.state.SetLockedInventory(sanitized.ID, 1); err != nil {
		return nil, err
	}
	e.emit(newListingEvent(EventTypeListingCreated, sanitized))
	e.telemetry.RecordListingCreated(sanitized.Kind.String())
	return sanitized.Clone(), nil
}

// UpdateListing changes the price of an active listing. Only the seller may
// update; no inventory or escrow side effects.
func (e *Engine) UpdateListing(caller [20]byte, listingID uint64, newPrice *big.Int) (*Listing, error) {
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok {
		return nil, ErrInvalidListing
	}
	if listing.Seller != caller {
		return nil, ErrUnauthorized
	}
	if !listing.Active {
		return nil, ErrInvalidState
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	listing.Price = new(big.Int).Set(newPrice)
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(newListingEvent(EventTypeListingUpdated, listing))
	return listing.Clone(), nil
}

// CancelListing releases the locked custody unit back to the seller and
// deactivates the listing.
func (e *Engine) CancelListing(caller [20]byte, listingID uint64) error {
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return err
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok {
		return ErrInvalidListing
	}
	if listing.Seller != caller {
		return ErrUnauthorized
	}
	if !listing.Active {
		return ErrInvalidState
	}
	if e.catalog == nil {
		return errNilCatalog
	}
	token, ok := e.catalog.TokenFor(listing.SKU)
	if !ok {
		return ErrInvalidListing
	}
	if err := token.ReturnTokensToSeller(listing.Seller, [20]byte{}, listing.Size, 1); err != nil {
		return err
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	if err := e.state.SetLockedInventory(listingID, 0); err != nil {
		return err
	}
	e.emit(newListingEvent(EventTypeListingCancelled, listing))
	return nil
}

// Purchase buys a direct-sale listing outright: the price is pulled into the
// vault as order escrow and an order is created in the Created state. The
// custody unit stays in contract escrow until delivery is confirmed.
func (e *Engine) Purchase(caller [20]byte, listingID uint64) (*Order, error) {
	if err := e.lock.Enter(); err != nil {
		return nil, err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok || !listing.Active {
		return nil, ErrInvalidListing
	}
	if listing.Kind != DirectSale {
		return nil, ErrInvalidState
	}
	if e.access != nil && e.access.IsBlacklisted(caller) {
		return nil, ErrUnauthorized
	}
	if err := e.checkEntitlement(caller, listing.SKU); err != nil {
		return nil, err
	}
	if err := e.pullFunds(caller, listing.Price); err != nil {
		return nil, err
	}
	order, err := e.createOrder(listing, caller, listing.Price)
	if err != nil {
		return nil, err
	}
	e.emit(newListingEvent(EventTypeListingPurchased, listing))
	e.telemetry.RecordOrderCreated("purchase")
	return order, nil
}

// createOrder inserts the order with its escrow deposit and deactivates the
// listing. Funds must already sit in the vault.
func (e *Engine) createOrder(listing *Listing, buyer [20]byte, price *big.Int) (*Order, error) {
	order := &Order{
		ID:        e.state.NextOrderID(),
		ListingID: listing.ID,
		Buyer:     buyer,
		Seller:    listing.Seller,
		SKU:       listing.SKU,
		Size:      listing.Size,
		Price:     new(big.Int).Set(price),
		State:     OrderCreated,
		CreatedAt: e.now(),
	}
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	if err := e.state.SetOrderEscrow(order.ID, order.Price); err != nil {
		return nil, err
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(newOrderEvent(EventTypeOrderCreated, order))
	e.telemetry.AddEscrowHeld(float64(order.Price.Int64()))
	return order.Clone(), nil
}

// Listing returns a copy of the listing record.
func (e *Engine) Listing(id uint64) (*Listing, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	listing, ok := e.state.ListingGet(id)
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

// Order returns a copy of the order record.
func (e *Engine) Order(id uint64) (*Order, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	order, ok := e.state.OrderGet(id)
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// Bid returns a copy of the bid record.
func (e *Engine) Bid(id uint64) (*Bid, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	bid, ok := e.state.BidGet(id)
	if !ok {
		return nil, false
	}
	return bid.Clone(), true
}

// OrderEscrow returns the escrow currently held for the order.
func (e *Engine) OrderEscrow(id uint64) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	return e.state.OrderEscrow(id)
}

// OwedFunds returns the withdrawable credit of the address.
func (e *Engine) OwedFunds(addr [20]byte) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	return e.state.OwedFunds(addr)
}

// LockedInventory returns the custody units held for the listing.
func (e *Engine) LockedInventory(listingID uint64) uint64 {
	if e == nil || e.state == nil {
		return 0
	}
	return e.state.LockedInventory(listingID)
}

// OrderFeesPaid reports whether delivery fees were paid for the order.
func (e *Engine) OrderFeesPaid(id uint64) bool {
	if e == nil || e.state == nil {
		return false
	}
	return e.state.OrderFeesPaid(id)
}

// AccumulatedFees returns the protocol-held delivery fees.
func (e *Engine) AccumulatedFees() *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	return e.state.AccumulatedFees()
}

// BidderBlocked reports whether the bidder is on the listing's deny-list.
func (e *Engine) BidderBlocked(listingID uint64, bidder [20]byte) bool {
	if e == nil || e.state == nil {
		return false
	}
	return e.state.BidderBlocked(listingID, bidder)
}
