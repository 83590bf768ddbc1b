package state

import (
	"fmt"
	"math/big"
	"sync"

	"popmarket/native/market"
)

// Manager is the in-memory state backend for the marketplace engine. All
// mappings are owned exclusively by the engine entry points that mutate them;
// the manager only stores and clones.
type Manager struct {
	mu              sync.Mutex
	listings        map[uint64]*market.Listing
	orders          map[uint64]*market.Order
	bids            map[uint64]*market.Bid
	listingSeq      uint64
	orderSeq        uint64
	bidSeq          uint64
	orderEscrow     map[uint64]*big.Int
	owedFunds       map[[20]byte]*big.Int
	lockedInventory map[uint64]uint64
	blockedBidders  map[uint64]map[[20]byte]bool
	orderFeesPaid   map[uint64]bool
	accumulatedFees *big.Int
	marketPaused    bool
}

// NewManager creates an empty state manager.
func NewManager() *Manager {
	return &Manager{
		listings:        make(map[uint64]*market.Listing),
		orders:          make(map[uint64]*market.Order),
		bids:            make(map[uint64]*market.Bid),
		orderEscrow:     make(map[uint64]*big.Int),
		owedFunds:       make(map[[20]byte]*big.Int),
		lockedInventory: make(map[uint64]uint64),
		blockedBidders:  make(map[uint64]map[[20]byte]bool),
		orderFeesPaid:   make(map[uint64]bool),
		accumulatedFees: big.NewInt(0),
	}
}

func (m *Manager) ListingPut(l *market.Listing) error {
	if l == nil {
		return fmt.Errorf("state: nil listing")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l.Clone()
	return nil
}

func (m *Manager) ListingGet(id uint64) (*market.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

func (m *Manager) OrderPut(o *market.Order) error {
	if o == nil {
		return fmt.Errorf("state: nil order")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *Manager) OrderGet(id uint64) (*market.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (m *Manager) BidPut(b *market.Bid) error {
	if b == nil {
		return fmt.Errorf("state: nil bid")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bids[b.ID] = b.Clone()
	return nil
}

func (m *Manager) BidGet(id uint64) (*market.Bid, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (m *Manager) NextListingID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingSeq++
	return m.listingSeq
}

func (m *Manager) NextOrderID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderSeq++
	return m.orderSeq
}

func (m *Manager) NextBidID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bidSeq++
	return m.bidSeq
}

func (m *Manager) OrderEscrow(id uint64) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amt, ok := m.orderEscrow[id]; ok {
		return new(big.Int).Set(amt)
	}
	return big.NewInt(0)
}

func (m *Manager) SetOrderEscrow(id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid escrow amount")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderEscrow[id] = new(big.Int).Set(amount)
	return nil
}

func (m *Manager) OwedFunds(addr [20]byte) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amt, ok := m.owedFunds[addr]; ok {
		return new(big.Int).Set(amt)
	}
	return big.NewInt(0)
}

func (m *Manager) SetOwedFunds(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid owed amount")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owedFunds[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *Manager) LockedInventory(listingID uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockedInventory[listingID]
}

func (m *Manager) SetLockedInventory(listingID uint64, qty uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty == 0 {
		delete(m.lockedInventory, listingID)
		return nil
	}
	m.lockedInventory[listingID] = qty
	return nil
}

func (m *Manager) BidderBlocked(listingID uint64, bidder [20]byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockedBidders[listingID][bidder]
}

func (m *Manager) SetBidderBlocked(listingID uint64, bidder [20]byte, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byListing, ok := m.blockedBidders[listingID]
	if !ok {
		byListing = make(map[[20]byte]bool)
		m.blockedBidders[listingID] = byListing
	}
	if blocked {
		byListing[bidder] = true
	} else {
		delete(byListing, bidder)
	}
	return nil
}

func (m *Manager) OrderFeesPaid(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderFeesPaid[id]
}

func (m *Manager) SetOrderFeesPaid(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderFeesPaid[id] = true
	return nil
}

func (m *Manager) AccumulatedFees() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.accumulatedFees)
}

func (m *Manager) SetAccumulatedFees(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid fee amount")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accumulatedFees = new(big.Int).Set(amount)
	return nil
}

func (m *Manager) MarketPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marketPaused
}

func (m *Manager) SetMarketPaused(paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketPaused = paused
	return nil
}
