package market

import (
	"fmt"
	"math/big"
	"strings"
)

// ListingKind distinguishes fixed-price listings from auctions.
type ListingKind uint8

const (
	DirectSale ListingKind = iota
	Auction
)

// Valid reports whether the kind value is within the supported range.
func (k ListingKind) Valid() bool {
	switch k {
	case DirectSale, Auction:
		return true
	default:
		return false
	}
}

func (k ListingKind) String() string {
	switch k {
	case DirectSale:
		return "direct_sale"
	case Auction:
		return "auction"
	default:
		return "invalid"
	}
}

// OrderState represents the lifecycle states of an order. Delivered and
// Cancelled are terminal; the only transitions out of Created are
// confirmDelivery and cancelOrder.
type OrderState uint8

const (
	OrderCreated OrderState = iota
	OrderAccepted
	OrderDelivered
	OrderCancelled
)

// Valid reports whether the state value is within the supported range.
func (s OrderState) Valid() bool {
	switch s {
	case OrderCreated, OrderAccepted, OrderDelivered, OrderCancelled:
		return true
	default:
		return false
	}
}

func (s OrderState) String() string {
	switch s {
	case OrderCreated:
		return "created"
	case OrderAccepted:
		return "accepted"
	case OrderDelivered:
		return "delivered"
	case OrderCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s OrderState) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Listing is a single-unit sale offer. While active, exactly one unit of
// matching inventory is held in custody escrow on its behalf. Listings are
// deactivated, never deleted.
type Listing struct {
	ID          uint64
	SKU         uint64
	Size        string
	Price       *big.Int
	Seller      [20]byte
	CreatedAt   int64
	Active      bool
	Kind        ListingKind
	MinBidPrice *big.Int
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	if l.MinBidPrice != nil {
		clone.MinBidPrice = new(big.Int).Set(l.MinBidPrice)
	} else {
		clone.MinBidPrice = big.NewInt(0)
	}
	return &clone
}

// SanitizeListing validates and normalises the listing, returning a cloned
// instance with non-nil amounts. The original value is not mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: nil listing", ErrInvalidListing)
	}
	clone := l.Clone()
	clone.Size = strings.TrimSpace(clone.Size)
	if clone.Size == "" {
		return nil, fmt.Errorf("%w: size required", ErrInvalidListing)
	}
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: listing price", ErrInvalidPrice)
	}
	if !clone.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidListing, clone.Kind)
	}
	if clone.Kind == Auction && clone.MinBidPrice.Sign() <= 0 {
		return nil, fmt.Errorf("%w: auction minimum bid", ErrInvalidPrice)
	}
	return clone, nil
}

// Order is created atomically with its escrow deposit when a listing is
// purchased or a bid accepted. It carries its listing id so the locked custody
// unit can be cleared when the order reaches a terminal state.
type Order struct {
	ID        uint64
	ListingID uint64
	Buyer     [20]byte
	Seller    [20]byte
	SKU       uint64
	Size      string
	Price     *big.Int
	State     OrderState
	CreatedAt int64
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Price != nil {
		clone.Price = new(big.Int).Set(o.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeOrder validates and normalises the order, returning a cloned
// instance with a non-nil price.
func SanitizeOrder(o *Order) (*Order, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	clone := o.Clone()
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: order price", ErrInvalidPrice)
	}
	if !clone.State.Valid() {
		return nil, fmt.Errorf("%w: unknown state %d", ErrInvalidOrder, clone.State)
	}
	return clone, nil
}

// Bid is an offer against an auction listing. No funds are escrowed at bid
// time; payment is pulled only at acceptance. Bids are deactivated by
// acceptance or rejection and never mutated afterward.
type Bid struct {
	ID        uint64
	ListingID uint64
	Bidder    [20]byte
	Amount    *big.Int
	CreatedAt int64
	Active    bool
}

// Clone returns a deep copy of the bid.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Amount != nil {
		clone.Amount = new(big.Int).Set(b.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SanitizeBid validates and normalises the bid, returning a cloned instance
// with a non-nil amount.
func SanitizeBid(b *Bid) (*Bid, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil bid", ErrInvalidBid)
	}
	clone := b.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: bid amount", ErrInvalidPrice)
	}
	return clone, nil
}
