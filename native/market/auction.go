package market

import "math/big"

// PlaceBid records an offer against an auction listing. No funds move at bid
// time and multiple concurrent active bids per listing are legal; payment is
// pulled only at acceptance.
func (e *Engine) PlaceBid(caller [20]byte, listingID uint64, amount *big.Int) (*Bid, error) {
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok || !listing.Active {
		return nil, ErrInvalidListing
	}
	if listing.Kind != Auction {
		return nil, ErrInvalidState
	}
	if e.access != nil && e.access.IsBlacklisted(caller) {
		return nil, ErrUnauthorized
	}
	if e.state.BidderBlocked(listingID, caller) {
		return nil, ErrBidderBlocked
	}
	if err := e.checkEntitlement(caller, listing.SKU); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(listing.MinBidPrice) < 0 {
		return nil, ErrInvalidPrice
	}
	bid := &Bid{
		ID:        e.state.NextBidID(),
		ListingID: listingID,
		Bidder:    caller,
		Amount:    new(big.Int).Set(amount),
		CreatedAt: e.now(),
		Active:    true,
	}
	if err := e.state.BidPut(bid); err != nil {
		return nil, err
	}
	e.emit(newBidEvent(EventTypeBidPlaced, bid))
	e.telemetry.RecordBidPlaced()
	return bid.Clone(), nil
}

// AcceptBid settles an auction in favour of one bid: the bid amount is pulled
// from the bidder into the vault as order escrow, an order is created and the
// listing and accepted bid are deactivated. Sibling bids on the listing stay
// active in storage; sellers reject them explicitly. A failed funding pull
// leaves the listing and bid untouched.
func (e *Engine) AcceptBid(caller [20]byte, bidID uint64) (*Order, error) {
	if err := e.lock.Enter(); err != nil {
		return nil, err
	}
	defer e.lock.Exit()
	if err := e.guardMutating(); err != nil {
		return nil, err
	}
	bid, ok := e.state.BidGet(bidID)
	if !ok {
		return nil, ErrInvalidBid
	}
	listing, ok := e.state.ListingGet(bid.ListingID)
	if !ok {
		return nil, ErrInvalidListing
	}
	if listing.Seller != caller {
		return nil, ErrUnauthorized
	}
	if !bid.Active || !listing.Active {
		return nil, ErrInvalidState
	}
	if err := e.pullFunds(bid.Bidder, bid.Amount); err != nil {
		return nil, err
	}
	// The funding pull crosses into the funds ledger; re-check the listing is
	// still live before cutting the order.
	listing, ok = e.state.ListingGet(bid.ListingID)
	if !ok || !listing.Active {
		return nil, ErrInvalidState
	}
	order, err := e.createOrder(listing, bid.Bidder, bid.Amount)
	if err != nil {
		return nil, err
	}
	bid.Active = false
	if err := e.state.BidPut(bid); err != nil {
		return nil, err
	}
	e.emit(newBidEvent(EventTypeBidAccepted, bid))
	e.telemetry.RecordOrderCreated("bid")
	return order, nil
}

// RejectBid deactivates a bid. Seller only; nothing to refund since bid
// placement escrows no funds.
func (e *Engine) RejectBid(caller [20]byte, bidID uint64) error {
	if err := e.guardMutating(); err != nil {
		return err
	}
	bid, ok := e.state.BidGet(bidID)
	if !ok {
		return ErrInvalidBid
	}
	listing, ok := e.state.ListingGet(bid.ListingID)
	if !ok {
		return ErrInvalidListing
	}
	if listing.Seller != caller {
		return ErrUnauthorized
	}
	if !bid.Active {
		return ErrInvalidState
	}
	bid.Active = false
	if err := e.state.BidPut(bid); err != nil {
		return err
	}
	e.emit(newBidEvent(EventTypeBidRejected, bid))
	return nil
}

// BlockBidder adds the bidder to the listing's deny-list. The toggle is
// independent of the global blacklist and does not retroactively cancel
// existing bids from that bidder.
func (e *Engine) BlockBidder(caller [20]byte, listingID uint64, bidder [20]byte) error {
	return e.setBidderBlocked(caller, listingID, bidder, true)
}

// UnblockBidder removes the bidder from the listing's deny-list.
func (e *Engine) UnblockBidder(caller [20]byte, listingID uint64, bidder [20]byte) error {
	return e.setBidderBlocked(caller, listingID, bidder, false)
}

func (e *Engine) setBidderBlocked(caller [20]byte, listingID uint64, bidder [20]byte, blocked bool) error {
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
	if err := e.state.SetBidderBlocked(listingID, bidder, blocked); err != nil {
		return err
	}
	eventType := EventTypeBidderBlocked
	if !blocked {
		eventType = EventTypeBidderUnblocked
	}
	e.emit(newBidderEvent(eventType, listingID, bidder))
	return nil
}
