package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"popmarket/core/types"
)

const (
	EventTypeListingCreated   = "market.listing.created"
	EventTypeListingUpdated   = "market.listing.updated"
	EventTypeListingCancelled = "market.listing.cancelled"
	EventTypeListingPurchased = "market.listing.purchased"
	EventTypeOrderCreated     = "market.order.created"
	EventTypeOrderDelivered   = "market.order.delivered"
	EventTypeOrderCancelled   = "market.order.cancelled"
	EventTypeBidPlaced        = "market.bid.placed"
	EventTypeBidAccepted      = "market.bid.accepted"
	EventTypeBidRejected      = "market.bid.rejected"
	EventTypeBidderBlocked    = "market.bidder.blocked"
	EventTypeBidderUnblocked  = "market.bidder.unblocked"
	EventTypeFeesPaid         = "market.fees.paid"
	EventTypeFeesWithdrawn    = "market.fees.withdrawn"
	EventTypeFundsWithdrawn   = "market.funds.withdrawn"
	EventTypeMarketPaused     = "market.paused"
	EventTypeMarketResumed    = "market.resumed"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func newListingEvent(eventType string, l *Listing) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["id"] = strconv.FormatUint(l.ID, 10)
		attrs["sku"] = strconv.FormatUint(l.SKU, 10)
		attrs["size"] = l.Size
		attrs["price"] = formatAmount(l.Price)
		attrs["seller"] = hex.EncodeToString(l.Seller[:])
		attrs["kind"] = l.Kind.String()
		attrs["active"] = strconv.FormatBool(l.Active)
		attrs["createdAt"] = strconv.FormatInt(l.CreatedAt, 10)
		if l.Kind == Auction {
			attrs["minBidPrice"] = formatAmount(l.MinBidPrice)
		}
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newOrderEvent(eventType string, o *Order) *types.Event {
	attrs := make(map[string]string)
	if o != nil {
		attrs["id"] = strconv.FormatUint(o.ID, 10)
		attrs["listingId"] = strconv.FormatUint(o.ListingID, 10)
		attrs["buyer"] = hex.EncodeToString(o.Buyer[:])
		attrs["seller"] = hex.EncodeToString(o.Seller[:])
		attrs["sku"] = strconv.FormatUint(o.SKU, 10)
		attrs["size"] = o.Size
		attrs["price"] = formatAmount(o.Price)
		attrs["state"] = o.State.String()
		attrs["createdAt"] = strconv.FormatInt(o.CreatedAt, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newBidEvent(eventType string, b *Bid) *types.Event {
	attrs := make(map[string]string)
	if b != nil {
		attrs["id"] = strconv.FormatUint(b.ID, 10)
		attrs["listingId"] = strconv.FormatUint(b.ListingID, 10)
		attrs["bidder"] = hex.EncodeToString(b.Bidder[:])
		attrs["amount"] = formatAmount(b.Amount)
		attrs["active"] = strconv.FormatBool(b.Active)
		attrs["createdAt"] = strconv.FormatInt(b.CreatedAt, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newBidderEvent(eventType string, listingID uint64, bidder [20]byte) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"listingId": strconv.FormatUint(listingID, 10),
		"bidder":    hex.EncodeToString(bidder[:]),
	}}
}

func newFeesEvent(eventType string, orderID uint64, amount *big.Int) *types.Event {
	attrs := map[string]string{"amount": formatAmount(amount)}
	if orderID > 0 {
		attrs["orderId"] = strconv.FormatUint(orderID, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newWithdrawalEvent(addr [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeFundsWithdrawn, Attributes: map[string]string{
		"address": hex.EncodeToString(addr[:]),
		"amount":  formatAmount(amount),
	}}
}

func newPauseEvent(eventType string) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
