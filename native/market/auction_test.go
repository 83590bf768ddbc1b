package market

import (
	"errors"
	"math/big"
	"testing"

	"popmarket/native/subscription"
)

func TestPlaceBidMovesNoFunds(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	bid, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if !bid.Active {
		t.Fatalf("expected active bid")
	}
	if got := env.funds.BalanceOf(env.buyer); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected buyer balance untouched, got %s", got)
	}
	if got := env.funds.BalanceOf(env.engine.Vault()); got.Sign() != 0 {
		t.Fatalf("expected empty vault, got %s", got)
	}
}

func TestPlaceBidValidation(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	if _, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(49)); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice below min bid, got %v", err)
	}
	if _, err := env.engine.PlaceBid(env.buyer, listing.ID, nil); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for nil amount, got %v", err)
	}
	if _, err := env.engine.PlaceBid(env.buyer, 99, big.NewInt(60)); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}
	nobody := newTestAddress(0x66)
	if _, err := env.engine.PlaceBid(nobody, listing.ID, big.NewInt(60)); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired, got %v", err)
	}
	env.access.blacklisted[env.buyer] = true
	if _, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for blacklisted bidder, got %v", err)
	}
}

func TestPlaceBidOnDirectSale(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, DirectSale, 100, 0)
	if _, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(100)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on direct-sale listing, got %v", err)
	}
}

func TestBlockedBidderCannotBid(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	if err := env.engine.BlockBidder(env.seller, listing.ID, env.buyer); err != nil {
		t.Fatalf("block bidder: %v", err)
	}
	if !env.engine.BidderBlocked(listing.ID, env.buyer) {
		t.Fatalf("expected bidder blocked")
	}
	if _, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60)); !errors.Is(err, ErrBidderBlocked) {
		t.Fatalf("expected ErrBidderBlocked, got %v", err)
	}
	if err := env.engine.UnblockBidder(env.seller, listing.ID, env.buyer); err != nil {
		t.Fatalf("unblock bidder: %v", err)
	}
	if _, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60)); err != nil {
		t.Fatalf("expected bid after unblock: %v", err)
	}
	if err := env.engine.BlockBidder(env.buyer, listing.ID, env.seller); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-seller block, got %v", err)
	}
}

func TestBlockBidderKeepsExistingBids(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	bid, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if err := env.engine.BlockBidder(env.seller, listing.ID, env.buyer); err != nil {
		t.Fatalf("block bidder: %v", err)
	}
	stored, _ := env.engine.Bid(bid.ID)
	if !stored.Active {
		t.Fatalf("expected existing bid to survive a block")
	}
}

func TestAcceptBidSettlesIntoOrder(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	rival := newTestAddress(0x03)
	env.subs.subs[rival] = subscription.Subscription{Tier: subscription.TierPremium, Active: true}
	env.funds.credit(rival, 100)
	env.funds.approve(rival, env.engine.Vault(), 100)

	winner, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(80))
	if err != nil {
		t.Fatalf("place winning bid: %v", err)
	}
	loser, err := env.engine.PlaceBid(rival, listing.ID, big.NewInt(60))
	if err != nil {
		t.Fatalf("place rival bid: %v", err)
	}

	order, err := env.engine.AcceptBid(env.seller, winner.ID)
	if err != nil {
		t.Fatalf("accept bid: %v", err)
	}
	if order.Buyer != env.buyer || order.Price.Cmp(big.NewInt(80)) != 0 {
		t.Fatalf("unexpected order %+v", order)
	}
	if got := env.engine.OrderEscrow(order.ID); got.Cmp(big.NewInt(80)) != 0 {
		t.Fatalf("expected escrow 80, got %s", got)
	}
	if got := env.funds.BalanceOf(env.buyer); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected buyer charged the bid amount, got %s", got)
	}
	storedListing, _ := env.engine.Listing(listing.ID)
	if storedListing.Active {
		t.Fatalf("expected listing deactivated")
	}
	storedWinner, _ := env.engine.Bid(winner.ID)
	if storedWinner.Active {
		t.Fatalf("expected accepted bid deactivated")
	}
	// Sibling bids stay in storage until explicitly rejected.
	storedLoser, _ := env.engine.Bid(loser.ID)
	if !storedLoser.Active {
		t.Fatalf("expected sibling bid untouched")
	}
	if got := env.funds.BalanceOf(rival); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected sibling bidder never charged, got %s", got)
	}
}

func TestAcceptBidAuthorizationAndState(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	bid, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if _, err := env.engine.AcceptBid(env.buyer, bid.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-seller accept, got %v", err)
	}
	if _, err := env.engine.AcceptBid(env.seller, 99); !errors.Is(err, ErrInvalidBid) {
		t.Fatalf("expected ErrInvalidBid, got %v", err)
	}
	if err := env.engine.RejectBid(env.seller, bid.ID); err != nil {
		t.Fatalf("reject bid: %v", err)
	}
	if _, err := env.engine.AcceptBid(env.seller, bid.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on rejected bid, got %v", err)
	}
}

func TestAcceptBidFundingFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	bid, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(80))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	// The bidder spends down between bid and acceptance.
	env.funds.credit(env.buyer, 10)
	if _, err := env.engine.AcceptBid(env.seller, bid.ID); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	storedListing, _ := env.engine.Listing(listing.ID)
	if !storedListing.Active {
		t.Fatalf("expected listing still active after failed accept")
	}
	storedBid, _ := env.engine.Bid(bid.ID)
	if !storedBid.Active {
		t.Fatalf("expected bid still active after failed accept")
	}
	if env.state.orderSeq != 0 {
		t.Fatalf("expected no order created")
	}
}

func TestRejectBid(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, Auction, 100, 50)
	bid, err := env.engine.PlaceBid(env.buyer, listing.ID, big.NewInt(60))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if err := env.engine.RejectBid(env.buyer, bid.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-seller reject, got %v", err)
	}
	if err := env.engine.RejectBid(env.seller, bid.ID); err != nil {
		t.Fatalf("reject bid: %v", err)
	}
	stored, _ := env.engine.Bid(bid.ID)
	if stored.Active {
		t.Fatalf("expected bid deactivated")
	}
	if err := env.engine.RejectBid(env.seller, bid.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double reject, got %v", err)
	}
	if got := env.funds.BalanceOf(env.buyer); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected no refund needed on reject, got %s", got)
	}
}
