package market_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"popmarket/core/state"
	"popmarket/native/access"
	"popmarket/native/bank"
	"popmarket/native/catalog"
	"popmarket/native/custody"
	"popmarket/native/inventory"
	"popmarket/native/market"
	"popmarket/native/subscription"
)

const (
	skuID = uint64(1)
	size  = "42"
)

type harness struct {
	engine    *market.Engine
	registry  *access.Registry
	catalog   *catalog.Registry
	custody   *custody.Token
	inventory *inventory.Ledger
	bank      *bank.Ledger
	subs      *subscription.Oracle
	admin     [20]byte
	verifier  [20]byte
	seller    [20]byte
	buyer     [20]byte
}

// newHarness wires the concrete engines the way a deployment does: one access
// registry shared by every module, a custody token bound to the SKU through
// the catalog and the stablecoin ledger funding the buyer.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		admin:    [20]byte{0x01},
		verifier: [20]byte{0x02},
		seller:   [20]byte{0x03},
		buyer:    [20]byte{0x04},
	}
	h.registry = access.NewRegistry(h.admin)
	require.NoError(t, h.registry.GrantRole(h.admin, access.RoleVerifier, h.verifier))
	require.NoError(t, h.registry.SetVerifiedSeller(h.admin, h.seller, true))

	h.subs = subscription.NewOracle()
	h.subs.SetNowFunc(func() int64 { return 1_700_000_000 })
	require.NoError(t, h.subs.SetTierPrice(subscription.TierPremium, big.NewInt(50_000_000)))
	require.NoError(t, h.subs.Subscribe(h.buyer, subscription.TierPremium, 3_600))

	h.inventory = inventory.NewLedger(h.registry)
	require.NoError(t, h.inventory.Add(h.seller, skuID, size, 2))
	require.NoError(t, h.inventory.Verify(h.verifier, h.seller, skuID, size, 2))

	h.custody = custody.NewToken(skuID, h.registry)
	require.NoError(t, h.custody.AddSize(h.admin, size))
	require.NoError(t, h.custody.Mint(h.admin, h.seller, size, 2))

	h.catalog = catalog.NewRegistry(h.registry)
	require.NoError(t, h.catalog.RegisterSKU(h.admin, &catalog.SKU{
		ID:        skuID,
		Brand:     "Apex",
		Model:     "Court Classic",
		BasePrice: big.NewInt(150_000_000),
	}, h.custody))
	require.NoError(t, h.catalog.SetTierAccess(h.admin, skuID, subscription.TierPremium, true))

	h.bank = bank.NewLedger(h.registry)

	h.engine = market.NewEngine()
	h.engine.SetState(state.NewManager())
	h.engine.SetAccess(h.registry)
	h.engine.SetCatalog(h.catalog)
	h.engine.SetSubscriptions(h.subs)
	h.engine.SetFunds(h.bank)
	h.engine.SetPauses(h.registry)
	h.engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	require.NoError(t, h.bank.Mint(h.admin, h.buyer, big.NewInt(200_000_000)))
	require.NoError(t, h.bank.Approve(h.buyer, h.engine.Vault(), big.NewInt(200_000_000)))
	return h
}

func TestDirectSaleDeliveryFlow(t *testing.T) {
	h := newHarness(t)
	price := big.NewInt(150_000_000)

	listing, err := h.engine.CreateListing(h.seller, skuID, size, price, market.DirectSale, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.engine.LockedInventory(listing.ID))
	require.Equal(t, uint64(1), h.custody.SellerInventory(h.seller, size))
	require.Equal(t, uint64(1), h.custody.EscrowedInventory(h.seller, size))

	order, err := h.engine.Purchase(h.buyer, listing.ID)
	require.NoError(t, err)
	require.Equal(t, market.OrderCreated, order.State)
	require.Zero(t, price.Cmp(h.engine.OrderEscrow(order.ID)))
	require.Zero(t, price.Cmp(h.bank.BalanceOf(h.engine.Vault())))

	require.NoError(t, h.engine.PayDeliveryFees(h.buyer, order.ID, big.NewInt(10_000_000)))
	require.True(t, h.engine.OrderFeesPaid(order.ID))

	require.NoError(t, h.engine.ConfirmDelivery(h.verifier, order.ID))
	settled, ok := h.engine.Order(order.ID)
	require.True(t, ok)
	require.Equal(t, market.OrderDelivered, settled.State)
	require.Zero(t, h.engine.OrderEscrow(order.ID).Sign())
	require.Equal(t, uint64(0), h.engine.LockedInventory(listing.ID))
	require.Equal(t, uint64(1), h.custody.SellerInventory(h.buyer, size))

	withdrawn, err := h.engine.WithdrawFunds(h.seller)
	require.NoError(t, err)
	require.Zero(t, price.Cmp(withdrawn))
	require.Zero(t, price.Cmp(h.bank.BalanceOf(h.seller)))

	fees, err := h.engine.WithdrawDeliveryFees(h.admin)
	require.NoError(t, err)
	require.Zero(t, big.NewInt(10_000_000).Cmp(fees))
	require.Zero(t, h.bank.BalanceOf(h.engine.Vault()).Sign())
	require.Zero(t, big.NewInt(40_000_000).Cmp(h.bank.BalanceOf(h.buyer)))
}

func TestAuctionCancelRefundFlow(t *testing.T) {
	h := newHarness(t)
	rival := [20]byte{0x05}
	require.NoError(t, h.subs.Subscribe(rival, subscription.TierPremium, 3_600))
	require.NoError(t, h.bank.Mint(h.admin, rival, big.NewInt(100_000_000)))
	require.NoError(t, h.bank.Approve(rival, h.engine.Vault(), big.NewInt(100_000_000)))

	listing, err := h.engine.CreateListing(h.seller, skuID, size, big.NewInt(150_000_000), market.Auction, big.NewInt(80_000_000))
	require.NoError(t, err)

	winner, err := h.engine.PlaceBid(h.buyer, listing.ID, big.NewInt(120_000_000))
	require.NoError(t, err)
	loser, err := h.engine.PlaceBid(rival, listing.ID, big.NewInt(90_000_000))
	require.NoError(t, err)

	order, err := h.engine.AcceptBid(h.seller, winner.ID)
	require.NoError(t, err)
	require.Zero(t, big.NewInt(120_000_000).Cmp(h.engine.OrderEscrow(order.ID)))
	require.Zero(t, big.NewInt(100_000_000).Cmp(h.bank.BalanceOf(rival)))

	require.NoError(t, h.engine.RejectBid(h.seller, loser.ID))
	rejected, ok := h.engine.Bid(loser.ID)
	require.True(t, ok)
	require.False(t, rejected.Active)

	require.NoError(t, h.engine.CancelOrder(h.verifier, order.ID))
	cancelled, ok := h.engine.Order(order.ID)
	require.True(t, ok)
	require.Equal(t, market.OrderCancelled, cancelled.State)
	require.Equal(t, uint64(2), h.custody.SellerInventory(h.seller, size))

	refund, err := h.engine.WithdrawFunds(h.buyer)
	require.NoError(t, err)
	require.Zero(t, big.NewInt(120_000_000).Cmp(refund))
	require.Zero(t, big.NewInt(200_000_000).Cmp(h.bank.BalanceOf(h.buyer)))
	require.Zero(t, h.bank.BalanceOf(h.engine.Vault()).Sign())
}

func TestBidderBlockingFlow(t *testing.T) {
	h := newHarness(t)
	listing, err := h.engine.CreateListing(h.seller, skuID, size, big.NewInt(150_000_000), market.Auction, big.NewInt(80_000_000))
	require.NoError(t, err)

	require.NoError(t, h.engine.BlockBidder(h.seller, listing.ID, h.buyer))
	_, err = h.engine.PlaceBid(h.buyer, listing.ID, big.NewInt(90_000_000))
	require.ErrorIs(t, err, market.ErrBidderBlocked)

	require.NoError(t, h.engine.UnblockBidder(h.seller, listing.ID, h.buyer))
	_, err = h.engine.PlaceBid(h.buyer, listing.ID, big.NewInt(90_000_000))
	require.NoError(t, err)
}

func TestModulePauseFromRegistry(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.registry.SetPaused(h.admin, "market", true))
	_, err := h.engine.CreateListing(h.seller, skuID, size, big.NewInt(150_000_000), market.DirectSale, nil)
	require.Error(t, err)

	require.NoError(t, h.registry.SetPaused(h.admin, "market", false))
	listing, err := h.engine.CreateListing(h.seller, skuID, size, big.NewInt(150_000_000), market.DirectSale, nil)
	require.NoError(t, err)

	// The market-local pause switch is independent of the registry switch.
	require.NoError(t, h.engine.Pause(h.verifier))
	_, err = h.engine.Purchase(h.buyer, listing.ID)
	require.Error(t, err)
	require.NoError(t, h.engine.Unpause(h.verifier))
	_, err = h.engine.Purchase(h.buyer, listing.ID)
	require.NoError(t, err)
}
