package market

import "errors"

// Every failure path of the marketplace engine maps to exactly one of these
// kinds so callers can branch on the specific failure; nothing falls back to a
// generic error.
var (
	ErrUnauthorized                 = errors.New("market: unauthorized")
	ErrInvalidListing               = errors.New("market: invalid listing")
	ErrInvalidOrder                 = errors.New("market: invalid order")
	ErrInvalidBid                   = errors.New("market: invalid bid")
	ErrInvalidState                 = errors.New("market: invalid state")
	ErrInsufficientBalance          = errors.New("market: insufficient balance")
	ErrInsufficientAllowance        = errors.New("market: insufficient allowance")
	ErrInvalidPrice                 = errors.New("market: invalid price")
	ErrBidderBlocked                = errors.New("market: bidder is blocked")
	ErrSubscriptionRequired         = errors.New("market: subscription required for sku")
	ErrInsufficientSubscriptionTier = errors.New("market: insufficient subscription tier for sku")
	ErrDeliveryFeesAlreadyPaid      = errors.New("market: delivery fees already paid")
	ErrNoFeesToWithdraw             = errors.New("market: no fees to withdraw")
)

var (
	errNilState   = errors.New("market engine: state not configured")
	errNilCatalog = errors.New("market engine: catalog not configured")
	errNilFunds   = errors.New("market engine: funds ledger not configured")
)
