package subscription

import (
	"errors"
	"math/big"
	"sync"
	"time"
)

// Tier is the subscription level gating which SKUs an account may purchase or
// bid on. The zero value means no entitlement at all.
type Tier uint8

const (
	TierNone Tier = iota
	TierBasic
	TierPlus
	TierPremium

	// NumTiers bounds the enum for fixed-size tier-indexed arrays.
	NumTiers = int(TierPremium) + 1
)

// Valid reports whether the tier value is within the supported range.
func (t Tier) Valid() bool {
	switch t {
	case TierNone, TierBasic, TierPlus, TierPremium:
		return true
	default:
		return false
	}
}

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBasic:
		return "basic"
	case TierPlus:
		return "plus"
	case TierPremium:
		return "premium"
	default:
		return "invalid"
	}
}

var (
	ErrInvalidTier     = errors.New("subscription: invalid tier")
	ErrInvalidDuration = errors.New("subscription: invalid duration")
	ErrNotSubscribed   = errors.New("subscription: no active subscription")
)

// Subscription captures a user's current entitlement.
type Subscription struct {
	Tier         Tier
	ExpiresAt    int64
	Active       bool
	CurrentPrice *big.Int
}

// Clone returns a deep copy of the subscription.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	clone := *s
	if s.CurrentPrice != nil {
		clone.CurrentPrice = new(big.Int).Set(s.CurrentPrice)
	} else {
		clone.CurrentPrice = big.NewInt(0)
	}
	return &clone
}

// Oracle answers "is this user entitled to buy" for the marketplace. Prices
// are tier-indexed in USDC fixed point; exhaustiveness over the tier enum is
// enforced by the fixed-size array rather than runtime range checks.
type Oracle struct {
	mu         sync.Mutex
	subs       map[[20]byte]*Subscription
	tierPrices [NumTiers]*big.Int
	nowFn      func() int64
}

// NewOracle constructs an oracle with zeroed tier prices.
func NewOracle() *Oracle {
	o := &Oracle{
		subs:  make(map[[20]byte]*Subscription),
		nowFn: func() int64 { return time.Now().Unix() },
	}
	for i := range o.tierPrices {
		o.tierPrices[i] = big.NewInt(0)
	}
	return o
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (o *Oracle) SetNowFunc(now func() int64) {
	if now == nil {
		o.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	o.nowFn = now
}

func (o *Oracle) now() int64 {
	if o == nil || o.nowFn == nil {
		return time.Now().Unix()
	}
	return o.nowFn()
}

// SetTierPrice configures the current price for a tier.
func (o *Oracle) SetTierPrice(tier Tier, price *big.Int) error {
	if !tier.Valid() {
		return ErrInvalidTier
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if price == nil {
		o.tierPrices[tier] = big.NewInt(0)
		return nil
	}
	o.tierPrices[tier] = new(big.Int).Set(price)
	return nil
}

// TierPrice returns the configured price for a tier.
func (o *Oracle) TierPrice(tier Tier) (*big.Int, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return new(big.Int).Set(o.tierPrices[tier]), nil
}

// Subscribe starts or upgrades a subscription for the user, expiring after the
// supplied duration in seconds.
func (o *Oracle) Subscribe(user [20]byte, tier Tier, durationSecs int64) error {
	if !tier.Valid() || tier == TierNone {
		return ErrInvalidTier
	}
	if durationSecs <= 0 {
		return ErrInvalidDuration
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	o.subs[user] = &Subscription{
		Tier:         tier,
		ExpiresAt:    now + durationSecs,
		Active:       true,
		CurrentPrice: new(big.Int).Set(o.tierPrices[tier]),
	}
	return nil
}

// Renew extends an existing subscription from its current expiry, or from now
// if it has already lapsed.
func (o *Oracle) Renew(user [20]byte, durationSecs int64) error {
	if durationSecs <= 0 {
		return ErrInvalidDuration
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	sub, ok := o.subs[user]
	if !ok || !sub.Active {
		return ErrNotSubscribed
	}
	now := o.now()
	start := sub.ExpiresAt
	if start < now {
		start = now
	}
	sub.ExpiresAt = start + durationSecs
	sub.CurrentPrice = new(big.Int).Set(o.tierPrices[sub.Tier])
	return nil
}

// Cancel deactivates the user's subscription immediately.
func (o *Oracle) Cancel(user [20]byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	sub, ok := o.subs[user]
	if !ok || !sub.Active {
		return ErrNotSubscribed
	}
	sub.Active = false
	return nil
}

// GetSubscription returns the user's subscription. The Active flag reflects
// both the stored flag and the expiry compared against the oracle clock; a
// user with no record reports ok=false.
func (o *Oracle) GetSubscription(user [20]byte) (Subscription, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sub, ok := o.subs[user]
	if !ok {
		return Subscription{CurrentPrice: big.NewInt(0)}, false
	}
	clone := sub.Clone()
	if clone.ExpiresAt <= o.now() {
		clone.Active = false
	}
	return *clone, true
}
