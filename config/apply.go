package config

import (
	"fmt"
	"math/big"
	"strings"

	"popmarket/native/access"
	"popmarket/native/subscription"
)

// Apply seeds the access registry and subscription oracle from the
// configuration, acting as the configured admin.
func Apply(cfg *Config, reg *access.Registry, subs *subscription.Oracle) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	admin, err := ParseAddress(cfg.Admin)
	if err != nil {
		return err
	}
	if reg != nil {
		for _, v := range cfg.Verifiers {
			addr, err := ParseAddress(v)
			if err != nil {
				return err
			}
			if err := reg.GrantRole(admin, access.RoleVerifier, addr); err != nil {
				return err
			}
		}
		for _, s := range cfg.VerifiedSellers {
			addr, err := ParseAddress(s)
			if err != nil {
				return err
			}
			if err := reg.SetVerifiedSeller(admin, addr, true); err != nil {
				return err
			}
		}
		for _, module := range cfg.PausedModules {
			if err := reg.SetPaused(admin, module, true); err != nil {
				return err
			}
		}
	}
	if subs != nil {
		for name, price := range cfg.TierPrices {
			tier, err := tierFromName(name)
			if err != nil {
				return err
			}
			if err := subs.SetTierPrice(tier, big.NewInt(price)); err != nil {
				return err
			}
		}
	}
	return nil
}

func tierFromName(name string) (subscription.Tier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "basic":
		return subscription.TierBasic, nil
	case "plus":
		return subscription.TierPlus, nil
	case "premium":
		return subscription.TierPremium, nil
	default:
		return subscription.TierNone, fmt.Errorf("config: unknown tier %s", name)
	}
}
