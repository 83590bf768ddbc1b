package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const addressHexLength = 40

// Config seeds the marketplace deployment: the administrator, the verifier
// set, pre-verified sellers, subscription tier prices in USDC fixed point and
// any modules that should start paused.
type Config struct {
	Admin           string           `toml:"Admin"`
	Verifiers       []string         `toml:"Verifiers"`
	VerifiedSellers []string         `toml:"VerifiedSellers"`
	PausedModules   []string         `toml:"PausedModules"`
	TierPrices      map[string]int64 `toml:"TierPrices"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Verifiers == nil {
		c.Verifiers = []string{}
	}
	if c.VerifiedSellers == nil {
		c.VerifiedSellers = []string{}
	}
	if c.PausedModules == nil {
		c.PausedModules = []string{}
	}
	if c.TierPrices == nil {
		c.TierPrices = map[string]int64{}
	}
}

// Validate checks address formats and tier price sanity.
func (c *Config) Validate() error {
	if _, err := ParseAddress(c.Admin); err != nil {
		return fmt.Errorf("config: admin: %w", err)
	}
	for _, v := range c.Verifiers {
		if _, err := ParseAddress(v); err != nil {
			return fmt.Errorf("config: verifier %s: %w", v, err)
		}
	}
	for _, s := range c.VerifiedSellers {
		if _, err := ParseAddress(s); err != nil {
			return fmt.Errorf("config: seller %s: %w", s, err)
		}
	}
	for tier, price := range c.TierPrices {
		if price < 0 {
			return fmt.Errorf("config: tier %s: negative price", tier)
		}
	}
	return nil
}

// ParseAddress normalises and validates an address expressed as a hex string.
// The returned array always contains the raw 20-byte address.
func ParseAddress(ref string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return addr, fmt.Errorf("address required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != addressHexLength {
		return addr, fmt.Errorf("address must be 20 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}
