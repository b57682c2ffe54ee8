package rbac

import (
	"fmt"

	"commonthread/internal/domain/org"
)

// Checker orders tiers according to a validated Config
type Checker struct {
	config    Config
	tierIndex map[org.Tier]int
}

// New creates a Checker from a validated Config
func New(cfg Config) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Checker{config: cfg, tierIndex: make(map[org.Tier]int, len(cfg.Tiers))}
	for _, td := range cfg.Tiers {
		c.tierIndex[td.Name] = td.Level
	}
	return c, nil
}

// MustNew creates a Checker and panics on invalid config
func MustNew(cfg Config) *Checker {
	c, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return c
}

// Default is the tier granted when no organization is involved.
func (c *Checker) Default() org.Tier {
	return c.config.Default
}

// Level returns the rank of tier, or false for unknown tiers.
func (c *Checker) Level(tier org.Tier) (int, bool) {
	level, ok := c.tierIndex[tier]
	return level, ok
}

// AtLeast reports whether granted ranks equal to or above required. Unknown
// tiers never satisfy a check.
func (c *Checker) AtLeast(granted, required org.Tier) bool {
	g, ok1 := c.tierIndex[granted]
	r, ok2 := c.tierIndex[required]
	if !ok1 || !ok2 {
		return false
	}
	return g >= r
}

// RequireTier returns an error wrapping ErrDenied when granted is below
// required.
func (c *Checker) RequireTier(granted, required org.Tier) error {
	if !c.AtLeast(granted, required) {
		return fmt.Errorf(errDeniedMinTierRequiredFmt, ErrDenied, required, granted)
	}
	return nil
}

// ParseTier validates a tier string against configured tiers
func (c *Checker) ParseTier(value string) (org.Tier, error) {
	t := org.Tier(value)
	if _, ok := c.tierIndex[t]; ok {
		return t, nil
	}
	return "", fmt.Errorf(errUnknownTierFmt, ErrUnknownTier, value)
}
