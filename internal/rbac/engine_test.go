package rbac

import (
	"errors"
	"strings"
	"testing"

	"commonthread/internal/domain/org"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty tiers", func(c *Config) { c.Tiers = nil }, "tiers must not be empty"},
		{"duplicate name", func(c *Config) { c.Tiers[1].Name = org.TierVisitor }, "duplicate tier name"},
		{"duplicate level", func(c *Config) { c.Tiers[1].Level = 0 }, "duplicate tier level"},
		{"unknown tier", func(c *Config) { c.Tiers[0].Name = "owner" }, "invalid access tier"},
		{"missing default", func(c *Config) { c.Default = "" }, "default tier must not be empty"},
		{"undefined default", func(c *Config) { c.Tiers = c.Tiers[2:] }, "default tier is not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestMustNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { MustNew(Config{}) })
}

func TestAtLeastOrdering(t *testing.T) {
	c := MustNew(DefaultConfig())
	tiers := []org.Tier{org.TierVisitor, org.TierUser, org.TierAdmin, org.TierCreator}

	for i, granted := range tiers {
		for j, required := range tiers {
			assert.Equal(t, i >= j, c.AtLeast(granted, required), "%s >= %s", granted, required)
		}
	}

	assert.False(t, c.AtLeast("owner", org.TierVisitor))
	assert.False(t, c.AtLeast(org.TierCreator, "owner"))
}

func TestRequireTier(t *testing.T) {
	c := MustNew(DefaultConfig())

	assert.NoError(t, c.RequireTier(org.TierAdmin, org.TierAdmin))

	err := c.RequireTier(org.TierUser, org.TierAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDenied))
}

func TestParseTier(t *testing.T) {
	c := MustNew(DefaultConfig())

	tier, err := c.ParseTier("admin")
	require.NoError(t, err)
	assert.Equal(t, org.TierAdmin, tier)

	_, err = c.ParseTier("root")
	assert.ErrorIs(t, err, ErrUnknownTier)

	level, ok := c.Level(org.TierCreator)
	assert.True(t, ok)
	assert.Equal(t, 3, level)
}
