package rbac

import "commonthread/internal/domain/org"

// TierDefinition ranks one membership tier. Higher levels include the
// privileges of every lower level.
type TierDefinition struct {
	Name  org.Tier
	Level int
}

type Config struct {
	Tiers []TierDefinition
	// Default is granted for operations that target no organization.
	Default org.Tier
}

// DefaultConfig is the visitor < user < admin < creator ordering.
func DefaultConfig() Config {
	return Config{
		Tiers: []TierDefinition{
			{Name: org.TierVisitor, Level: 0},
			{Name: org.TierUser, Level: 1},
			{Name: org.TierAdmin, Level: 2},
			{Name: org.TierCreator, Level: 3},
		},
		Default: org.TierUser,
	}
}
