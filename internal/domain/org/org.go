package org

import "fmt"

type Organization struct {
	ID          int64
	Name        string
	Description string
	ProfileKey  *string
}

type CreateOrgInput struct {
	Name        string
	Description string
	CreatorID   int64
}

type UpdateOrgInput struct {
	Name        *string
	Description *string
	ProfileKey  *string
}

// Tier is the access level a Membership grants inside one organization.
type Tier string

const (
	TierVisitor Tier = "visitor"
	TierUser    Tier = "user"
	TierAdmin   Tier = "admin"
	TierCreator Tier = "creator"

	errInvalidTierFmt = "invalid access tier: %s"
)

func (t Tier) Validate() error {
	switch t {
	case TierVisitor, TierUser, TierAdmin, TierCreator:
		return nil
	default:
		return fmt.Errorf(errInvalidTierFmt, t)
	}
}

// Membership is the edge between a user and an organization. At most one
// exists per (UserID, OrgID).
type Membership struct {
	UserID int64
	OrgID  int64
	Tier   Tier
}

// Member is a membership joined with the user's display name.
type Member struct {
	UserID   int64
	UserName string
	Tier     Tier
}

// Summary is an organization as listed on a user's profile.
type Summary struct {
	ID         int64
	Name       string
	ProfileKey *string
	Tier       Tier
}
