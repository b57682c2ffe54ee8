package postgres

import (
	"context"

	"commonthread/internal/domain/org"
	apperrors "commonthread/pkg/errors"
)

type MembershipRepository struct {
	db *DB
}

func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Add(ctx context.Context, m org.Membership) error {
	query := `INSERT INTO memberships (user_id, org_id, tier) VALUES ($1, $2, $3)`

	if _, err := r.db.conn(ctx).Exec(ctx, query, m.UserID, m.OrgID, m.Tier); err != nil {
		switch {
		case isUniqueViolation(err):
			return apperrors.Conflict(errMemberExists)
		case isForeignKeyViolation(err):
			return apperrors.NotFound(errMemberRefMissing)
		}
		return errFailedAddMember(err)
	}
	return nil
}

func (r *MembershipRepository) Get(ctx context.Context, orgID, userID int64) (*org.Membership, error) {
	query := `SELECT user_id, org_id, tier FROM memberships WHERE org_id = $1 AND user_id = $2`

	m := &org.Membership{}
	if err := r.db.conn(ctx).QueryRow(ctx, query, orgID, userID).Scan(&m.UserID, &m.OrgID, &m.Tier); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errMemberNotFound)
		}
		return nil, errFailedGetMember(err)
	}
	return m, nil
}

func (r *MembershipRepository) ListMembers(ctx context.Context, orgID int64) ([]org.Member, error) {
	query := `
		SELECT u.id, u.name, m.tier
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY u.id
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, orgID)
	if err != nil {
		return nil, errFailedListMembers(err)
	}
	defer rows.Close()

	var members []org.Member
	for rows.Next() {
		var m org.Member
		if err := rows.Scan(&m.UserID, &m.UserName, &m.Tier); err != nil {
			return nil, errFailedScanMember(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListMembers(err)
	}
	return members, nil
}

func (r *MembershipRepository) UpdateTier(ctx context.Context, orgID, userID int64, tier org.Tier) error {
	query := `UPDATE memberships SET tier = $3 WHERE org_id = $1 AND user_id = $2`

	result, err := r.db.conn(ctx).Exec(ctx, query, orgID, userID, tier)
	if err != nil {
		return errFailedUpdateMemberTier(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errMemberNotFound)
	}
	return nil
}

func (r *MembershipRepository) Remove(ctx context.Context, orgID, userID int64) error {
	query := `DELETE FROM memberships WHERE org_id = $1 AND user_id = $2`

	result, err := r.db.conn(ctx).Exec(ctx, query, orgID, userID)
	if err != nil {
		return errFailedRemoveMember(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errMemberNotFound)
	}
	return nil
}
