package postgres

import (
	"context"

	"commonthread/internal/domain/org"
	apperrors "commonthread/pkg/errors"
)

type OrgRepository struct {
	db *DB
}

func NewOrgRepository(db *DB) *OrgRepository {
	return &OrgRepository{db: db}
}

func (r *OrgRepository) Create(ctx context.Context, input org.CreateOrgInput) (*org.Organization, error) {
	query := `
		INSERT INTO organizations (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, profile_key
	`

	o := &org.Organization{}
	err := r.db.conn(ctx).QueryRow(ctx, query, input.Name, input.Description).Scan(
		&o.ID, &o.Name, &o.Description, &o.ProfileKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errOrgNameTaken).WithCode(apperrors.CodeDuplicateOrg)
		}
		return nil, errFailedCreateOrg(err)
	}
	return o, nil
}

func (r *OrgRepository) GetByID(ctx context.Context, id int64) (*org.Organization, error) {
	query := `SELECT id, name, description, profile_key FROM organizations WHERE id = $1`

	o := &org.Organization{}
	err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.Description, &o.ProfileKey)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
		}
		return nil, errFailedGetOrg(err)
	}
	return o, nil
}

func (r *OrgRepository) ListForUser(ctx context.Context, userID int64) ([]org.Summary, error) {
	query := `
		SELECT o.id, o.name, o.profile_key, m.tier
		FROM organizations o
		JOIN memberships m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.id
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, errFailedListOrgs(err)
	}
	defer rows.Close()

	var out []org.Summary
	for rows.Next() {
		var s org.Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.ProfileKey, &s.Tier); err != nil {
			return nil, errFailedScanOrg(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListOrgs(err)
	}
	return out, nil
}

func (r *OrgRepository) Update(ctx context.Context, id int64, input org.UpdateOrgInput) error {
	query := `
		UPDATE organizations SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			profile_key = COALESCE($4, profile_key)
		WHERE id = $1
	`

	result, err := r.db.conn(ctx).Exec(ctx, query, id, input.Name, input.Description, input.ProfileKey)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(errOrgNameTaken).WithCode(apperrors.CodeDuplicateOrg)
		}
		return errFailedUpdateOrg(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	return nil
}

func (r *OrgRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteOrg(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
	}
	return nil
}
