package postgres

import (
	"context"

	"commonthread/internal/domain/user"
	apperrors "commonthread/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, name, first_name, last_name, email, city, bio, position, profile_key, created_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.FirstName, &u.LastName,
		&u.Email, &u.City, &u.Bio, &u.Position, &u.ProfileKey, &u.CreatedAt,
	)
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, input user.CreateUserInput) (*user.User, error) {
	query := `
		INSERT INTO users (username, password_hash, name, first_name, last_name, email, city, bio, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query,
		input.Username, input.PasswordHash, input.Name, input.FirstName, input.LastName,
		input.Email, input.City, input.Bio, input.Position,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errUsernameTaken).WithCode(apperrors.CodeDuplicateUser)
		}
		return nil, errFailedCreateUser(err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
		}
		return nil, errFailedGetUser(err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`

	u, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query, username))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
		}
		return nil, errFailedGetUser(err)
	}
	return u, nil
}

func (r *UserRepository) GetMany(ctx context.Context, ids []int64) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`

	rows, err := r.db.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, errFailedListUsers(err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errFailedScanUser(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListUsers(err)
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, input user.UpdateUserInput) error {
	query := `
		UPDATE users SET
			username      = COALESCE($2, username),
			password_hash = COALESCE($3, password_hash),
			name          = COALESCE($4, name),
			first_name    = COALESCE($5, first_name),
			last_name     = COALESCE($6, last_name),
			email         = COALESCE($7, email),
			city          = COALESCE($8, city),
			bio           = COALESCE($9, bio),
			position      = COALESCE($10, position),
			profile_key   = COALESCE($11, profile_key)
		WHERE id = $1
	`

	result, err := r.db.conn(ctx).Exec(ctx, query, id,
		input.Username, input.PasswordHash, input.Name, input.FirstName, input.LastName,
		input.Email, input.City, input.Bio, input.Position, input.ProfileKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(errUsernameTaken).WithCode(apperrors.CodeDuplicateUser)
		}
		return errFailedUpdateUser(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteUser(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errUserNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	return nil
}
