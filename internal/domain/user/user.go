package user

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Name         string
	FirstName    string
	LastName     string
	Email        string
	City         string
	Bio          string
	Position     string
	ProfileKey   *string
	CreatedAt    time.Time
}

type CreateUserInput struct {
	Username     string
	PasswordHash string
	Name         string
	FirstName    string
	LastName     string
	Email        string
	City         string
	Bio          string
	Position     string
}

// UpdateUserInput carries only the fields being changed.
type UpdateUserInput struct {
	Username     *string
	PasswordHash *string
	Name         *string
	FirstName    *string
	LastName     *string
	Email        *string
	City         *string
	Bio          *string
	Position     *string
	ProfileKey   *string
}
