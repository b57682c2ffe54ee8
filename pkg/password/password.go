package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the recommended bcrypt cost (12)
	DefaultCost        = 12
	errPasswordEmpty   = "password cannot be empty"
	errHashPasswordFmt = "failed to hash password: %w"
	errInvalidCostFmt  = "bcrypt cost %d out of range [%d, %d]"
)

// Pre-computed bcrypt hash (cost 12) compared against when the account does
// not exist, so that a missing username costs the same as a wrong password.
const dummyHash = "$2a$12$dWR5CQpS4zNHLavLSIr4o.P6QDQEUJKv7mJ7WekUHHqyRSRMJzH0S"

// Hasher hashes and verifies account passwords.
type Hasher struct {
	cost int
}

func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf(errInvalidCostFmt, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

func (h *Hasher) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", fmt.Errorf(errPasswordEmpty)
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf(errHashPasswordFmt, err)
	}

	return string(bytes), nil
}

// Verify reports whether password matches hash. An empty hash is compared
// against the dummy hash and always fails.
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
