package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"commonthread/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Kind separates access tokens from refresh tokens. Each kind is signed with
// its own secret, so one can never be verified as the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrMalformed: not a JWT, or the subject is not a numeric id.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired: the signature verified but exp has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid: the signature does not verify or the algorithm is wrong.
	ErrInvalid = errors.New("invalid token")
)

type keyConfig struct {
	secret []byte
	ttl    time.Duration
}

// TokenService issues and verifies HS256 tokens carrying sub, iat and exp.
// It keeps no state between calls.
type TokenService struct {
	keys map[Kind]keyConfig
	now  func() time.Time
}

func NewTokenService(cfg *config.JWTConfig) *TokenService {
	return &TokenService{
		keys: map[Kind]keyConfig{
			KindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			KindRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		now: time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) key(kind Kind) (keyConfig, error) {
	k, ok := s.keys[kind]
	if !ok {
		return keyConfig{}, fmt.Errorf(errUnknownTokenKindFmt, kind)
	}
	return k, nil
}

func (s *TokenService) Issue(principalID int64, kind Kind) (string, error) {
	k, err := s.key(kind)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(principalID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf(errSignTokenFmt, err)
	}
	return signed, nil
}

func (s *TokenService) Verify(tokenString string, kind Kind) (int64, error) {
	k, err := s.key(kind)
	if err != nil {
		return 0, err
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(errUnexpectedSigningMethodFmt, token.Header["alg"])
		}
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, fmt.Errorf("%w: %w", ErrExpired, err)
		default:
			return 0, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return id, nil
}

// Refresh issues a new access token for the refresh token's subject. The
// refresh token itself is not rotated.
func (s *TokenService) Refresh(refreshToken string) (string, error) {
	id, err := s.Verify(refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	return s.Issue(id, KindAccess)
}

// Pair issues an access and a refresh token for principalID.
func (s *TokenService) Pair(principalID int64) (access, refresh string, err error) {
	if access, err = s.Issue(principalID, KindAccess); err != nil {
		return "", "", err
	}
	if refresh, err = s.Issue(principalID, KindRefresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
