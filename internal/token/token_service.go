package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers bad signatures, malformed tokens and expiry.
// Callers treat every verification failure the same way, so the cause is
// deliberately not distinguished.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service issues and verifies the two token kinds. Access and refresh
// tokens are signed with independent secrets, so an access token can never
// pass refresh verification or vice versa.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewService(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *Service) IssueAccessToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, s.accessSecret, s.accessExpiry)
}

func (s *Service) IssueRefreshToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, s.refreshSecret, s.refreshExpiry)
}

func (s *Service) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	return s.verify(tokenString, s.accessSecret)
}

func (s *Service) VerifyRefreshToken(tokenString string) (uuid.UUID, error) {
	return s.verify(tokenString, s.refreshSecret)
}

func (s *Service) issue(userID uuid.UUID, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	// The jti makes every token unique even when two are issued within
	// the same second, so rotation always replaces the stored value.
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *Service) verify(tokenString string, secret []byte) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
