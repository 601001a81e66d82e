package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RegistrationTokenTTL is deliberately much longer than the login one,
	// so that a freshly registered admin can set the site up without
	// getting logged out mid-way.
	RegistrationTokenTTL = 30 * 24 * time.Hour
	LoginTokenTTL        = time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies signed admin tokens (JWT, HS256).
type TokenService struct {
	signingKey []byte

	// NowFunc is used instead of time.Now, overridable in tests
	NowFunc func() time.Time
}

func NewTokenService(signingKey []byte) *TokenService {
	return &TokenService{
		signingKey: signingKey,
		NowFunc:    time.Now,
	}
}

func (s *TokenService) Issue(username string, ttl time.Duration) (string, error) {
	now := s.NowFunc()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the username
// it was issued for. All failure modes collapse into ErrInvalidToken, the
// caller has no business knowing why exactly a token got rejected.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.NowFunc() }),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
