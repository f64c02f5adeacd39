// Package auth is the credential core: HS256 token issuance and
// verification, bcrypt password policy and a fail-secure revocation list.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const Issuer = "verisyntra-api"

// TokenType discriminates access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrWrongType     = errors.New("auth: wrong token type")
	ErrTokenRevoked  = errors.New("auth: token revoked")
	ErrWeakSecret    = errors.New("auth: signing secret too short")
	ErrBadCredential = errors.New("auth: invalid credentials")
)

// Claims is the token payload: registered claims plus the tenancy fields.
type Claims struct {
	TenantID string    `json:"tenant_id"`
	Role     string    `json:"role"`
	Type     TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates the secret and builds a service.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a token of the given type for the user.
func (s *TokenService) Issue(userID, tenantID, role string, typ TokenType) (string, time.Time, error) {
	ttl := s.accessTTL
	if typ == TokenRefresh {
		ttl = s.refreshTTL
	}
	now := s.now().UTC()
	expires := now.Add(ttl)
	claims := Claims{
		TenantID: tenantID,
		Role:     role,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Verify checks signature, expiry, issuer and the expected type.
func (s *TokenService) Verify(token string, want TokenType) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return Claims{}, fmt.Errorf("%w: got %s, want %s", ErrWrongType, claims.Type, want)
	}
	return claims, nil
}

// Remaining reports the token's remaining lifetime, zero when expired.
func (s *TokenService) Remaining(claims Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	rem := claims.ExpiresAt.Time.Sub(s.now())
	if rem < 0 {
		return 0
	}
	return rem
}
