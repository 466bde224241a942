// Package auth verifies bearer credentials and carries the resulting
// principal through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oggyb/catmatch/internal/config"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UID   string
	Email string
	Name  string
}

// Verifier validates a bearer credential against the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens minted by the identity provider with a
// shared secret. The principal id is the "sub" claim.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTVerifier(cfg *config.Config) *JWTVerifier {
	return &JWTVerifier{
		secret:   []byte(cfg.Auth.Secret),
		issuer:   cfg.Auth.Issuer,
		audience: cfg.Auth.Audience,
	}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var c claims
	t, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || c.Subject == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UID: c.Subject, Email: c.Email, Name: c.Name}, nil
}

// Signer mints tokens the JWTVerifier accepts. Used by the dev CLI and tests;
// production tokens come from the identity provider.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewSigner(cfg *config.Config) *Signer {
	return &Signer{
		secret:   []byte(cfg.Auth.Secret),
		issuer:   cfg.Auth.Issuer,
		audience: cfg.Auth.Audience,
		ttl:      cfg.Auth.TokenTTL,
		now:      time.Now,
	}
}

// Sign issues a token for p. A zero TTL yields a token without expiry.
func (s *Signer) Sign(p Principal) (string, error) {
	if p.UID == "" {
		return "", errors.New("principal uid is required")
	}

	now := s.now()
	c := claims{
		Email: p.Email,
		Name:  p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.UID,
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.audience != "" {
		c.Audience = jwt.ClaimStrings{s.audience}
	}
	if s.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}
