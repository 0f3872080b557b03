// Package auth issues and verifies the bearer tokens that wrap every
// authenticated call. Tokens are self-contained HS256 JWTs; nothing is
// stored server-side, so a token stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/gifbox/internal/rpc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTokenLifetime = 24 * time.Hour

var (
	ErrExpiredToken      = errors.New("token has expired")
	ErrInvalidSignature  = errors.New("token signature is invalid")
	ErrMalformedToken    = errors.New("token is malformed")
	ErrInsufficientScope = errors.New("token scope is insufficient")
	ErrEmptyScope        = errors.New("scope must not be empty")
)

var errInvalidClaims = errors.New("claims violate session invariants")

// Claims is the session claim carried inside a token.
type Claims struct {
	Handle string      `json:"handle,omitempty"`
	Scope  []rpc.Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims pass.
func (c *Claims) Validate() error {
	if _, err := uuid.Parse(c.Subject); err != nil {
		return fmt.Errorf("%w: subject is not a user id", errInvalidClaims)
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil || !c.ExpiresAt.After(c.IssuedAt.Time) {
		return fmt.Errorf("%w: expiry must follow issue time", errInvalidClaims)
	}
	if len(c.Scope) == 0 {
		return fmt.Errorf("%w: empty scope", errInvalidClaims)
	}
	for _, s := range c.Scope {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown scope %q", errInvalidClaims, s)
		}
	}
	return nil
}

func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}

func (c *Claims) HasScope(scope rpc.Scope) bool {
	for _, s := range c.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// Token is a signed session claim ready to hand to a client.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Scope     []rpc.Scope
}

type Authority struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Authority)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		a.now = now
	}
}

func NewAuthority(secret string, lifetime time.Duration, opts ...Option) (*Authority, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	a := &Authority{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Authority) Lifetime() time.Duration {
	return a.lifetime
}

// Issue signs a claim for userID with the given scope.
func (a *Authority) Issue(userID uuid.UUID, handle string, scope []rpc.Scope) (*Token, error) {
	scope = dedupe(scope)
	if len(scope) == 0 {
		return nil, ErrEmptyScope
	}
	for _, s := range scope {
		if !s.Valid() {
			return nil, fmt.Errorf("unknown scope %q", s)
		}
	}

	issuedAt := a.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(a.lifetime)

	claims := &Claims{
		Handle: handle,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Scope:     scope,
	}, nil
}

// Validate verifies the signature and expiry of a token and returns its
// claim. Errors are ErrExpiredToken, ErrInvalidSignature or ErrMalformedToken.
func (a *Authority) Validate(value string) (*Claims, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// Authorize fails with ErrInsufficientScope unless claims carry required.
func (a *Authority) Authorize(claims *Claims, required rpc.Scope) error {
	if required == "" {
		return nil
	}
	if claims == nil || !claims.HasScope(required) {
		return fmt.Errorf("%w: %s required", ErrInsufficientScope, required)
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

func dedupe(scope []rpc.Scope) []rpc.Scope {
	out := make([]rpc.Scope, 0, len(scope))
	seen := make(map[rpc.Scope]bool, len(scope))
	for _, s := range scope {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
