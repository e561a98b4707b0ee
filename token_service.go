package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the access token lifetime.
const DefaultTokenTTL = 7 * 24 * time.Hour

// MinSigningKeyLength is the shortest HMAC secret accepted.
const MinSigningKeyLength = 32

// TokenService issues and verifies access tokens
type TokenService interface {
	Issue(account *Account) (token string, expiresAt time.Time, err error)
	Verify(token string) (*TokenIdentity, error)
}

// TokenServiceOption customizes the token service.
type TokenServiceOption func(*tokenService)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *tokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *tokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

type tokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a new HS256 TokenService. A zero ttl uses
// DefaultTokenTTL.
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, audience []string, opts ...TokenServiceOption) (TokenService, error) {
	if len(signingKey) == 0 {
		return nil, goerrors.New("signing key is required", goerrors.CategoryBadInput)
	}

	if ttl < 0 {
		return nil, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	ts := &tokenService{
		signingKey: append([]byte(nil), signingKey...),
		ttl:        ttl,
		issuer:     issuer,
		audience:   jwt.ClaimStrings(audience),
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds a token service from Config.
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) (TokenService, error) {
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenTTL(), cfg.GetIssuer(), cfg.GetAudience(), opts...)
}

// Issue signs a token for account
func (ts *tokenService) Issue(account *Account) (string, time.Time, error) {
	if account == nil || account.ID == uuid.Nil {
		return "", time.Time{}, goerrors.New("account is required", goerrors.CategoryBadInput)
	}

	// JWT dates have second precision
	now := ts.now().Truncate(time.Second)
	expiresAt := now.Add(ts.ttl)

	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:   account.ID.String(),
		Email: account.Email,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, wrapInternal(err, "sign token")
	}

	return signed, expiresAt, nil
}

// Verify parses and validates a token string. Expired tokens return
// ErrTokenExpired, anything else that fails returns ErrTokenInvalid.
func (ts *tokenService) Verify(tokenString string) (*TokenIdentity, error) {
	if tokenString == "" {
		return nil, withMeta(ErrTokenInvalid, map[string]any{"reason": "empty token"})
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.Clone()
		}
		clone := ErrTokenInvalid.Clone()
		clone.Source = err
		return nil, clone
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, withMeta(ErrTokenInvalid, map[string]any{"reason": "unable to decode claims"})
	}

	if !audienceAccepted(claims.Audience, ts.audience) {
		return nil, withMeta(ErrTokenInvalid, map[string]any{"reason": "audience mismatch"})
	}

	id, err := uuid.Parse(claims.AccountID())
	if err != nil || claims.Email == "" {
		return nil, withMeta(ErrTokenInvalid, map[string]any{"reason": "missing identity claims"})
	}

	return &TokenIdentity{
		AccountID: id,
		Email:     claims.Email,
		IssuedAt:  claims.Issued(),
		ExpiresAt: claims.Expires(),
	}, nil
}
