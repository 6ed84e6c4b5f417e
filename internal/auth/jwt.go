// Package auth issues and verifies the board's session tokens.
//
// A session is an access/refresh pair of HS256-signed JWTs. Both carry the
// internal member id as "sub" and a "kind" claim so a refresh token can never
// be presented as an access token (or the other way round). Every token gets a
// fresh "jti", so two pairs issued in the same second still differ.
//
// Signature and expiry are necessary but not sufficient: the identity service
// additionally requires the token to equal the member's stored pair, which is
// what makes an upsert revoke the previous tokens immediately.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// ErrInvalidToken is returned for any token that fails parsing, signature,
// issuer, expiry, or kind checks.
var ErrInvalidToken = errors.New("auth: invalid token")

// ErrExpiredToken is returned when an otherwise valid token has expired.
// It wraps ErrInvalidToken.
var ErrExpiredToken = fmt.Errorf("%w: expired", ErrInvalidToken)

// Claims is the JWT payload.
type Claims struct {
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// MemberID returns the subject parsed as an internal member id.
func (c *Claims) MemberID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}

// Pair is a freshly issued session.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Options configures a TokenService.
type Options struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates opts and builds a TokenService.
func NewTokenService(opts Options) (*TokenService, error) {
	if len(opts.Secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}
	if opts.Issuer == "" {
		opts.Issuer = "go-board-backend"
	}
	return &TokenService{
		secret:     []byte(opts.Secret),
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a new access/refresh pair for memberID.
func (s *TokenService) Issue(memberID uint, role string) (Pair, error) {
	now := s.now()
	sub := strconv.FormatUint(uint64(memberID), 10)

	access, err := s.sign(Claims{
		Kind:             KindAccess,
		Role:             role,
		RegisteredClaims: s.registered(sub, now, s.accessTTL),
	})
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.sign(Claims{
		Kind:             KindRefresh,
		RegisteredClaims: s.registered(sub, now, s.refreshTTL),
	})
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

// ParseAccess verifies an access token and returns its claims.
func (s *TokenService) ParseAccess(token string) (*Claims, error) {
	return s.parse(token, KindAccess)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (s *TokenService) ParseRefresh(token string) (*Claims, error) {
	return s.parse(token, KindRefresh)
}

func (s *TokenService) registered(sub string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   sub,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *TokenService) sign(c Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenStr, kind string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	if _, err := c.MemberID(); err != nil {
		return nil, err
	}
	return c, nil
}
