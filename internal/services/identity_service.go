// Package services – IdentityService
//
// IdentityService reconciles external OAuth identities to internal members
// and manages each member's single active session (an access/refresh token
// pair). The stored pair is authoritative: a bearer token is accepted only
// while it equals the stored one, so writing a new pair revokes the old one
// immediately.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/auth"
	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/observability"
	"github.com/tbourn/go-board-backend/internal/repo"
)

// TokenIssuer signs and verifies session tokens. *auth.TokenService
// satisfies it.
type TokenIssuer interface {
	Issue(memberID uint, role string) (auth.Pair, error)
	ParseAccess(token string) (*auth.Claims, error)
	ParseRefresh(token string) (*auth.Claims, error)
}

// OAuthProfile is what the OAuth provider told us about the user.
type OAuthProfile struct {
	Identifier string
	Provider   string
	Nickname   string
}

// AuthenticatedMember is a resolved member.
type AuthenticatedMember struct {
	MemberID uint
	Role     string
	Nickname string
	Created  bool
}

// Session is a member plus a freshly issued token pair.
type Session struct {
	Member AuthenticatedMember
	Tokens auth.Pair
}

// IdentityService implements member reconciliation and session handling.
type IdentityService struct {
	Tx     TxRunner
	Tokens TokenIssuer

	// DefaultRole is the role type given to newly created members.
	DefaultRole string
}

// ReconcileMember maps an OAuth identity to a member, creating one on first
// sight with the default role. A known identifier presented with a
// different provider is rejected and nothing is written. An existing member
// row is never modified here.
//
// Errors: ErrInvalidIdentity, ErrIdentityMismatch, ErrRoleNotConfigured,
// ErrConflict.
func (s *IdentityService) ReconcileMember(ctx context.Context, p OAuthProfile) (*AuthenticatedMember, error) {
	ctx, span := observability.Tracer("services/IdentityService").Start(ctx, "ReconcileMember",
		trace.WithAttributes(attribute.String("oauth.provider", p.Provider)),
	)
	defer span.End()

	if strings.TrimSpace(p.Identifier) == "" || strings.TrimSpace(p.Provider) == "" {
		return nil, ErrInvalidIdentity
	}

	var out *AuthenticatedMember
	err := s.Tx.Run(ctx, func(tx *gorm.DB) error {
		m, err := repo.FindMemberByOAuthIdentifier(ctx, tx, p.Identifier)
		switch {
		case err == nil:
			if m.OAuthIdentifier != p.Identifier || m.OAuthProvider != p.Provider {
				return ErrIdentityMismatch
			}
			out = &AuthenticatedMember{MemberID: m.ID, Role: m.Role.RoleType, Nickname: m.Nickname}
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		role, err := repo.FindRoleByType(ctx, tx, s.DefaultRole)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRoleNotConfigured
		}
		if err != nil {
			return err
		}

		m = &domain.Member{
			OAuthIdentifier: p.Identifier,
			OAuthProvider:   p.Provider,
			Nickname:        strings.TrimSpace(p.Nickname),
			RoleID:          role.ID,
		}
		if err := repo.CreateMember(ctx, tx, m); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				// Someone created it concurrently; the retry will find it.
				return ErrConflict
			}
			return err
		}
		out = &AuthenticatedMember{MemberID: m.ID, Role: role.RoleType, Nickname: m.Nickname, Created: true}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if out.Created {
		zerolog.Ctx(ctx).Info().Uint("member_id", out.MemberID).Str("provider", p.Provider).Msg("member created")
	}
	return out, nil
}

// UpsertSessionToken stores access/refresh as memberID's active pair,
// replacing any previous pair.
//
// Errors: ErrMemberNotFound.
func (s *IdentityService) UpsertSessionToken(ctx context.Context, memberID uint, access, refresh string) error {
	ctx, span := observability.Tracer("services/IdentityService").Start(ctx, "UpsertSessionToken",
		trace.WithAttributes(attribute.Int64("member.id", int64(memberID))),
	)
	defer span.End()

	return s.Tx.Run(ctx, func(tx *gorm.DB) error {
		return upsertToken(ctx, tx, memberID, access, refresh)
	})
}

func upsertToken(ctx context.Context, tx *gorm.DB, memberID uint, access, refresh string) error {
	if _, err := repo.GetMemberToken(ctx, tx, memberID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err := requireMember(ctx, tx, memberID); err != nil {
			return err
		}
	}
	return repo.UpsertMemberToken(ctx, tx, memberID, access, refresh)
}

// Login reconciles p, issues a new token pair and makes it the member's
// active session.
func (s *IdentityService) Login(ctx context.Context, p OAuthProfile) (*Session, error) {
	m, err := s.ReconcileMember(ctx, p)
	if err != nil {
		observability.Logins.WithLabelValues(loginOutcome(err)).Inc()
		return nil, err
	}

	pair, err := s.Tokens.Issue(m.MemberID, m.Role)
	if err != nil {
		observability.Logins.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := s.UpsertSessionToken(ctx, m.MemberID, pair.AccessToken, pair.RefreshToken); err != nil {
		observability.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	if m.Created {
		observability.Logins.WithLabelValues("created").Inc()
	} else {
		observability.Logins.WithLabelValues("existing").Inc()
	}
	return &Session{Member: *m, Tokens: pair}, nil
}

// Authenticate resolves a bearer access token to its member. The token must
// verify and must equal the member's stored access token.
//
// Errors: ErrInvalidToken.
func (s *IdentityService) Authenticate(ctx context.Context, accessToken string) (*AuthenticatedMember, error) {
	claims, err := s.Tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	memberID, err := claims.MemberID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	db := s.Tx.DB
	stored, err := repo.GetMemberToken(ctx, db, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(stored.AccessToken), []byte(accessToken)) != 1 {
		return nil, ErrInvalidToken
	}

	m, err := repo.GetMember(ctx, db, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &AuthenticatedMember{MemberID: m.ID, Role: m.Role.RoleType, Nickname: m.Nickname}, nil
}

// Refresh exchanges the member's current refresh token for a new pair. The
// presented token must equal the stored one; the swap is compare-and-set, so
// of two concurrent refreshes with the same token only one succeeds.
//
// Errors: ErrInvalidToken.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	ctx, span := observability.Tracer("services/IdentityService").Start(ctx, "Refresh")
	defer span.End()

	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	memberID, err := claims.MemberID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	var sess *Session
	err = s.Tx.Run(ctx, func(tx *gorm.DB) error {
		m, err := repo.GetMember(ctx, tx, memberID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return err
		}
		pair, err := s.Tokens.Issue(m.ID, m.Role.RoleType)
		if err != nil {
			return err
		}
		swapped, err := repo.RotateMemberToken(ctx, tx, m.ID, refreshToken, pair.AccessToken, pair.RefreshToken)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrInvalidToken
		}
		sess = &Session{
			Member: AuthenticatedMember{MemberID: m.ID, Role: m.Role.RoleType, Nickname: m.Nickname},
			Tokens: pair,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, ErrIdentityMismatch):
		return "mismatch"
	case errors.Is(err, ErrRoleNotConfigured):
		return "role_missing"
	default:
		return "error"
	}
}
