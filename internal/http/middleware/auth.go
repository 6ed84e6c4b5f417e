// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity from an "Authorization: Bearer"
// header. Authenticate runs globally so that idempotency lookups, rate
// limiting, and access logs can key on the member; RequireMember then guards
// individual routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/services"
)

// Gin context keys for the authenticated member.
const (
	ctxKeyMemberID   = "memberID"
	ctxKeyMemberRole = "memberRole"
)

// Authenticator verifies a bearer access token. *services.IdentityService
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*services.AuthenticatedMember, error)
}

// Authenticate resolves a bearer token when one is sent. Requests without an
// Authorization header pass through anonymously; a malformed, expired, or
// revoked token is rejected with 401 rather than silently downgraded.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(raw)
		if !ok {
			abortUnauthorized(c, "malformed Authorization header")
			return
		}

		m, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				LoggerFrom(c).Error().Err(err).Msg("authenticate")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": c.Writer.Header().Get(requestIDHeader),
					"code":       "internal_error",
					"message":    "internal server error",
				})
				return
			}
			abortUnauthorized(c, "invalid or revoked token")
			return
		}

		c.Set(ctxKeyMemberID, m.MemberID)
		c.Set(ctxKeyMemberRole, m.Role)
		c.Next()
	}
}

// RequireMember rejects requests that Authenticate did not resolve.
func RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := MemberID(c); !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// MemberID returns the authenticated member id, if any.
func MemberID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxKeyMemberID)
	if !ok {
		return 0, false
	}
	id, _ := v.(uint)
	return id, id != 0
}

// MemberRole returns the authenticated member's role type, or "".
func MemberRole(c *gin.Context) string {
	return c.GetString(ctxKeyMemberRole)
}

func bearerToken(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="board"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
