// Session HTTP handlers.
//
//   - POST /auth/login    (OAuth profile -> token pair)
//   - POST /auth/refresh  (refresh token -> rotated token pair)
//
// The OAuth dance itself happens upstream; these endpoints receive the
// verified provider profile.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/services"
)

// LoginRequest is the verified OAuth profile of the user signing in.
type LoginRequest struct {
	OAuthIdentifier string `json:"oauth_identifier" binding:"required,max=255" example:"109876543210"`
	OAuthProvider   string `json:"oauth_provider"   binding:"required,max=32"  example:"google"`
	Nickname        string `json:"nickname"         binding:"max=64"           example:"maria"`
}

// RefreshRequest carries the refresh token of the current session.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is an issued session.
type TokenResponse struct {
	MemberID         uint      `json:"member_id"          example:"42"`
	Role             string    `json:"role"               example:"user"`
	Nickname         string    `json:"nickname,omitempty" example:"maria"`
	Created          bool      `json:"created"            example:"false"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"         example:"Bearer"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func tokenResponse(s *services.Session) TokenResponse {
	return TokenResponse{
		MemberID:         s.Member.MemberID,
		Role:             s.Member.Role,
		Nickname:         s.Member.Nickname,
		Created:          s.Member.Created,
		AccessToken:      s.Tokens.AccessToken,
		RefreshToken:     s.Tokens.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  s.Tokens.AccessExpiresAt,
		RefreshExpiresAt: s.Tokens.RefreshExpiresAt,
	}
}

// Login godoc
// @ID          login
// @Summary     Sign in with an OAuth profile
// @Description Resolves the OAuth identity to a member (creating one on first sign-in) and issues a new token pair. Any previous pair stops working.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Verified OAuth profile"
//
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Identifier linked to another provider"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "oauth_identifier and oauth_provider are required")
		return
	}

	s, err := h.identity.Login(c.Request.Context(), services.OAuthProfile{
		Identifier: strings.TrimSpace(req.OAuthIdentifier),
		Provider:   strings.TrimSpace(req.OAuthProvider),
		Nickname:   strings.TrimSpace(req.Nickname),
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, tokenResponse(s))
}

// Refresh godoc
// @ID          refreshSession
// @Summary     Rotate the session tokens
// @Description Exchanges the current refresh token for a new pair. A refresh token works once.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RefreshRequest  true  "Refresh token"
//
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid or revoked token"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/refresh [post]
func (h *Handlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "refresh_token required")
		return
	}

	s, err := h.identity.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, tokenResponse(s))
}
