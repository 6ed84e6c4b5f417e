// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them, not on
// the message text. Generic codes mirror HTTP status semantics; the board
// specific ones name the domain condition that caused the failure.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "identity_mismatch",
//	  "message": "this account is linked to a different provider"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/http/middleware"
	"github.com/tbourn/go-board-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodePostNotFound      = "post_not_found"
	ErrCodeCommentNotFound   = "comment_not_found"
	ErrCodeMemberNotFound    = "member_not_found"
	ErrCodeNumberNotAssigned = "number_not_assigned"
	ErrCodeIdentityMismatch  = "identity_mismatch"
	ErrCodeRoleNotConfigured = "role_not_configured"
	ErrCodeEmptyContent      = "empty_content"
	ErrCodeInvalidContent    = "invalid_content"
	ErrCodeContentTooLong    = "content_too_long"
	ErrCodeInvalidPage       = "invalid_page"
)

// failService translates a service error into the matching status and code.
// Unknown errors become a generic 500 and are logged with the request logger;
// their text never reaches the client.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, ErrCodePostNotFound, "post not found")
	case errors.Is(err, services.ErrCommentNotFound):
		fail(c, http.StatusNotFound, ErrCodeCommentNotFound, "comment not found")
	case errors.Is(err, services.ErrMemberNotFound):
		fail(c, http.StatusNotFound, ErrCodeMemberNotFound, "member not found")
	case errors.Is(err, services.ErrNumberNotAssigned):
		fail(c, http.StatusNotFound, ErrCodeNumberNotAssigned, "no anonymous number on this post yet")
	case errors.Is(err, services.ErrRoleNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeRoleNotConfigured, "default member role is not configured")
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the author may change this comment")
	case errors.Is(err, services.ErrIdentityMismatch):
		fail(c, http.StatusConflict, ErrCodeIdentityMismatch, "this account is linked to a different provider")
	case errors.Is(err, services.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or revoked token")
	case errors.Is(err, services.ErrConflict):
		c.Header("Retry-After", "1")
		fail(c, http.StatusConflict, ErrCodeConflict, "concurrent update, please retry")
	case errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeEmptyContent, "content must not be empty")
	case errors.Is(err, services.ErrInvalidContent):
		fail(c, http.StatusBadRequest, ErrCodeInvalidContent, "content must be valid utf-8")
	case errors.Is(err, services.ErrContentTooLong):
		fail(c, http.StatusBadRequest, ErrCodeContentTooLong, "content too long")
	case errors.Is(err, services.ErrInvalidPage):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPage, "page must be >= 0 and page_size > 0")
	case errors.Is(err, services.ErrInvalidIdentity):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "oauth_identifier and oauth_provider are required")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
