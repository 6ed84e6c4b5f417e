package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/http/middleware"
	"github.com/tbourn/go-board-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// CommentService defines the comment thread operations consumed by HTTP
// handlers. *services.CommentService satisfies it.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CommentService interface {
	// WriteRoot creates a new thread root on a post.
	WriteRoot(ctx context.Context, in services.WriteInput) (services.WriteResult, error)
	// WriteReply answers targetID; the reply joins the target's thread.
	WriteReply(ctx context.Context, targetID uint, in services.WriteInput) (services.WriteResult, error)
	// Update rewrites a comment owned by requesterID.
	Update(ctx context.Context, commentID, requesterID uint, content string, anonymous bool) (uint, error)
	// Delete hard-deletes a comment owned by requesterID.
	Delete(ctx context.Context, commentID, requesterID uint) (uint, error)
	// List returns one page of a post's comments as seen by viewerID.
	List(ctx context.Context, postID, viewerID uint, page, size int) (*services.CommentPage, error)
}

// LedgerService looks up a member's anonymous number on a post. Numbers are
// only assigned by writing a comment.
type LedgerService interface {
	FindNumber(ctx context.Context, postID, memberID uint) (int, error)
}

// IdentityService exchanges OAuth profiles and refresh tokens for sessions.
type IdentityService interface {
	Login(ctx context.Context, p services.OAuthProfile) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
}

// StatsFunc reports the comment count and latest update time of a post. It
// feeds the list ETag; nil disables conditional responses.
type StatsFunc func(ctx context.Context, postID uint) (int64, *time.Time, error)

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for sessions, comments, and anonymous
// numbers. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	comments CommentService
	ledger   LedgerService
	identity IdentityService
	stats    StatsFunc
}

// New constructs a Handlers instance bound to the given services.
func New(comments CommentService, ledger LedgerService, identity IdentityService, stats StatsFunc) *Handlers {
	return &Handlers{comments: comments, ledger: ledger, identity: identity, stats: stats}
}

// memberID returns the authenticated caller, or 0 for anonymous viewers.
func memberID(c *gin.Context) uint {
	id, _ := middleware.MemberID(c)
	return id
}
