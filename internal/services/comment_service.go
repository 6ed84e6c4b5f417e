// Package services – CommentService
//
// CommentService owns the comment thread store: root comments, replies, edits
// and deletes. Threads are flat: every comment carries the id of its thread
// root as its group. A root points at itself (set right after the insert
// yields the id, in the same transaction); a reply points at the root of the
// comment it answers, so replying to a reply stays in the same thread.
//
// Every write that creates a comment first resolves the author's anonymous
// number through the ledger, inside the same transaction, so a comment never
// exists without a ledger entry and a rolled-back write never burns a number.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/observability"
	"github.com/tbourn/go-board-backend/internal/repo"
)

// Comment kinds, used as metric labels.
const (
	kindRoot  = "root"
	kindReply = "reply"
)

// WriteInput carries the fields of a new comment or reply.
type WriteInput struct {
	PostID    uint
	MemberID  uint
	Content   string
	Anonymous bool

	// IdempotencyKey is optional. When set, a repeated write with the same
	// (member, post, endpoint, key) returns the first result instead of
	// writing again. A root write and a reply to comment N are different
	// endpoints, as are replies to different targets. The replayed id may
	// name a comment that has since been deleted.
	IdempotencyKey string
}

// WriteResult is the outcome of a comment write.
type WriteResult struct {
	CommentID uint
	// Replayed is true when the result was served from an idempotency record.
	Replayed bool
}

// CommentService implements the comment use-cases.
type CommentService struct {
	Tx TxRunner

	// MaxContentRunes caps content length; <= 0 means DefaultMaxContentRunes.
	MaxContentRunes int

	// IdempotencyTTL is how long an Idempotency-Key is honoured; <= 0 means 24h.
	IdempotencyTTL time.Duration
}

// WriteRoot creates a thread root on in.PostID.
//
// Errors: ErrInvalidContent, ErrEmptyContent, ErrContentTooLong, ErrPostNotFound,
// ErrMemberNotFound, ErrConflict.
func (s *CommentService) WriteRoot(ctx context.Context, in WriteInput) (WriteResult, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "WriteRoot",
		trace.WithAttributes(
			attribute.Int64("post.id", int64(in.PostID)),
			attribute.Int64("member.id", int64(in.MemberID)),
		),
	)
	defer span.End()

	return s.write(ctx, in, kindRoot, domain.IdempotencyScope(0), nil, func(tx *gorm.DB, c *domain.Comment) error {
		if err := repo.SetCommentGroup(ctx, tx, c.ID, c.ID); err != nil {
			return err
		}
		c.GroupID = &c.ID
		return nil
	})
}

// WriteReply creates a reply to targetID on in.PostID. The reply joins the
// target's thread.
//
// Errors: ErrInvalidContent, ErrEmptyContent, ErrContentTooLong, ErrPostNotFound,
// ErrCommentNotFound (missing target, or target on another post),
// ErrMemberNotFound, ErrConflict.
func (s *CommentService) WriteReply(ctx context.Context, targetID uint, in WriteInput) (WriteResult, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "WriteReply",
		trace.WithAttributes(
			attribute.Int64("post.id", int64(in.PostID)),
			attribute.Int64("comment.target_id", int64(targetID)),
			attribute.Int64("member.id", int64(in.MemberID)),
		),
	)
	defer span.End()

	return s.write(ctx, in, kindReply, domain.IdempotencyScope(targetID), func(tx *gorm.DB, c *domain.Comment) error {
		target, err := repo.GetComment(ctx, tx, targetID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCommentNotFound
		}
		if err != nil {
			return err
		}
		if target.PostID != c.PostID {
			return ErrCommentNotFound
		}
		group := target.ID
		if target.GroupID != nil {
			group = *target.GroupID
		}
		c.GroupID = &group
		return nil
	}, nil)
}

// threadHook adjusts a comment around its insert; nil hooks are skipped.
type threadHook func(tx *gorm.DB, c *domain.Comment) error

// write runs the shared root/reply pipeline. Content is validated up front;
// the rest is one transaction: post check, idempotency replay, member check,
// beforeInsert (target resolution), ledger number, insert, afterInsert
// (self-link), idempotency record.
func (s *CommentService) write(ctx context.Context, in WriteInput, kind, scope string, beforeInsert, afterInsert threadHook) (WriteResult, error) {
	content, err := prepareContent(in.Content, s.MaxContentRunes)
	if err != nil {
		return WriteResult{}, err
	}

	var res WriteResult
	err = s.Tx.Run(ctx, func(tx *gorm.DB) error {
		res = WriteResult{}
		if err := requirePost(ctx, tx, in.PostID); err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			rec, err := repo.GetIdempotency(ctx, tx, in.MemberID, in.PostID, scope, in.IdempotencyKey, time.Now().UTC())
			if err == nil {
				res = WriteResult{CommentID: rec.CommentID, Replayed: true}
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		if err := requireMember(ctx, tx, in.MemberID); err != nil {
			return err
		}

		c := &domain.Comment{
			PostID:    in.PostID,
			MemberID:  in.MemberID,
			Content:   content,
			Anonymous: in.Anonymous,
		}
		if beforeInsert != nil {
			if err := beforeInsert(tx, c); err != nil {
				return err
			}
		}

		num, err := assignNumber(ctx, tx, in.PostID, in.MemberID)
		if err != nil {
			return err
		}
		c.NumberID = num.ID

		if err := repo.CreateComment(ctx, tx, c); err != nil {
			return err
		}
		if afterInsert != nil {
			if err := afterInsert(tx, c); err != nil {
				return err
			}
		}

		if in.IdempotencyKey != "" {
			_, err := repo.CreateIdempotency(ctx, tx, in.MemberID, in.PostID, scope, in.IdempotencyKey, c.ID, http.StatusCreated, s.idempotencyTTL())
			if errors.Is(err, repo.ErrDuplicate) {
				// A concurrent request with the same key won; the retry replays it.
				return ErrConflict
			}
			if err != nil {
				return err
			}
		}
		res.CommentID = c.ID
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}

	if !res.Replayed {
		observability.CommentsWritten.WithLabelValues(kind).Inc()
		zerolog.Ctx(ctx).Info().
			Str("kind", kind).
			Uint("post_id", in.PostID).
			Uint("comment_id", res.CommentID).
			Msg("comment written")
	}
	return res, nil
}

// Update replaces the content and anonymity flag of commentID. Only the
// author may edit; the thread group and ledger entry are untouched.
//
// Errors: ErrInvalidContent, ErrEmptyContent, ErrContentTooLong, ErrCommentNotFound,
// ErrUnauthorized.
func (s *CommentService) Update(ctx context.Context, commentID, requesterID uint, content string, anonymous bool) (uint, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "Update",
		trace.WithAttributes(
			attribute.Int64("comment.id", int64(commentID)),
			attribute.Int64("member.id", int64(requesterID)),
		),
	)
	defer span.End()

	content, err := prepareContent(content, s.MaxContentRunes)
	if err != nil {
		return 0, err
	}

	err = s.Tx.Run(ctx, func(tx *gorm.DB) error {
		c, err := loadOwned(ctx, tx, commentID, requesterID)
		if err != nil {
			return err
		}
		return repo.UpdateCommentContent(ctx, tx, c.ID, content, anonymous)
	})
	if err != nil {
		return 0, err
	}
	return commentID, nil
}

// Delete permanently removes commentID. Only the author may delete. Replies
// of a deleted root are kept and still carry its id as their group. The
// author's anonymous number on the post is kept.
//
// Errors: ErrCommentNotFound, ErrMemberNotFound, ErrUnauthorized.
func (s *CommentService) Delete(ctx context.Context, commentID, requesterID uint) (uint, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("comment.id", int64(commentID)),
			attribute.Int64("member.id", int64(requesterID)),
		),
	)
	defer span.End()

	err := s.Tx.Run(ctx, func(tx *gorm.DB) error {
		c, err := repo.GetComment(ctx, tx, commentID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCommentNotFound
		}
		if err != nil {
			return err
		}
		if err := requireMember(ctx, tx, requesterID); err != nil {
			return err
		}
		if c.MemberID != requesterID {
			return ErrUnauthorized
		}
		return repo.DeleteComment(ctx, tx, c.ID)
	})
	if err != nil {
		return 0, err
	}

	observability.CommentsDeleted.Inc()
	zerolog.Ctx(ctx).Info().Uint("comment_id", commentID).Msg("comment deleted")
	return commentID, nil
}

// loadOwned fetches commentID and checks that requesterID wrote it.
func loadOwned(ctx context.Context, tx *gorm.DB, commentID, requesterID uint) (*domain.Comment, error) {
	c, err := repo.GetComment(ctx, tx, commentID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.MemberID != requesterID {
		return nil, ErrUnauthorized
	}
	return c, nil
}

func (s *CommentService) idempotencyTTL() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return s.IdempotencyTTL
}
