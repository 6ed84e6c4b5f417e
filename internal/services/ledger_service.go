// Package services – LedgerService
//
// The anonymous numbering ledger gives each member a stable pseudonym per
// post: "anonymous 1" is whoever first commented, "anonymous 2" the second
// distinct member, and so on. A number, once assigned, never changes and is
// never handed to anyone else on that post, even if all of the member's
// comments are later deleted.
//
// Concurrency: two first-time commenters racing on one post both read the
// same counter value at most once; the per-post counter bump and the
// (post_id, number)/(post_id, member_id) unique indexes make the loser's
// transaction fail, and TxRunner re-runs it from scratch.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/observability"
	"github.com/tbourn/go-board-backend/internal/repo"
)

// LedgerService exposes get-or-assign of anonymous numbers, plus a read-only
// lookup. Only the comment write path assigns; readers never do.
type LedgerService struct {
	Tx TxRunner
}

// NewLedgerService builds a LedgerService on db with the given attempt cap.
func NewLedgerService(db *gorm.DB, maxAttempts int) *LedgerService {
	return &LedgerService{Tx: TxRunner{DB: db, MaxAttempts: maxAttempts}}
}

// GetOrAssignNumber returns memberID's number on postID, assigning the next
// one if the member has none yet.
//
// Errors: ErrPostNotFound, ErrMemberNotFound, ErrConflict (after retries).
func (s *LedgerService) GetOrAssignNumber(ctx context.Context, postID, memberID uint) (int, error) {
	ctx, span := observability.Tracer("services/LedgerService").Start(ctx, "GetOrAssignNumber",
		trace.WithAttributes(
			attribute.Int64("post.id", int64(postID)),
			attribute.Int64("member.id", int64(memberID)),
		),
	)
	defer span.End()

	var number int
	err := s.Tx.Run(ctx, func(tx *gorm.DB) error {
		if err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		if err := requireMember(ctx, tx, memberID); err != nil {
			return err
		}
		n, err := assignNumber(ctx, tx, postID, memberID)
		if err != nil {
			return err
		}
		number = n.Number
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return number, nil
}

// FindNumber returns memberID's number on postID without assigning one.
//
// Errors: ErrPostNotFound, ErrNumberNotAssigned.
func (s *LedgerService) FindNumber(ctx context.Context, postID, memberID uint) (int, error) {
	ctx, span := observability.Tracer("services/LedgerService").Start(ctx, "FindNumber",
		trace.WithAttributes(
			attribute.Int64("post.id", int64(postID)),
			attribute.Int64("member.id", int64(memberID)),
		),
	)
	defer span.End()

	db := s.Tx.DB
	if err := requirePost(ctx, db, postID); err != nil {
		return 0, err
	}
	n, err := repo.FindAnonymousNumber(ctx, db, postID, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, ErrNumberNotAssigned
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return n.Number, nil
}

// assignNumber is the transactional core of the ledger. The caller has
// already checked that the post and member exist, and owns tx.
func assignNumber(ctx context.Context, tx *gorm.DB, postID, memberID uint) (*domain.AnonymousNumber, error) {
	existing, err := repo.FindAnonymousNumber(ctx, tx, postID, memberID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	next, err := repo.NextPostNumber(ctx, tx, postID)
	if err != nil {
		return nil, err
	}
	created, err := repo.CreateAnonymousNumber(ctx, tx, postID, memberID, next)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	observability.NumbersAssigned.Inc()
	zerolog.Ctx(ctx).Debug().
		Uint("post_id", postID).
		Uint("member_id", memberID).
		Int("number", next).
		Msg("anonymous number assigned")
	return created, nil
}

func requirePost(ctx context.Context, tx *gorm.DB, postID uint) error {
	ok, err := repo.PostExists(ctx, tx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPostNotFound
	}
	return nil
}

func requireMember(ctx context.Context, tx *gorm.DB, memberID uint) error {
	ok, err := repo.MemberExists(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMemberNotFound
	}
	return nil
}
