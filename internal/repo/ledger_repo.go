// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the anonymous numbering ledger: the
// per-post counter and the (post, member) -> number assignments.
//
// All functions here are meant to run inside the caller's transaction. The
// counter bump and the ledger insert must commit together, otherwise numbers
// would be burned without an owner.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// FindAnonymousNumber returns the ledger entry of memberID on postID, or
// ErrNotFound when the member has not been numbered on that post yet.
func FindAnonymousNumber(ctx context.Context, db *gorm.DB, postID, memberID uint) (*domain.AnonymousNumber, error) {
	var n domain.AnonymousNumber
	err := db.WithContext(ctx).
		Where("post_id = ? AND member_id = ?", postID, memberID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NextPostNumber increments the counter of postID and returns the new value.
// The counter row is created lazily; on first use it starts from the highest
// number already in the ledger so pre-existing assignments are never reissued.
func NextPostNumber(ctx context.Context, db *gorm.DB, postID uint) (int, error) {
	tx := db.WithContext(ctx)

	var seed struct{ MaxNumber int }
	if err := tx.Model(&domain.AnonymousNumber{}).
		Select("COALESCE(MAX(number), 0) AS max_number").
		Where("post_id = ?", postID).
		Scan(&seed).Error; err != nil {
		return 0, err
	}
	counter := &domain.PostNumberCounter{PostID: postID, LastNumber: seed.MaxNumber}
	if err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "post_id"}}, DoNothing: true}).
		Create(counter).Error; err != nil {
		return 0, err
	}

	res := tx.Model(&domain.PostNumberCounter{}).
		Where("post_id = ?", postID).
		Update("last_number", gorm.Expr("last_number + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, ErrNotFound
	}

	var got domain.PostNumberCounter
	if err := tx.Where("post_id = ?", postID).First(&got).Error; err != nil {
		return 0, err
	}
	return got.LastNumber, nil
}

// CreateAnonymousNumber records number for (postID, memberID). A collision on
// either unique index yields ErrDuplicate.
func CreateAnonymousNumber(ctx context.Context, db *gorm.DB, postID, memberID uint, number int) (*domain.AnonymousNumber, error) {
	n := &domain.AnonymousNumber{
		PostID:    postID,
		MemberID:  memberID,
		Number:    number,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(n).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return n, nil
}
