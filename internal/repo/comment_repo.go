// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for comments.
//
// Functions:
//
//   - CreateComment(ctx, db, c) -> error
//     Inserts c (associations omitted) and fills in its id.
//
//   - SetCommentGroup(ctx, db, id, groupID) -> error
//     Points a comment at its thread root; used right after a root insert.
//
//   - GetComment(ctx, db, id) -> *domain.Comment, error
//
//   - UpdateCommentContent(ctx, db, id, content, anonymous) -> error
//
//   - DeleteComment(ctx, db, id) -> error
//     Hard delete; replies of a deleted root are left in place.
//
//   - CountComments(ctx, db, postID) -> int64, error
//
//   - ListCommentsPage(ctx, db, postID, offset, limit) -> []domain.Comment, error
//     Thread-grouped page with the ledger entry and author preloaded.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// CreateComment inserts c. CreatedAt/UpdatedAt default to now (UTC).
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

// SetCommentGroup sets group_id of comment id without touching updated_at.
func SetCommentGroup(ctx context.Context, db *gorm.DB, id, groupID uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		UpdateColumn("group_id", groupID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetComment fetches a comment by id, or ErrNotFound.
func GetComment(ctx context.Context, db *gorm.DB, id uint) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCommentContent overwrites content and the anonymity flag and bumps
// updated_at. Returns ErrNotFound if no row matched.
func UpdateCommentContent(ctx context.Context, db *gorm.DB, id uint, content string, anonymous bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":    content,
			"anonymous":  anonymous,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComment removes comment id. Returns ErrNotFound if no row matched.
func DeleteComment(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountComments returns the number of comments on postID.
func CountComments(ctx context.Context, db *gorm.DB, postID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// ListCommentsPage returns one page of comments on postID ordered so that each
// thread is contiguous (group_id), oldest first within a thread, with id as a
// tie-breaker for rows created in the same instant.
func ListCommentsPage(ctx context.Context, db *gorm.DB, postID uint, offset, limit int) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Preload("Number").
		Preload("Member").
		Where("post_id = ?", postID).
		Order("group_id ASC").
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
