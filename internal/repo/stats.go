// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// CommentsStats returns aggregate metadata for the comments of a post: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When the post has no comments, the returned count is 0 and maxUpdatedAt is
// nil. Deletes change the count, edits change maxUpdatedAt, so the pair is a
// sufficient validator for a listing.
func CommentsStats(ctx context.Context, db *gorm.DB, postID uint) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Comment{}).Where("post_id = ?", postID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Comment{}).
		Where("post_id = ?", postID).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
