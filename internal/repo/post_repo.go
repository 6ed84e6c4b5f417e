// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file exposes the narrow post surface the comment
// subsystem needs: an existence check, and an insert used for seeding.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// PostExists reports whether a post row with id exists.
func PostExists(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// CreatePost inserts a post authored by memberID.
func CreatePost(ctx context.Context, db *gorm.DB, memberID uint, title, content string) (*domain.Post, error) {
	now := time.Now().UTC()
	p := &domain.Post{
		MemberID:  memberID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
