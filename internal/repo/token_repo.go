// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// MemberToken model (one active access/refresh pair per member).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// GetMemberToken returns the token row of memberID, or ErrNotFound.
func GetMemberToken(ctx context.Context, db *gorm.DB, memberID uint) (*domain.MemberToken, error) {
	var t domain.MemberToken
	if err := db.WithContext(ctx).Where("member_id = ?", memberID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertMemberToken writes both token fields for memberID in a single
// statement: insert when no row exists, otherwise overwrite in place.
func UpsertMemberToken(ctx context.Context, db *gorm.DB, memberID uint, access, refresh string) error {
	now := time.Now().UTC()
	t := &domain.MemberToken{
		MemberID:     memberID,
		AccessToken:  access,
		RefreshToken: refresh,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "updated_at"}),
		}).
		Create(t).Error
}

// RotateMemberToken replaces the pair of memberID only if the stored refresh
// token still equals oldRefresh. It reports whether a row was swapped, so two
// racing refreshes with the same token cannot both win.
func RotateMemberToken(ctx context.Context, db *gorm.DB, memberID uint, oldRefresh, access, refresh string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.MemberToken{}).
		Where("member_id = ? AND refresh_token = ?", memberID, oldRefresh).
		Updates(map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
