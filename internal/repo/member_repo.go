// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for members and
// their roles.
//
// Functions:
//
//   - FindMemberByOAuthIdentifier(ctx, db, identifier) -> *domain.Member, error
//     Looks a member up by the provider-issued identifier (role preloaded).
//
//   - GetMember(ctx, db, id) -> *domain.Member, error
//     Fetches a member by internal id (role preloaded), or ErrNotFound.
//
//   - MemberExists(ctx, db, id) -> bool, error
//
//   - CreateMember(ctx, db, member) -> error
//     Inserts a member; a lost race on the identifier yields ErrDuplicate.
//
//   - FindRoleByType(ctx, db, roleType) -> *domain.MemberRole, error
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// FindMemberByOAuthIdentifier returns the member bound to identifier, with its
// role preloaded. It returns ErrNotFound when no member matches.
func FindMemberByOAuthIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).
		Preload("Role").
		Where("oauth_identifier = ?", identifier).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMember fetches a member by id with its role preloaded.
func GetMember(ctx context.Context, db *gorm.DB, id uint) (*domain.Member, error) {
	var m domain.Member
	if err := db.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MemberExists reports whether a member row with id exists.
func MemberExists(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Member{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// CreateMember inserts m and fills in its generated id. Associations are not
// written; m.RoleID must reference an existing role.
func CreateMember(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindRoleByType returns the role named roleType, or ErrNotFound.
func FindRoleByType(ctx context.Context, db *gorm.DB, roleType string) (*domain.MemberRole, error) {
	var r domain.MemberRole
	if err := db.WithContext(ctx).Where("role_type = ?", roleType).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}
