package repo

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-board-backend/internal/domain"
)

// newRepoDB opens a migrated, file-backed SQLite database private to t.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedBoard creates the default role, one author and one post, returning the
// post id and the author's member id.
func seedBoard(t *testing.T, db *gorm.DB) (postID, authorID uint) {
	t.Helper()
	ctx := context.Background()

	if err := SeedRoles(ctx, db, "user"); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	author := seedMember(t, db, "author-sub")
	p, err := CreatePost(ctx, db, author.ID, "hello", "first post")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p.ID, author.ID
}

func seedMember(t *testing.T, db *gorm.DB, identifier string) *domain.Member {
	t.Helper()
	ctx := context.Background()

	role, err := FindRoleByType(ctx, db, "user")
	if err != nil {
		t.Fatalf("find role: %v", err)
	}
	m := &domain.Member{OAuthIdentifier: identifier, OAuthProvider: "google", Nickname: identifier, RoleID: role.ID}
	if err := CreateMember(ctx, db, m); err != nil {
		t.Fatalf("create member %s: %v", identifier, err)
	}
	return m
}
