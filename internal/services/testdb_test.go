package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/repo"
)

// fixture bundles a migrated database with services wired the way the server
// wires them.
type fixture struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))
	require.NoError(t, repo.SeedRoles(context.Background(), db, "user", "admin"))

	tx := TxRunner{DB: db, MaxAttempts: 5}
	return &fixture{
		DB:       db,
		Ledger:   &LedgerService{Tx: tx},
		Comments: &CommentService{Tx: tx, MaxContentRunes: 50},
	}
}

func (f *fixture) member(t *testing.T, name string) uint {
	t.Helper()
	role, err := repo.FindRoleByType(context.Background(), f.DB, "user")
	require.NoError(t, err)
	m := &domain.Member{OAuthIdentifier: "sub-" + name, OAuthProvider: "google", Nickname: name, RoleID: role.ID}
	require.NoError(t, repo.CreateMember(context.Background(), f.DB, m))
	return m.ID
}

func (f *fixture) post(t *testing.T, authorID uint) uint {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), f.DB, authorID, "title", "body")
	require.NoError(t, err)
	return p.ID
}

// ledger returns the numbering ledger of postID ordered by number.
func (f *fixture) ledger(t *testing.T, postID uint) []domain.AnonymousNumber {
	t.Helper()
	var out []domain.AnonymousNumber
	require.NoError(t, f.DB.Where("post_id = ?", postID).Order("number ASC").Find(&out).Error)
	return out
}

func (f *fixture) members(t *testing.T, n int) []uint {
	t.Helper()
	out := make([]uint, n)
	for i := range out {
		out[i] = f.member(t, fmt.Sprintf("m%02d", i))
	}
	return out
}
