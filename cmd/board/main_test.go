package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-board-backend/internal/config"
	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/repo"
)

func TestSeedList(t *testing.T) {
	cfg := config.Config{Board: config.BoardConfig{DefaultRole: "user", SeedRoles: []string{"user", "admin"}}}

	assert.Equal(t, []string{"user", "admin"}, seedList(cfg, nil))
	assert.Equal(t, []string{"mod", "user"}, seedList(cfg, []string{"mod"}))

	cfg.Board.SeedRoles = nil
	assert.Equal(t, []string{"user"}, seedList(cfg, nil))
}

func TestRunJanitor_PurgesExpiredKeys(t *testing.T) {
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "janitor.db"))
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = repo.CreateIdempotency(ctx, db, 1, 1, domain.IdempotencyScopeRoot, "gone", 10, 201, time.Millisecond)
	require.NoError(t, err)
	_, err = repo.CreateIdempotency(ctx, db, 1, 1, domain.IdempotencyScopeRoot, "kept", 11, 201, time.Hour)
	require.NoError(t, err)

	go runJanitor(ctx, db, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var n int64
		db.Model(&domain.Idempotency{}).Count(&n)
		return n == 1
	}, 2*time.Second, 20*time.Millisecond)

	var left domain.Idempotency
	require.NoError(t, db.First(&left).Error)
	assert.Equal(t, "kept", left.Key)
}
