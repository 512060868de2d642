package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&row{}))
	return gdb
}

func TestRunInTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		gdb := openTestDB(t)
		tm := NewTransactionManager(gdb)

		err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
			assert.True(t, InTransaction(ctx))
			return GetTxFromContext(ctx, gdb).Create(&row{Name: "a"}).Error
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, gdb.Model(&row{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		gdb := openTestDB(t)
		tm := NewTransactionManager(gdb)
		boom := errors.New("boom")

		err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
			require.NoError(t, GetTxFromContext(ctx, gdb).Create(&row{Name: "a"}).Error)
			return boom
		})
		require.ErrorIs(t, err, boom)

		var count int64
		require.NoError(t, gdb.Model(&row{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("nested call reuses outer transaction", func(t *testing.T) {
		gdb := openTestDB(t)
		tm := NewTransactionManager(gdb)

		err := tm.RunInTransaction(context.Background(), func(outer context.Context) error {
			outerTx := tm.GetTx(outer)
			return tm.RunInTransaction(outer, func(inner context.Context) error {
				assert.Same(t, outerTx, tm.GetTx(inner))
				return nil
			})
		})
		require.NoError(t, err)
	})
}

func TestInTransaction_PlainContext(t *testing.T) {
	assert.False(t, InTransaction(context.Background()))
}
