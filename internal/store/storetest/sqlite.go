// Package storetest provides database-backed stores for tests.
package storetest

import (
	"testing"
	"time"

	"wallet_ledger/internal/db"
	"wallet_ledger/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite returns a Gorm store over a private in-memory sqlite database
// with the full schema migrated. A single connection is used so the
// database lives as long as the test and atomic units are serialized.
func NewSQLite(t *testing.T) *store.Gorm {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return store.NewGorm(gdb)
}
