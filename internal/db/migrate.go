package db

import (
	"wallet_ledger/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table owned by the service, in dependency order
var Models = []any{&domain.User{}, &domain.Wallet{}, &domain.Transaction{}}

// Migrate creates or updates the schema
func Migrate(gdb *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes.
	// The wallet version column is added NOT NULL DEFAULT 0, so existing wallets start at version 0.
	if err := gdb.AutoMigrate(Models...); err != nil {
		return err // Migration failed
	}
	logrus.WithField("tables", len(Models)).Info("Migration completed.") // Log successful migration
	return nil
}
