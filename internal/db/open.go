package db

import (
	"time" // Pool lifetimes

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger levels
)

// DSN builds the MySQL Data Source Name from its parts
func DSN(user, password, host, port, name string) string {
	return user + ":" + password + "@tcp(" + host + ":" + port + ")/" + name + "?parseTime=true&loc=UTC"
}

// Open connects to MySQL with driver errors translated into gorm errors
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn // Only slow queries and errors by default
	if debug {
		level = logger.Info // Log every statement in debug mode
	}
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,                          // Map duplicate keys to gorm.ErrDuplicatedKey
		Logger:         logger.Default.LogMode(level), // Statement logging
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err // Connection failed
	}
	sqlDB, err := gdb.DB() // Underlying connection pool
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)                  // Bound concurrent connections
	sqlDB.SetMaxIdleConns(10)                  // Keep a few warm connections
	sqlDB.SetConnMaxLifetime(30 * time.Minute) // Recycle connections periodically
	logrus.WithField("max_open_conns", 50).Debug("Database pool configured")
	return gdb, nil
}
