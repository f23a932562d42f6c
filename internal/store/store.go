// Package store persists bill metadata and the bank operation ledger in a
// SQLite database through gorm.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/SomeAverageDev/konnectors/internal/logging"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Store is the SQLite-backed bill and ledger store.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open connects to the database at dsn, creating its directory when needed,
// and migrates the schema.
func Open(dsn string, logger logging.Logger) (*Store, error) {
	logger = logging.OrDefault(logger)

	if dir := dataDir(dsn); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: &gormLogger{logger: logger},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	// A single connection avoids SQLITE_BUSY and keeps :memory: databases
	// alive for the lifetime of the store.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&billRow{}, &operationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dataDir(dsn string) string {
	if dsn == MemoryDSN || strings.HasPrefix(dsn, "file::memory:") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
