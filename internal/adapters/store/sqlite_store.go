package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS rfps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		structured TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS proposals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rfp_id INTEGER NOT NULL REFERENCES rfps(id) ON DELETE CASCADE,
		vendor_id INTEGER NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
		parsed TEXT NOT NULL,
		ai_summary TEXT NOT NULL DEFAULT '',
		raw_email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rfps_created_at ON rfps(created_at)`,
	`DROP INDEX IF EXISTS idx_vendors_email`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_email_unique ON vendors(email)`,
	`CREATE INDEX IF NOT EXISTS idx_proposals_rfp_id ON proposals(rfp_id)`,
}

// SQLiteStore is a SQLite implementation of the Store interface
type SQLiteStore struct {
	*SQLStore
}

// NewSQLiteStore opens (and creates if needed) the database file at dbPath
func NewSQLiteStore(ctx context.Context, dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/rfp.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	s, err := newSQLStore(db, "sqlite", sqliteSchema, isSQLiteDuplicate, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened SQLite store", zap.String("path", dbPath))
	return &SQLiteStore{SQLStore: s}, nil
}

func isSQLiteDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
