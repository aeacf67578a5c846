package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS rfps (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(512) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		structured JSON NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_rfps_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(320) NOT NULL COLLATE utf8mb4_bin,
		contact VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY idx_vendors_email_unique (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS proposals (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		rfp_id BIGINT NOT NULL,
		vendor_id BIGINT NOT NULL,
		parsed JSON NOT NULL,
		ai_summary TEXT NOT NULL,
		raw_email MEDIUMTEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_proposals_rfp_id (rfp_id),
		CONSTRAINT fk_proposals_rfp FOREIGN KEY (rfp_id) REFERENCES rfps(id) ON DELETE CASCADE,
		CONSTRAINT fk_proposals_vendor FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// MySQLStore is a MySQL implementation of the Store interface
type MySQLStore struct {
	*SQLStore
}

// NewMySQLStore connects to MySQL and creates the schema if needed.
// parseTime is forced on so DATETIME columns scan into time.Time.
func NewMySQLStore(ctx context.Context, dsn string, logger *zap.Logger) (*MySQLStore, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC

	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to MySQL database: %w", core.ErrConnection, err)
	}

	s, err := newSQLStore(db, "mysql", mysqlSchema, isMySQLDuplicate, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to MySQL store",
		zap.String("addr", mysqlCfg.Addr),
		zap.String("database", mysqlCfg.DBName))
	return &MySQLStore{SQLStore: s}, nil
}

// ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
