package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/api-sage/retail-banking-ledger/internal/logger"
)

// Pool sizing for the ledger's short, lock-heavy posting transactions.
const (
	maxIdleConns    = 20
	maxOpenConns    = 30
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 15 * time.Minute
)

// Open dials postgres and verifies the connection before handing the
// pool to the repositories.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres connection established", logger.Fields{
		"maxOpenConns": maxOpenConns,
	})

	return db, nil
}
